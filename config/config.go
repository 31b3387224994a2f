package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Site      SiteConfig
	Purchase  PurchaseConfig
	Currency  CurrencyConfig
	Auth      AuthConfig
	Telemetry TelemetryConfig
	LogLevel  string
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
	// EnableTracing 每個 query 產生一個 span
	EnableTracing bool
}

type RedisConfig struct {
	Host          string
	Port          string
	Password      string
	DB            int
	PoolSize      int
	MinIdleConns  int
	DialTimeout   time.Duration
	EnableTracing bool
}

// KafkaConfig Brokers 為空時不發送訂單事件
type KafkaConfig struct {
	Brokers    []string
	ClientID   string
	OrderTopic string
}

// SiteConfig 網站層級設定，JSON-LD 的 WebSite / Organization 節點由此產生
type SiteConfig struct {
	BaseURL     string
	Name        string
	Description string
	Language    string
	LogoURL     string
	LogoWidth   int
	LogoHeight  int
	SameAs      []string
	Email       string
	Telephone   string
}

type PurchaseConfig struct {
	// 訂單佇列: memory 或 redis
	QueueDriver        string
	PaymentURLBase     string
	WhatsAppNumber     string
	AmountTolerance    float64
	OrderWorkerCount   int
	QueueClaimIdleTime time.Duration
}

type CurrencyConfig struct {
	RatesURL string
	CacheTTL time.Duration
	Timeout  time.Duration
}

type AuthConfig struct {
	JWTSecret string
	AdminRole string
}

type TelemetryConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	CollectorAddr  string
}

var AppConfig *Config

func LoadConfig() *Config {
	v := newViper()

	AppConfig = &Config{
		Server:    getServerConfig(v),
		Database:  getDatabaseConfig(v),
		Redis:     getRedisConfig(v),
		Kafka:     getKafkaConfig(v),
		Site:      getSiteConfig(v),
		Purchase:  getPurchaseConfig(v),
		Currency:  getCurrencyConfig(v),
		Auth:      getAuthConfig(v),
		Telemetry: getTelemetryConfig(v),
		LogLevel:  v.GetString("LOG_LEVEL"),
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	v := newViper()

	testConfig := &DatabaseConfig{
		Host:           "localhost",
		Port:           "5433", // 測試 DB 用 5433 port
		User:           "postgres",
		Password:       "postgres",
		DBName:         "test_db",
		SSLMode:        "disable",
		MaxConns:       10,
		MinConns:       1,
		ConnectTimeout: 2 * time.Second,
	}

	testRedisConfig := RedisConfig{
		Host:        "localhost",
		Port:        "6380", // 測試 Redis 用 6380 port
		Password:    "",
		DB:          1,
		PoolSize:    50,
		DialTimeout: 2 * time.Second,
	}

	return &Config{
		Server:    getServerConfig(v),
		Database:  *testConfig,
		Redis:     testRedisConfig,
		Site:      getSiteConfig(v),
		Purchase:  getPurchaseConfig(v),
		Currency:  getCurrencyConfig(v),
		Auth:      AuthConfig{JWTSecret: "test-secret", AdminRole: "admin"},
		Telemetry: TelemetryConfig{ServiceName: "event-commerce-test"},
		LogLevel:  "debug",
	}
}

// newViper 讀取可選的 .env，環境變數優先
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	// .env 不存在時直接使用環境變數
	_ = v.ReadInConfig()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_MAX_CONN_LIFETIME", "1h")
	v.SetDefault("DB_MAX_CONN_IDLE_TIME", "30m")
	v.SetDefault("DB_CONNECT_TIMEOUT", "10s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 100)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_CLIENT_ID", "event-commerce")
	v.SetDefault("KAFKA_ORDER_TOPIC", "orders.created")

	v.SetDefault("SITE_BASE_URL", "https://www.example.com")
	v.SetDefault("SITE_NAME", "Eventos")
	v.SetDefault("SITE_DESCRIPTION", "")
	v.SetDefault("SITE_LANGUAGE", "es-PE")
	v.SetDefault("SITE_LOGO_URL", "")
	v.SetDefault("SITE_LOGO_WIDTH", 512)
	v.SetDefault("SITE_LOGO_HEIGHT", 512)
	v.SetDefault("SITE_SAME_AS", "")
	v.SetDefault("SITE_EMAIL", "")
	v.SetDefault("SITE_TELEPHONE", "")

	v.SetDefault("PURCHASE_QUEUE_DRIVER", "memory")
	v.SetDefault("PURCHASE_PAYMENT_URL_BASE", "")
	v.SetDefault("PURCHASE_WHATSAPP_NUMBER", "")
	v.SetDefault("PURCHASE_AMOUNT_TOLERANCE", 0.01)
	v.SetDefault("PURCHASE_ORDER_WORKERS", 1)
	v.SetDefault("PURCHASE_QUEUE_CLAIM_IDLE", "5s")

	v.SetDefault("CURRENCY_RATES_URL", "")
	v.SetDefault("CURRENCY_CACHE_TTL", "1h")
	v.SetDefault("CURRENCY_TIMEOUT", "3s")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ADMIN_ROLE", "admin")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "event-commerce")
	v.SetDefault("OTEL_SERVICE_VERSION", "0.1.0")
	v.SetDefault("OTEL_ENVIRONMENT", "development")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
}

func getServerConfig(v *viper.Viper) ServerConfig {
	return ServerConfig{
		Port:            v.GetString("SERVER_PORT"),
		ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
		WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
	}
}

func getDatabaseConfig(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetString("DB_PORT"),
		User:     v.GetString("DB_USER"),
		Password: v.GetString("DB_PASSWORD"),
		DBName:   v.GetString("DB_NAME"),
		SSLMode:  v.GetString("DB_SSL_MODE"),

		MaxConns:        v.GetInt32("DB_MAX_CONNS"),
		MinConns:        v.GetInt32("DB_MIN_CONNS"),
		MaxConnLifetime: v.GetDuration("DB_MAX_CONN_LIFETIME"),
		MaxConnIdleTime: v.GetDuration("DB_MAX_CONN_IDLE_TIME"),
		ConnectTimeout:  v.GetDuration("DB_CONNECT_TIMEOUT"),
		EnableTracing:   v.GetBool("OTEL_ENABLED"),
	}
}

func getRedisConfig(v *viper.Viper) RedisConfig {
	return RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetString("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),

		PoolSize:      v.GetInt("REDIS_POOL_SIZE"),
		MinIdleConns:  v.GetInt("REDIS_MIN_IDLE_CONNS"),
		DialTimeout:   v.GetDuration("REDIS_DIAL_TIMEOUT"),
		EnableTracing: v.GetBool("OTEL_ENABLED"),
	}
}

func getKafkaConfig(v *viper.Viper) KafkaConfig {
	return KafkaConfig{
		Brokers:    splitList(v.GetString("KAFKA_BROKERS")),
		ClientID:   v.GetString("KAFKA_CLIENT_ID"),
		OrderTopic: v.GetString("KAFKA_ORDER_TOPIC"),
	}
}

func getSiteConfig(v *viper.Viper) SiteConfig {
	return SiteConfig{
		BaseURL:     strings.TrimRight(v.GetString("SITE_BASE_URL"), "/"),
		Name:        v.GetString("SITE_NAME"),
		Description: v.GetString("SITE_DESCRIPTION"),
		Language:    v.GetString("SITE_LANGUAGE"),
		LogoURL:     v.GetString("SITE_LOGO_URL"),
		LogoWidth:   v.GetInt("SITE_LOGO_WIDTH"),
		LogoHeight:  v.GetInt("SITE_LOGO_HEIGHT"),
		SameAs:      splitList(v.GetString("SITE_SAME_AS")),
		Email:       v.GetString("SITE_EMAIL"),
		Telephone:   v.GetString("SITE_TELEPHONE"),
	}
}

func getPurchaseConfig(v *viper.Viper) PurchaseConfig {
	return PurchaseConfig{
		QueueDriver:        v.GetString("PURCHASE_QUEUE_DRIVER"),
		PaymentURLBase:     v.GetString("PURCHASE_PAYMENT_URL_BASE"),
		WhatsAppNumber:     v.GetString("PURCHASE_WHATSAPP_NUMBER"),
		AmountTolerance:    v.GetFloat64("PURCHASE_AMOUNT_TOLERANCE"),
		OrderWorkerCount:   v.GetInt("PURCHASE_ORDER_WORKERS"),
		QueueClaimIdleTime: v.GetDuration("PURCHASE_QUEUE_CLAIM_IDLE"),
	}
}

func getCurrencyConfig(v *viper.Viper) CurrencyConfig {
	return CurrencyConfig{
		RatesURL: v.GetString("CURRENCY_RATES_URL"),
		CacheTTL: v.GetDuration("CURRENCY_CACHE_TTL"),
		Timeout:  v.GetDuration("CURRENCY_TIMEOUT"),
	}
}

func getAuthConfig(v *viper.Viper) AuthConfig {
	return AuthConfig{
		JWTSecret: v.GetString("JWT_SECRET"),
		AdminRole: v.GetString("ADMIN_ROLE"),
	}
}

func getTelemetryConfig(v *viper.Viper) TelemetryConfig {
	return TelemetryConfig{
		Enabled:        v.GetBool("OTEL_ENABLED"),
		ServiceName:    v.GetString("OTEL_SERVICE_NAME"),
		ServiceVersion: v.GetString("OTEL_SERVICE_VERSION"),
		Environment:    v.GetString("OTEL_ENVIRONMENT"),
		CollectorAddr:  v.GetString("OTEL_COLLECTOR_ADDR"),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
