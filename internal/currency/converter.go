package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go-gin-event-commerce/config"
	"go-gin-event-commerce/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrRatesUnavailable = errors.New("exchange rates unavailable")
	ErrUnknownCurrency  = errors.New("unknown currency")
)

const rateKeyPrefix = "fx:rate:"

type Converter interface {
	// Rate 1 單位 from 換算成 to 的匯率
	Rate(ctx context.Context, from, to string) (float64, error)
}

// ratesResponse {"base":"PEN","rates":{"USD":0.27,...}}
type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// HTTPConverter 從匯率 API 取得匯率，cache 為 nil 時不快取
type HTTPConverter struct {
	client   *http.Client
	ratesURL string
	cache    *redis.Client
	ttl      time.Duration
	group    singleflight.Group
	log      *zap.Logger
}

func NewHTTPConverter(cfg *config.CurrencyConfig, cache *redis.Client) *HTTPConverter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPConverter{
		client:   &http.Client{Timeout: timeout},
		ratesURL: cfg.RatesURL,
		cache:    cache,
		ttl:      cfg.CacheTTL,
		log:      logger.WithComponent("currency"),
	}
}

func (c *HTTPConverter) Rate(ctx context.Context, from, to string) (float64, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return 0, ErrUnknownCurrency
	}
	if from == to {
		return 1, nil
	}

	if rate, ok := c.cached(ctx, from, to); ok {
		return rate, nil
	}

	// 同一 base 的請求合併成一次
	v, err, _ := c.group.Do(from, func() (interface{}, error) {
		return c.fetch(ctx, from)
	})
	if err != nil {
		return 0, err
	}

	rates := v.(map[string]float64)
	rate, ok := rates[to]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, to)
	}
	return rate, nil
}

func (c *HTTPConverter) fetch(ctx context.Context, base string) (map[string]float64, error) {
	if c.ratesURL == "" {
		return nil, ErrRatesUnavailable
	}

	u, err := url.Parse(c.ratesURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRatesUnavailable, err)
	}
	q := u.Query()
	q.Set("base", base)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRatesUnavailable, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRatesUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRatesUnavailable, resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRatesUnavailable, err)
	}

	rates := make(map[string]float64, len(body.Rates))
	for code, rate := range body.Rates {
		rates[strings.ToUpper(code)] = rate
	}
	c.store(ctx, base, rates)
	return rates, nil
}

func (c *HTTPConverter) cached(ctx context.Context, from, to string) (float64, bool) {
	if c.cache == nil {
		return 0, false
	}
	raw, err := c.cache.Get(ctx, rateKeyPrefix+from+":"+to).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("rate cache read failed", zap.Error(err))
		}
		return 0, false
	}
	rate, err := strconv.ParseFloat(raw, 64)
	if err != nil || rate <= 0 {
		return 0, false
	}
	return rate, true
}

func (c *HTTPConverter) store(ctx context.Context, base string, rates map[string]float64) {
	if c.cache == nil || c.ttl <= 0 {
		return
	}
	pipe := c.cache.Pipeline()
	for code, rate := range rates {
		pipe.Set(ctx, rateKeyPrefix+base+":"+code, strconv.FormatFloat(rate, 'f', -1, 64), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("rate cache write failed", zap.String("base", base), zap.Error(err))
	}
}
