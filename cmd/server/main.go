package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go-gin-event-commerce/config"
	"go-gin-event-commerce/internal/cache"
	"go-gin-event-commerce/internal/currency"
	"go-gin-event-commerce/internal/database"
	"go-gin-event-commerce/internal/handler"
	"go-gin-event-commerce/internal/jsonld"
	"go-gin-event-commerce/internal/middleware"
	"go-gin-event-commerce/internal/publisher"
	"go-gin-event-commerce/internal/queue"
	"go-gin-event-commerce/internal/repository"
	"go-gin-event-commerce/internal/service"
	"go-gin-event-commerce/internal/worker"
	"go-gin-event-commerce/pkg/logger"
	"go-gin-event-commerce/pkg/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const memoryQueueBuffer = 1000

func main() {
	cfg := config.LoadConfig()
	if cfg.LogLevel != "" {
		logger.SetLevel(cfg.LogLevel)
	}
	defer logger.Sync()
	log := logger.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := telemetry.Init(ctx, &cfg.Telemetry); err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal("Failed to apply schema", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	defer rdb.Close()

	orderQueue, err := newOrderQueue(ctx, cfg, rdb)
	if err != nil {
		log.Fatal("Failed to initialize order queue", zap.Error(err))
	}

	orderEvents, err := publisher.New(ctx, &cfg.Kafka)
	if err != nil {
		log.Fatal("Failed to initialize order event publisher", zap.Error(err))
	}
	defer orderEvents.Close()

	// repositories
	eventRepository := repository.NewCachedEventRepository(repository.NewEventRepository(pool), rdb)
	orderRepository := repository.NewOrderRepository(pool)

	// cache
	inventoryManager := cache.NewInventoryManager(rdb)
	references := cache.NewReferenceStore(rdb, cache.DefaultReferenceTTL)

	// services
	eventService := service.NewEventService(pool, eventRepository, inventoryManager, nil)
	catalogService := service.NewCatalogService(
		eventRepository,
		jsonld.NewGenerator(cfg.Site),
		currency.NewHTTPConverter(&cfg.Currency, rdb),
		nil,
	)
	orderService := service.NewOrderService(
		pool,
		orderRepository,
		eventRepository,
		inventoryManager,
		references,
		orderQueue,
		orderEvents,
		cfg.Purchase,
		nil,
	)

	// order worker
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	orderWorker := worker.NewOrderWorker(orderService, orderQueue, cfg.Purchase.OrderWorkerCount)
	if err := orderWorker.Start(workerCtx); err != nil {
		log.Fatal("Failed to start order worker", zap.Error(err))
	}

	router := newRouter(cfg, eventService, catalogService, orderService)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// 先停止接單再排空 worker，已保留庫存的訂單留在 Redis stream 等下次啟動
	cancelWorker()
	orderWorker.Wait()

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush traces", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

func newOrderQueue(ctx context.Context, cfg *config.Config, rdb *redis.Client) (queue.OrderQueue, error) {
	if cfg.Purchase.QueueDriver != "redis" {
		return queue.NewOrderQueue(memoryQueueBuffer), nil
	}
	hostname, _ := os.Hostname()
	return queue.NewRedisStreamOrderQueue(ctx, rdb, hostname, queue.RedisStreamOrderQueueConfig{
		ClaimMinIdleTime: cfg.Purchase.QueueClaimIdleTime,
	})
}

func newRouter(
	cfg *config.Config,
	eventService service.EventService,
	catalogService service.CatalogService,
	orderService service.OrderService,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Tracing(), middleware.RequestLogger())
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	api := router.Group("/api/v1")
	orderHandler := handler.NewOrderHandler(orderService)
	handler.NewCatalogHandler(catalogService).RegisterRoutes(api)
	handler.NewSEOHandler(catalogService).RegisterRoutes(api)
	orderHandler.RegisterRoutes(api)

	admin := api.Group("/admin",
		middleware.JWTAuth(cfg.Auth.JWTSecret),
		middleware.RequireRole(cfg.Auth.AdminRole),
	)
	handler.NewEventHandler(eventService).RegisterRoutes(admin)
	orderHandler.RegisterAdminRoutes(admin)

	return router
}
