package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/storefront-service/cache"
	"github.com/yashrajoria/storefront-service/common/auth"
	apperrors "github.com/yashrajoria/storefront-service/common/errors"
	"github.com/yashrajoria/storefront-service/common/logger"
	commonmw "github.com/yashrajoria/storefront-service/common/middleware"
	"github.com/yashrajoria/storefront-service/controllers"
	"github.com/yashrajoria/storefront-service/database"
	"github.com/yashrajoria/storefront-service/events"
	"github.com/yashrajoria/storefront-service/middleware"
	aws_pkg "github.com/yashrajoria/storefront-service/pkg/aws"
	"github.com/yashrajoria/storefront-service/repository"
	"github.com/yashrajoria/storefront-service/routes"
	"github.com/yashrajoria/storefront-service/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Config load failed:", err)
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var awsCfg *sdkaws.Config
	if cfg.UsesAWS() {
		loaded, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "AWS config load failed, AWS integrations disabled:", err)
		} else {
			awsCfg = &loaded
		}
	}

	var sink io.Writer
	if awsCfg != nil && cfg.CloudWatchEnabled && cfg.CloudWatchLogGroup != "" {
		if w, err := aws_pkg.NewCloudWatchLogsWriter(ctx, *awsCfg, cfg.CloudWatchLogGroup, serviceName); err == nil {
			sink = w
		} else {
			fmt.Fprintln(os.Stderr, "CloudWatch logs writer init failed (non-fatal):", err)
		}
	}

	log, err := logger.New(cfg.Env, sink)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Storage ---
	var store repository.Store
	var db *gorm.DB
	switch cfg.Driver {
	case DriverMemory:
		log.Warn("Using in-memory store, data will not survive a restart")
		store = repository.NewMemoryStore()
	default:
		db, err = database.Connect(cfg.Postgres, log)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		store = repository.NewGormStore(db)
	}

	// --- Optional ports; left as untyped nil when not configured ---
	var (
		catalogCache services.CatalogCache
		idem         services.IdempotencyStore
		publisher    services.EventPublisher
		recorder     services.MetricsRecorder
		signer       services.ImageSigner
		httpMetrics  commonmw.HTTPMetrics
		redisClient  *redis.Client
		kafkaPub     *events.KafkaPublisher
	)

	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, running without catalog cache and idempotency", zap.Error(err))
		} else {
			catalogCache = cache.NewCatalogCache(redisClient, cfg.CatalogCacheTTL)
			idem = cache.NewIdempotencyStore(redisClient, cache.DefaultIdempotencyTTL)
		}
	}

	var sinks []events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.OrderEventsTopic)
		sinks = append(sinks, kafkaPub)
	}
	if awsCfg != nil && cfg.OrderSNSTopicArn != "" {
		sinks = append(sinks, events.NewSNSPublisher(aws_pkg.NewSNSClient(*awsCfg), cfg.OrderSNSTopicArn))
	}
	if len(sinks) > 0 {
		publisher = events.NewMultiPublisher(sinks...)
	}

	if awsCfg != nil && cfg.ImagesBucket != "" {
		signer = aws_pkg.NewImagePresigner(*awsCfg, cfg.ImagesBucket, cfg.ImageURLTTL)
	}

	if awsCfg != nil && cfg.CloudWatchEnabled {
		metricsClient := aws_pkg.NewMetricsClient(*awsCfg, cfg.CloudWatchNamespace, true)
		recorder = metricsClient
		httpMetrics = metricsClient
	}

	log.Info("Integrations configured",
		zap.String("driver", cfg.Driver),
		zap.Bool("cache", catalogCache != nil),
		zap.Int("event_sinks", len(sinks)),
		zap.Bool("image_signing", signer != nil),
		zap.Bool("metrics", recorder != nil),
	)

	// --- Service wiring ---
	catalogService := services.NewCatalogService(store, catalogCache, signer, cfg.NewAdditionsWindow, log)
	cartService := services.NewCartService(store, log)
	checkoutService := services.NewCheckoutService(store, publisher, catalogCache, idem, recorder, log)
	orderService := services.NewOrderService(store)

	handlers := routes.Controllers{
		Catalog:  controllers.NewCatalogController(catalogService),
		Cart:     controllers.NewCartController(cartService),
		Checkout: controllers.NewCheckoutController(checkoutService),
		Orders:   controllers.NewOrderController(orderService),
		Admin:    controllers.NewAdminController(catalogService),
	}

	validator := auth.NewTokenValidator(cfg.JWTSecret)
	switch {
	case !validator.Enabled():
		log.Warn("JWT_SECRET not set, only gateway identity headers are accepted")
	case cfg.TrustGatewayHeaders:
		log.Info("Trusting gateway identity headers alongside bearer tokens")
	}

	// --- HTTP router ---
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(commonmw.RequestID())
	r.Use(commonmw.RequestLogger(log))
	r.Use(commonmw.SecurityHeaders())
	r.Use(commonmw.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(commonmw.RateLimitMiddleware(ctx, cfg.RateLimitPerMinute))
	r.Use(commonmw.MetricsMiddleware(httpMetrics, serviceName))
	r.Use(commonmw.RequestTimeout(30 * time.Second))
	r.Use(apperrors.ErrorMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	routes.RegisterStorefrontRoutes(r, handlers, middleware.AuthMiddleware(validator, cfg.TrustGatewayHeaders))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Storefront Service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Storefront Service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()

	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			log.Warn("Failed to close Kafka writer", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
	if err := database.Close(db); err != nil {
		log.Warn("Failed to close database", zap.Error(err))
	}

	log.Info("Storefront Service stopped gracefully")
}
