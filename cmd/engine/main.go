package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-pricing-service/config"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing/listener"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing/repository"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing/resolver"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing/rulecache"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing/usecase"
	"github.com/fekuna/omnipos-pricing-service/pkg/broker"
	"github.com/fekuna/omnipos-pricing-service/pkg/cache"
	"github.com/fekuna/omnipos-pricing-service/pkg/db/postgres"
	"github.com/fekuna/omnipos-pricing-service/pkg/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// The engine is embedded by calling services; this binary wires it against
// the real rule store, keeps its caches coherent via the rule-change topic,
// and reports engine health on startup.
func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             "info",
		DisableCaller:     false,
		DisableStacktrace: false,
	}

	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database (rule store)
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL rule store", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Redis (last-known-good rule snapshots)
	var snapshot pricing.RuleSnapshot
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Redis (rule snapshot fallback disabled)", zap.Error(err))
	} else {
		defer redisClient.Close()
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		snapshot = rulecache.NewSnapshot(redisClient, cfg.Engine.RuleSnapshotTTL, appLogger)
	}

	// 5. Initialize the pricing engine
	repo := repository.NewPGRepository(db)
	engine := usecase.NewPricingUseCase(repo, snapshot, usecase.Config{
		CacheTTL:             cfg.Engine.CacheTTL,
		CacheMaxEntries:      cfg.Engine.CacheMaxEntries,
		MaxBulkItems:         cfg.Engine.MaxBulkItems,
		BulkWorkers:          cfg.Engine.BulkWorkers,
		RuleEvalTimeout:      cfg.Engine.RuleEvalTimeout,
		SingleCalcThreshold:  cfg.Engine.SingleCalcThreshold,
		BulkCalcThreshold:    cfg.Engine.BulkCalcThreshold,
		CacheLookupThreshold: cfg.Engine.CacheLookupThreshold,
		TieBreakPolicy:       resolver.TieBreakPolicy(cfg.Engine.TieBreakPolicy),
	}, appLogger)

	// 6. Initialize Kafka consumer for rule-change invalidation
	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()
	appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))

	ruleListener := listener.NewRuleListener(kafkaConsumer, engine, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ruleListener.Start(ctx)

	// 7. Engine self-check
	report, err := engine.ValidateEngine(ctx)
	if err != nil {
		appLogger.Error("Engine validation failed", zap.Error(err))
	} else {
		appLogger.Info("Engine validated",
			zap.String("status", report.Status),
			zap.Strings("issues", report.Issues),
		)
	}

	appLogger.Info("Pricing engine ready")

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down pricing engine...")
	cancel()
	appLogger.Info("Engine stopped")
}
