package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/smregler-server/internal/api"
	"github.com/smregler-server/internal/config"
	"github.com/smregler-server/internal/diagnosis"
	"github.com/smregler-server/internal/domain"
	"github.com/smregler-server/internal/metrics"
	"github.com/smregler-server/internal/service"
)

func main() {
	// A missing .env file is fine, the environment may already be set
	_ = godotenv.Load()

	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging)
	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
		"version":     api.Version,
	}).Info("Starting sykmelding rule server")

	registry, err := loadRegistry(cfg.Diagnosis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load diagnosis codes")
	}

	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache, closeCache := buildCache(ctx, cfg.Cache, m, logger)
	defer closeCache()

	validator := service.NewValidator(registry, cache, m, logger)
	state := api.NewApplicationState()
	server := api.NewServer(configManager, validator, registry, m, state, logger)

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		closeCache()
		os.Exit(1)
	}

	logger.Info("Server stopped")
}

func loadRegistry(cfg domain.DiagnosisConfig) (*diagnosis.Registry, error) {
	if cfg.TablePath != "" {
		return diagnosis.LoadFile(cfg.TablePath)
	}
	return diagnosis.LoadDefault()
}

// buildCache returns nil when caching is disabled. Redis is optional: when it cannot
// be reached the service keeps running on the in-memory tier alone.
func buildCache(ctx context.Context, cfg domain.CacheConfig, m *metrics.Metrics, logger *logrus.Logger) (service.ResultCache, func()) {
	noop := func() {}
	if !cfg.Enabled {
		logger.Info("Validation result cache disabled")
		return nil, noop
	}

	tiers := []service.ResultCache{service.NewMemoryResultCache(cfg.MaxItems, cfg.DefaultTTL)}
	closeFn := noop

	if cfg.RedisURL != "" {
		redisCache, err := service.NewRedisResultCache(ctx, cfg)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, using in-memory cache only")
		} else {
			tiers = append(tiers, redisCache)
			closeFn = func() {
				if err := redisCache.Close(); err != nil {
					logger.WithError(err).Warn("Failed to close Redis connection")
				}
			}
		}
	}

	return service.NewTieredResultCache(logger, m, tiers...), closeFn
}
