package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pgx-risk-server/internal/api"
	"github.com/pgx-risk-server/internal/config"
	"github.com/pgx-risk-server/internal/database"
	"github.com/pgx-risk-server/internal/domain"
	"github.com/pgx-risk-server/internal/feedback"
	"github.com/pgx-risk-server/internal/repository"
	"github.com/pgx-risk-server/internal/service"
	"github.com/pgx-risk-server/pkg/external"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting pharmacogenomic risk server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pipeline stages
	extractor := service.NewExtractorService(logger)
	resolver := service.NewDiplotypeResolverService(logger)
	classifier := service.NewPhenotypeClassifierService(logger)
	riskEngine := service.NewRiskEngineService(logger)

	explainer := buildExplainer(cfg, logger)
	pipeline := service.NewPipelineService(logger, extractor, resolver, classifier, riskEngine, explainer)

	// Optional report persistence
	var reportStore domain.ReportStore
	if cfg.Database.Enabled {
		if err := runMigrations(configManager, cfg, logger); err != nil {
			logger.WithError(err).Fatal("Database migrations failed")
		}

		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		reportStore = repository.NewReportRepository(db.Pool, logger)
		defer reportStore.Close()
	} else {
		logger.Info("Report persistence disabled; reports are returned but not stored")
	}

	// Optional clinician feedback store
	var feedbackStore feedback.Store
	if cfg.Feedback.Enabled {
		feedbackStore, err = buildFeedbackStore(cfg.Feedback)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open feedback store")
		}
		defer feedbackStore.Close()
	}

	server := api.NewServer(configManager, logger, pipeline, riskEngine, extractor, reportStore, feedbackStore)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

// newLogger builds the process logger from configuration.
func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}

	return logger
}

// buildExplainer assembles the explanation stack: external client behind a
// circuit breaker with Redis and in-memory caching, degrading to static
// templates. When the external service is disabled only the static tier runs.
func buildExplainer(cfg *domain.Config, logger *logrus.Logger) domain.ExplanationProvider {
	if !cfg.Explainer.Enabled {
		logger.Info("External explanation service disabled; using static templates")
		return external.NewStaticExplainer()
	}

	client := external.NewExplainerClient(external.ExplainerConfig{
		BaseURL:   cfg.Explainer.BaseURL,
		APIKey:    cfg.Explainer.APIKey,
		Model:     cfg.Explainer.Model,
		Timeout:   cfg.Explainer.Timeout,
		RateLimit: cfg.Explainer.RateLimit,
	})

	var cache *external.ExplanationCache
	if cfg.Cache.Enabled {
		var err error
		cache, err = external.NewExplanationCache(external.CacheConfig{
			RedisURL:    cfg.Cache.RedisURL,
			DefaultTTL:  cfg.Cache.DefaultTTL,
			MaxRetries:  cfg.Cache.MaxRetries,
			PoolSize:    cfg.Cache.PoolSize,
			PoolTimeout: cfg.Cache.PoolTimeout,
		})
		if err != nil {
			logger.WithError(err).Warn("Redis cache unavailable; explanations are uncached")
			cache = nil
		}
	}

	resilient := external.NewResilientExplainer(client, cache, logger)

	resolver, err := service.NewCachedExplanationResolver(resilient, cfg.Cache.MemorySize, cfg.Cache.MemoryTTL, logger)
	if err != nil {
		logger.WithError(err).Warn("Memory cache unavailable; using resilient explainer directly")
		return resilient
	}
	return resolver
}

// buildFeedbackStore opens the configured feedback backend.
func buildFeedbackStore(cfg domain.FeedbackConfig) (feedback.Store, error) {
	if cfg.Backend == "postgres" {
		return feedback.NewPostgresStoreFromURL(cfg.PostgresURL)
	}
	return feedback.NewSQLiteStore(cfg.SQLitePath)
}

// runMigrations applies pending schema migrations before the pool opens.
func runMigrations(configManager *config.Manager, cfg *domain.Config, logger *logrus.Logger) error {
	runner, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
	if err != nil {
		return err
	}
	defer runner.Close()
	return runner.Up()
}
