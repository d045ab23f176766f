// Package api exposes the drug-risk pipeline over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pgx-risk-server/internal/domain"
	"github.com/pgx-risk-server/internal/feedback"
	"github.com/pgx-risk-server/internal/middleware"
	"github.com/pgx-risk-server/internal/service"
)

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	logger        *logrus.Logger
	pipeline      *service.PipelineService
	riskEngine    domain.RiskAssessor
	extractor     domain.VariantExtractor
	reports       domain.ReportStore // nil when persistence is disabled
	feedbackStore feedback.Store     // nil when feedback capture is disabled
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance. reports and feedbackStore
// are optional; the corresponding routes return 503 when absent.
func NewServer(
	configManager domain.ConfigManager,
	logger *logrus.Logger,
	pipeline *service.PipelineService,
	riskEngine domain.RiskAssessor,
	extractor domain.VariantExtractor,
	reports domain.ReportStore,
	feedbackStore feedback.Store,
) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.MaxBodySize(cfg.Server.MaxUploadBytes))

	server := &Server{
		configManager: configManager,
		logger:        logger,
		pipeline:      pipeline,
		riskEngine:    riskEngine,
		extractor:     extractor,
		reports:       reports,
		feedbackStore: feedbackStore,
		router:        router,
	}

	server.setupRoutes()

	return server
}

// Start starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/analyze", s.handleAnalyze)
		v1.GET("/genes", s.handleGenes)
		v1.GET("/drugs", s.handleDrugs)
		v1.GET("/reports/:id", s.handleGetReport)
		v1.GET("/patients/:id/reports", s.handleListPatientReports)
		v1.POST("/feedback", s.handleCreateFeedback)
		v1.GET("/feedback", s.handleListFeedback)
	}
}
