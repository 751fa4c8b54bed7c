package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/smregler-server/internal/diagnosis"
	"github.com/smregler-server/internal/domain"
	"github.com/smregler-server/internal/metrics"
	"github.com/smregler-server/internal/middleware"
	"github.com/smregler-server/internal/rules"
)

// Version is reported by the health endpoint. Overridden at link time.
var Version = "1.0.0"

// RuleValidator validates certificates and describes the chains it runs.
type RuleValidator interface {
	domain.CertificateValidator
	Catalogs() []rules.Catalog
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	validator     RuleValidator
	registry      *diagnosis.Registry
	metrics       *metrics.Metrics
	state         *ApplicationState
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance. m may be nil.
func NewServer(
	configManager domain.ConfigManager,
	validator RuleValidator,
	registry *diagnosis.Registry,
	m *metrics.Metrics,
	state *ApplicationState,
	logger *logrus.Logger,
) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.CorrelationID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.AuditLogger(logger))
	router.Use(m.Middleware())

	server := &Server{
		configManager: configManager,
		validator:     validator,
		registry:      registry,
		metrics:       m,
		state:         state,
		logger:        logger,
		router:        router,
	}

	server.setupRoutes()

	return server
}

// Handler returns the routed gin engine.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then reports not-ready for the shutdown grace
// period and drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	cfg := s.configManager.GetServerConfig()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.state.SetAlive(true)
	s.state.SetReady(true)
	s.logger.WithField("addr", listener.Addr().String()).Info("HTTP server started")

	select {
	case err := <-errCh:
		s.state.SetReady(false)
		s.state.SetAlive(false)
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.state.SetReady(false)
	s.logger.WithField("grace", cfg.ShutdownGrace).Info("Shutdown requested, reporting not ready")
	if cfg.ShutdownGrace > 0 {
		time.Sleep(cfg.ShutdownGrace)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	s.state.SetAlive(false)
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/is_alive", s.handleIsAlive)
	s.router.GET("/is_ready", s.handleIsReady)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	serverCfg := s.configManager.GetServerConfig()
	v1 := s.router.Group("/v1")
	{
		v1.POST("/rules/validate",
			middleware.RateLimit(*s.configManager.GetRateLimitConfig()),
			middleware.RequestTimeout(serverCfg.RequestTimeout),
			s.handleValidate,
		)
		v1.GET("/rules", s.handleListRules)
		v1.GET("/rules/:chain", s.handleGetChain)
		v1.GET("/diagnoses/:system/:code", s.handleGetDiagnosis)
	}
}
