package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/friendswall/friendswall-go/internal/api/middleware"
	v2 "github.com/friendswall/friendswall-go/internal/api/v2"
	"github.com/friendswall/friendswall-go/internal/buildinfo"
	"github.com/friendswall/friendswall-go/internal/conf"
	"github.com/friendswall/friendswall-go/internal/datastore"
	"github.com/friendswall/friendswall-go/internal/errors"
	"github.com/friendswall/friendswall-go/internal/logger"
	"github.com/friendswall/friendswall-go/internal/notify"
	"github.com/friendswall/friendswall-go/internal/observability"
)

// Server is the main HTTP server for FriendsWall.
// It manages the Echo framework instance, middleware, and all HTTP routes.
type Server struct {
	// Core components
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	logger   logger.Logger

	// Dependencies
	dataStore datastore.Interface
	metrics   *observability.Metrics
	publisher v2.FriendRequestPublisher
	notifier  notify.FeedbackNotifier
	buildInfo *buildinfo.Context

	// API controller
	apiController *v2.Controller

	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the application logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithDataStore sets the datastore for the server.
func WithDataStore(ds datastore.Interface) ServerOption {
	return func(s *Server) {
		s.dataStore = ds
	}
}

// WithMetrics sets the observability metrics for the server.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithPublisher sets the MQTT friend-request publisher.
func WithPublisher(p v2.FriendRequestPublisher) ServerOption {
	return func(s *Server) {
		s.publisher = p
	}
}

// WithFeedbackNotifier sets the operator notifier for new feedback.
func WithFeedbackNotifier(n notify.FeedbackNotifier) ServerOption {
	return func(s *Server) {
		s.notifier = n
	}
}

// WithBuildInfo sets the version reported by the health endpoint.
func WithBuildInfo(b *buildinfo.Context) ServerOption {
	return func(s *Server) {
		s.buildInfo = b
	}
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, errors.New(fmt.Errorf("invalid server configuration: %w", err)).
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	s := &Server{
		config:    config,
		settings:  settings,
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.NewConsoleLogger("friendswall", config.LogLevel)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Logger = logger.NewEchoLoggerAdapter(s.logger.Module("echo"))

	// No write timeout: event streams hold the response open.
	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}

	s.logger.Module("server").Info("HTTP server initialized",
		logger.String("listen", config.Listen),
		logger.Bool("metrics", config.MetricsEnabled),
		logger.Bool("debug", config.Debug))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())

	var recorder mw.RequestRecorder
	if s.metrics != nil {
		recorder = s.metrics.HTTP
	}
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.logger.Module("http"), recorder, s.skipRequestLog))

	policy := mw.HeaderPolicy{AllowedOrigins: s.config.AllowedOrigins, HSTS: s.config.HSTS}

	s.echo.Use(mw.NewCORS(policy))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders(policy))
}

// skipRequestLog keeps scrapes and probes out of the request log.
func (s *Server) skipRequestLog(c echo.Context) bool {
	path := c.Request().URL.Path
	return path == "/health" || (s.config.MetricsEnabled && path == s.config.MetricsPath)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() error {
	// Health check endpoint at root level
	s.echo.GET("/health", s.healthCheck)

	if s.config.MetricsEnabled && s.metrics != nil {
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(s.metrics.Handler()))
	}

	var apiOpts []v2.Option
	if s.metrics != nil {
		apiOpts = append(apiOpts, v2.WithMetrics(s.metrics))
	}
	if s.publisher != nil {
		apiOpts = append(apiOpts, v2.WithPublisher(s.publisher))
	}
	if s.notifier != nil {
		apiOpts = append(apiOpts, v2.WithFeedbackNotifier(s.notifier))
	}

	apiController, err := v2.New(s.echo, s.dataStore, s.settings, s.logger, apiOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize API v2: %w", err)
	}
	s.apiController = apiController

	return nil
}

// healthCheck handles the server health check endpoint.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)

	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        s.buildInfo.GetVersion(),
		"build_date":     s.buildInfo.GetBuildDate(),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// startBlocking serves HTTP requests until the server is shut down.
func (s *Server) startBlocking() error {
	s.logger.Module("server").Info("starting HTTP server", logger.String("listen", s.config.Listen))

	if err := s.echo.Start(s.config.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.New(fmt.Errorf("server error: %w", err)).
			Component("api").
			Category(errors.CategoryNetwork).
			Context("listen", s.config.Listen).
			Build()
	}
	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.startBlocking()
	}()

	select {
	case err := <-errCh:
		s.apiController.Shutdown()
		return err
	case <-ctx.Done():
		s.logger.Module("server").Info("shutdown signal received, initiating graceful shutdown")
		return s.Shutdown()
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	// Ends open event streams so that echo.Shutdown does not wait for them.
	if s.apiController != nil {
		s.apiController.Shutdown()
	}

	if err := s.echo.Shutdown(ctx); err != nil {
		s.logger.Module("server").Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.logger.Module("server").Info("server shutdown complete")
	return nil
}

// APIController returns the v2 API controller.
func (s *Server) APIController() *v2.Controller {
	return s.apiController
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
