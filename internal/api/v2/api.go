// Package api implements the FriendsWall JSON API and event stream under /api/v2.
package api

import (
	"context"
	"crypto/rand"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/friendswall/friendswall-go/internal/conf"
	"github.com/friendswall/friendswall-go/internal/datastore"
	"github.com/friendswall/friendswall-go/internal/errors"
	"github.com/friendswall/friendswall-go/internal/informer"
	"github.com/friendswall/friendswall-go/internal/logger"
	"github.com/friendswall/friendswall-go/internal/notify"
	"github.com/friendswall/friendswall-go/internal/observability"
)

// FriendRequestPublisher fans out new friend requests; *mqtt.Publisher implements it.
type FriendRequestPublisher interface {
	PublishFriendRequest(ctx context.Context, toID uint, req datastore.FriendRequest) error
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	DS       datastore.Interface
	Settings *conf.Settings

	baseLogger logger.Logger
	logger     logger.Logger
	metrics    *observability.Metrics
	sessions   *SessionStore
	userCache  *cache.Cache // user id -> informer.UserSnapshot
	registry   *informer.Registry
	publisher  FriendRequestPublisher
	notifier   notify.FeedbackNotifier
	startTime  time.Time

	// Cleanup related fields
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithMetrics sets the shared metrics instance.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithPublisher sets the friend-request publisher.
func WithPublisher(p FriendRequestPublisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithFeedbackNotifier sets the operator notifier for new feedback.
func WithFeedbackNotifier(n notify.FeedbackNotifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithRegistry replaces the stream registry.
func WithRegistry(r *informer.Registry) Option {
	return func(c *Controller) { c.registry = r }
}

// ipExtractor prioritizes CF-Connecting-IP, then X-Forwarded-For, then X-Real-IP.
// These headers can be spoofed unless a trusted proxy sets them.
func ipExtractor(req *http.Request) string {
	if cfIP := req.Header.Get("CF-Connecting-IP"); cfIP != "" {
		if ip := net.ParseIP(cfIP); ip != nil {
			return ip.String()
		}
	}

	if xff := req.Header.Get(echo.HeaderXForwardedFor); xff != "" {
		for part := range strings.SplitSeq(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip.String()
			}
		}
	}

	if xri := req.Header.Get(echo.HeaderXRealIP); xri != "" {
		if ip := net.ParseIP(xri); ip != nil {
			return ip.String()
		}
	}

	remoteAddr, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return remoteAddr
}

// New creates a new API controller and registers its routes on e.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings, log logger.Logger, opts ...Option) (*Controller, error) {
	if ds == nil {
		return nil, errors.Newf("datastore is required").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sessions, err := NewSessionStore(&settings.Security)
	if err != nil {
		return nil, err
	}

	e.IPExtractor = ipExtractor

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		Echo:       e,
		DS:         ds,
		Settings:   settings,
		baseLogger: log,
		logger:     log.Module("api"),
		sessions:   sessions,
		userCache:  cache.New(settings.WebServer.UserCacheTTL, cache.NoExpiration),
		registry:   informer.NewRegistry(settings.WebServer.SSE.MaxStreams),
		startTime:  time.Now(),
		ctx:        ctx,
		cancel:     cancel,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.Group = e.Group("/api/v2")
	c.initRoutes()
	c.startCacheJanitor()

	c.logger.Info("API v2 initialized",
		logger.Int("max_streams", settings.WebServer.SSE.MaxStreams),
		logger.Bool("mqtt", c.publisher != nil),
		logger.Bool("feedback_notify", c.notifier != nil))

	return c, nil
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.initAuthRoutes()
	c.initUserRoutes()
	c.initPostRoutes()
	c.initFriendRoutes()
	c.initFeedbackRoutes()
	c.initSSERoutes()
}

// startCacheJanitor evicts expired user snapshots until Shutdown.
// The cache is created without its own janitor so that no goroutine outlives the controller.
func (c *Controller) startCacheJanitor() {
	interval := c.Settings.WebServer.UserCacheTTL
	if interval <= 0 {
		return
	}

	c.wg.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.ctx.Done():
				return
			case <-ticker.C:
				c.userCache.DeleteExpired()
			}
		}
	})
}

// HealthCheck handles the API health check endpoint
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)
	response := map[string]any{
		"status":         "healthy",
		"timestamp":      time.Now().Format(time.RFC3339),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"streams":        c.registry.Count(),
	}

	if err := c.DS.Ping(ctx.Request().Context()); err != nil {
		response["status"] = "degraded"
		response["database_status"] = "disconnected"
		return ctx.JSON(http.StatusServiceUnavailable, response)
	}
	response["database_status"] = "connected"
	return ctx.JSON(http.StatusOK, response)
}

// Registry returns the stream registry.
func (c *Controller) Registry() *informer.Registry {
	return c.registry
}

// Shutdown performs cleanup of all resources used by the API controller
// This should be called when the application is shutting down
func (c *Controller) Shutdown() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.userCache.Flush()
	c.logger.Debug("API controller shut down")
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil && code < http.StatusInternalServerError {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates a short identifier for error tracking using cryptographic randomness
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError logs err and writes an ErrorResponse. Server errors never expose err to the client.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", errorResp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
		logger.Error(err),
	}
	if code >= http.StatusInternalServerError {
		c.logger.Error("API error", fields...)
	} else {
		c.logger.Debug("API error", fields...)
	}

	return ctx.JSON(code, errorResp)
}

// HandleStoreError maps a datastore error onto a status code.
// Validation, not-found, conflict and authentication errors carry user-facing messages.
func (c *Controller) HandleStoreError(ctx echo.Context, err error, message string) error {
	switch {
	case errors.IsValidation(err):
		return c.HandleError(ctx, err, message, http.StatusBadRequest)
	case errors.IsNotFound(err):
		return c.HandleError(ctx, err, message, http.StatusNotFound)
	case errors.IsConflict(err):
		return c.HandleError(ctx, err, message, http.StatusConflict)
	case errors.IsCategory(err, errors.CategoryAuthentication):
		return c.HandleError(ctx, err, message, http.StatusUnauthorized)
	default:
		return c.HandleError(ctx, err, message, http.StatusInternalServerError)
	}
}
