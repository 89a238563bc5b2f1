package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/friendswall/friendswall-go/internal/errors"
	"github.com/friendswall/friendswall-go/internal/informer"
	"github.com/friendswall/friendswall-go/internal/logger"
	"github.com/friendswall/friendswall-go/internal/observability/metrics"
)

// StreamStatus is the body of GET /events/status.
type StreamStatus struct {
	ActiveStreams int                    `json:"active_streams"`
	MaxStreams    int                    `json:"max_streams"`
	Sessions      []informer.SessionInfo `json:"sessions,omitempty"`
}

// initSSERoutes registers the event stream endpoints
func (c *Controller) initSSERoutes() {
	var mws []echo.MiddlewareFunc
	if limiter := c.streamRateLimiter(); limiter != nil {
		mws = append(mws, limiter)
	}

	c.Group.GET("/events/stream", c.StreamEvents, mws...)
	c.Group.GET("/events/status", c.GetStreamStatus)
}

// streamRateLimiter limits new stream connections per client IP.
func (c *Controller) streamRateLimiter() echo.MiddlewareFunc {
	cfg := c.Settings.WebServer.SSE
	if cfg.RateLimit <= 0 {
		return nil
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.RateLimit),
				Burst:     cfg.Burst,
				ExpiresIn: 3 * time.Minute,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, err error) error {
			return ctx.JSON(http.StatusForbidden, map[string]string{
				"error": "Unable to identify client",
			})
		},
		DenyHandler: func(ctx echo.Context, identifier string, err error) error {
			c.recordRejectedStream()
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Too many event stream connection attempts, please wait before trying again",
			})
		},
	})
}

// StreamEvents handles GET /api/v2/events/stream. It streams the userInfo and
// requestInfo channels for the logged-in user until the client disconnects
// or the stream reaches its maximum duration.
func (c *Controller) StreamEvents(ctx echo.Context) error {
	cfg := c.Settings.WebServer.SSE
	reqCtx := ctx.Request().Context()

	session := c.newStreamSession(ctx)
	if err := c.registry.Add(session); err != nil {
		c.recordRejectedStream()
		if errors.Is(err, informer.ErrTooManyStreams) {
			return c.HandleError(ctx, err, "Too many active event streams, please try again later", http.StatusServiceUnavailable)
		}
		return c.HandleError(ctx, err, "Failed to open event stream", http.StatusInternalServerError)
	}
	defer c.registry.Remove(session.ID())

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	w := newSSEWriter(res, c.logger)
	if err := w.WriteRetry(cfg.RetryInterval); err != nil {
		return nil
	}

	c.logger.Info("event stream opened",
		logger.String("session_id", session.ID()),
		logger.Uint64("user_id", uint64(session.UserID())),
		logger.String("ip", ctx.RealIP()))

	if c.metrics != nil {
		c.metrics.HTTP.SSEConnectionStarted()
	}

	// Streams end with the request or when the controller shuts down.
	runCtx, cancel := context.WithCancel(reqCtx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	err := session.Run(runCtx, informer.StreamConfig{
		PollInterval: cfg.PollInterval,
		KeepAlive:    cfg.KeepAlive,
		MaxDuration:  cfg.MaxDuration,
	}, w)

	lifetime := time.Since(session.StartedAt())
	reason := metrics.SSECloseReasonClosed
	switch {
	case err != nil:
		reason = metrics.SSECloseReasonError
		c.logger.Warn("event stream failed",
			logger.String("session_id", session.ID()),
			logger.Error(err))
	case cfg.MaxDuration > 0 && lifetime >= cfg.MaxDuration:
		reason = metrics.SSECloseReasonExpired
	}

	if c.metrics != nil {
		c.metrics.HTTP.SSEConnectionClosed(lifetime.Seconds(), reason)
	}
	c.logger.Info("event stream closed",
		logger.String("session_id", session.ID()),
		logger.String("reason", reason),
		logger.Duration("lifetime", lifetime))

	// The response is already committed; errors are reported through logs and metrics.
	return nil
}

// newStreamSession builds a session with the profile and friend-request informers
// for the user bound to the request's session cookie.
func (c *Controller) newStreamSession(ctx echo.Context) *informer.Session {
	userID, loggedIn := c.sessions.UserID(ctx.Request())

	opts := []informer.Option{
		informer.WithLogger(c.baseLogger.Module("informer")),
		informer.WithUserID(userID),
	}
	if c.metrics != nil {
		opts = append(opts, informer.WithObserver(c.metrics.Informer))
	}
	session := informer.NewSession(opts...)

	profile := informer.NewProfileInformer()
	requests := informer.NewFriendRequestInformer(c.DS, c.baseLogger.Module("informer"))

	switch {
	case !loggedIn:
		profile.SetError(msgNotLoggedIn)
	default:
		snap, err := c.userSnapshot(ctx.Request().Context(), userID)
		switch {
		case err == nil:
			profile.SetUser(snap)
			requests.SetUser(snap)
		case errors.IsNotFound(err):
			profile.SetError(err.Error())
		default:
			c.logger.Warn("failed to resolve stream user", logger.Error(err))
			profile.SetError(informer.GenericError)
		}
	}

	// Registration on a fresh session cannot collide.
	_ = session.Register(informer.ChannelUserInfo, profile)
	_ = session.Register(informer.ChannelRequestInfo, requests)
	return session
}

func (c *Controller) recordRejectedStream() {
	if c.metrics != nil {
		c.metrics.HTTP.SSEConnectionRejected()
	}
}

// GetStreamStatus handles GET /api/v2/events/status
func (c *Controller) GetStreamStatus(ctx echo.Context) error {
	status := StreamStatus{
		ActiveStreams: c.registry.Count(),
		MaxStreams:    c.Settings.WebServer.SSE.MaxStreams,
	}
	if c.Settings.WebServer.Debug {
		status.Sessions = c.registry.Snapshot()
	}
	return ctx.JSON(http.StatusOK, status)
}
