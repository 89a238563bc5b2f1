// Package middleware provides HTTP middleware components for the FriendsWall server.
package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/friendswall/friendswall-go/internal/logger"
)

// RequestRecorder receives one observation per completed request.
// metrics.HTTPMetrics implements it.
type RequestRecorder interface {
	RecordHTTPRequest(method, path string, statusCode int, duration float64)
}

// NewRequestLogger creates a request logging middleware using RequestLoggerWithConfig.
func NewRequestLogger(log logger.Logger, recorder RequestRecorder) echo.MiddlewareFunc {
	return NewRequestLoggerWithSkipper(log, recorder, nil)
}

// NewRequestLoggerWithSkipper creates a request logging middleware with a custom skipper.
// Requests are recorded under their route pattern to keep metric cardinality bounded.
func NewRequestLoggerWithSkipper(log logger.Logger, recorder RequestRecorder, skipper middleware.Skipper) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper:      skipper,
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogError:     true,
		LogRoutePath: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if recorder != nil {
				recorder.RecordHTTPRequest(v.Method, routeLabel(v.RoutePath), v.Status, v.Latency.Seconds())
			}
			if log == nil {
				return nil
			}

			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.String("ip", v.RemoteIP),
				logger.Int64("latency_ms", v.Latency.Milliseconds()),
			}
			if v.Error != nil {
				fields = append(fields, logger.Error(v.Error))
			}

			log.WithContext(c.Request().Context()).Info("request", fields...)
			return nil
		},
	})
}

func routeLabel(path string) string {
	if path == "" {
		return "unmatched"
	}
	return path
}
