package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	hstsMaxAge      = 31536000 // one year
	preflightMaxAge = 600

	// The API only serves JSON and event streams, so nothing may be embedded or executed.
	apiContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'"
)

// HeaderPolicy configures cross-origin access and response headers of the API.
type HeaderPolicy struct {
	// AllowedOrigins lists origins that may call the API with the session cookie.
	// Empty or "*" allows any origin, but then without credentials.
	AllowedOrigins []string

	// HSTS sends Strict-Transport-Security on TLS requests.
	HSTS bool
}

// anyOrigin reports whether the policy is the credential-less wildcard.
func (p HeaderPolicy) anyOrigin() bool {
	return len(p.AllowedOrigins) == 0 || slices.Contains(p.AllowedOrigins, "*")
}

// NewCORS allows the API methods and the EventSource reconnect headers.
// Credentials are only allowed for explicitly listed origins.
func NewCORS(p HeaderPolicy) echo.MiddlewareFunc {
	origins := p.AllowedOrigins
	if p.anyOrigin() {
		origins = []string{"*"}
	}

	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPut,
			http.MethodPost,
			http.MethodDelete,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderCacheControl,
			"Last-Event-ID",
		},
		AllowCredentials: !p.anyOrigin(),
		MaxAge:           preflightMaxAge,
	})
}

// NewSecureHeaders sets the response headers of a JSON-only API.
func NewSecureHeaders(p HeaderPolicy) echo.MiddlewareFunc {
	cfg := middleware.SecureConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "same-origin",
		ContentSecurityPolicy: apiContentSecurityPolicy,
	}
	if p.HSTS {
		cfg.HSTSMaxAge = hstsMaxAge
	}
	return middleware.SecureWithConfig(cfg)
}

// NewBodyLimit creates a middleware that limits the request body size.
func NewBodyLimit(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimit(limit)
}
