package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
	status int
}

type fakeRecorder struct {
	mu   sync.Mutex
	reqs []recordedRequest
}

func (f *fakeRecorder) RecordHTTPRequest(method, path string, status int, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, recordedRequest{method, path, status})
}

func TestRequestLoggerRecordsRoutePattern(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	e := echo.New()
	e.Use(NewRequestLogger(nil, rec))
	e.GET("/posts/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/posts/42", http.NoBody))
	w = httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))

	require.Len(t, rec.reqs, 2)
	assert.Equal(t, recordedRequest{http.MethodGet, "/posts/:id", http.StatusNoContent}, rec.reqs[0])
	assert.Equal(t, http.StatusNotFound, rec.reqs[1].status)
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewBodyLimit("10B"))
	e.POST("/", func(c echo.Context) error {
		var body map[string]any
		if err := c.Bind(&body); err != nil {
			return err
		}
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"this body is far too long"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestSecureHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		policy   HeaderPolicy
		proto    string
		wantHSTS bool
	}{
		{"plain http", HeaderPolicy{HSTS: true}, "", false},
		{"tls without hsts", HeaderPolicy{}, "https", false},
		{"tls with hsts", HeaderPolicy{HSTS: true}, "https", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := echo.New()
			e.Use(NewSecureHeaders(tt.policy))
			e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.proto != "" {
				req.Header.Set(echo.HeaderXForwardedProto, tt.proto)
			}
			w := httptest.NewRecorder()
			e.ServeHTTP(w, req)

			assert.Equal(t, "nosniff", w.Header().Get(echo.HeaderXContentTypeOptions))
			assert.Equal(t, "DENY", w.Header().Get(echo.HeaderXFrameOptions))
			assert.Equal(t, apiContentSecurityPolicy, w.Header().Get(echo.HeaderContentSecurityPolicy))
			assert.Equal(t, tt.wantHSTS, w.Header().Get(echo.HeaderStrictTransportSecurity) != "")
		})
	}
}

func TestCORSCredentialsOnlyForListedOrigins(t *testing.T) {
	t.Parallel()

	const origin = "https://wall.example.com"

	tests := []struct {
		name            string
		policy          HeaderPolicy
		wantOrigin      string
		wantCredentials string
	}{
		{"wildcard", HeaderPolicy{AllowedOrigins: []string{"*"}}, "*", ""},
		{"unset", HeaderPolicy{}, "*", ""},
		{"listed", HeaderPolicy{AllowedOrigins: []string{origin}}, origin, "true"},
		{"not listed", HeaderPolicy{AllowedOrigins: []string{"https://other.example.com"}}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := echo.New()
			e.Use(NewCORS(tt.policy))
			e.GET("/events/stream", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

			req := httptest.NewRequest(http.MethodOptions, "/events/stream", http.NoBody)
			req.Header.Set(echo.HeaderOrigin, origin)
			req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
			req.Header.Set(echo.HeaderAccessControlRequestHeaders, "Last-Event-ID")
			w := httptest.NewRecorder()
			e.ServeHTTP(w, req)

			assert.Equal(t, tt.wantOrigin, w.Header().Get(echo.HeaderAccessControlAllowOrigin))
			assert.Equal(t, tt.wantCredentials, w.Header().Get(echo.HeaderAccessControlAllowCredentials))
			if tt.wantOrigin != "" {
				assert.Contains(t, w.Header().Get(echo.HeaderAccessControlAllowHeaders), "Last-Event-ID")
			}
		})
	}
}
