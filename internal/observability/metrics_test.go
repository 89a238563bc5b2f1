package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsServesExposition(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.HTTP.SSEConnectionStarted()
	m.Informer.EventSent("userInfo")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "sse_active_connections 1")
	assert.Contains(t, string(body), `informer_events_total{channel="userInfo"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewMetricsUsesPrivateRegistry(t *testing.T) {
	t.Parallel()

	first, err := NewMetrics()
	require.NoError(t, err)
	second, err := NewMetrics()
	require.NoError(t, err, "each instance owns its registry")
	assert.NotSame(t, first.Registry(), second.Registry())
}
