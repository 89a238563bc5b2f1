// Package metrics provides custom Prometheus metrics for the components of the FriendsWall server.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// SSE connection close reason constants to prevent high cardinality metrics
const (
	SSECloseReasonClosed   = "closed"   // Normal client disconnect
	SSECloseReasonExpired  = "expired"  // Stream reached its maximum duration
	SSECloseReasonRejected = "rejected" // Stream refused (unauthenticated or capacity)
	SSECloseReasonError    = "error"    // Error occurred
)

// HTTPMetrics contains Prometheus metrics for HTTP handler operations
type HTTPMetrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	sseActiveConnections  prometheus.Gauge
	sseTotalConnections   *prometheus.CounterVec
	sseConnectionDuration prometheus.Histogram
	sseMessagesSent       *prometheus.CounterVec
}

// NewHTTPMetrics creates and registers new HTTP handler metrics
func NewHTTPMetrics(registry prometheus.Registerer) (*HTTPMetrics, error) {
	m := &HTTPMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *HTTPMetrics) initMetrics() {
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"}, // path is the route pattern, not the raw URL
	)

	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Time taken for HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.sseActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sse_active_connections",
		Help: "Number of open event streams",
	})

	m.sseTotalConnections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sse_connections_total",
			Help: "Event stream connections by outcome",
		},
		[]string{"status"},
	)

	m.sseConnectionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sse_connection_duration_seconds",
		Help:    "Lifetime of event stream connections",
		Buckets: []float64{1, 5, 30, 60, 300, 600, 1800, 3600},
	})

	m.sseMessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sse_messages_sent_total",
			Help: "Events written to event streams",
		},
		[]string{"channel"},
	)
}

// getCollectors returns all collectors in order for Describe/Collect operations
func (m *HTTPMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.sseActiveConnections,
		m.sseTotalConnections,
		m.sseConnectionDuration,
		m.sseMessagesSent,
	}
}

// Describe implements the Collector interface
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordHTTPRequest records an HTTP request
func (m *HTTPMetrics) RecordHTTPRequest(method, path string, statusCode int, duration float64) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// SSEConnectionStarted increments active connections and total connections counter
func (m *HTTPMetrics) SSEConnectionStarted() {
	m.sseActiveConnections.Inc()
	m.sseTotalConnections.WithLabelValues("established").Inc()
}

// SSEConnectionRejected counts a stream refused before it started.
func (m *HTTPMetrics) SSEConnectionRejected() {
	m.sseTotalConnections.WithLabelValues(SSECloseReasonRejected).Inc()
}

// SSEConnectionClosed decrements active connections and records duration.
// Unknown reasons are recorded as errors to bound label cardinality.
func (m *HTTPMetrics) SSEConnectionClosed(duration float64, reason string) {
	switch reason {
	case SSECloseReasonClosed, SSECloseReasonExpired, SSECloseReasonError:
	default:
		reason = SSECloseReasonError
	}

	m.sseActiveConnections.Dec()
	m.sseTotalConnections.WithLabelValues(reason).Inc()
	m.sseConnectionDuration.Observe(duration)
}

// RecordSSEMessageSent records an event written to a stream
func (m *HTTPMetrics) RecordSSEMessageSent(channel string) {
	m.sseMessagesSent.WithLabelValues(channel).Inc()
}

// GetActiveSSEConnections returns the current number of active SSE connections
func (m *HTTPMetrics) GetActiveSSEConnections() float64 {
	metric := &dto.Metric{}
	if err := m.sseActiveConnections.Write(metric); err != nil {
		return 0
	}
	if metric.Gauge != nil && metric.Gauge.Value != nil {
		return *metric.Gauge.Value
	}
	return 0
}
