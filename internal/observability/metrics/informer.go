package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InformerMetrics observes event stream sessions. It satisfies informer.Observer.
type InformerMetrics struct {
	eventsSent   *prometheus.CounterVec
	errorEvents  *prometheus.CounterVec
	panics       *prometheus.CounterVec
	tickDuration prometheus.Histogram
	sseMessages  func(channel string)
}

// NewInformerMetrics creates and registers informer metrics. When http is not
// nil, every sent event is also counted in the HTTP SSE message counter.
func NewInformerMetrics(registry prometheus.Registerer, http *HTTPMetrics) (*InformerMetrics, error) {
	m := &InformerMetrics{
		eventsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "informer_events_total",
			Help: "Events produced by informers",
		}, []string{"channel"}),
		errorEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "informer_error_events_total",
			Help: "Error payloads produced by informers",
		}, []string{"channel"}),
		panics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "informer_panics_total",
			Help: "Recovered informer panics",
		}, []string{"channel"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "informer_tick_duration_seconds",
			Help:    "Time taken to poll all informers of a session once",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		sseMessages: func(string) {},
	}
	if http != nil {
		m.sseMessages = http.RecordSSEMessageSent
	}

	for _, c := range []prometheus.Collector{m.eventsSent, m.errorEvents, m.panics, m.tickDuration} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// EventSent counts an event written to the client.
func (m *InformerMetrics) EventSent(channel string) {
	m.eventsSent.WithLabelValues(channel).Inc()
	m.sseMessages(channel)
}

// InformerError counts an error payload.
func (m *InformerMetrics) InformerError(channel string) {
	m.errorEvents.WithLabelValues(channel).Inc()
}

// InformerPanic counts a recovered panic.
func (m *InformerMetrics) InformerPanic(channel string) {
	m.panics.WithLabelValues(channel).Inc()
}

// TickCompleted records the duration of one session tick.
func (m *InformerMetrics) TickCompleted(d time.Duration) {
	m.tickDuration.Observe(d.Seconds())
}
