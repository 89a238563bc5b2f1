package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/friendswall/friendswall-go/internal/errors"
)

// ErrorMetrics counts built errors by component and category.
type ErrorMetrics struct {
	total *prometheus.CounterVec
}

// NewErrorMetrics creates and registers error metrics.
func NewErrorMetrics(registry prometheus.Registerer) (*ErrorMetrics, error) {
	m := &ErrorMetrics{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Errors built through the errors package",
		}, []string{"component", "category"}),
	}
	if err := registry.Register(m.total); err != nil {
		return nil, err
	}
	return m, nil
}

// Hook returns an errors.ErrorHook feeding this counter.
func (m *ErrorMetrics) Hook() errors.ErrorHook {
	return func(ee *errors.EnhancedError) {
		m.total.WithLabelValues(ee.GetComponent(), ee.GetCategory()).Inc()
	}
}
