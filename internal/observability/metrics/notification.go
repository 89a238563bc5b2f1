package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics counts operator notifications.
type NotificationMetrics struct {
	sent *prometheus.CounterVec
}

// NewNotificationMetrics creates and registers notification metrics.
func NewNotificationMetrics(registry prometheus.Registerer) (*NotificationMetrics, error) {
	m := &NotificationMetrics{
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Operator notifications by service and outcome",
		}, []string{"service", "status"}),
	}
	if err := registry.Register(m.sent); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordSend counts one notification attempt.
func (m *NotificationMetrics) RecordSend(service string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.sent.WithLabelValues(service, status).Inc()
}
