package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the gateway collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	LoginAttempts *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passgate_login_attempts_total",
				Help: "Completed OAuth callbacks by strategy and outcome.",
			},
			[]string{"strategy", "outcome"},
		),
	}
	m.registry.MustRegister(m.LoginAttempts)
	return m
}

// LoginFinished is a no-op on a nil receiver.
func (m *Metrics) LoginFinished(strategy string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.LoginAttempts.WithLabelValues(strategy, outcome).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
