package hemis

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts exchange attempts and login outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	attempts        *prometheus.CounterVec
	logins          *prometheus.CounterVec
	exchangeLatency prometheus.Histogram
}

// NewMetrics registers the broker collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elibrary_hemis_exchange_attempts_total",
			Help: "Token exchange attempts by host, auth method and outcome",
		}, []string{"host", "method", "outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elibrary_hemis_logins_total",
			Help: "Delegated logins by outcome",
		}, []string{"outcome"}),
		exchangeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "elibrary_hemis_exchange_seconds",
			Help:    "Duration of the whole token endpoint search",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.attempts, m.logins, m.exchangeLatency)
	return m
}

// RecordAttempt counts one candidate attempt.
func (m *Metrics) RecordAttempt(a Attempt) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(a.Endpoint.Host, string(a.Method), a.outcome()).Inc()
}

// RecordExchange observes the duration of a full endpoint search.
func (m *Metrics) RecordExchange(d time.Duration) {
	if m == nil {
		return
	}
	m.exchangeLatency.Observe(d.Seconds())
}

// RecordLogin counts a login outcome such as "ok" or "token_rejected".
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (a Attempt) outcome() string {
	switch {
	case a.Err == nil:
		return "ok"
	case a.Status > 0:
		return "http_" + strconv.Itoa(a.Status)
	default:
		return "error"
	}
}
