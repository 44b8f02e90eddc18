package hemis

import (
	"context"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetrics_RecordsAttempts(t *testing.T) {
	fp := newFakeProvider(t, func(r *http.Request) bool {
		_, _, ok := r.BasicAuth()
		return ok
	})

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	b := NewBroker(testConfig(fp.host()), WithMetrics(m))

	_, err := b.Exchange(context.Background(), "abc")
	require.NoError(t, err)

	assert.Equal(t, 1.0, counterValue(t, reg, "elibrary_hemis_exchange_attempts_total",
		map[string]string{"method": "body", "outcome": "http_401"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "elibrary_hemis_exchange_attempts_total",
		map[string]string{"method": "basic", "outcome": "ok"}))

	m.RecordLogin("ok")
	assert.Equal(t, 1.0, counterValue(t, reg, "elibrary_hemis_logins_total", map[string]string{"outcome": "ok"}))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAttempt(Attempt{})
		m.RecordLogin("ok")
		m.RecordExchange(0)
	})
}
