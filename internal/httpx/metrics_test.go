package httpx

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.observe(Raw{}, "ok", time.Millisecond) })
}

func TestMetricsUnregistered(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	m.observe(StatusOnly{}, "ok", time.Millisecond)
	m.observe(StatusOnly{}, "transport", time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("status", "transport")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.requests))
}
