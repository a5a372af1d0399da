package httpx

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records dispatch outcomes per response mode.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the dispatch collectors and registers them with reg.
// A nil reg leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webhdfs",
			Subsystem: "client",
			Name:      "dispatch_total",
			Help:      "Dispatched WebHDFS operations by response mode and outcome.",
		}, []string{"mode", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "webhdfs",
			Subsystem: "client",
			Name:      "dispatch_duration_seconds",
			Help:      "Wall time of WebHDFS operations including both handshake phases.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(mode Mode, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(mode.String(), result).Inc()
	m.duration.WithLabelValues(mode.String()).Observe(d.Seconds())
}
