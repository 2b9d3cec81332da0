// Package metrics exposes recording sync counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recsync"

// Sync holds the recording sync collectors.
type Sync struct {
	sessionsTotal *prometheus.CounterVec
	runsTotal     *prometheus.CounterVec
	transferBytes prometheus.Histogram
	pending       prometheus.Gauge
}

// NewSync creates the collectors and registers them with reg. A nil reg uses the default registerer.
func NewSync(reg prometheus.Registerer) *Sync {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Sync{
		sessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_total",
				Help:      "Sessions processed by outcome.",
			},
			[]string{"outcome"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Sync invocations by trigger and result.",
			},
			[]string{"trigger", "result"},
		),
		// 1MB .. 16GB
		transferBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_bytes",
			Help:      "Size of recordings written to the bucket.",
			Buckets:   prometheus.ExponentialBuckets(1<<20, 4, 8),
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_sessions",
			Help:      "Finished sessions still needing a transfer or migration at the last scheduled tick.",
		}),
	}
	reg.MustRegister(m.sessionsTotal, m.runsTotal, m.transferBytes, m.pending)
	return m
}

// ObserveResult counts one per-session outcome. Sizes are recorded for transfers only.
func (m *Sync) ObserveResult(outcome string, sizeBytes int64) {
	m.sessionsTotal.WithLabelValues(outcome).Inc()
	if outcome == "transferred" && sizeBytes > 0 {
		m.transferBytes.Observe(float64(sizeBytes))
	}
}

// ObservePending sets the backlog gauge.
func (m *Sync) ObservePending(n int) {
	m.pending.Set(float64(n))
}

// ObserveRun counts one invocation. err is the invocation-level error, not per-session failures.
func (m *Sync) ObserveRun(trigger string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.runsTotal.WithLabelValues(trigger, result).Inc()
}

// Handler serves the given gatherer, or the default one when nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
