package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides Prometheus metrics for session execution, namespaced
// with "cogtest_":
//
//   - trials_total (counter): resolved trials by outcome
//     (completed/skipped/aborted).
//   - trial_rt_ms (histogram): response latency in milliseconds.
//   - timeouts_total (counter): timer expiries by kind (block/trial).
//   - blocks_stopped_total (counter): blocks truncated by a stopping
//     rule or a block timeout.
//   - active_sessions (gauge): sessions currently running.
//
// Expose via HTTP for scraping:
//
//	registry := prometheus.NewRegistry()
//	metrics := session.NewMetrics(registry)
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
type Metrics struct {
	trials         *prometheus.CounterVec
	trialRT        prometheus.Histogram
	timeouts       *prometheus.CounterVec
	blocksStopped  prometheus.Counter
	activeSessions prometheus.Gauge
}

// NewMetrics creates and registers the session metrics with the given
// registry. Pass prometheus.DefaultRegisterer for the global registry, or
// a private registry for isolation.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		trials: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cogtest",
			Name:      "trials_total",
			Help:      "Resolved trials by outcome.",
		}, []string{"test", "outcome"}),
		trialRT: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cogtest",
			Name:      "trial_rt_ms",
			Help:      "Trial response latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		}),
		timeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cogtest",
			Name:      "timeouts_total",
			Help:      "Countdown timer expiries by kind.",
		}, []string{"kind"}),
		blocksStopped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cogtest",
			Name:      "blocks_stopped_total",
			Help:      "Blocks truncated early by a stopping rule or block timeout.",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "cogtest",
			Name:      "active_sessions",
			Help:      "Sessions currently running.",
		}),
	}
}

func (m *Metrics) trialResolved(test string, status Status) {
	if m == nil {
		return
	}
	m.trials.WithLabelValues(test, status.String()).Inc()
}

func (m *Metrics) observeRT(rt time.Duration) {
	if m == nil {
		return
	}
	m.trialRT.Observe(float64(rt.Milliseconds()))
}

func (m *Metrics) timeoutFired(kind timerKind) {
	if m == nil {
		return
	}
	m.timeouts.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) blockStopped() {
	if m == nil {
		return
	}
	m.blocksStopped.Inc()
}

func (m *Metrics) sessionStarted() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) sessionEnded() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
