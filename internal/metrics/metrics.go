package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "live_quiz"

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	Mutations    *prometheus.CounterVec
	LockWait     prometheus.Histogram
	LockTimeouts prometheus.Counter
	Sweeps       *prometheus.CounterVec
	Answers      *prometheus.CounterVec
	Notify       *prometheus.CounterVec
}

// New registers the collectors on reg. Pass a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_mutations_total",
				Help:      "Session mutations by operation and outcome",
			},
			[]string{"op", "result"},
		),
		LockWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "session_lock_wait_seconds",
				Help:      "Time spent acquiring the per-session lock",
				Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		LockTimeouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_lock_timeouts_total",
				Help:      "Mutations rejected because the session lock was not acquired in time",
			},
		),
		Sweeps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "swept_sessions_total",
				Help:      "Stale sessions force-terminated by the sweeper, by final status",
			},
			[]string{"status"},
		),
		Answers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "answers_total",
				Help:      "Accepted answers by grading outcome",
			},
			[]string{"outcome"}, // correct, incorrect, pending
		),
		Notify: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Event notifications by outcome",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.Mutations, m.LockWait, m.LockTimeouts, m.Sweeps, m.Answers, m.Notify)
	return m
}

// Noop returns metrics registered on a throwaway registry.
func Noop() *Metrics {
	return New(prometheus.NewRegistry())
}
