package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for the reduction protocol
// =============================================================================

var (
	// phaseDuration measures time spent per protocol phase.
	// Labels: phase
	phaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "msmcount",
		Subsystem: "aggregate",
		Name:      "phase_duration_seconds",
		Help:      "Time spent in each reduction phase",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
	}, []string{"phase"})

	// foldsTotal counts sparse additions performed by the coordinator.
	foldsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "msmcount",
		Subsystem: "aggregate",
		Name:      "folds_total",
		Help:      "Contributions folded into the coordinator accumulator",
	})

	// receivedEntries counts stored entries received from other ranks.
	receivedEntries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "msmcount",
		Subsystem: "aggregate",
		Name:      "received_entries_total",
		Help:      "Sparse entries received by the coordinator",
	})

	// failuresTotal counts aborted reductions.
	// Labels: phase
	failuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "msmcount",
		Subsystem: "aggregate",
		Name:      "failures_total",
		Help:      "Reductions aborted, by phase",
	}, []string{"phase"})
)

func recordPhase(p Phase, seconds float64) {
	phaseDuration.WithLabelValues(p.String()).Observe(seconds)
}

func recordFold(entries int) {
	foldsTotal.Inc()
	receivedEntries.Add(float64(entries))
}

func recordFailure(p Phase) {
	failuresTotal.WithLabelValues(p.String()).Inc()
}
