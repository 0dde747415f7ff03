// Package metrics provides Prometheus instrumentation for matching runs and
// match lookups.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK        = "ok"
	ResultInvalid   = "invalid"
	ResultTimeout   = "timeout"
	ResultMatched   = "matched"
	ResultUnmatched = "unmatched"
	ResultUnknown   = "unknown"
)

var (
	// AssignmentsTotal counts build-and-solve runs, labeled by result:
	// "ok", "invalid" or "timeout".
	AssignmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skill_matcher_assignments_total",
		Help: "Total number of matching runs",
	}, []string{"result"})

	// SolveDuration records the time spent building the graph and solving it.
	SolveDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skill_matcher_solve_duration_seconds",
		Help:    "Time spent building and solving one matching",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
	})

	// MatchedPairs records how many pairs each run produced.
	MatchedPairs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skill_matcher_matched_pairs",
		Help:    "Number of matched pairs per run",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	// LookupsTotal counts entity lookups, labeled by result: "matched",
	// "unmatched" or "unknown".
	LookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "skill_matcher_lookups_total",
		Help: "Total number of match lookups",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		AssignmentsTotal,
		SolveDuration,
		MatchedPairs,
		LookupsTotal,
	)
}

// ObserveSolve records one successful run.
func ObserveSolve(elapsed time.Duration, pairs int) {
	AssignmentsTotal.WithLabelValues(ResultOK).Inc()
	SolveDuration.Observe(elapsed.Seconds())
	MatchedPairs.Observe(float64(pairs))
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
