package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// solveTotal counts finished runs by mode and status
	solveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kickroom_solve_total",
		Help: "Total solver runs by mode and result",
	}, []string{"mode", "result"})

	// solveDuration tracks wall time spent inside the search
	solveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kickroom_solve_duration_seconds",
		Help:    "Solver run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
	}, []string{"mode"})

	// statesVisited tracks the size of the visited table per run
	statesVisited = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kickroom_states_visited",
		Help:    "Distinct states discovered per solver run",
		Buckets: prometheus.ExponentialBuckets(1, 10, 9), // 1 to 1e8
	}, []string{"mode"})
)
