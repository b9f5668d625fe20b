package sessionstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Hits tracks entries found
	Hits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workos_session_store_hits_total",
			Help: "Total number of session store hits",
		},
	)

	// Misses tracks missing or expired entries
	Misses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workos_session_store_misses_total",
			Help: "Total number of session store misses",
		},
	)

	// Errors tracks store operation errors
	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workos_session_store_errors_total",
			Help: "Total number of session store operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
