// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EligibilityEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eligibility_evaluations_total",
			Help: "Total number of eligibility evaluations by outcome",
		},
		[]string{"outcome"},
	)

	EligibilityScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eligibility_match_score",
			Help:    "Distribution of computed match scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	ApplicationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_transitions_total",
			Help: "Total number of application status transitions",
		},
		[]string{"from", "to"},
	)

	ApplicationTransitionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "application_transition_failures_total",
			Help: "Total number of rejected transition attempts by error code",
		},
		[]string{"error_code"},
	)

	CatalogQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_queries_total",
			Help: "Total number of scheme catalog queries by source",
		},
		[]string{"source"}, // cache, postgres, elasticsearch
	)

	CatalogQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "catalog_query_duration_seconds",
			Help: "Duration of scheme catalog queries in seconds",
		},
		[]string{"source"},
	)
)
