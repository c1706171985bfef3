package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_dashboard_cache_hits_total",
		Help: "Cache lookups served from a live entry.",
	}, []string{"cache"})
	cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_dashboard_cache_misses_total",
		Help: "Cache lookups that had to invoke the loader.",
	}, []string{"cache"})
	cacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_dashboard_cache_evictions_total",
		Help: "Entries dropped to stay under the cache capacity.",
	}, []string{"cache"})
	cacheLoadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_dashboard_cache_load_failures_total",
		Help: "Loader invocations that returned an error.",
	}, []string{"cache"})
	predictionsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_dashboard_predictions_total",
		Help: "Predictions computed, by task.",
	}, []string{"task"})
	predictionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_dashboard_predictions_failed_total",
		Help: "Prediction failures, by task and reason.",
	}, []string{"task", "reason"})
	explanationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_dashboard_explanations_failed_total",
		Help: "Attribution computations that failed, by task.",
	}, []string{"task"})
)

var (
	warmCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "purchase_dashboard_warm_cycle_duration_seconds",
		Help:    "Duration of one cache warm cycle.",
		Buckets: []float64{0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
	})
	warmFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchase_dashboard_warm_failures_total",
		Help: "Artifacts a warm cycle could not load.",
	})
)
