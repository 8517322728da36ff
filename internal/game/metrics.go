package game

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcileEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aquarium_reconcile_events_total",
		Help: "Reconciliation events by kind",
	}, []string{"kind"})

	reconcileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aquarium_reconcile_duration_seconds",
		Help:    "Reconciliation latency by operation",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	}, []string{"op"})

	reconcileFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aquarium_reconcile_failures_total",
		Help: "Reconciliation calls that returned an error, by operation",
	}, []string{"op"})

	snapshotCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aquarium_snapshot_cache_hits_total",
		Help: "State fetches served from the snapshot cache",
	})

	coalescedLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aquarium_coalesced_loads_total",
		Help: "State fetches that shared an in-flight catch-up",
	})
)
