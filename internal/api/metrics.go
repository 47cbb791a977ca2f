package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	weightDerivations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qvf_weight_derivations_total",
		Help: "Weight derivations, labelled by whether the CR was acceptable.",
	}, []string{"accepted"})

	invalidMatrices = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qvf_invalid_matrices_total",
		Help: "Derivation requests rejected for structural matrix violations.",
	})

	scoreRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qvf_score_runs_total",
		Help: "Completed scoring runs.",
	})

	itemsScored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qvf_items_scored_total",
		Help: "Work items that received a score record.",
	})

	itemsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qvf_items_skipped_total",
		Help: "Work items skipped during scoring (missing criterion values).",
	})
)
