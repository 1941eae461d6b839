package chess

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_bridge_analyses_total",
		Help: "Analyze requests by answer source and outcome",
	}, []string{"source", "outcome"})

	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "engine_bridge_search_duration_seconds",
		Help:    "Wall time of engine searches",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 30},
	}, []string{"kind"})

	forcedStopsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_bridge_forced_stops_total",
		Help: "Searches that overran their budget and were told to stop",
	})

	humanizedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_bridge_humanized_moves_total",
		Help: "Play-mode moves that differ from the engine's first choice, by stage",
	}, []string{"stage"})

	reviewDeepenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_bridge_review_positions_deepened_total",
		Help: "Review positions that received a second, deeper search",
	})

	engineRestartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "engine_bridge_engine_restarts_total",
		Help: "Engine processes spawned to replace an earlier one",
	})
)

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
