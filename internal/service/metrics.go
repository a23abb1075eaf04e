package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mergeRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_merge_runs_total",
			Help: "Guest cart merge runs by outcome",
		},
		[]string{"outcome"},
	)

	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_sync_runs_total",
			Help: "Cart resynchronizations by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	cartOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_operations_total",
			Help: "UI cart mutations by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	sessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_session_transitions_total",
			Help: "Login, registration and logout attempts by outcome",
		},
		[]string{"action", "outcome"},
	)

	cartItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_cart_items",
			Help: "Number of distinct variants in the local cart",
		},
	)
)

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
