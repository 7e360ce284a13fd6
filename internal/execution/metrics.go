package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersPlacedTotal tracks orders placed per side.
	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessionbot_execution_orders_placed_total",
		Help: "Total number of orders placed",
	}, []string{"side"})

	// SharesFilledTotal tracks shares filled per side.
	SharesFilledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessionbot_execution_shares_filled_total",
		Help: "Total number of shares filled",
	}, []string{"side"})
)
