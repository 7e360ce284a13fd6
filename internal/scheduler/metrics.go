package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal tracks completed poll cycles.
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessionbot_scheduler_cycles_total",
		Help: "Total number of scheduler poll cycles",
	})

	// CycleDurationSeconds tracks poll cycle latency.
	CycleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sessionbot_scheduler_cycle_duration_seconds",
		Help:    "Duration of scheduler poll cycles",
		Buckets: prometheus.DefBuckets,
	})

	// SessionsOpenedTotal tracks sessions opened.
	SessionsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessionbot_scheduler_sessions_opened_total",
		Help: "Total number of sessions opened",
	})

	// SessionsClosedTotal tracks sessions settled and closed.
	SessionsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessionbot_scheduler_sessions_closed_total",
		Help: "Total number of sessions settled",
	})

	// FillsTotal tracks entry-rule fills per side.
	FillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessionbot_scheduler_fills_total",
		Help: "Total number of fills produced by the entry rule",
	}, []string{"side"})

	// RealizedPnL accumulates settled P&L across sessions.
	RealizedPnL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sessionbot_scheduler_realized_pnl",
		Help: "Cumulative realized P&L across settled sessions",
	})
)
