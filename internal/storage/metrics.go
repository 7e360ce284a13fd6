package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// WriteErrorsTotal tracks failed store writes by operation. The scheduler
	// retries on the next poll, so a non-zero rate here means fills or
	// closures are lagging behind observed prices.
	WriteErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessionbot_store_write_errors_total",
			Help: "Total number of failed session store writes",
		},
		[]string{"operation"},
	)
)
