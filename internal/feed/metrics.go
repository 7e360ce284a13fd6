package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchErrorsTotal tracks feed fetch failures per endpoint.
	FetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessionbot_feed_fetch_errors_total",
		Help: "Total number of feed fetch failures",
	}, []string{"endpoint"})

	// MarketsFetchedTotal tracks valid market instances seen in the catalog.
	MarketsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessionbot_feed_markets_fetched_total",
		Help: "Total number of valid markets fetched from the catalog API",
	})

	// PriceObservationsTotal tracks complete two-sided price observations.
	PriceObservationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessionbot_feed_price_observations_total",
		Help: "Total number of polls that observed a price for both sides",
	})
)
