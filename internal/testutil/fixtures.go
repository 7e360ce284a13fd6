package testutil

import "time"

// BTCMarket returns a wire market whose question matches the btc/15-minute
// naming rule.
func BTCMarket(conditionID string, endDate time.Time) WireMarket {
	return WireMarket{
		ConditionID: conditionID,
		Question:    "Will BTC be up at the 15 minute mark?",
		Slug:        "btc-up-15m",
		EndDate:     endDate.UTC().Format(time.RFC3339),
		Active:      true,
		Closed:      false,
	}
}

// YesNoTrades returns a trade window with one trade per side, most recent
// first.
func YesNoTrades(yes, no float64) []WireTrade {
	return []WireTrade{
		{Outcome: "Yes", Price: yes},
		{Outcome: "No", Price: no},
	}
}
