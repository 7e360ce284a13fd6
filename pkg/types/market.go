package types

import "time"

// MarketInstance is one occurrence of the recurring binary-outcome market,
// valid until its expiry timestamp. Instances are read-only references sourced
// from the feed adapter; the bot never mutates them.
type MarketInstance struct {
	ConditionID string
	Question    string
	Slug        string
	EndDate     time.Time
}

// Expired reports whether the instance's resolution time has been reached.
func (m *MarketInstance) Expired(now time.Time) bool {
	return !now.Before(m.EndDate)
}

// PricePair is one poll's observation of the latest traded price per outcome.
// It is ephemeral: settlement only depends on recorded fills.
type PricePair struct {
	Yes        float64
	No         float64
	ObservedAt time.Time
}

// Price returns the observed price for the given side.
func (p PricePair) Price(side Side) float64 {
	if side == SideYes {
		return p.Yes
	}
	return p.No
}
