package scheduler

import "github.com/hivetrader/sessionbot/pkg/types"

// ComputePnL settles a session from its per-side fill totals. Each matched
// YES/NO pair pays exactly 1 unit at resolution, whichever outcome wins, so
// payoff is the matched-pair count; unmatched excess shares on one side are
// unhedged and pay nothing here.
func ComputePnL(yes, no types.SideTotals) float64 {
	matched := yes.Shares
	if no.Shares < matched {
		matched = no.Shares
	}

	return float64(matched) - (yes.Cost + no.Cost)
}
