package types

import "time"

// Side identifies one of the two mutually exclusive outcomes being traded.
type Side string

// The two sides of a binary market.
const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Sides lists both sides in evaluation order.
func Sides() [2]Side {
	return [2]Side{SideYes, SideNo}
}

// Valid reports whether s is one of the two known sides.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// Trading modes recorded on a session.
const (
	ModePaper = "paper"
	ModeLive  = "live"
)

// Session is the bookkeeping record spanning one market instance's lifetime.
// A session is created when the scheduler starts trading (possibly before any
// market is known), associated with a market identity exactly once, mutated
// only by fill insertions, and closed exactly once with its realized P&L.
type Session struct {
	ID           string     `json:"id"`
	ConditionID  string     `json:"condition_id,omitempty"` // empty until a market is associated
	Question     string     `json:"question,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"` // nil while the session is open
	Mode         string     `json:"mode"`
	TargetShares int        `json:"target_shares"`
	FilledYes    int        `json:"filled_yes"`
	FilledNo     int        `json:"filled_no"`
	MaxPrice     float64    `json:"max_price"`
	PnL          *float64   `json:"pnl,omitempty"` // nil until settled
}

// Open reports whether the session has not been closed yet.
func (s *Session) Open() bool {
	return s.EndedAt == nil
}

// Associated reports whether a market identity has been attached.
func (s *Session) Associated() bool {
	return s.ConditionID != ""
}

// Filled returns the filled-share counter for the given side.
func (s *Session) Filled(side Side) int {
	if side == SideYes {
		return s.FilledYes
	}
	return s.FilledNo
}

// Fill is one executed purchase of a given outcome. Fills are append-only and
// owned by exactly one session; the session's filled-share counters must
// always equal the per-side sum of its fills.
type Fill struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Side      Side      `json:"side"`
	Price     float64   `json:"price"`
	Shares    int       `json:"shares"`
}

// Cost is the total amount paid for this fill.
func (f *Fill) Cost() float64 {
	return f.Price * float64(f.Shares)
}

// SideTotals aggregates one side's fills for settlement.
type SideTotals struct {
	Shares int
	Cost   float64
}
