package storage

import (
	"context"
	"time"

	"github.com/hivetrader/sessionbot/pkg/types"
)

// Store is the durable record of sessions and their fills.
//
// RecordFill must apply the fill insert and the session's per-side counter
// bump as one atomic step: a fill is never visible without its counter update
// and vice versa. CloseSession and AssociateMarket are once-only; a second
// attempt returns types.ErrSessionClosed / types.ErrMarketAssigned.
type Store interface {
	// CreateSession persists a new session row.
	CreateSession(ctx context.Context, session *types.Session) error

	// AssociateMarket attaches a market identity to a session that does not
	// have one yet.
	AssociateMarket(ctx context.Context, sessionID, conditionID, question string) error

	// RecordFill inserts a fill and bumps the owning session's filled-share
	// counter for the fill's side, atomically.
	RecordFill(ctx context.Context, fill *types.Fill) error

	// CloseSession stamps the end timestamp and realized P&L on an open
	// session, making the row immutable.
	CloseSession(ctx context.Context, sessionID string, endedAt time.Time, pnl float64) error

	// GetSession returns one session by id.
	GetSession(ctx context.Context, sessionID string) (*types.Session, error)

	// SessionTotals aggregates a session's fills by side for settlement.
	SessionTotals(ctx context.Context, sessionID string) (yes, no types.SideTotals, err error)

	// ListSessions returns the most recently started sessions.
	ListSessions(ctx context.Context, limit int) ([]types.Session, error)

	// ListFills returns the most recent fills across all sessions.
	ListFills(ctx context.Context, limit int) ([]types.Fill, error)

	// TotalPnL sums realized P&L over all settled sessions.
	TotalPnL(ctx context.Context) (float64, error)

	// Close closes the storage connection.
	Close() error
}
