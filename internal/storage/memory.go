package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hivetrader/sessionbot/pkg/types"
	"go.uber.org/zap"
)

// MemoryStore implements Store in process memory, guarded by one mutex. It
// carries the same once-only and atomicity semantics as the Postgres store
// and backs STORAGE_MODE=memory as well as the scheduler tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*types.Session
	fills    []types.Fill
	logger   *zap.Logger
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	logger.Info("memory-store-initialized")
	return &MemoryStore{
		sessions: make(map[string]*types.Session),
		logger:   logger,
	}
}

// CreateSession persists a new session.
func (m *MemoryStore) CreateSession(ctx context.Context, session *types.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *session
	m.sessions[session.ID] = &copied

	return nil
}

// AssociateMarket attaches a market identity to a session exactly once.
func (m *MemoryStore) AssociateMarket(ctx context.Context, sessionID, conditionID, question string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return types.ErrSessionNotFound
	}
	if session.Associated() {
		return types.ErrMarketAssigned
	}

	session.ConditionID = conditionID
	session.Question = question

	return nil
}

// RecordFill appends a fill and bumps the session counter atomically.
func (m *MemoryStore) RecordFill(ctx context.Context, fill *types.Fill) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[fill.SessionID]
	if !ok {
		return types.ErrSessionNotFound
	}
	if !session.Open() {
		return types.ErrSessionClosed
	}

	switch fill.Side {
	case types.SideYes:
		session.FilledYes += fill.Shares
	case types.SideNo:
		session.FilledNo += fill.Shares
	default:
		return fmt.Errorf("record fill: invalid side %q", fill.Side)
	}

	m.fills = append(m.fills, *fill)

	return nil
}

// CloseSession stamps end timestamp and P&L exactly once.
func (m *MemoryStore) CloseSession(ctx context.Context, sessionID string, endedAt time.Time, pnl float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return types.ErrSessionNotFound
	}
	if !session.Open() {
		return types.ErrSessionClosed
	}

	t := endedAt
	v := pnl
	session.EndedAt = &t
	session.PnL = &v

	return nil
}

// GetSession returns a copy of one session.
func (m *MemoryStore) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, types.ErrSessionNotFound
	}

	copied := *session
	return &copied, nil
}

// SessionTotals aggregates a session's fills by side.
func (m *MemoryStore) SessionTotals(ctx context.Context, sessionID string) (yes, no types.SideTotals, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return yes, no, types.ErrSessionNotFound
	}

	for i := range m.fills {
		fill := &m.fills[i]
		if fill.SessionID != sessionID {
			continue
		}

		switch fill.Side {
		case types.SideYes:
			yes.Shares += fill.Shares
			yes.Cost += fill.Cost()
		case types.SideNo:
			no.Shares += fill.Shares
			no.Cost += fill.Cost()
		}
	}

	return yes, no, nil
}

// ListSessions returns the most recently started sessions.
func (m *MemoryStore) ListSessions(ctx context.Context, limit int) ([]types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]types.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, *s)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})

	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}

	return sessions, nil
}

// ListFills returns the most recent fills.
func (m *MemoryStore) ListFills(ctx context.Context, limit int) ([]types.Fill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fills := make([]types.Fill, len(m.fills))
	copy(fills, m.fills)

	sort.Slice(fills, func(i, j int) bool {
		return fills[i].Timestamp.After(fills[j].Timestamp)
	})

	if limit > 0 && len(fills) > limit {
		fills = fills[:limit]
	}

	return fills, nil
}

// TotalPnL sums realized P&L over settled sessions.
func (m *MemoryStore) TotalPnL(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total float64
	for _, s := range m.sessions {
		if s.PnL != nil {
			total += *s.PnL
		}
	}

	return total, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	m.logger.Info("closing-memory-store")
	return nil
}
