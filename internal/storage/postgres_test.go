package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hivetrader/sessionbot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &PostgresStore{db: db, logger: zap.NewNop()}, mock
}

func testFill(sessionID string) *types.Fill {
	return &types.Fill{
		ID:        "fill-1",
		SessionID: sessionID,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Side:      types.SideYes,
		Price:     0.32,
		Shares:    20,
	}
}

func TestPostgresStore_CreateSession(t *testing.T) {
	store, mock := newMockStore(t)

	session := &types.Session{
		ID:           "sess-1",
		ConditionID:  "",
		Question:     "",
		StartedAt:    time.Now().UTC(),
		Mode:         types.ModePaper,
		TargetShares: 20,
		MaxPrice:     0.35,
	}

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(
			session.ID, session.ConditionID, session.Question,
			sqlmock.AnyArg(), session.Mode, session.TargetShares,
			0, 0, session.MaxPrice,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.CreateSession(context.Background(), session)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordFill_Atomic(t *testing.T) {
	store, mock := newMockStore(t)
	fill := testFill("sess-1")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO fills").
		WithArgs(fill.ID, fill.SessionID, sqlmock.AnyArg(), "YES", fill.Price, fill.Shares).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sessions SET filled_yes = filled_yes").
		WithArgs(fill.Shares, fill.SessionID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.RecordFill(context.Background(), fill)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordFill_NoSide(t *testing.T) {
	store, _ := newMockStore(t)

	fill := testFill("sess-1")
	fill.Side = "MAYBE"

	err := store.RecordFill(context.Background(), fill)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid side")
}

func TestPostgresStore_RecordFill_RollsBackOnCounterFailure(t *testing.T) {
	store, mock := newMockStore(t)
	fill := testFill("sess-1")
	fill.Side = types.SideNo

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO fills").
		WithArgs(fill.ID, fill.SessionID, sqlmock.AnyArg(), "NO", fill.Price, fill.Shares).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sessions SET filled_no = filled_no").
		WithArgs(fill.Shares, fill.SessionID).
		WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectRollback()

	err := store.RecordFill(context.Background(), fill)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordFill_ClosedSession(t *testing.T) {
	store, mock := newMockStore(t)
	fill := testFill("sess-1")

	// Counter update matches zero rows when the session is already closed.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO fills").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sessions SET filled_yes = filled_yes").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.RecordFill(context.Background(), fill)
	assert.ErrorIs(t, err, types.ErrSessionClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CloseSession_Once(t *testing.T) {
	store, mock := newMockStore(t)
	endedAt := time.Now().UTC()

	mock.ExpectExec("UPDATE sessions SET end_ts").
		WithArgs("sess-1", sqlmock.AnyArg(), -2.60).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.CloseSession(context.Background(), "sess-1", endedAt, -2.60)
	require.NoError(t, err)

	// Second close matches zero rows.
	mock.ExpectExec("UPDATE sessions SET end_ts").
		WithArgs("sess-1", sqlmock.AnyArg(), -2.60).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.CloseSession(context.Background(), "sess-1", endedAt, -2.60)
	assert.ErrorIs(t, err, types.ErrSessionClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AssociateMarket_Once(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE sessions SET condition_id").
		WithArgs("sess-1", "0xabc", "BTC up at 12:15?").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.AssociateMarket(context.Background(), "sess-1", "0xabc", "BTC up at 12:15?")
	require.NoError(t, err)

	mock.ExpectExec("UPDATE sessions SET condition_id").
		WithArgs("sess-1", "0xdef", "another").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.AssociateMarket(context.Background(), "sess-1", "0xdef", "another")
	assert.ErrorIs(t, err, types.ErrMarketAssigned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SessionTotals(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"yes_shares", "yes_cost", "no_shares", "no_cost"}).
		AddRow(20, 11.0, 20, 11.6)

	mock.ExpectQuery("SELECT").WithArgs("sess-1").WillReturnRows(rows)

	yes, no, err := store.SessionTotals(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, types.SideTotals{Shares: 20, Cost: 11.0}, yes)
	assert.Equal(t, types.SideTotals{Shares: 20, Cost: 11.6}, no)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSession(t *testing.T) {
	store, mock := newMockStore(t)

	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ended := started.Add(15 * time.Minute)

	rows := sqlmock.NewRows([]string{
		"id", "condition_id", "question", "start_ts", "end_ts", "mode",
		"target_shares", "filled_yes", "filled_no", "max_price", "pnl",
	}).AddRow("sess-1", "0xabc", "BTC up?", started, ended, "paper", 20, 20, 20, 0.60, -2.60)

	mock.ExpectQuery("SELECT").WithArgs("sess-1").WillReturnRows(rows)

	session, err := store.GetSession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", session.ConditionID)
	require.NotNil(t, session.EndedAt)
	assert.Equal(t, ended, *session.EndedAt)
	require.NotNil(t, session.PnL)
	assert.InDelta(t, -2.60, *session.PnL, 1e-9)
}

func TestPostgresStore_GetSession_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrSessionNotFound)
}

func TestPostgresStore_TotalPnL(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(7.25))

	total, err := store.TotalPnL(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 7.25, total, 1e-9)
}

func TestStore_Interface(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var _ Store = &PostgresStore{db: db, logger: zap.NewNop()}
	var _ Store = NewMemoryStore(zap.NewNop())
}
