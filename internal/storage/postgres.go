package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/hivetrader/sessionbot/pkg/types"
	"go.uber.org/zap"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStore creates a new PostgreSQL store and verifies connectivity.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-store-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStore{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// Migrate creates the sessions and fills tables if they do not exist yet.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id            TEXT PRIMARY KEY,
			condition_id  TEXT NOT NULL DEFAULT '',
			question      TEXT NOT NULL DEFAULT '',
			start_ts      TIMESTAMPTZ NOT NULL,
			end_ts        TIMESTAMPTZ,
			mode          TEXT NOT NULL,
			target_shares INTEGER NOT NULL,
			filled_yes    INTEGER NOT NULL DEFAULT 0,
			filled_no     INTEGER NOT NULL DEFAULT 0,
			max_price     DOUBLE PRECISION NOT NULL,
			pnl           DOUBLE PRECISION
		)`,
		`CREATE TABLE IF NOT EXISTS fills (
			id         TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			ts         TIMESTAMPTZ NOT NULL,
			side       TEXT NOT NULL,
			price      DOUBLE PRECISION NOT NULL,
			shares     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fills_session_id ON fills(session_id)`,
	}

	for _, stmt := range statements {
		_, err := p.db.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	p.logger.Info("postgres-schema-ready")
	return nil
}

// CreateSession persists a new session row.
func (p *PostgresStore) CreateSession(ctx context.Context, session *types.Session) error {
	query := `
		INSERT INTO sessions (
			id, condition_id, question, start_ts, mode,
			target_shares, filled_yes, filled_no, max_price
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := p.db.ExecContext(ctx, query,
		session.ID,
		session.ConditionID,
		session.Question,
		session.StartedAt,
		session.Mode,
		session.TargetShares,
		session.FilledYes,
		session.FilledNo,
		session.MaxPrice,
	)
	if err != nil {
		WriteErrorsTotal.WithLabelValues("create_session").Inc()
		return fmt.Errorf("insert session: %w", err)
	}

	p.logger.Debug("session-persisted",
		zap.String("session-id", session.ID),
		zap.String("condition-id", session.ConditionID))

	return nil
}

// AssociateMarket attaches a market identity to a session exactly once.
func (p *PostgresStore) AssociateMarket(ctx context.Context, sessionID, conditionID, question string) error {
	query := `
		UPDATE sessions SET condition_id = $2, question = $3
		WHERE id = $1 AND condition_id = ''
	`

	res, err := p.db.ExecContext(ctx, query, sessionID, conditionID, question)
	if err != nil {
		WriteErrorsTotal.WithLabelValues("associate_market").Inc()
		return fmt.Errorf("associate market: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("associate market rows affected: %w", err)
	}
	if rows == 0 {
		return types.ErrMarketAssigned
	}

	return nil
}

// RecordFill inserts a fill and bumps the matching counter in one transaction.
func (p *PostgresStore) RecordFill(ctx context.Context, fill *types.Fill) error {
	if !fill.Side.Valid() {
		return fmt.Errorf("record fill: invalid side %q", fill.Side)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		WriteErrorsTotal.WithLabelValues("record_fill").Inc()
		return fmt.Errorf("begin record fill: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO fills (id, session_id, ts, side, price, shares) VALUES ($1, $2, $3, $4, $5, $6)`,
		fill.ID, fill.SessionID, fill.Timestamp, string(fill.Side), fill.Price, fill.Shares,
	)
	if err != nil {
		WriteErrorsTotal.WithLabelValues("record_fill").Inc()
		return fmt.Errorf("insert fill: %w", err)
	}

	column := "filled_yes"
	if fill.Side == types.SideNo {
		column = "filled_no"
	}

	res, err := tx.ExecContext(ctx,
		fmt.Sprintf(`UPDATE sessions SET %s = %s + $1 WHERE id = $2 AND end_ts IS NULL`, column, column),
		fill.Shares, fill.SessionID,
	)
	if err != nil {
		WriteErrorsTotal.WithLabelValues("record_fill").Inc()
		return fmt.Errorf("bump fill counter: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump fill counter rows affected: %w", err)
	}
	if rows == 0 {
		return types.ErrSessionClosed
	}

	err = tx.Commit()
	if err != nil {
		WriteErrorsTotal.WithLabelValues("record_fill").Inc()
		return fmt.Errorf("commit record fill: %w", err)
	}

	p.logger.Debug("fill-persisted",
		zap.String("session-id", fill.SessionID),
		zap.String("side", string(fill.Side)),
		zap.Float64("price", fill.Price),
		zap.Int("shares", fill.Shares))

	return nil
}

// CloseSession stamps end timestamp and P&L on an open session exactly once.
func (p *PostgresStore) CloseSession(ctx context.Context, sessionID string, endedAt time.Time, pnl float64) error {
	query := `
		UPDATE sessions SET end_ts = $2, pnl = $3
		WHERE id = $1 AND end_ts IS NULL
	`

	res, err := p.db.ExecContext(ctx, query, sessionID, endedAt, pnl)
	if err != nil {
		WriteErrorsTotal.WithLabelValues("close_session").Inc()
		return fmt.Errorf("close session: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close session rows affected: %w", err)
	}
	if rows == 0 {
		return types.ErrSessionClosed
	}

	return nil
}

// GetSession returns one session by id.
func (p *PostgresStore) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	query := `
		SELECT id, condition_id, question, start_ts, end_ts, mode,
		       target_shares, filled_yes, filled_no, max_price, pnl
		FROM sessions WHERE id = $1
	`

	row := p.db.QueryRowContext(ctx, query, sessionID)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, types.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	return session, nil
}

// SessionTotals aggregates a session's fills by side.
func (p *PostgresStore) SessionTotals(ctx context.Context, sessionID string) (yes, no types.SideTotals, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN side = 'YES' THEN shares ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN side = 'YES' THEN price * shares ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN side = 'NO' THEN shares ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN side = 'NO' THEN price * shares ELSE 0 END), 0)
		FROM fills WHERE session_id = $1
	`

	err = p.db.QueryRowContext(ctx, query, sessionID).
		Scan(&yes.Shares, &yes.Cost, &no.Shares, &no.Cost)
	if err != nil {
		return yes, no, fmt.Errorf("session totals: %w", err)
	}

	return yes, no, nil
}

// ListSessions returns the most recently started sessions.
func (p *PostgresStore) ListSessions(ctx context.Context, limit int) ([]types.Session, error) {
	query := `
		SELECT id, condition_id, question, start_ts, end_ts, mode,
		       target_shares, filled_yes, filled_no, max_price, pnl
		FROM sessions ORDER BY start_ts DESC LIMIT $1
	`

	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []types.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("list sessions rows: %w", err)
	}

	return sessions, nil
}

// ListFills returns the most recent fills across all sessions.
func (p *PostgresStore) ListFills(ctx context.Context, limit int) ([]types.Fill, error) {
	query := `
		SELECT id, session_id, ts, side, price, shares
		FROM fills ORDER BY ts DESC LIMIT $1
	`

	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list fills: %w", err)
	}
	defer rows.Close()

	var fills []types.Fill
	for rows.Next() {
		var fill types.Fill
		var side string

		err = rows.Scan(&fill.ID, &fill.SessionID, &fill.Timestamp, &side, &fill.Price, &fill.Shares)
		if err != nil {
			return nil, fmt.Errorf("scan fill: %w", err)
		}

		fill.Side = types.Side(side)
		fills = append(fills, fill)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("list fills rows: %w", err)
	}

	return fills, nil
}

// TotalPnL sums realized P&L over settled sessions.
func (p *PostgresStore) TotalPnL(ctx context.Context) (float64, error) {
	var total float64

	err := p.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(pnl), 0) FROM sessions WHERE end_ts IS NOT NULL`,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total pnl: %w", err)
	}

	return total, nil
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	p.logger.Info("closing-postgres-store")
	return p.db.Close()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(s scanner) (*types.Session, error) {
	var (
		session types.Session
		endTS   sql.NullTime
		pnl     sql.NullFloat64
	)

	err := s.Scan(
		&session.ID,
		&session.ConditionID,
		&session.Question,
		&session.StartedAt,
		&endTS,
		&session.Mode,
		&session.TargetShares,
		&session.FilledYes,
		&session.FilledNo,
		&session.MaxPrice,
		&pnl,
	)
	if err != nil {
		return nil, err
	}

	if endTS.Valid {
		t := endTS.Time
		session.EndedAt = &t
	}
	if pnl.Valid {
		v := pnl.Float64
		session.PnL = &v
	}

	return &session, nil
}
