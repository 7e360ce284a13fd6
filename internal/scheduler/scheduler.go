package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hivetrader/sessionbot/internal/control"
	"github.com/hivetrader/sessionbot/internal/execution"
	"github.com/hivetrader/sessionbot/internal/storage"
	"github.com/hivetrader/sessionbot/pkg/types"
	"go.uber.org/zap"
)

// State is the scheduler's lifecycle state.
type State string

const (
	StateIdle           State = "IDLE"
	StateAwaitingMarket State = "AWAITING_MARKET"
	StateInSession      State = "IN_SESSION"
	StateSettling       State = "SETTLING"
)

// MarketFeed resolves the current market instance and latest prices. Both
// calls swallow fetch errors: nil / false means "nothing this cycle".
type MarketFeed interface {
	CurrentMarket(ctx context.Context) *types.MarketInstance
	LatestPrices(ctx context.Context) (types.PricePair, bool)
	Invalidate()
}

// Broadcaster receives one status snapshot per poll.
type Broadcaster interface {
	Broadcast(v interface{})
}

// Heartbeat is pinged once per poll so liveness can detect a stalled loop.
type Heartbeat interface {
	Beat()
}

// SessionStatus is the current session as seen by the status surface.
type SessionStatus struct {
	ID           string     `json:"id"`
	ConditionID  string     `json:"condition_id,omitempty"`
	Question     string     `json:"question,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Mode         string     `json:"mode"`
	TargetShares int        `json:"target_shares"`
	FilledYes    int        `json:"filled_yes"`
	FilledNo     int        `json:"filled_no"`
	MaxPrice     float64    `json:"max_price"`
}

// StatusSnapshot is published to the stream hub every poll and served on the
// status endpoint.
type StatusSnapshot struct {
	State   State            `json:"state"`
	Control control.Snapshot `json:"control"`
	Session *SessionStatus   `json:"session,omitempty"`
	Time    time.Time        `json:"time"`
}

// Scheduler runs the session lifecycle: open, associate, trade, settle. One
// goroutine owns the loop; everything shared with the HTTP handlers goes
// through the control state or the mutex-guarded session fields.
type Scheduler struct {
	control      *control.State
	feed         MarketFeed
	store        storage.Store
	trader       execution.Trader
	broadcaster  Broadcaster
	heartbeat    Heartbeat
	pollInterval time.Duration
	idleInterval time.Duration
	logger       *zap.Logger
	now          func() time.Time

	mu      sync.Mutex
	state   State
	session *types.Session
	expiry  time.Time
}

// Config holds scheduler configuration.
type Config struct {
	Control      *control.State
	Feed         MarketFeed
	Store        storage.Store
	Trader       execution.Trader
	Broadcaster  Broadcaster // optional
	Heartbeat    Heartbeat   // optional
	PollInterval time.Duration
	IdleInterval time.Duration
	Logger       *zap.Logger
}

// New creates a new scheduler in the Idle state.
func New(cfg *Config) *Scheduler {
	return &Scheduler{
		control:      cfg.Control,
		feed:         cfg.Feed,
		store:        cfg.Store,
		trader:       cfg.Trader,
		broadcaster:  cfg.Broadcaster,
		heartbeat:    cfg.Heartbeat,
		pollInterval: cfg.PollInterval,
		idleInterval: cfg.IdleInterval,
		logger:       cfg.Logger,
		now:          time.Now,
		state:        StateIdle,
	}
}

// Run drives the poll loop until the context is cancelled. Nothing in the
// loop is fatal: every failure is surfaced on the status string and retried
// on a later poll.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler-starting",
		zap.Duration("poll-interval", s.pollInterval),
		zap.Duration("idle-interval", s.idleInterval))

	for {
		start := s.now()
		interval := s.cycle(ctx)
		CycleDurationSeconds.Observe(s.now().Sub(start).Seconds())
		CyclesTotal.Inc()

		s.publish()
		if s.heartbeat != nil {
			s.heartbeat.Beat()
		}

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler-stopping")
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// cycle runs one poll and returns how long to sleep before the next one.
// The control snapshot is read exactly once, at the top; configuration
// changes land on the following poll.
func (s *Scheduler) cycle(ctx context.Context) time.Duration {
	snap := s.control.Snapshot()

	if !snap.Running {
		// Any open session is left untouched until trading resumes.
		s.setState(StateIdle)
		return s.idleInterval
	}

	session := s.currentSession()
	if session == nil {
		session = s.openSession(ctx, snap)
		if session == nil {
			return s.pollInterval
		}
	}

	if !session.Associated() {
		s.setState(StateAwaitingMarket)

		instance := s.feed.CurrentMarket(ctx)
		if instance == nil {
			s.control.SetStatus("awaiting market data")
			return s.pollInterval
		}

		if !s.associate(ctx, session, instance) {
			return s.pollInterval
		}
	}

	if s.expired() {
		s.settle(ctx, session)
		return s.pollInterval
	}

	s.setState(StateInSession)

	prices, ok := s.feed.LatestPrices(ctx)
	if !ok {
		s.control.SetStatus("awaiting price data")
		return s.pollInterval
	}

	for _, side := range types.Sides() {
		s.tryEnter(ctx, session, side, prices.Price(side), snap)
	}

	return s.pollInterval
}

// openSession creates the successor session, a placeholder until a market is
// associated. Mode, target and ceiling are captured from the snapshot.
func (s *Scheduler) openSession(ctx context.Context, snap control.Snapshot) *types.Session {
	session := &types.Session{
		ID:           uuid.NewString(),
		StartedAt:    s.now().UTC(),
		Mode:         snap.Mode,
		TargetShares: snap.TargetShares,
		MaxPrice:     snap.MaxPrice,
	}

	err := s.store.CreateSession(ctx, session)
	if err != nil {
		s.control.SetStatus(fmt.Sprintf("session open failed: %v", err))
		s.logger.Error("session-open-failed", zap.Error(err))
		return nil
	}

	s.mu.Lock()
	s.session = session
	s.expiry = time.Time{}
	s.mu.Unlock()

	SessionsOpenedTotal.Inc()

	s.logger.Info("session-opened",
		zap.String("session-id", session.ID),
		zap.String("mode", session.Mode),
		zap.Int("target-shares", session.TargetShares),
		zap.Float64("max-price", session.MaxPrice))

	return session
}

// associate attaches the market identity to the session exactly once and
// captures the expiry from the instance's resolution time.
func (s *Scheduler) associate(ctx context.Context, session *types.Session, instance *types.MarketInstance) bool {
	err := s.store.AssociateMarket(ctx, session.ID, instance.ConditionID, instance.Question)
	if err != nil {
		s.control.SetStatus(fmt.Sprintf("market association failed: %v", err))
		s.logger.Error("market-association-failed",
			zap.String("session-id", session.ID),
			zap.Error(err))
		return false
	}

	s.mu.Lock()
	session.ConditionID = instance.ConditionID
	session.Question = instance.Question
	s.expiry = instance.EndDate
	s.mu.Unlock()

	s.control.SetStatus(fmt.Sprintf("trading %s", instance.Question))

	s.logger.Info("market-associated",
		zap.String("session-id", session.ID),
		zap.String("condition-id", instance.ConditionID),
		zap.Time("expires-at", instance.EndDate))

	return true
}

// tryEnter applies the entry rule for one side: price at or below the
// ceiling and the counter below target fills the entire remainder in one
// shot. The in-memory counter moves only after the store commits.
func (s *Scheduler) tryEnter(ctx context.Context, session *types.Session, side types.Side, price float64, snap control.Snapshot) {
	filled := session.Filled(side)
	if price > snap.MaxPrice || filled >= snap.TargetShares {
		return
	}

	remaining := snap.TargetShares - filled

	fill, err := s.trader.PlaceOrder(ctx, session, side, price, remaining)
	if err != nil {
		s.control.SetStatus(fmt.Sprintf("order failed: %v", err))
		s.logger.Error("order-failed",
			zap.String("session-id", session.ID),
			zap.String("side", string(side)),
			zap.Error(err))
		return
	}

	err = s.store.RecordFill(ctx, fill)
	if err != nil {
		s.control.SetStatus(fmt.Sprintf("fill write failed: %v", err))
		s.logger.Error("fill-write-failed",
			zap.String("session-id", session.ID),
			zap.String("side", string(side)),
			zap.Error(err))
		return
	}

	s.mu.Lock()
	if side == types.SideYes {
		session.FilledYes += remaining
	} else {
		session.FilledNo += remaining
	}
	s.mu.Unlock()

	FillsTotal.WithLabelValues(string(side)).Inc()

	s.control.SetStatus(fmt.Sprintf("filled %s %d @ %.2f", side, remaining, price))

	s.logger.Info("side-filled",
		zap.String("session-id", session.ID),
		zap.String("side", string(side)),
		zap.Int("shares", remaining),
		zap.Float64("price", price))
}

// settle closes the expired session: P&L from recorded fills, close-once
// through the store, closure counter bump, and the cached market dropped so
// the successor resolves a fresh instance. A store failure keeps the session
// open; expiry has passed, so the next poll lands back here.
func (s *Scheduler) settle(ctx context.Context, session *types.Session) {
	s.setState(StateSettling)

	yes, no, err := s.store.SessionTotals(ctx, session.ID)
	if err != nil {
		s.control.SetStatus(fmt.Sprintf("settlement failed: %v", err))
		s.logger.Error("settlement-totals-failed",
			zap.String("session-id", session.ID),
			zap.Error(err))
		return
	}

	pnl := ComputePnL(yes, no)
	endedAt := s.now().UTC()

	err = s.store.CloseSession(ctx, session.ID, endedAt, pnl)
	if err != nil && !errors.Is(err, types.ErrSessionClosed) {
		s.control.SetStatus(fmt.Sprintf("settlement failed: %v", err))
		s.logger.Error("session-close-failed",
			zap.String("session-id", session.ID),
			zap.Error(err))
		return
	}

	SessionsClosedTotal.Inc()
	RealizedPnL.Add(pnl)

	count, limitReached := s.control.SessionClosed()
	if !limitReached {
		s.control.SetStatus(fmt.Sprintf("session settled, pnl %.2f", pnl))
	}

	s.logger.Info("session-settled",
		zap.String("session-id", session.ID),
		zap.Int("yes-shares", yes.Shares),
		zap.Int("no-shares", no.Shares),
		zap.Float64("pnl", pnl),
		zap.Int("sessions-closed", count),
		zap.Bool("limit-reached", limitReached))

	s.feed.Invalidate()

	s.mu.Lock()
	s.session = nil
	s.expiry = time.Time{}
	s.state = StateAwaitingMarket
	s.mu.Unlock()
}

// Status returns the snapshot the status endpoint and stream publish.
func (s *Scheduler) Status() StatusSnapshot {
	snap := StatusSnapshot{
		State:   s.stateNow(),
		Control: s.control.Snapshot(),
		Time:    s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		status := &SessionStatus{
			ID:           s.session.ID,
			ConditionID:  s.session.ConditionID,
			Question:     s.session.Question,
			StartedAt:    s.session.StartedAt,
			Mode:         s.session.Mode,
			TargetShares: s.session.TargetShares,
			FilledYes:    s.session.FilledYes,
			FilledNo:     s.session.FilledNo,
			MaxPrice:     s.session.MaxPrice,
		}
		if !s.expiry.IsZero() {
			expiry := s.expiry
			status.ExpiresAt = &expiry
		}
		snap.Session = status
	}

	return snap
}

func (s *Scheduler) publish() {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Broadcast(s.Status())
}

func (s *Scheduler) currentSession() *types.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *Scheduler) expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.expiry.IsZero() && !s.now().Before(s.expiry)
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Scheduler) stateNow() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
