package control

import (
	"fmt"
	"sync"
	"time"

	"github.com/hivetrader/sessionbot/pkg/config"
	"go.uber.org/zap"
)

// Snapshot is a point-in-time copy of the control state. The scheduler reads
// one snapshot at the top of each poll; changes made through the control
// surface apply from the following poll.
type Snapshot struct {
	Running        bool      `json:"running"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	TargetShares   int       `json:"target_shares"`
	MaxPrice       float64   `json:"max_price"`
	Mode           string    `json:"mode"`
	MaxSessions    int       `json:"max_sessions"`
	SessionsClosed int       `json:"sessions_closed"`
	Status         string    `json:"status"`
}

// Update is a partial configuration change. Nil fields are left untouched.
type Update struct {
	TargetShares *int     `json:"shares,omitempty"`
	MaxPrice     *float64 `json:"max_price,omitempty"`
	Mode         *string  `json:"mode,omitempty"`
	MaxSessions  *int     `json:"max_sessions,omitempty"`
}

// State holds the operator-facing run flag, trade parameters and status line
// behind a single mutex. Every reader takes a full Snapshot rather than
// reading fields piecemeal.
type State struct {
	mu             sync.Mutex
	running        bool
	startedAt      time.Time
	targetShares   int
	maxPrice       float64
	mode           string
	maxSessions    int
	sessionsClosed int
	status         string
	logger         *zap.Logger
}

// New seeds the control state from configuration. The bot starts stopped.
func New(cfg *config.Config, logger *zap.Logger) *State {
	return &State{
		targetShares: cfg.TradeTargetShares,
		maxPrice:     cfg.TradeMaxPrice,
		mode:         cfg.TradeMode,
		maxSessions:  cfg.TradeMaxSessions,
		status:       "stopped",
		logger:       logger,
	}
}

// Start flips the run flag on and resets the closed-session counter so the
// session limit applies per run. Calling it while already running re-arms
// the session limit.
func (s *State) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.running = true
		s.startedAt = time.Now().UTC()
	}
	s.sessionsClosed = 0
	s.status = "running"

	s.logger.Info("trading-started",
		zap.Int("target-shares", s.targetShares),
		zap.Float64("max-price", s.maxPrice),
		zap.String("mode", s.mode))
}

// Stop flips the run flag off. Open sessions are left alone; the scheduler
// resumes them if trading restarts before expiry.
func (s *State) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	s.status = "stopped"

	s.logger.Info("trading-stopped")
}

// Configure applies a partial update after validating every provided field.
// Invalid input leaves the state untouched.
func (s *State) Configure(u Update) error {
	if u.TargetShares != nil && *u.TargetShares <= 0 {
		return fmt.Errorf("shares must be positive, got %d", *u.TargetShares)
	}
	if u.MaxPrice != nil && (*u.MaxPrice <= 0 || *u.MaxPrice >= 1.0) {
		return fmt.Errorf("max_price must be between 0 and 1.0, got %f", *u.MaxPrice)
	}
	if u.Mode != nil && *u.Mode != "paper" && *u.Mode != "live" {
		return fmt.Errorf("mode must be 'paper' or 'live', got %q", *u.Mode)
	}
	if u.MaxSessions != nil && *u.MaxSessions < 0 {
		return fmt.Errorf("max_sessions cannot be negative, got %d", *u.MaxSessions)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if u.TargetShares != nil {
		s.targetShares = *u.TargetShares
	}
	if u.MaxPrice != nil {
		s.maxPrice = *u.MaxPrice
	}
	if u.Mode != nil {
		s.mode = *u.Mode
	}
	if u.MaxSessions != nil {
		s.maxSessions = *u.MaxSessions
	}

	s.logger.Info("controls-updated",
		zap.Int("target-shares", s.targetShares),
		zap.Float64("max-price", s.maxPrice),
		zap.String("mode", s.mode),
		zap.Int("max-sessions", s.maxSessions))

	return nil
}

// Snapshot returns a consistent copy of the control state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Running:        s.running,
		StartedAt:      s.startedAt,
		TargetShares:   s.targetShares,
		MaxPrice:       s.maxPrice,
		Mode:           s.mode,
		MaxSessions:    s.maxSessions,
		SessionsClosed: s.sessionsClosed,
		Status:         s.status,
	}
}

// SetStatus records the scheduler's last action for the status endpoint.
func (s *State) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
}

// SessionClosed bumps the closed-session counter and reports whether the
// configured session limit has been reached. When it has, the run flag flips
// off so no successor session opens.
func (s *State) SessionClosed() (count int, limitReached bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessionsClosed++
	count = s.sessionsClosed

	if s.maxSessions > 0 && s.sessionsClosed >= s.maxSessions {
		s.running = false
		s.status = fmt.Sprintf("session limit reached (%d)", s.maxSessions)
		limitReached = true

		s.logger.Info("session-limit-reached",
			zap.Int("sessions-closed", s.sessionsClosed),
			zap.Int("max-sessions", s.maxSessions))
	}

	return count, limitReached
}
