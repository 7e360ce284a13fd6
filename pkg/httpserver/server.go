package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/hivetrader/sessionbot/internal/control"
	"github.com/hivetrader/sessionbot/internal/scheduler"
	"github.com/hivetrader/sessionbot/internal/storage"
	"github.com/hivetrader/sessionbot/pkg/healthprobe"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultListLimit = 50

// StatusSource exposes the scheduler's current snapshot.
type StatusSource interface {
	Status() scheduler.StatusSnapshot
}

// Server provides the control surface, reporting reads, the status stream
// and the operational endpoints.
type Server struct {
	server  *http.Server
	logger  *zap.Logger
	control *control.State
	status  StatusSource
	store   storage.Store
	hub     *Hub
}

// Config holds server configuration.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Control       *control.State
	Status        StatusSource
	Store         storage.Store
	Hub           *Hub
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	s := &Server{
		logger:  cfg.Logger,
		control: cfg.Control,
		status:  cfg.Status,
		store:   cfg.Store,
		hub:     cfg.Hub,
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Control surface
	r.Post("/start", s.handleStart)
	r.Post("/stop", s.handleStop)
	r.Post("/controls", s.handleControls)
	r.Get("/status", s.handleStatus)

	// Reporting reads
	r.Get("/api/sessions", s.handleSessions)
	r.Get("/api/fills", s.handleFills)

	// Status stream
	if cfg.Hub != nil {
		r.Get("/ws", cfg.Hub.ServeWS)
	}

	// Operational endpoints
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	s.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the server's router, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.control.Start()
	s.writeJSON(w, http.StatusOK, s.control.Snapshot())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.control.Stop()
	s.writeJSON(w, http.StatusOK, s.control.Snapshot())
}

func (s *Server) handleControls(w http.ResponseWriter, r *http.Request) {
	var update control.Update

	err := json.NewDecoder(r.Body).Decode(&update)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode controls: %w", err))
		return
	}

	err = s.control.Configure(update)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.writeJSON(w, http.StatusOK, s.control.Snapshot())
}

// statusResponse extends the scheduler snapshot with derived run time and
// aggregate realized P&L.
type statusResponse struct {
	scheduler.StatusSnapshot
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	TotalPnL       float64 `json:"total_pnl"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.status.Status()

	resp := statusResponse{StatusSnapshot: snap}
	if snap.Control.Running && !snap.Control.StartedAt.IsZero() {
		resp.ElapsedSeconds = snap.Time.Sub(snap.Control.StartedAt).Seconds()
	}

	total, err := s.store.TotalPnL(r.Context())
	if err != nil {
		s.logger.Warn("total-pnl-read-failed", zap.Error(err))
	} else {
		resp.TotalPnL = total
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions(r.Context(), listLimit(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleFills(w http.ResponseWriter, r *http.Request) {
	fills, err := s.store.ListFills(r.Context(), listLimit(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, fills)
}

func listLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultListLimit
	}

	return limit
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		s.logger.Warn("write-response-failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
