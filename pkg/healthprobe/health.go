package healthprobe

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// HealthChecker provides liveness and readiness checks. The trading loop
// heartbeats the checker every cycle; liveness degrades when the loop has
// been silent longer than the stale threshold, which catches a scheduler
// stalled on an external call without killing the process.
type HealthChecker struct {
	startTime      time.Time
	ready          atomic.Bool
	lastBeat       atomic.Int64 // unix nanos, 0 = no beat yet
	staleThreshold time.Duration
}

// New creates a new HealthChecker. staleThreshold bounds how long the
// scheduler may go without a heartbeat before /health reports degraded;
// zero disables staleness checking.
func New(staleThreshold time.Duration) *HealthChecker {
	return &HealthChecker{
		startTime:      time.Now(),
		staleThreshold: staleThreshold,
	}
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Beat records a scheduler heartbeat.
func (h *HealthChecker) Beat() {
	h.lastBeat.Store(time.Now().UnixNano())
}

func (h *HealthChecker) stale() bool {
	if h.staleThreshold <= 0 {
		return false
	}

	beat := h.lastBeat.Load()
	if beat == 0 {
		// Loop has not started yet; readiness covers this window.
		return false
	}

	return time.Since(time.Unix(0, beat)) > h.staleThreshold
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	LastBeat string `json:"last_beat,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Returns 200 OK while the loop is beating, 503 when it has gone stale.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status: "healthy",
			Uptime: time.Since(h.startTime).String(),
		}

		if beat := h.lastBeat.Load(); beat != 0 {
			resp.LastBeat = time.Unix(0, beat).UTC().Format(time.RFC3339)
		}

		code := http.StatusOK
		if h.stale() {
			resp.Status = "degraded"
			resp.Message = "trading loop heartbeat is stale"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK if ready, 503 Service Unavailable if not.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			resp := HealthResponse{
				Status:  "not_ready",
				Message: "application is starting",
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		resp := HealthResponse{
			Status: "ready",
			Uptime: time.Since(h.startTime).String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
