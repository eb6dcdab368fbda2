// Package health serves the liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jensholdgaard/cricket-auctionbot/internal/clock"
)

// checkTimeout bounds one readiness probe, all checks included.
const checkTimeout = 5 * time.Second

// Probe results.
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	// StatusStandby is reported by a replica that does not hold the session.
	StatusStandby = "standby"
)

// Status is the JSON body of both probes.
type Status struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult is the outcome of one named check.
type CheckResult struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// Checker is a named readiness dependency such as the store.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler answers /healthz and /readyz.
type Handler struct {
	mu       sync.RWMutex
	ready    bool
	checkers []Checker
	clock    clock.Clock
}

// NewHandler returns a Handler that is not ready until SetReady(true).
func NewHandler(clk clock.Clock, checkers ...Checker) *Handler {
	return &Handler{checkers: checkers, clock: clk}
}

// AddChecker registers another readiness check.
func (h *Handler) AddChecker(c Checker) {
	h.mu.Lock()
	h.checkers = append(h.checkers, c)
	h.mu.Unlock()
}

// SetReady flips readiness. Only the replica serving the session is ready.
func (h *Handler) SetReady(ready bool) {
	h.mu.Lock()
	h.ready = ready
	h.mu.Unlock()
}

// Routes mounts /healthz and /readyz.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.LivenessHandler())
	r.Get("/readyz", h.ReadinessHandler())
}

// LivenessHandler always answers 200 while the process serves HTTP.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Status{Status: StatusOK, Timestamp: h.timestamp()})
	}
}

// ReadinessHandler answers 200 when the replica is ready and every checker
// passes. Checks run concurrently under one deadline.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.RLock()
		ready := h.ready
		checkers := append([]Checker(nil), h.checkers...)
		h.mu.RUnlock()

		if !ready {
			writeJSON(w, http.StatusServiceUnavailable, Status{Status: StatusStandby, Timestamp: h.timestamp()})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()
		results := h.run(ctx, checkers)

		code, status := http.StatusOK, StatusReady
		for _, res := range results {
			if !res.OK {
				code, status = http.StatusServiceUnavailable, StatusNotReady
				break
			}
		}
		writeJSON(w, code, Status{Status: status, Checks: results, Timestamp: h.timestamp()})
	}
}

func (h *Handler) run(ctx context.Context, checkers []Checker) map[string]CheckResult {
	results := make(map[string]CheckResult, len(checkers))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, c := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := c.Check(ctx)
			res := CheckResult{OK: err == nil, ElapsedMS: time.Since(start).Milliseconds()}
			if err != nil {
				res.Error = err.Error()
			}
			mu.Lock()
			results[c.Name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

func (h *Handler) timestamp() string {
	return h.clock.Now().UTC().Format(time.RFC3339)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
