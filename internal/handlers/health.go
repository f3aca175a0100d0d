package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/acp-commerce/api/internal/platform/httpx"
	"github.com/acp-commerce/api/internal/repositories"
)

const readinessTimeout = 2 * time.Second

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	pinger repositories.Pinger
	clock  func() time.Time
}

// HealthOption customises the health handlers.
type HealthOption func(*HealthHandlers)

// WithReadinessPinger wires the store ping used by /readyz.
func WithReadinessPinger(pinger repositories.Pinger) HealthOption {
	return func(h *HealthHandlers) {
		h.pinger = pinger
	}
}

// WithHealthClock overrides the clock, for tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewHealthHandlers constructs health handlers.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": h.clock().UTC().Format(time.RFC3339),
	})
}

// Readyz reports dependency readiness by pinging the store when configured.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			httpx.WriteError(r.Context(), w,
				httpx.NewError(httpx.TypeServiceUnavailable, "not_ready", "store is unavailable", http.StatusServiceUnavailable))
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": h.clock().UTC().Format(time.RFC3339),
	})
}
