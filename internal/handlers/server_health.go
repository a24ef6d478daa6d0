package handlers

import (
	"context"
	"net/http"
	"time"

	common "github.com/bobmcallan/stock-portal/internal/common"
)

// HealthChecker probes the stock backend.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ServerHealthHandler reports whether the stock backend is reachable.
type ServerHealthHandler struct {
	logger  *common.Logger
	backend HealthChecker
}

// NewServerHealthHandler creates a new server health handler.
func NewServerHealthHandler(logger *common.Logger, backend HealthChecker) *ServerHealthHandler {
	return &ServerHealthHandler{logger: logger, backend: backend}
}

// ServeHTTP handles GET /api/server-health.
func (h *ServerHealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.backend.Health(ctx); err != nil {
		if h.logger != nil {
			h.logger.Debug().Err(err).Msg("Backend health check failed")
		}
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down"})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
