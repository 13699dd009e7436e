package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go-users-api/pkg/apierror"
)

const readinessTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

// NewHealthHandler accepts a nil pinger for the in-memory store.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		if err := h.db.Health(ctx); err != nil {
			slog.Warn("readiness check failed", "error", err)
			writeError(w, apierror.New("NOT_READY", "database unavailable", "", http.StatusServiceUnavailable))
			return
		}
	}

	writeSuccess(w, http.StatusOK, map[string]string{"status": "ready"}, nil)
}
