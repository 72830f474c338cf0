package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by *database.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

// NewHealthHandler returns a liveness handler. db may be nil when running on
// the memory store.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = "unreachable"
		}
	}

	writeJSON(w, status, body)
}
