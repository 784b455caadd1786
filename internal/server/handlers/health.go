package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/iudanet/datasync/pkg/api"
)

// Pinger проверяет доступность хранилища
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler обрабатывает health check запросы
type HealthHandler struct {
	logger  *slog.Logger
	db      Pinger
	version string
}

// NewHealthHandler создает новый handler для health check.
// db может быть nil, тогда хранилище не проверяется.
func NewHealthHandler(logger *slog.Logger, db Pinger, version string) *HealthHandler {
	return &HealthHandler{
		logger:  logger,
		db:      db,
		version: version,
	}
}

// Health обрабатывает GET /api/v1/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{
		Status:  "ok",
		Version: h.version,
	}

	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			h.logger.Error("Database is unavailable", "error", err)
			resp.Status = "unavailable"
			sendJSON(w, h.logger, resp, http.StatusServiceUnavailable)
			return
		}
	}

	sendJSON(w, h.logger, resp, http.StatusOK)
}
