package handlers

import (
	"net/http"
	"time"

	"flipmail/internal/database"
)

// HealthHandler reports service and queue health
type HealthHandler struct {
	db *database.DB
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}

	status := http.StatusOK
	if err := h.db.IsHealthy(); err != nil {
		resp["status"] = "unhealthy"
		resp["database"] = err.Error()
		status = http.StatusServiceUnavailable
	} else if counts, err := h.db.UnparsedEmails.CountByStatus(); err == nil {
		resp["queue"] = counts
	}

	writeJSON(w, status, resp)
}
