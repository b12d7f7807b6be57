package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"flipmail/internal/database"
	"flipmail/internal/triage"
)

// QueueHandler exposes the unparsed email review queue
type QueueHandler struct {
	store      *database.UnparsedEmailStore
	controller *triage.Controller
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(store *database.UnparsedEmailStore, controller *triage.Controller) *QueueHandler {
	return &QueueHandler{store: store, controller: controller}
}

// List handles GET /api/unparsed?user_id=&status=&limit=
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := h.store.ListByStatus(userID, r.URL.Query().Get("status"), limit)
	if err != nil {
		http.Error(w, "Failed to list queue", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(records),
		"emails": records,
	})
}

// Get handles GET /api/unparsed/{id}
func (h *QueueHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	rec, err := h.store.FindByID(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Email not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load email", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Requeue handles POST /api/unparsed/{id}/requeue. Only failed
// entries can go back to pending. A retry cooldown applies unless
// force=true is passed.
func (h *QueueHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	force := r.URL.Query().Get("force") == "true"
	if err := h.controller.Requeue(id, force); err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			http.Error(w, "Email not found", http.StatusNotFound)
		case errors.Is(err, database.ErrConflict), errors.Is(err, triage.ErrInvalidTransition):
			http.Error(w, "Email is not in a failed state", http.StatusConflict)
		case errors.Is(err, triage.ErrRateLimited):
			http.Error(w, err.Error(), http.StatusTooManyRequests)
		default:
			http.Error(w, "Failed to requeue email", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/unparsed/{id}
func (h *QueueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Email not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete email", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		http.Error(w, "Invalid email ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
