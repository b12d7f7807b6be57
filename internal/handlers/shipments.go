package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"flipmail/internal/database"
)

// ShipmentHandler exposes accepted shipment records
type ShipmentHandler struct {
	store *database.ShipmentStore
}

// NewShipmentHandler creates a new shipment handler
func NewShipmentHandler(store *database.ShipmentStore) *ShipmentHandler {
	return &ShipmentHandler{store: store}
}

// List handles GET /api/shipments?user_id=&limit=
func (h *ShipmentHandler) List(w http.ResponseWriter, r *http.Request) {
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

	shipments, err := h.store.ListByUser(userID, limit)
	if err != nil {
		http.Error(w, "Failed to list shipments", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(shipments),
		"shipments": shipments,
	})
}

// Get handles GET /api/shipments/{user_id}/{message_id}
func (h *ShipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	messageID := chi.URLParam(r, "messageID")
	if userID == "" || messageID == "" {
		http.Error(w, "user_id and message_id are required", http.StatusBadRequest)
		return
	}
	sh, err := h.store.FindByMessageID(userID, messageID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			http.Error(w, "Shipment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load shipment", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}
