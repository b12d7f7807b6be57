package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"flipmail/internal/cache"
	"flipmail/internal/email"
	"flipmail/internal/parser"
	"flipmail/internal/triage"
)

// EmailHandler handles email ingestion HTTP requests
type EmailHandler struct {
	controller *triage.Controller
	extractor  *parser.Extractor
	cache      *cache.Manager
}

// NewEmailHandler creates a new email handler. The cache may be nil
// to disable parse result caching.
func NewEmailHandler(controller *triage.Controller, extractor *parser.Extractor, cacheManager *cache.Manager) *EmailHandler {
	return &EmailHandler{controller: controller, extractor: extractor, cache: cacheManager}
}

// IngestRequest is the payload for POST /api/emails/ingest
type IngestRequest struct {
	UserID     string    `json:"user_id"`
	MessageID  string    `json:"message_id"`
	Provider   string    `json:"provider"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	PlainBody  string    `json:"plain_body"`
	HTMLBody   string    `json:"html_body"`
	ReceivedAt time.Time `json:"received_at"`
	Labels     []string  `json:"labels"`
}

func (req *IngestRequest) toRawEmail() *email.RawEmail {
	provider := req.Provider
	if provider == "" {
		provider = email.ProviderGmail
	}
	return &email.RawEmail{
		MessageID: req.MessageID,
		Provider:  provider,
		From:      req.From,
		Subject:   req.Subject,
		PlainText: req.PlainBody,
		HTMLText:  req.HTMLBody,
		Date:      req.ReceivedAt,
		Labels:    req.Labels,
	}
}

// Ingest parses one email and routes it through the triage policy.
// Accepted emails return 200, queued emails 202; re-ingesting a
// queued email is a no-op returning the existing queue entry.
func (h *EmailHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.MessageID == "" {
		http.Error(w, "user_id and message_id are required", http.StatusBadRequest)
		return
	}
	if req.PlainBody == "" && req.HTMLBody == "" {
		http.Error(w, "email body is required", http.StatusBadRequest)
		return
	}

	decision, err := h.controller.Ingest(req.UserID, req.toRawEmail())
	if err != nil {
		http.Error(w, "Failed to ingest email", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if decision.Outcome == triage.OutcomeQueued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, decision)
}

// Parse runs the extraction pipeline without persisting anything.
// Used to preview what the rule set makes of an email.
func (h *EmailHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if req.PlainBody == "" && req.HTMLBody == "" {
		http.Error(w, "email body is required", http.StatusBadRequest)
		return
	}

	raw := req.toRawEmail()
	key := cache.Key(raw.Subject, raw.Body())
	if h.cache != nil {
		if candidate := h.cache.Get(key); candidate != nil {
			writeJSON(w, http.StatusOK, candidate)
			return
		}
	}

	candidate := h.extractor.Parse(raw)
	if h.cache != nil {
		h.cache.Set(key, candidate)
	}
	writeJSON(w, http.StatusOK, candidate)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
