package handlers

import (
	"net/http"
	"time"

	"flipmail/internal/workers"
)

// AdminHandler controls the escalation worker and the mailbox fetcher
type AdminHandler struct {
	escalation *workers.EscalationWorker
	fetcher    *workers.MailboxFetcher
}

// NewAdminHandler creates a new admin handler. Either collaborator may
// be nil when the deployment runs without it.
func NewAdminHandler(escalation *workers.EscalationWorker, fetcher *workers.MailboxFetcher) *AdminHandler {
	return &AdminHandler{escalation: escalation, fetcher: fetcher}
}

// PauseEscalation handles POST /api/admin/escalation/pause
func (h *AdminHandler) PauseEscalation(w http.ResponseWriter, r *http.Request) {
	if h.escalation == nil {
		http.Error(w, "Escalation worker is not configured", http.StatusNotFound)
		return
	}
	h.escalation.Pause()
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

// ResumeEscalation handles POST /api/admin/escalation/resume
func (h *AdminHandler) ResumeEscalation(w http.ResponseWriter, r *http.Request) {
	if h.escalation == nil {
		http.Error(w, "Escalation worker is not configured", http.StatusNotFound)
		return
	}
	h.escalation.Resume()
	writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

// FetchMailbox handles POST /api/admin/mailbox/fetch. The fetch runs
// synchronously; there is no background polling schedule.
func (h *AdminHandler) FetchMailbox(w http.ResponseWriter, r *http.Request) {
	if h.fetcher == nil {
		http.Error(w, "Mailbox fetch is not configured", http.StatusNotFound)
		return
	}
	summary := h.fetcher.FetchOnce()
	writeJSON(w, http.StatusOK, summary)
}

// Metrics handles GET /api/admin/metrics
func (h *AdminHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{}

	if h.escalation != nil {
		m := h.escalation.GetMetrics()
		resp["escalation"] = map[string]interface{}{
			"running":    h.escalation.IsRunning(),
			"paused":     h.escalation.IsPaused(),
			"total_runs": m.TotalRuns.Load(),
			"picked":     m.Picked.Load(),
			"processed":  m.Processed.Load(),
			"failed":     m.Failed.Load(),
			"last_run":   loadTime(m.LastRun.Load()),
			"last_error": loadString(m.LastError.Load()),
		}
	}
	if h.fetcher != nil {
		m := h.fetcher.GetMetrics()
		resp["mailbox"] = map[string]interface{}{
			"total_runs": m.TotalRuns.Load(),
			"fetched":    m.Fetched.Load(),
			"accepted":   m.Accepted.Load(),
			"queued":     m.Queued.Load(),
			"duplicates": m.Duplicates.Load(),
			"errors":     m.Errors.Load(),
			"last_run":   loadTime(m.LastRun.Load()),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func loadTime(v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return t
	}
	return nil
}

func loadString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
