package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flipmail/internal/cache"
	"flipmail/internal/database"
	"flipmail/internal/parser"
	"flipmail/internal/triage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	extractor := parser.NewExtractor()

	sink := triage.SinkFunc(func(userID string, c *parser.ShipmentCandidate, source string) error {
		sh := database.ShipmentFromCandidate(userID, c)
		sh.Source = source
		return db.Shipments.CreateOrUpdate(sh)
	})
	controller := triage.NewController(triage.DefaultConfig(), extractor, db.UnparsedEmails, sink, logger)

	parseCache := cache.NewManager(false, time.Minute)
	t.Cleanup(parseCache.Close)

	router := NewRouter(Deps{
		DB:         db,
		Controller: controller,
		Extractor:  extractor,
		ParseCache: parseCache,
		Logger:     logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
}

func richIngestPayload(messageID string) map[string]interface{} {
	return map[string]interface{}{
		"user_id":    "user-1",
		"message_id": messageID,
		"subject":    "Votre colis est en route",
		"from":       "Colissimo <no-reply@colissimo.fr>",
		"html_body": `<p>Bonjour Camille,</p>
<p>Votre commande Vinted est en cours d'acheminement.</p>
<p>Numéro de suivi : 6A12345678901</p>
<p>Montant : 12,50 €</p>`,
	}
}

func vagueIngestPayload(messageID string) map[string]interface{} {
	return map[string]interface{}{
		"user_id":    "user-1",
		"message_id": messageID,
		"subject":    "Votre colis",
		"from":       "contact@boutique.example",
		"html_body":  "<p>Votre colis est en route.</p>",
	}
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("missing security header, got %q", got)
	}

	var body map[string]interface{}
	decodeBody(t, resp, &body)
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}
}

func TestRouter_IngestAccepted(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/emails/ingest", richIngestPayload("msg-rich"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var decision triage.Decision
	decodeBody(t, resp, &decision)
	if decision.Outcome != triage.OutcomeAccepted {
		t.Fatalf("expected accepted, got %s", decision.Outcome)
	}

	// The accepted shipment is visible through the shipments API
	resp, err := http.Get(srv.URL + "/api/shipments/user-1/msg-rich")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var sh database.Shipment
	decodeBody(t, resp, &sh)
	if sh.TrackingNumber != "6A12345678901" || sh.Carrier != "colissimo" {
		t.Errorf("unexpected shipment: %+v", sh)
	}
	if sh.Source != triage.SourceRules {
		t.Errorf("expected source rules, got %s", sh.Source)
	}

	resp, err = http.Get(srv.URL + "/api/shipments/?user_id=user-1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var list struct {
		Count     int                 `json:"count"`
		Shipments []database.Shipment `json:"shipments"`
	}
	decodeBody(t, resp, &list)
	if list.Count != 1 {
		t.Errorf("expected 1 shipment, got %d", list.Count)
	}
}

func TestRouter_IngestQueuedAndQueueAPI(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/emails/ingest", vagueIngestPayload("msg-vague"))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var decision triage.Decision
	decodeBody(t, resp, &decision)
	if decision.Outcome != triage.OutcomeQueued || decision.QueueID == 0 {
		t.Fatalf("expected a queued decision, got %+v", decision)
	}

	// Re-ingesting is idempotent
	resp = postJSON(t, srv.URL+"/api/emails/ingest", vagueIngestPayload("msg-vague"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for duplicate, got %d", resp.StatusCode)
	}
	var dup triage.Decision
	decodeBody(t, resp, &dup)
	if dup.Outcome != triage.OutcomeDuplicate || dup.QueueID != decision.QueueID {
		t.Errorf("expected duplicate of %d, got %+v", decision.QueueID, dup)
	}

	resp, err := http.Get(fmt.Sprintf("%s/api/unparsed/?user_id=user-1", srv.URL))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var list struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &list)
	if list.Count != 1 {
		t.Errorf("expected 1 queued email, got %d", list.Count)
	}

	resp, err = http.Get(fmt.Sprintf("%s/api/unparsed/%d", srv.URL, decision.QueueID))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// A pending record cannot be requeued
	resp, err = http.Post(fmt.Sprintf("%s/api/unparsed/%d/requeue", srv.URL, decision.QueueID), "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/unparsed/%d", srv.URL, decision.QueueID), nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(fmt.Sprintf("%s/api/unparsed/%d", srv.URL, decision.QueueID))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRouter_IngestValidation(t *testing.T) {
	srv := newTestServer(t)

	testCases := []struct {
		name    string
		payload map[string]interface{}
	}{
		{"missing user", map[string]interface{}{"message_id": "m", "html_body": "b"}},
		{"missing message", map[string]interface{}{"user_id": "u", "html_body": "b"}},
		{"missing body", map[string]interface{}{"user_id": "u", "message_id": "m"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/emails/ingest", tc.payload)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
			resp.Body.Close()
		})
	}

	resp, err := http.Post(srv.URL+"/api/emails/ingest", "application/json", bytes.NewReader([]byte("{broken")))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRouter_ParseDryRun(t *testing.T) {
	srv := newTestServer(t)

	payload := richIngestPayload("msg-parse")
	delete(payload, "user_id")

	var first, second parser.ShipmentCandidate
	resp := postJSON(t, srv.URL+"/api/emails/parse", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &first)
	if first.Carrier != "colissimo" || !first.IsTrackingEmail {
		t.Errorf("unexpected candidate: %+v", first)
	}

	// Nothing was persisted
	listResp, err := http.Get(srv.URL + "/api/shipments/?user_id=user-1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var list struct {
		Count int `json:"count"`
	}
	decodeBody(t, listResp, &list)
	if list.Count != 0 {
		t.Errorf("dry run must not persist shipments, got %d", list.Count)
	}

	// A repeat parse serves the cached result
	resp = postJSON(t, srv.URL+"/api/emails/parse", payload)
	decodeBody(t, resp, &second)
	if second.Completeness != first.Completeness || second.Carrier != first.Carrier {
		t.Errorf("cached parse differs: %+v vs %+v", second, first)
	}
}

func TestRouter_AdminWithoutWorkers(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/admin/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics must respond without workers, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Post(srv.URL+"/api/admin/escalation/pause", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 without an escalation worker, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Post(srv.URL+"/api/admin/mailbox/fetch", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 without a mailbox fetcher, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRouter_UnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/nope")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
