package workers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"flipmail/internal/email"
	"flipmail/internal/parser"
	"flipmail/internal/triage"
)

type stubEscalator struct {
	enabled bool
	result  parser.EscalationResult
	err     error
	calls   int
}

func (s *stubEscalator) Escalate(ctx context.Context, rec *email.UnparsedEmail) (parser.EscalationResult, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubEscalator) HealthCheck(ctx context.Context) error { return nil }
func (s *stubEscalator) IsEnabled() bool                       { return s.enabled }

type recordingSink struct {
	sources []string
}

func (s *recordingSink) CreateShipment(userID string, c *parser.ShipmentCandidate, source string) error {
	s.sources = append(s.sources, source)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func queueVagueEmail(t *testing.T, c *triage.Controller, messageID string) int64 {
	t.Helper()
	raw := &email.RawEmail{
		MessageID: messageID,
		Provider:  email.ProviderGmail,
		From:      "contact@boutique.example",
		Subject:   "Votre colis",
		HTMLText:  "<p>Votre colis est en route.</p>",
	}
	decision, err := c.Ingest("user-1", raw)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if decision.Outcome != triage.OutcomeQueued {
		t.Fatalf("fixture email must queue, got %s", decision.Outcome)
	}
	return decision.QueueID
}

func newEscalationWorker(escalator parser.Escalator) (*EscalationWorker, *triage.Controller, *triage.MemStore, *recordingSink) {
	store := triage.NewMemStore()
	sink := &recordingSink{}
	controller := triage.NewController(triage.DefaultConfig(), parser.NewExtractor(), store, sink, discardLogger())

	worker := NewEscalationWorker(&EscalationConfig{
		CheckInterval:  time.Hour,
		BatchSize:      10,
		UserID:         "user-1",
		RequestTimeout: 5 * time.Second,
	}, controller, store, escalator, discardLogger())

	return worker, controller, store, sink
}

func TestEscalationWorker_DrainOnce(t *testing.T) {
	escalator := &stubEscalator{
		enabled: true,
		result: parser.EscalationResult{
			TrackingNumber: "6A12345678901",
			Carrier:        "colissimo",
			Confidence:     0.9,
		},
	}
	worker, controller, store, sink := newEscalationWorker(escalator)

	first := queueVagueEmail(t, controller, "msg-1")
	second := queueVagueEmail(t, controller, "msg-2")

	worker.DrainOnce()

	if escalator.calls != 2 {
		t.Errorf("expected 2 escalation calls, got %d", escalator.calls)
	}
	for _, id := range []int64{first, second} {
		rec, err := store.FindByID(id)
		if err != nil {
			t.Fatalf("record not found: %v", err)
		}
		if rec.Status != email.StatusProcessed {
			t.Errorf("record %d: expected processed, got %s", id, rec.Status)
		}
	}
	if len(sink.sources) != 2 {
		t.Fatalf("expected 2 shipment emissions, got %d", len(sink.sources))
	}
	for _, source := range sink.sources {
		if source != triage.SourceEscalation {
			t.Errorf("expected source %s, got %s", triage.SourceEscalation, source)
		}
	}

	m := worker.GetMetrics()
	if m.TotalRuns.Load() != 1 || m.Picked.Load() != 2 || m.Processed.Load() != 2 || m.Failed.Load() != 0 {
		t.Errorf("unexpected metrics: runs=%d picked=%d processed=%d failed=%d",
			m.TotalRuns.Load(), m.Picked.Load(), m.Processed.Load(), m.Failed.Load())
	}

	// A second pass finds an empty queue
	worker.DrainOnce()
	if escalator.calls != 2 {
		t.Errorf("drained queue must not call the escalator again, got %d calls", escalator.calls)
	}
}

func TestEscalationWorker_DrainOnce_Failure(t *testing.T) {
	escalator := &stubEscalator{enabled: true, err: errors.New("model unreachable")}
	worker, controller, store, sink := newEscalationWorker(escalator)

	id := queueVagueEmail(t, controller, "msg-1")

	worker.DrainOnce()

	rec, err := store.FindByID(id)
	if err != nil {
		t.Fatalf("record not found: %v", err)
	}
	if rec.Status != email.StatusFailed {
		t.Errorf("expected failed, got %s", rec.Status)
	}
	if rec.ErrorMessage != "model unreachable" {
		t.Errorf("unexpected error message %q", rec.ErrorMessage)
	}
	if len(sink.sources) != 0 {
		t.Error("failed escalation must not emit a shipment")
	}

	m := worker.GetMetrics()
	if m.Failed.Load() != 1 || m.Processed.Load() != 0 {
		t.Errorf("unexpected metrics: processed=%d failed=%d", m.Processed.Load(), m.Failed.Load())
	}

	// Failed records are terminal until requeued
	worker.DrainOnce()
	if escalator.calls != 1 {
		t.Errorf("failed record must not be retried automatically, got %d calls", escalator.calls)
	}
}

func TestEscalationWorker_PauseResume(t *testing.T) {
	worker, _, _, _ := newEscalationWorker(&stubEscalator{enabled: true})

	if worker.IsPaused() {
		t.Error("worker must start unpaused")
	}
	worker.Pause()
	if !worker.IsPaused() {
		t.Error("expected paused")
	}
	worker.Resume()
	if worker.IsPaused() {
		t.Error("expected resumed")
	}
}

func TestEscalationWorker_Stop(t *testing.T) {
	worker, _, _, _ := newEscalationWorker(&stubEscalator{enabled: true})

	if !worker.IsRunning() {
		t.Error("worker must report running before stop")
	}
	worker.Stop()
	if worker.IsRunning() {
		t.Error("worker must report stopped after stop")
	}
}
