package triage

import (
	"errors"
	"testing"

	"flipmail/internal/database"
	"flipmail/internal/email"
)

func queuedRecord(userID, messageID string) *email.UnparsedEmail {
	return &email.UnparsedEmail{
		UserID:    userID,
		MessageID: messageID,
		Provider:  email.ProviderGmail,
		Subject:   "Votre colis",
		Sender:    "no-reply@colissimo.fr",
		Body:      "corps",
	}
}

func TestMemStore_CreateUnique(t *testing.T) {
	store := NewMemStore()

	rec := queuedRecord("user-1", "msg-1")
	if err := store.Create(rec); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if rec.ID == 0 {
		t.Error("expected an assigned id")
	}
	if rec.Status != email.StatusPending {
		t.Errorf("expected pending, got %s", rec.Status)
	}

	if err := store.Create(queuedRecord("user-1", "msg-1")); !errors.Is(err, database.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if err := store.Create(queuedRecord("user-2", "msg-1")); err != nil {
		t.Errorf("same message for another user must insert, got %v", err)
	}
}

func TestMemStore_TransitionStatus(t *testing.T) {
	store := NewMemStore()
	rec := queuedRecord("user-1", "msg-1")
	if err := store.Create(rec); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := store.TransitionStatus(rec.ID, email.StatusPending, email.StatusProcessing, ""); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	// Stale from-status loses the race
	if err := store.TransitionStatus(rec.ID, email.StatusPending, email.StatusProcessing, ""); !errors.Is(err, database.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	if err := store.TransitionStatus(rec.ID, email.StatusProcessing, email.StatusFailed, "boom"); err != nil {
		t.Fatalf("transition to failed: %v", err)
	}
	got, _ := store.FindByID(rec.ID)
	if got.ErrorMessage != "boom" {
		t.Errorf("unexpected error message %q", got.ErrorMessage)
	}
	if got.EscalatedAt == nil {
		t.Error("failure must stamp escalated_at")
	}

	if err := store.TransitionStatus(999, email.StatusPending, email.StatusProcessing, ""); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemStore_MarkProcessed(t *testing.T) {
	store := NewMemStore()
	rec := queuedRecord("user-1", "msg-1")
	if err := store.Create(rec); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := store.MarkProcessed(rec.ID); !errors.Is(err, database.ErrConflict) {
		t.Errorf("pending record must not complete, got %v", err)
	}

	if err := store.TransitionStatus(rec.ID, email.StatusPending, email.StatusProcessing, ""); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if err := store.MarkProcessed(rec.ID); err != nil {
		t.Fatalf("mark processed failed: %v", err)
	}

	got, _ := store.FindByID(rec.ID)
	if got.Status != email.StatusProcessed {
		t.Errorf("expected processed, got %s", got.Status)
	}
	if got.ProcessedAt == nil || got.EscalatedAt == nil {
		t.Error("completion must stamp processed_at and escalated_at")
	}
}

func TestMemStore_FindPendingByUser(t *testing.T) {
	store := NewMemStore()
	for _, messageID := range []string{"a", "b", "c"} {
		if err := store.Create(queuedRecord("user-1", messageID)); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	if err := store.Create(queuedRecord("user-2", "d")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	records, err := store.FindPendingByUser("user-1", 2)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].MessageID != "a" || records[1].MessageID != "b" {
		t.Errorf("expected oldest first, got %s then %s", records[0].MessageID, records[1].MessageID)
	}
}

func TestMemStore_Delete(t *testing.T) {
	store := NewMemStore()
	rec := queuedRecord("user-1", "msg-1")
	if err := store.Create(rec); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := store.Delete(rec.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.FindByID(rec.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// The key is released for re-insertion
	if err := store.Create(queuedRecord("user-1", "msg-1")); err != nil {
		t.Errorf("re-create after delete failed: %v", err)
	}

	if err := store.Delete(999); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
