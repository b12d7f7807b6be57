package cache

import (
	"testing"
	"time"

	"flipmail/internal/parser"
)

func TestKey(t *testing.T) {
	a := Key("Votre colis", "corps")
	b := Key("Votre colis", "corps")
	if a != b {
		t.Error("identical content must yield identical keys")
	}
	if len(a) != 64 {
		t.Errorf("expected a hex sha256 key, got %d chars", len(a))
	}

	if Key("Votre colis", "autre corps") == a {
		t.Error("different bodies must yield different keys")
	}
	// The separator keeps subject/body boundaries from colliding
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("subject/body boundary must be part of the key")
	}
}

func TestManager_GetSet(t *testing.T) {
	m := NewManager(false, time.Minute)
	defer m.Close()

	key := Key("Votre colis", "corps")
	if got := m.Get(key); got != nil {
		t.Errorf("expected miss on empty cache, got %+v", got)
	}

	candidate := &parser.ShipmentCandidate{MessageID: "msg-1", Carrier: "colissimo"}
	m.Set(key, candidate)

	got := m.Get(key)
	if got == nil {
		t.Fatal("expected hit after set")
	}
	if got.MessageID != "msg-1" || got.Carrier != "colissimo" {
		t.Errorf("unexpected cached candidate: %+v", got)
	}
}

func TestManager_Expiry(t *testing.T) {
	m := NewManager(false, 10*time.Millisecond)
	defer m.Close()

	key := Key("s", "b")
	m.Set(key, &parser.ShipmentCandidate{MessageID: "msg-1"})

	time.Sleep(20 * time.Millisecond)
	if got := m.Get(key); got != nil {
		t.Errorf("expected expired entry to miss, got %+v", got)
	}
}

func TestManager_Disabled(t *testing.T) {
	m := NewManager(true, time.Minute)
	defer m.Close()

	key := Key("s", "b")
	m.Set(key, &parser.ShipmentCandidate{MessageID: "msg-1"})
	if got := m.Get(key); got != nil {
		t.Errorf("disabled cache must always miss, got %+v", got)
	}
}
