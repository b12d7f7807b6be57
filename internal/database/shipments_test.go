package database

import (
	"errors"
	"testing"

	"flipmail/internal/parser"
)

func testShipment(userID, messageID string) *Shipment {
	return &Shipment{
		UserID:         userID,
		MessageID:      messageID,
		TrackingNumber: "VD12345678",
		Carrier:        "mondial_relay",
		Type:           "purchase",
		Status:         "available_for_pickup",
		WithdrawalCode: "4821",
		PickupAddress:  "Tabac de la Gare, 12 rue des Lilas, 75011 Paris",
		PickupDeadline: "28/02/2026",
		ItemPrice:      "15.50",
		Currency:       "EUR",
		Marketplace:    "vinted",
		RecipientName:  "Camille",
		Completeness:   100,
		Source:         "rules",
	}
}

func TestShipmentStore_CreateOrUpdate(t *testing.T) {
	db := openTestDB(t)
	store := db.Shipments

	sh := testShipment("user-1", "msg-1")
	if err := store.CreateOrUpdate(sh); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := store.FindByMessageID("user-1", "msg-1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got.TrackingNumber != "VD12345678" || got.WithdrawalCode != "4821" || got.Completeness != 100 {
		t.Errorf("roundtrip mismatch: %+v", got)
	}

	// Re-ingesting the same email replaces the row
	update := testShipment("user-1", "msg-1")
	update.Status = "delivered"
	update.Source = "escalation"
	if err := store.CreateOrUpdate(update); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err = store.FindByMessageID("user-1", "msg-1")
	if err != nil {
		t.Fatalf("find after upsert failed: %v", err)
	}
	if got.Status != "delivered" || got.Source != "escalation" {
		t.Errorf("upsert did not replace fields: %+v", got)
	}

	list, err := store.ListByUser("user-1", 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected a single row after upsert, got %d", len(list))
	}
}

func TestShipmentStore_ListByUser(t *testing.T) {
	db := openTestDB(t)
	store := db.Shipments

	for _, messageID := range []string{"m1", "m2", "m3"} {
		if err := store.CreateOrUpdate(testShipment("user-1", messageID)); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}
	if err := store.CreateOrUpdate(testShipment("user-2", "m4")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	list, err := store.ListByUser("user-1", 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected limit to apply, got %d rows", len(list))
	}
	for _, sh := range list {
		if sh.UserID != "user-1" {
			t.Errorf("unexpected user %s in listing", sh.UserID)
		}
	}
}

func TestShipmentStore_FindByMessageID_NotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Shipments.FindByMessageID("user-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestShipmentFromCandidate(t *testing.T) {
	c := &parser.ShipmentCandidate{
		MessageID: "msg-1",
		Carrier:   "mondial_relay",
		Type:      "purchase",
		Status:    "available_for_pickup",
		Fields: parser.FieldSet{
			parser.FieldTrackingNumber: {Value: "VD12345678", Confidence: parser.ConfidenceHigh},
			parser.FieldWithdrawalCode: {Value: "4821", Confidence: parser.ConfidenceHigh},
			parser.FieldItemPrice:      {Value: "15.50", Confidence: parser.ConfidenceHigh},
			parser.FieldCurrency:       {Value: "EUR", Confidence: parser.ConfidenceHigh},
		},
		Completeness: 75,
	}

	sh := ShipmentFromCandidate("user-1", c)
	if sh.UserID != "user-1" || sh.MessageID != "msg-1" {
		t.Errorf("identity fields lost: %+v", sh)
	}
	if sh.TrackingNumber != "VD12345678" || sh.WithdrawalCode != "4821" {
		t.Errorf("extracted fields lost: %+v", sh)
	}
	if sh.ItemPrice != "15.50" || sh.Currency != "EUR" {
		t.Errorf("price fields lost: %+v", sh)
	}
	if sh.Completeness != 75 || sh.Source != "rules" {
		t.Errorf("metadata lost: %+v", sh)
	}
	if sh.PickupAddress != "" {
		t.Errorf("absent field must stay empty, got %q", sh.PickupAddress)
	}
}
