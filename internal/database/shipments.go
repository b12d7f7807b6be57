package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"flipmail/internal/parser"
)

// Shipment is an accepted shipment update persisted from a parsed
// candidate
type Shipment struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"user_id"`
	MessageID      string    `json:"message_id"`
	TrackingNumber string    `json:"tracking_number"`
	Carrier        string    `json:"carrier"`
	Type           string    `json:"type"`
	Status         string    `json:"status"`
	WithdrawalCode string    `json:"withdrawal_code,omitempty"`
	QRCode         string    `json:"qr_code,omitempty"`
	PickupAddress  string    `json:"pickup_address,omitempty"`
	PickupDeadline string    `json:"pickup_deadline,omitempty"`
	ItemPrice      string    `json:"item_price,omitempty"`
	Currency       string    `json:"currency,omitempty"`
	Marketplace    string    `json:"marketplace,omitempty"`
	RecipientName  string    `json:"recipient_name,omitempty"`
	SenderName     string    `json:"sender_name,omitempty"`
	Completeness   int       `json:"completeness"`
	Source         string    `json:"source"` // rules | escalation
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ShipmentFromCandidate flattens a parsed candidate into a shipment row
func ShipmentFromCandidate(userID string, c *parser.ShipmentCandidate) *Shipment {
	return &Shipment{
		UserID:         userID,
		MessageID:      c.MessageID,
		TrackingNumber: c.TrackingNumber(),
		Carrier:        c.Carrier,
		Type:           c.Type,
		Status:         c.Status,
		WithdrawalCode: c.Fields.Value(parser.FieldWithdrawalCode),
		QRCode:         c.Fields.Value(parser.FieldQRCode),
		PickupAddress:  c.Fields.Value(parser.FieldPickupAddress),
		PickupDeadline: c.Fields.Value(parser.FieldPickupDeadline),
		ItemPrice:      c.Fields.Value(parser.FieldItemPrice),
		Currency:       c.Fields.Value(parser.FieldCurrency),
		Marketplace:    c.Fields.Value(parser.FieldMarketplace),
		RecipientName:  c.Fields.Value(parser.FieldRecipientName),
		SenderName:     c.Fields.Value(parser.FieldSenderName),
		Completeness:   c.Completeness,
		Source:         "rules",
	}
}

// ShipmentStore handles shipment database operations
type ShipmentStore struct {
	db *sql.DB
}

// NewShipmentStore creates a new shipment store
func NewShipmentStore(db *sql.DB) *ShipmentStore {
	return &ShipmentStore{db: db}
}

const shipmentColumns = `id, user_id, message_id, tracking_number, carrier, type, status,
	withdrawal_code, qr_code, pickup_address, pickup_deadline, item_price, currency,
	marketplace, recipient_name, sender_name, completeness, source, created_at, updated_at`

// CreateOrUpdate upserts a shipment keyed on (user_id, message_id).
// Re-ingesting the same email replaces the previous row's fields
// instead of creating a duplicate.
func (s *ShipmentStore) CreateOrUpdate(sh *Shipment) error {
	now := time.Now()
	sh.UpdatedAt = now
	if sh.CreatedAt.IsZero() {
		sh.CreatedAt = now
	}

	result, err := s.db.Exec(`
		INSERT INTO shipments (user_id, message_id, tracking_number, carrier, type, status,
			withdrawal_code, qr_code, pickup_address, pickup_deadline, item_price, currency,
			marketplace, recipient_name, sender_name, completeness, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, message_id) DO UPDATE SET
			tracking_number = excluded.tracking_number,
			carrier = excluded.carrier,
			type = excluded.type,
			status = excluded.status,
			withdrawal_code = excluded.withdrawal_code,
			qr_code = excluded.qr_code,
			pickup_address = excluded.pickup_address,
			pickup_deadline = excluded.pickup_deadline,
			item_price = excluded.item_price,
			currency = excluded.currency,
			marketplace = excluded.marketplace,
			recipient_name = excluded.recipient_name,
			sender_name = excluded.sender_name,
			completeness = excluded.completeness,
			source = excluded.source,
			updated_at = excluded.updated_at`,
		sh.UserID, sh.MessageID, sh.TrackingNumber, sh.Carrier, sh.Type, sh.Status,
		sh.WithdrawalCode, sh.QRCode, sh.PickupAddress, sh.PickupDeadline, sh.ItemPrice, sh.Currency,
		sh.Marketplace, sh.RecipientName, sh.SenderName, sh.Completeness, sh.Source, sh.CreatedAt, sh.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert shipment: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil && id > 0 {
		sh.ID = id
	}

	return nil
}

// FindByMessageID retrieves a user's shipment for a message
func (s *ShipmentStore) FindByMessageID(userID, messageID string) (*Shipment, error) {
	row := s.db.QueryRow(`SELECT `+shipmentColumns+` FROM shipments
		WHERE user_id = ? AND message_id = ?`, userID, messageID)

	sh, err := scanShipment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sh, err
}

// ListByUser retrieves a user's shipments, most recent first
func (s *ShipmentStore) ListByUser(userID string, limit int) ([]Shipment, error) {
	rows, err := s.db.Query(`SELECT `+shipmentColumns+` FROM shipments
		WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipments: %w", err)
	}
	defer rows.Close()

	var shipments []Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, *sh)
	}

	return shipments, rows.Err()
}

func scanShipment(row rowScanner) (*Shipment, error) {
	var sh Shipment
	err := row.Scan(&sh.ID, &sh.UserID, &sh.MessageID, &sh.TrackingNumber, &sh.Carrier,
		&sh.Type, &sh.Status, &sh.WithdrawalCode, &sh.QRCode, &sh.PickupAddress,
		&sh.PickupDeadline, &sh.ItemPrice, &sh.Currency, &sh.Marketplace,
		&sh.RecipientName, &sh.SenderName, &sh.Completeness, &sh.Source,
		&sh.CreatedAt, &sh.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}
