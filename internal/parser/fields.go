package parser

// Confidence grades how a field value was obtained
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceLow    Confidence = "low"
	ConfidenceAbsent Confidence = "absent"
)

// Logical field identifiers for the extraction bank
const (
	FieldTrackingNumber = "tracking_number"
	FieldWithdrawalCode = "withdrawal_code"
	FieldQRCode         = "qr_code"
	FieldPickupAddress  = "pickup_address"
	FieldPickupDeadline = "pickup_deadline"
	FieldItemPrice      = "item_price"
	FieldCurrency       = "currency"
	FieldMarketplace    = "marketplace"
	FieldRecipientName  = "recipient_name"
	FieldSenderName     = "sender_name"
)

// FieldResult is the outcome of extracting one logical field
type FieldResult struct {
	Value         string     `json:"value"`
	SourcePattern string     `json:"source_pattern,omitempty"` // which rule matched
	Confidence    Confidence `json:"confidence"`
}

// Absent is the zero result for a field no rule matched
var Absent = FieldResult{Confidence: ConfidenceAbsent}

// FieldSet maps logical field names to their extraction results
type FieldSet map[string]FieldResult

// Value returns the extracted value for a field, or "" when absent
func (fs FieldSet) Value(field string) string {
	return fs[field].Value
}

// Has reports whether a field was extracted with a non-empty value
func (fs FieldSet) Has(field string) bool {
	r, ok := fs[field]
	return ok && r.Confidence != ConfidenceAbsent && r.Value != ""
}

// ShipmentCandidate is the full parse result for one email. It is
// derived entirely from the raw email text and the rule set; re-parsing
// the same email always produces an identical candidate.
type ShipmentCandidate struct {
	MessageID string `json:"message_id"`
	Provider  string `json:"provider"`

	Carrier string `json:"carrier"` // "" when unresolved
	Type    string `json:"type"`    // sale | purchase | unknown
	Status  string `json:"status"`  // pending | in_transit | delivered | returned | ""

	// Per-field values with provenance
	Fields FieldSet `json:"fields"`

	// Values captured by a rule but rejected by field validation.
	// Kept for anomaly evidence.
	Rejected map[string]string `json:"rejected,omitempty"`

	Completeness    int  `json:"completeness"`
	IsTrackingEmail bool `json:"is_tracking_email"`

	Anomalies []Anomaly `json:"anomalies,omitempty"`
}

// TrackingNumber is a convenience accessor for the most-used field
func (c *ShipmentCandidate) TrackingNumber() string {
	return c.Fields.Value(FieldTrackingNumber)
}

// HasAnomaly reports whether a flag of the given kind is present
func (c *ShipmentCandidate) HasAnomaly(flag AnomalyFlag) bool {
	for _, a := range c.Anomalies {
		if a.Flag == flag {
			return true
		}
	}
	return false
}

// Shipment types
const (
	TypeSale     = "sale"
	TypePurchase = "purchase"
	TypeUnknown  = "unknown"
)

// Shipment statuses resolvable from notification emails
const (
	StatusShipmentPending   = "pending"
	StatusShipmentInTransit = "in_transit"
	StatusShipmentAvailable = "available_for_pickup"
	StatusShipmentDelivered = "delivered"
	StatusShipmentReturned  = "returned"
)
