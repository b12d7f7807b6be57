package parser

import (
	"testing"
)

func field(value string) FieldResult {
	return FieldResult{Value: value, Confidence: ConfidenceHigh}
}

func TestScorer_Score(t *testing.T) {
	s := NewScorer()

	testCases := []struct {
		name      string
		candidate ShipmentCandidate
		expected  int
	}{
		{
			name:      "empty candidate",
			candidate: ShipmentCandidate{Fields: FieldSet{}},
			expected:  0,
		},
		{
			name: "tracking only",
			candidate: ShipmentCandidate{
				Fields: FieldSet{FieldTrackingNumber: field("6A12345678901")},
			},
			expected: 30,
		},
		{
			name: "tracking and carrier",
			candidate: ShipmentCandidate{
				Carrier: CarrierColissimo,
				Fields:  FieldSet{FieldTrackingNumber: field("6A12345678901")},
			},
			expected: 50,
		},
		{
			name: "pickup proof counts once for code and qr together",
			candidate: ShipmentCandidate{
				Fields: FieldSet{
					FieldWithdrawalCode: field("4821"),
					FieldQRCode:         field("https://example.com/qr/abc"),
				},
			},
			expected: 10,
		},
		{
			name: "all fields",
			candidate: ShipmentCandidate{
				Carrier: CarrierMondialRelay,
				Status:  StatusShipmentAvailable,
				Fields: FieldSet{
					FieldTrackingNumber: field("VD12345678"),
					FieldPickupAddress:  field("Tabac de la Gare, 12 rue des Lilas, 75011 Paris"),
					FieldWithdrawalCode: field("4821"),
					FieldPickupDeadline: field("28/02/2026"),
					FieldItemPrice:      field("15.50"),
					FieldMarketplace:    field("vinted"),
					FieldRecipientName:  field("Camille"),
				},
			},
			expected: 100,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			score, _ := s.Score(&tc.candidate, "")
			if score != tc.expected {
				t.Errorf("expected score %d, got %d", tc.expected, score)
			}
		})
	}
}

// Filling any absent field must never lower the score.
func TestScorer_Monotonic(t *testing.T) {
	s := NewScorer()

	base := ShipmentCandidate{Fields: FieldSet{}}
	prev, _ := s.Score(&base, "")

	additions := []func(*ShipmentCandidate){
		func(c *ShipmentCandidate) { c.Fields[FieldRecipientName] = field("Camille") },
		func(c *ShipmentCandidate) { c.Fields[FieldMarketplace] = field("vinted") },
		func(c *ShipmentCandidate) { c.Fields[FieldItemPrice] = field("15.50") },
		func(c *ShipmentCandidate) { c.Fields[FieldPickupDeadline] = field("28/02/2026") },
		func(c *ShipmentCandidate) { c.Fields[FieldQRCode] = field("https://example.com/qr/abc") },
		func(c *ShipmentCandidate) { c.Status = StatusShipmentInTransit },
		func(c *ShipmentCandidate) { c.Fields[FieldPickupAddress] = field("12 rue des Lilas, 75011 Paris") },
		func(c *ShipmentCandidate) { c.Carrier = CarrierColissimo },
		func(c *ShipmentCandidate) { c.Fields[FieldTrackingNumber] = field("6A12345678901") },
	}

	for i, add := range additions {
		add(&base)
		score, _ := s.Score(&base, "")
		if score < prev {
			t.Fatalf("score dropped from %d to %d after addition %d", prev, score, i)
		}
		prev = score
	}

	if prev != 100 {
		t.Errorf("expected full candidate to score 100, got %d", prev)
	}
}

func TestScorer_IsTracking(t *testing.T) {
	s := NewScorer()

	testCases := []struct {
		name      string
		candidate ShipmentCandidate
		body      string
		expected  bool
	}{
		{
			name: "tracking number alone is enough",
			candidate: ShipmentCandidate{
				Fields: FieldSet{FieldTrackingNumber: field("6A12345678901")},
			},
			body:     "Bonjour",
			expected: true,
		},
		{
			name:      "two keyword hits without tracking number",
			candidate: ShipmentCandidate{Fields: FieldSet{}},
			body:      "Votre colis est en cours de livraison.",
			expected:  true,
		},
		{
			name:      "single keyword hit is not enough",
			candidate: ShipmentCandidate{Fields: FieldSet{}},
			body:      "Votre colis vous attend.",
			expected:  false,
		},
		{
			name:      "newsletter",
			candidate: ShipmentCandidate{Fields: FieldSet{}},
			body:      "Découvrez nos offres de la semaine.",
			expected:  false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, isTracking := s.Score(&tc.candidate, tc.body)
			if isTracking != tc.expected {
				t.Errorf("expected isTracking=%v, got %v", tc.expected, isTracking)
			}
		})
	}
}
