package parser

import (
	"strings"
)

// Field weights for the completeness score. All weights are
// non-negative and additive, so filling any absent field can never
// lower the score. They sum to 100.
const (
	weightTracking    = 30
	weightCarrier     = 20
	weightAddress     = 15
	weightStatus      = 10
	weightPickupProof = 10 // withdrawal code or QR code, whichever is present
	weightDeadline    = 5
	weightPrice       = 5
	weightMarketplace = 3
	weightRecipient   = 2
)

// trackingKeywords are the phrases a genuine shipment notification is
// expected to contain. An email matching fewer than two of them is
// not treated as a tracking email.
var trackingKeywords = []string{
	"colis",
	"suivi",
	"livraison",
	"expédié",
	"expédition",
	"tracking",
	"point relais",
	"numéro de suivi",
	"livré",
	"commande",
	"retrait",
	"transporteur",
}

// Scorer computes the completeness score of a parsed candidate. The
// score is a pure function of the candidate and the email text.
type Scorer struct{}

// NewScorer creates a completeness scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score returns the 0-100 completeness score and whether the email
// looks like a shipment notification at all. body must be the
// markup-stripped text.
func (s *Scorer) Score(c *ShipmentCandidate, body string) (int, bool) {
	isTracking := c.Fields.Has(FieldTrackingNumber) || s.keywordHits(body) >= 2

	score := 0
	if c.Fields.Has(FieldTrackingNumber) {
		score += weightTracking
	}
	if c.Carrier != "" {
		score += weightCarrier
	}
	if c.Status != "" {
		score += weightStatus
	}
	if c.Fields.Has(FieldPickupAddress) {
		score += weightAddress
	}
	if c.Fields.Has(FieldWithdrawalCode) || c.Fields.Has(FieldQRCode) {
		score += weightPickupProof
	}
	if c.Fields.Has(FieldPickupDeadline) {
		score += weightDeadline
	}
	if c.Fields.Has(FieldItemPrice) {
		score += weightPrice
	}
	if c.Fields.Has(FieldMarketplace) {
		score += weightMarketplace
	}
	if c.Fields.Has(FieldRecipientName) {
		score += weightRecipient
	}

	return score, isTracking
}

func (s *Scorer) keywordHits(body string) int {
	text := strings.ToLower(body)
	hits := 0
	for _, kw := range trackingKeywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	return hits
}
