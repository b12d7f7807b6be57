package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// AnomalyFlag tags a suspicious trait of a parsed candidate
type AnomalyFlag string

const (
	AnomalyForwardedEmail        AnomalyFlag = "FORWARDED_EMAIL"
	AnomalyTypeWrong             AnomalyFlag = "TYPE_WRONG"
	AnomalyMissingWithdrawalCode AnomalyFlag = "MISSING_WITHDRAWAL_CODE"
	AnomalyBadWithdrawalCode     AnomalyFlag = "BAD_WITHDRAWAL_CODE"
	AnomalyMissingQRCode         AnomalyFlag = "MISSING_QR_CODE"
	AnomalyBadQRCode             AnomalyFlag = "BAD_QR_CODE"
	AnomalyMissingAddress        AnomalyFlag = "MISSING_ADDRESS"
	AnomalyAddressTooLong        AnomalyFlag = "ADDRESS_TOO_LONG"
	AnomalyDirtyAddress          AnomalyFlag = "DIRTY_ADDRESS"
	AnomalyMissingDeadline       AnomalyFlag = "MISSING_DEADLINE"
	AnomalyMissingPrice          AnomalyFlag = "MISSING_PRICE"
	AnomalyMissingMarketplace    AnomalyFlag = "MISSING_MARKETPLACE"
	AnomalyMissingRecipient      AnomalyFlag = "MISSING_RECIPIENT"
	AnomalyEmailTypeUnknown      AnomalyFlag = "EMAIL_TYPE_UNKNOWN"
	AnomalyTrackingMismatch      AnomalyFlag = "TRACKING_MISMATCH"
)

// Anomaly is an advisory signal attached to a candidate. Evidence is
// the matched excerpt when one exists.
type Anomaly struct {
	Flag     AnomalyFlag `json:"flag"`
	Evidence string      `json:"evidence,omitempty"`
}

// maxAddressLength is the point past which a captured address almost
// certainly swallowed surrounding template text
const maxAddressLength = 200

// dirtyAddressPhrases are UI chrome strings that leak into address
// captures from templated map blocks
var dirtyAddressPhrases = []string{
	"voir sur la carte",
	"compléter",
	"modifier la date",
	"suivre mon colis",
}

// AnomalyDetector scans a candidate and its source text for the
// advisory flags. Detection order is fixed so identical input always
// yields an identical flag sequence.
type AnomalyDetector struct {
	forwardedSubject *regexp.Regexp
	forwardedBody    *regexp.Regexp
	trackingLinks    []*regexp.Regexp
	fallbacks        map[string]*regexp.Regexp
}

// NewAnomalyDetector creates a detector with the scan patterns
func NewAnomalyDetector() *AnomalyDetector {
	return &AnomalyDetector{
		forwardedSubject: regexp.MustCompile(`(?i)transf[eé]r[eé]|forwarded|fwd\s*:|tr\s*:`),
		forwardedBody:    regexp.MustCompile(`(?i)de la part de`),
		trackingLinks: []*regexp.Regexp{
			regexp.MustCompile(`(?i)vintedgo\.com/[a-z]{2}/tracking/([A-Z0-9]+)`),
			regexp.MustCompile(`(?i)laposte\.fr/outils/suivre-vos-envois\?code=([A-Z0-9]+)`),
			regexp.MustCompile(`(?i)https?://[^\s"'<>]{1,200}/tracking/([A-Z0-9]{6,})`),
			regexp.MustCompile(`(?i)[?&](?:code|tracking|trackingnumber|parcel)=([A-Z0-9]{8,})`),
		},
		// Loose probes used as evidence when the strict rules found
		// nothing. A probe hit means the field likely exists but the
		// rule set was too strict for this template.
		fallbacks: map[string]*regexp.Regexp{
			FieldWithdrawalCode: regexp.MustCompile(`(?i)code[\s\S]{0,500}?\b(\d{4,8})\b`),
			FieldQRCode:         regexp.MustCompile(`(?i)https?://[^\s"'<>]{1,300}\.(?:png|gif)\b[^\s"'<>]{0,100}`),
			FieldPickupAddress:  regexp.MustCompile(`(?i)\b\d{1,4}\s+(?:rue|avenue|boulevard|chemin|place|all[ée]e)\s+[^<\n]{5,100}`),
			FieldPickupDeadline: regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`),
			FieldItemPrice:      regexp.MustCompile(`\b\d{1,6}[.,]\d{2}\b`),
		},
	}
}

// Detect returns the ordered anomaly flags for a candidate. subject
// and body are the normalized source texts; cls is the classifier
// verdict for the same email.
func (d *AnomalyDetector) Detect(c *ShipmentCandidate, subject, body string, cls Classification) []Anomaly {
	var anomalies []Anomaly

	if m := d.forwardedSubject.FindString(subject); m != "" {
		anomalies = append(anomalies, Anomaly{AnomalyForwardedEmail, m})
	} else if m := d.forwardedBody.FindString(body); m != "" {
		anomalies = append(anomalies, Anomaly{AnomalyForwardedEmail, m})
	}

	if cls.TypeConflict != "" {
		anomalies = append(anomalies, Anomaly{AnomalyTypeWrong, cls.TypeConflict})
	}

	anomalies = append(anomalies, d.fieldAnomalies(c, body)...)

	if c.Carrier == "" && c.Type == TypeUnknown {
		anomalies = append(anomalies, Anomaly{Flag: AnomalyEmailTypeUnknown})
	}

	if a, ok := d.trackingMismatch(c, body); ok {
		anomalies = append(anomalies, a)
	}

	return anomalies
}

// fieldAnomalies emits the BAD_* and MISSING_* flags in a fixed field
// order. MISSING_* flags only apply to emails recognized as shipment
// notifications; the pickup fields are only expected on pickup-point
// notifications.
func (d *AnomalyDetector) fieldAnomalies(c *ShipmentCandidate, body string) []Anomaly {
	var anomalies []Anomaly

	if v, ok := c.Rejected[FieldWithdrawalCode]; ok {
		anomalies = append(anomalies, Anomaly{AnomalyBadWithdrawalCode, v})
	}
	if v, ok := c.Rejected[FieldQRCode]; ok {
		anomalies = append(anomalies, Anomaly{AnomalyBadQRCode, v})
	}

	if addr := c.Fields.Value(FieldPickupAddress); addr != "" {
		if len(addr) > maxAddressLength {
			anomalies = append(anomalies, Anomaly{AnomalyAddressTooLong, addr[:maxAddressLength]})
		}
		lower := strings.ToLower(addr)
		for _, phrase := range dirtyAddressPhrases {
			if strings.Contains(lower, phrase) {
				anomalies = append(anomalies, Anomaly{AnomalyDirtyAddress, phrase})
				break
			}
		}
	}

	if !c.IsTrackingEmail {
		return anomalies
	}

	pickup := c.Status == StatusShipmentAvailable
	if pickup && !c.Fields.Has(FieldWithdrawalCode) && !c.hasRejected(FieldWithdrawalCode) {
		anomalies = append(anomalies, d.missing(AnomalyMissingWithdrawalCode, FieldWithdrawalCode, body))
	}
	if pickup && !c.Fields.Has(FieldQRCode) && !c.hasRejected(FieldQRCode) {
		anomalies = append(anomalies, d.missing(AnomalyMissingQRCode, FieldQRCode, body))
	}
	if pickup && !c.Fields.Has(FieldPickupAddress) {
		anomalies = append(anomalies, d.missing(AnomalyMissingAddress, FieldPickupAddress, body))
	}
	if pickup && !c.Fields.Has(FieldPickupDeadline) {
		anomalies = append(anomalies, d.missing(AnomalyMissingDeadline, FieldPickupDeadline, body))
	}
	if !c.Fields.Has(FieldItemPrice) {
		anomalies = append(anomalies, d.missing(AnomalyMissingPrice, FieldItemPrice, body))
	}
	if !c.Fields.Has(FieldMarketplace) {
		anomalies = append(anomalies, Anomaly{Flag: AnomalyMissingMarketplace})
	}
	if !c.Fields.Has(FieldRecipientName) {
		anomalies = append(anomalies, Anomaly{Flag: AnomalyMissingRecipient})
	}

	return anomalies
}

// missing builds a MISSING_* anomaly, attaching the loose-probe match
// as evidence when one exists. Evidence here means the field is likely
// present but the strict rules did not recognize the template.
func (d *AnomalyDetector) missing(flag AnomalyFlag, field, body string) Anomaly {
	if probe, ok := d.fallbacks[field]; ok {
		if m := probe.FindString(body); m != "" {
			return Anomaly{flag, m}
		}
	}
	return Anomaly{Flag: flag}
}

// trackingMismatch compares the parsed tracking number against every
// tracking number embedded in carrier links in the body
func (d *AnomalyDetector) trackingMismatch(c *ShipmentCandidate, body string) (Anomaly, bool) {
	parsed := c.TrackingNumber()
	if parsed == "" {
		return Anomaly{}, false
	}

	seen := make(map[string]bool)
	for _, re := range d.trackingLinks {
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			seen[strings.ToUpper(m[1])] = true
		}
	}
	if len(seen) == 0 || seen[strings.ToUpper(parsed)] {
		return Anomaly{}, false
	}

	linked := make([]string, 0, len(seen))
	for code := range seen {
		linked = append(linked, code)
	}
	sort.Strings(linked)

	evidence := fmt.Sprintf("parsed=%s links=%s", parsed, strings.Join(linked, ","))
	return Anomaly{AnomalyTrackingMismatch, evidence}, true
}

func (c *ShipmentCandidate) hasRejected(field string) bool {
	_, ok := c.Rejected[field]
	return ok
}
