package parser

import (
	"fmt"
	"regexp"
	"strings"

	"flipmail/internal/email"
)

// Extractor runs the full extraction pipeline for one email: rule
// bank, classifier, completeness scorer, and anomaly detector. It
// holds no mutable state, so one instance can serve any number of
// concurrent callers.
type Extractor struct {
	rules      *RuleBank
	classifier *Classifier
	scorer     *Scorer
	anomalies  *AnomalyDetector
	sanitizer  *Sanitizer

	frenchDate *regexp.Regexp
}

// NewExtractor creates an extractor with the default rule set
func NewExtractor() *Extractor {
	return &Extractor{
		rules:      NewRuleBank(),
		classifier: NewClassifier(),
		scorer:     NewScorer(),
		anomalies:  NewAnomalyDetector(),
		sanitizer:  NewSanitizer(),
		frenchDate: regexp.MustCompile(`(?i)(\d{1,2})(?:er)?\s+(janvier|f[ée]vrier|mars|avril|mai|juin|juillet|ao[ûu]t|septembre|octobre|novembre|d[ée]cembre)\s+(\d{4})`),
	}
}

// Parse extracts a shipment candidate from a raw email. The result is
// a pure function of the email content and the rule set; parsing the
// same email twice yields identical candidates.
func (e *Extractor) Parse(raw *email.RawEmail) *ShipmentCandidate {
	body := e.sanitizer.Normalize(raw.Body())
	subject := e.sanitizer.Normalize(raw.Subject)
	stripped := e.sanitizer.StripMarkup(body)

	fields := make(FieldSet)
	rejected := make(map[string]string)

	// Tracking references appear in subjects as often as in bodies
	e.extractField(FieldTrackingNumber, subject+"\n"+body, fields, rejected)
	for _, field := range []string{
		FieldWithdrawalCode,
		FieldQRCode,
		FieldPickupAddress,
		FieldPickupDeadline,
		FieldItemPrice,
		FieldMarketplace,
		FieldRecipientName,
		FieldSenderName,
	} {
		e.extractField(field, body, fields, rejected)
	}

	if fields.Has(FieldItemPrice) {
		fields[FieldCurrency] = FieldResult{
			Value:         "EUR",
			SourcePattern: fields[FieldItemPrice].SourcePattern,
			Confidence:    fields[FieldItemPrice].Confidence,
		}
	}

	cls := e.classifier.Classify(raw.From, subject, stripped, declaredType(raw.Labels))

	candidate := &ShipmentCandidate{
		MessageID: raw.MessageID,
		Provider:  raw.Provider,
		Carrier:   cls.Carrier,
		Type:      cls.Type,
		Status:    cls.Status,
		Fields:    fields,
		Rejected:  rejected,
	}

	candidate.Completeness, candidate.IsTrackingEmail = e.scorer.Score(candidate, stripped)
	candidate.Anomalies = e.anomalies.Detect(candidate, subject, body, cls)

	return candidate
}

// extractField runs one field's rule bank and applies the field's
// validity checks. Invalid captures move to the rejected map so the
// anomaly detector can surface them.
func (e *Extractor) extractField(field, text string, fields FieldSet, rejected map[string]string) {
	result := e.rules.Extract(field, text)
	if result.Confidence == ConfidenceAbsent {
		return
	}

	switch field {
	case FieldWithdrawalCode:
		// Template labels sometimes get captured instead of the code
		if strings.EqualFold(result.Value, "code") || strings.EqualFold(result.Value, "retrait") {
			rejected[field] = result.Value
			return
		}
	case FieldQRCode:
		lower := strings.ToLower(result.Value)
		for _, marker := range []string{"logo", "favicon", "icon"} {
			if strings.Contains(lower, marker) {
				rejected[field] = result.Value
				return
			}
		}
	case FieldTrackingNumber:
		if result.SourcePattern == "ups_standard" && !validUPSCheckDigit(result.Value) {
			result.Confidence = ConfidenceLow
		}
	case FieldPickupDeadline:
		result.Value = e.normalizeDeadline(result.Value)
	case FieldItemPrice:
		result.Value = strings.ReplaceAll(result.Value, ",", ".")
	}

	fields[field] = result
}

// normalizeDeadline converts a spelled-out French date to DD/MM/YYYY.
// Values already in DD/MM/YYYY pass through unchanged.
func (e *Extractor) normalizeDeadline(value string) string {
	m := e.frenchDate.FindStringSubmatch(value)
	if m == nil {
		return value
	}

	months := map[string]int{
		"janvier": 1, "février": 2, "fevrier": 2, "mars": 3,
		"avril": 4, "mai": 5, "juin": 6, "juillet": 7,
		"août": 8, "aout": 8, "septembre": 9, "octobre": 10,
		"novembre": 11, "décembre": 12, "decembre": 12,
	}
	month, ok := months[strings.ToLower(m[2])]
	if !ok {
		return value
	}

	day := 0
	fmt.Sscanf(m[1], "%d", &day)
	return fmt.Sprintf("%02d/%02d/%s", day, month, m[3])
}

// validUPSCheckDigit verifies the check digit of a 1Z tracking number
func validUPSCheckDigit(tn string) bool {
	if len(tn) != 18 || !strings.HasPrefix(tn, "1Z") {
		return false
	}

	sum := 0
	for i := 2; i < 17; i++ {
		c := tn[i]
		var v int
		if c >= '0' && c <= '9' {
			v = int(c - '0')
		} else {
			v = (int(c) - 63) % 10
		}
		if (i-2)%2 == 1 {
			v *= 2
		}
		sum += v
	}

	check := (10 - sum%10) % 10
	last := tn[17]
	return last >= '0' && last <= '9' && int(last-'0') == check
}

// declaredType maps provider labels or folder names to a shipment type
func declaredType(labels []string) string {
	for _, label := range labels {
		switch strings.ToLower(label) {
		case "vente", "ventes", "sale", "sales":
			return TypeSale
		case "achat", "achats", "purchase", "purchases":
			return TypePurchase
		}
	}
	return ""
}
