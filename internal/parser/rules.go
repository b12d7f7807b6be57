package parser

import (
	"regexp"
	"strings"
)

// Rule is one entry in a field's ordered pattern bank. Rules are tried
// in declared order and the first match wins. Gap quantifiers inside
// the regexes are bounded so a rule can never match across unrelated
// sections of a long HTML email.
type Rule struct {
	ID          string
	Regex       *regexp.Regexp
	Group       int    // capture group holding the value; 0 = full match
	Value       string // canonical value override for keyword rules
	Confidence  Confidence
	Description string
}

// RuleBank holds the ordered pattern rules for every logical field
type RuleBank struct {
	banks map[string][]*Rule
}

// NewRuleBank creates a rule bank with all field patterns
func NewRuleBank() *RuleBank {
	rb := &RuleBank{banks: make(map[string][]*Rule)}
	rb.initTrackingRules()
	rb.initWithdrawalCodeRules()
	rb.initQRCodeRules()
	rb.initAddressRules()
	rb.initDeadlineRules()
	rb.initPriceRules()
	rb.initMarketplaceRules()
	rb.initNameRules()
	return rb
}

// initTrackingRules initializes tracking number patterns for the
// carriers seen in French marketplace shipping emails
func (rb *RuleBank) initTrackingRules() {
	rb.banks[FieldTrackingNumber] = []*Rule{
		{
			ID:          "ups_standard",
			Regex:       regexp.MustCompile(`\b(1Z[A-Z0-9]{16})\b`),
			Group:       1,
			Confidence:  ConfidenceHigh,
			Description: "Standard UPS tracking number",
		},
		{
			ID:          "s10_international",
			Regex:       regexp.MustCompile(`\b([A-Z]{2}\d{9}[A-Z]{2})\b`),
			Group:       1,
			Confidence:  ConfidenceHigh,
			Description: "UPU S10 format (Chronopost, La Poste international)",
		},
		{
			ID:          "colissimo",
			Regex:       regexp.MustCompile(`\b(\d[A-Z]\d{11})\b`),
			Group:       1,
			Confidence:  ConfidenceHigh,
			Description: "Colissimo domestic 13-character format",
		},
		{
			ID:          "mondial_relay",
			Regex:       regexp.MustCompile(`\b(VD\d{8,12})\b`),
			Group:       1,
			Confidence:  ConfidenceHigh,
			Description: "Mondial Relay expedition number",
		},
		{
			ID:          "vinted_go_subject",
			Regex:       regexp.MustCompile(`#(\d{9,20})\b`),
			Group:       1,
			Confidence:  ConfidenceLow,
			Description: "Vinted Go shipment reference after a hash mark",
		},
		{
			ID:          "labeled_generic",
			Regex:       regexp.MustCompile(`(?i:num[ée]ro\s+de\s+suivi|suivi|tracking\s*(?:number|#)?)\s*:?\s*([A-Z0-9]{8,20})\b`),
			Group:       1,
			Confidence:  ConfidenceLow,
			Description: "Any alphanumeric code behind an explicit tracking label",
		},
	}
}

// initWithdrawalCodeRules initializes pickup withdrawal code patterns.
// Order encodes reliability across known carrier templates.
func (rb *RuleBank) initWithdrawalCodeRules() {
	rb.banks[FieldWithdrawalCode] = []*Rule{
		{
			ID:          "code_suivant_markup",
			Regex:       regexp.MustCompile(`(?i)code\s+suivant\s*:?\s*(?:<[^>]{0,40}>\s*){0,2}([A-Za-z0-9]{4,10})`),
			Group:       1,
			Confidence:  ConfidenceHigh,
			Description: "Explicit 'code suivant:' possibly wrapped in markup",
		},
		{
			ID:          "code_securise",
			Regex:       regexp.MustCompile(`(?i)code\s+s[ée]curis[ée][\s\S]{0,300}?(\d{4,8})\b`),
			Group:       1,
			Confidence:  ConfidenceHigh,
			Description: "Secured code announced ahead of the digits",
		},
		{
			ID:          "code_retrait",
			Regex:       regexp.MustCompile(`(?i)code\s+(?:de\s+)?retrait[\s\S]{0,300}?(\d{4,8})\b`),
			Group:       1,
			Confidence:  ConfidenceHigh,
			Description: "Generic withdrawal code label",
		},
		{
			ID:          "access_code_json",
			Regex:       regexp.MustCompile(`(?i)accessCode["\s:]{1,5}"?(\d{4,8})`),
			Group:       1,
			Confidence:  ConfidenceHigh,
			Description: "API-style accessCode embedded in the template",
		},
		{
			ID:          "votre_code",
			Regex:       regexp.MustCompile(`(?i)votre\s+code\s*:?\s*(\d{4,8})\b`),
			Group:       1,
			Confidence:  ConfidenceLow,
			Description: "Generic 'votre code' fallback",
		},
	}
}

// initQRCodeRules initializes QR and barcode image URL patterns
func (rb *RuleBank) initQRCodeRules() {
	rb.banks[FieldQRCode] = []*Rule{
		{
			ID:          "qr_codes_path",
			Regex:       regexp.MustCompile(`(?i)https?://[^\s"'<>]{1,200}qr_codes/[^\s"'<>]{1,200}`),
			Confidence:  ConfidenceHigh,
			Description: "Hosted QR image under a qr_codes/ path",
		},
		{
			ID:          "aztec_barcode",
			Regex:       regexp.MustCompile(`(?i)https?://[^\s"'<>]{1,200}barcode/AztecCode[^\s"'<>]{0,200}`),
			Confidence:  ConfidenceHigh,
			Description: "Aztec barcode generator URL (Mondial Relay)",
		},
		{
			ID:          "img_src_qr",
			Regex:       regexp.MustCompile(`(?i)<img[^>]{0,400}?src=["']([^"']{1,400}qr[^"']{0,200})["']`),
			Group:       1,
			Confidence:  ConfidenceLow,
			Description: "Any image source mentioning qr",
		},
	}
}

// initAddressRules initializes pickup point address patterns.
// Every rule requires at least 10 captured characters.
func (rb *RuleBank) initAddressRules() {
	rb.banks[FieldPickupAddress] = []*Rule{
		{
			ID:          "selected_point_link",
			Regex:       regexp.MustCompile(`(?i)selected_point=[^>]{0,200}>\s*([^<]{10,250})`),
			Group:       1,
			Confidence:  ConfidenceHigh,
			Description: "Anchor text of a selected_point map link",
		},
		{
			ID:          "point_relais_block",
			Regex:       regexp.MustCompile(`(?i)point\s+relais\s*:?\s*(?:</?[a-z][^>]{0,60}>\s*){0,4}([^<\n]{10,250})`),
			Group:       1,
			Confidence:  ConfidenceHigh,
			Description: "Text block following a Point Relais heading",
		},
		{
			ID:          "adresse_label",
			Regex:       regexp.MustCompile(`(?i)adresse\s*(?:de\s+retrait\s*)?:\s*([^<\n]{10,250})`),
			Group:       1,
			Confidence:  ConfidenceLow,
			Description: "Generic adresse: label",
		},
	}
}

// initDeadlineRules initializes pickup deadline patterns
func (rb *RuleBank) initDeadlineRules() {
	frenchDate := `\d{1,2}(?:er)?\s+(?:janvier|f[ée]vrier|mars|avril|mai|juin|juillet|ao[ûu]t|septembre|octobre|novembre|d[ée]cembre)\s+\d{4}`

	rb.banks[FieldPickupDeadline] = []*Rule{
		{
			ID:          "retirer_avant",
			Regex:       regexp.MustCompile(`(?i)retirer\s+avant\s+le\s*(?:</?[a-z][^>]{0,60}>\s*){0,3}(\d{2}/\d{2}/\d{4})`),
			Group:       1,
			Confidence:  ConfidenceHigh,
			Description: "Retirer avant le DD/MM/YYYY",
		},
		{
			ID:          "date_limite",
			Regex:       regexp.MustCompile(`(?i)date\s+limite[\s\S]{0,200}?(\d{2}/\d{2}/\d{4})`),
			Group:       1,
			Confidence:  ConfidenceHigh,
			Description: "Date limite followed by DD/MM/YYYY",
		},
		{
			ID:          "avant_le_markup",
			Regex:       regexp.MustCompile(`(?i)avant\s+le\s*(?:</?[a-z][^>]{0,60}>\s*){0,3}(\d{2}/\d{2}/\d{4})`),
			Group:       1,
			Confidence:  ConfidenceLow,
			Description: "Avant le DD/MM/YYYY, date possibly wrapped in markup",
		},
		{
			ID:          "french_long_date",
			Regex:       regexp.MustCompile(`(?i)(?:retirer\s+avant\s+le|date\s+limite[^0-9]{0,40}|avant\s+le)\s*(?:</?[a-z][^>]{0,60}>\s*){0,3}(` + frenchDate + `)`),
			Group:       1,
			Confidence:  ConfidenceLow,
			Description: "Spelled-out French date after a deadline marker",
		},
	}
}

// initPriceRules initializes item price patterns
func (rb *RuleBank) initPriceRules() {
	rb.banks[FieldItemPrice] = []*Rule{
		{
			ID:          "amount_euro",
			Regex:       regexp.MustCompile(`(\d{1,6}(?:[.,]\d{2})?)\s*(?:€|EUR\b)`),
			Group:       1,
			Confidence:  ConfidenceHigh,
			Description: "Decimal amount immediately followed by a euro marker",
		},
	}
}

// initMarketplaceRules initializes literal marketplace keyword rules,
// used when no structured marketplace field is present
func (rb *RuleBank) initMarketplaceRules() {
	rb.banks[FieldMarketplace] = []*Rule{
		{
			ID:         "vinted",
			Regex:      regexp.MustCompile(`(?i)\bvinted\b`),
			Value:      "Vinted",
			Confidence: ConfidenceLow,
		},
		{
			ID:         "leboncoin",
			Regex:      regexp.MustCompile(`(?i)\bleboncoin\b`),
			Value:      "Leboncoin",
			Confidence: ConfidenceLow,
		},
		{
			ID:         "vestiaire",
			Regex:      regexp.MustCompile(`(?i)\bvestiaire\s+collective\b`),
			Value:      "Vestiaire Collective",
			Confidence: ConfidenceLow,
		},
		{
			ID:         "ebay",
			Regex:      regexp.MustCompile(`(?i)\bebay\b`),
			Value:      "eBay",
			Confidence: ConfidenceLow,
		},
		{
			ID:         "etsy",
			Regex:      regexp.MustCompile(`(?i)\betsy\b`),
			Value:      "Etsy",
			Confidence: ConfidenceLow,
		},
	}
}

// initNameRules initializes recipient and sender name patterns.
// Case folding is scoped to the label part; the name classes must stay
// case-sensitive or the capitalized-word heuristic stops cutting off
// the capture.
func (rb *RuleBank) initNameRules() {
	capitalized := `[\p{Lu}][\p{Ll}'-]+(?:\s+[\p{Lu}][\p{Ll}'-]+){0,2}`

	rb.banks[FieldRecipientName] = []*Rule{
		{
			ID:          "greeting_bonjour",
			Regex:       regexp.MustCompile(`(?i:bonjour)\s+(` + capitalized + `)`),
			Group:       1,
			Confidence:  ConfidenceHigh,
			Description: "Greeting line 'Bonjour NAME'",
		},
		{
			ID:          "greeting_cher",
			Regex:       regexp.MustCompile(`(?i:ch[eè]re?)\s+(` + capitalized + `)`),
			Group:       1,
			Confidence:  ConfidenceLow,
			Description: "Greeting line 'Cher NAME'",
		},
	}

	rb.banks[FieldSenderName] = []*Rule{
		{
			ID:          "expediteur_label",
			Regex:       regexp.MustCompile(`(?i:exp[ée]diteur)\s*:?\s*(` + capitalized + `)`),
			Group:       1,
			Confidence:  ConfidenceHigh,
			Description: "Explicit expéditeur label",
		},
		{
			ID:          "de_la_part_de",
			Regex:       regexp.MustCompile(`(?i:de\s+la\s+part\s+de)\s+(` + capitalized + `)`),
			Group:       1,
			Confidence:  ConfidenceLow,
			Description: "Forwarding phrase naming the original sender",
		},
		{
			ID:          "confie_par",
			Regex:       regexp.MustCompile(`(?i:confi[ée]\s+par)\s+(` + capitalized + `)`),
			Group:       1,
			Confidence:  ConfidenceLow,
			Description: "Parcel handed over by a named seller",
		},
	}
}

// Extract applies a field's rules to text in priority order. The first
// matching rule wins; later rules are not consulted.
func (rb *RuleBank) Extract(field, text string) FieldResult {
	for _, rule := range rb.banks[field] {
		match := rule.Regex.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		value := match[0]
		if rule.Group > 0 && rule.Group < len(match) {
			value = match[rule.Group]
		}
		if rule.Value != "" {
			value = rule.Value
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		return FieldResult{
			Value:         value,
			SourcePattern: rule.ID,
			Confidence:    rule.Confidence,
		}
	}
	return Absent
}

// Rules returns a field's rule list for testing
func (rb *RuleBank) Rules(field string) []*Rule {
	return rb.banks[field]
}
