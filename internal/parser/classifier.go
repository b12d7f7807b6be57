package parser

import (
	"regexp"
	"strings"
)

// Carrier identifiers
const (
	CarrierColissimo    = "colissimo"
	CarrierChronopost   = "chronopost"
	CarrierMondialRelay = "mondial_relay"
	CarrierRelaisColis  = "relais_colis"
	CarrierVintedGo     = "vinted_go"
	CarrierLaPoste      = "la_poste"
	CarrierColisPrive   = "colis_prive"
	CarrierDPD          = "dpd"
	CarrierGLS          = "gls"
	CarrierDHL          = "dhl"
	CarrierUPS          = "ups"
)

// Classification is the classifier's verdict for one email
type Classification struct {
	Carrier string
	Type    string
	Status  string

	// Pickup phrasing found in a sale email, evidence for a type
	// contradiction. Empty when type and content agree.
	TypeConflict string
}

type statusMarker struct {
	status string
	regex  *regexp.Regexp
}

// Classifier resolves carrier, shipment type, and status from sender
// metadata and body phrasing
type Classifier struct {
	carrierDomains  []domainEntry
	carrierKeywords []domainEntry
	saleMarkers     *regexp.Regexp
	purchaseMarkers *regexp.Regexp
	statusMarkers   []statusMarker
	pickupPhrasing  *regexp.Regexp
}

type domainEntry struct {
	match   string
	carrier string
}

// NewClassifier creates a classifier with the known carrier and
// phrasing tables
func NewClassifier() *Classifier {
	return &Classifier{
		carrierDomains: []domainEntry{
			{"colissimo", CarrierColissimo},
			{"laposte", CarrierLaPoste},
			{"chronopost", CarrierChronopost},
			{"mondialrelay", CarrierMondialRelay},
			{"mondial-relay", CarrierMondialRelay},
			{"relaiscolis", CarrierRelaisColis},
			{"vintedgo", CarrierVintedGo},
			{"vinted", CarrierVintedGo},
			{"colisprive", CarrierColisPrive},
			{"dpd", CarrierDPD},
			{"gls-group", CarrierGLS},
			{"dhl", CarrierDHL},
			{"ups.com", CarrierUPS},
		},
		carrierKeywords: []domainEntry{
			{"mondial relay", CarrierMondialRelay},
			{"relais colis", CarrierRelaisColis},
			{"chronopost", CarrierChronopost},
			{"colissimo", CarrierColissimo},
			{"vinted go", CarrierVintedGo},
			{"colis privé", CarrierColisPrive},
			{"la poste", CarrierLaPoste},
			{"dpd", CarrierDPD},
			{"gls", CarrierGLS},
			{"dhl", CarrierDHL},
			{"ups", CarrierUPS},
		},
		saleMarkers: regexp.MustCompile(`(?i)votre\s+vente|vous\s+avez\s+vendu|article\s+(?:a\s+[ée]t[ée]\s+)?vendu|exp[ée]diez?\s+votre\s+article|bordereau\s+d'envoi`),
		purchaseMarkers: regexp.MustCompile(`(?i)votre\s+achat|votre\s+commande|vous\s+avez\s+achet[ée]|votre\s+colis\s+arrive|commande\s+exp[ée]di[ée]e`),
		statusMarkers: []statusMarker{
			{StatusShipmentDelivered, regexp.MustCompile(`(?i)a\s+[ée]t[ée]\s+livr[ée]|est\s+livr[ée]|livraison\s+effectu[ée]e|bien\s+[ée]t[ée]\s+re[çc]u|has\s+been\s+delivered`)},
			{StatusShipmentAvailable, regexp.MustCompile(`(?i)disponible|est\s+arriv[ée]\s+dans|[àa]\s+retirer|pr[êe]t\s+[àa]\s+[êe]tre\s+retir[ée]|ready\s+for\s+pickup|available\s+for\s+pickup`)},
			{StatusShipmentReturned, regexp.MustCompile(`(?i)retourn[ée]|renvoy[ée]|retour\s+[àa]\s+l'exp[ée]diteur|returned\s+to\s+sender`)},
			{StatusShipmentInTransit, regexp.MustCompile(`(?i)en\s+cours\s+d'acheminement|en\s+transit|a\s+[ée]t[ée]\s+exp[ée]di[ée]|en\s+route|pris\s+en\s+charge|on\s+its\s+way|shipped`)},
			{StatusShipmentPending, regexp.MustCompile(`(?i)en\s+pr[ée]paration|[ée]tiquette\s+cr[ée][ée]e|label\s+created`)},
		},
		pickupPhrasing: regexp.MustCompile(`(?i)code\s+de\s+retrait|r[ée]cup[ée]rer\s+votre\s+colis|disponible[\s\S]{0,60}?point\s+relais`),
	}
}

// Classify resolves carrier, type, and status for an email. The text
// arguments are the stripped subject and body; sender is the From
// header. declaredType is provider metadata (folder, label) when the
// caller has it, or "".
func (c *Classifier) Classify(sender, subject, body, declaredType string) Classification {
	cls := Classification{
		Carrier: c.detectCarrier(sender, subject, body),
		Type:    c.detectType(subject, body, declaredType),
		Status:  c.detectStatus(subject, body),
	}

	// A declared or detected sale with pickup phrasing in the body is
	// usually a purchase notification read from the wrong side.
	if cls.Type == TypeSale {
		if m := c.pickupPhrasing.FindString(body); m != "" {
			cls.TypeConflict = m
		}
	}

	return cls
}

// detectCarrier resolves the carrier from the sender domain first,
// then from subject/body keywords
func (c *Classifier) detectCarrier(sender, subject, body string) string {
	senderLower := strings.ToLower(sender)
	for _, e := range c.carrierDomains {
		if strings.Contains(senderLower, e.match) {
			return e.carrier
		}
	}

	text := strings.ToLower(subject + " " + body)
	for _, e := range c.carrierKeywords {
		if strings.Contains(text, e.match) {
			return e.carrier
		}
	}

	return ""
}

// detectType resolves sale vs purchase. Declared metadata wins;
// phrasing markers break the tie otherwise.
func (c *Classifier) detectType(subject, body, declaredType string) string {
	switch strings.ToLower(declaredType) {
	case TypeSale, "vente":
		return TypeSale
	case TypePurchase, "achat":
		return TypePurchase
	}

	text := subject + "\n" + body
	saleHits := len(c.saleMarkers.FindAllString(text, -1))
	purchaseHits := len(c.purchaseMarkers.FindAllString(text, -1))

	switch {
	case saleHits > purchaseHits:
		return TypeSale
	case purchaseHits > saleHits:
		return TypePurchase
	default:
		return TypeUnknown
	}
}

// detectStatus resolves shipment status from phrasing, most specific
// phase first
func (c *Classifier) detectStatus(subject, body string) string {
	text := subject + "\n" + body
	for _, m := range c.statusMarkers {
		if m.regex.MatchString(text) {
			return m.status
		}
	}
	return ""
}
