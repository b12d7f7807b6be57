package triage

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"flipmail/internal/database"
	"flipmail/internal/email"
	"flipmail/internal/parser"
	"flipmail/internal/ratelimit"
)

// ErrInvalidTransition is returned when a status change is requested
// from a state that does not allow it
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrRateLimited is returned when a requeue is attempted inside the
// escalation retry cooldown
var ErrRateLimited = errors.New("retry rate limit active")

// Shipment sources recorded on accepted updates
const (
	SourceRules      = "rules"
	SourceEscalation = "escalation"
)

// Repository is the persistence contract the controller needs for
// queued emails. The sqlite store implements it; tests use the
// in-memory store.
type Repository interface {
	Create(rec *email.UnparsedEmail) error
	FindByID(id int64) (*email.UnparsedEmail, error)
	FindByMessageID(userID, messageID string) (*email.UnparsedEmail, error)
	FindPendingByUser(userID string, limit int) ([]email.UnparsedEmail, error)
	TransitionStatus(id int64, from, to, errorMessage string) error
	MarkProcessed(id int64) error
	Delete(id int64) error
}

// Sink receives accepted shipment updates
type Sink interface {
	CreateShipment(userID string, c *parser.ShipmentCandidate, source string) error
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(userID string, c *parser.ShipmentCandidate, source string) error

// CreateShipment calls f
func (f SinkFunc) CreateShipment(userID string, c *parser.ShipmentCandidate, source string) error {
	return f(userID, c, source)
}

// Outcomes of ingesting one email
const (
	OutcomeAccepted  = "accepted"
	OutcomeQueued    = "queued"
	OutcomeDuplicate = "duplicate"
)

// Decision is the result of ingesting one email
type Decision struct {
	Outcome   string                    `json:"outcome"`
	Candidate *parser.ShipmentCandidate `json:"candidate"`
	QueueID   int64                     `json:"queue_id,omitempty"`
}

// Config holds the acceptance policy
type Config struct {
	// Minimum completeness score for direct acceptance
	AcceptThreshold int

	// Anomaly flags that force queueing regardless of score
	Blocking []parser.AnomalyFlag

	// Disables the requeue cooldown, mainly for tests
	DisableRetryLimit bool
}

// GetDisableRateLimit implements ratelimit.Config
func (c Config) GetDisableRateLimit() bool {
	return c.DisableRetryLimit
}

// DefaultConfig returns the default acceptance policy
func DefaultConfig() Config {
	return Config{
		AcceptThreshold: 70,
		Blocking: []parser.AnomalyFlag{
			parser.AnomalyForwardedEmail,
			parser.AnomalyTypeWrong,
			parser.AnomalyTrackingMismatch,
		},
	}
}

// Controller decides whether parsed emails are emitted directly or
// queued for escalation, and owns every status transition of queued
// records.
type Controller struct {
	config    Config
	extractor *parser.Extractor
	repo      Repository
	sink      Sink

	sanitizer *parser.Sanitizer
	scorer    *parser.Scorer
	logger    *slog.Logger
}

// NewController creates a triage controller
func NewController(config Config, extractor *parser.Extractor, repo Repository, sink Sink, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		config:    config,
		extractor: extractor,
		repo:      repo,
		sink:      sink,
		sanitizer: parser.NewSanitizer(),
		scorer:    parser.NewScorer(),
		logger:    logger,
	}
}

// Ingest parses one email and either emits it as a shipment update or
// queues it. Re-ingesting the same (user, message) pair is idempotent:
// the unique index resolves concurrent duplicates and the loser
// returns the existing record.
func (c *Controller) Ingest(userID string, raw *email.RawEmail) (*Decision, error) {
	candidate := c.extractor.Parse(raw)

	if c.Accepts(candidate) {
		if err := c.sink.CreateShipment(userID, candidate, SourceRules); err != nil {
			return nil, fmt.Errorf("failed to emit shipment: %w", err)
		}
		c.logger.Info("email accepted",
			"user", userID, "message", raw.MessageID,
			"completeness", candidate.Completeness, "carrier", candidate.Carrier)
		return &Decision{Outcome: OutcomeAccepted, Candidate: candidate}, nil
	}

	rec := &email.UnparsedEmail{
		UserID:          userID,
		MessageID:       raw.MessageID,
		Provider:        raw.Provider,
		Subject:         raw.Subject,
		Sender:          raw.From,
		Body:            raw.Body(),
		ReceivedAt:      raw.Date,
		TrackingNumber:  candidate.TrackingNumber(),
		Carrier:         candidate.Carrier,
		Completeness:    candidate.Completeness,
		IsTrackingEmail: candidate.IsTrackingEmail,
	}

	err := c.repo.Create(rec)
	if errors.Is(err, database.ErrDuplicate) {
		existing, findErr := c.repo.FindByMessageID(userID, raw.MessageID)
		if findErr != nil {
			return nil, fmt.Errorf("duplicate queue record lookup failed: %w", findErr)
		}
		return &Decision{Outcome: OutcomeDuplicate, Candidate: candidate, QueueID: existing.ID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to queue email: %w", err)
	}

	c.logger.Info("email queued",
		"user", userID, "message", raw.MessageID,
		"completeness", candidate.Completeness, "anomalies", len(candidate.Anomalies))
	return &Decision{Outcome: OutcomeQueued, Candidate: candidate, QueueID: rec.ID}, nil
}

// Accepts applies the acceptance policy to a candidate
func (c *Controller) Accepts(candidate *parser.ShipmentCandidate) bool {
	if candidate.Completeness < c.config.AcceptThreshold {
		return false
	}
	for _, flag := range c.config.Blocking {
		if candidate.HasAnomaly(flag) {
			return false
		}
	}
	return true
}

// BeginEscalation moves a pending record to processing
func (c *Controller) BeginEscalation(id int64) (*email.UnparsedEmail, error) {
	rec, err := c.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if !email.ValidStatusTransition(rec.Status, email.StatusProcessing) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, email.StatusProcessing)
	}

	if err := c.repo.TransitionStatus(id, email.StatusPending, email.StatusProcessing, ""); err != nil {
		return nil, err
	}
	rec.Status = email.StatusProcessing

	return rec, nil
}

// CompleteEscalation folds escalated fields into a fresh parse of the
// queued email, emits the merged shipment, and marks the record
// processed. The record must be in processing.
func (c *Controller) CompleteEscalation(rec *email.UnparsedEmail, result parser.EscalationResult) error {
	if rec.Status != email.StatusProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, email.StatusProcessed)
	}

	raw := &email.RawEmail{
		MessageID: rec.MessageID,
		Provider:  rec.Provider,
		From:      rec.Sender,
		Subject:   rec.Subject,
		HTMLText:  rec.Body,
		Date:      rec.ReceivedAt,
	}
	candidate := c.extractor.Parse(raw)
	c.mergeEscalated(candidate, raw, result)

	if err := c.sink.CreateShipment(rec.UserID, candidate, SourceEscalation); err != nil {
		return fmt.Errorf("failed to emit escalated shipment: %w", err)
	}

	if err := c.repo.MarkProcessed(rec.ID); err != nil {
		return err
	}
	rec.Status = email.StatusProcessed

	c.logger.Info("escalation processed", "user", rec.UserID, "message", rec.MessageID)
	return nil
}

// FailEscalation records an escalation failure. The record must be in
// processing; failed is terminal until a caller requeues it.
func (c *Controller) FailEscalation(id int64, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := c.repo.TransitionStatus(id, email.StatusProcessing, email.StatusFailed, msg); err != nil {
		return err
	}
	c.logger.Warn("escalation failed", "queue_id", id, "error", msg)
	return nil
}

// Requeue resets a failed record to pending. Caller-initiated only;
// the controller never retries automatically. A cooldown applies
// between escalation attempts unless force is set.
func (c *Controller) Requeue(id int64, force bool) error {
	rec, err := c.repo.FindByID(id)
	if err != nil {
		return err
	}
	if !email.ValidStatusTransition(rec.Status, email.StatusPending) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.Status, email.StatusPending)
	}

	if result := ratelimit.CheckRetryRateLimit(c.config, rec.EscalatedAt, force); result.ShouldBlock {
		return fmt.Errorf("%w: retry in %s", ErrRateLimited, result.RemainingTime.Round(time.Second))
	}

	return c.repo.TransitionStatus(id, email.StatusFailed, email.StatusPending, "")
}

// mergeEscalated overlays escalated values onto rule-extracted fields.
// Rule matches win; escalation only fills gaps. Completeness is
// recomputed over the merged fields.
func (c *Controller) mergeEscalated(candidate *parser.ShipmentCandidate, raw *email.RawEmail, result parser.EscalationResult) {
	confidence := parser.ConfidenceLow
	if result.Confidence >= 0.7 {
		confidence = parser.ConfidenceHigh
	}

	overlay := map[string]string{
		parser.FieldTrackingNumber: result.TrackingNumber,
		parser.FieldWithdrawalCode: result.WithdrawalCode,
		parser.FieldPickupAddress:  result.PickupAddress,
		parser.FieldPickupDeadline: result.PickupDeadline,
	}
	for field, value := range overlay {
		if value == "" || candidate.Fields.Has(field) {
			continue
		}
		candidate.Fields[field] = parser.FieldResult{
			Value:         value,
			SourcePattern: "escalation",
			Confidence:    confidence,
		}
	}
	if candidate.Carrier == "" && result.Carrier != "" {
		candidate.Carrier = result.Carrier
	}

	stripped := c.sanitizer.StripMarkup(c.sanitizer.Normalize(raw.Body()))
	candidate.Completeness, candidate.IsTrackingEmail = c.scorer.Score(candidate, stripped)
}
