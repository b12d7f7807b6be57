package workers

import (
	"log/slog"
	"sync/atomic"
	"time"

	"flipmail/internal/email"
	"flipmail/internal/triage"
)

// MailboxFetcher pulls shipment notification emails from a mailbox
// provider on demand and feeds them to the triage controller. There is
// no schedule; each fetch is caller initiated. Ingestion is idempotent,
// so re-seeing a message on a later fetch is harmless.
type MailboxFetcher struct {
	config     *FetcherConfig
	client     email.Client
	controller *triage.Controller
	logger     *slog.Logger
	metrics    *FetcherMetrics
}

// FetcherConfig configures the mailbox fetcher
type FetcherConfig struct {
	AfterDays   int
	UnreadOnly  bool
	SearchQuery string
	UserID      string
}

// FetcherMetrics tracks cumulative fetch statistics
type FetcherMetrics struct {
	TotalRuns  atomic.Int64
	Fetched    atomic.Int64
	Accepted   atomic.Int64
	Queued     atomic.Int64
	Duplicates atomic.Int64
	Errors     atomic.Int64
	LastRun    atomic.Value // time.Time
}

// FetchSummary reports the outcome of a single fetch pass
type FetchSummary struct {
	Fetched    int `json:"fetched"`
	Accepted   int `json:"accepted"`
	Queued     int `json:"queued"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

// NewMailboxFetcher creates a mailbox fetcher
func NewMailboxFetcher(
	config *FetcherConfig,
	client email.Client,
	controller *triage.Controller,
	logger *slog.Logger,
) *MailboxFetcher {
	return &MailboxFetcher{
		config:     config,
		client:     client,
		controller: controller,
		logger:     logger,
		metrics:    &FetcherMetrics{},
	}
}

// GetMetrics returns cumulative fetch metrics
func (f *MailboxFetcher) GetMetrics() *FetcherMetrics {
	return f.metrics
}

// HealthCheck verifies the mailbox provider is reachable
func (f *MailboxFetcher) HealthCheck() error {
	return f.client.HealthCheck()
}

// FetchOnce performs a single fetch-and-ingest pass
func (f *MailboxFetcher) FetchOnce() FetchSummary {
	start := time.Now()
	f.metrics.TotalRuns.Add(1)

	var summary FetchSummary

	query := f.config.SearchQuery
	if query == "" {
		query = email.BuildSearchQuery(nil, f.config.AfterDays, f.config.UnreadOnly, "")
	}

	messages, err := f.client.Search(query)
	if err != nil {
		f.logger.Error("Mailbox search failed", "error", err)
		f.metrics.Errors.Add(1)
		summary.Errors++
		return summary
	}

	summary.Fetched = len(messages)
	f.metrics.Fetched.Add(int64(len(messages)))

	for i := range messages {
		decision, err := f.controller.Ingest(f.config.UserID, &messages[i])
		if err != nil {
			f.logger.Error("Ingest failed", "message", messages[i].MessageID, "error", err)
			f.metrics.Errors.Add(1)
			summary.Errors++
			continue
		}

		switch decision.Outcome {
		case triage.OutcomeAccepted:
			f.metrics.Accepted.Add(1)
			summary.Accepted++
		case triage.OutcomeQueued:
			f.metrics.Queued.Add(1)
			summary.Queued++
		case triage.OutcomeDuplicate:
			f.metrics.Duplicates.Add(1)
			summary.Duplicates++
		}
	}

	f.metrics.LastRun.Store(time.Now())
	f.logger.Info("Mailbox fetch completed",
		"duration", time.Since(start),
		"fetched", summary.Fetched,
		"accepted", summary.Accepted,
		"queued", summary.Queued)

	return summary
}
