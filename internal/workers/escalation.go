package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"flipmail/internal/parser"
	"flipmail/internal/triage"
)

// EscalationWorker drains the pending unparsed email queue and runs
// each record through the external extractor. All status transitions
// go through the triage controller.
type EscalationWorker struct {
	ctx        context.Context
	cancel     context.CancelFunc
	config     *EscalationConfig
	controller *triage.Controller
	repo       triage.Repository
	escalator  parser.Escalator
	paused     atomic.Bool
	logger     *slog.Logger
	metrics    *EscalationMetrics
}

// EscalationConfig configures the escalation worker behavior
type EscalationConfig struct {
	CheckInterval  time.Duration
	BatchSize      int
	UserID         string
	RequestTimeout time.Duration
}

// EscalationMetrics tracks escalation statistics
type EscalationMetrics struct {
	TotalRuns atomic.Int64
	Picked    atomic.Int64
	Processed atomic.Int64
	Failed    atomic.Int64
	LastRun   atomic.Value // time.Time
	LastError atomic.Value // string
}

// NewEscalationWorker creates a new escalation worker
func NewEscalationWorker(
	config *EscalationConfig,
	controller *triage.Controller,
	repo triage.Repository,
	escalator parser.Escalator,
	logger *slog.Logger,
) *EscalationWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &EscalationWorker{
		ctx:        ctx,
		cancel:     cancel,
		config:     config,
		controller: controller,
		repo:       repo,
		escalator:  escalator,
		logger:     logger,
		metrics:    &EscalationMetrics{},
	}
}

// Start begins the background escalation loop
func (w *EscalationWorker) Start() {
	if !w.escalator.IsEnabled() {
		w.logger.Info("Escalation disabled, worker not started")
		return
	}

	w.logger.Info("Starting escalation worker",
		"check_interval", w.config.CheckInterval,
		"batch_size", w.config.BatchSize,
		"user", w.config.UserID)

	go w.loop()
}

// Stop gracefully stops the worker
func (w *EscalationWorker) Stop() {
	w.logger.Info("Stopping escalation worker")
	w.cancel()
}

// Pause temporarily pauses the queue drain
func (w *EscalationWorker) Pause() {
	w.paused.Store(true)
	w.logger.Info("Escalation worker paused")
}

// Resume resumes the queue drain
func (w *EscalationWorker) Resume() {
	w.paused.Store(false)
	w.logger.Info("Escalation worker resumed")
}

// IsPaused returns true if the worker is currently paused
func (w *EscalationWorker) IsPaused() bool {
	return w.paused.Load()
}

// IsRunning returns true if the worker has not been stopped
func (w *EscalationWorker) IsRunning() bool {
	select {
	case <-w.ctx.Done():
		return false
	default:
		return true
	}
}

// GetMetrics returns current escalation metrics
func (w *EscalationWorker) GetMetrics() *EscalationMetrics {
	return w.metrics
}

// loop is the main background loop draining the pending queue
func (w *EscalationWorker) loop() {
	ticker := time.NewTicker(w.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("Escalation loop stopped")
			return

		case <-ticker.C:
			if !w.paused.Load() {
				w.DrainOnce()
			}
		}
	}
}

// DrainOnce performs a single drain pass over the pending queue
func (w *EscalationWorker) DrainOnce() {
	start := time.Now()
	w.metrics.TotalRuns.Add(1)

	records, err := w.repo.FindPendingByUser(w.config.UserID, w.config.BatchSize)
	if err != nil {
		w.logger.Error("Failed to fetch pending queue", "error", err)
		w.metrics.LastError.Store(err.Error())
		return
	}
	if len(records) == 0 {
		w.metrics.LastRun.Store(time.Now())
		return
	}

	w.logger.Info("Draining escalation queue", "pending", len(records))

	for _, rec := range records {
		select {
		case <-w.ctx.Done():
			w.logger.Warn("Drain cancelled")
			return
		default:
		}

		w.metrics.Picked.Add(1)
		if w.escalateOne(rec.ID) {
			w.metrics.Processed.Add(1)
		} else {
			w.metrics.Failed.Add(1)
		}
	}

	w.metrics.LastRun.Store(time.Now())
	w.logger.Info("Escalation drain completed",
		"duration", time.Since(start),
		"picked", len(records))
}

// escalateOne runs one queued record through the external extractor.
// Returns true when the record reached processed.
func (w *EscalationWorker) escalateOne(id int64) bool {
	rec, err := w.controller.BeginEscalation(id)
	if err != nil {
		// Another drain pass or a manual action got there first
		w.logger.Warn("Could not begin escalation", "queue_id", id, "error", err)
		return false
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.config.RequestTimeout)
	defer cancel()

	result, err := w.escalator.Escalate(ctx, rec)
	if err != nil {
		if failErr := w.controller.FailEscalation(id, err); failErr != nil {
			w.logger.Error("Failed to record escalation failure", "queue_id", id, "error", failErr)
		}
		return false
	}

	if err := w.controller.CompleteEscalation(rec, result); err != nil {
		w.logger.Error("Failed to complete escalation", "queue_id", id, "error", err)
		if failErr := w.controller.FailEscalation(id, err); failErr != nil {
			w.logger.Error("Failed to record escalation failure", "queue_id", id, "error", failErr)
		}
		return false
	}

	return true
}
