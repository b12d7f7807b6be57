package server

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"flipmail/internal/cache"
	"flipmail/internal/database"
	"flipmail/internal/handlers"
	"flipmail/internal/parser"
	"flipmail/internal/triage"
	"flipmail/internal/workers"
)

// Deps bundles everything the HTTP surface needs. Workers may be nil
// when the process runs without background processing.
type Deps struct {
	DB         *database.DB
	Controller *triage.Controller
	Extractor  *parser.Extractor
	Escalation *workers.EscalationWorker
	Fetcher    *workers.MailboxFetcher
	ParseCache *cache.Manager
	Logger     *slog.Logger
}

// NewRouter builds the chi router with all API routes registered
func NewRouter(deps Deps) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	parseCache := deps.ParseCache
	if parseCache == nil {
		parseCache = cache.NewManager(false, 5*time.Minute)
	}

	emailHandler := handlers.NewEmailHandler(deps.Controller, deps.Extractor, parseCache)
	queueHandler := handlers.NewQueueHandler(deps.DB.UnparsedEmails, deps.Controller)
	shipmentHandler := handlers.NewShipmentHandler(deps.DB.Shipments)
	healthHandler := handlers.NewHealthHandler(deps.DB)
	adminHandler := handlers.NewAdminHandler(deps.Escalation, deps.Fetcher)

	r := chi.NewRouter()
	r.Use(RecoveryMiddleware(logger))
	r.Use(LoggingMiddleware(logger))
	r.Use(SecurityMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HealthCheck)

		r.Route("/emails", func(r chi.Router) {
			r.Post("/ingest", emailHandler.Ingest)
			r.Post("/parse", emailHandler.Parse)
		})

		r.Route("/unparsed", func(r chi.Router) {
			r.Get("/", queueHandler.List)
			r.Get("/{id}", queueHandler.Get)
			r.Post("/{id}/requeue", queueHandler.Requeue)
			r.Delete("/{id}", queueHandler.Delete)
		})

		r.Route("/shipments", func(r chi.Router) {
			r.Get("/", shipmentHandler.List)
			r.Get("/{userID}/{messageID}", shipmentHandler.Get)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/metrics", adminHandler.Metrics)
			r.Post("/escalation/pause", adminHandler.PauseEscalation)
			r.Post("/escalation/resume", adminHandler.ResumeEscalation)
			r.Post("/mailbox/fetch", adminHandler.FetchMailbox)
		})
	})

	return r
}
