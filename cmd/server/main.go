package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"flipmail/internal/config"
	"flipmail/internal/database"
	"flipmail/internal/email"
	"flipmail/internal/parser"
	"flipmail/internal/server"
	"flipmail/internal/triage"
	"flipmail/internal/workers"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("database initialized", "path", cfg.Database.Path)

	extractor := parser.NewExtractor()

	blocking := make([]parser.AnomalyFlag, 0, len(cfg.Triage.Blocking))
	for _, flag := range cfg.Triage.Blocking {
		blocking = append(blocking, parser.AnomalyFlag(flag))
	}
	controller := triage.NewController(
		triage.Config{
			AcceptThreshold: cfg.Triage.AcceptThreshold,
			Blocking:        blocking,
		},
		extractor,
		db.UnparsedEmails,
		triage.SinkFunc(func(userID string, c *parser.ShipmentCandidate, source string) error {
			sh := database.ShipmentFromCandidate(userID, c)
			sh.Source = source
			return db.Shipments.CreateOrUpdate(sh)
		}),
		logger,
	)

	escalator := parser.NewEscalator(&parser.EscalatorConfig{
		Endpoint:     cfg.Escalation.Endpoint,
		Model:        cfg.Escalation.Model,
		APIKey:       cfg.Escalation.APIKey,
		Temperature:  cfg.Escalation.Temperature,
		MaxBodyChars: cfg.Escalation.MaxBodyChars,
		Timeout:      cfg.Escalation.Timeout,
		Enabled:      cfg.Escalation.Enabled,
	})

	escalationWorker := workers.NewEscalationWorker(
		&workers.EscalationConfig{
			CheckInterval:  cfg.Escalation.CheckInterval,
			BatchSize:      cfg.Escalation.BatchSize,
			UserID:         cfg.Mailbox.UserID,
			RequestTimeout: cfg.Escalation.RequestTimeout,
		},
		controller,
		db.UnparsedEmails,
		escalator,
		logger,
	)
	escalationWorker.Start()
	defer escalationWorker.Stop()

	var fetcher *workers.MailboxFetcher
	if cfg.Mailbox.Enabled {
		client, err := email.NewGmailClient(&email.GmailConfig{
			ClientID:       cfg.Gmail.ClientID,
			ClientSecret:   cfg.Gmail.ClientSecret,
			RefreshToken:   cfg.Gmail.RefreshToken,
			AccessToken:    cfg.Gmail.AccessToken,
			UserEmail:      cfg.Gmail.UserEmail,
			MaxResults:     cfg.Gmail.MaxResults,
			RequestTimeout: cfg.Gmail.RequestTimeout,
			RateLimitDelay: cfg.Gmail.RateLimitDelay,
		})
		if err != nil {
			logger.Error("failed to create gmail client", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		fetcher = workers.NewMailboxFetcher(
			&workers.FetcherConfig{
				AfterDays:   cfg.Mailbox.AfterDays,
				UnreadOnly:  cfg.Mailbox.UnreadOnly,
				SearchQuery: cfg.Mailbox.SearchQuery,
				UserID:      cfg.Mailbox.UserID,
			},
			client,
			controller,
			logger,
		)
		if err := fetcher.HealthCheck(); err != nil {
			logger.Warn("mailbox health check failed", "error", err)
		}
	}

	router := server.NewRouter(server.Deps{
		DB:         db,
		Controller: controller,
		Extractor:  extractor,
		Escalation: escalationWorker,
		Fetcher:    fetcher,
		Logger:     logger,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: router,

		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sh := server.NewSignalHandler(srv, 30*time.Second, logger)
	if err := sh.ListenAndWait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
