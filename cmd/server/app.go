package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopglot/shopglot-api/internal/config"
	"github.com/shopglot/shopglot-api/internal/platform/gemini"
	"github.com/shopglot/shopglot-api/internal/platform/postgres"
	"github.com/shopglot/shopglot-api/internal/platform/shopgql"
	"github.com/shopglot/shopglot-api/internal/retry"
	"github.com/shopglot/shopglot-api/internal/store"
	"github.com/shopglot/shopglot-api/internal/task"
	"github.com/shopglot/shopglot-api/internal/translation"
)

// webhook topics dispatched to registered handlers. Upstream resource
// changes invalidate the local translation mirror so stale values are
// not served after the merchant edits source content.
const (
	topicProductsUpdate    = "products/update"
	topicCollectionsUpdate = "collections/update"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config

	logger *slog.Logger
	db     *sql.DB

	taskStore        store.TaskStore
	retryStore       store.RetryStore
	translationStore store.TranslationStore

	lifecycle    *task.Lifecycle
	registry     *retry.Registry
	retryService *retry.Service
	scheduler    *retry.Scheduler
	orchestrator *translation.Orchestrator
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, logger,
// and database connection that must be established before application
// initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Stores
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.retryStore = postgres.NewPostgresRetryStore(db, logger)
	app.translationStore = postgres.NewPostgresTranslationStore(db, logger)

	// Task lifecycle manager
	var err error
	app.lifecycle, err = task.NewLifecycle(
		app.taskStore,
		time.Now,
		task.TTLExpiryPolicy(cfg.Task.ExpiryTTL),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task lifecycle: %w", err)
	}

	// Remote content gateway
	gateway, err := shopgql.NewClient(cfg.Shop, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create content gateway: %w", err)
	}

	// AI translation provider
	provider, err := gemini.NewTranslator(ctx, logger.With("component", "llm_translator"), cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize translation provider: %w", err)
	}
	logger.Info("translation provider initialized", "model", cfg.LLM.ModelName)

	// Batch orchestrator
	app.orchestrator, err = translation.NewOrchestrator(
		app.lifecycle,
		gateway,
		provider,
		app.translationStore,
		cfg.Translation.MaxConcurrency,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create translation orchestrator: %w", err)
	}

	// Retry ledger
	app.registry = retry.NewRegistry(logger)
	app.retryService = retry.NewService(app.retryStore, nil, cfg.Retry.MaxAttempts, logger)

	if err := app.registerWebhookHandlers(); err != nil {
		return nil, fmt.Errorf("failed to register webhook handlers: %w", err)
	}

	app.scheduler, err = retry.NewScheduler(
		app.retryStore,
		app.registry,
		nil,
		retry.SchedulerConfig{
			PollInterval:  cfg.Retry.PollInterval,
			BatchSize:     cfg.Retry.BatchSize,
			SweepInterval: cfg.Retry.SweepInterval,
			Retention:     cfg.Retry.Retention,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retry scheduler: %w", err)
	}
	if err := app.scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start retry scheduler: %w", err)
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// registerWebhookHandlers binds each supported webhook topic to its
// delivery handler. The same handlers serve both live deliveries and
// scheduler-driven retries.
func (app *application) registerWebhookHandlers() error {
	resourceHandler, err := translation.NewResourceUpdateHandler(app.translationStore, app.logger)
	if err != nil {
		return err
	}

	for _, topic := range []string{topicProductsUpdate, topicCollectionsUpdate} {
		if err := app.registry.Register(topic, resourceHandler); err != nil {
			return err
		}
	}
	return nil
}

// Run starts the application server, handling lifecycle and cleanup.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
