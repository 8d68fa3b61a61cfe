package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopglot/shopglot-api/internal/api"
	apiMiddleware "github.com/shopglot/shopglot-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	taskHandler := api.NewTaskHandler(app.lifecycle, app.logger)
	translationHandler := api.NewTranslationHandler(app.orchestrator, app.logger)
	webhookHandler := api.NewWebhookHandler(app.registry, app.retryService, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/tasks/{id}", taskHandler.GetTask)
		r.Post("/translations/bulk", translationHandler.BulkTranslate)
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Use(apiMiddleware.VerifyWebhookHMAC(app.config.Webhook.Secret))
		// Topics contain slashes ("products/update"), so the route is a
		// catch-all rather than a single path parameter.
		r.Post("/*", webhookHandler.HandleDelivery)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
