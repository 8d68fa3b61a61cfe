package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopglot/shopglot-api/internal/api/shared"
	"github.com/shopglot/shopglot-api/internal/platform/logger"
	"github.com/shopglot/shopglot-api/internal/retry"
)

// WebhookHandler ingests webhook deliveries and dispatches them to the
// registered topic handlers. A delivery that fails in-process is
// recorded in the retry ledger instead of being surfaced to the sender:
// the endpoint always acknowledges valid deliveries so the upstream does
// not redeliver on its own schedule.
type WebhookHandler struct {
	registry *retry.Registry
	retries  *retry.Service
	logger   *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(registry *retry.Registry, retries *retry.Service, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		registry: registry,
		retries:  retries,
		logger:   logger.With(slog.String("component", "webhook_handler")),
	}
}

// HandleDelivery handles POST /webhooks/{topic}. The topic is the path
// remainder after /webhooks/, so topics with slashes ("products/update")
// route correctly. HMAC verification happens in middleware before this
// handler runs.
func (h *WebhookHandler) HandleDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContextOrDefault(ctx, h.logger)

	topic := strings.Trim(chi.URLParam(r, "*"), "/")
	if topic == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing webhook topic")
		return
	}
	shop := r.Header.Get(ShopDomainHeader)
	if shop == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing "+ShopDomainHeader+" header")
		return
	}

	handler, ok := h.registry.Resolve(topic)
	if !ok {
		log.Warn("webhook delivery for unknown topic", "topic", topic, "shop", shop)
		shared.RespondWithError(w, r, http.StatusNotFound, "Unknown webhook topic")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(body) == 0 || !json.Valid(body) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Webhook body must be valid JSON")
		return
	}

	if err := handler.HandleDelivery(ctx, shop, body); err != nil {
		log.Warn("webhook handler failed, scheduling retry",
			"topic", topic,
			"shop", shop,
			"error", err)
		h.retries.ScheduleRetry(ctx, shop, topic, json.RawMessage(body), err)
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
