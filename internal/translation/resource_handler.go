package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopglot/shopglot-api/internal/store"
)

// resourceEventPayload is the shape shared by the resource update and
// delete events this subsystem consumes.
type resourceEventPayload struct {
	ResourceID string `json:"resource_id"`
}

// ResourceUpdateHandler reacts to upstream content changes by dropping
// the now-stale mirrored translations for the resource. The next bulk
// run rebuilds them. It implements the retry package's Handler
// interface so failed deliveries land in the retry ledger.
type ResourceUpdateHandler struct {
	translations store.TranslationStore
	logger       *slog.Logger
}

// NewResourceUpdateHandler creates a handler for resource change events.
func NewResourceUpdateHandler(translations store.TranslationStore, logger *slog.Logger) (*ResourceUpdateHandler, error) {
	if translations == nil {
		return nil, ErrNilTranslationStore
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ResourceUpdateHandler{
		translations: translations,
		logger:       logger.With(slog.String("component", "resource_update_handler")),
	}, nil
}

// HandleDelivery invalidates the local translation mirror for the
// resource named in the event payload.
func (h *ResourceUpdateHandler) HandleDelivery(ctx context.Context, shop string, payload json.RawMessage) error {
	var event resourceEventPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to unmarshal resource event payload: %w", err)
	}
	if event.ResourceID == "" {
		return fmt.Errorf("resource event payload missing resource_id")
	}

	removed, err := h.translations.DeleteByResource(ctx, shop, event.ResourceID)
	if err != nil {
		return fmt.Errorf("failed to invalidate translation mirror: %w", err)
	}

	h.logger.Info("invalidated translation mirror after resource change",
		"shop", shop,
		"resource_id", event.ResourceID,
		"removed", removed)
	return nil
}
