package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopglot/shopglot-api/internal/api/shared"
	"github.com/shopglot/shopglot-api/internal/platform/logger"
	"github.com/shopglot/shopglot-api/internal/translation"
)

// TranslationHandler accepts bulk translation requests and hands them
// to the orchestrator for asynchronous execution.
type TranslationHandler struct {
	orchestrator *translation.Orchestrator
	validator    *validator.Validate
	logger       *slog.Logger
}

// NewTranslationHandler creates a new TranslationHandler.
func NewTranslationHandler(orchestrator *translation.Orchestrator, logger *slog.Logger) *TranslationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TranslationHandler{
		orchestrator: orchestrator,
		validator:    validator.New(),
		logger:       logger.With(slog.String("component", "translation_handler")),
	}
}

// BulkTranslationRequest is the request body for POST /api/translations/bulk.
type BulkTranslationRequest struct {
	ResourceType  string            `json:"resource_type"`
	ResourceID    string            `json:"resource_id"   validate:"required"`
	Fields        map[string]string `json:"fields"        validate:"required,min=1"`
	SourceLocale  string            `json:"source_locale" validate:"required"`
	TargetLocales []string          `json:"target_locales" validate:"required,min=1,dive,required"`
}

// BulkTranslationResponse is returned with 202 Accepted. Clients poll
// the task endpoint with the returned ID.
type BulkTranslationResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// BulkTranslate handles POST /api/translations/bulk. The translation run
// happens in the background: the response carries only the task ID.
func (h *TranslationHandler) BulkTranslate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContextOrDefault(ctx, h.logger)

	shop := r.Header.Get(ShopDomainHeader)
	if shop == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing "+ShopDomainHeader+" header")
		return
	}

	var req BulkTranslationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		if errors.Is(err, shared.ErrEmptyRequestBody) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Empty request body")
			return
		}
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	taskID, err := h.orchestrator.StartBulkTranslation(ctx, translation.BulkTranslationRequest{
		Shop:          shop,
		ResourceType:  req.ResourceType,
		ResourceID:    req.ResourceID,
		Fields:        req.Fields,
		SourceLocale:  req.SourceLocale,
		TargetLocales: req.TargetLocales,
	})
	if err != nil {
		log.Error("failed to start bulk translation",
			"shop", shop,
			"resource_id", req.ResourceID,
			"error", err)
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	log.Info("bulk translation accepted",
		"task_id", taskID,
		"shop", shop,
		"resource_id", req.ResourceID,
		"locale_count", len(req.TargetLocales))

	shared.RespondWithJSON(w, r, http.StatusAccepted, BulkTranslationResponse{
		TaskID: taskID.String(),
		Status: "pending",
	})
}
