package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopglot/shopglot-api/internal/api/shared"
	"github.com/shopglot/shopglot-api/internal/domain"
	"github.com/shopglot/shopglot-api/internal/platform/logger"
	"github.com/shopglot/shopglot-api/internal/task"
)

// ShopDomainHeader identifies the tenant a request acts on behalf of.
const ShopDomainHeader = "X-Shop-Domain"

// TaskHandler exposes read access to task records.
type TaskHandler struct {
	lifecycle *task.Lifecycle
	logger    *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(lifecycle *task.Lifecycle, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		lifecycle: lifecycle,
		logger:    logger.With(slog.String("component", "task_handler")),
	}
}

// TaskResponse is the wire representation of a task record.
type TaskResponse struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	Status       string     `json:"status"`
	ResourceType string     `json:"resource_type"`
	ResourceID   string     `json:"resource_id"`
	Progress     int        `json:"progress"`
	Processed    *int       `json:"processed,omitempty"`
	Total        *int       `json:"total,omitempty"`
	Result       string     `json:"result,omitempty"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// GetTask handles GET /api/tasks/{id}. A task is only visible to the
// shop that created it: a mismatched tenant gets the same 404 as a
// missing task so task IDs cannot be probed across shops.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContextOrDefault(ctx, h.logger)

	shop := r.Header.Get(ShopDomainHeader)
	if shop == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing "+ShopDomainHeader+" header")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	t, err := h.lifecycle.Get(ctx, id)
	if err != nil {
		log.Debug("task lookup failed", "task_id", id, "error", err)
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	if t.Shop != shop {
		log.Warn("task requested by wrong shop",
			"task_id", id,
			"requesting_shop", shop)
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toTaskResponse(t))
}

func toTaskResponse(t *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:           t.ID.String(),
		Type:         string(t.Type),
		Status:       string(t.Status),
		ResourceType: t.ResourceType,
		ResourceID:   t.ResourceID,
		Progress:     t.Progress,
		Processed:    t.Processed,
		Total:        t.Total,
		Result:       t.Result,
		Error:        t.Error,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	if !t.ExpiresAt.IsZero() {
		expires := t.ExpiresAt
		resp.ExpiresAt = &expires
	}
	return resp
}
