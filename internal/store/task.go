package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopglot/shopglot-api/internal/domain"
)

// TaskStore defines the interface for persisting task records.
type TaskStore interface {
	// Create persists a new task. Returns validation errors from the
	// domain Task if the data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update saves the task's current state, keyed by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}
