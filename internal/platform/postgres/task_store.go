package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopglot/shopglot-api/internal/domain"
	"github.com/shopglot/shopglot-api/internal/platform/logger"
	"github.com/shopglot/shopglot-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface using
// PostgreSQL as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, log *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: log.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, t *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := t.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", t.ID.String()))
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (id, shop, type, status, resource_type, resource_id,
			field_type, target_locale, progress, processed, total,
			result, error_message, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.Shop,
		t.Type,
		t.Status,
		t.ResourceType,
		t.ResourceID,
		nullString(t.FieldType),
		nullString(t.TargetLocale),
		t.Progress,
		nullInt(t.Processed),
		nullInt(t.Total),
		nullString(t.Result),
		nullString(t.Error),
		t.ExpiresAt,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to save task",
			slog.String("task_id", t.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, shop, type, status, resource_type, resource_id,
			field_type, target_locale, progress, processed, total,
			result, error_message, expires_at, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`

	t, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return t, nil
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, t *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = $1, progress = $2, processed = $3, total = $4,
			result = $5, error_message = $6, updated_at = $7
		WHERE id = $8
	`

	result, err := s.db.ExecContext(ctx, query,
		t.Status,
		t.Progress,
		nullInt(t.Processed),
		nullInt(t.Total),
		nullString(t.Result),
		nullString(t.Error),
		t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("task_id", t.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t            domain.Task
		fieldType    sql.NullString
		targetLocale sql.NullString
		processed    sql.NullInt64
		total        sql.NullInt64
		result       sql.NullString
		errorMessage sql.NullString
	)

	err := row.Scan(
		&t.ID,
		&t.Shop,
		&t.Type,
		&t.Status,
		&t.ResourceType,
		&t.ResourceID,
		&fieldType,
		&targetLocale,
		&t.Progress,
		&processed,
		&total,
		&result,
		&errorMessage,
		&t.ExpiresAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.FieldType = fieldType.String
	t.TargetLocale = targetLocale.String
	t.Result = result.String
	t.Error = errorMessage.String
	if processed.Valid {
		v := int(processed.Int64)
		t.Processed = &v
	}
	if total.Valid {
		v := int(total.Int64)
		t.Total = &v
	}

	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
