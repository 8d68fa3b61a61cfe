package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopglot/shopglot-api/internal/domain"
	"github.com/shopglot/shopglot-api/internal/platform/logger"
	"github.com/shopglot/shopglot-api/internal/store"
)

// PostgresRetryStore implements the store.RetryStore interface using
// PostgreSQL as the storage backend for the retry ledger.
type PostgresRetryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresRetryStore creates a new PostgreSQL implementation of the
// RetryStore interface. If logger is nil, a default logger will be used.
func NewPostgresRetryStore(db store.DBTX, log *slog.Logger) *PostgresRetryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresRetryStore{
		db:     db,
		logger: log.With(slog.String("component", "retry_store")),
	}
}

// Ensure PostgresRetryStore implements store.RetryStore
var _ store.RetryStore = (*PostgresRetryStore)(nil)

// Create implements store.RetryStore.Create
func (s *PostgresRetryStore) Create(ctx context.Context, entry *domain.RetryLedgerEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO retry_ledger (id, shop, topic, payload, attempt,
			max_attempts, next_retry, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Shop,
		entry.Topic,
		[]byte(entry.Payload),
		entry.Attempt,
		entry.MaxAttempts,
		entry.NextRetry,
		nullString(entry.LastError),
		entry.CreatedAt,
	)
	if err != nil {
		log.Error("failed to save retry ledger entry",
			slog.String("entry_id", entry.ID.String()),
			slog.String("topic", entry.Topic),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// Update implements store.RetryStore.Update
func (s *PostgresRetryStore) Update(ctx context.Context, entry *domain.RetryLedgerEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE retry_ledger
		SET attempt = $1, next_retry = $2, last_error = $3
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query,
		entry.Attempt,
		entry.NextRetry,
		nullString(entry.LastError),
		entry.ID,
	)
	if err != nil {
		log.Error("failed to update retry ledger entry",
			slog.String("entry_id", entry.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rowsAffected == 0 {
		return store.ErrRetryEntryNotFound
	}

	return nil
}

// Delete implements store.RetryStore.Delete
func (s *PostgresRetryStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `DELETE FROM retry_ledger WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete retry ledger entry",
			slog.String("entry_id", id.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// Due implements store.RetryStore.Due. Entries are returned oldest-due
// first so redelivery is FIFO within the due set.
func (s *PostgresRetryStore) Due(ctx context.Context, now time.Time, limit int) ([]*domain.RetryLedgerEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, shop, topic, payload, attempt, max_attempts,
			next_retry, last_error, created_at
		FROM retry_ledger
		WHERE next_retry <= $1 AND attempt < max_attempts
		ORDER BY next_retry ASC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		log.Error("failed to query due retry entries",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*domain.RetryLedgerEntry
	for rows.Next() {
		var (
			entry     domain.RetryLedgerEntry
			payload   []byte
			lastError sql.NullString
		)

		if err := rows.Scan(
			&entry.ID,
			&entry.Shop,
			&entry.Topic,
			&payload,
			&entry.Attempt,
			&entry.MaxAttempts,
			&entry.NextRetry,
			&lastError,
			&entry.CreatedAt,
		); err != nil {
			log.Error("failed to scan retry ledger row",
				slog.String("error", err.Error()))
			return nil, MapError(err)
		}

		entry.Payload = payload
		entry.LastError = lastError.String
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return entries, nil
}

// DeleteExhausted implements store.RetryStore.DeleteExhausted
func (s *PostgresRetryStore) DeleteExhausted(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM retry_ledger WHERE attempt >= max_attempts`)
	if err != nil {
		return 0, MapError(err)
	}
	return result.RowsAffected()
}

// DeleteOlderThan implements store.RetryStore.DeleteOlderThan
func (s *PostgresRetryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM retry_ledger WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, MapError(err)
	}
	return result.RowsAffected()
}
