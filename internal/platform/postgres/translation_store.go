package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/shopglot/shopglot-api/internal/domain"
	"github.com/shopglot/shopglot-api/internal/platform/logger"
	"github.com/shopglot/shopglot-api/internal/store"
)

// PostgresTranslationStore implements the store.TranslationStore
// interface using PostgreSQL as the local mirror of registered
// translations.
type PostgresTranslationStore struct {
	db store.DBTX

	// pool is set when the store was constructed from *sql.DB; it is
	// needed to open the transaction that backs UpsertMany.
	pool   *sql.DB
	logger *slog.Logger
}

// NewPostgresTranslationStore creates a new PostgreSQL implementation
// of the TranslationStore interface. If logger is nil, a default logger
// will be used.
func NewPostgresTranslationStore(db *sql.DB, log *slog.Logger) *PostgresTranslationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &PostgresTranslationStore{
		db:     db,
		pool:   db,
		logger: log.With(slog.String("component", "translation_store")),
	}
}

// Ensure PostgresTranslationStore implements store.TranslationStore
var _ store.TranslationStore = (*PostgresTranslationStore)(nil)

// Upsert implements store.TranslationStore.Upsert
func (s *PostgresTranslationStore) Upsert(ctx context.Context, tr *domain.Translation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := tr.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO translations (id, shop, resource_id, locale, field,
			value, source_locale, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (shop, resource_id, locale, field)
		DO UPDATE SET value = EXCLUDED.value,
			source_locale = EXCLUDED.source_locale,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		tr.ID,
		tr.Shop,
		tr.ResourceID,
		tr.Locale,
		tr.Field,
		tr.Value,
		tr.SourceLocale,
		tr.CreatedAt,
		tr.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to upsert translation",
			slog.String("shop", tr.Shop),
			slog.String("resource_id", tr.ResourceID),
			slog.String("locale", tr.Locale),
			slog.String("field", tr.Field),
			slog.String("error", err.Error()))
		return MapError(err)
	}

	return nil
}

// UpsertMany implements store.TranslationStore.UpsertMany. When the
// store is backed by a connection pool the writes run in a single
// transaction; within an existing transaction they join it.
func (s *PostgresTranslationStore) UpsertMany(ctx context.Context, trs []*domain.Translation) error {
	if len(trs) == 0 {
		return nil
	}

	if s.pool == nil {
		// Already inside a caller-managed transaction.
		for _, tr := range trs {
			if err := s.Upsert(ctx, tr); err != nil {
				return err
			}
		}
		return nil
	}

	return store.RunInTransaction(ctx, s.pool, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.WithTx(tx)
		for _, tr := range trs {
			if err := txStore.Upsert(ctx, tr); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByResource implements store.TranslationStore.FindByResource
func (s *PostgresTranslationStore) FindByResource(ctx context.Context, shop, resourceID string) ([]*domain.Translation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, shop, resource_id, locale, field, value,
			source_locale, created_at, updated_at
		FROM translations
		WHERE shop = $1 AND resource_id = $2
		ORDER BY locale ASC, field ASC
	`

	rows, err := s.db.QueryContext(ctx, query, shop, resourceID)
	if err != nil {
		log.Error("failed to query translations",
			slog.String("shop", shop),
			slog.String("resource_id", resourceID),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var translations []*domain.Translation
	for rows.Next() {
		var (
			tr           domain.Translation
			sourceLocale sql.NullString
		)

		if err := rows.Scan(
			&tr.ID,
			&tr.Shop,
			&tr.ResourceID,
			&tr.Locale,
			&tr.Field,
			&tr.Value,
			&sourceLocale,
			&tr.CreatedAt,
			&tr.UpdatedAt,
		); err != nil {
			return nil, MapError(err)
		}

		tr.SourceLocale = sourceLocale.String
		translations = append(translations, &tr)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return translations, nil
}

// DeleteByResource implements store.TranslationStore.DeleteByResource
func (s *PostgresTranslationStore) DeleteByResource(ctx context.Context, shop, resourceID string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM translations WHERE shop = $1 AND resource_id = $2`,
		shop, resourceID)
	if err != nil {
		return 0, MapError(err)
	}
	return result.RowsAffected()
}

// WithTx implements store.TranslationStore.WithTx
func (s *PostgresTranslationStore) WithTx(tx *sql.Tx) store.TranslationStore {
	return &PostgresTranslationStore{
		db:     tx,
		logger: s.logger,
	}
}
