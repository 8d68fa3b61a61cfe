package store

import (
	"context"
	"database/sql"

	"github.com/shopglot/shopglot-api/internal/domain"
)

// TranslationStore defines the interface for the local mirror of
// translated field values.
type TranslationStore interface {
	// Upsert inserts or replaces the mirrored value for the
	// (shop, resource, locale, field) key.
	Upsert(ctx context.Context, tr *domain.Translation) error

	// UpsertMany writes a batch of mirrored values atomically.
	UpsertMany(ctx context.Context, trs []*domain.Translation) error

	// FindByResource returns all mirrored translations for a resource,
	// scoped to the given shop.
	FindByResource(ctx context.Context, shop, resourceID string) ([]*domain.Translation, error)

	// DeleteByResource removes all mirrored translations for a resource,
	// scoped to the given shop. Returns the number of rows removed.
	DeleteByResource(ctx context.Context, shop, resourceID string) (int64, error)

	// WithTx returns a new TranslationStore instance that uses the
	// provided transaction.
	WithTx(tx *sql.Tx) TranslationStore
}
