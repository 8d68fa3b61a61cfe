package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopglot/shopglot-api/internal/domain"
)

// RetryStore defines the interface for persisting retry ledger entries.
type RetryStore interface {
	// Create persists a new ledger entry.
	Create(ctx context.Context, entry *domain.RetryLedgerEntry) error

	// Update saves an entry's attempt counter, next retry time and last
	// error after a failed redelivery.
	Update(ctx context.Context, entry *domain.RetryLedgerEntry) error

	// Delete removes an entry by ID. Deleting a missing entry is a no-op.
	Delete(ctx context.Context, id uuid.UUID) error

	// Due returns up to limit entries whose next retry time is at or
	// before now and whose attempt budget is not exhausted, ordered by
	// next retry time ascending (oldest-due first).
	Due(ctx context.Context, now time.Time, limit int) ([]*domain.RetryLedgerEntry, error)

	// DeleteExhausted removes all entries whose attempt counter has
	// reached their max attempts. Returns the number of rows removed.
	DeleteExhausted(ctx context.Context) (int64, error)

	// DeleteOlderThan removes all entries created before the cutoff.
	// Returns the number of rows removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
