package retry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopglot/shopglot-api/internal/domain"
	"github.com/shopglot/shopglot-api/internal/store"
)

// Clock supplies the current time, injected for testability of
// scheduling logic.
type Clock func() time.Time

// Service records failed deliveries in the durable ledger for later
// redelivery by the Scheduler.
type Service struct {
	store       store.RetryStore
	clock       Clock
	maxAttempts int
	logger      *slog.Logger
}

// NewService creates a retry Service. maxAttempts <= 0 falls back to
// domain.DefaultMaxAttempts.
func NewService(retryStore store.RetryStore, clock Clock, maxAttempts int, logger *slog.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:       retryStore,
		clock:       clock,
		maxAttempts: maxAttempts,
		logger:      logger.With(slog.String("component", "retry_service")),
	}
}

// ScheduleRetry records a failed delivery for redelivery. The payload is
// serialized as-is when it is already JSON bytes, otherwise marshaled.
//
// ScheduleRetry never returns an error: retry bookkeeping must not block
// or fail the original caller, so persistence problems are logged and
// swallowed.
func (s *Service) ScheduleRetry(ctx context.Context, shop, topic string, payload any, cause error) {
	raw, err := serializePayload(payload)
	if err != nil {
		s.logger.Error("failed to serialize retry payload, delivery dropped",
			"shop", shop,
			"topic", topic,
			"error", err)
		return
	}

	entry, err := domain.NewRetryLedgerEntry(shop, topic, raw, cause, s.maxAttempts, s.clock())
	if err != nil {
		s.logger.Error("failed to build retry ledger entry, delivery dropped",
			"shop", shop,
			"topic", topic,
			"error", err)
		return
	}

	if err := s.store.Create(ctx, entry); err != nil {
		s.logger.Error("failed to persist retry ledger entry, delivery dropped",
			"shop", shop,
			"topic", topic,
			"entry_id", entry.ID,
			"error", err)
		return
	}

	s.logger.Info("delivery scheduled for retry",
		"shop", shop,
		"topic", topic,
		"entry_id", entry.ID,
		"next_retry", entry.NextRetry)
}

func serializePayload(payload any) (json.RawMessage, error) {
	switch v := payload.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		return v, nil
	case []byte:
		return json.RawMessage(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		return data, nil
	}
}
