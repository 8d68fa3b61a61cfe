package retry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopglot/shopglot-api/internal/domain"
	"github.com/shopglot/shopglot-api/internal/store"
)

// SchedulerConfig holds configuration for the retry scheduler.
type SchedulerConfig struct {
	// PollInterval is how often the scheduler scans for due entries.
	PollInterval time.Duration

	// BatchSize caps how many due entries one scan processes.
	BatchSize int

	// SweepInterval is how often the housekeeping sweep runs.
	SweepInterval time.Duration

	// Retention is how long ledger entries are kept before the sweep
	// removes them as a safety net against missed deletions.
	Retention time.Duration
}

// DefaultSchedulerConfig returns a SchedulerConfig with reasonable defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		PollInterval:  5 * time.Second,
		BatchSize:     10,
		SweepInterval: 24 * time.Hour,
		Retention:     7 * 24 * time.Hour,
	}
}

// Common errors returned by the Scheduler
var (
	ErrAlreadyStarted = errors.New("scheduler already started")
	ErrNilRetryStore  = errors.New("retry store cannot be nil")
	ErrNilRegistry    = errors.New("registry cannot be nil")
)

// Scheduler is the single background loop that drains the retry ledger.
// It polls for due entries on a fixed interval, re-invokes the
// registered handler for each entry's topic, and on failure reschedules
// with exponential backoff or drops the delivery after its attempt
// budget is exhausted. Its lifetime is owned by the composition root
// through Start and Stop.
type Scheduler struct {
	store    store.RetryStore
	registry *Registry
	clock    Clock
	config   SchedulerConfig
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a Scheduler. Zero config fields fall back to the
// defaults.
func NewScheduler(
	retryStore store.RetryStore,
	registry *Registry,
	clock Clock,
	config SchedulerConfig,
	logger *slog.Logger,
) (*Scheduler, error) {
	if retryStore == nil {
		return nil, ErrNilRetryStore
	}
	if registry == nil {
		return nil, ErrNilRegistry
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultSchedulerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaults.SweepInterval
	}
	if config.Retention <= 0 {
		config.Retention = defaults.Retention
	}

	return &Scheduler{
		store:    retryStore,
		registry: registry,
		clock:    clock,
		config:   config,
		logger:   logger.With(slog.String("component", "retry_scheduler")),
	}, nil
}

// Start launches the polling loop and the housekeeping sweep. It
// returns an error if the scheduler is already running.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.started = true

	s.wg.Add(2)
	go s.pollLoop(ctx)
	go s.sweepLoop(ctx)

	s.logger.Info("retry scheduler started",
		"poll_interval", s.config.PollInterval,
		"batch_size", s.config.BatchSize)
	return nil
}

// Stop cancels the polling loop and waits for in-flight work to finish.
// No further polls occur after Stop returns. Stopping a scheduler that
// was never started is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.logger.Info("retry scheduler stopped")
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("retry scan failed", "error", err)
			}
		}
	}
}

func (s *Scheduler) sweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// RunOnce performs a single scheduler pass: it removes entries that
// have exhausted their attempt budget, then processes up to BatchSize
// due entries in oldest-due-first order. One entry's failure never
// aborts the rest of the scan. It is exported so tests and callers can
// drive a pass synchronously.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if removed, err := s.store.DeleteExhausted(ctx); err != nil {
		s.logger.Error("failed to delete exhausted retry entries", "error", err)
	} else if removed > 0 {
		s.logger.Warn("dropped deliveries that exhausted their retries",
			"count", removed)
	}

	entries, err := s.store.Due(ctx, s.clock(), s.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to select due retry entries: %w", err)
	}

	for _, entry := range entries {
		s.processEntry(ctx, entry)
	}

	return nil
}

// processEntry redelivers one ledger entry. Success and exhaustion both
// delete the entry; a non-terminal failure reschedules it with the next
// backoff delay.
func (s *Scheduler) processEntry(ctx context.Context, entry *domain.RetryLedgerEntry) {
	log := s.logger.With(
		"entry_id", entry.ID,
		"shop", entry.Shop,
		"topic", entry.Topic,
		"attempt", entry.Attempt)

	handler, ok := s.registry.Resolve(entry.Topic)
	if !ok {
		// A topic without a handler is a configuration error, not a
		// transient condition. Retrying would never succeed.
		log.Error("no handler registered for topic, discarding entry")
		if err := s.store.Delete(ctx, entry.ID); err != nil {
			log.Error("failed to delete unroutable entry", "error", err)
		}
		return
	}

	err := s.invoke(ctx, handler, entry.Shop, entry.Payload)
	if err == nil {
		log.Info("delivery succeeded on retry")
		if err := s.store.Delete(ctx, entry.ID); err != nil {
			log.Error("failed to delete redelivered entry", "error", err)
		}
		return
	}

	entry.RecordFailure(err, s.clock())

	if entry.Exhausted() {
		// Operator-visible terminal outcome: the event is dropped after
		// exhausting its retries.
		log.Error("delivery failed permanently, dropping after max attempts",
			"max_attempts", entry.MaxAttempts,
			"last_error", entry.LastError)
		if err := s.store.Delete(ctx, entry.ID); err != nil {
			log.Error("failed to delete exhausted entry", "error", err)
		}
		return
	}

	log.Warn("delivery failed, rescheduling",
		"next_retry", entry.NextRetry,
		"error", err)
	if err := s.store.Update(ctx, entry); err != nil {
		log.Error("failed to persist rescheduled entry", "error", err)
	}
}

// invoke runs a handler, converting a panic into an error so one
// misbehaving handler cannot abort the scan of the remaining entries.
func (s *Scheduler) invoke(
	ctx context.Context,
	handler Handler,
	shop string,
	payload json.RawMessage,
) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panicked: %v", p)
		}
	}()

	return handler.HandleDelivery(ctx, shop, payload)
}

// sweep removes stale and exhausted entries as a safety net against the
// main loop's deletions being skipped by a crash.
func (s *Scheduler) sweep(ctx context.Context) {
	cutoff := s.clock().Add(-s.config.Retention)

	stale, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("retention sweep failed", "error", err)
	}

	exhausted, err := s.store.DeleteExhausted(ctx)
	if err != nil {
		s.logger.Error("exhausted-entry sweep failed", "error", err)
	}

	if stale > 0 || exhausted > 0 {
		s.logger.Info("swept retry ledger",
			"stale_removed", stale,
			"exhausted_removed", exhausted,
			"cutoff", cutoff)
	}
}
