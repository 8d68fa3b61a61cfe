package retry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopglot/shopglot-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for scheduler tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(at time.Time) *fakeClock {
	return &fakeClock{now: at}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestScheduler(t *testing.T, retryStore *mockRetryStore, registry *Registry, clock *fakeClock) *Scheduler {
	t.Helper()
	s, err := NewScheduler(retryStore, registry, clock.Now, SchedulerConfig{
		PollInterval: time.Hour,
		BatchSize:    10,
	}, testLogger())
	require.NoError(t, err)
	return s
}

func scheduleEntry(t *testing.T, retryStore *mockRetryStore, clock *fakeClock, topic string, maxAttempts int) *domain.RetryLedgerEntry {
	t.Helper()
	entry, err := domain.NewRetryLedgerEntry(
		"demo.myshopify.com",
		topic,
		json.RawMessage(`{"resource_id":"gid://product/1"}`),
		errors.New("initial failure"),
		maxAttempts,
		clock.Now(),
	)
	require.NoError(t, err)
	require.NoError(t, retryStore.Create(context.Background(), entry))
	return entry
}

func TestNewSchedulerValidation(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(testLogger())

	_, err := NewScheduler(nil, registry, nil, SchedulerConfig{}, testLogger())
	assert.ErrorIs(t, err, ErrNilRetryStore)

	_, err = NewScheduler(newMockRetryStore(), nil, nil, SchedulerConfig{}, testLogger())
	assert.ErrorIs(t, err, ErrNilRegistry)

	// Zero config falls back to defaults
	s, err := NewScheduler(newMockRetryStore(), registry, nil, SchedulerConfig{}, testLogger())
	require.NoError(t, err)
	defaults := DefaultSchedulerConfig()
	assert.Equal(t, defaults.PollInterval, s.config.PollInterval)
	assert.Equal(t, defaults.BatchSize, s.config.BatchSize)
	assert.Equal(t, defaults.Retention, s.config.Retention)
}

func TestSchedulerRedeliversUntilSuccess(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	retryStore := newMockRetryStore()
	registry := NewRegistry(testLogger())

	// Fails twice, succeeds on the third delivery
	var calls int
	require.NoError(t, registry.Register("products/update", HandlerFunc(
		func(ctx context.Context, shop string, payload json.RawMessage) error {
			calls++
			if calls < 3 {
				return errors.New("still failing")
			}
			return nil
		})))

	scheduleEntry(t, retryStore, clock, "products/update", 5)
	s := newTestScheduler(t, retryStore, registry, clock)
	ctx := context.Background()

	// Not yet due
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, 0, calls)

	// Due after the first backoff step: fails, rescheduled at attempt 1
	clock.Advance(1 * time.Second)
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, 1, calls)
	entry := retryStore.single(t)
	assert.Equal(t, 1, entry.Attempt)
	assert.True(t, entry.NextRetry.Equal(clock.Now().Add(2*time.Second)))

	// Second failure pushes the schedule out again
	clock.Advance(2 * time.Second)
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, 2, calls)
	entry = retryStore.single(t)
	assert.Equal(t, 2, entry.Attempt)

	// Third delivery succeeds and the entry is removed
	clock.Advance(4 * time.Second)
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, retryStore.count())
}

func TestSchedulerDropsExhaustedEntries(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	retryStore := newMockRetryStore()
	registry := NewRegistry(testLogger())

	var calls int
	require.NoError(t, registry.Register("products/update", HandlerFunc(
		func(ctx context.Context, shop string, payload json.RawMessage) error {
			calls++
			return errors.New("permanent failure")
		})))

	scheduleEntry(t, retryStore, clock, "products/update", 2)
	s := newTestScheduler(t, retryStore, registry, clock)
	ctx := context.Background()

	// First redelivery fails: attempt 1 of 2, rescheduled
	clock.Advance(1 * time.Second)
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, retryStore.count())

	// Second redelivery exhausts the budget: entry deleted immediately
	clock.Advance(2 * time.Second)
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, retryStore.count())

	// No further deliveries ever happen
	clock.Advance(time.Hour)
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, 2, calls)
}

func TestSchedulerDiscardsUnroutableEntries(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	retryStore := newMockRetryStore()
	registry := NewRegistry(testLogger())

	scheduleEntry(t, retryStore, clock, "orders/create", 5)
	s := newTestScheduler(t, retryStore, registry, clock)

	clock.Advance(1 * time.Second)
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 0, retryStore.count())
}

func TestSchedulerRecoversFromHandlerPanic(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	retryStore := newMockRetryStore()
	registry := NewRegistry(testLogger())

	require.NoError(t, registry.Register("products/update", HandlerFunc(
		func(ctx context.Context, shop string, payload json.RawMessage) error {
			panic("handler bug")
		})))

	scheduleEntry(t, retryStore, clock, "products/update", 5)
	s := newTestScheduler(t, retryStore, registry, clock)

	clock.Advance(1 * time.Second)
	require.NoError(t, s.RunOnce(context.Background()))

	// The panic counts as a failed attempt, not a crashed scan
	entry := retryStore.single(t)
	assert.Equal(t, 1, entry.Attempt)
	assert.Contains(t, entry.LastError, "handler panicked")
}

func TestSchedulerBatchLimit(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	retryStore := newMockRetryStore()
	registry := NewRegistry(testLogger())

	var calls int
	require.NoError(t, registry.Register("products/update", HandlerFunc(
		func(ctx context.Context, shop string, payload json.RawMessage) error {
			calls++
			return nil
		})))

	for i := 0; i < 5; i++ {
		scheduleEntry(t, retryStore, clock, "products/update", 5)
	}

	s, err := NewScheduler(retryStore, registry, clock.Now, SchedulerConfig{
		PollInterval: time.Hour,
		BatchSize:    3,
	}, testLogger())
	require.NoError(t, err)

	clock.Advance(1 * time.Second)
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retryStore.count())

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 5, calls)
	assert.Equal(t, 0, retryStore.count())
}

func TestSchedulerSweepRemovesStaleEntries(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	retryStore := newMockRetryStore()
	registry := NewRegistry(testLogger())

	scheduleEntry(t, retryStore, clock, "products/update", 5)

	s, err := NewScheduler(retryStore, registry, clock.Now, SchedulerConfig{
		PollInterval: time.Hour,
		Retention:    7 * 24 * time.Hour,
	}, testLogger())
	require.NoError(t, err)

	// Within retention the entry survives
	s.sweep(context.Background())
	assert.Equal(t, 1, retryStore.count())

	// Beyond retention it is removed
	clock.Advance(8 * 24 * time.Hour)
	s.sweep(context.Background())
	assert.Equal(t, 0, retryStore.count())
}

func TestSchedulerStartStop(t *testing.T) {
	t.Parallel()

	retryStore := newMockRetryStore()
	registry := NewRegistry(testLogger())
	s, err := NewScheduler(retryStore, registry, nil, SchedulerConfig{
		PollInterval: 10 * time.Millisecond,
	}, testLogger())
	require.NoError(t, err)

	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrAlreadyStarted)

	s.Stop()

	// Stopping twice is a no-op
	s.Stop()
}
