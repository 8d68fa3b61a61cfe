package retry

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopglot/shopglot-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRetryStore is an in-memory RetryStore for retry tests.
type mockRetryStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*domain.RetryLedgerEntry

	createErr error
	dueErr    error
}

func newMockRetryStore() *mockRetryStore {
	return &mockRetryStore{entries: make(map[uuid.UUID]*domain.RetryLedgerEntry)}
}

func (m *mockRetryStore) Create(ctx context.Context, entry *domain.RetryLedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	copied := *entry
	m.entries[entry.ID] = &copied
	return nil
}

func (m *mockRetryStore) Update(ctx context.Context, entry *domain.RetryLedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *entry
	m.entries[entry.ID] = &copied
	return nil
}

func (m *mockRetryStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *mockRetryStore) Due(ctx context.Context, now time.Time, limit int) ([]*domain.RetryLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dueErr != nil {
		return nil, m.dueErr
	}

	var due []*domain.RetryLedgerEntry
	for _, e := range m.entries {
		if !e.NextRetry.After(now) && e.Attempt < e.MaxAttempts {
			copied := *e
			due = append(due, &copied)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRetry.Before(due[j].NextRetry) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *mockRetryStore) DeleteExhausted(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, e := range m.entries {
		if e.Exhausted() {
			delete(m.entries, id)
			removed++
		}
	}
	return removed, nil
}

func (m *mockRetryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, e := range m.entries {
		if e.CreatedAt.Before(cutoff) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed, nil
}

func (m *mockRetryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *mockRetryStore) single(t *testing.T) *domain.RetryLedgerEntry {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.entries, 1)
	for _, e := range m.entries {
		copied := *e
		return &copied
	}
	return nil
}

func TestServiceScheduleRetry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	retryStore := newMockRetryStore()
	s := NewService(retryStore, func() time.Time { return now }, 5, testLogger())

	s.ScheduleRetry(
		context.Background(),
		"demo.myshopify.com",
		"products/update",
		json.RawMessage(`{"resource_id":"gid://product/1"}`),
		errors.New("handler failed"),
	)

	entry := retryStore.single(t)
	assert.Equal(t, "demo.myshopify.com", entry.Shop)
	assert.Equal(t, "products/update", entry.Topic)
	assert.Equal(t, 0, entry.Attempt)
	assert.Equal(t, 5, entry.MaxAttempts)
	assert.Equal(t, "handler failed", entry.LastError)
	assert.True(t, entry.NextRetry.Equal(now.Add(1*time.Second)))
	assert.JSONEq(t, `{"resource_id":"gid://product/1"}`, string(entry.Payload))
}

func TestServiceScheduleRetryMarshalsStructPayloads(t *testing.T) {
	t.Parallel()

	retryStore := newMockRetryStore()
	s := NewService(retryStore, nil, 0, testLogger())

	payload := struct {
		ResourceID string `json:"resource_id"`
	}{ResourceID: "gid://product/2"}

	s.ScheduleRetry(context.Background(), "demo.myshopify.com", "products/update", payload, nil)

	entry := retryStore.single(t)
	assert.Equal(t, domain.DefaultMaxAttempts, entry.MaxAttempts)
	assert.JSONEq(t, `{"resource_id":"gid://product/2"}`, string(entry.Payload))
}

func TestServiceScheduleRetryNeverFailsCaller(t *testing.T) {
	t.Parallel()

	retryStore := newMockRetryStore()
	retryStore.createErr = errors.New("database down")
	s := NewService(retryStore, nil, 5, testLogger())

	// Persistence failure is logged and swallowed
	s.ScheduleRetry(context.Background(), "demo.myshopify.com", "products/update", nil, errors.New("boom"))
	assert.Equal(t, 0, retryStore.count())

	// Invalid entries are dropped without panicking
	s.ScheduleRetry(context.Background(), "", "products/update", nil, errors.New("boom"))
	assert.Equal(t, 0, retryStore.count())
}
