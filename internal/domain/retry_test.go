package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBackoffDelay(t *testing.T) {
	t.Parallel() // Enable parallel execution
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 1 * time.Second},
		{attempt: 1, want: 2 * time.Second},
		{attempt: 2, want: 4 * time.Second},
		{attempt: 3, want: 8 * time.Second},
		{attempt: 4, want: 16 * time.Second},
		{attempt: 5, want: 32 * time.Second},
		{attempt: 6, want: 60 * time.Second},
		{attempt: 7, want: 60 * time.Second},
		{attempt: 100, want: 60 * time.Second},
		{attempt: -1, want: 1 * time.Second},
	}

	for _, tc := range cases {
		if got := BackoffDelay(tc.attempt); got != tc.want {
			t.Errorf("BackoffDelay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestNewRetryLedgerEntry(t *testing.T) {
	t.Parallel() // Enable parallel execution
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := json.RawMessage(`{"resource_id":"gid://product/1"}`)

	entry, err := NewRetryLedgerEntry("demo.myshopify.com", "products/update", payload, errors.New("boom"), 0, now)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if entry.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if entry.Attempt != 0 {
		t.Errorf("Expected attempt 0, got %d", entry.Attempt)
	}
	if entry.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Expected max attempts defaulted to %d, got %d", DefaultMaxAttempts, entry.MaxAttempts)
	}
	if entry.LastError != "boom" {
		t.Errorf("Expected last error %q, got %q", "boom", entry.LastError)
	}

	// First retry is one backoff step out
	want := now.Add(1 * time.Second)
	if !entry.NextRetry.Equal(want) {
		t.Errorf("Expected next retry %v, got %v", want, entry.NextRetry)
	}

	_, err = NewRetryLedgerEntry("", "products/update", payload, nil, 5, now)
	if !errors.Is(err, ErrEmptyRetryShop) {
		t.Errorf("Expected error %v, got %v", ErrEmptyRetryShop, err)
	}

	_, err = NewRetryLedgerEntry("demo.myshopify.com", "", payload, nil, 5, now)
	if !errors.Is(err, ErrEmptyRetryTopic) {
		t.Errorf("Expected error %v, got %v", ErrEmptyRetryTopic, err)
	}
}

func TestRetryLedgerEntryRecordFailure(t *testing.T) {
	t.Parallel() // Enable parallel execution
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entry, err := NewRetryLedgerEntry("demo.myshopify.com", "products/update", nil, nil, 3, now)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Attempt 1: rescheduled with the second backoff step
	entry.RecordFailure(errors.New("still failing"), now)
	if entry.Attempt != 1 {
		t.Errorf("Expected attempt 1, got %d", entry.Attempt)
	}
	if entry.Exhausted() {
		t.Error("Expected entry not exhausted after one attempt")
	}
	if want := now.Add(2 * time.Second); !entry.NextRetry.Equal(want) {
		t.Errorf("Expected next retry %v, got %v", want, entry.NextRetry)
	}
	if entry.LastError != "still failing" {
		t.Errorf("Expected last error recorded, got %q", entry.LastError)
	}

	// Attempt 2: rescheduled again
	entry.RecordFailure(nil, now)
	if want := now.Add(4 * time.Second); !entry.NextRetry.Equal(want) {
		t.Errorf("Expected next retry %v, got %v", want, entry.NextRetry)
	}

	// Attempt 3 exhausts the budget; the schedule stops moving
	before := entry.NextRetry
	entry.RecordFailure(nil, now.Add(time.Hour))
	if !entry.Exhausted() {
		t.Error("Expected entry exhausted after max attempts")
	}
	if !entry.NextRetry.Equal(before) {
		t.Errorf("Expected next retry unchanged once exhausted, got %v", entry.NextRetry)
	}
}
