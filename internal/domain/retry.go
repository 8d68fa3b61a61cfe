package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxAttempts is the delivery attempt ceiling applied to new
// ledger entries unless the caller overrides it.
const DefaultMaxAttempts = 5

// backoffTable holds the fixed redelivery delays indexed by attempt
// number. Delays grow geometrically and are capped at the last entry.
// A single scheduler instance drains the ledger, so no jitter is needed.
var backoffTable = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
	32 * time.Second,
	60 * time.Second,
}

// Common validation errors for RetryLedgerEntry
var (
	ErrEmptyRetryShop  = errors.New("retry entry shop cannot be empty")
	ErrEmptyRetryTopic = errors.New("retry entry topic cannot be empty")
)

// BackoffDelay returns the redelivery delay for the given attempt
// number. Attempts beyond the table are capped at the final delay.
func BackoffDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(backoffTable) {
		attempt = len(backoffTable) - 1
	}
	return backoffTable[attempt]
}

// RetryLedgerEntry is the durable record of a failed delivery awaiting
// another attempt. The payload is opaque to the ledger; it is only
// interpreted by the topic's handler at redelivery time.
type RetryLedgerEntry struct {
	ID          uuid.UUID       `json:"id"`
	Shop        string          `json:"shop"`
	Topic       string          `json:"topic"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"max_attempts"`
	NextRetry   time.Time       `json:"next_retry"`
	LastError   string          `json:"last_error"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewRetryLedgerEntry records a first delivery failure. The entry starts
// at attempt 0 with its next retry scheduled one backoff step from now.
func NewRetryLedgerEntry(
	shop, topic string,
	payload json.RawMessage,
	cause error,
	maxAttempts int,
	now time.Time,
) (*RetryLedgerEntry, error) {
	if shop == "" {
		return nil, ErrEmptyRetryShop
	}
	if topic == "" {
		return nil, ErrEmptyRetryTopic
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	lastError := ""
	if cause != nil {
		lastError = Truncate(cause.Error(), MaxErrorLen)
	}

	return &RetryLedgerEntry{
		ID:          uuid.New(),
		Shop:        shop,
		Topic:       topic,
		Payload:     payload,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		NextRetry:   now.Add(BackoffDelay(0)),
		LastError:   lastError,
		CreatedAt:   now.UTC(),
	}, nil
}

// Exhausted reports whether the entry has used up its attempt budget
// and must never be redelivered again.
func (e *RetryLedgerEntry) Exhausted() bool {
	return e.Attempt >= e.MaxAttempts
}

// RecordFailure increments the attempt counter and, if the budget is
// not yet exhausted, schedules the next retry one backoff step from now.
func (e *RetryLedgerEntry) RecordFailure(cause error, now time.Time) {
	e.Attempt++
	if cause != nil {
		e.LastError = Truncate(cause.Error(), MaxErrorLen)
	}
	if !e.Exhausted() {
		e.NextRetry = now.Add(BackoffDelay(e.Attempt))
	}
}
