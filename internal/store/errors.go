package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. This is a generic version of the entity-specific not found
	// errors (e.g., ErrTaskNotFound, ErrRetryEntryNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrTaskNotFound is returned when a task with the given ID does not exist.
	ErrTaskNotFound = fmt.Errorf("task: %w", ErrNotFound)

	// ErrRetryEntryNotFound is returned when a retry ledger entry with the
	// given ID does not exist.
	ErrRetryEntryNotFound = fmt.Errorf("retry entry: %w", ErrNotFound)

	// ErrTranslationNotFound is returned when no mirrored translation exists
	// for the requested key.
	ErrTranslationNotFound = fmt.Errorf("translation: %w", ErrNotFound)
)
