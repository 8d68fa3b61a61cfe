package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopglot/shopglot-api/internal/domain"
	"github.com/shopglot/shopglot-api/internal/store"
)

// Clock supplies the current time. It is injected so scheduling and
// expiry logic can be tested with a fake clock.
type Clock func() time.Time

// ExpiryPolicy computes when a newly created task record becomes
// eligible for garbage collection.
type ExpiryPolicy func(now time.Time, taskType domain.TaskType) time.Time

// TTLExpiryPolicy returns an ExpiryPolicy that expires every task a
// fixed duration after creation.
func TTLExpiryPolicy(ttl time.Duration) ExpiryPolicy {
	return func(now time.Time, _ domain.TaskType) time.Time {
		return now.Add(ttl)
	}
}

// Common errors returned by the Lifecycle manager
var (
	ErrNilTaskStore = errors.New("task store cannot be nil")
	ErrNilClock     = errors.New("clock cannot be nil")
	ErrNilExpiry    = errors.New("expiry policy cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
)

// CreateParams carries the inputs for creating a new task record.
type CreateParams struct {
	Shop         string
	Type         domain.TaskType
	ResourceType string
	ResourceID   string
	FieldType    string
	TargetLocale string

	// EstimatedWork, when positive, pre-populates the task's total
	// counter so callers can show a denominator before the first
	// progress update arrives.
	EstimatedWork int
}

// Lifecycle is the single writer for task records. All state
// transitions flow through it so the state machine invariants hold no
// matter which component drives an operation.
type Lifecycle struct {
	store  store.TaskStore
	clock  Clock
	expiry ExpiryPolicy
	logger *slog.Logger
	window ProgressWindow
}

// NewLifecycle creates a Lifecycle manager.
func NewLifecycle(
	taskStore store.TaskStore,
	clock Clock,
	expiry ExpiryPolicy,
	logger *slog.Logger,
) (*Lifecycle, error) {
	if taskStore == nil {
		return nil, ErrNilTaskStore
	}
	if clock == nil {
		return nil, ErrNilClock
	}
	if expiry == nil {
		return nil, ErrNilExpiry
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &Lifecycle{
		store:  taskStore,
		clock:  clock,
		expiry: expiry,
		logger: logger.With(slog.String("component", "task_lifecycle")),
		window: DefaultProgressWindow(),
	}, nil
}

// Window returns the progress window used to derive percentages from
// processed/total counters.
func (l *Lifecycle) Window() ProgressWindow {
	return l.window
}

// Create persists a new task in the pending state with progress 0.
func (l *Lifecycle) Create(ctx context.Context, p CreateParams) (*domain.Task, error) {
	now := l.clock()

	t, err := domain.NewTask(p.Shop, p.Type, p.ResourceType, p.ResourceID, l.expiry(now, p.Type))
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	t.FieldType = p.FieldType
	t.TargetLocale = p.TargetLocale
	if p.EstimatedWork > 0 {
		total := p.EstimatedWork
		t.Total = &total
	}

	if err := l.store.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}

	l.logger.Info("task created",
		"task_id", t.ID,
		"shop", t.Shop,
		"task_type", t.Type,
		"resource_id", t.ResourceID)
	return t, nil
}

// MarkQueued transitions a pending or running task to queued.
func (l *Lifecycle) MarkQueued(ctx context.Context, id uuid.UUID, initialProgress int) error {
	return l.transition(ctx, id, "mark_queued", func(t *domain.Task) error {
		return t.MarkQueued(initialProgress)
	})
}

// SetProgress updates a task's progress percentage and counters. The
// first progress update on a queued task moves it to running. Progress
// never decreases.
func (l *Lifecycle) SetProgress(ctx context.Context, id uuid.UUID, percent int, processed, total *int) error {
	return l.transition(ctx, id, "set_progress", func(t *domain.Task) error {
		return t.SetProgress(percent, processed, total)
	})
}

// Complete transitions the task to completed with progress forced to
// 100. The result payload is serialized to JSON (strings are stored
// as-is) and truncated before persisting.
func (l *Lifecycle) Complete(ctx context.Context, id uuid.UUID, result any) error {
	serialized, err := serializeResult(result)
	if err != nil {
		l.logger.Error("failed to serialize task result",
			"task_id", id, "error", err)
		serialized = fmt.Sprintf("%v", result)
	}

	return l.transition(ctx, id, "complete", func(t *domain.Task) error {
		return t.Complete(serialized)
	})
}

// Fail transitions the task to failed with the truncated error message.
// Fail never returns an error: failure to record a failure is logged
// and swallowed so the caller's own error path cannot crash on
// bookkeeping.
func (l *Lifecycle) Fail(ctx context.Context, id uuid.UUID, cause error) {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	if err := l.transition(ctx, id, "fail", func(t *domain.Task) error {
		return t.Fail(msg)
	}); err != nil {
		l.logger.Error("failed to record task failure",
			"task_id", id,
			"task_error", msg,
			"error", err)
	}
}

// Get retrieves a task by ID. Returns store.ErrTaskNotFound if the task
// does not exist.
func (l *Lifecycle) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return l.store.GetByID(ctx, id)
}

// transition loads the task, applies the mutation, and persists it.
// Mutations on terminal tasks are treated as no-ops: they indicate a
// race between concurrent completion attempts, which is logged as
// anomalous rather than surfaced to the caller.
func (l *Lifecycle) transition(
	ctx context.Context,
	id uuid.UUID,
	operation string,
	mutate func(*domain.Task) error,
) error {
	t, err := l.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load task for %s: %w", operation, err)
	}

	if err := mutate(t); err != nil {
		if errors.Is(err, domain.ErrTaskTerminal) {
			l.logger.Warn("ignoring state change on terminal task",
				"task_id", id,
				"operation", operation,
				"status", t.Status)
			return nil
		}
		return fmt.Errorf("failed to apply %s: %w", operation, err)
	}

	if err := l.store.Update(ctx, t); err != nil {
		return fmt.Errorf("failed to persist %s: %w", operation, err)
	}

	return nil
}

func serializeResult(result any) (string, error) {
	switch v := result.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
