package domain

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a tracked operation.
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// TaskType identifies the kind of operation a task tracks.
type TaskType string

// Possible task type values
const (
	TaskTypeSingleGeneration  TaskType = "single_generation"
	TaskTypeSingleTranslation TaskType = "single_translation"
	TaskTypeBulkTranslation   TaskType = "bulk_translation"
	TaskTypeBulkGeneration    TaskType = "bulk_generation"
)

// Storage bounds for serialized outcomes. Payloads longer than these
// limits are truncated before persisting.
const (
	MaxResultLen = 500
	MaxErrorLen  = 1000
)

// Common validation errors for Task
var (
	ErrEmptyTaskShop     = errors.New("task shop cannot be empty")
	ErrEmptyTaskResource = errors.New("task resource ID cannot be empty")
	ErrInvalidTaskType   = errors.New("invalid task type")
	ErrInvalidTaskStatus = errors.New("invalid task status")
	ErrTaskTerminal      = errors.New("task is in a terminal state")
	ErrInvalidTransition = errors.New("invalid task status transition")
)

// Task is the durable record of one long-running operation: its tenant,
// target, lifecycle status, progress, and eventual outcome. A Task is
// created once and mutated only through its transition methods; the
// Result and Error fields are mutually exclusive.
type Task struct {
	ID           uuid.UUID  `json:"id"`
	Shop         string     `json:"shop"`
	Type         TaskType   `json:"type"`
	Status       TaskStatus `json:"status"`
	ResourceType string     `json:"resource_type"`
	ResourceID   string     `json:"resource_id"`
	FieldType    string     `json:"field_type,omitempty"`
	TargetLocale string     `json:"target_locale,omitempty"`
	Progress     int        `json:"progress"`
	Processed    *int       `json:"processed,omitempty"`
	Total        *int       `json:"total,omitempty"`
	Result       string     `json:"result,omitempty"`
	Error        string     `json:"error,omitempty"`
	ExpiresAt    time.Time  `json:"expires_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewTask creates a new Task in the pending state with progress 0.
// The expiry timestamp is computed by the caller's policy and passed in.
// Returns an error if validation fails.
func NewTask(shop string, taskType TaskType, resourceType, resourceID string, expiresAt time.Time) (*Task, error) {
	now := time.Now().UTC()
	t := &Task{
		ID:           uuid.New(),
		Shop:         shop,
		Type:         taskType,
		Status:       TaskStatusPending,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Progress:     0,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.Shop == "" {
		return ErrEmptyTaskShop
	}
	if t.ResourceID == "" {
		return ErrEmptyTaskResource
	}
	if !isValidTaskType(t.Type) {
		return ErrInvalidTaskType
	}
	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}
	return nil
}

// Terminal reports whether the task has reached a final state.
// Completed and failed tasks never transition again.
func (t *Task) Terminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// MarkQueued transitions the task from pending or running to queued and
// records the initial progress value.
func (t *Task) MarkQueued(initialProgress int) error {
	if t.Terminal() {
		return ErrTaskTerminal
	}
	if t.Status != TaskStatusPending && t.Status != TaskStatusRunning {
		return ErrInvalidTransition
	}

	t.Status = TaskStatusQueued
	t.setProgressValue(initialProgress)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// SetProgress updates the task's progress percentage and optional
// processed/total counters. The first progress update on a queued task
// transitions it to running. Progress never decreases within a run.
func (t *Task) SetProgress(percent int, processed, total *int) error {
	if t.Terminal() {
		return ErrTaskTerminal
	}

	if t.Status == TaskStatusQueued || t.Status == TaskStatusPending {
		t.Status = TaskStatusRunning
	}

	t.setProgressValue(percent)
	if processed != nil {
		t.Processed = processed
	}
	if total != nil {
		t.Total = total
	}
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete transitions the task to completed, forces progress to 100
// and stores the result payload truncated to MaxResultLen.
func (t *Task) Complete(result string) error {
	if t.Terminal() {
		return ErrTaskTerminal
	}

	t.Status = TaskStatusCompleted
	t.Progress = 100
	t.Result = Truncate(result, MaxResultLen)
	t.Error = ""
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail transitions the task to failed and stores the error message
// truncated to MaxErrorLen.
func (t *Task) Fail(msg string) error {
	if t.Terminal() {
		return ErrTaskTerminal
	}

	t.Status = TaskStatusFailed
	t.Error = Truncate(msg, MaxErrorLen)
	t.Result = ""
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// setProgressValue clamps percent to [0, 100] and enforces monotonicity.
func (t *Task) setProgressValue(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if percent > t.Progress {
		t.Progress = percent
	}
}

// Truncate bounds s to at most limit bytes, backing off to the nearest
// rune boundary so the result is always valid UTF-8.
func Truncate(s string, limit int) string {
	if limit < 0 || len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusQueued, TaskStatusRunning,
		TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

func isValidTaskType(taskType TaskType) bool {
	switch taskType {
	case TaskTypeSingleGeneration, TaskTypeSingleTranslation,
		TaskTypeBulkTranslation, TaskTypeBulkGeneration:
		return true
	default:
		return false
	}
}
