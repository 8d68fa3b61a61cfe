// Package task manages the lifecycle of durable operation records.
// It provides the single writer for Task state transitions (pending →
// queued → running → completed/failed), progress accounting, and the
// truncation of serialized results and errors before persistence, so
// callers can poll a task's record instead of holding a connection open
// for the duration of a long-running operation.
package task
