// Package logger provides structured logging functionality for the
// application using Go's standard library log/slog package. It configures
// the process-wide JSON logger and carries request- or task-scoped loggers
// through context.Context.
package logger
