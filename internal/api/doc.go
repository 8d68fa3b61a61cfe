// Package api contains the HTTP handlers exposed by the server: task
// status reads, bulk translation submission, and webhook intake. The
// handlers stay thin; all real work happens in the task, retry and
// translation packages.
package api
