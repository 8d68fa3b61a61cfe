// Package retry implements the reliable-delivery core: a durable ledger
// of failed deliveries and a background scheduler that redrives them
// with exponential backoff until they succeed or exhaust their attempt
// budget. Handlers are registered per topic at process start; the
// ledger never interprets payload contents.
package retry
