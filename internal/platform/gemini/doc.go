// Package gemini implements the translation.Provider interface using
// Google's Gemini API. It prompts the model for structured JSON output,
// validates the response shape, and retries transient API failures with
// exponential backoff and jitter.
package gemini
