package gemini

import "errors"

// Common errors returned by the gemini package
var (
	// ErrInvalidConfig is returned when the translator configuration is invalid
	ErrInvalidConfig = errors.New("invalid translator configuration")

	// ErrEmptyFields is returned when a translation is requested with no fields
	ErrEmptyFields = errors.New("no fields provided for translation")

	// ErrInvalidResponse is returned when the model response cannot be parsed
	// or is missing expected locales or fields
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrTransientFailure is returned for temporary errors that might resolve
	// on retry
	ErrTransientFailure = errors.New("transient error during translation")
)
