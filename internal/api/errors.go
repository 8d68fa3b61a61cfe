package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopglot/shopglot-api/internal/domain"
	"github.com/shopglot/shopglot-api/internal/store"
	"github.com/shopglot/shopglot-api/internal/translation"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrTranslationNotFound),
		errors.Is(err, store.ErrRetryEntryNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, domain.ErrTaskTerminal),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrEmptyTaskShop),
		errors.Is(err, domain.ErrEmptyTaskResource),
		errors.Is(err, domain.ErrInvalidTaskType),
		errors.Is(err, translation.ErrNoFieldsToTranslate):
		return http.StatusBadRequest

	// Upstream quota exhaustion
	case errors.Is(err, translation.ErrRateLimited):
		return http.StatusTooManyRequests

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrTranslationNotFound):
		return "Translation not found"

	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"

	case errors.Is(err, domain.ErrTaskTerminal),
		errors.Is(err, domain.ErrInvalidTransition):
		return "Task is already finished"

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrEmptyTaskShop),
		errors.Is(err, domain.ErrEmptyTaskResource),
		errors.Is(err, domain.ErrInvalidTaskType):
		return "Invalid request data"

	case errors.Is(err, translation.ErrNoFieldsToTranslate):
		return "No translatable fields provided"

	case errors.Is(err, translation.ErrRateLimited):
		return "Translation provider quota exhausted, try again later"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'BulkTranslationRequest.Shop' Error:Field validation for 'Shop' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
