package translation

import (
	"errors"
	"strings"
)

// Common errors returned by the translation package
var (
	// ErrNoFieldsToTranslate is returned when a bulk run is requested
	// with no non-empty fields.
	ErrNoFieldsToTranslate = errors.New("no fields to translate")

	// ErrNoLocalesSucceeded is recorded on the task when every locale
	// failed and no translated field reached the remote system.
	ErrNoLocalesSucceeded = errors.New("no target locale was translated successfully")

	// ErrRateLimited is returned by providers when the request was
	// rejected for quota or rate-limit reasons.
	ErrRateLimited = errors.New("provider rate limit or quota exhausted")
)

// quotaVocabulary holds the provider phrasings that identify an
// exhausted-budget failure.
var quotaVocabulary = []string{"quota", "rate limit", "429", "usage limit"}

// IsQuotaError reports whether an error represents a provider quota or
// rate-limit failure. It matches the sentinel as well as known provider
// vocabulary, so operators can tell exhausted budgets apart from
// generic errors in logs. It never changes control flow.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range quotaVocabulary {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
