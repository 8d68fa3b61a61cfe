package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// maxRequestBodySize bounds the accepted request body (1 MB).
const maxRequestBodySize = 1 << 20

// ErrEmptyRequestBody is returned when a request expected to carry a
// JSON body has none.
var ErrEmptyRequestBody = errors.New("request body is empty")

// DecodeJSON decodes the request body into v, rejecting unknown fields
// and oversized bodies.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return ErrEmptyRequestBody
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}

	return nil
}
