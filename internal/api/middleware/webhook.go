package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/shopglot/shopglot-api/internal/api/shared"
	"github.com/shopglot/shopglot-api/internal/platform/logger"
)

// HmacHeader is the header carrying the base64-encoded HMAC-SHA256
// signature of the raw request body.
const HmacHeader = "X-Webhook-Hmac-Sha256"

const maxWebhookBodySize = 1 << 20 // 1 MB

// VerifyWebhookHMAC returns middleware that validates the HMAC signature
// of incoming webhook deliveries against the shared secret. The raw body
// is read in full for verification and restored for downstream handlers.
// Requests with a missing or invalid signature are rejected with 401.
func VerifyWebhookHMAC(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context())

			signature := r.Header.Get(HmacHeader)
			if signature == "" {
				log.Warn("webhook rejected: missing HMAC header", "path", r.URL.Path)
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing HMAC signature")
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
			if err != nil {
				log.Error("webhook rejected: failed to read body", "error", err)
				shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
				return
			}
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			if !validSignature(secret, body, signature) {
				log.Warn("webhook rejected: HMAC verification failed", "path", r.URL.Path)
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid HMAC signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func validSignature(secret string, body []byte, signature string) bool {
	expected, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}
