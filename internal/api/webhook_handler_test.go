package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopglot/shopglot-api/internal/domain"
	"github.com/shopglot/shopglot-api/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRetryStore records created ledger entries.
type stubRetryStore struct {
	mu      sync.Mutex
	created []*domain.RetryLedgerEntry
}

func (s *stubRetryStore) Create(ctx context.Context, entry *domain.RetryLedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *entry
	s.created = append(s.created, &copied)
	return nil
}

func (s *stubRetryStore) Update(ctx context.Context, entry *domain.RetryLedgerEntry) error {
	return nil
}

func (s *stubRetryStore) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubRetryStore) Due(ctx context.Context, now time.Time, limit int) ([]*domain.RetryLedgerEntry, error) {
	return nil, nil
}

func (s *stubRetryStore) DeleteExhausted(ctx context.Context) (int64, error) { return 0, nil }

func (s *stubRetryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *stubRetryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

func postWebhook(handler *WebhookHandler, topic, shop string, body []byte) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post("/webhooks/*", handler.HandleDelivery)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/"+topic, bytes.NewReader(body))
	if shop != "" {
		req.Header.Set(ShopDomainHeader, shop)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleDelivery(t *testing.T) {
	t.Parallel()

	registry := retry.NewRegistry(discardLogger())
	retryStore := &stubRetryStore{}
	service := retry.NewService(retryStore, nil, 5, discardLogger())

	var seenShop string
	var seenPayload json.RawMessage
	require.NoError(t, registry.Register("products/update", retry.HandlerFunc(
		func(ctx context.Context, shop string, payload json.RawMessage) error {
			seenShop = shop
			seenPayload = payload
			return nil
		})))

	handler := NewWebhookHandler(registry, service, discardLogger())

	body := []byte(`{"resource_id":"gid://product/1"}`)
	rec := postWebhook(handler, "products/update", "demo.myshopify.com", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "demo.myshopify.com", seenShop)
	assert.JSONEq(t, string(body), string(seenPayload))

	// Successful deliveries never touch the retry ledger
	assert.Equal(t, 0, retryStore.count())
}

func TestHandleDeliverySchedulesRetryOnFailure(t *testing.T) {
	t.Parallel()

	registry := retry.NewRegistry(discardLogger())
	retryStore := &stubRetryStore{}
	service := retry.NewService(retryStore, nil, 5, discardLogger())

	require.NoError(t, registry.Register("products/update", retry.HandlerFunc(
		func(ctx context.Context, shop string, payload json.RawMessage) error {
			return errors.New("downstream unavailable")
		})))

	handler := NewWebhookHandler(registry, service, discardLogger())

	body := []byte(`{"resource_id":"gid://product/1"}`)
	rec := postWebhook(handler, "products/update", "demo.myshopify.com", body)

	// The sender still gets an acknowledgement; redelivery is ours now
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, 1, retryStore.count())
	entry := retryStore.created[0]
	assert.Equal(t, "products/update", entry.Topic)
	assert.Equal(t, "demo.myshopify.com", entry.Shop)
	assert.JSONEq(t, string(body), string(entry.Payload))
	assert.Equal(t, "downstream unavailable", entry.LastError)
}

func TestHandleDeliveryUnknownTopic(t *testing.T) {
	t.Parallel()

	registry := retry.NewRegistry(discardLogger())
	retryStore := &stubRetryStore{}
	service := retry.NewService(retryStore, nil, 5, discardLogger())
	handler := NewWebhookHandler(registry, service, discardLogger())

	rec := postWebhook(handler, "orders/create", "demo.myshopify.com", []byte(`{}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, retryStore.count())
}

func TestHandleDeliveryBadRequests(t *testing.T) {
	t.Parallel()

	registry := retry.NewRegistry(discardLogger())
	require.NoError(t, registry.Register("products/update", retry.HandlerFunc(
		func(ctx context.Context, shop string, payload json.RawMessage) error {
			return nil
		})))
	retryStore := &stubRetryStore{}
	service := retry.NewService(retryStore, nil, 5, discardLogger())
	handler := NewWebhookHandler(registry, service, discardLogger())

	// Missing tenant header
	rec := postWebhook(handler, "products/update", "", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Body that is not JSON
	rec = postWebhook(handler, "products/update", "demo.myshopify.com", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Empty body
	rec = postWebhook(handler, "products/update", "demo.myshopify.com", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
