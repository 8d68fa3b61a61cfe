package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopglot/shopglot-api/internal/domain"
	"github.com/shopglot/shopglot-api/internal/store"
	"github.com/shopglot/shopglot-api/internal/task"
	"github.com/shopglot/shopglot-api/internal/translation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct{}

func (stubGateway) TranslatableDigests(ctx context.Context, resourceID string) (map[string]translation.Digest, error) {
	return map[string]translation.Digest{"title": "digest-1"}, nil
}

func (stubGateway) RegisterTranslation(ctx context.Context, resourceID, locale, field string, digest translation.Digest, value string) error {
	return nil
}

type stubProvider struct{}

func (stubProvider) TranslateBatch(ctx context.Context, fields map[string]string, sourceLocale string, targetLocales []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string, len(targetLocales))
	for _, locale := range targetLocales {
		out[locale] = fields
	}
	return out, nil
}

func (stubProvider) TranslateLocale(ctx context.Context, fields map[string]string, sourceLocale, targetLocale string) (map[string]string, error) {
	return fields, nil
}

type stubTranslationStore struct{}

func (stubTranslationStore) Upsert(ctx context.Context, tr *domain.Translation) error { return nil }

func (stubTranslationStore) UpsertMany(ctx context.Context, trs []*domain.Translation) error {
	return nil
}

func (stubTranslationStore) FindByResource(ctx context.Context, shop, resourceID string) ([]*domain.Translation, error) {
	return nil, nil
}

func (stubTranslationStore) DeleteByResource(ctx context.Context, shop, resourceID string) (int64, error) {
	return 0, nil
}

func (s stubTranslationStore) WithTx(tx *sql.Tx) store.TranslationStore { return s }

func newTranslationFixture(t *testing.T) (*TranslationHandler, *task.Lifecycle) {
	t.Helper()
	lifecycle, err := task.NewLifecycle(
		newStubTaskStore(),
		time.Now,
		task.TTLExpiryPolicy(24*time.Hour),
		discardLogger(),
	)
	require.NoError(t, err)

	orchestrator, err := translation.NewOrchestrator(
		lifecycle, stubGateway{}, stubProvider{}, stubTranslationStore{}, 1, discardLogger())
	require.NoError(t, err)

	return NewTranslationHandler(orchestrator, discardLogger()), lifecycle
}

func postBulkTranslation(handler *TranslationHandler, shop string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/translations/bulk", bytes.NewReader(body))
	if shop != "" {
		req.Header.Set(ShopDomainHeader, shop)
	}
	rec := httptest.NewRecorder()
	handler.BulkTranslate(rec, req)
	return rec
}

func TestBulkTranslateAccepted(t *testing.T) {
	t.Parallel()

	handler, lifecycle := newTranslationFixture(t)

	body := []byte(`{
		"resource_id": "gid://product/1",
		"fields": {"title": "Red Mug"},
		"source_locale": "en",
		"target_locales": ["de", "fr"]
	}`)

	rec := postBulkTranslation(handler, "demo.myshopify.com", body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp BulkTranslationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp.Status)

	taskID, err := uuid.Parse(resp.TaskID)
	require.NoError(t, err)

	// The task exists immediately and belongs to the requesting shop
	created, err := lifecycle.Get(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, "demo.myshopify.com", created.Shop)
	assert.Equal(t, domain.TaskTypeBulkTranslation, created.Type)
}

func TestBulkTranslateValidation(t *testing.T) {
	t.Parallel()

	handler, _ := newTranslationFixture(t)

	// Missing tenant header
	rec := postBulkTranslation(handler, "", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Empty body
	rec = postBulkTranslation(handler, "demo.myshopify.com", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing required fields
	rec = postBulkTranslation(handler, "demo.myshopify.com", []byte(`{"resource_id":"gid://product/1"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Empty target locales
	rec = postBulkTranslation(handler, "demo.myshopify.com", []byte(`{
		"resource_id": "gid://product/1",
		"fields": {"title": "Red Mug"},
		"source_locale": "en",
		"target_locales": []
	}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
