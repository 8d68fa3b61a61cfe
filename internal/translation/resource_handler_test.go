package translation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTranslationStore struct {
	memTranslationStore
	deletedShop     string
	deletedResource string
	deleteErr       error
}

func (m *recordingTranslationStore) DeleteByResource(ctx context.Context, shop, resourceID string) (int64, error) {
	m.deletedShop = shop
	m.deletedResource = resourceID
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	return 2, nil
}

func TestResourceUpdateHandler(t *testing.T) {
	t.Parallel()

	translations := &recordingTranslationStore{}
	h, err := NewResourceUpdateHandler(translations, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	payload := json.RawMessage(`{"resource_id":"gid://product/1"}`)
	err = h.HandleDelivery(context.Background(), "demo.myshopify.com", payload)
	require.NoError(t, err)

	assert.Equal(t, "demo.myshopify.com", translations.deletedShop)
	assert.Equal(t, "gid://product/1", translations.deletedResource)
}

func TestResourceUpdateHandlerRejectsBadPayloads(t *testing.T) {
	t.Parallel()

	translations := &recordingTranslationStore{}
	h, err := NewResourceUpdateHandler(translations, nil)
	require.NoError(t, err)

	err = h.HandleDelivery(context.Background(), "demo.myshopify.com", json.RawMessage(`not json`))
	assert.Error(t, err)

	err = h.HandleDelivery(context.Background(), "demo.myshopify.com", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestResourceUpdateHandlerPropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	translations := &recordingTranslationStore{deleteErr: errors.New("database down")}
	h, err := NewResourceUpdateHandler(translations, nil)
	require.NoError(t, err)

	// A failed invalidation must surface so the delivery lands in the
	// retry ledger.
	err = h.HandleDelivery(context.Background(), "demo.myshopify.com",
		json.RawMessage(`{"resource_id":"gid://product/1"}`))
	assert.Error(t, err)
}

func TestNewResourceUpdateHandlerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewResourceUpdateHandler(nil, nil)
	assert.ErrorIs(t, err, ErrNilTranslationStore)
}
