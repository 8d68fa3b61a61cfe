package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Translation
var (
	ErrEmptyTranslationShop     = errors.New("translation shop cannot be empty")
	ErrEmptyTranslationResource = errors.New("translation resource ID cannot be empty")
	ErrEmptyTranslationLocale   = errors.New("translation locale cannot be empty")
	ErrEmptyTranslationField    = errors.New("translation field cannot be empty")
)

// Translation is the local mirror of one translated field value that
// was registered with the remote content system. One row exists per
// (shop, resource, locale, field).
type Translation struct {
	ID           uuid.UUID `json:"id"`
	Shop         string    `json:"shop"`
	ResourceID   string    `json:"resource_id"`
	Locale       string    `json:"locale"`
	Field        string    `json:"field"`
	Value        string    `json:"value"`
	SourceLocale string    `json:"source_locale,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewTranslation creates a validated mirror record for one translated
// field value.
func NewTranslation(shop, resourceID, locale, field, value, sourceLocale string) (*Translation, error) {
	now := time.Now().UTC()
	tr := &Translation{
		ID:           uuid.New(),
		Shop:         shop,
		ResourceID:   resourceID,
		Locale:       locale,
		Field:        field,
		Value:        value,
		SourceLocale: sourceLocale,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := tr.Validate(); err != nil {
		return nil, err
	}

	return tr, nil
}

// Validate checks if the Translation has valid data.
func (tr *Translation) Validate() error {
	if tr.Shop == "" {
		return ErrEmptyTranslationShop
	}
	if tr.ResourceID == "" {
		return ErrEmptyTranslationResource
	}
	if tr.Locale == "" {
		return ErrEmptyTranslationLocale
	}
	if tr.Field == "" {
		return ErrEmptyTranslationField
	}
	return nil
}
