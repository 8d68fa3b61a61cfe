package shopgql

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopglot/shopglot-api/internal/translation"
)

const translatableDigestsQuery = `
query translatableResource($resourceId: ID!) {
  translatableResource(resourceId: $resourceId) {
    translatableContent {
      key
      digest
    }
  }
}`

const translationsRegisterMutation = `
mutation translationsRegister($resourceId: ID!, $translations: [TranslationInput!]!) {
  translationsRegister(resourceId: $resourceId, translations: $translations) {
    userErrors {
      field
      message
    }
  }
}`

type translatableContent struct {
	Key    string `json:"key"`
	Digest string `json:"digest"`
}

type translatableResourceData struct {
	TranslatableResource struct {
		TranslatableContent []translatableContent `json:"translatableContent"`
	} `json:"translatableResource"`
}

type userError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

type translationsRegisterData struct {
	TranslationsRegister struct {
		UserErrors []userError `json:"userErrors"`
	} `json:"translationsRegister"`
}

// TranslatableDigests implements translation.ContentGateway. A field
// missing from the returned map has no translatable slot on the remote
// resource, which callers treat as a skip, not an error.
func (c *Client) TranslatableDigests(ctx context.Context, resourceID string) (map[string]translation.Digest, error) {
	var data translatableResourceData
	err := c.execute(ctx, translatableDigestsQuery, map[string]any{
		"resourceId": resourceID,
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch translatable digests: %w", err)
	}

	digests := make(map[string]translation.Digest, len(data.TranslatableResource.TranslatableContent))
	for _, content := range data.TranslatableResource.TranslatableContent {
		digests[content.Key] = translation.Digest(content.Digest)
	}

	return digests, nil
}

// RegisterTranslation implements translation.ContentGateway. The write
// carries the digest fetched earlier so the remote system can reject it
// if the source content changed underneath.
func (c *Client) RegisterTranslation(
	ctx context.Context,
	resourceID, locale, field string,
	digest translation.Digest,
	value string,
) error {
	var data translationsRegisterData
	err := c.execute(ctx, translationsRegisterMutation, map[string]any{
		"resourceId": resourceID,
		"translations": []map[string]any{
			{
				"key":                       field,
				"locale":                    locale,
				"value":                     value,
				"translatableContentDigest": string(digest),
			},
		},
	}, &data)
	if err != nil {
		return fmt.Errorf("failed to register translation: %w", err)
	}

	if userErrors := data.TranslationsRegister.UserErrors; len(userErrors) > 0 {
		messages := make([]string, 0, len(userErrors))
		for _, ue := range userErrors {
			messages = append(messages, ue.Message)
		}
		return fmt.Errorf("translation rejected by remote system: %s",
			strings.Join(messages, "; "))
	}

	return nil
}
