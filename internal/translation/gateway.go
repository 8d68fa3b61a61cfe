package translation

import "context"

// Digest is the opaque versioning token the remote content system
// requires on every translation write so it can reject writes that
// would clobber a concurrent edit. This subsystem never interprets it.
type Digest string

// ContentGateway is the boundary to the remote content system.
type ContentGateway interface {
	// TranslatableDigests returns the digest for each translatable field
	// of a resource. A field absent from the map has no translatable slot
	// on the remote resource.
	TranslatableDigests(ctx context.Context, resourceID string) (map[string]Digest, error)

	// RegisterTranslation writes one translated field value for a locale,
	// guarded by the digest fetched earlier.
	RegisterTranslation(ctx context.Context, resourceID, locale, field string, digest Digest, value string) error
}

// Provider is the boundary to the AI translation service.
type Provider interface {
	// TranslateBatch translates all given fields into every target locale
	// in a single call. The result is keyed by locale, then field name.
	TranslateBatch(ctx context.Context, fields map[string]string, sourceLocale string, targetLocales []string) (map[string]map[string]string, error)

	// TranslateLocale translates the given fields into one target locale.
	TranslateLocale(ctx context.Context, fields map[string]string, sourceLocale, targetLocale string) (map[string]string, error)
}
