package translation

// Field categories. Short fields are cheap enough to batch into one
// combined provider call covering every target locale; long fields are
// translated one locale at a time to keep prompts within budget and
// failures contained.
var shortFieldNames = map[string]struct{}{
	"title":            {},
	"handle":           {},
	"product_type":     {},
	"vendor":           {},
	"option_name":      {},
	"label":            {},
	"meta_title":       {},
	"seo_title":        {},
	"alt_text":         {},
	"call_to_action":   {},
	"collection_title": {},
}

// IsShortField reports whether a field name belongs to the batched
// category. Unknown fields default to the sequential path: treating an
// unclassified field as long costs extra calls, treating it as short
// risks oversized batch prompts.
func IsShortField(name string) bool {
	_, ok := shortFieldNames[name]
	return ok
}

// PartitionFields splits the non-empty input fields into the batched
// (short) and sequential (long) sets. Empty values are dropped: there
// is nothing to translate.
func PartitionFields(fields map[string]string) (short, long map[string]string) {
	short = make(map[string]string)
	long = make(map[string]string)

	for name, value := range fields {
		if value == "" {
			continue
		}
		if IsShortField(name) {
			short[name] = value
		} else {
			long[name] = value
		}
	}

	return short, long
}
