package parse

import "strings"

// NameKey identifies a sub-collection for matching between the marketplace
// and the reference spreadsheet.
type NameKey struct {
	Collection    string
	SubCollection string
}

// NormalizeName trims surrounding whitespace and lowercases raw.
// Inner whitespace is kept as is.
func NormalizeName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NewNameKey builds a normalized key from raw collection and sub-collection names.
func NewNameKey(collection, subCollection string) NameKey {
	return NameKey{
		Collection:    NormalizeName(collection),
		SubCollection: NormalizeName(subCollection),
	}
}
