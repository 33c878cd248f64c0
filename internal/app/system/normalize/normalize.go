// internal/app/system/normalize/normalize.go
//
// Package normalize holds the canonical forms of user-supplied strings
// before they are stored or compared.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name and collapses runs of whitespace. Case is kept.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Status trims and lowercases an item status.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a free-text query parameter. Case is kept.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// Fold is the comparison form of s: lowercased with diacritics stripped.
// Stored *_ci fields and search filters both go through it.
func Fold(s string) string {
	return text.Fold(s)
}

// SearchKey folds a free-text filter for substring matching against *_ci
// fields. Punctuation is kept, so "a & b" only matches "a & b".
func SearchKey(s string) string {
	return text.Fold(QueryParam(s))
}
