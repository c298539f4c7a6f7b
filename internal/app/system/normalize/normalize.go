// Package normalize canonicalizes user-supplied strings before they are
// stored or compared.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EmailCI returns the folded form of an email used for uniqueness.
func EmailCI(s string) string {
	return text.Fold(Email(s))
}

// Location trims a free-form location and collapses inner whitespace runs.
func Location(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
