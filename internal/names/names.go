// Package names canonicalizes topic and category names so that the same
// concept spelled with different case or spacing resolves to one key.
package names

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// Canonical returns the lookup key for a display name: NFKC-normalized,
// case-folded, trimmed, with internal whitespace runs collapsed to one space.
func Canonical(name string) string {
	s := norm.NFKC.String(name)
	s = folder.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Equal reports whether two display names share a canonical key.
func Equal(a, b string) bool {
	return Canonical(a) == Canonical(b)
}
