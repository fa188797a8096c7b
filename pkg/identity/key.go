// Package identity derives the stable identifiers of workflow entities: composite keys,
// webhook secrets and webhook URLs. Every function here is pure.
package identity

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// SlugSeparator joins the words of a slug.
	SlugSeparator = "_"

	// UntitledSlug is used when a title has no sluggable characters.
	UntitledSlug = "untitled"
)

// Slugify lower-cases title, folds accented letters to their base form, transliterates
// other scripts to ASCII ("Привет" -> "privet") and collapses every run of other
// characters into a single separator. Leading and trailing separators are stripped.
// The result is never empty.
func Slugify(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}

	folded = unidecode.Unidecode(folded)

	var b strings.Builder

	pending := false

	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteString(SlugSeparator)
			}

			pending = false

			b.WriteRune(r)

			continue
		}

		// apostrophes join words instead of splitting them: "don't" -> "dont"
		if r == '\'' || r == '’' {
			continue
		}

		pending = true
	}

	if b.Len() == 0 {
		return UntitledSlug
	}

	return b.String()
}

// DeriveKey returns the composite key "{id}.{slug}" of a workflow or action.
func DeriveKey(id, title string) string {
	return id + "." + Slugify(title)
}

// SplitKey is the inverse of DeriveKey for the id part. ok is false when key has no separator.
func SplitKey(key string) (id, slug string, ok bool) {
	return strings.Cut(key, ".")
}
