// Package slug derives URL-safe unique identifiers from titles.
package slug

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// SuffixLen is the number of hex characters appended on collision.
const SuffixLen = 8

// Make converts a title into a lower-case URL-safe slug: accents are
// folded away and runs of non-alphanumeric characters collapse to a
// single hyphen.
func Make(title string) string {
	folded := norm.NFKD.String(strings.TrimSpace(title))

	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range folded {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark left over from decomposition
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// Suffix returns 8 lowercase-hex characters from a random UUID, appended
// to a slug on collision. The entropy is treated as sufficient; the store's
// unique constraint is the hard backstop.
func Suffix() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return hex[:SuffixLen]
}

// WithSuffix returns the slug with a fresh random suffix appended.
func WithSuffix(s string) string {
	return s + "-" + Suffix()
}

// Unique derives a slug for title and consults exists once: when the plain
// slug is taken, a suffixed variant is returned without re-checking.
func Unique(title string, exists func(slug string) (bool, error)) (string, error) {
	s := Make(title)
	taken, err := exists(s)
	if err != nil {
		return "", err
	}
	if taken {
		return WithSuffix(s), nil
	}
	return s, nil
}
