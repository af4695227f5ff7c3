// Package slug turns restaurant names into DNS-safe identifiers.
package slug

import (
	"crypto/rand"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxLen    = 63 // one DNS label
	suffixLen = 6
	alphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"
	fallback  = "restaurant"
)

// Make lowercases text, strips diacritics and anything outside [a-z0-9],
// and collapses whitespace and hyphen runs into single hyphens. A non-empty
// suffix is appended after a hyphen. The result always fits one DNS label.
func Make(text, suffix string) string {
	base := clean(text)
	suf := clean(suffix)
	room := maxLen
	if suf != "" {
		room -= len(suf) + 1
	}
	if len(base) > room {
		base = strings.TrimRight(base[:room], "-")
	}
	if base == "" {
		base = fallback
	}
	if suf == "" {
		return base
	}
	return base + "-" + suf
}

// New is Make with a random suffix, as used for new restaurants.
func New(name string) string { return Make(name, Suffix()) }

// Suffix returns six random base36 characters.
func Suffix() string {
	b := make([]byte, suffixLen)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b)
}

func clean(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(stripMarks, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return ""
	}
	var b strings.Builder
	sep := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if sep && b.Len() > 0 {
				b.WriteByte('-')
			}
			sep = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			sep = true
		}
	}
	return b.String()
}
