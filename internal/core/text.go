package core

// text.go provides the canonical text normalization applied before any
// fuzzy comparison: trim, collapse whitespace, case-fold, and strip
// diacritics (so "Depósito" and "DEPOSITO" compare equal).

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacriticStripper decomposes runes and drops combining marks.
var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeText returns the canonical comparison form of free text:
// trimmed, lowercased, diacritics removed, inner whitespace collapsed.
func NormalizeText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if stripped, _, err := transform.String(diacriticStripper, s); err == nil {
		s = stripped
	}

	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeKey returns the canonical form of an identifying key such as a
// patrimony number: trimmed, uppercased, interior whitespace removed.
// Keys compare byte-wise after this, so "pat 001" and "PAT001" collide.
func NormalizeKey(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
