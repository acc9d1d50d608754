// Package textnorm canonicalizes free-text posting fields for comparison and
// derives the content fingerprint used as a cheap identity key.
package textnorm

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

const (
	hebrewFirst = '\u0590'
	hebrewLast  = '\u05FF'
)

// Normalize lowercases text, drops the LRM/RLM and LRE/RLE/PDF marks, replaces
// anything that is not an ASCII word character, a Hebrew-block rune or
// whitespace with a space, and collapses whitespace.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	t := transform.Chain(
		runes.Remove(runes.Predicate(isDirectionalMark)),
		runes.Map(foldRune),
	)
	mapped, _, err := transform.String(t, text)
	if err != nil {
		// The chain only maps runes; fall back to the untransformed input.
		mapped = strings.Map(foldRune, text)
	}

	return strings.Join(strings.Fields(mapped), " ")
}

// Fingerprint is the md5 hex digest of the pipe-joined normalized title,
// company and city. Missing fields hash as empty strings.
func Fingerprint(title, company, city string) string {
	composite := Normalize(title) + "|" + Normalize(company) + "|" + Normalize(city)
	sum := md5.Sum([]byte(composite))
	return hex.EncodeToString(sum[:])
}

// MatchKey is the string the fuzzy layer compares: normalized title and
// company joined by a space.
func MatchKey(title, company string) string {
	return strings.TrimSpace(Normalize(title) + " " + Normalize(company))
}

func foldRune(r rune) rune {
	r = unicode.ToLower(r)
	switch {
	case isWordRune(r):
		return r
	case r >= hebrewFirst && r <= hebrewLast:
		return r
	case unicode.IsSpace(r):
		return r
	default:
		return ' '
	}
}

// Other format and isolate controls fall through to foldRune and become
// spaces, which keeps stored fingerprints stable.
func isDirectionalMark(r rune) bool {
	switch r {
	case '\u200E', '\u200F', '\u202A', '\u202B', '\u202C':
		return true
	}
	return false
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}
