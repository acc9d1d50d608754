// Package langdetect tags posting text with an ISO 639-1 language code.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// Languages seen on the scraped boards. Restricting the detector keeps
// short Hebrew titles from being misread as Yiddish and friends.
var supported = []lingua.Language{
	lingua.Hebrew,
	lingua.English,
	lingua.Arabic,
	lingua.Russian,
}

const minLetters = 6

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// Resolve prefers a source-supplied hint and falls back to detection over
// text. Returns "" when neither yields a code.
func Resolve(hint string, text string) string {
	if code := NormalizeCode(hint); len(code) == 2 {
		return code
	}
	return Detect(text)
}

// Detect returns the two-letter code of the most likely language of text.
func Detect(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letters := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if letters < minLetters {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}
	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(supported...).
			Build()
	})
	return detector
}

// NormalizeCode reduces a language tag such as "he_IL" or " EN-us " to its
// primary subtag. Invalid or blank tags yield "".
func NormalizeCode(raw string) string {
	tag := strings.ToLower(strings.TrimSpace(raw))
	if tag == "" {
		return ""
	}
	tag = strings.ReplaceAll(tag, "_", "-")
	primary, _, _ := strings.Cut(tag, "-")
	if primary == "" {
		return ""
	}
	for _, r := range primary {
		if r < 'a' || r > 'z' {
			return ""
		}
	}
	return primary
}
