package normalization

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Punctuation is the closed set of characters that make a word unclickable.
const Punctuation = `.,!?;:"()[]{}…—–-`

var (
	nonAlnum        = regexp.MustCompile(`[^a-z0-9]`)
	nonSlug         = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	repeatedHyphens = regexp.MustCompile(`-{2,}`)
)

func ParseInputString(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

func ParseInputStringPtr(input *string) *string {
	if input == nil {
		return nil
	}
	normalized := ParseInputString(*input)
	return &normalized
}

// NormalizeWord lowercases w and keeps only ASCII letters and digits.
// Apostrophes are dropped, so "Don't" becomes "dont".
func NormalizeWord(w string) string {
	lower := strings.ToLower(w)
	lower = strings.ReplaceAll(lower, "'", "")
	lower = strings.ReplaceAll(lower, "’", "")
	return nonAlnum.ReplaceAllString(lower, "")
}

// Slugify turns free text into a URL slug: diacritics stripped, lowercase,
// whitespace collapsed to single hyphens.
func Slugify(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	out := stripDiacritics(s)
	out = strings.ToLower(out)
	out = nonSlug.ReplaceAllString(out, "")
	out = strings.TrimSpace(out)
	out = whitespaceRun.ReplaceAllString(out, "-")
	out = repeatedHyphens.ReplaceAllString(out, "-")
	return out
}

// HasPunctuation reports whether token contains any character of the
// punctuation set, so "world." and "well-known" both count.
func HasPunctuation(token string) bool {
	return strings.ContainsAny(token, Punctuation)
}

var diacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func stripDiacritics(s string) string {
	s = strings.NewReplacer("đ", "d", "Đ", "D").Replace(s)
	out, _, err := transform.String(diacritics, s)
	if err != nil {
		return s
	}
	return out
}
