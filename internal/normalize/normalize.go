// Package normalize canonicalizes free-text game titles into comparable token
// sets and URL-safe slugs. It folds a fixed set of symbol classes (Greek
// letters, Roman-numeral glyphs, trademark marks, diacritics) and preserves
// non-Latin scripts such as CJK and Hangul otherwise.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxSlugLen caps the length of generated slugs.
const MaxSlugLen = 100

// Normalized is the canonical form of a title.
type Normalized struct {
	Lower   string   // lowercased, folded, separator-collapsed
	Tokens  []string // word tokens of Lower
	Compact string   // Tokens joined without separators
	Slug    string   // Tokens joined with hyphens, capped at MaxSlugLen
}

// greekNames folds the Greek letters that appear in game titles into their
// Latin names. Only this fixed table is folded; no general transliteration.
var greekNames = map[rune]string{
	'Δ': "delta",
	'δ': "delta",
	'Ω': "omega",
	'ω': "omega",
	'Σ': "sigma",
	'σ': "sigma",
	'ς': "sigma",
	'Α': "alpha",
	'α': "alpha",
}

// romanNumerals maps the dedicated Unicode Roman-numeral glyphs Ⅰ-Ⅻ (and
// their lowercase forms) to arabic digits.
var romanNumerals = map[rune]string{
	'Ⅰ': "1", 'Ⅱ': "2", 'Ⅲ': "3", 'Ⅳ': "4", 'Ⅴ': "5", 'Ⅵ': "6",
	'Ⅶ': "7", 'Ⅷ': "8", 'Ⅸ': "9", 'Ⅹ': "10", 'Ⅺ': "11", 'Ⅻ': "12",
	'ⅰ': "1", 'ⅱ': "2", 'ⅲ': "3", 'ⅳ': "4", 'ⅴ': "5", 'ⅵ': "6",
	'ⅶ': "7", 'ⅷ': "8", 'ⅸ': "9", 'ⅹ': "10", 'ⅺ': "11", 'ⅻ': "12",
}

// strippedRunes are glyphs removed outright before tokenization.
var strippedRunes = map[rune]bool{
	'™': true, '®': true, '©': true, '℠': true,
	'•': true, '·': true, '●': true, '◦': true,
	'…': true,
}

// foldableMark matches the combining marks dropped during the fold. The kana
// voicing marks (U+3099 dakuten, U+309A handakuten) are combining marks too,
// but removing them would change the letter (ペ would become ヘ), so they are
// kept and recomposed.
var foldableMark = runes.Predicate(func(r rune) bool {
	if r == '\u3099' || r == '\u309a' {
		return false
	}
	return unicode.Is(unicode.Mn, r)
})

// diacriticFolder strips combining marks: NFD decompose, drop marks, recompose.
// CJK does not decompose and Hangul recomposes, so those scripts pass through.
var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(foldableMark), norm.NFC)

// Normalize canonicalizes a raw title. Empty or symbol-only input yields the
// zero value (empty strings, no tokens), never an error.
func Normalize(raw string) Normalized {
	var b strings.Builder
	b.Grow(len(raw) + 8)

	for _, r := range raw {
		switch {
		case strippedRunes[r]:
			// dropped
		case greekNames[r] != "":
			b.WriteByte(' ')
			b.WriteString(greekNames[r])
			b.WriteByte(' ')
		case romanNumerals[r] != "":
			b.WriteByte(' ')
			b.WriteString(romanNumerals[r])
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}

	folded, _, err := transform.String(diacriticFolder, b.String())
	if err != nil {
		// Fold failure leaves the marks in place; tokenization still works.
		folded = b.String()
	}

	tokens := tokenize(strings.ToLower(folded))
	if len(tokens) == 0 {
		return Normalized{Tokens: []string{}}
	}

	return Normalized{
		Lower:   strings.Join(tokens, " "),
		Tokens:  tokens,
		Compact: strings.Join(tokens, ""),
		Slug:    buildSlug(tokens),
	}
}

// tokenize splits on any rune that is not a letter or digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// buildSlug joins tokens with hyphens and truncates to MaxSlugLen without
// leaving a dangling hyphen.
func buildSlug(tokens []string) string {
	slug := strings.Join(tokens, "-")
	if len(slug) <= MaxSlugLen {
		return slug
	}

	cut := slug[:MaxSlugLen]
	// Never cut a multi-byte rune in half.
	for len(cut) > 0 && !utf8ValidSuffix(cut) {
		cut = cut[:len(cut)-1]
	}
	return strings.TrimRight(cut, "-")
}

func utf8ValidSuffix(s string) bool {
	return strings.ToValidUTF8(s, "") == s
}

// IsYearToken reports whether a token looks like a release year. The matching
// engine treats such tokens as optional bonus signals rather than required
// name tokens.
func IsYearToken(tok string) bool {
	if len(tok) != 4 {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return tok >= "1970" && tok <= "2099"
}
