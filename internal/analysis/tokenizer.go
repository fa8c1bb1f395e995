package analysis

import (
	"regexp"
	"strings"
	"unicode"
)

var sentenceBoundary = regexp.MustCompile(`[.!?]+[\s\v\x{1c}-\x{1f}\p{Z}\x{85}]+`)

// digitForms holds the non-decimal characters that still spell a single
// digit: superscripts, subscripts, circled and parenthesized digits and
// similar. Fractions such as '½' are not digits.
var digitForms = &unicode.RangeTable{
	R16: []unicode.Range16{
		{0x00B2, 0x00B3, 1},
		{0x00B9, 0x00B9, 1},
		{0x1369, 0x1371, 1},
		{0x19DA, 0x19DA, 1},
		{0x2070, 0x2070, 1},
		{0x2074, 0x2079, 1},
		{0x2080, 0x2089, 1},
		{0x2460, 0x2468, 1},
		{0x2474, 0x247C, 1},
		{0x2488, 0x2490, 1},
		{0x24EA, 0x24EA, 1},
		{0x24F5, 0x24FD, 1},
		{0x24FF, 0x24FF, 1},
		{0x2776, 0x277E, 1},
		{0x2780, 0x2788, 1},
		{0x278A, 0x2792, 1},
	},
	R32: []unicode.Range32{
		{0x10A40, 0x10A43, 1},
		{0x10E60, 0x10E68, 1},
		{0x11052, 0x1105A, 1},
		{0x1F100, 0x1F10A, 1},
	},
	LatinOffset: 2,
}

// TokenizeWords lowercases text and returns its maximal runs of letters,
// digits and underscores. Tokens made only of digits are dropped.
func TokenizeWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})

	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" || isNumeric(f) {
			continue
		}
		words = append(words, f)
	}
	return words
}

// TokenizeSentences splits text after runs of '.', '!' or '?' that are
// followed by whitespace. Blank pieces are dropped. Abbreviations and
// decimals will be split too.
func TokenizeSentences(text string) []string {
	parts := sentenceBoundary.Split(strings.TrimFunc(text, isSpace), -1)

	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimFunc(p, isSpace) == "" {
			continue
		}
		sentences = append(sentences, p)
	}
	return sentences
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && !unicode.Is(digitForms, r) {
			return false
		}
	}
	return true
}

// isSpace also accepts the ASCII file, group, record and unit separators
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}
