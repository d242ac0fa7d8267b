package title

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacriticFolder decomposes combining characters (NFKD) and then
// drops the resulting mark runes, the standard golang.org/x/text
// recipe for ASCII transliteration (é -> e, ß stays as a ligature
// under NFKD and is handled separately below). Grounded on
// autobrr-qui's internal/services/crossseed normalisation helpers,
// which fold release names to a comparison surrogate the same way.
var diacriticFolder = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// eszettReplacer expands the German sharp s, which NFKD does not
// decompose into an ASCII-representable sequence on its own.
var eszettReplacer = strings.NewReplacer("ß", "ss", "ẞ", "SS")

// Normalize produces the matching surrogate for a title: diacritics
// folded to ASCII, lowercased, punctuation collapsed to single spaces,
// and trimmed (spec §3). It is idempotent: Normalize(Normalize(s)) ==
// Normalize(s).
func Normalize(s string) string {
	s = eszettReplacer.Replace(s)
	folded, _, err := transform.String(diacriticFolder, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	lastWasSpace := false
	for _, r := range folded {
		if isAlnumASCII(r) {
			b.WriteRune(r)
			lastWasSpace = false
			continue
		}
		if !lastWasSpace {
			b.WriteByte(' ')
			lastWasSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

func isAlnumASCII(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
