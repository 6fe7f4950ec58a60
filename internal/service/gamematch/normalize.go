package gamematch

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	foldTransformer transform.Transformer = transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
		lowerTransformer{},
	)

	separators = regexp.MustCompile(`[^a-z0-9]+`)
)

// Normalize folds diacritics, lowercases s and collapses
// every run of non alphanumeric characters to a single space.
func Normalize(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = strings.ToLower(s)
	}

	return strings.TrimSpace(separators.ReplaceAllString(folded, " "))
}

// Matches reports whether normalized matchup is
// a non-empty substring of normalized text.
func Matches(matchup, text string) bool {
	m := Normalize(matchup)
	if m == "" {
		return false
	}

	return strings.Contains(Normalize(text), m)
}

type lowerTransformer struct{ transform.NopResetter }

func (lowerTransformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		r, size := utf8.DecodeRune(src[nSrc:])
		if r == utf8.RuneError && size == 1 && !atEOF && !utf8.FullRune(src[nSrc:]) {
			err = transform.ErrShortSrc
			break
		}

		r = unicode.ToLower(r)
		if utf8.RuneLen(r) > len(dst[nDst:]) {
			err = transform.ErrShortDst
			break
		}
		nDst += utf8.EncodeRune(dst[nDst:], r)
		nSrc += size
	}
	return nDst, nSrc, err
}
