package tokenizer

import (
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// regexMatch is the subset of regexp2.Match this package needs: a
// rune-indexed [Index, Index+Length) span. regexp2 reports match
// positions in rune offsets (it converts input to []rune internally),
// so every caller here works in rune space and converts back to a
// string/[]byte only at the piece boundary.
type regexMatch struct {
	Index, Length int
}

// findAllMatches returns every non-overlapping match of re within runes,
// in source order, mirroring the "find_iter" loop used throughout
// original_source's encode().
func findAllMatches(re *regexp2.Regexp, runes []rune) ([]regexMatch, error) {
	if len(runes) == 0 {
		return nil, nil
	}
	var out []regexMatch
	m, err := re.FindRunesMatch(runes)
	if err != nil {
		return nil, err
	}
	for m != nil {
		out = append(out, regexMatch{Index: m.Index, Length: m.Length})
		m, err = re.FindNextMatch(m)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// decodeRune decodes the first rune of b, reporting utf8.RuneError with
// size 1 on an invalid leading byte (matching utf8.DecodeRune exactly;
// this wrapper exists purely so call sites read in terms of this
// package's own vocabulary).
func decodeRune(b []byte) (rune, int) { return utf8.DecodeRune(b) }
