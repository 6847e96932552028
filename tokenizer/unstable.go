package tokenizer

import (
	"encoding/binary"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// isUnstableWhitespace reports membership in the byte set spec §9's open question resolves
// to: {space, tab, LF, CR}.
func isUnstableWhitespace(b byte) bool {
	switch b {
	case 0x20, 0x09, 0x0A, 0x0D:
		return true
	default:
		return false
	}
}

func (b *CoreBPE) tokenIsAllUnstableWhitespace(rank Rank) bool {
	bytes, err := b.DecodeSingleTokenBytes(rank)
	if err != nil || len(bytes) == 0 {
		return false
	}
	for _, c := range bytes {
		if !isUnstableWhitespace(c) {
			return false
		}
	}
	return true
}

// increaseLastPieceTokenLen implements spec §4.5 step 3: while the token
// immediately preceding the current unstable window is itself entirely
// whitespace, fold it into the window too. This compensates for regex
// alternatives like `\s*[\r\n]+` whose splits are unstable under
// concatenation with more input.
func (b *CoreBPE) increaseLastPieceTokenLen(tokens []Rank, lastPieceTokenLen int) ([]Rank, int) {
	if lastPieceTokenLen == 0 {
		return tokens, 0
	}
	for {
		idx := len(tokens) - lastPieceTokenLen - 1
		if idx < 0 {
			break
		}
		if !b.tokenIsAllUnstableWhitespace(tokens[idx]) {
			break
		}
		lastPieceTokenLen++
	}
	return tokens, lastPieceTokenLen
}

// EncodeWithUnstable implements spec §4.5's `encode_with_unstable`.
func (b *CoreBPE) EncodeWithUnstable(text string, allowedSpecial map[string]struct{}) ([]Rank, [][]Rank, error) {
	tokens, lastPieceTokenLen, err := b.Encode(text, allowedSpecial)
	if err != nil {
		return nil, nil, err
	}
	if lastPieceTokenLen == 0 {
		return tokens, nil, nil
	}

	tokens, lastPieceTokenLen = b.increaseLastPieceTokenLen(tokens, lastPieceTokenLen)

	stable := tokens[:len(tokens)-lastPieceTokenLen]
	unstableBytes, err := b.DecodeBytes(tokens[len(tokens)-lastPieceTokenLen:])
	if err != nil {
		return nil, nil, err
	}

	completions := newCompletionSet()

	// 5a. Single-token completions: every token starting with
	// unstableBytes.
	sorted := b.ranks.SortedTokenBytes()
	for _, tok := range sortedTokensWithPrefix(sorted, unstableBytes) {
		completions.add([]Rank{mustRankOf(b.ranks, tok)})
	}

	// 5b. Split-point re-encode loop.
	for i := 1; i < len(unstableBytes); i++ {
		prefix := unstableBytes[:i]
		suffix := unstableBytes[i:]
		for _, tok := range sortedTokensWithPrefix(sorted, suffix) {
			possibility := append(append([]byte(nil), prefix...), tok...)
			var seq []Rank
			if isValidUTF8(possibility) {
				seq = b.EncodeOrdinary(string(possibility))
			} else {
				seq = b.bytePairEncode(possibility)
			}
			shortest := shortestPrefixAtLeast(b, seq, len(unstableBytes))
			completions.add(shortest)
		}
	}

	// 5c. Whitespace-stability correction.
	if len(unstableBytes) > 1 {
		if splitAt, ok := lastScalarIsWhitespaceSplit(unstableBytes); ok {
			head := b.bytePairEncode(unstableBytes[:splitAt])
			tail := b.bytePairEncode(unstableBytes[splitAt:])
			seq := append(append([]Rank(nil), head...), tail...)
			completions.add(seq)
		}
	}

	return stable, completions.sequences(), nil
}

// sortedTokensWithPrefix returns every entry of sorted that starts with
// prefix, found via binary search over the lexicographically sorted
// token-bytes view (spec §4.5 step 5a's "partition_point").
func sortedTokensWithPrefix(sorted [][]byte, prefix []byte) [][]byte {
	if len(prefix) == 0 {
		return nil
	}
	lo := sort.Search(len(sorted), func(i int) bool { return compareBytes(sorted[i], prefix) >= 0 })
	var out [][]byte
	for i := lo; i < len(sorted); i++ {
		if !hasPrefix(sorted[i], prefix) {
			break
		}
		out = append(out, sorted[i])
	}
	return out
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func hasPrefix(s, prefix []byte) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := range prefix {
		if s[i] != prefix[i] {
			return false
		}
	}
	return true
}

func mustRankOf(t *RankTable, tok []byte) Rank {
	r, _ := t.RankOf(tok)
	return r
}

// shortestPrefixAtLeast returns the shortest prefix of seq whose decoded
// byte length is >= minLen, per spec §4.5 step 5b.
func shortestPrefixAtLeast(b *CoreBPE, seq []Rank, minLen int) []Rank {
	total := 0
	for i, r := range seq {
		bs, err := b.DecodeSingleTokenBytes(r)
		if err == nil {
			total += len(bs)
		}
		if total >= minLen {
			return append([]Rank(nil), seq[:i+1]...)
		}
	}
	return append([]Rank(nil), seq...)
}

// lastScalarIsWhitespaceSplit reports whether the last UTF-8 scalar of b
// is whitespace and there is at least one byte before it, returning the
// byte offset of that scalar's start.
func lastScalarIsWhitespaceSplit(b []byte) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}
	r, size := utf8.DecodeLastRune(b)
	if r == utf8.RuneError && size <= 1 {
		return 0, false
	}
	if !unicode.IsSpace(r) {
		return 0, false
	}
	splitAt := len(b) - size
	if splitAt == 0 {
		return 0, false
	}
	return splitAt, true
}

// completionSet deduplicates rank sequences by hashing their little-
// endian byte encoding with xxhash, avoiding the allocation of a string
// key per candidate.
type completionSet struct {
	seen map[uint64][]Rank
}

func newCompletionSet() *completionSet { return &completionSet{seen: make(map[uint64][]Rank)} }

func (c *completionSet) add(seq []Rank) {
	if seq == nil {
		return
	}
	key := hashRankSequence(seq)
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = seq
}

func (c *completionSet) sequences() [][]Rank {
	out := make([][]Rank, 0, len(c.seen))
	for _, seq := range c.seen {
		out = append(out, seq)
	}
	return out
}

func hashRankSequence(seq []Rank) uint64 {
	buf := make([]byte, 4*len(seq))
	for i, r := range seq {
		binary.LittleEndian.PutUint32(buf[i*4:], r)
	}
	return xxhash.Sum64(buf)
}
