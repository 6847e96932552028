package tokenizer

import (
	"sync"

	"github.com/dlclark/regexp2"
)

// Rank is the non-negative integer token identifier described in spec
// §3. Ranks double as merge priority: lower rank merges earlier.
type Rank = uint32

// CoreBPE is the tokenizer engine of spec §4.4: it owns the rank table,
// the special-token table, the decoder, the sorted token-bytes view, and
// the regex pool, and exposes the encode/decode operations. Every
// operation here is read-only against the receiver and safe to call
// concurrently from any number of goroutines once construction has
// completed (spec §5).
type CoreBPE struct {
	ranks       *RankTable
	specialEnc  map[string]Rank
	specialDec  map[Rank][]byte
	patternPool *regexPool
	specialPool *regexPool // nil when there are no special tokens at all
	partsPool   sync.Pool
	tokenPool   sync.Pool
}

// NewCoreBPE builds a CoreBPE from an already-loaded RankTable, the
// fixed pre-tokenization pattern for this encoding, and the special-
// token table. pattern must be a valid regexp2 pattern (spec §6 lists
// the six patterns this package is exercised against).
func NewCoreBPE(ranks *RankTable, pattern string, specials map[string]Rank) (*CoreBPE, error) {
	patternPool, err := newRegexPool(pattern, regexp2.None)
	if err != nil {
		return nil, err
	}

	var specialPool *regexPool
	if len(specials) > 0 {
		markers := make([]string, 0, len(specials))
		for m := range specials {
			markers = append(markers, m)
		}
		specialPool, err = newRegexPool(buildSpecialAlternation(markers), regexp2.None)
		if err != nil {
			return nil, err
		}
	}

	specialEnc := make(map[string]Rank, len(specials))
	specialDec := make(map[Rank][]byte, len(specials))
	for k, v := range specials {
		specialEnc[k] = v
		specialDec[v] = []byte(k)
	}

	return &CoreBPE{
		ranks:       ranks,
		specialEnc:  specialEnc,
		specialDec:  specialDec,
		patternPool: patternPool,
		specialPool: specialPool,
		partsPool:   sync.Pool{New: func() any { b := make([]part, 0, 64); return &b }},
		tokenPool:   sync.Pool{New: func() any { b := make([]Rank, 0, 32); return &b }},
	}, nil
}

// DecodeBytes concatenates decoder[r] (falling back to special_decoder[r])
// for every rank in tokens, per spec §4.4.
func (b *CoreBPE) DecodeBytes(tokens []Rank) ([]byte, error) {
	var out []byte
	if err := b.DecodeBytesInto(&out, tokens); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeUTF8 decodes tokens and interprets the result as a UTF-8 string.
// The result is not guaranteed to be valid UTF-8 if the caller sliced
// tokens at an arbitrary boundary; spec's contract is only that ordinary
// encode/decode round-trips on full outputs (property #3).
func (b *CoreBPE) DecodeUTF8(tokens []Rank) (string, error) {
	bs, err := b.DecodeBytes(tokens)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

// DecodeBytesInto appends the decoded bytes for tokens into dst,
// avoiding an intermediate slice allocation.
func (b *CoreBPE) DecodeBytesInto(dst *[]byte, tokens []Rank) error {
	buf := *dst
	for _, t := range tokens {
		if b.ranks.decoder.AppendInto(&buf, t) {
			continue
		}
		if v, ok := b.specialDec[t]; ok {
			buf = append(buf, v...)
			continue
		}
		*dst = buf
		return newUnknownRank(t)
	}
	*dst = buf
	return nil
}

// DecodeSingleTokenBytes is the single-rank variant of DecodeBytes,
// per spec §4.4.
func (b *CoreBPE) DecodeSingleTokenBytes(rank Rank) ([]byte, error) {
	var buf []byte
	if b.ranks.decoder.AppendInto(&buf, rank) {
		return buf, nil
	}
	if v, ok := b.specialDec[rank]; ok {
		return append([]byte(nil), v...), nil
	}
	return nil, newUnknownRank(rank)
}

// EncodeSingleToken looks bytes up directly in the rank table, falling
// back to interpreting bytes as a UTF-8 special-token marker, per
// spec §4.4.
func (b *CoreBPE) EncodeSingleToken(raw []byte) (Rank, error) {
	if r, ok := b.ranks.RankOf(raw); ok {
		return r, nil
	}
	if r, ok := b.specialEnc[string(raw)]; ok {
		return r, nil
	}
	return 0, newUnknownPiece(raw)
}

// EncodeSinglePiece is a whole-piece lookup or BPE merge; it never
// consults the special-token table, per spec §4.4.
func (b *CoreBPE) EncodeSinglePiece(raw []byte) []Rank {
	return b.bytePairEncode(raw)
}

// TokenByteValues returns the sorted-token-bytes view, per spec §4.4.
func (b *CoreBPE) TokenByteValues() [][]byte { return b.ranks.SortedTokenBytes() }

// IsSpecialToken reports whether rank id is a special token.
func (b *CoreBPE) IsSpecialToken(id Rank) bool { _, ok := b.specialDec[id]; return ok }

// EncodeOrdinary runs the pre-tokenization regex over text and BPE-merges
// each piece, never recognizing special-token markers, per spec §4.4.
func (b *CoreBPE) EncodeOrdinary(text string) []Rank {
	toks, _, _ := b.Encode(text, nil)
	return toks
}

// Encode implements spec §4.4's `encode`: it scans for allowed special-
// token matches, BPE-encodes the ordinary text between them, and tracks
// last_piece_token_len for the unstable-token computation in unstable.go.
func (b *CoreBPE) Encode(text string, allowedSpecial map[string]struct{}) ([]Rank, int, error) {
	runes := []rune(text)

	patRe := b.patternPool.acquire()
	defer b.patternPool.release(patRe)

	var specialRe *regexp2.Regexp
	if b.specialPool != nil && len(allowedSpecial) > 0 {
		specialRe = b.specialPool.acquire()
		defer b.specialPool.release(specialRe)
	}

	var out []Rank
	lastPieceLen := 0
	start := 0

	for {
		end := len(runes)
		var specialLit string
		specialStart, specialEndAbs := -1, -1

		if specialRe != nil && start <= len(runes) {
			seg := runes[start:]
			m, err := specialRe.FindRunesMatch(seg)
			if err != nil {
				return nil, 0, newRegexError(err)
			}
			for m != nil {
				lit := string(seg[m.Index : m.Index+m.Length])
				if _, ok := allowedSpecial[lit]; ok {
					specialLit = lit
					specialStart = start + m.Index
					specialEndAbs = start + m.Index + m.Length
					break
				}
				m, err = specialRe.FindNextMatch(m)
				if err != nil {
					return nil, 0, newRegexError(err)
				}
			}
		}
		if specialLit != "" {
			end = specialStart
		}

		segRunes := runes[start:end]
		matches, err := findAllMatches(patRe, segRunes)
		if err != nil {
			return nil, 0, newRegexError(err)
		}
		prevEnd := 0
		for _, m := range matches {
			if m.Index > prevEnd {
				// A pattern that leaves a gap (spec §9 open question);
				// every pattern in the registry is exhaustive, so this
				// only fires for a hand-supplied pattern that isn't.
				gap := []byte(string(segRunes[prevEnd:m.Index]))
				toks := b.bytePairEncode(gap)
				out = append(out, toks...)
				lastPieceLen = len(toks)
			}
			piece := []byte(string(segRunes[m.Index : m.Index+m.Length]))
			if id, ok := b.ranks.RankOf(piece); ok {
				out = append(out, id)
				lastPieceLen = 1
			} else {
				toks := b.bytePairEncode(piece)
				out = append(out, toks...)
				lastPieceLen = len(toks)
			}
			prevEnd = m.Index + m.Length
		}
		if prevEnd < len(segRunes) {
			gap := []byte(string(segRunes[prevEnd:]))
			toks := b.bytePairEncode(gap)
			out = append(out, toks...)
			lastPieceLen = len(toks)
		}

		if specialLit == "" {
			break
		}
		out = append(out, b.specialEnc[specialLit])
		start = specialEndAbs
		lastPieceLen = 0
	}
	return out, lastPieceLen, nil
}

// EncodeWithAllSpecials treats every marker in the special-token table
// as Special. Ported from original_source's encode_with_special_tokens
// convenience (see SPEC_FULL.md's supplemented-features section).
func (b *CoreBPE) EncodeWithAllSpecials(text string) ([]Rank, error) {
	allowed := make(map[string]struct{}, len(b.specialEnc))
	for s := range b.specialEnc {
		allowed[s] = struct{}{}
	}
	toks, _, err := b.Encode(text, allowed)
	return toks, err
}

// EncodeBytes implements spec §4.4's `encode_bytes`: arbitrary bytes are
// accepted; the longest valid-UTF-8 prefix is tokenized ordinarily and
// any trailing invalid bytes are merged directly.
func (b *CoreBPE) EncodeBytes(raw []byte) []Rank {
	prefixLen := longestValidUTF8Prefix(raw)
	if prefixLen == len(raw) {
		return b.EncodeOrdinary(string(raw))
	}
	if prefixLen == 0 {
		return b.bytePairEncode(raw)
	}

	toks, lastPieceLen, _ := b.Encode(string(raw[:prefixLen]), nil)
	toks, lastPieceLen = b.increaseLastPieceTokenLen(toks, lastPieceLen)

	stable := toks[:len(toks)-lastPieceLen]
	unstableBytes, err := b.DecodeBytes(toks[len(toks)-lastPieceLen:])
	if err != nil {
		// Unreachable: every rank in toks came from this CoreBPE.
		unstableBytes = nil
	}
	unstableBytes = append(unstableBytes, raw[prefixLen:]...)
	merged := b.bytePairEncode(unstableBytes)
	return append(append([]Rank(nil), stable...), merged...)
}

func longestValidUTF8Prefix(raw []byte) int {
	for i := len(raw); i > 0; i-- {
		if isValidUTF8(raw[:i]) {
			return i
		}
	}
	return 0
}

func isValidUTF8(b []byte) bool {
	for len(b) > 0 {
		r, size := decodeRune(b)
		if r == 0xFFFD && size == 1 {
			return false
		}
		b = b[size:]
	}
	return true
}

// part is one boundary in the working array described by spec §4.2:
// parts[i].start is the byte offset of boundary i, and rank caches the
// rank of the pair (parts[i], parts[i+2]) so the merge loop need not
// re-hash it every pass.
type part struct {
	start int
	rank  Rank
}

const sentinelRank Rank = ^Rank(0)

// bytePairEncode is spec §4.2's `byte_pair_encode`.
func (b *CoreBPE) bytePairEncode(piece []byte) []Rank {
	if len(piece) == 0 {
		return nil
	}
	if len(piece) == 1 {
		return []Rank{b.rankOfOrSentinel(piece)}
	}
	parts, releaseParts := b.bytePairMerge(piece)
	toksPtr, releaseToks := b.acquireTokens(len(parts) - 1)
	toks := (*toksPtr)[:0]
	for w := 0; w+1 < len(parts); w++ {
		toks = append(toks, b.rankOfOrSentinel(piece[parts[w].start:parts[w+1].start]))
	}
	releaseParts()
	out := append([]Rank(nil), toks...)
	*toksPtr = toks
	releaseToks()
	return out
}

func (b *CoreBPE) rankOfOrSentinel(piece []byte) Rank {
	if r, ok := b.ranks.RankOf(piece); ok {
		return r
	}
	return sentinelRank
}

func (b *CoreBPE) getRank(piece []byte, parts []part, i int) Rank {
	if i+3 < len(parts) {
		if r, ok := b.ranks.RankOf(piece[parts[i].start:parts[i+3].start]); ok {
			return r
		}
	}
	return sentinelRank
}

// bytePairMerge runs the greedy lowest-rank merge loop of spec §4.2 and
// returns the surviving boundary array; the returned release func must
// be called once the caller is done reading parts.
func (b *CoreBPE) bytePairMerge(piece []byte) ([]part, func()) {
	partsPtr, release := b.acquireParts(len(piece) + 2)
	parts := (*partsPtr)[:0]

	minIdx, minRank := -1, sentinelRank
	for i := 0; i < len(piece)-1; i++ {
		r, ok := b.ranks.RankOf(piece[i : i+2])
		if !ok {
			r = sentinelRank
		}
		if r < minRank {
			minRank, minIdx = r, i
		}
		parts = append(parts, part{start: i, rank: r})
	}
	parts = append(parts, part{start: len(piece) - 1, rank: sentinelRank})
	parts = append(parts, part{start: len(piece), rank: sentinelRank})

	for minRank != sentinelRank {
		i := minIdx
		if i > 0 {
			parts[i-1].rank = b.getRank(piece, parts, i-1)
		}
		parts[i].rank = b.getRank(piece, parts, i)
		parts = append(parts[:i+1], parts[i+2:]...)

		minIdx, minRank = -1, sentinelRank
		for j := 0; j < len(parts)-1; j++ {
			if parts[j].rank < minRank {
				minRank, minIdx = parts[j].rank, j
			}
		}
	}

	*partsPtr = parts
	return parts, release
}

// bytePairSplit is spec §4.2's `byte_pair_split`: identical merge logic,
// returning byte-slice ranges rather than rank lookups.
func (b *CoreBPE) bytePairSplit(piece []byte) [][]byte {
	if len(piece) == 1 {
		return [][]byte{piece}
	}
	parts, release := b.bytePairMerge(piece)
	defer release()
	out := make([][]byte, 0, len(parts)-1)
	for w := 0; w+1 < len(parts); w++ {
		out = append(out, piece[parts[w].start:parts[w+1].start])
	}
	return out
}

func (b *CoreBPE) acquireParts(capHint int) (*[]part, func()) {
	p := b.partsPool.Get().(*[]part)
	if cap(*p) < capHint {
		buf := make([]part, 0, capHint)
		p = &buf
	}
	release := func() {
		if cap(*p) > 1<<12 {
			return
		}
		*p = (*p)[:0]
		b.partsPool.Put(p)
	}
	return p, release
}

func (b *CoreBPE) acquireTokens(capHint int) (*[]Rank, func()) {
	p := b.tokenPool.Get().(*[]Rank)
	if cap(*p) < capHint {
		buf := make([]Rank, 0, capHint)
		p = &buf
	}
	release := func() {
		if cap(*p) > 1<<12 {
			return
		}
		*p = (*p)[:0]
		b.tokenPool.Put(p)
	}
	return p, release
}
