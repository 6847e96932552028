package tokenizer

// Rolling-hash constants ported from original_source/src/encoding.rs.
// Any collision-resistant choice satisfies spec §8's property 6 (spec
// §9 says so explicitly); these are kept because they are already
// proven against the real OpenAI vocabularies.
const (
	rollPrime   int64 = 997
	rollModulus int64 = 1_000_000_000_000_001 // 10^15 + 1
)

func rollHash(old int64, next byte) int64 {
	return (((old * rollPrime) % rollModulus) + int64(next)) % rollModulus
}

func rollHashSlice(b []byte) int64 {
	h := int64(0)
	for _, c := range b {
		h = rollHash(h, c)
	}
	return h
}

// Estimator precomputes the rolling-hash prefix set needed by
// EstimateTokens (spec §4.6), built once per RankTable and reused across
// calls.
type Estimator struct {
	ranks         *RankTable
	prefixHashes  map[int64]struct{}
	maxTokenBytes int
}

// NewEstimator builds the prefix-hash set described in spec §4.6: the
// rolling hash of every prefix of every mergeable token, plus the empty
// prefix (hash 0), so the peel loop below always has a valid starting
// state.
func NewEstimator(ranks *RankTable) *Estimator {
	prefixes := make(map[int64]struct{})
	prefixes[0] = struct{}{}
	maxLen := 0
	for _, tok := range ranks.SortedTokenBytes() {
		if len(tok) > maxLen {
			maxLen = len(tok)
		}
		h := int64(0)
		for _, c := range tok {
			h = rollHash(h, c)
			prefixes[h] = struct{}{}
		}
	}
	return &Estimator{ranks: ranks, prefixHashes: prefixes, maxTokenBytes: maxLen}
}

// EstimateTokens implements spec §4.6's
// `estimate_num_tokens_no_special_tokens_fast`: a streaming rolling-hash
// heuristic guaranteed within ±5% of the true ordinary-encode token
// count for representative natural-language input, without running BPE.
func (e *Estimator) EstimateTokens(text string) int {
	raw := []byte(text)
	count := 0
	buf := make([]byte, 0, e.maxTokenBytes+1)
	hash := int64(0)

	for i := 0; i < len(raw); i++ {
		buf = append(buf, raw[i])
		hash = rollHash(hash, raw[i])

		if _, ok := e.prefixHashes[hash]; ok && len(buf) <= e.maxTokenBytes {
			continue
		}
		var emitted int
		buf, hash, emitted = e.peelToValidPrefix(buf)
		count += emitted
	}
	// Flush the trailing buffer the same way: peel a registered token (or
	// a single byte) off the front until nothing is left.
	for len(buf) > 0 {
		head := buf
		for len(head) > 1 {
			if _, ok := e.ranks.RankOf(head); ok {
				break
			}
			head = head[:len(head)-1]
		}
		count++
		buf = buf[len(head):]
	}
	return count
}

// peelToValidPrefix implements the inner "while buffer is no longer a
// prefix of any token, or too long" loop of spec §4.6: it repeatedly
// shrinks the head of buf until the head is either a registered token or
// a single byte, emits one token for that head, and carries the
// remaining peeled tail forward as the new candidate buffer — repeating
// if that remainder is itself still invalid.
func (e *Estimator) peelToValidPrefix(buf []byte) ([]byte, int64, int) {
	emitted := 0
	for {
		hash := rollHashSlice(buf)
		_, isPrefix := e.prefixHashes[hash]
		if len(buf) == 0 || (isPrefix && len(buf) <= e.maxTokenBytes) {
			return buf, hash, emitted
		}

		head := buf
		for len(head) > 1 {
			if _, ok := e.ranks.RankOf(head); ok {
				break
			}
			head = head[:len(head)-1]
		}
		emitted++
		buf = append([]byte(nil), buf[len(head):]...)
	}
}
