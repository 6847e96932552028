package tiktoken

import (
	"sort"
	"strings"

	"github.com/rankbpe/tiktoken/tokenizer"
)

// SpecialTokenAction is the effective treatment of a special-token
// marker during encoding, per spec §3/§4.7.
type SpecialTokenAction int

const (
	// Forbidden fails encoding if the marker's literal text appears in
	// the input.
	Forbidden SpecialTokenAction = iota
	// NormalText encodes the marker's bytes through ordinary BPE,
	// neither recognized as a special token nor rejected.
	NormalText
	// Special recognizes the marker and emits its single reserved rank.
	Special
)

// SpecialTokenHandling is the policy passed to Encode, per spec §3.
// Overrides win over Default for any marker they name.
type SpecialTokenHandling struct {
	Default   SpecialTokenAction
	Overrides map[string]SpecialTokenAction
}

// AllForbidden is the conservative default: no special-token marker is
// ever recognized, and any occurrence of one in the input is an error.
// This matches tiktoken's own encode() default, which requires callers
// to opt in to any special-token behavior explicitly.
func AllForbidden() SpecialTokenHandling {
	return SpecialTokenHandling{Default: Forbidden}
}

// AllSpecial recognizes every special-token marker in the table.
func AllSpecial() SpecialTokenHandling {
	return SpecialTokenHandling{Default: Special}
}

// Encoding is the user-facing handle of spec §3: a named, immutable
// bundle of rank table, special-token table, pattern, and CoreBPE,
// shared by reference across goroutines once constructed.
type Encoding struct {
	name          string
	core          *tokenizer.CoreBPE
	ranks         *tokenizer.RankTable
	specials      map[string]tokenizer.Rank
	maxTokenValue tokenizer.Rank
	estimator     *tokenizer.Estimator
}

// New builds the named registry encoding (r50k_base, p50k_base,
// p50k_edit, cl100k_base, cl100k_im, o200k_base, o200k_im) from raw rank
// file bytes. The caller supplies the bytes (embedded, downloaded,
// whatever); fetching them is out of scope here (SPEC_FULL.md ambient
// stack notes).
func New(name string, rankFileBytes []byte) (*Encoding, error) {
	entry, ok := registry[name]
	if !ok {
		return nil, tokenizer.NewVocabMismatch("unknown encoding %q", name)
	}
	return newFromEntry(entry, rankFileBytes)
}

// NewFromSpec builds an Encoding from caller-supplied pattern, hash, and
// special-token table, for vocabularies outside the built-in registry
// (spec §4.7's factories are a convenience, not the only entry point).
func NewFromSpec(name, pattern, rankFileSHA256 string, specialTokens map[string]tokenizer.Rank, explicitVocab int, rankFileBytes []byte) (*Encoding, error) {
	entry := registryEntry{
		name:           name,
		pattern:        pattern,
		rankFileSHA256: rankFileSHA256,
		specialTokens:  specialTokens,
		explicitVocab:  explicitVocab,
	}
	return newFromEntry(entry, rankFileBytes)
}

func newFromEntry(entry registryEntry, rankFileBytes []byte) (*Encoding, error) {
	ranks, err := tokenizer.LoadRankTable(rankFileBytes, entry.rankFileSHA256)
	if err != nil {
		return nil, err
	}

	for marker := range entry.specialTokens {
		if _, ok := ranks.RankOf([]byte(marker)); ok {
			return nil, tokenizer.NewVocabMismatch("special token %q collides with a mergeable token", marker)
		}
	}

	maxTokenValue := ranks.MaxRank()
	for _, r := range entry.specialTokens {
		if r > maxTokenValue {
			maxTokenValue = r
		}
	}

	if entry.explicitVocab > 0 {
		total := ranks.Len() + len(entry.specialTokens)
		if total != entry.explicitVocab {
			return nil, tokenizer.NewVocabMismatch("encoding %q: vocab size %d does not match explicit_n_vocab %d", entry.name, total, entry.explicitVocab)
		}
		if int(maxTokenValue) != entry.explicitVocab-1 {
			return nil, tokenizer.NewVocabMismatch("encoding %q: max token value %d does not match explicit_n_vocab-1 %d", entry.name, maxTokenValue, entry.explicitVocab-1)
		}
	}

	core, err := tokenizer.NewCoreBPE(ranks, entry.pattern, entry.specialTokens)
	if err != nil {
		return nil, err
	}

	return &Encoding{
		name:          entry.name,
		core:          core,
		ranks:         ranks,
		specials:      entry.specialTokens,
		maxTokenValue: maxTokenValue,
		estimator:     tokenizer.NewEstimator(ranks),
	}, nil
}

// Name returns the encoding's registry name.
func (e *Encoding) Name() string { return e.name }

// MaxTokenValue returns the highest rank in this encoding's vocabulary,
// per spec §3's max_token_value invariant.
func (e *Encoding) MaxTokenValue() tokenizer.Rank { return e.maxTokenValue }

// EOTToken returns the rank of <|endoftext|>, if this encoding defines
// one (cl100k_im omits it; see registry.go).
func (e *Encoding) EOTToken() (tokenizer.Rank, bool) {
	r, ok := e.specials[markerEndOfText]
	return r, ok
}

// resolveActions implements spec §4.7's decision table, returning the
// recognize set (passed to CoreBPE as allowedSpecial) and the forbid
// set (checked against the input text before encoding).
func (e *Encoding) resolveActions(h SpecialTokenHandling) (recognize map[string]struct{}, forbid []string, err error) {
	for m := range h.Overrides {
		if _, ok := e.specials[m]; !ok {
			return nil, nil, tokenizer.NewUnknownSpecialToken(m)
		}
	}

	recognize = make(map[string]struct{})
	for m := range e.specials {
		action := h.Default
		if a, ok := h.Overrides[m]; ok {
			action = a
		}
		switch action {
		case Special:
			recognize[m] = struct{}{}
		case Forbidden:
			forbid = append(forbid, m)
		case NormalText:
			// Neither recognized nor forbidden: falls through to
			// ordinary BPE on its raw bytes.
		}
	}
	return recognize, forbid, nil
}

func (e *Encoding) checkForbidden(text string, forbid []string) error {
	for _, m := range forbid {
		if strings.Contains(text, m) {
			return tokenizer.NewDisallowedSpecialToken(m)
		}
	}
	return nil
}

// Encode implements spec §4.7's encode: resolve the special-token
// policy, reject forbidden markers found in text, then delegate to
// CoreBPE.Encode with the recognized set.
func (e *Encoding) Encode(text string, handling SpecialTokenHandling) ([]tokenizer.Rank, error) {
	recognize, forbid, err := e.resolveActions(handling)
	if err != nil {
		return nil, err
	}
	if err := e.checkForbidden(text, forbid); err != nil {
		return nil, err
	}
	toks, _, err := e.core.Encode(text, recognize)
	return toks, err
}

// EncodeOrdinary never recognizes or forbids special-token markers; it
// always encodes their raw bytes through ordinary BPE.
func (e *Encoding) EncodeOrdinary(text string) []tokenizer.Rank {
	return e.core.EncodeOrdinary(text)
}

// EncodeWithUnstable is the unstable-token variant of Encode, per spec
// §4.5, resolved against the same special-token policy.
func (e *Encoding) EncodeWithUnstable(text string, handling SpecialTokenHandling) ([]tokenizer.Rank, [][]tokenizer.Rank, error) {
	recognize, forbid, err := e.resolveActions(handling)
	if err != nil {
		return nil, nil, err
	}
	if err := e.checkForbidden(text, forbid); err != nil {
		return nil, nil, err
	}
	return e.core.EncodeWithUnstable(text, recognize)
}

// Decode turns a rank sequence back into text. Invalid UTF-8 in the
// result (possible if tokens was sliced at a non-scalar boundary) is
// preserved rather than replaced, matching CoreBPE.DecodeUTF8.
func (e *Encoding) Decode(tokens []tokenizer.Rank) (string, error) {
	return e.core.DecodeUTF8(tokens)
}

// DecodeBytes is the byte-oriented variant of Decode.
func (e *Encoding) DecodeBytes(tokens []tokenizer.Rank) ([]byte, error) {
	return e.core.DecodeBytes(tokens)
}

// EncodeSingleToken and DecodeSingleTokenBytes pass through to CoreBPE
// for exact single-rank lookups, per spec §4.4.
func (e *Encoding) EncodeSingleToken(raw []byte) (tokenizer.Rank, error) {
	return e.core.EncodeSingleToken(raw)
}

func (e *Encoding) DecodeSingleTokenBytes(rank tokenizer.Rank) ([]byte, error) {
	return e.core.DecodeSingleTokenBytes(rank)
}

// EstimateTokens runs the fast rolling-hash heuristic of spec §4.6
// without performing any BPE merges.
func (e *Encoding) EstimateTokens(text string) int {
	return e.estimator.EstimateTokens(text)
}

// SpecialMarkers returns this encoding's special-token markers in
// descending length order, for diagnostic listing (e.g. the CLI's
// "specials" subcommand).
func (e *Encoding) SpecialMarkers() []string {
	out := make([]string, 0, len(e.specials))
	for m := range e.specials {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}
