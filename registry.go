package tiktoken

import "github.com/rankbpe/tiktoken/tokenizer"

// Special-token markers shared across the OpenAI public encodings,
// ported from original_source/src/openai_public.rs.
const (
	markerEndOfText   = "<|endoftext|>"
	markerFimPrefix   = "<|fim_prefix|>"
	markerFimMiddle   = "<|fim_middle|>"
	markerFimSuffix   = "<|fim_suffix|>"
	markerEndOfPrompt = "<|endofprompt|>"
	markerImStart     = "<|im_start|>"
	markerImEnd       = "<|im_end|>"
	markerImSep       = "<|im_sep|>"
)

const (
	patternR50k = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`
	patternCl100k = `(?i:'s|'t|'re|'ve|'m|'ll|'d)|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+(?!\S)|\s+`
	patternO200k = `[^\r\n\p{L}\p{N}]?[\p{Lu}\p{Lt}\p{Lm}\p{Lo}\p{M}]*[\p{Ll}\p{Lm}\p{Lo}\p{M}]+(?i:'s|'t|'re|'ve|'m|'ll|'d)?` +
		`|[^\r\n\p{L}\p{N}]?[\p{Lu}\p{Lt}\p{Lm}\p{Lo}\p{M}]+[\p{Ll}\p{Lm}\p{Lo}\p{M}]*(?i:'s|'t|'re|'ve|'m|'ll|'d)?` +
		`|\p{N}{1,3}` +
		`| ?[^\s\p{L}\p{N}]+[\r\n/]*` +
		`|\s*[\r\n]+` +
		`|\s+(?!\S)` +
		`|\s+`
)

// Rank-file content digests, ported verbatim from
// original_source/src/openai_public.rs. These gate LoadRankTable against
// silently loading the wrong vocabulary.
const (
	hashR50kBase   = "306cd27f03c1a714eca7108e03d66b7dc042abe8c258b44c199a7ed9838dd930"
	hashP50kBase   = "94b5ca7dff4d00767bc256fdd1b27e5b17361d7b8a5f968547f9f23eb70d2069"
	hashCl100kBase = "223921b76ee99bde995b7ff738513eef100fb51d18c93597a113bcffe865b2a7"
	hashO200kBase  = "446a9538cb6c348e3516120d7c08b09f57c36495e2acfffe59a5bf8b0cfb1a2d"
)

// registryEntry is everything needed to build a named Encoding once its
// rank file bytes are supplied by the caller. Fetching and caching those
// bytes is out of scope for this module (SPEC_FULL.md's ambient-stack
// section); callers embed or download the .tiktoken file themselves and
// pass it to New.
type registryEntry struct {
	name           string
	pattern        string
	rankFileSHA256 string
	specialTokens  map[string]tokenizer.Rank
	explicitVocab  int // 0 means "not checked"
}

var registry = map[string]registryEntry{
	"r50k_base": {
		name:           "r50k_base",
		pattern:        patternR50k,
		rankFileSHA256: hashR50kBase,
		specialTokens:  map[string]tokenizer.Rank{markerEndOfText: 50256},
		explicitVocab:  50257,
	},
	"p50k_base": {
		name:           "p50k_base",
		pattern:        patternR50k,
		rankFileSHA256: hashP50kBase,
		specialTokens:  map[string]tokenizer.Rank{markerEndOfText: 50256},
		explicitVocab:  50281,
	},
	// p50k_edit shares p50k_base's vocabulary and pattern but adds the
	// fill-in-the-middle markers used by code-edit models (spec §6).
	"p50k_edit": {
		name:           "p50k_edit",
		pattern:        patternR50k,
		rankFileSHA256: hashP50kBase,
		specialTokens: map[string]tokenizer.Rank{
			markerEndOfText: 50256,
			markerFimPrefix: 50281,
			markerFimMiddle: 50282,
			markerFimSuffix: 50283,
		},
	},
	"cl100k_base": {
		name:           "cl100k_base",
		pattern:        patternCl100k,
		rankFileSHA256: hashCl100kBase,
		specialTokens: map[string]tokenizer.Rank{
			markerEndOfText:   100257,
			markerFimPrefix:   100258,
			markerFimMiddle:   100259,
			markerFimSuffix:   100260,
			markerEndOfPrompt: 100276,
		},
	},
	// cl100k_im drops end-of-text (the production chat models stopped
	// honoring it, see original_source's own comment to that effect) and
	// adds the chat-markup role delimiters.
	"cl100k_im": {
		name:           "cl100k_im",
		pattern:        patternCl100k,
		rankFileSHA256: hashCl100kBase,
		specialTokens: map[string]tokenizer.Rank{
			markerFimPrefix:   100258,
			markerFimMiddle:   100259,
			markerFimSuffix:   100260,
			markerImStart:     100264,
			markerImEnd:       100265,
			markerImSep:       100266,
			markerEndOfPrompt: 100276,
		},
	},
	"o200k_base": {
		name:           "o200k_base",
		pattern:        patternO200k,
		rankFileSHA256: hashO200kBase,
		specialTokens: map[string]tokenizer.Rank{
			markerEndOfText:   199999,
			markerFimPrefix:   200000,
			markerFimMiddle:   200001,
			markerFimSuffix:   200002,
			markerEndOfPrompt: 200018,
		},
	},
	"o200k_im": {
		name:           "o200k_im",
		pattern:        patternO200k,
		rankFileSHA256: hashO200kBase,
		specialTokens: map[string]tokenizer.Rank{
			markerEndOfText:   199999,
			markerFimPrefix:   200000,
			markerFimMiddle:   200001,
			markerFimSuffix:   200002,
			markerImStart:     200006,
			markerImEnd:       200007,
			markerImSep:       200008,
			markerEndOfPrompt: 200018,
		},
	},
}

// gpt2 is intentionally absent from registry: its vocabulary is shipped
// as a data-gym encoder.json + vocab.bpe pair rather than a .tiktoken
// rank file, and building that loader (byte-to-unicode remapping table,
// BPE merge list parsing, JSON vocab) is an additional ambient format
// this module does not carry. NewFromSpec still accepts a manually
// supplied pattern/hash/special-token set for it if a caller has already
// converted the data-gym vocabulary to a .tiktoken file offline.
const gpt2Pattern = patternR50k

// KnownEncodings lists every name New accepts.
func KnownEncodings() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}
