package tiktoken

import (
	"regexp"
	"testing"

	"github.com/dlclark/regexp2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryEntriesWellFormed(t *testing.T) {
	for name, entry := range registry {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, name, entry.name)
			assert.NotEmpty(t, entry.pattern)
			assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), entry.rankFileSHA256)
			assert.NotEmpty(t, entry.specialTokens)

			_, err := regexp2.Compile(entry.pattern, regexp2.None)
			assert.NoError(t, err, "pattern for %q must compile under regexp2.None", name)
		})
	}
}

func TestKnownEncodingsListsEveryRegistryEntry(t *testing.T) {
	names := KnownEncodings()
	assert.Len(t, names, len(registry))
	for _, n := range names {
		_, ok := registry[n]
		assert.True(t, ok, "KnownEncodings returned %q not present in registry", n)
	}
}

func TestP50kBaseAndEditShareBaseVocabulary(t *testing.T) {
	// p50k_edit and p50k_base load the same underlying rank file, per
	// original_source/src/openai_public.rs.
	assert.Equal(t, registry["p50k_base"].rankFileSHA256, registry["p50k_edit"].rankFileSHA256)
	assert.Equal(t, registry["p50k_base"].pattern, registry["p50k_edit"].pattern)
}

func TestCl100kVariantsShareVocabulary(t *testing.T) {
	assert.Equal(t, registry["cl100k_base"].rankFileSHA256, registry["cl100k_im"].rankFileSHA256)
}

func TestO200kVariantsShareVocabulary(t *testing.T) {
	assert.Equal(t, registry["o200k_base"].rankFileSHA256, registry["o200k_im"].rankFileSHA256)
}

func TestExplicitVocabOnlySetWhereOriginalChecksIt(t *testing.T) {
	// original_source only passes explicit_n_vocab for r50k_base and
	// p50k_base; cl100k/o200k pass None.
	require.Equal(t, 50257, registry["r50k_base"].explicitVocab)
	require.Equal(t, 50281, registry["p50k_base"].explicitVocab)
	assert.Zero(t, registry["cl100k_base"].explicitVocab)
	assert.Zero(t, registry["o200k_base"].explicitVocab)
}

func TestCl100kImDropsEndOfText(t *testing.T) {
	_, ok := registry["cl100k_im"].specialTokens[markerEndOfText]
	assert.False(t, ok, "cl100k_im intentionally omits <|endoftext|>")
}
