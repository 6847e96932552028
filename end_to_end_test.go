package tiktoken

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These scenarios require the real OpenAI .tiktoken rank files, which
// this module does not embed (fetching/caching them is out of scope).
// Set TIKTOKEN_GO_RANKFILE_DIR to a directory containing
// cl100k_base.tiktoken / r50k_base.tiktoken / p50k_base.tiktoken to run
// them; otherwise they are skipped.
func rankFileDir(t *testing.T) string {
	t.Helper()
	dir := os.Getenv("TIKTOKEN_GO_RANKFILE_DIR")
	if dir == "" {
		t.Skip("TIKTOKEN_GO_RANKFILE_DIR not set, skipping literal end-to-end scenarios")
	}
	return dir
}

func loadRealEncoding(t *testing.T, name string) *Encoding {
	t.Helper()
	dir := rankFileDir(t)
	raw, err := os.ReadFile(filepath.Join(dir, name+".tiktoken"))
	if err != nil {
		t.Skipf("could not read %s.tiktoken: %v", name, err)
	}
	enc, err := New(name, raw)
	require.NoError(t, err)
	return enc
}

func TestEndToEndCl100kHelloWorld(t *testing.T) {
	enc := loadRealEncoding(t, "cl100k_base")

	toks, err := enc.Encode("hello world", AllForbidden())
	require.NoError(t, err)
	assert.Equal(t, []uint32{15339, 1917}, toks)

	out, err := enc.Decode(toks)
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestEndToEndCl100kSpecialToken(t *testing.T) {
	enc := loadRealEncoding(t, "cl100k_base")
	text := "hello <|endoftext|>"

	handling := SpecialTokenHandling{Default: Special}
	toks, err := enc.Encode(text, handling)
	require.NoError(t, err)
	assert.Equal(t, []uint32{15339, 220, 100257}, toks)

	overrideHandling := SpecialTokenHandling{
		Default:   Forbidden,
		Overrides: map[string]SpecialTokenAction{"<|endoftext|>": Special},
	}
	toks, err = enc.Encode(text, overrideHandling)
	require.NoError(t, err)
	assert.Equal(t, []uint32{15339, 220, 100257}, toks)

	normalToks, err := enc.Encode(text, SpecialTokenHandling{Default: NormalText})
	require.NoError(t, err)
	assert.Equal(t, []uint32{15339, 83739, 8862, 728, 428, 91, 29}, normalToks)
}

func TestEndToEndR50kWhitespaceRuns(t *testing.T) {
	enc := loadRealEncoding(t, "r50k_base")
	toks, err := enc.Encode("hello world    hello", SpecialTokenHandling{Default: NormalText})
	require.NoError(t, err)
	assert.Equal(t, []uint32{31373, 995, 220, 220, 220, 23748}, toks)
}

func TestEndToEndP50kWhitespaceRuns(t *testing.T) {
	enc := loadRealEncoding(t, "p50k_base")
	toks, err := enc.Encode("hello world    hello", SpecialTokenHandling{Default: NormalText})
	require.NoError(t, err)
	assert.Equal(t, []uint32{31373, 995, 50258, 23748}, toks)
}
