package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytePairEncodeClassicMerges(t *testing.T) {
	core := buildTestCoreBPE(t, nil)

	cases := []struct {
		piece string
		want  Rank
	}{
		{"low", 257},
		{"lower", 259},
		{"newest", 264},
		{"widest", 267},
	}
	for _, c := range cases {
		toks := core.bytePairEncode([]byte(c.piece))
		require.Len(t, toks, 1, "piece %q should merge to a single token", c.piece)
		assert.Equal(t, c.want, toks[0], "piece %q", c.piece)
	}
}

func TestBytePairEncodeUnknownWord(t *testing.T) {
	core := buildTestCoreBPE(t, nil)
	// "z" has no merges registered beyond single bytes, so it must fall
	// back to one token per byte.
	toks := core.bytePairEncode([]byte("zzz"))
	assert.Equal(t, []Rank{'z', 'z', 'z'}, toks)
}

func TestBytePairSplitMatchesMergeBoundaries(t *testing.T) {
	core := buildTestCoreBPE(t, nil)
	parts := core.bytePairSplit([]byte("lower"))
	require.Len(t, parts, 1)
	assert.Equal(t, "lower", string(parts[0]))
}

// Property 1 (spec §8): for every regular token rank, encode_single_token
// inverts decode_single_token_bytes.
func TestSingleTokenRoundTrip(t *testing.T) {
	core := buildTestCoreBPE(t, testSpecials())
	for r := Rank(0); r < 268; r++ {
		bs, err := core.DecodeSingleTokenBytes(r)
		require.NoError(t, err, "rank %d", r)
		got, err := core.EncodeSingleToken(bs)
		require.NoError(t, err, "rank %d", r)
		assert.Equal(t, r, got, "rank %d bytes %q", r, bs)
	}
}

// Property 2 (spec §8): every byte value encodes to exactly one token.
func TestEncodeSinglePieceByteRoundTrip(t *testing.T) {
	core := buildTestCoreBPE(t, nil)
	for b := 0; b < 256; b++ {
		toks := core.EncodeSinglePiece([]byte{byte(b)})
		require.Len(t, toks, 1, "byte %d", b)
		assert.Equal(t, Rank(b), toks[0])
	}
}

// Property 3 (spec §8): decode_bytes(encode_ordinary(text)) reconstructs
// text exactly whenever the pre-tokenization pattern is exhaustive
// (true for testPattern, which always matches any remaining input).
func TestDecodeComposesWithEncodeOrdinary(t *testing.T) {
	core := buildTestCoreBPE(t, nil)
	texts := []string{
		"lower newest widest",
		"low   new  est",
		"zzz lo wi",
		"",
	}
	for _, text := range texts {
		toks := core.EncodeOrdinary(text)
		bs, err := core.DecodeBytes(toks)
		require.NoError(t, err)
		assert.Equal(t, text, string(bs), "roundtrip for %q", text)
	}
}

func TestEncodeRecognizesAllowedSpecialOnly(t *testing.T) {
	core := buildTestCoreBPE(t, testSpecials())
	text := "lower " + testEndOfText + " widest"

	toks, lastLen, err := core.Encode(text, map[string]struct{}{testEndOfText: {}})
	require.NoError(t, err)
	assert.Contains(t, toks, Rank(300))
	assert.Equal(t, 1, lastLen, "last_piece_token_len resets at the special token, then counts the trailing ordinary piece \"widest\"")

	// Without the marker in allowedSpecial, it must be encoded as
	// ordinary text instead of emitted as a single special rank.
	ordinaryToks, _, err := core.Encode(text, nil)
	require.NoError(t, err)
	assert.NotContains(t, ordinaryToks, Rank(300))
}

func TestDecodeBytesUnknownRank(t *testing.T) {
	core := buildTestCoreBPE(t, nil)
	_, err := core.DecodeBytes([]Rank{99999})
	require.Error(t, err)
	var tErr *Error
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, UnknownRank, tErr.Kind)
}

func TestEncodeSingleTokenUnknownPiece(t *testing.T) {
	core := buildTestCoreBPE(t, nil)
	_, err := core.EncodeSingleToken([]byte("not-a-token-and-not-special"))
	require.Error(t, err)
	var tErr *Error
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, UnknownPiece, tErr.Kind)
}
