package tokenizer

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"testing"
)

var (
	benchCoreOnce sync.Once
	benchCore     *CoreBPE
	benchCoreErr  error
)

// benchRankFile rebuilds the same fixture as buildTestRankFile without
// requiring a *testing.T, since benchmarks only have a *testing.B.
func benchRankFile() ([]byte, string) {
	var sb strings.Builder
	for b := 0; b < 256; b++ {
		fmt.Fprintf(&sb, "%s %d\n", base64.StdEncoding.EncodeToString([]byte{byte(b)}), b)
	}
	for _, m := range testMerges {
		fmt.Fprintf(&sb, "%s %d\n", base64.StdEncoding.EncodeToString([]byte(m.tok)), m.rank)
	}
	raw := []byte(sb.String())
	sum := sha256.Sum256(raw)
	return raw, hex.EncodeToString(sum[:])
}

func loadBenchCore(b *testing.B) *CoreBPE {
	benchCoreOnce.Do(func() {
		raw, hash := benchRankFile()
		ranks, err := LoadRankTable(raw, hash)
		if err != nil {
			benchCoreErr = err
			return
		}
		benchCore, benchCoreErr = NewCoreBPE(ranks, testPattern, testSpecials())
	})
	if benchCoreErr != nil {
		b.Fatalf("load core: %v", benchCoreErr)
	}
	return benchCore
}

func BenchmarkEncodePiece_Short(b *testing.B) {
	core := loadBenchCore(b)
	piece := []byte("weather")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		toks := core.bytePairEncode(piece)
		if len(toks) == 0 {
			b.Fatal("expected tokens")
		}
	}
}

func BenchmarkEncodePiece_Medium(b *testing.B) {
	core := loadBenchCore(b)
	piece := []byte("San Francisco weather forecast for the next five days with precipitation chances")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		toks := core.bytePairEncode(piece)
		if len(toks) == 0 {
			b.Fatal("expected tokens")
		}
	}
}

func BenchmarkEncodePiece_Large(b *testing.B) {
	core := loadBenchCore(b)
	base := "Summarise the full itinerary including breakfast, museum visits, hikes, dinner plans, and transit notes. "
	piece := []byte(strings.Repeat(base, 8))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		toks := core.bytePairEncode(piece)
		if len(toks) == 0 {
			b.Fatal("expected tokens")
		}
	}
}

func BenchmarkBytePairMerge(b *testing.B) {
	core := loadBenchCore(b)
	piece := []byte(strings.Repeat("tool schema requires validation ", 6))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		parts, release := core.bytePairMerge(piece)
		if len(parts) == 0 {
			b.Fatal("expected parts")
		}
		release()
	}
}
