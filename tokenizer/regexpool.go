package tokenizer

import (
	"regexp"
	"strings"
	"sync"

	"github.com/dlclark/regexp2"
)

// maxPoolThreads mirrors the upstream pool size: a fixed number of
// pre-cloned regex instances amortizes compile cost across callers.
// The acquisition mechanism here is a sync.Pool rather than a
// thread-id-hashed array — spec §4.3/§9 call this an equally valid
// "clone on demand" strategy, and it avoids reaching for goroutine-id
// tricks that Go does not expose natively.
const maxPoolThreads = 128

// regexPool vends regexp2.Regexp instances compiled from a single
// pattern. regexp2 matchers are not safe for concurrent use (they carry
// mutable scratch state), so every acquire/release pair brackets one
// match operation.
type regexPool struct {
	pattern string
	opts    regexp2.RegexOptions
	pool    sync.Pool
}

func newRegexPool(pattern string, opts regexp2.RegexOptions) (*regexPool, error) {
	if _, err := regexp2.Compile(pattern, opts); err != nil {
		return nil, newRegexError(err)
	}
	rp := &regexPool{pattern: pattern, opts: opts}
	rp.pool.New = func() any {
		re, err := regexp2.Compile(rp.pattern, rp.opts)
		if err != nil {
			// Unreachable: the pattern was already validated above.
			panic(err)
		}
		re.MatchTimeout = 0
		return re
	}
	// Pre-warm the pool so early traffic does not pay a compile on the hot
	// path, matching the spirit of the upstream fixed-size pool. sync.Pool
	// may still drop idle instances during garbage collection, after which
	// New compiles a fresh one.
	warm := make([]*regexp2.Regexp, maxPoolThreads)
	for i := range warm {
		warm[i] = rp.pool.New().(*regexp2.Regexp)
	}
	for _, re := range warm {
		rp.pool.Put(re)
	}
	return rp, nil
}

func (rp *regexPool) acquire() *regexp2.Regexp { return rp.pool.Get().(*regexp2.Regexp) }

func (rp *regexPool) release(re *regexp2.Regexp) { rp.pool.Put(re) }

// buildSpecialAlternation joins escaped special-token markers into a
// single alternation pattern. regexp2's alternation takes the first
// branch that succeeds at a position, not the longest, so the markers
// are sorted by descending length: tiktoken's special markers are
// prefix-free in practice, and the sort keeps a longer marker from ever
// being shadowed by a shorter prefix of it.
func buildSpecialAlternation(markers []string) string {
	sorted := make([]string, len(markers))
	copy(sorted, markers)
	sortByDescendingLength(sorted)
	escaped := make([]string, len(sorted))
	for i, m := range sorted {
		escaped[i] = regexp.QuoteMeta(m)
	}
	return strings.Join(escaped, "|")
}

func sortByDescendingLength(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && len(s[j-1]) < len(s[j]); j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
