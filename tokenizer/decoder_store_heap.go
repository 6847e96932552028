//go:build !goexperiment.arenas

package tokenizer

// Heap-backed token store using a direct rank-indexed slice. This is the
// default implementation and serves as the fallback when arenas are not
// enabled.

type heapStore struct {
	arr [][]byte // direct references to token byte slices, indexed by rank
}

func newTokenStore(pairs []pair) (tokenStore, error) {
	size := int(maxRankOf(pairs)) + 1
	tmp := make([][]byte, size)
	for _, p := range pairs {
		if tmp[int(p.rank)] == nil {
			tmp[int(p.rank)] = p.tokens
		}
	}
	return &heapStore{arr: tmp}, nil
}

func maxRankOf(pairs []pair) Rank {
	var maxID Rank
	for _, p := range pairs {
		if p.rank > maxID {
			maxID = p.rank
		}
	}
	return maxID
}

func (s *heapStore) AppendInto(dst *[]byte, id Rank) bool {
	if int(id) >= len(s.arr) {
		return false
	}
	b := s.arr[id]
	if b == nil {
		return false
	}
	*dst = append(*dst, b...)
	return true
}

func (s *heapStore) Close() {}
