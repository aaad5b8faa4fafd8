package sparse_test

import (
	"math/rand"
	"testing"

	"github.com/katalvlaran/msmcount/sparse"
)

// benchCounts builds an unconsolidated n×n matrix with k random unit entries.
func benchCounts(b *testing.B, seed int64, n, k int) *sparse.CSC {
	b.Helper()
	rng := rand.New(rand.NewSource(seed))
	tr, err := sparse.NewTriplet(n, k)
	if err != nil {
		b.Fatal(err)
	}
	for e := 0; e < k; e++ {
		if err = tr.Entry(rng.Intn(n), rng.Intn(n), 1); err != nil {
			b.Fatal(err)
		}
	}

	return tr.Compress()
}

func BenchmarkDedup(b *testing.B) {
	m := benchCounts(b, 1, 500, 100_000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.Dedup()
	}
}

func BenchmarkAdd(b *testing.B) {
	x := benchCounts(b, 2, 500, 50_000).Dedup()
	y := benchCounts(b, 3, 500, 50_000).Dedup()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := sparse.Add(x, y, 1, 1); err != nil {
			b.Fatal(err)
		}
	}
}
