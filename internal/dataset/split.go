package dataset

import (
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"
)

// Split shuffles the indices 0..n-1 with a seeded generator and returns the
// train and test partitions. The test share is rounded up, so any positive
// testSize leaves at least one test row.
func Split(n int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, eris.Errorf("dataset: test size %v must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, eris.Errorf("dataset: cannot split %d rows with test size %v", n, testSize)
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// Subset selects rows and labels by index.
func Subset[T any](xs []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = xs[j]
	}
	return out
}
