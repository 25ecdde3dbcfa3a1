package calculator

import "iter"

// RollingCorrelation yields, for every prefix length i = 1..N, the index i-1 and the
// correlation of xs[:i] and ys[:i]. Each value is recomputed from scratch, so the
// sequence can be ranged over any number of times. Unequal inputs are cut to the
// shorter length.
func RollingCorrelation(xs, ys []float64) iter.Seq2[int, float64] {
	n := min(len(xs), len(ys))
	return func(yield func(int, float64) bool) {
		for i := 1; i <= n; i++ {
			if !yield(i-1, Correlation(xs[:i], ys[:i])) {
				return
			}
		}
	}
}
