package imaging

import (
	"math"
	"math/rand"
)

// poisson draws a Poisson-distributed sample with the given mean. Knuth's
// product method is exact but costs O(mean) draws per sample; above a
// cutoff a normal approximation keeps the per-frame cost bounded.
func poisson(rng *rand.Rand, mean float64) int64 {
	if mean <= 0 {
		return 0
	}

	if mean < 30 {
		limit := math.Exp(-mean)
		var k int64
		p := 1.0
		for {
			p *= rng.Float64()
			if p <= limit {
				return k
			}
			k++
		}
	}

	sample := math.Round(mean + math.Sqrt(mean)*rng.NormFloat64())
	if sample < 0 {
		return 0
	}

	return int64(sample)
}
