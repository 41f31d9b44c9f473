package markov

import (
	"math/rand/v2"
	"sort"
)

// Sampler draws weighted random indexes. A Sampler built with a nil
// generator uses the process-seeded top-level functions of math/rand/v2,
// which are safe for concurrent use. A seeded *rand.Rand is not.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a Sampler drawing from rng, or from the default
// generator when rng is nil.
func NewSampler(rng *rand.Rand) *Sampler {
	return &Sampler{rng: rng}
}

func (s *Sampler) float64() float64 {
	if s == nil || s.rng == nil {
		return rand.Float64()
	}
	return s.rng.Float64()
}

// Sample returns an index into counts with probability proportional to its
// count. It draws r uniformly from [0, total) and returns the smallest i whose
// cumulative count exceeds r. counts must be non-empty with a positive total.
func (s *Sampler) Sample(counts []int) int {
	cumulative := make([]int, len(counts))
	total := 0
	for i, c := range counts {
		total += c
		cumulative[i] = total
	}

	r := s.float64() * float64(total)
	i := sort.Search(len(cumulative), func(i int) bool {
		return float64(cumulative[i]) > r
	})
	if i == len(cumulative) {
		// r rounded up to total; fall back to the last positive bucket.
		i = len(cumulative) - 1
		for i > 0 && counts[i] == 0 {
			i--
		}
	}
	return i
}
