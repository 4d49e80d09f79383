package diversity

import (
	"math/rand/v2"
	"sort"

	"github.com/arloliu/otukit/errs"
)

// RarefiedSample is the taxon count vector of one resampling draw. Its sum
// equals the rarefaction depth.
type RarefiedSample []uint64

// Richness returns the number of taxa observed in the draw.
func (s RarefiedSample) Richness() int {
	return Richness(s)
}

// InverseSimpson returns the inverse Simpson index of the draw.
func (s RarefiedSample) InverseSimpson() float64 {
	return InverseSimpson(s)
}

// Depth returns the number of reads in the draw.
func (s RarefiedSample) Depth() uint64 {
	var n uint64
	for _, c := range s {
		n += c
	}

	return n
}

// Rarefy draws depth reads with replacement from the distribution given by
// counts: every draw picks taxon i with probability counts[i]/Σcounts,
// independently of the other draws.
//
// Parameters:
//   - counts: Read counts of one sample
//   - depth: Number of reads to draw, at least 1
//   - rng: Random source; the result is a pure function of its state
//
// Returns:
//   - RarefiedSample: New count vector of len(counts) summing to depth
//   - error: ErrInvalidArgument for depth < 1; *errs.InsufficientDepthError
//     if the counts sum to less than depth
func Rarefy(counts []uint64, depth int, rng *rand.Rand) (RarefiedSample, error) {
	if depth < 1 {
		return nil, errs.InvalidArgument("depth must be positive, got %d", depth)
	}

	cum := cumulative(counts, make([]uint64, len(counts)))
	var total uint64
	if len(cum) > 0 {
		total = cum[len(cum)-1]
	}
	if total < uint64(depth) {
		return nil, &errs.InsufficientDepthError{Total: total, Depth: depth}
	}

	out := make(RarefiedSample, len(counts))
	rarefyInto(cum, depth, rng, out)

	return out, nil
}

// cumulative writes the running sums of counts into cum and returns it.
func cumulative(counts, cum []uint64) []uint64 {
	var sum uint64
	for i, c := range counts {
		sum += c
		cum[i] = sum
	}

	return cum
}

// rarefyInto performs depth draws against the cumulative counts cum and
// accumulates them into out, which must be zeroed.
func rarefyInto(cum []uint64, depth int, rng *rand.Rand, out []uint64) {
	total := cum[len(cum)-1]
	for range depth {
		u := rng.Uint64N(total)
		// first taxon whose cumulative count exceeds u; zero-count taxa
		// share their predecessor's cumulative value and are never chosen
		i := sort.Search(len(cum), func(k int) bool { return cum[k] > u })
		out[i]++
	}
}

// Richness returns the number of non-zero entries of counts.
func Richness(counts []uint64) int {
	n := 0
	for _, c := range counts {
		if c > 0 {
			n++
		}
	}

	return n
}

// InverseSimpson returns 1 / Σ p_i² where p_i = counts[i] / Σcounts.
// It ranges from 1 (one taxon) to the richness (perfectly even counts) and
// is 0 for an all-zero vector.
func InverseSimpson(counts []uint64) float64 {
	var total uint64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}

	t := float64(total)
	var sumSq float64
	for _, c := range counts {
		p := float64(c) / t
		sumSq += p * p
	}

	return 1 / sumSq
}
