package ordination

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/otukit/errs"
	"github.com/arloliu/otukit/internal/hash"
	"github.com/arloliu/otukit/internal/options"
)

// NMDS performs non-metric multidimensional scaling of dm into k dimensions.
//
// Each start runs SMACOF majorisation with monotone (isotonic) regression of
// the configuration distances on the rank order of the dissimilarities. The
// first start is the PCoA solution, the others are uniform random
// configurations; the solution with the lowest Kruskal stress-1 is returned,
// centred at the origin.
//
// Parameters:
//   - dm: The dissimilarities
//   - k: Number of dimensions, 1 <= k < dm.Len()
//   - opts: WithSeed, WithTries, WithMaxIter, WithTolerance, WithLogger
//
// Returns:
//   - *Ordination: Coordinates and Stress
//   - error: ErrInvalidArgument for fewer than 3 samples or k out of range
func NMDS(dm *DistanceMatrix, k int, opts ...Option) (*Ordination, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	n := dm.Len()
	if n < 3 {
		return nil, errs.InvalidArgument("nmds needs at least 3 samples, got %d", n)
	}
	if k < 1 || k >= n {
		return nil, errs.InvalidArgument("nmds needs 1 <= k < %d samples, got k=%d", n, k)
	}

	s := newSmacof(dm, k, cfg)

	var (
		best       *mat.Dense
		bestStress = math.Inf(1)
	)
	for try := range cfg.Tries {
		var start *mat.Dense
		if try == 0 {
			start = s.classicalStart()
		}
		if start == nil {
			rng := rand.New(rand.NewPCG(cfg.Seed, hash.Stream(cfg.Seed, uint64(try)))) //nolint:gosec
			start = s.randomStart(rng)
		}

		x, stress, iters := s.run(start)
		cfg.Logger.Debug("nmds start finished",
			zap.Int("try", try),
			zap.Int("iterations", iters),
			zap.Float64("stress", stress))
		if stress < bestStress {
			best, bestStress = x, stress
		}
	}

	if best == nil {
		return nil, errs.InvalidArgument("nmds found no configuration with finite stress")
	}
	centre(best)
	cfg.Logger.Debug("nmds finished", zap.Int("tries", cfg.Tries), zap.Float64("stress", bestStress))

	return &Ordination{
		Method: MethodNMDS,
		IDs:    append([]string(nil), dm.IDs()...),
		Coords: best,
		Stress: bestStress,
	}, nil
}

// pair is one upper-triangle cell of the dissimilarity matrix.
type pair struct {
	i, j  int
	delta float64
}

type smacof struct {
	dm    *DistanceMatrix
	n, k  int
	cfg   *Config
	pairs []pair // sorted by delta
	norm  float64
}

func newSmacof(dm *DistanceMatrix, k int, cfg *Config) *smacof {
	n := dm.Len()
	pairs := make([]pair, 0, n*(n-1)/2)
	for i := range n {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, pair{i: i, j: j, delta: dm.At(i, j)})
		}
	}
	slices.SortStableFunc(pairs, func(a, b pair) int { return cmp.Compare(a.delta, b.delta) })

	return &smacof{dm: dm, n: n, k: k, cfg: cfg, pairs: pairs, norm: float64(len(pairs))}
}

func (s *smacof) classicalStart() *mat.Dense {
	ord, err := PCoA(s.dm, s.k)
	if err != nil {
		return nil
	}
	if pairDistances(ord.Coords, s.pairs, nil) == nil {
		return nil
	}

	return ord.Coords
}

func (s *smacof) randomStart(rng *rand.Rand) *mat.Dense {
	x := mat.NewDense(s.n, s.k, nil)
	for i := range s.n {
		for a := range s.k {
			x.Set(i, a, rng.Float64()-0.5)
		}
	}

	return x
}

// run iterates Guttman transforms from start and returns the final
// configuration, its stress-1 and the number of iterations.
func (s *smacof) run(start *mat.Dense) (*mat.Dense, float64, int) {
	x := mat.DenseCopyOf(start)
	d := pairDistances(x, s.pairs, nil)
	if d == nil {
		return x, math.Inf(1), 0
	}
	dhat := make([]float64, len(s.pairs))

	prev := math.Inf(1)
	var stress float64
	iter := 0
	for ; iter < s.cfg.MaxIter; iter++ {
		s.disparities(d, dhat)
		stress = stress1(d, dhat)
		if prev-stress < s.cfg.Tolerance || stress == 0 {
			break
		}
		prev = stress

		s.normalize(dhat)
		x = s.guttman(x, d, dhat)
		if d = pairDistances(x, s.pairs, d); d == nil {
			return x, math.Inf(1), iter
		}
	}
	s.disparities(d, dhat)
	stress = stress1(d, dhat)

	return x, stress, iter
}

// disparities fits a non-decreasing sequence to d in dissimilarity order.
// Tied dissimilarities are ordered by current distance.
func (s *smacof) disparities(d, dhat []float64) {
	idx := make([]int, len(s.pairs))
	for p := range idx {
		idx[p] = p
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		if c := cmp.Compare(s.pairs[a].delta, s.pairs[b].delta); c != 0 {
			return c
		}

		return cmp.Compare(d[a], d[b])
	})

	y := make([]float64, len(idx))
	for r, p := range idx {
		y[r] = d[p]
	}
	fit := isotonic(y)
	for r, p := range idx {
		dhat[p] = fit[r]
	}
}

// normalize scales dhat so that Σ dhat² equals the number of pairs.
func (s *smacof) normalize(dhat []float64) {
	var ss float64
	for _, v := range dhat {
		ss += v * v
	}
	if ss == 0 {
		return
	}
	f := math.Sqrt(s.norm / ss)
	for p := range dhat {
		dhat[p] *= f
	}
}

// guttman returns (1/n) B(X) X.
func (s *smacof) guttman(x *mat.Dense, d, dhat []float64) *mat.Dense {
	b := mat.NewDense(s.n, s.n, nil)
	for p, pr := range s.pairs {
		if d[p] == 0 {
			continue
		}
		v := -dhat[p] / d[p]
		b.Set(pr.i, pr.j, v)
		b.Set(pr.j, pr.i, v)
		b.Set(pr.i, pr.i, b.At(pr.i, pr.i)-v)
		b.Set(pr.j, pr.j, b.At(pr.j, pr.j)-v)
	}

	var next mat.Dense
	next.Mul(b, x)
	next.Scale(1/float64(s.n), &next)

	return &next
}

// pairDistances writes the Euclidean distances of the configuration for
// every pair into buf. It returns nil when all points coincide.
func pairDistances(x *mat.Dense, pairs []pair, buf []float64) []float64 {
	if buf == nil {
		buf = make([]float64, len(pairs))
	}
	_, k := x.Dims()
	var total float64
	for p, pr := range pairs {
		var ss float64
		for a := range k {
			diff := x.At(pr.i, a) - x.At(pr.j, a)
			ss += diff * diff
		}
		buf[p] = math.Sqrt(ss)
		total += buf[p]
	}
	if total == 0 {
		return nil
	}

	return buf
}

// stress1 is sqrt(Σ(d-dhat)² / Σd²).
func stress1(d, dhat []float64) float64 {
	var num, den float64
	for p := range d {
		diff := d[p] - dhat[p]
		num += diff * diff
		den += d[p] * d[p]
	}
	if den == 0 {
		return 0
	}

	return math.Sqrt(num / den)
}

// isotonic returns the least-squares non-decreasing fit to y using the
// pool-adjacent-violators algorithm.
func isotonic(y []float64) []float64 {
	type block struct {
		sum   float64
		count int
	}
	blocks := make([]block, 0, len(y))
	for _, v := range y {
		blocks = append(blocks, block{sum: v, count: 1})
		for len(blocks) > 1 {
			last := blocks[len(blocks)-1]
			prev := blocks[len(blocks)-2]
			if prev.sum/float64(prev.count) <= last.sum/float64(last.count) {
				break
			}
			blocks = blocks[:len(blocks)-1]
			blocks[len(blocks)-1] = block{sum: prev.sum + last.sum, count: prev.count + last.count}
		}
	}

	fit := make([]float64, 0, len(y))
	for _, b := range blocks {
		mean := b.sum / float64(b.count)
		for range b.count {
			fit = append(fit, mean)
		}
	}

	return fit
}

// centre moves the centroid of x to the origin.
func centre(x *mat.Dense) {
	n, k := x.Dims()
	for a := range k {
		var mean float64
		for i := range n {
			mean += x.At(i, a)
		}
		mean /= float64(n)
		for i := range n {
			x.Set(i, a, x.At(i, a)-mean)
		}
	}
}
