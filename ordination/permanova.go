package ordination

import (
	"math"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/arloliu/otukit/errs"
	"github.com/arloliu/otukit/internal/hash"
	"github.com/arloliu/otukit/internal/options"
)

// PermanovaResult is the outcome of a one-factor permutational ANOVA.
type PermanovaResult struct {
	// Groups lists the distinct group labels in order of first appearance.
	Groups       []string
	N            int
	DFBetween    int
	DFWithin     int
	SSBetween    float64
	SSWithin     float64
	SSTotal      float64
	F            float64
	R2           float64
	PValue       float64
	Permutations int
}

// Permanova tests whether groups explain the dissimilarities of dm, the
// adonis test with a single factor.
//
// The pseudo-F statistic is (SSB/(a-1)) / (SSW/(N-a)) with SST = Σd²/N over
// all pairs and SSW summed per group as Σd²/n_g. The p-value is
// (hits+1)/(permutations+1), where hits counts label permutations whose F
// is at least the observed one.
//
// Parameters:
//   - dm: The dissimilarities
//   - groups: Group label of each sample, in matrix order
//   - opts: WithPermutations, WithSeed, WithLogger
//
// Returns:
//   - *PermanovaResult: The test statistics
//   - error: ErrInvalidArgument when groups does not match dm, when fewer
//     than two groups are present or when no residual degrees of freedom are
//     left
func Permanova(dm *DistanceMatrix, groups []string, opts ...Option) (*PermanovaResult, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	n := dm.Len()
	if len(groups) != n {
		return nil, errs.InvalidArgument("%d group labels for %d samples", len(groups), n)
	}

	labels, codes := encodeGroups(groups)
	a := len(labels)
	if a < 2 {
		return nil, errs.InvalidArgument("permanova needs at least 2 groups, got %d", a)
	}
	if n-a < 1 {
		return nil, errs.InvalidArgument("permanova has no residual degrees of freedom: %d samples in %d groups", n, a)
	}

	sizes := make([]float64, a)
	for _, c := range codes {
		sizes[c]++
	}

	sq := make([]float64, n*n)
	var sst float64
	for i := range n {
		for j := i + 1; j < n; j++ {
			d := dm.At(i, j)
			sq[i*n+j] = d * d
			sst += d * d
		}
	}
	sst /= float64(n)

	withinSS := func(codes []int) float64 {
		var ssw float64
		for i := range n {
			for j := i + 1; j < n; j++ {
				if codes[i] == codes[j] {
					ssw += sq[i*n+j] / sizes[codes[i]]
				}
			}
		}

		return ssw
	}
	dfB, dfW := float64(a-1), float64(n-a)
	pseudoF := func(ssw float64) float64 {
		return ((sst - ssw) / dfB) / (ssw / dfW)
	}

	ssw := withinSS(codes)
	f := pseudoF(ssw)

	rng := rand.New(rand.NewPCG(cfg.Seed, hash.Stream(cfg.Seed, uint64(n)))) //nolint:gosec
	perm := append([]int(nil), codes...)
	tol := 1e-12 * math.Abs(f)
	hits := 0
	for range cfg.Permutations {
		rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		fp := pseudoF(withinSS(perm))
		if fp >= f || math.IsNaN(f) || (!math.IsInf(f, 0) && fp >= f-tol) {
			hits++
		}
	}

	res := &PermanovaResult{
		Groups:       labels,
		N:            n,
		DFBetween:    a - 1,
		DFWithin:     n - a,
		SSBetween:    sst - ssw,
		SSWithin:     ssw,
		SSTotal:      sst,
		F:            f,
		PValue:       float64(hits+1) / float64(cfg.Permutations+1),
		Permutations: cfg.Permutations,
	}
	if sst > 0 {
		res.R2 = res.SSBetween / sst
	}

	cfg.Logger.Debug("permanova finished",
		zap.Int("samples", n),
		zap.Int("groups", a),
		zap.Float64("F", f),
		zap.Float64("p", res.PValue))

	return res, nil
}

// encodeGroups maps labels to dense codes in order of first appearance.
func encodeGroups(groups []string) ([]string, []int) {
	index := make(map[string]int)
	labels := make([]string, 0)
	codes := make([]int, len(groups))
	for i, g := range groups {
		c, ok := index[g]
		if !ok {
			c = len(labels)
			index[g] = c
			labels = append(labels, g)
		}
		codes[i] = c
	}

	return labels, codes
}
