package diversity

import (
	"context"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/arloliu/otukit/errs"
	"github.com/arloliu/otukit/internal/hash"
	"github.com/arloliu/otukit/internal/options"
	"github.com/arloliu/otukit/table"
)

// CurvePoint is the rarefied richness of one sample at one depth.
type CurvePoint struct {
	Depth        int
	RichnessMean float64
	RichnessSD   float64
}

// SampleCurve is the rarefaction curve of one sample. Depths above the
// sample's read count are absent.
type SampleCurve struct {
	SampleID string
	Total    uint64
	Points   []CurvePoint
}

// CurveResult holds the rarefaction curves of every sample.
type CurveResult struct {
	Depths  []int
	Trials  int
	Seed    uint64
	Samples []SampleCurve
}

// CurveDepths returns n depths spaced evenly from maxDepth/n up to maxDepth.
// Duplicates produced by rounding are removed.
func CurveDepths(maxDepth, n int) []int {
	if maxDepth < 1 || n < 1 {
		return nil
	}

	depths := make([]int, 0, n)
	for k := 1; k <= n; k++ {
		d := int(math.Round(float64(maxDepth) * float64(k) / float64(n)))
		if d >= 1 {
			depths = append(depths, d)
		}
	}

	return slices.Compact(depths)
}

// Curve computes rarefaction curves: the mean observed richness of every
// sample at each depth, over trials draws. A sample contributes points only
// up to its own read count, so curves of shallow samples end early.
//
// Depth d uses the seed hash.Stream(seed, d), so a point does not change
// when other depths are added to the request.
//
// Parameters:
//   - ctx: Cancels outstanding trials
//   - ds: The dataset
//   - depths: Depths to evaluate, each at least 1; sorted and deduplicated
//   - trials: Draws per depth, at least 1
//   - seed: Seed of the run
//   - opts: WithWorkers, WithLogger
func Curve(ctx context.Context, ds *table.Dataset, depths []int, trials int, seed uint64, opts ...Option) (*CurveResult, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if len(depths) == 0 {
		return nil, errs.InvalidArgument("no depths requested")
	}
	if trials < 1 {
		return nil, errs.InvalidArgument("trials must be positive, got %d", trials)
	}
	depths = slices.Compact(slices.Sorted(slices.Values(depths)))
	if depths[0] < 1 {
		return nil, errs.InvalidArgument("depth must be positive, got %d", depths[0])
	}
	if ds.NumSamples() == 0 {
		return nil, &errs.EmptySampleGroupError{Stage: "rarefaction curve", Axis: "samples"}
	}

	abund := ds.Abundance()
	res := &CurveResult{
		Depths:  depths,
		Trials:  trials,
		Seed:    seed,
		Samples: make([]SampleCurve, ds.NumSamples()),
	}
	for i := range res.Samples {
		res.Samples[i] = SampleCurve{SampleID: ds.Samples()[i], Total: abund.Total(i)}
	}

	for _, d := range depths {
		rows := make([]int, 0, ds.NumSamples())
		for i := range ds.NumSamples() {
			if abund.Total(i) >= uint64(d) {
				rows = append(rows, i)
			}
		}
		if len(rows) == 0 {
			cfg.Logger.Debug("no sample reaches depth", zap.Int("depth", d))
			break
		}

		richness, _, err := run(ctx, abund, rows, d, trials, hash.Stream(seed, uint64(d)), cfg.Workers)
		if err != nil {
			return nil, err
		}
		for s, i := range rows {
			mean, sd := meanSD(richness[s*trials : (s+1)*trials])
			res.Samples[i].Points = append(res.Samples[i].Points, CurvePoint{Depth: d, RichnessMean: mean, RichnessSD: sd})
		}
	}

	cfg.Logger.Debug("rarefaction curves computed",
		zap.Int("samples", len(res.Samples)),
		zap.Int("depths", len(depths)))

	return res, nil
}
