// Package diversity estimates alpha diversity by repeated rarefaction.
//
// Samples sequenced to different depths cannot be compared directly: a
// deeper sample observes more taxa simply because more reads were drawn.
// Estimate subsamples every sample to a common depth T times and reports
// the mean and sample standard deviation of observed richness and of the
// inverse Simpson index over the trials.
//
// # Determinism
//
// Every trial owns a PCG generator (math/rand/v2) seeded with the run seed
// and an xxHash64 mix of the seed and the trial index. Trials run
// concurrently, but each writes only its own result slot and the summary is
// reduced in trial order afterwards, so a given (seed, depth, trials)
// always yields a bit-identical Summary regardless of WithWorkers.
//
// Example:
//
//	summary, err := diversity.Estimate(ctx, ds, 1000, 100, 42)
//	if err != nil {
//	    return err
//	}
//	for _, s := range summary.Samples {
//	    fmt.Printf("%s richness %.1f ± %.1f\n", s.SampleID, s.RichnessMean, s.RichnessSD)
//	}
package diversity

import (
	"context"
	"math/rand/v2"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/arloliu/otukit/errs"
	"github.com/arloliu/otukit/internal/hash"
	"github.com/arloliu/otukit/internal/options"
	"github.com/arloliu/otukit/internal/pool"
	"github.com/arloliu/otukit/table"
)

// SampleSummary holds the rarefied diversity of one sample.
type SampleSummary struct {
	SampleID     string
	RichnessMean float64
	RichnessSD   float64
	EvennessMean float64
	EvennessSD   float64
}

// Summary is the result of Estimate.
type Summary struct {
	Depth  int
	Trials int
	Seed   uint64
	// Samples follows the sample order of the dataset.
	Samples []SampleSummary
	// Dropped lists samples excluded by WithDropShallow.
	Dropped []string
}

// Sample returns the summary of sample id.
func (s *Summary) Sample(id string) (SampleSummary, bool) {
	for _, ss := range s.Samples {
		if ss.SampleID == id {
			return ss, true
		}
	}

	return SampleSummary{}, false
}

// Estimate rarefies every sample of ds to depth reads, trials times, and
// summarises richness and inverse Simpson evenness per sample.
//
// The standard deviations use the n-1 denominator; with a single trial they
// are 0. ds is not modified.
//
// Parameters:
//   - ctx: Cancels outstanding trials
//   - ds: The dataset
//   - depth: Reads drawn per sample and trial, at least 1
//   - trials: Number of resampling trials, at least 1
//   - seed: Seed of the run
//   - opts: WithWorkers, WithDropShallow, WithLogger
//
// Returns:
//   - *Summary: Per-sample means and standard deviations
//   - error: ErrInvalidArgument for depth or trials below 1;
//     *errs.InsufficientDepthError for a sample with fewer than depth reads;
//     *errs.EmptySampleGroupError when no sample is left; ctx.Err() on
//     cancellation
func Estimate(ctx context.Context, ds *table.Dataset, depth, trials int, seed uint64, opts ...Option) (*Summary, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if depth < 1 {
		return nil, errs.InvalidArgument("depth must be positive, got %d", depth)
	}
	if trials < 1 {
		return nil, errs.InvalidArgument("trials must be positive, got %d", trials)
	}

	rows, dropped, err := eligibleRows(ds, depth, cfg)
	if err != nil {
		return nil, err
	}

	cfg.Logger.Debug("rarefaction started",
		zap.Int("samples", len(rows)),
		zap.Int("depth", depth),
		zap.Int("trials", trials),
		zap.Uint64("seed", seed),
		zap.Int("workers", cfg.Workers))

	richness, evenness, err := run(ctx, ds.Abundance(), rows, depth, trials, seed, cfg.Workers)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Depth:   depth,
		Trials:  trials,
		Seed:    seed,
		Samples: make([]SampleSummary, len(rows)),
		Dropped: dropped,
	}
	for s, i := range rows {
		ss := &summary.Samples[s]
		ss.SampleID = ds.Samples()[i]
		ss.RichnessMean, ss.RichnessSD = meanSD(richness[s*trials : (s+1)*trials])
		ss.EvennessMean, ss.EvennessSD = meanSD(evenness[s*trials : (s+1)*trials])
	}

	cfg.Logger.Debug("rarefaction finished", zap.Int("samples", len(summary.Samples)))

	return summary, nil
}

// eligibleRows returns the rows of samples with at least depth reads.
func eligibleRows(ds *table.Dataset, depth int, cfg *Config) ([]int, []string, error) {
	if ds.NumSamples() == 0 {
		return nil, nil, &errs.EmptySampleGroupError{Stage: "rarefaction", Axis: "samples"}
	}

	abund := ds.Abundance()
	rows := make([]int, 0, ds.NumSamples())
	var dropped []string
	for i := range ds.NumSamples() {
		if total := abund.Total(i); total < uint64(depth) {
			if !cfg.DropShallow {
				return nil, nil, &errs.InsufficientDepthError{SampleID: ds.Samples()[i], Total: total, Depth: depth}
			}
			dropped = append(dropped, ds.Samples()[i])

			continue
		}
		rows = append(rows, i)
	}

	if len(dropped) > 0 {
		cfg.Logger.Warn("dropping samples below rarefaction depth",
			zap.Int("depth", depth),
			zap.Strings("samples", dropped))
	}
	if len(rows) == 0 {
		return nil, nil, &errs.EmptySampleGroupError{Stage: "rarefaction", Axis: "samples"}
	}

	return rows, dropped, nil
}

// run executes the trials and returns richness and evenness laid out
// sample-major: value of sample slot s in trial t is at s*trials+t.
func run(ctx context.Context, abund *table.AbundanceTable, rows []int, depth, trials int, seed uint64, workers int) ([]float64, []float64, error) {
	nTaxa := abund.NumTaxa()

	cums := make([][]uint64, len(rows))
	for s, i := range rows {
		cums[s] = cumulative(abund.Row(i), make([]uint64, nTaxa))
	}

	richness := make([]float64, len(rows)*trials)
	evenness := make([]float64, len(rows)*trials)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for t := range trials {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seed, hash.Stream(seed, uint64(t)))) //nolint:gosec

			counts, cleanup := pool.GetCountSlice(nTaxa)
			defer cleanup()

			for s, cum := range cums {
				if err := gctx.Err(); err != nil {
					return err
				}
				clear(counts)
				rarefyInto(cum, depth, rng, counts)
				richness[s*trials+t] = float64(Richness(counts))
				evenness[s*trials+t] = InverseSimpson(counts)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	return richness, evenness, nil
}

// meanSD returns the mean and the n-1 standard deviation of x; the standard
// deviation of a single value is 0.
func meanSD(x []float64) (float64, float64) {
	if len(x) == 1 {
		return x[0], 0
	}

	return stat.MeanStdDev(x, nil)
}
