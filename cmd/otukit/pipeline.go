package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/arloliu/otukit"
	"github.com/arloliu/otukit/aggregate"
	"github.com/arloliu/otukit/curvefit"
	"github.com/arloliu/otukit/diversity"
	"github.com/arloliu/otukit/internal/config"
	"github.com/arloliu/otukit/ordination"
	"github.com/arloliu/otukit/report"
	"github.com/arloliu/otukit/table"
)

const defaultCurvePoints = 20

// loadDataset reads the snapshot or the three input tables and applies the
// configured filters.
func loadDataset(cfg *config.Config) (*table.Dataset, error) {
	var (
		ds  *table.Dataset
		err error
	)
	if cfg.Input.Snapshot != "" {
		ds, err = otukit.LoadDataset(cfg.Input.Snapshot)
	} else {
		if cfg.Input.Abundance == "" || cfg.Input.Taxonomy == "" || cfg.Input.Metadata == "" {
			return nil, fmt.Errorf("no input: set --snapshot or --abundance, --taxonomy and --metadata")
		}
		opts := []otukit.ImportOption{otukit.WithLogger(logger)}
		if cfg.Input.Label != "" {
			opts = append(opts, otukit.WithLabel(cfg.Input.Label))
		}
		if cfg.Input.IDColumn != "" {
			opts = append(opts, otukit.WithIDColumn(cfg.Input.IDColumn))
		}
		if cfg.Input.InnerJoin {
			opts = append(opts, otukit.WithInnerJoin())
		}
		ds, err = otukit.Import(cfg.Input.Abundance, cfg.Input.Taxonomy, cfg.Input.Metadata, opts...)
	}
	if err != nil {
		return nil, err
	}

	if preds := cfg.Filter.Predicates(); len(preds) > 0 {
		if ds, err = ds.Filter(preds...); err != nil {
			return nil, err
		}
	}
	if cfg.Filter.DropEmptyTaxa {
		if ds, err = ds.DropEmptyTaxa(); err != nil {
			return nil, err
		}
	}

	logger.Info("dataset loaded",
		zap.Int("samples", ds.NumSamples()),
		zap.Int("taxa", ds.NumTaxa()))

	return ds, nil
}

// writeReport writes one report into the output directory.
func writeReport(cfg *config.Config, name string, write func(w io.Writer) error) error {
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := cfg.Output.ReportPath(name)
	if err := report.WriteFile(path, write); err != nil {
		return err
	}
	logger.Info("report written", zap.String("path", path))

	return nil
}

func stageAggregate(ds *table.Dataset, cfg *config.Config) error {
	opts := []aggregate.Option{aggregate.WithLogger(logger)}
	if cfg.Aggregate.Other != "" {
		opts = append(opts, aggregate.WithOtherBucket(cfg.Aggregate.Other))
	}
	lt, err := otukit.Aggregate(ds, cfg.Aggregate.Rank, cfg.Aggregate.Prune, opts...)
	if err != nil {
		return err
	}

	name := "composition_" + strings.ToLower(lt.Rank) + ".tsv"

	return writeReport(cfg, name, func(w io.Writer) error {
		return report.WriteLongTable(w, lt)
	})
}

func diversityOptions(cfg *config.Config) []diversity.Option {
	opts := []diversity.Option{diversity.WithLogger(logger)}
	if cfg.Diversity.Workers > 0 {
		opts = append(opts, diversity.WithWorkers(cfg.Diversity.Workers))
	}
	if cfg.Diversity.DropShallow {
		opts = append(opts, diversity.WithDropShallow())
	}

	return opts
}

func stageDiversity(ctx context.Context, ds *table.Dataset, cfg *config.Config) error {
	d := cfg.Diversity
	summary, err := otukit.EstimateDiversity(ctx, ds, d.Depth, d.Trials, d.Seed, diversityOptions(cfg)...)
	if err != nil {
		return err
	}

	return writeReport(cfg, "diversity.tsv", func(w io.Writer) error {
		return report.WriteSummary(w, summary)
	})
}

// stageCurve computes rarefaction curves up to the deepest sample and fits
// a saturation model to each.
func stageCurve(ctx context.Context, ds *table.Dataset, cfg *config.Config) error {
	points := cfg.Diversity.CurvePoints
	if points <= 0 {
		points = defaultCurvePoints
	}
	var deepest uint64
	for i := range ds.NumSamples() {
		deepest = max(deepest, ds.Abundance().Total(i))
	}
	depths := diversity.CurveDepths(int(deepest), points) //nolint:gosec
	if len(depths) == 0 {
		return fmt.Errorf("no sample has reads")
	}

	curves, err := diversity.Curve(ctx, ds, depths, cfg.Diversity.Trials, cfg.Diversity.Seed, diversityOptions(cfg)...)
	if err != nil {
		return err
	}
	fits, err := curvefit.FitCurves(curves, curvefit.WithLogger(logger))
	if err != nil {
		return err
	}

	if err := writeReport(cfg, "curves.tsv", func(w io.Writer) error {
		return report.WriteCurves(w, curves)
	}); err != nil {
		return err
	}

	return writeReport(cfg, "curve_fits.tsv", func(w io.Writer) error {
		return report.WriteCurveFits(w, fits)
	})
}

func distanceMatrix(ds *table.Dataset, cfg *config.Config) (*ordination.DistanceMatrix, error) {
	metric, err := ordination.ParseMetric(cfg.Ordination.Metric)
	if err != nil {
		return nil, err
	}
	opts := []ordination.Option{ordination.WithLogger(logger)}
	if cfg.Ordination.Relative {
		opts = append(opts, ordination.WithRelative())
	}

	return ordination.Distance(ds, metric, opts...)
}

func stageOrdinate(ds *table.Dataset, cfg *config.Config) error {
	dm, err := distanceMatrix(ds, cfg)
	if err != nil {
		return err
	}

	o := cfg.Ordination
	var ord *ordination.Ordination
	switch strings.ToLower(o.Method) {
	case "nmds":
		ord, err = ordination.NMDS(dm, o.Dims,
			ordination.WithSeed(cfg.Diversity.Seed),
			ordination.WithLogger(logger))
	default:
		ord, err = ordination.PCoA(dm, o.Dims)
	}
	if err != nil {
		return err
	}

	var groups []string
	if o.GroupField != "" {
		if groups, err = ds.Labels(o.GroupField); err != nil {
			return err
		}
	}

	if err := writeReport(cfg, "distance.tsv", func(w io.Writer) error {
		return report.WriteDistanceMatrix(w, dm)
	}); err != nil {
		return err
	}
	if err := writeReport(cfg, "ordination.tsv", func(w io.Writer) error {
		return report.WriteOrdination(w, ord, o.GroupField, groups)
	}); err != nil {
		return err
	}

	return writeReport(cfg, "axes.tsv", func(w io.Writer) error {
		return report.WriteAxes(w, ord)
	})
}

func stagePermanova(ds *table.Dataset, cfg *config.Config) error {
	o := cfg.Ordination
	if o.GroupField == "" {
		return fmt.Errorf("permanova needs a group field")
	}
	groups, err := ds.Labels(o.GroupField)
	if err != nil {
		return err
	}
	dm, err := distanceMatrix(ds, cfg)
	if err != nil {
		return err
	}

	res, err := ordination.Permanova(dm, groups,
		ordination.WithPermutations(o.Permutations),
		ordination.WithSeed(cfg.Diversity.Seed),
		ordination.WithLogger(logger))
	if err != nil {
		return err
	}
	logger.Info("permanova",
		zap.String("field", o.GroupField),
		zap.Float64("F", res.F),
		zap.Float64("R2", res.R2),
		zap.Float64("p", res.PValue))

	return writeReport(cfg, "permanova.tsv", func(w io.Writer) error {
		return report.WritePermanova(w, res)
	})
}

// runPipeline runs every stage the run file enables.
func runPipeline(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ds, err := loadDataset(cfg)
	if err != nil {
		return err
	}

	if err := stageAggregate(ds, cfg); err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	if err := stageDiversity(ctx, ds, cfg); err != nil {
		return fmt.Errorf("diversity: %w", err)
	}
	if cfg.Diversity.CurvePoints > 0 {
		if err := stageCurve(ctx, ds, cfg); err != nil {
			return fmt.Errorf("rarefaction curve: %w", err)
		}
	}
	if ds.NumSamples() > cfg.Ordination.Dims {
		if err := stageOrdinate(ds, cfg); err != nil {
			return fmt.Errorf("ordination: %w", err)
		}
	} else {
		logger.Warn("too few samples for ordination",
			zap.Int("samples", ds.NumSamples()),
			zap.Int("dims", cfg.Ordination.Dims))
	}
	if cfg.Ordination.GroupField != "" {
		if err := stagePermanova(ds, cfg); err != nil {
			return fmt.Errorf("permanova: %w", err)
		}
	}

	return nil
}
