// Package otukit analyses amplicon (16S rRNA) OTU tables: it joins count,
// taxonomy and sample metadata tables, removes blanks and contaminants,
// collapses taxa to a rank, and estimates alpha diversity by repeated
// rarefaction.
//
// # Pipeline
//
// Data flows strictly downstream, every stage returning a new value:
//
//	Import → Filter → Aggregate            (composition per rank)
//	               └→ EstimateDiversity    (rarefied richness and evenness)
//	               └→ ordination.Distance → ordination.PCoA / NMDS / Permanova
//
// # Basic Usage
//
//	ds, err := otukit.Import("stability.shared.gz", "stability.cons.taxonomy", "mouse.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ds, err = otukit.Filter(ds,
//	    table.Not(table.MetadataEquals("type", "blank")),
//	    table.Not(table.RankEquals("Class", "Chloroplast")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	phyla, _ := otukit.Aggregate(ds, "Phylum", 0.01)
//	summary, _ := otukit.EstimateDiversity(ctx, ds, 1000, 100, 42)
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the table,
// aggregate, diversity and snapshot packages. For fine-grained control use
// those packages directly.
package otukit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arloliu/otukit/aggregate"
	"github.com/arloliu/otukit/diversity"
	"github.com/arloliu/otukit/internal/options"
	"github.com/arloliu/otukit/snapshot"
	"github.com/arloliu/otukit/table"
)

// ImportConfig holds the settings of Import.
type ImportConfig struct {
	// Label selects the rows of a mothur shared file.
	Label string
	// IDColumn names the sample id column of the metadata file.
	IDColumn string
	// Ranks names the levels of semicolon-delimited classifications.
	Ranks []string
	// InnerJoin keeps the intersection of the tables instead of failing on
	// mismatched identifiers.
	InnerJoin bool
	Logger    *zap.Logger
}

// ImportOption is a functional option for ImportConfig.
type ImportOption = options.Option[*ImportConfig]

// WithLabel selects the OTU definition of a mothur shared file, e.g. "0.03".
func WithLabel(label string) ImportOption {
	return options.NoError(func(cfg *ImportConfig) {
		cfg.Label = label
	})
}

// WithIDColumn names the sample id column of the metadata file.
func WithIDColumn(name string) ImportOption {
	return options.NoError(func(cfg *ImportConfig) {
		cfg.IDColumn = name
	})
}

// WithRanks sets the rank names of semicolon-delimited classifications.
func WithRanks(ranks ...string) ImportOption {
	return options.NoError(func(cfg *ImportConfig) {
		cfg.Ranks = ranks
	})
}

// WithInnerJoin joins the tables on their common identifiers, logging the
// dropped ones.
func WithInnerJoin() ImportOption {
	return options.NoError(func(cfg *ImportConfig) {
		cfg.InnerJoin = true
	})
}

// WithLogger sets the logger used by Import.
func WithLogger(logger *zap.Logger) ImportOption {
	return options.NoError(func(cfg *ImportConfig) {
		if logger != nil {
			cfg.Logger = logger
		}
	})
}

// Import reads the abundance, taxonomy and metadata files and joins them
// into a Dataset. Files ending in .gz, .zst, .s2 or .lz4 are decompressed.
//
// Parameters:
//   - abundancePath: Sample × taxon counts (generic table or mothur shared)
//   - taxonomyPath: Taxon classifications
//   - metadataPath: Sample attributes
//   - opts: WithLabel, WithIDColumn, WithRanks, WithInnerJoin, WithLogger
//
// Returns:
//   - *table.Dataset: The joined dataset
//   - error: *errs.MalformedInputError for unreadable files or identifier
//     sets that do not match
func Import(abundancePath, taxonomyPath, metadataPath string, opts ...ImportOption) (*table.Dataset, error) {
	cfg := &ImportConfig{Logger: zap.NewNop()}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	readOpts := make([]table.ReadOption, 0, 3)
	if cfg.Label != "" {
		readOpts = append(readOpts, table.WithLabel(cfg.Label))
	}
	if cfg.IDColumn != "" {
		readOpts = append(readOpts, table.WithIDColumn(cfg.IDColumn))
	}
	if len(cfg.Ranks) > 0 {
		readOpts = append(readOpts, table.WithRanks(cfg.Ranks...))
	}

	abund, err := table.OpenAbundance(abundancePath, readOpts...)
	if err != nil {
		return nil, err
	}
	tax, err := table.OpenTaxonomy(taxonomyPath, readOpts...)
	if err != nil {
		return nil, err
	}
	meta, err := table.OpenMetadata(metadataPath, readOpts...)
	if err != nil {
		return nil, err
	}

	mergeOpts := []table.MergeOption{table.WithMergeLogger(cfg.Logger)}
	if cfg.InnerJoin {
		mergeOpts = append(mergeOpts, table.WithInnerJoin())
	}
	ds, err := table.Merge(abund, tax, meta, mergeOpts...)
	if err != nil {
		return nil, err
	}

	cfg.Logger.Debug("dataset imported",
		zap.Int("samples", ds.NumSamples()),
		zap.Int("taxa", ds.NumTaxa()))

	return ds, nil
}

// Filter keeps the samples and taxa accepted by every predicate and then
// drops taxa left without reads.
func Filter(ds *table.Dataset, preds ...table.Predicate) (*table.Dataset, error) {
	filtered, err := ds.Filter(preds...)
	if err != nil {
		return nil, err
	}

	return filtered.DropEmptyTaxa()
}

// Aggregate collapses ds to rank and returns relative abundances in long
// form, dropping rows below prune.
func Aggregate(ds *table.Dataset, rank string, prune float64, opts ...aggregate.Option) (*aggregate.LongTable, error) {
	return aggregate.Aggregate(ds, rank, prune, opts...)
}

// EstimateDiversity rarefies every sample to depth reads, trials times, and
// summarises richness and inverse Simpson evenness.
func EstimateDiversity(ctx context.Context, ds *table.Dataset, depth, trials int, seed uint64, opts ...diversity.Option) (*diversity.Summary, error) {
	return diversity.Estimate(ctx, ds, depth, trials, seed, opts...)
}

// SaveDataset writes ds to a snapshot file for later runs.
func SaveDataset(path string, ds *table.Dataset, opts ...snapshot.Option) error {
	if err := snapshot.Save(path, ds, opts...); err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}

	return nil
}

// LoadDataset reads a snapshot written by SaveDataset.
func LoadDataset(path string) (*table.Dataset, error) {
	ds, err := snapshot.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	return ds, nil
}
