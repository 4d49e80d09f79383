package table

import (
	"go.uber.org/zap"

	"github.com/arloliu/otukit/errs"
	"github.com/arloliu/otukit/internal/options"
)

// Dataset is the merged view of an abundance table, its taxonomy and the
// sample metadata. The three tables are aligned: row i of Abundance is
// record i of Metadata and column j of Abundance is lineage j of Taxonomy.
type Dataset struct {
	abundance *AbundanceTable
	taxonomy  *TaxonomyTable
	metadata  *MetadataTable
}

// MergeConfig controls how Merge treats identifiers present in only some of
// the tables.
type MergeConfig struct {
	// InnerJoin keeps the intersection of the identifier sets instead of
	// rejecting a mismatch.
	InnerJoin bool
	Logger    *zap.Logger
}

// MergeOption is a functional option for MergeConfig.
type MergeOption = options.Option[*MergeConfig]

// WithInnerJoin makes Merge keep only the samples found in both the
// abundance and metadata tables and only the taxa found in both the
// abundance and taxonomy tables. Dropped identifiers are logged at Warn.
func WithInnerJoin() MergeOption {
	return options.NoError(func(cfg *MergeConfig) {
		cfg.InnerJoin = true
	})
}

// WithMergeLogger sets the logger used to report dropped identifiers.
func WithMergeLogger(logger *zap.Logger) MergeOption {
	return options.NoError(func(cfg *MergeConfig) {
		if logger != nil {
			cfg.Logger = logger
		}
	})
}

// Merge joins abundance, taxonomy and metadata on sample id and taxon id.
//
// By default the identifier sets must agree: every abundance sample must
// have a metadata record and vice versa, and every abundance taxon must be
// classified. Taxonomy entries for taxa absent from the abundance table are
// ignored. With WithInnerJoin the intersection is kept instead.
//
// Row order follows the abundance table in both modes.
//
// Parameters:
//   - abundance: The count table
//   - taxonomy: Classification of the abundance taxa
//   - metadata: Sample attributes
//   - opts: WithInnerJoin, WithMergeLogger
//
// Returns:
//   - *Dataset: The aligned dataset
//   - error: *errs.MalformedInputError on an identifier mismatch in strict
//     mode; *errs.EmptySampleGroupError if the inner join leaves nothing
func Merge(abundance *AbundanceTable, taxonomy *TaxonomyTable, metadata *MetadataTable, opts ...MergeOption) (*Dataset, error) {
	cfg := &MergeConfig{Logger: zap.NewNop()}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	rows, missingMeta := joinIndex(abundance.Samples(), metadata.SampleIndex)
	metaRows := make([]int, len(rows))
	for k, i := range rows {
		metaRows[k], _ = metadata.SampleIndex(abundance.Samples()[i])
	}
	var extraMeta []string
	for _, id := range metadata.Samples() {
		if _, ok := abundance.SampleIndex(id); !ok {
			extraMeta = append(extraMeta, id)
		}
	}

	cols, unclassified := joinIndex(abundance.Taxa(), taxonomy.TaxonIndex)
	taxRows := make([]int, len(cols))
	for k, j := range cols {
		taxRows[k], _ = taxonomy.TaxonIndex(abundance.Taxa()[j])
	}

	if !cfg.InnerJoin {
		switch {
		case len(missingMeta) > 0:
			return nil, errs.Malformed("metadata", "samples without metadata", missingMeta...)
		case len(extraMeta) > 0:
			return nil, errs.Malformed("metadata", "metadata for samples absent from abundance table", extraMeta...)
		case len(unclassified) > 0:
			return nil, errs.Malformed("taxonomy", "taxa without classification", unclassified...)
		}
	} else {
		if len(missingMeta)+len(extraMeta) > 0 {
			cfg.Logger.Warn("dropping samples not present in both abundance and metadata",
				zap.Strings("without_metadata", missingMeta),
				zap.Strings("without_counts", extraMeta))
		}
		if len(unclassified) > 0 {
			cfg.Logger.Warn("dropping unclassified taxa", zap.Strings("taxa", unclassified))
		}
	}

	if len(rows) == 0 {
		return nil, &errs.EmptySampleGroupError{Stage: "merge", Axis: "samples"}
	}
	if len(cols) == 0 {
		return nil, &errs.EmptySampleGroupError{Stage: "merge", Axis: "taxa"}
	}

	ds := &Dataset{
		abundance: abundance.subset(rows, cols),
		taxonomy:  taxonomy.subset(taxRows),
		metadata:  metadata.subset(metaRows),
	}
	cfg.Logger.Debug("merged dataset",
		zap.Int("samples", ds.NumSamples()),
		zap.Int("taxa", ds.NumTaxa()))

	return ds, nil
}

// joinIndex returns the positions of ids found by lookup and the ids that
// were not found.
func joinIndex(ids []string, lookup func(string) (int, bool)) ([]int, []string) {
	found := make([]int, 0, len(ids))
	var missing []string
	for i, id := range ids {
		if _, ok := lookup(id); ok {
			found = append(found, i)
		} else {
			missing = append(missing, id)
		}
	}

	return found, missing
}

// Abundance returns the count table.
func (ds *Dataset) Abundance() *AbundanceTable {
	return ds.abundance
}

// Taxonomy returns the taxonomy, aligned with the abundance columns.
func (ds *Dataset) Taxonomy() *TaxonomyTable {
	return ds.taxonomy
}

// Metadata returns the metadata, aligned with the abundance rows.
func (ds *Dataset) Metadata() *MetadataTable {
	return ds.metadata
}

// NumSamples returns the number of samples.
func (ds *Dataset) NumSamples() int {
	return ds.abundance.NumSamples()
}

// NumTaxa returns the number of taxa.
func (ds *Dataset) NumTaxa() int {
	return ds.abundance.NumTaxa()
}

// Samples returns the sample ids. The slice must not be modified.
func (ds *Dataset) Samples() []string {
	return ds.abundance.Samples()
}

// Taxa returns the taxon ids. The slice must not be modified.
func (ds *Dataset) Taxa() []string {
	return ds.abundance.Taxa()
}

// Subset returns a dataset restricted to the given sample rows and taxon
// columns, in the given order. Indices must be valid and distinct.
func (ds *Dataset) Subset(rows, cols []int) *Dataset {
	return &Dataset{
		abundance: ds.abundance.subset(rows, cols),
		taxonomy:  ds.taxonomy.subset(cols),
		metadata:  ds.metadata.subset(rows),
	}
}
