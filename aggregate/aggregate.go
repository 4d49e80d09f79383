// Package aggregate collapses a dataset to a taxonomic rank and melts it
// into long (sample, taxon, relative abundance) rows, the shape expected by
// stacked-bar composition plots.
package aggregate

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"github.com/arloliu/otukit/errs"
	"github.com/arloliu/otukit/internal/options"
	"github.com/arloliu/otukit/table"
)

// Row is one (sample, taxon) cell of a LongTable.
type Row struct {
	SampleID string
	// Taxon is the label at the aggregation rank, table.Unassigned for
	// unclassified taxa, or the Other label for pooled pruned rows.
	Taxon string
	// Count is the summed read count of the taxa sharing the label.
	Count uint64
	// Abundance is Count divided by the sample's total read count.
	Abundance float64
	// Metadata holds the sample's attributes in LongTable.Fields order.
	Metadata []string
}

// LongTable is the melted result of Aggregate.
type LongTable struct {
	// Rank is the rank the taxa were collapsed to.
	Rank string
	// Fields names the metadata columns carried by every row.
	Fields []string
	Rows   []Row
}

// Config holds aggregation parameters.
type Config struct {
	// OtherLabel, when non-empty, pools the pruned rows of each sample into
	// one row with this label instead of dropping them.
	OtherLabel string
	Logger     *zap.Logger
}

// Option is a functional option for Config.
type Option = options.Option[*Config]

// WithOtherBucket pools the rows below the prune threshold into a single
// row per sample labelled label. When a group above the threshold already
// has that label, the pooled reads are added to its row.
func WithOtherBucket(label string) Option {
	return options.New(func(cfg *Config) error {
		if label == "" {
			return errs.InvalidArgument("other bucket label must not be empty")
		}
		cfg.OtherLabel = label

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return options.NoError(func(cfg *Config) {
		if logger != nil {
			cfg.Logger = logger
		}
	})
}

// Aggregate groups the taxa of ds that share a label at rank, converts the
// group counts of every sample to relative abundance and returns them as
// long rows.
//
// Rows whose relative abundance is below prune are dropped, unless
// WithOtherBucket pools them. Before pruning, the abundances of every sample
// with reads sum to 1. Samples without reads produce no rows.
//
// Rows are ordered by the sample order of ds, then by descending abundance,
// then by label.
//
// Parameters:
//   - ds: The dataset to aggregate
//   - rank: Rank name, matched case-insensitively (e.g. "Phylum")
//   - prune: Relative abundance threshold in [0, 1); 0 keeps every row
//   - opts: WithOtherBucket, WithLogger
//
// Returns:
//   - *LongTable: The melted table
//   - error: *errs.UnknownRankError for an unknown rank; ErrInvalidArgument
//     for a threshold outside [0, 1)
func Aggregate(ds *table.Dataset, rank string, prune float64, opts ...Option) (*LongTable, error) {
	if !(prune >= 0 && prune < 1) {
		return nil, errs.InvalidArgument("prune threshold %v outside [0, 1)", prune)
	}

	cfg := &Config{Logger: zap.NewNop()}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	tax := ds.Taxonomy()
	k, err := tax.RankIndex(rank)
	if err != nil {
		return nil, err
	}

	groups, labels := groupTaxa(tax, k)

	abund := ds.Abundance()
	meta := ds.Metadata()
	out := &LongTable{
		Rank:   tax.Ranks()[k],
		Fields: meta.Fields(),
	}

	sums := make([]uint64, len(labels))
	for i := range ds.NumSamples() {
		total := abund.Total(i)
		if total == 0 {
			cfg.Logger.Debug("sample has no reads, skipping", zap.String("sample", ds.Samples()[i]))
			continue
		}

		clear(sums)
		for j, c := range abund.Row(i) {
			sums[groups[j]] += c
		}

		rows := make([]Row, 0, len(labels))
		var other uint64
		for g, c := range sums {
			if c == 0 {
				continue
			}
			rel := float64(c) / float64(total)
			if rel < prune {
				other += c
				continue
			}
			rows = append(rows, Row{
				SampleID:  ds.Samples()[i],
				Taxon:     labels[g],
				Count:     c,
				Abundance: rel,
				Metadata:  meta.Values(i),
			})
		}
		if other > 0 && cfg.OtherLabel != "" {
			// a kept group carrying the bucket label absorbs the pooled reads
			if r := slices.IndexFunc(rows, func(row Row) bool { return row.Taxon == cfg.OtherLabel }); r >= 0 {
				rows[r].Count += other
				rows[r].Abundance = float64(rows[r].Count) / float64(total)
			} else {
				rows = append(rows, Row{
					SampleID:  ds.Samples()[i],
					Taxon:     cfg.OtherLabel,
					Count:     other,
					Abundance: float64(other) / float64(total),
					Metadata:  meta.Values(i),
				})
			}
		}

		slices.SortFunc(rows, func(a, b Row) int {
			if c := cmp.Compare(b.Abundance, a.Abundance); c != 0 {
				return c
			}

			return cmp.Compare(a.Taxon, b.Taxon)
		})
		out.Rows = append(out.Rows, rows...)
	}

	cfg.Logger.Debug("aggregated dataset",
		zap.String("rank", out.Rank),
		zap.Int("groups", len(labels)),
		zap.Int("rows", len(out.Rows)),
		zap.Float64("prune", prune))

	return out, nil
}

// groupTaxa assigns every taxon to the group of its label at rank k. Group
// ids follow the first appearance of each label.
func groupTaxa(tax *table.TaxonomyTable, k int) ([]int, []string) {
	groups := make([]int, tax.NumTaxa())
	index := make(map[string]int)
	var labels []string
	for j := range groups {
		label := tax.Label(j, k)
		g, ok := index[label]
		if !ok {
			g = len(labels)
			index[label] = g
			labels = append(labels, label)
		}
		groups[j] = g
	}

	return groups, labels
}

// Taxa returns the distinct taxon labels of the table in order of first
// appearance.
func (t *LongTable) Taxa() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.Rows {
		if _, ok := seen[r.Taxon]; !ok {
			seen[r.Taxon] = struct{}{}
			out = append(out, r.Taxon)
		}
	}

	return out
}

// SampleTotal returns the summed abundance of the rows of sample id.
func (t *LongTable) SampleTotal(id string) float64 {
	var sum float64
	for _, r := range t.Rows {
		if r.SampleID == id {
			sum += r.Abundance
		}
	}

	return sum
}
