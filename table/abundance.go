package table

import (
	"errors"
	"fmt"

	"github.com/arloliu/otukit/errs"
	"github.com/arloliu/otukit/internal/collision"
)

// AbundanceTable is a sample × taxon matrix of read counts.
//
// Counts are stored row-major in a single backing slice: the counts of
// sample i occupy counts[i*numTaxa : (i+1)*numTaxa]. Row totals are computed
// once at construction.
type AbundanceTable struct {
	samples     []string
	taxa        []string
	counts      []uint64
	totals      []uint64
	sampleIndex map[string]int
	taxonIndex  map[string]int
}

// NewAbundanceTable builds an abundance table from sample ids, taxon ids and
// one count row per sample.
//
// Parameters:
//   - samples: Sample identifiers, unique and non-empty
//   - taxa: Taxon identifiers, unique and non-empty
//   - rows: rows[i][j] is the read count of taxa[j] in samples[i]
//
// Returns:
//   - *AbundanceTable: The table, which keeps its own copy of every input
//   - error: A *errs.MalformedInputError for duplicate or empty identifiers
//     or ragged rows
func NewAbundanceTable(samples, taxa []string, rows [][]uint64) (*AbundanceTable, error) {
	if len(rows) != len(samples) {
		return nil, errs.Malformed("", fmt.Sprintf("%d count rows for %d samples", len(rows), len(samples)))
	}

	counts := make([]uint64, 0, len(samples)*len(taxa))
	for i, row := range rows {
		if len(row) != len(taxa) {
			return nil, errs.Malformed("", fmt.Sprintf("row has %d counts, expected %d", len(row), len(taxa)), samples[i])
		}
		counts = append(counts, row...)
	}

	return newAbundanceTable("", cloneStrings(samples), cloneStrings(taxa), counts)
}

// newAbundanceTable takes ownership of its arguments.
func newAbundanceTable(source string, samples, taxa []string, counts []uint64) (*AbundanceTable, error) {
	sampleIndex, err := indexIDs(source, "sample", samples)
	if err != nil {
		return nil, err
	}
	taxonIndex, err := indexIDs(source, "taxon", taxa)
	if err != nil {
		return nil, err
	}

	t := &AbundanceTable{
		samples:     samples,
		taxa:        taxa,
		counts:      counts,
		totals:      make([]uint64, len(samples)),
		sampleIndex: sampleIndex,
		taxonIndex:  taxonIndex,
	}
	for i := range samples {
		var total uint64
		for _, c := range t.Row(i) {
			total += c
		}
		t.totals[i] = total
	}

	return t, nil
}

// indexIDs maps each identifier to its position, rejecting duplicates and
// blanks with a MalformedInputError.
func indexIDs(source, axis string, ids []string) (map[string]int, error) {
	tracker := collision.NewTracker(len(ids))
	for _, id := range ids {
		if err := tracker.Track(id); err != nil {
			reason := "duplicate " + axis + " id"
			if errors.Is(err, errs.ErrEmptyID) {
				reason = "empty " + axis + " id"
			}

			return nil, &errs.MalformedInputError{Source: source, Reason: reason, IDs: []string{id}, Err: err}
		}
	}

	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	return index, nil
}

// NumSamples returns the number of samples (rows).
func (t *AbundanceTable) NumSamples() int {
	return len(t.samples)
}

// NumTaxa returns the number of taxa (columns).
func (t *AbundanceTable) NumTaxa() int {
	return len(t.taxa)
}

// Samples returns the sample ids in row order. The slice must not be modified.
func (t *AbundanceTable) Samples() []string {
	return t.samples
}

// Taxa returns the taxon ids in column order. The slice must not be modified.
func (t *AbundanceTable) Taxa() []string {
	return t.taxa
}

// SampleIndex returns the row of sample id.
func (t *AbundanceTable) SampleIndex(id string) (int, bool) {
	i, ok := t.sampleIndex[id]
	return i, ok
}

// TaxonIndex returns the column of taxon id.
func (t *AbundanceTable) TaxonIndex(id string) (int, bool) {
	j, ok := t.taxonIndex[id]
	return j, ok
}

// Count returns the read count of taxon j in sample i.
func (t *AbundanceTable) Count(i, j int) uint64 {
	return t.counts[i*len(t.taxa)+j]
}

// Row returns the counts of sample i. The slice aliases the table's storage
// and must not be modified.
func (t *AbundanceTable) Row(i int) []uint64 {
	n := len(t.taxa)
	return t.counts[i*n : (i+1)*n : (i+1)*n]
}

// Total returns the total read count of sample i.
func (t *AbundanceTable) Total(i int) uint64 {
	return t.totals[i]
}

// TaxonTotal returns the read count of taxon j summed over all samples.
func (t *AbundanceTable) TaxonTotal(j int) uint64 {
	var total uint64
	for i := range t.samples {
		total += t.Count(i, j)
	}

	return total
}

// subset returns a new table restricted to the given rows and columns, in
// the given order.
func (t *AbundanceTable) subset(rows, cols []int) *AbundanceTable {
	samples := make([]string, len(rows))
	taxa := make([]string, len(cols))
	counts := make([]uint64, 0, len(rows)*len(cols))

	for k, j := range cols {
		taxa[k] = t.taxa[j]
	}
	for k, i := range rows {
		samples[k] = t.samples[i]
		row := t.Row(i)
		for _, j := range cols {
			counts = append(counts, row[j])
		}
	}

	// ids come from a valid table, so indexing cannot fail
	sub, _ := newAbundanceTable("", samples, taxa, counts)

	return sub
}

func cloneStrings(s []string) []string {
	return append([]string(nil), s...)
}

func seq(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	return idx
}
