package table

import (
	"fmt"
	"strings"

	"github.com/arloliu/otukit/errs"
)

// Unassigned is the label reported for a taxon that has no classification
// at the requested rank. ReadTaxonomy maps classifier placeholders such as
// "unclassified" or "Bacteria_unclassified" to it.
const Unassigned = "Unassigned"

// DefaultRanks are the rank names assumed for semicolon-delimited
// classifications when no rank names are supplied.
var DefaultRanks = []string{"Kingdom", "Phylum", "Class", "Order", "Family", "Genus", "Species"}

// TaxonomyTable maps taxon ids to their classification, one label per rank.
// Every lineage has exactly len(Ranks()) labels; an empty label means the
// taxon is unclassified at that rank.
type TaxonomyTable struct {
	ranks    []string
	taxa     []string
	lineages [][]string
	index    map[string]int
}

// NewTaxonomyTable builds a taxonomy table.
//
// Parameters:
//   - ranks: Rank names, most general first (e.g. DefaultRanks)
//   - taxa: Taxon identifiers, unique and non-empty
//   - lineages: lineages[j] holds the labels of taxa[j], one per rank
//
// Returns:
//   - *TaxonomyTable: The table, which keeps its own copy of every input
//   - error: A *errs.MalformedInputError if a lineage length differs from
//     len(ranks) or an identifier is duplicated
func NewTaxonomyTable(ranks, taxa []string, lineages [][]string) (*TaxonomyTable, error) {
	if len(ranks) == 0 {
		return nil, errs.Malformed("", "no ranks defined")
	}
	if len(lineages) != len(taxa) {
		return nil, errs.Malformed("", fmt.Sprintf("%d lineages for %d taxa", len(lineages), len(taxa)))
	}

	copied := make([][]string, len(lineages))
	for j, lineage := range lineages {
		if len(lineage) != len(ranks) {
			return nil, errs.Malformed("", fmt.Sprintf("lineage has %d labels, expected %d", len(lineage), len(ranks)), taxa[j])
		}
		copied[j] = cloneStrings(lineage)
	}

	return newTaxonomyTable("", cloneStrings(ranks), cloneStrings(taxa), copied)
}

func newTaxonomyTable(source string, ranks, taxa []string, lineages [][]string) (*TaxonomyTable, error) {
	if _, err := indexIDs(source, "rank", ranks); err != nil {
		return nil, err
	}
	index, err := indexIDs(source, "taxon", taxa)
	if err != nil {
		return nil, err
	}

	return &TaxonomyTable{ranks: ranks, taxa: taxa, lineages: lineages, index: index}, nil
}

// Ranks returns the rank names. The slice must not be modified.
func (t *TaxonomyTable) Ranks() []string {
	return t.ranks
}

// NumTaxa returns the number of classified taxa.
func (t *TaxonomyTable) NumTaxa() int {
	return len(t.taxa)
}

// Taxa returns the taxon ids in table order. The slice must not be modified.
func (t *TaxonomyTable) Taxa() []string {
	return t.taxa
}

// TaxonIndex returns the position of taxon id.
func (t *TaxonomyTable) TaxonIndex(id string) (int, bool) {
	j, ok := t.index[id]
	return j, ok
}

// RankIndex resolves a rank name, case-insensitively. An unknown name
// yields a *errs.UnknownRankError.
func (t *TaxonomyTable) RankIndex(rank string) (int, error) {
	for k, r := range t.ranks {
		if r == rank {
			return k, nil
		}
	}
	for k, r := range t.ranks {
		if strings.EqualFold(r, rank) {
			return k, nil
		}
	}

	return -1, &errs.UnknownRankError{Rank: rank, Known: t.ranks}
}

// Lineage returns the labels of taxon j. The slice must not be modified.
func (t *TaxonomyTable) Lineage(j int) []string {
	return t.lineages[j]
}

// Label returns the label of taxon j at rank index k, or Unassigned when the
// taxon is unclassified there.
func (t *TaxonomyTable) Label(j, k int) string {
	if l := t.lineages[j][k]; l != "" {
		return l
	}

	return Unassigned
}

func (t *TaxonomyTable) subset(cols []int) *TaxonomyTable {
	taxa := make([]string, len(cols))
	lineages := make([][]string, len(cols))
	index := make(map[string]int, len(cols))
	for k, j := range cols {
		taxa[k] = t.taxa[j]
		lineages[k] = t.lineages[j]
		index[taxa[k]] = k
	}

	return &TaxonomyTable{ranks: t.ranks, taxa: taxa, lineages: lineages, index: index}
}
