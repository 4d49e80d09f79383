package table

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/arloliu/otukit/errs"
)

type fixture struct {
	abundance *AbundanceTable
	taxonomy  *TaxonomyTable
	metadata  *MetadataTable
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	abund, err := NewAbundanceTable(
		[]string{"S1", "S2", "Blank"},
		[]string{"Otu1", "Otu2", "Otu3", "Otu4"},
		[][]uint64{
			{50, 30, 20, 0},
			{10, 0, 60, 30},
			{1, 0, 0, 0},
		},
	)
	require.NoError(t, err)

	tax, err := NewTaxonomyTable(
		[]string{"Kingdom", "Phylum", "Class"},
		[]string{"Otu4", "Otu3", "Otu2", "Otu1"},
		[][]string{
			{"Bacteria", "Cyanobacteria", "Chloroplast"},
			{"Bacteria", "Bacteroidetes", "Bacteroidia"},
			{"Bacteria", "Firmicutes", "Clostridia"},
			{"Bacteria", "Firmicutes", "Bacilli"},
		},
	)
	require.NoError(t, err)

	meta, err := NewMetadataTable("sample", []string{"type", "site"},
		[]string{"Blank", "S2", "S1"},
		[][]string{{"blank", "lab"}, {"gut", "B"}, {"gut", "A"}},
	)
	require.NoError(t, err)

	return fixture{abundance: abund, taxonomy: tax, metadata: meta}
}

func TestNewTables_Malformed(t *testing.T) {
	_, err := NewAbundanceTable([]string{"S1"}, []string{"A", "B"}, [][]uint64{{1}})
	require.ErrorIs(t, err, errs.ErrMalformedInput)

	_, err = NewAbundanceTable([]string{"S1", "S2"}, []string{"A"}, [][]uint64{{1}})
	require.ErrorIs(t, err, errs.ErrMalformedInput)

	_, err = NewTaxonomyTable([]string{"Kingdom"}, []string{"A"}, [][]string{{"Bacteria", "Firmicutes"}})
	require.ErrorIs(t, err, errs.ErrMalformedInput)

	_, err = NewTaxonomyTable(nil, []string{"A"}, [][]string{{}})
	require.ErrorIs(t, err, errs.ErrMalformedInput)

	_, err = NewMetadataTable("id", []string{"x"}, []string{"S1"}, [][]string{{"1", "2"}})
	require.ErrorIs(t, err, errs.ErrMalformedInput)

	_, err = NewMetadataTable("id", []string{"x", "x"}, []string{"S1"}, [][]string{{"1", "2"}})
	require.ErrorIs(t, err, errs.ErrDuplicateID)
}

func TestNewAbundanceTable_CopiesInput(t *testing.T) {
	rows := [][]uint64{{1, 2}}
	samples := []string{"S1"}
	tbl, err := NewAbundanceTable(samples, []string{"A", "B"}, rows)
	require.NoError(t, err)

	rows[0][0] = 99
	samples[0] = "changed"
	require.Equal(t, uint64(1), tbl.Count(0, 0))
	require.Equal(t, "S1", tbl.Samples()[0])
}

func TestMerge_Aligns(t *testing.T) {
	f := newFixture(t)

	ds, err := Merge(f.abundance, f.taxonomy, f.metadata)
	require.NoError(t, err)

	require.Equal(t, []string{"S1", "S2", "Blank"}, ds.Samples())
	require.Equal(t, []string{"S1", "S2", "Blank"}, ds.Metadata().Samples())
	require.Equal(t, ds.Taxa(), ds.Taxonomy().Taxa())

	for j := range ds.NumTaxa() {
		orig, ok := f.taxonomy.TaxonIndex(ds.Taxa()[j])
		require.True(t, ok)
		require.Equal(t, f.taxonomy.Lineage(orig), ds.Taxonomy().Lineage(j))
	}

	site, _ := ds.Metadata().Value(0, "site")
	require.Equal(t, "A", site)
}

func TestMerge_Strict(t *testing.T) {
	f := newFixture(t)

	meta, err := NewMetadataTable("sample", []string{"type"},
		[]string{"S1", "S2", "Blank", "S9"},
		[][]string{{"gut"}, {"gut"}, {"blank"}, {"gut"}},
	)
	require.NoError(t, err)

	_, err = Merge(f.abundance, f.taxonomy, meta)
	var malformed *errs.MalformedInputError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, []string{"S9"}, malformed.IDs)

	meta, err = NewMetadataTable("sample", []string{"type"}, []string{"S1"}, [][]string{{"gut"}})
	require.NoError(t, err)
	_, err = Merge(f.abundance, f.taxonomy, meta)
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, []string{"S2", "Blank"}, malformed.IDs)

	tax, err := NewTaxonomyTable([]string{"Kingdom"}, []string{"Otu1", "Otu2", "Otu3"},
		[][]string{{"Bacteria"}, {"Bacteria"}, {"Bacteria"}})
	require.NoError(t, err)
	_, err = Merge(f.abundance, tax, f.metadata)
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, []string{"Otu4"}, malformed.IDs)
}

func TestMerge_InnerJoin(t *testing.T) {
	f := newFixture(t)

	meta, err := NewMetadataTable("sample", []string{"type"},
		[]string{"S2", "S1", "S9"},
		[][]string{{"gut"}, {"gut"}, {"gut"}},
	)
	require.NoError(t, err)
	tax, err := NewTaxonomyTable([]string{"Kingdom"}, []string{"Otu3", "Otu1"},
		[][]string{{"Bacteria"}, {"Bacteria"}})
	require.NoError(t, err)

	core, logs := observer.New(zapcore.WarnLevel)
	ds, err := Merge(f.abundance, tax, meta, WithInnerJoin(), WithMergeLogger(zap.New(core)))
	require.NoError(t, err)

	require.Equal(t, []string{"S1", "S2"}, ds.Samples())
	require.Equal(t, []string{"Otu1", "Otu3"}, ds.Taxa())
	require.Equal(t, []uint64{10, 60}, ds.Abundance().Row(1))
	require.Equal(t, 2, logs.Len())

	empty, err := NewMetadataTable("sample", nil, []string{"X"}, [][]string{{}})
	require.NoError(t, err)
	_, err = Merge(f.abundance, tax, empty, WithInnerJoin())
	require.ErrorIs(t, err, errs.ErrEmptySampleGroup)
}

func TestFilter(t *testing.T) {
	f := newFixture(t)
	ds, err := Merge(f.abundance, f.taxonomy, f.metadata)
	require.NoError(t, err)

	filtered, err := ds.Filter(
		Not(MetadataEquals("type", "blank")),
		Not(RankEquals("Class", "Chloroplast", "Mitochondria")),
	)
	require.NoError(t, err)
	require.Equal(t, []string{"S1", "S2"}, filtered.Samples())
	require.Equal(t, []string{"Otu1", "Otu2", "Otu3"}, filtered.Taxa())
	require.Equal(t, uint64(70), filtered.Abundance().Total(1))

	// receiver is untouched
	require.Equal(t, 3, ds.NumSamples())
	require.Equal(t, 4, ds.NumTaxa())

	keepA, err := ds.Filter(SampleFunc(func(id string, rec map[string]string) bool {
		return rec["site"] == "A"
	}), TaxonFunc(func(id string, lineage []string) bool {
		return lineage[1] == "Firmicutes"
	}))
	require.NoError(t, err)
	require.Equal(t, []string{"S1"}, keepA.Samples())
	require.Equal(t, []string{"Otu1", "Otu2"}, keepA.Taxa())
}

func TestFilter_ZeroPredicate(t *testing.T) {
	f := newFixture(t)
	ds, err := Merge(f.abundance, f.taxonomy, f.metadata)
	require.NoError(t, err)

	for _, p := range []Predicate{{}, Not(Predicate{}), Not(Not(Predicate{}))} {
		var filtered *Dataset
		require.NotPanics(t, func() { filtered, err = ds.Filter(p) })
		require.NoError(t, err)
		require.Equal(t, ds.Samples(), filtered.Samples())
		require.Equal(t, ds.Taxa(), filtered.Taxa())
	}
}

func TestFilter_Errors(t *testing.T) {
	f := newFixture(t)
	ds, err := Merge(f.abundance, f.taxonomy, f.metadata)
	require.NoError(t, err)

	_, err = ds.Filter(RankEquals("Genus", "Bacillus"))
	require.ErrorIs(t, err, errs.ErrUnknownRank)

	_, err = ds.Filter(MetadataEquals("depth", "1"))
	require.ErrorIs(t, err, errs.ErrInvalidArgument)

	_, err = ds.Filter(MetadataEquals("type", "soil"))
	var empty *errs.EmptySampleGroupError
	require.ErrorAs(t, err, &empty)
	require.Equal(t, "samples", empty.Axis)

	_, err = ds.Filter(RankEquals("Kingdom", "Archaea"))
	require.ErrorAs(t, err, &empty)
	require.Equal(t, "taxa", empty.Axis)
}

func TestDropEmptyTaxa(t *testing.T) {
	f := newFixture(t)
	ds, err := Merge(f.abundance, f.taxonomy, f.metadata)
	require.NoError(t, err)

	s1, err := ds.Filter(MetadataEquals("site", "A"))
	require.NoError(t, err)
	require.Equal(t, 4, s1.NumTaxa())

	trimmed, err := s1.DropEmptyTaxa()
	require.NoError(t, err)
	require.Equal(t, []string{"Otu1", "Otu2", "Otu3"}, trimmed.Taxa())
	require.Equal(t, []string{"Bacteria", "Firmicutes", "Bacilli"}, trimmed.Taxonomy().Lineage(0))
}

func TestGroupBy(t *testing.T) {
	f := newFixture(t)
	ds, err := Merge(f.abundance, f.taxonomy, f.metadata)
	require.NoError(t, err)

	groups, err := ds.GroupBy("type")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, "gut", groups[0].Value)
	require.Equal(t, []string{"S1", "S2"}, groups[0].Dataset.Samples())
	require.Equal(t, "blank", groups[1].Value)
	require.Equal(t, []string{"Blank"}, groups[1].Dataset.Samples())

	labels, err := ds.Labels("site")
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "lab"}, labels)

	_, err = ds.GroupBy("missing")
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}
