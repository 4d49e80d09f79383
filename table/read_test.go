package table

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/otukit/compress"
	"github.com/arloliu/otukit/errs"
)

const sharedFixture = "label\tGroup\tnumOtus\tOtu001\tOtu002\tOtu003\t\n" +
	"0.03\tF3D0\t3\t10\t0\t5\t\n" +
	"0.03\tF3D1\t3\t3\t3\t3\t\n" +
	"0.05\tF3D0\t3\t15\t0\t0\t\n"

func TestReadAbundance_Shared(t *testing.T) {
	tbl, err := ReadAbundance(strings.NewReader(sharedFixture), "stability.shared")
	require.NoError(t, err)

	require.Equal(t, []string{"F3D0", "F3D1"}, tbl.Samples())
	require.Equal(t, []string{"Otu001", "Otu002", "Otu003"}, tbl.Taxa())
	require.Equal(t, []uint64{10, 0, 5}, tbl.Row(0))
	require.Equal(t, uint64(15), tbl.Total(0))
	require.Equal(t, uint64(9), tbl.Total(1))
	require.Equal(t, uint64(3), tbl.TaxonTotal(1))
}

func TestReadAbundance_SharedLabel(t *testing.T) {
	tbl, err := ReadAbundance(strings.NewReader(sharedFixture), "stability.shared", WithLabel("0.05"))
	require.NoError(t, err)
	require.Equal(t, []string{"F3D0"}, tbl.Samples())
	require.Equal(t, []uint64{15, 0, 0}, tbl.Row(0))

	_, err = ReadAbundance(strings.NewReader(sharedFixture), "stability.shared", WithLabel("0.10"))
	require.ErrorIs(t, err, errs.ErrMalformedInput)
}

func TestReadAbundance_Generic(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"tab", "#SampleID\tOtuA\tOtuB\nS1\t1\t2\nS2\t0\t7\n"},
		{"comma", "sample,OtuA,OtuB\nS1,1,2\nS2,0,7\n"},
		{"float counts", "sample,OtuA,OtuB\nS1,1.0,2\nS2,0,7.0\n"},
		{"blank lines", "sample,OtuA,OtuB\n\nS1,1,2\n\nS2,0,7\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := ReadAbundance(strings.NewReader(tt.input), tt.name)
			require.NoError(t, err)
			require.Equal(t, []string{"S1", "S2"}, tbl.Samples())
			require.Equal(t, []string{"OtuA", "OtuB"}, tbl.Taxa())
			require.Equal(t, uint64(7), tbl.Count(1, 1))
		})
	}
}

func TestReadAbundance_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no taxa", "sample\nS1\n"},
		{"no samples", "sample,OtuA\n"},
		{"ragged", "sample,OtuA,OtuB\nS1,1\n"},
		{"negative", "sample,OtuA\nS1,-1\n"},
		{"fraction", "sample,OtuA\nS1,0.5\n"},
		{"text", "sample,OtuA\nS1,many\n"},
		{"duplicate sample", "sample,OtuA\nS1,1\nS1,2\n"},
		{"duplicate taxon", "sample,OtuA,OtuA\nS1,1,2\n"},
		{"empty taxon", "sample,OtuA,,OtuC\nS1,1,2,3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAbundance(strings.NewReader(tt.input), "otu.csv")
			require.ErrorIs(t, err, errs.ErrMalformedInput)
			require.Contains(t, err.Error(), "otu.csv")
		})
	}
}

func TestReadTaxonomy_Layouts(t *testing.T) {
	want := [][]string{
		{"Bacteria", "Firmicutes", "Bacilli", "", "", "", ""},
		{"Bacteria", "Bacteroidetes", "", "", "", "", ""},
	}

	tests := []struct {
		name  string
		input string
	}{
		{
			"mothur",
			"OTU\tSize\tTaxonomy\n" +
				"Otu001\t120\tBacteria(100);Firmicutes(100);Bacilli(97);\n" +
				"Otu002\t45\tBacteria(100);Bacteroidetes(88);\n",
		},
		{
			"qiime",
			"Feature ID\tTaxon\tConfidence\n" +
				"Otu001\tk__Bacteria; p__Firmicutes; c__Bacilli\t0.99\n" +
				"Otu002\tk__Bacteria; p__Bacteroidetes\t0.91\n",
		},
		{
			"headerless",
			"Otu001\tBacteria;Firmicutes;Bacilli;\n" +
				"Otu002\tBacteria;Bacteroidetes;\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tax, err := ReadTaxonomy(strings.NewReader(tt.input), tt.name)
			require.NoError(t, err)
			require.Equal(t, DefaultRanks, tax.Ranks())
			require.Equal(t, []string{"Otu001", "Otu002"}, tax.Taxa())
			got := [][]string{tax.Lineage(0), tax.Lineage(1)}
			require.Empty(t, cmp.Diff(want, got))
			require.Equal(t, Unassigned, tax.Label(1, 2))
		})
	}
}

func TestReadTaxonomy_Columns(t *testing.T) {
	input := "OTU\tKingdom\tPhylum\tGenus\n" +
		"Otu001\tBacteria\tFirmicutes\tBacillus\n" +
		"Otu002\tBacteria\tProteobacteria\n"

	tax, err := ReadTaxonomy(strings.NewReader(input), "columns.tsv")
	require.NoError(t, err)
	require.Equal(t, []string{"Kingdom", "Phylum", "Genus"}, tax.Ranks())
	require.Equal(t, []string{"Bacteria", "Proteobacteria", ""}, tax.Lineage(1))

	k, err := tax.RankIndex("genus")
	require.NoError(t, err)
	require.Equal(t, 2, k)

	_, err = tax.RankIndex("Species")
	var rankErr *errs.UnknownRankError
	require.ErrorAs(t, err, &rankErr)
	require.Equal(t, "Species", rankErr.Rank)
}

func TestReadTaxonomy_Placeholders(t *testing.T) {
	input := "OTU\tSize\tTaxonomy\n" +
		"Otu001\t80\tBacteria(100);Firmicutes(100);Firmicutes_unclassified(100);Firmicutes_unclassified(100);\n" +
		"Otu002\t12\tBacteria(100);unclassified(100);unclassified(100);\n" +
		"Otu003\t5\tUnknown(100);\n" +
		"Otu004\t3\tBacteria(100);Unclassified_Bacteria_phylum(90);\n"

	tax, err := ReadTaxonomy(strings.NewReader(input), "final.cons.taxonomy", WithRanks("Kingdom", "Phylum", "Class", "Order"))
	require.NoError(t, err)
	require.Equal(t, []string{"Bacteria", "Firmicutes", "", ""}, tax.Lineage(0))
	require.Equal(t, []string{"Bacteria", "", "", ""}, tax.Lineage(1))
	require.Equal(t, []string{"", "", "", ""}, tax.Lineage(2))
	require.Equal(t, "Unclassified_Bacteria_phylum", tax.Label(3, 1))
	require.Equal(t, Unassigned, tax.Label(0, 2))

	columns := "OTU\tKingdom\tPhylum\n" +
		"Otu001\tBacteria\tBacteria_unclassified\n"
	tax, err = ReadTaxonomy(strings.NewReader(columns), "columns.tsv")
	require.NoError(t, err)
	require.Equal(t, Unassigned, tax.Label(0, 1))
}

func TestReadTaxonomy_Malformed(t *testing.T) {
	t.Run("too many levels", func(t *testing.T) {
		_, err := ReadTaxonomy(strings.NewReader("Otu001\tA;B;C;D\n"), "tax", WithRanks("Kingdom", "Phylum"))
		require.ErrorIs(t, err, errs.ErrMalformedInput)
	})

	t.Run("duplicate taxon", func(t *testing.T) {
		_, err := ReadTaxonomy(strings.NewReader("Otu001\tA;B\nOtu001\tA;C\n"), "tax")
		require.ErrorIs(t, err, errs.ErrMalformedInput)
		require.ErrorIs(t, err, errs.ErrDuplicateID)
	})

	t.Run("row longer than header", func(t *testing.T) {
		_, err := ReadTaxonomy(strings.NewReader("OTU\tKingdom\nOtu001\tA\tB\n"), "tax")
		require.ErrorIs(t, err, errs.ErrMalformedInput)
	})

	t.Run("no ranks", func(t *testing.T) {
		_, err := ReadTaxonomy(strings.NewReader("x"), "tax", WithRanks())
		require.ErrorIs(t, err, errs.ErrInvalidArgument)
	})
}

func TestReadMetadata(t *testing.T) {
	input := "group,sample,day,type\n" +
		"early,F3D0,0,gut\n" +
		"late,F3D150,150,\n" +
		"control,Mock,,mock\n"

	t.Run("first column", func(t *testing.T) {
		meta, err := ReadMetadata(strings.NewReader(input), "meta.csv")
		require.NoError(t, err)
		require.Equal(t, "group", meta.IDField())
		require.Equal(t, []string{"early", "late", "control"}, meta.Samples())
		require.Equal(t, []string{"sample", "day", "type"}, meta.Fields())
	})

	t.Run("named column", func(t *testing.T) {
		meta, err := ReadMetadata(strings.NewReader(input), "meta.csv", WithIDColumn("sample"))
		require.NoError(t, err)
		require.Equal(t, []string{"F3D0", "F3D150", "Mock"}, meta.Samples())
		require.Equal(t, []string{"group", "day", "type"}, meta.Fields())

		v, ok := meta.Value(1, "type")
		require.True(t, ok)
		require.Empty(t, v)

		day, err := meta.Float(1, "day")
		require.NoError(t, err)
		assert.InDelta(t, 150.0, day, 0)

		_, err = meta.Float(2, "day")
		require.Error(t, err)
		_, err = meta.Float(0, "weight")
		require.ErrorIs(t, err, errs.ErrInvalidArgument)

		require.Equal(t, map[string]string{"group": "early", "day": "0", "type": "gut"}, meta.Record(0))
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := ReadMetadata(strings.NewReader(input), "meta.csv", WithIDColumn("subject"))
		require.ErrorIs(t, err, errs.ErrMalformedInput)
	})

	t.Run("duplicate sample", func(t *testing.T) {
		_, err := ReadMetadata(strings.NewReader("id,x\nA,1\nA,2\n"), "meta.csv")
		require.ErrorIs(t, err, errs.ErrDuplicateID)
	})
}

func TestOpen_Compressed(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"stability.shared", "stability.shared.gz", "stability.shared.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			w, err := compress.Create(path)
			require.NoError(t, err)
			_, err = w.Write([]byte(sharedFixture))
			require.NoError(t, err)
			require.NoError(t, w.Close())

			tbl, err := OpenAbundance(path)
			require.NoError(t, err)
			require.Equal(t, 2, tbl.NumSamples())
			require.Equal(t, 3, tbl.NumTaxa())
		})
	}

	_, err := OpenMetadata(filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
}
