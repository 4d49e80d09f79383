package report

import (
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/otukit/aggregate"
	"github.com/arloliu/otukit/compress"
	"github.com/arloliu/otukit/curvefit"
	"github.com/arloliu/otukit/diversity"
	"github.com/arloliu/otukit/ordination"
)

func TestWriteLongTable(t *testing.T) {
	lt := &aggregate.LongTable{
		Rank:   "Phylum",
		Fields: []string{"site"},
		Rows: []aggregate.Row{
			{SampleID: "S1", Taxon: "Firmicutes", Count: 3, Abundance: 0.75, Metadata: []string{"gut"}},
			{SampleID: "S1", Taxon: "Unassigned", Count: 1, Abundance: 0.25, Metadata: []string{"gut"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteLongTable(&buf, lt))
	require.Equal(t,
		"sample\tPhylum\tcount\tabundance\tsite\n"+
			"S1\tFirmicutes\t3\t0.75\tgut\n"+
			"S1\tUnassigned\t1\t0.25\tgut\n",
		buf.String())
}

func TestWriteSummary(t *testing.T) {
	s := &diversity.Summary{
		Depth:  5,
		Trials: 2,
		Samples: []diversity.SampleSummary{
			{SampleID: "S1", RichnessMean: 1.5, RichnessSD: 0.5, EvennessMean: 1.25, EvennessSD: 0},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, s))
	require.Equal(t,
		"sample\tdepth\ttrials\trichness_mean\trichness_sd\tevenness_mean\tevenness_sd\n"+
			"S1\t5\t2\t1.5\t0.5\t1.25\t0\n",
		buf.String())
}

func TestWriteCurves(t *testing.T) {
	res := &diversity.CurveResult{
		Depths: []int{10, 20},
		Samples: []diversity.SampleCurve{
			{SampleID: "S1", Points: []diversity.CurvePoint{{Depth: 10, RichnessMean: 4}, {Depth: 20, RichnessMean: 6, RichnessSD: 1}}},
			{SampleID: "S2"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCurves(&buf, res))
	require.Equal(t,
		"sample\tdepth\trichness_mean\trichness_sd\n"+
			"S1\t10\t4\t0\n"+
			"S1\t20\t6\t1\n",
		buf.String())
}

func TestWriteCurveFits(t *testing.T) {
	result, err := curvefit.Fit([]float64{10, 20, 40}, []float64{5, 7, 9}, curvefit.WithModels(curvefit.ModelTypeLogarithmic))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCurveFits(&buf, []curvefit.SampleFit{{SampleID: "S1", Result: result}}))
	require.Contains(t, buf.String(), "sample\tmodel\tr_squared\trmse\tformula\tasymptote\n")
	require.Contains(t, buf.String(), "S1\tlogarithmic\t")
	require.Contains(t, buf.String(), "\tNaN\n")
}

func TestWriteDistanceMatrix(t *testing.T) {
	dm, err := ordination.NewDistanceMatrix([]string{"A", "B"}, ordination.BrayCurtis, [][]float64{{0, 0.5}, {0.5, 0}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteDistanceMatrix(&buf, dm))
	require.Equal(t, "\tA\tB\nA\t0\t0.5\nB\t0.5\t0\n", buf.String())
}

func TestWriteOrdination(t *testing.T) {
	dm, err := ordination.NewDistanceMatrix([]string{"A", "B", "C"}, ordination.Euclidean, [][]float64{
		{0, 1, 2},
		{1, 0, 1},
		{2, 1, 0},
	})
	require.NoError(t, err)
	ord, err := ordination.PCoA(dm, 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteOrdination(&buf, ord, "site", []string{"x", "y", "z"}))
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	require.Equal(t, "sample\tPCoA1\tsite", string(lines[0]))
	require.True(t, bytes.HasPrefix(lines[2], []byte("B\t")))
	require.True(t, bytes.HasSuffix(lines[3], []byte("\tz")))

	buf.Reset()
	require.NoError(t, WriteAxes(&buf, ord))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("axis\teigenvalue\texplained\nPCoA1\t")))
	require.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))

	buf.Reset()
	require.NoError(t, WriteAxes(&buf, &ordination.Ordination{Method: ordination.MethodNMDS, Stress: 0.125}))
	require.Equal(t, "statistic\tvalue\nstress\t0.125\n", buf.String())
}

func TestWritePermanova(t *testing.T) {
	res := &ordination.PermanovaResult{
		N: 4, DFBetween: 1, DFWithin: 2,
		SSBetween: 8.5, SSWithin: 1, SSTotal: 9.5,
		F: 17, R2: 0.5, PValue: 0.25,
	}

	var buf bytes.Buffer
	require.NoError(t, WritePermanova(&buf, res))
	require.Equal(t,
		"source\tdf\tsum_sq\tpseudo_f\tr_squared\tp_value\n"+
			"groups\t1\t8.5\t17\t0.5\t0.25\n"+
			"residual\t2\t1\t\t0.5\t\n"+
			"total\t3\t9.5\t\t1\t\n",
		buf.String())
}

func TestWriteFile_Compressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.tsv.gz")
	s := &diversity.Summary{Depth: 1, Trials: 1, Samples: []diversity.SampleSummary{{SampleID: "S1", RichnessMean: 1, EvennessMean: 1}}}

	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		return WriteSummary(w, s)
	}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte{0x1f, 0x8b}, raw[:2])

	rc, err := compress.Open(path)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Contains(t, string(data), "S1\t1\t1\t1\t0\t1\t0\n")
}

func TestWriteFile_Errors(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "missing", "out.tsv"), func(io.Writer) error { return nil })
	require.ErrorIs(t, err, os.ErrNotExist)

	err = WriteFile(filepath.Join(t.TempDir(), "out.tsv"), func(io.Writer) error { return io.ErrShortWrite })
	require.ErrorIs(t, err, io.ErrShortWrite)
}

func TestFormatFloat(t *testing.T) {
	require.Equal(t, "0.1", formatFloat(0.1))
	require.Equal(t, "NaN", formatFloat(math.NaN()))
	require.Equal(t, "+Inf", formatFloat(math.Inf(1)))
}
