package report

import (
	"io"
	"strconv"

	"github.com/arloliu/otukit/aggregate"
	"github.com/arloliu/otukit/curvefit"
	"github.com/arloliu/otukit/diversity"
	"github.com/arloliu/otukit/ordination"
)

// WriteLongTable writes one row per (sample, taxon) with the carried
// metadata columns appended.
func WriteLongTable(w io.Writer, lt *aggregate.LongTable) error {
	t := newTSV(w)
	header := append([]string{"sample", lt.Rank, "count", "abundance"}, lt.Fields...)
	if err := t.row(header...); err != nil {
		return err
	}
	for _, r := range lt.Rows {
		record := append([]string{r.SampleID, r.Taxon, strconv.FormatUint(r.Count, 10), formatFloat(r.Abundance)}, r.Metadata...)
		if err := t.row(record...); err != nil {
			return err
		}
	}

	return t.flush()
}

// WriteSummary writes the rarefied diversity of every sample.
func WriteSummary(w io.Writer, s *diversity.Summary) error {
	t := newTSV(w)
	if err := t.row("sample", "depth", "trials", "richness_mean", "richness_sd", "evenness_mean", "evenness_sd"); err != nil {
		return err
	}
	depth, trials := formatInt(s.Depth), formatInt(s.Trials)
	for _, ss := range s.Samples {
		err := t.row(ss.SampleID, depth, trials,
			formatFloat(ss.RichnessMean), formatFloat(ss.RichnessSD),
			formatFloat(ss.EvennessMean), formatFloat(ss.EvennessSD))
		if err != nil {
			return err
		}
	}

	return t.flush()
}

// WriteCurves writes one row per sample and depth of a rarefaction curve.
func WriteCurves(w io.Writer, res *diversity.CurveResult) error {
	t := newTSV(w)
	if err := t.row("sample", "depth", "richness_mean", "richness_sd"); err != nil {
		return err
	}
	for _, sc := range res.Samples {
		for _, p := range sc.Points {
			if err := t.row(sc.SampleID, formatInt(p.Depth), formatFloat(p.RichnessMean), formatFloat(p.RichnessSD)); err != nil {
				return err
			}
		}
	}

	return t.flush()
}

// WriteCurveFits writes the best model of every fitted curve.
func WriteCurveFits(w io.Writer, fits []curvefit.SampleFit) error {
	t := newTSV(w)
	if err := t.row("sample", "model", "r_squared", "rmse", "formula", "asymptote"); err != nil {
		return err
	}
	for _, f := range fits {
		best := f.BestFit
		err := t.row(f.SampleID, best.Type.String(), formatFloat(best.RSquared),
			formatFloat(best.RMSE), best.Formula, formatFloat(f.Asymptote))
		if err != nil {
			return err
		}
	}

	return t.flush()
}

// WriteDistanceMatrix writes the full square matrix with sample ids as the
// first row and column.
func WriteDistanceMatrix(w io.Writer, dm *ordination.DistanceMatrix) error {
	t := newTSV(w)
	if err := t.row(append([]string{""}, dm.IDs()...)...); err != nil {
		return err
	}
	record := make([]string, dm.Len()+1)
	for i, id := range dm.IDs() {
		record[0] = id
		for j := range dm.Len() {
			record[j+1] = formatFloat(dm.At(i, j))
		}
		if err := t.row(record...); err != nil {
			return err
		}
	}

	return t.flush()
}

// WriteOrdination writes the coordinates of every sample, optionally
// followed by the given metadata labels in a trailing column.
func WriteOrdination(w io.Writer, ord *ordination.Ordination, groupField string, groups []string) error {
	t := newTSV(w)
	header := append([]string{"sample"}, ord.AxisNames()...)
	if groupField != "" {
		header = append(header, groupField)
	}
	if err := t.row(header...); err != nil {
		return err
	}
	for i, id := range ord.IDs {
		record := []string{id}
		for _, v := range ord.Point(i) {
			record = append(record, formatFloat(v))
		}
		if groupField != "" && i < len(groups) {
			record = append(record, groups[i])
		}
		if err := t.row(record...); err != nil {
			return err
		}
	}

	return t.flush()
}

// WriteAxes writes the eigenvalue and explained share of each PCoA axis, or
// the stress of an NMDS solution.
func WriteAxes(w io.Writer, ord *ordination.Ordination) error {
	t := newTSV(w)
	if ord.Method == ordination.MethodNMDS {
		if err := t.row("statistic", "value"); err != nil {
			return err
		}
		if err := t.row("stress", formatFloat(ord.Stress)); err != nil {
			return err
		}

		return t.flush()
	}

	if err := t.row("axis", "eigenvalue", "explained"); err != nil {
		return err
	}
	for a, name := range ord.AxisNames() {
		if err := t.row(name, formatFloat(ord.Eigenvalues[a]), formatFloat(ord.Explained[a])); err != nil {
			return err
		}
	}

	return t.flush()
}

// WritePermanova writes an ANOVA-style table with groups, residual and
// total rows.
func WritePermanova(w io.Writer, res *ordination.PermanovaResult) error {
	t := newTSV(w)
	rows := [][]string{
		{"source", "df", "sum_sq", "pseudo_f", "r_squared", "p_value"},
		{"groups", formatInt(res.DFBetween), formatFloat(res.SSBetween), formatFloat(res.F), formatFloat(res.R2), formatFloat(res.PValue)},
		{"residual", formatInt(res.DFWithin), formatFloat(res.SSWithin), "", formatFloat(1 - res.R2), ""},
		{"total", formatInt(res.N - 1), formatFloat(res.SSTotal), "", "1", ""},
	}
	for _, r := range rows {
		if err := t.row(r...); err != nil {
			return err
		}
	}

	return t.flush()
}
