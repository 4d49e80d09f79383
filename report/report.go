// Package report writes pipeline results as tab-separated text for
// plotting tools and spreadsheets.
//
// Every writer emits a header row followed by one row per record. Floats use
// the shortest representation that round-trips. WriteFile creates the output
// through the compress package, so a ".gz" or ".zst" suffix compresses it.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/arloliu/otukit/compress"
)

// tsv wraps a csv.Writer configured for tab-separated output.
type tsv struct {
	w *csv.Writer
}

func newTSV(w io.Writer) *tsv {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	return &tsv{w: cw}
}

func (t *tsv) row(record ...string) error {
	return t.w.Write(record)
}

func (t *tsv) flush() error {
	t.w.Flush()

	return t.w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}

// WriteFile creates path, compressed according to its extension, and
// passes it to write.
//
// Example:
//
//	err := report.WriteFile("out/diversity.tsv.gz", func(w io.Writer) error {
//	    return report.WriteSummary(w, summary)
//	})
func WriteFile(path string, write func(w io.Writer) error) (err error) {
	wc, err := compress.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	defer func() {
		if cerr := wc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close report %s: %w", path, cerr)
		}
	}()

	if err := write(wc); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}

	return nil
}
