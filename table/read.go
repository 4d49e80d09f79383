package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/arloliu/otukit/compress"
	"github.com/arloliu/otukit/errs"
	"github.com/arloliu/otukit/internal/options"
)

// ReadConfig holds parser settings shared by the table readers. Each reader
// uses only the fields that apply to it.
type ReadConfig struct {
	// Label selects the rows of a mothur shared file by its label column
	// (e.g. "0.03"). Empty selects the label of the first data row.
	Label string
	// IDColumn names the sample id column of a metadata file. Empty selects
	// the first column.
	IDColumn string
	// Ranks names the levels of semicolon-delimited classifications.
	Ranks []string
	// Delimiter overrides delimiter detection when non-zero.
	Delimiter rune
}

// ReadOption is a functional option for ReadConfig.
type ReadOption = options.Option[*ReadConfig]

// WithLabel selects the OTU definition (the label column) of a mothur shared file.
func WithLabel(label string) ReadOption {
	return options.NoError(func(cfg *ReadConfig) {
		cfg.Label = label
	})
}

// WithIDColumn names the sample id column of a metadata file.
func WithIDColumn(name string) ReadOption {
	return options.NoError(func(cfg *ReadConfig) {
		cfg.IDColumn = name
	})
}

// WithRanks sets the rank names of semicolon-delimited classifications.
func WithRanks(ranks ...string) ReadOption {
	return options.New(func(cfg *ReadConfig) error {
		if len(ranks) == 0 {
			return errs.InvalidArgument("at least one rank name is required")
		}
		cfg.Ranks = cloneStrings(ranks)

		return nil
	})
}

// WithDelimiter disables delimiter detection.
func WithDelimiter(r rune) ReadOption {
	return options.New(func(cfg *ReadConfig) error {
		if r != '\t' && r != ',' && r != ';' {
			return errs.InvalidArgument("unsupported delimiter %q", r)
		}
		cfg.Delimiter = r

		return nil
	})
}

func newReadConfig(opts []ReadOption) (*ReadConfig, error) {
	cfg := &ReadConfig{Ranks: DefaultRanks}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// records reads all delimited records of r. When delim is zero the
// delimiter is detected from the first line: tab if it contains one,
// otherwise comma.
func records(r io.Reader, source string, delim rune) ([][]string, error) {
	br := bufio.NewReader(r)
	if delim == 0 {
		first, err := br.Peek(1 << 12)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		line, _, _ := strings.Cut(string(first), "\n")
		delim = ','
		if strings.ContainsRune(line, '\t') {
			delim = '\t'
		}
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	recs, err := cr.ReadAll()
	if err != nil {
		return nil, &errs.MalformedInputError{Source: source, Reason: "unreadable delimited text", Err: err}
	}

	// drop blank lines and trailing empty fields left by a trailing delimiter
	out := recs[:0]
	for _, rec := range recs {
		for len(rec) > 0 && strings.TrimSpace(rec[len(rec)-1]) == "" {
			rec = rec[:len(rec)-1]
		}
		if len(rec) > 0 {
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		return nil, errs.Malformed(source, "empty file")
	}

	return out, nil
}

// ReadAbundance parses an OTU count table.
//
// Two layouts are recognised, separated by tabs or commas:
//
//	#SampleID  Otu001  Otu002        (generic: first column holds sample ids)
//	S1         10      0
//
//	label  Group  numOtus  Otu001  Otu002   (mothur shared file)
//	0.03   S1     2        10      0
//
// A shared file may contain several OTU definitions; the one named by
// WithLabel is read, or the first one by default.
//
// Parameters:
//   - r: Source of the table text
//   - source: Name used in error messages (usually the file path)
//   - opts: WithLabel, WithDelimiter
//
// Returns:
//   - *AbundanceTable: The parsed table
//   - error: *errs.MalformedInputError for ragged rows, non-integer or
//     negative counts, duplicate ids or an empty table
func ReadAbundance(r io.Reader, source string, opts ...ReadOption) (*AbundanceTable, error) {
	cfg, err := newReadConfig(opts)
	if err != nil {
		return nil, err
	}
	recs, err := records(r, source, cfg.Delimiter)
	if err != nil {
		return nil, err
	}

	header := recs[0]
	shared := isSharedHeader(header)
	first := 1
	if shared {
		first = 3
	}
	if len(header) <= first {
		return nil, errs.Malformed(source, "header names no taxa")
	}

	taxa := make([]string, len(header)-first)
	for k, h := range header[first:] {
		taxa[k] = strings.TrimSpace(h)
	}

	label := cfg.Label
	var samples []string
	counts := make([]uint64, 0, (len(recs)-1)*len(taxa))
	for _, rec := range recs[1:] {
		id := strings.TrimSpace(rec[0])
		if shared {
			if len(rec) < 2 {
				return nil, errs.Malformed(source, "row has no Group column", rec[0])
			}
			if label == "" {
				label = rec[0]
			}
			if rec[0] != label {
				continue
			}
			id = strings.TrimSpace(rec[1])
		}

		if len(rec) != len(header) {
			return nil, errs.Malformed(source,
				fmt.Sprintf("row has %d fields, header has %d", len(rec), len(header)), id)
		}

		for k, field := range rec[first:] {
			c, err := parseCount(field)
			if err != nil {
				return nil, &errs.MalformedInputError{
					Source: source,
					Reason: fmt.Sprintf("bad count for taxon %s", taxa[k]),
					IDs:    []string{id},
					Err:    err,
				}
			}
			counts = append(counts, c)
		}
		samples = append(samples, id)
	}

	if len(samples) == 0 {
		if shared && cfg.Label != "" {
			return nil, errs.Malformed(source, fmt.Sprintf("no rows with label %q", cfg.Label))
		}

		return nil, errs.Malformed(source, "no samples")
	}

	return newAbundanceTable(source, samples, taxa, counts)
}

func isSharedHeader(header []string) bool {
	return len(header) >= 3 &&
		strings.EqualFold(strings.TrimSpace(header[0]), "label") &&
		strings.EqualFold(strings.TrimSpace(header[1]), "Group") &&
		strings.EqualFold(strings.TrimSpace(header[2]), "numOtus")
}

// parseCount accepts non-negative integers, also when written as a float
// with a zero fraction ("12.0"), as some tools export them.
func parseCount(field string) (uint64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, nil
	}
	if c, err := strconv.ParseUint(field, 10, 64); err == nil {
		return c, nil
	}

	f, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("%q is not a non-negative integer", field)
	}

	return uint64(f), nil
}

// confidenceSuffix matches mothur/RDP bootstrap values such as "(100)".
var confidenceSuffix = regexp.MustCompile(`\(\d+(\.\d+)?\)$`)

// rankPrefix matches QIIME/Greengenes rank prefixes such as "p__".
var rankPrefix = regexp.MustCompile(`^[a-zA-Z]__`)

// placeholder matches classifier stand-ins for a missing label, such as
// "unclassified", "Bacteria_unclassified" or "unknown".
var placeholder = regexp.MustCompile(`(?i)^(\w+_)?(unclassified|unknown)$`)

// cleanLabel returns the empty label for placeholders.
func cleanLabel(l string) string {
	l = strings.TrimSpace(l)
	if placeholder.MatchString(l) {
		return ""
	}

	return l
}

// ReadTaxonomy parses taxon classifications.
//
// Recognised layouts (tab-separated):
//
//	OTU     Size  Taxonomy                                 (mothur cons.taxonomy)
//	Otu001  120   Bacteria(100);Firmicutes(100);...
//
//	Feature ID  Taxon                        Confidence    (QIIME 2)
//	abc123      k__Bacteria; p__Firmicutes   0.99
//
//	Otu001  Bacteria;Firmicutes;...                        (headerless pairs)
//
//	OTU     Kingdom   Phylum      ...                      (one column per rank)
//	Otu001  Bacteria  Firmicutes  ...
//
// Confidence suffixes and rank prefixes are stripped from semicolon
// classifications, whose rank names come from WithRanks (DefaultRanks
// otherwise). Lineages shorter than the rank list are padded with empty
// labels; longer lineages are malformed. Placeholder labels such as
// "unclassified" or "Bacteria_unclassified" are read as empty in every
// layout, so they report as Unassigned.
func ReadTaxonomy(r io.Reader, source string, opts ...ReadOption) (*TaxonomyTable, error) {
	cfg, err := newReadConfig(opts)
	if err != nil {
		return nil, err
	}
	delim := cfg.Delimiter
	if delim == 0 {
		delim = '\t'
	}
	recs, err := records(r, source, delim)
	if err != nil {
		return nil, err
	}

	header := recs[0]
	switch {
	case len(header) == 2 && strings.Contains(header[1], ";"):
		return semicolonTaxonomy(source, recs, 1, cfg.Ranks)
	case taxonomyColumn(header) > 0:
		return semicolonTaxonomy(source, recs[1:], taxonomyColumn(header), cfg.Ranks)
	case len(header) >= 2:
		return columnTaxonomy(source, recs)
	default:
		return nil, errs.Malformed(source, "taxonomy needs an id column and at least one rank column")
	}
}

func taxonomyColumn(header []string) int {
	for k := 1; k < len(header); k++ {
		switch strings.ToLower(strings.TrimSpace(header[k])) {
		case "taxonomy", "taxon":
			return k
		}
	}

	return -1
}

func semicolonTaxonomy(source string, recs [][]string, col int, ranks []string) (*TaxonomyTable, error) {
	taxa := make([]string, 0, len(recs))
	lineages := make([][]string, 0, len(recs))
	for _, rec := range recs {
		id := strings.TrimSpace(rec[0])
		if len(rec) <= col {
			return nil, errs.Malformed(source, "row has no classification", id)
		}

		lineage := make([]string, len(ranks))
		parts := strings.Split(strings.TrimRight(strings.TrimSpace(rec[col]), ";"), ";")
		if len(parts) > len(ranks) {
			return nil, errs.Malformed(source,
				fmt.Sprintf("classification has %d levels, %d ranks defined", len(parts), len(ranks)), id)
		}
		for k, p := range parts {
			p = strings.TrimSpace(p)
			p = confidenceSuffix.ReplaceAllString(p, "")
			p = rankPrefix.ReplaceAllString(p, "")
			lineage[k] = cleanLabel(p)
		}

		taxa = append(taxa, id)
		lineages = append(lineages, lineage)
	}

	return newTaxonomyTable(source, cloneStrings(ranks), taxa, lineages)
}

func columnTaxonomy(source string, recs [][]string) (*TaxonomyTable, error) {
	header := recs[0]
	ranks := make([]string, len(header)-1)
	for k, h := range header[1:] {
		ranks[k] = strings.TrimSpace(h)
	}

	taxa := make([]string, 0, len(recs)-1)
	lineages := make([][]string, 0, len(recs)-1)
	for _, rec := range recs[1:] {
		id := strings.TrimSpace(rec[0])
		if len(rec) > len(header) {
			return nil, errs.Malformed(source,
				fmt.Sprintf("row has %d fields, header has %d", len(rec), len(header)), id)
		}

		lineage := make([]string, len(ranks))
		for k, v := range rec[1:] {
			lineage[k] = cleanLabel(v)
		}
		taxa = append(taxa, id)
		lineages = append(lineages, lineage)
	}

	return newTaxonomyTable(source, ranks, taxa, lineages)
}

// ReadMetadata parses a delimited sample sheet with a header row. The
// sample id column is named by WithIDColumn, or is the first column.
func ReadMetadata(r io.Reader, source string, opts ...ReadOption) (*MetadataTable, error) {
	cfg, err := newReadConfig(opts)
	if err != nil {
		return nil, err
	}
	recs, err := records(r, source, cfg.Delimiter)
	if err != nil {
		return nil, err
	}

	header := recs[0]
	idCol := 0
	if cfg.IDColumn != "" {
		idCol = -1
		for k, h := range header {
			if strings.TrimSpace(h) == cfg.IDColumn {
				idCol = k
				break
			}
		}
		if idCol < 0 {
			return nil, errs.Malformed(source, fmt.Sprintf("no column named %q", cfg.IDColumn))
		}
	}

	fields := make([]string, 0, len(header)-1)
	for k, h := range header {
		if k != idCol {
			fields = append(fields, strings.TrimSpace(h))
		}
	}

	samples := make([]string, 0, len(recs)-1)
	values := make([][]string, 0, len(recs)-1)
	for _, rec := range recs[1:] {
		// trailing empty fields were trimmed by records
		if len(rec) > len(header) || len(rec) <= idCol {
			return nil, errs.Malformed(source,
				fmt.Sprintf("record has %d fields, header has %d", len(rec), len(header)), rec[0])
		}

		vals := make([]string, 0, len(fields))
		for k := range header {
			if k == idCol {
				continue
			}
			v := ""
			if k < len(rec) {
				v = strings.TrimSpace(rec[k])
			}
			vals = append(vals, v)
		}
		samples = append(samples, strings.TrimSpace(rec[idCol]))
		values = append(values, vals)
	}

	return newMetadataTable(source, strings.TrimSpace(header[idCol]), fields, samples, values)
}

// OpenAbundance reads an abundance table from a possibly compressed file.
func OpenAbundance(path string, opts ...ReadOption) (*AbundanceTable, error) {
	return openWith(path, opts, ReadAbundance)
}

// OpenTaxonomy reads a taxonomy table from a possibly compressed file.
func OpenTaxonomy(path string, opts ...ReadOption) (*TaxonomyTable, error) {
	return openWith(path, opts, ReadTaxonomy)
}

// OpenMetadata reads a metadata table from a possibly compressed file.
func OpenMetadata(path string, opts ...ReadOption) (*MetadataTable, error) {
	return openWith(path, opts, ReadMetadata)
}

func openWith[T any](path string, opts []ReadOption, read func(io.Reader, string, ...ReadOption) (T, error)) (T, error) {
	var zero T

	rc, err := compress.Open(path)
	if err != nil {
		return zero, err
	}
	defer rc.Close()

	return read(rc, path, opts...)
}
