package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/otukit/errs"
)

// MetadataTable holds named string attributes per sample, such as
// treatment, site or sample type.
type MetadataTable struct {
	idField string
	fields  []string
	samples []string
	values  [][]string
	index   map[string]int
	fieldAt map[string]int
}

// NewMetadataTable builds a metadata table.
//
// Parameters:
//   - idField: Name of the sample id column (kept for output)
//   - fields: Attribute names, excluding idField
//   - samples: Sample identifiers, unique and non-empty
//   - values: values[i][f] is attribute fields[f] of samples[i]
//
// Returns:
//   - *MetadataTable: The table, which keeps its own copy of every input
//   - error: A *errs.MalformedInputError for ragged records or duplicate ids
func NewMetadataTable(idField string, fields, samples []string, values [][]string) (*MetadataTable, error) {
	if len(values) != len(samples) {
		return nil, errs.Malformed("", fmt.Sprintf("%d records for %d samples", len(values), len(samples)))
	}

	copied := make([][]string, len(values))
	for i, rec := range values {
		if len(rec) != len(fields) {
			return nil, errs.Malformed("", fmt.Sprintf("record has %d fields, expected %d", len(rec), len(fields)), samples[i])
		}
		copied[i] = cloneStrings(rec)
	}

	return newMetadataTable("", idField, cloneStrings(fields), cloneStrings(samples), copied)
}

func newMetadataTable(source, idField string, fields, samples []string, values [][]string) (*MetadataTable, error) {
	fieldAt, err := indexIDs(source, "field", fields)
	if err != nil {
		return nil, err
	}
	index, err := indexIDs(source, "sample", samples)
	if err != nil {
		return nil, err
	}

	return &MetadataTable{
		idField: idField,
		fields:  fields,
		samples: samples,
		values:  values,
		index:   index,
		fieldAt: fieldAt,
	}, nil
}

// IDField returns the name of the sample id column.
func (t *MetadataTable) IDField() string {
	return t.idField
}

// Fields returns the attribute names. The slice must not be modified.
func (t *MetadataTable) Fields() []string {
	return t.fields
}

// NumSamples returns the number of records.
func (t *MetadataTable) NumSamples() int {
	return len(t.samples)
}

// Samples returns the sample ids in table order. The slice must not be modified.
func (t *MetadataTable) Samples() []string {
	return t.samples
}

// SampleIndex returns the record position of sample id.
func (t *MetadataTable) SampleIndex(id string) (int, bool) {
	i, ok := t.index[id]
	return i, ok
}

// HasField reports whether field is an attribute of the table.
func (t *MetadataTable) HasField(field string) bool {
	_, ok := t.fieldAt[field]
	return ok
}

// Value returns attribute field of record i.
func (t *MetadataTable) Value(i int, field string) (string, bool) {
	f, ok := t.fieldAt[field]
	if !ok {
		return "", false
	}

	return t.values[i][f], true
}

// Float parses attribute field of record i as a number.
func (t *MetadataTable) Float(i int, field string) (float64, error) {
	v, ok := t.Value(i, field)
	if !ok {
		return 0, errs.InvalidArgument("unknown metadata field %q", field)
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("sample %s field %s: %w", t.samples[i], field, err)
	}

	return f, nil
}

// Record returns the attributes of record i keyed by field name.
func (t *MetadataTable) Record(i int) map[string]string {
	rec := make(map[string]string, len(t.fields))
	for f, name := range t.fields {
		rec[name] = t.values[i][f]
	}

	return rec
}

// Values returns the attributes of record i in Fields order. The slice must
// not be modified.
func (t *MetadataTable) Values(i int) []string {
	return t.values[i]
}

func (t *MetadataTable) subset(rows []int) *MetadataTable {
	samples := make([]string, len(rows))
	values := make([][]string, len(rows))
	index := make(map[string]int, len(rows))
	for k, i := range rows {
		samples[k] = t.samples[i]
		values[k] = t.values[i]
		index[samples[k]] = k
	}

	return &MetadataTable{
		idField: t.idField,
		fields:  t.fields,
		samples: samples,
		values:  values,
		index:   index,
		fieldAt: t.fieldAt,
	}
}
