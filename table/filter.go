package table

import (
	"slices"

	"github.com/arloliu/otukit/errs"
)

// Axis names the dimension a Predicate selects along.
type Axis uint8

const (
	SampleAxis Axis = iota + 1
	TaxonAxis
)

func (a Axis) String() string {
	switch a {
	case SampleAxis:
		return "samples"
	case TaxonAxis:
		return "taxa"
	default:
		return "unknown"
	}
}

// Predicate selects the samples or the taxa of a dataset to keep.
// Rank and field names are resolved when the predicate is applied, so an
// unknown rank surfaces as an error from Filter.
type Predicate struct {
	axis Axis
	bind func(ds *Dataset) (func(i int) bool, error)
}

// Axis reports whether p selects samples or taxa.
func (p Predicate) Axis() Axis {
	return p.axis
}

// MetadataEquals keeps samples whose metadata field equals one of values.
// Samples are never matched by a field the metadata does not have.
func MetadataEquals(field string, values ...string) Predicate {
	return Predicate{
		axis: SampleAxis,
		bind: func(ds *Dataset) (func(int) bool, error) {
			if !ds.metadata.HasField(field) {
				return nil, errs.InvalidArgument("unknown metadata field %q", field)
			}

			return func(i int) bool {
				v, _ := ds.metadata.Value(i, field)
				return slices.Contains(values, v)
			}, nil
		},
	}
}

// RankEquals keeps taxa whose label at rank equals one of labels.
// Unclassified taxa match the label Unassigned.
func RankEquals(rank string, labels ...string) Predicate {
	return Predicate{
		axis: TaxonAxis,
		bind: func(ds *Dataset) (func(int) bool, error) {
			k, err := ds.taxonomy.RankIndex(rank)
			if err != nil {
				return nil, err
			}

			return func(j int) bool {
				return slices.Contains(labels, ds.taxonomy.Label(j, k))
			}, nil
		},
	}
}

// SampleFunc keeps samples for which fn returns true. fn receives the
// sample id and its metadata record.
func SampleFunc(fn func(id string, record map[string]string) bool) Predicate {
	return Predicate{
		axis: SampleAxis,
		bind: func(ds *Dataset) (func(int) bool, error) {
			return func(i int) bool {
				return fn(ds.Samples()[i], ds.metadata.Record(i))
			}, nil
		},
	}
}

// TaxonFunc keeps taxa for which fn returns true. fn receives the taxon id
// and its lineage.
func TaxonFunc(fn func(id string, lineage []string) bool) Predicate {
	return Predicate{
		axis: TaxonAxis,
		bind: func(ds *Dataset) (func(int) bool, error) {
			return func(j int) bool {
				return fn(ds.Taxa()[j], ds.taxonomy.Lineage(j))
			}, nil
		},
	}
}

// Not inverts p on the same axis. The zero Predicate stays a no-op.
func Not(p Predicate) Predicate {
	if p.bind == nil {
		return p
	}

	return Predicate{
		axis: p.axis,
		bind: func(ds *Dataset) (func(int) bool, error) {
			keep, err := p.bind(ds)
			if err != nil {
				return nil, err
			}

			return func(i int) bool { return !keep(i) }, nil
		},
	}
}

// Filter returns a dataset holding only the samples and taxa accepted by
// every predicate. Sample and taxon predicates are combined independently;
// the receiver is unchanged.
//
// An error is returned if a predicate names an unknown rank or field, or if
// no sample or no taxon survives (*errs.EmptySampleGroupError).
func (ds *Dataset) Filter(preds ...Predicate) (*Dataset, error) {
	rows := seq(ds.NumSamples())
	cols := seq(ds.NumTaxa())

	for _, p := range preds {
		if p.bind == nil {
			continue
		}
		keep, err := p.bind(ds)
		if err != nil {
			return nil, err
		}
		switch p.axis {
		case SampleAxis:
			rows = slices.DeleteFunc(rows, func(i int) bool { return !keep(i) })
		case TaxonAxis:
			cols = slices.DeleteFunc(cols, func(j int) bool { return !keep(j) })
		}
	}

	if len(rows) == 0 {
		return nil, &errs.EmptySampleGroupError{Stage: "filter", Axis: SampleAxis.String()}
	}
	if len(cols) == 0 {
		return nil, &errs.EmptySampleGroupError{Stage: "filter", Axis: TaxonAxis.String()}
	}

	return ds.Subset(rows, cols), nil
}

// DropEmptyTaxa returns a dataset without the taxa that have no reads in
// any sample, as left behind by sample filtering.
func (ds *Dataset) DropEmptyTaxa() (*Dataset, error) {
	cols := make([]int, 0, ds.NumTaxa())
	for j := range ds.NumTaxa() {
		if ds.abundance.TaxonTotal(j) > 0 {
			cols = append(cols, j)
		}
	}
	if len(cols) == 0 {
		return nil, &errs.EmptySampleGroupError{Stage: "drop empty taxa", Axis: TaxonAxis.String()}
	}

	return ds.Subset(seq(ds.NumSamples()), cols), nil
}

// Group is one level of a metadata field and the samples that carry it.
type Group struct {
	Value   string
	Dataset *Dataset
}

// GroupBy splits the dataset by the value of a metadata field. Groups are
// returned in order of first appearance and keep every taxon.
func (ds *Dataset) GroupBy(field string) ([]Group, error) {
	if !ds.metadata.HasField(field) {
		return nil, errs.InvalidArgument("unknown metadata field %q", field)
	}

	var order []string
	members := make(map[string][]int)
	for i := range ds.NumSamples() {
		v, _ := ds.metadata.Value(i, field)
		if _, seen := members[v]; !seen {
			order = append(order, v)
		}
		members[v] = append(members[v], i)
	}

	cols := seq(ds.NumTaxa())
	groups := make([]Group, len(order))
	for g, v := range order {
		groups[g] = Group{Value: v, Dataset: ds.Subset(members[v], cols)}
	}

	return groups, nil
}

// Labels returns the value of a metadata field for every sample, in sample
// order, for use as a grouping vector.
func (ds *Dataset) Labels(field string) ([]string, error) {
	if !ds.metadata.HasField(field) {
		return nil, errs.InvalidArgument("unknown metadata field %q", field)
	}

	labels := make([]string, ds.NumSamples())
	for i := range labels {
		labels[i], _ = ds.metadata.Value(i, field)
	}

	return labels, nil
}
