package ordination

import (
	"errors"
	"math"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/otukit/errs"
	"github.com/arloliu/otukit/internal/collision"
	"github.com/arloliu/otukit/internal/options"
	"github.com/arloliu/otukit/internal/pool"
	"github.com/arloliu/otukit/table"
)

// Metric is a dissimilarity between two abundance profiles.
type Metric int

const (
	// BrayCurtis is Σ|x-y| / Σ(x+y).
	BrayCurtis Metric = iota
	// Jaccard is 1 - |A∩B| / |A∪B| over the sets of present taxa.
	Jaccard
	// Euclidean is the L2 distance.
	Euclidean
	// Cosine is 1 - x·y / (|x||y|).
	Cosine
)

var metricNames = map[Metric]string{
	BrayCurtis: "bray-curtis",
	Jaccard:    "jaccard",
	Euclidean:  "euclidean",
	Cosine:     "cosine",
}

// String returns the metric name.
func (m Metric) String() string {
	if name, ok := metricNames[m]; ok {
		return name
	}

	return "unknown"
}

// ParseMetric returns the metric with the given name. "bray" and
// "braycurtis" are accepted for Bray-Curtis.
func ParseMetric(name string) (Metric, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "bray", "braycurtis", "bray_curtis":
		return BrayCurtis, nil
	default:
		for m, mn := range metricNames {
			if mn == n {
				return m, nil
			}
		}
	}

	return 0, errs.InvalidArgument("unknown distance metric %q", name)
}

func (m Metric) fn() func(x, y []float64) float64 {
	switch m {
	case Jaccard:
		return jaccard
	case Euclidean:
		return euclidean
	case Cosine:
		return cosine
	default:
		return brayCurtis
	}
}

// DistanceMatrix is a symmetric, non-negative dissimilarity matrix with a
// zero diagonal, labelled by sample id.
type DistanceMatrix struct {
	ids    []string
	index  map[string]int
	metric Metric
	m      *mat.SymDense
}

// NewDistanceMatrix builds a DistanceMatrix from a full square matrix.
//
// Returns:
//   - *DistanceMatrix: The matrix
//   - error: ErrInvalidArgument when values is not square, not symmetric,
//     has a non-zero diagonal or a negative or non-finite entry;
//     *errs.MalformedInputError for duplicate or empty ids
func NewDistanceMatrix(ids []string, metric Metric, values [][]float64) (*DistanceMatrix, error) {
	n := len(ids)
	if n == 0 {
		return nil, errs.InvalidArgument("distance matrix needs at least one sample")
	}
	if len(values) != n {
		return nil, errs.InvalidArgument("distance matrix has %d rows for %d samples", len(values), n)
	}
	index, err := indexSamples(ids)
	if err != nil {
		return nil, err
	}

	m := mat.NewSymDense(n, nil)
	for i, row := range values {
		if len(row) != n {
			return nil, errs.InvalidArgument("distance matrix row %q has %d columns, want %d", ids[i], len(row), n)
		}
		if row[i] != 0 {
			return nil, errs.InvalidArgument("distance of %q to itself is %g", ids[i], row[i])
		}
		for j := i + 1; j < n; j++ {
			v := row[j]
			if !(v >= 0) || math.IsInf(v, 0) {
				return nil, errs.InvalidArgument("distance %q-%q is %g", ids[i], ids[j], v)
			}
			if values[j][i] != v {
				return nil, errs.InvalidArgument("distance matrix is not symmetric at %q-%q", ids[i], ids[j])
			}
			m.SetSym(i, j, v)
		}
	}

	return &DistanceMatrix{ids: append([]string(nil), ids...), index: index, metric: metric, m: m}, nil
}

func indexSamples(ids []string) (map[string]int, error) {
	tracker := collision.NewTracker(len(ids))
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		if err := tracker.Track(id); err != nil {
			reason := "duplicate sample id"
			if errors.Is(err, errs.ErrEmptyID) {
				reason = "empty sample id"
			}

			return nil, &errs.MalformedInputError{Source: "distance matrix", Reason: reason, IDs: []string{id}, Err: err}
		}
		index[id] = i
	}

	return index, nil
}

// Len returns the number of samples.
func (dm *DistanceMatrix) Len() int {
	return len(dm.ids)
}

// IDs returns the sample ids in matrix order.
func (dm *DistanceMatrix) IDs() []string {
	return dm.ids
}

// Metric returns the metric the matrix was computed with.
func (dm *DistanceMatrix) Metric() Metric {
	return dm.metric
}

// At returns the dissimilarity between samples i and j.
func (dm *DistanceMatrix) At(i, j int) float64 {
	return dm.m.At(i, j)
}

// Between returns the dissimilarity between two samples by id.
func (dm *DistanceMatrix) Between(a, b string) (float64, bool) {
	i, ok := dm.index[a]
	if !ok {
		return 0, false
	}
	j, ok := dm.index[b]
	if !ok {
		return 0, false
	}

	return dm.m.At(i, j), true
}

// Symmetric returns the matrix as a read-only gonum view.
func (dm *DistanceMatrix) Symmetric() mat.Symmetric {
	return dm.m
}

// Distance computes the pairwise dissimilarity between all samples of ds.
//
// Parameters:
//   - ds: The dataset
//   - metric: The dissimilarity
//   - opts: WithRelative, WithLogger
//
// Returns:
//   - *DistanceMatrix: Samples in dataset order
//   - error: *errs.EmptySampleGroupError for a dataset without samples
func Distance(ds *table.Dataset, metric Metric, opts ...Option) (*DistanceMatrix, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if _, ok := metricNames[metric]; !ok {
		return nil, errs.InvalidArgument("unknown distance metric %d", int(metric))
	}

	n := ds.NumSamples()
	if n == 0 {
		return nil, &errs.EmptySampleGroupError{Stage: "distance", Axis: "samples"}
	}

	abund := ds.Abundance()
	t := abund.NumTaxa()
	backing, release := pool.GetFloat64Slice(n * t)
	defer release()

	profiles := make([][]float64, n)
	for i := range profiles {
		row := abund.Row(i)
		p := backing[i*t : (i+1)*t : (i+1)*t]
		scale := 1.0
		if cfg.Relative {
			if total := abund.Total(i); total > 0 {
				scale = 1 / float64(total)
			}
		}
		for j, c := range row {
			p[j] = float64(c) * scale
		}
		profiles[i] = p
	}

	dist := metric.fn()
	m := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i + 1; j < n; j++ {
			m.SetSym(i, j, dist(profiles[i], profiles[j]))
		}
	}

	cfg.Logger.Debug("distance matrix computed",
		zap.Stringer("metric", metric),
		zap.Bool("relative", cfg.Relative),
		zap.Int("samples", n))

	index := make(map[string]int, n)
	for i, id := range ds.Samples() {
		index[id] = i
	}

	return &DistanceMatrix{ids: append([]string(nil), ds.Samples()...), index: index, metric: metric, m: m}, nil
}

func brayCurtis(x, y []float64) float64 {
	var diff, sum float64
	for i := range x {
		diff += math.Abs(x[i] - y[i])
		sum += x[i] + y[i]
	}
	if sum == 0 {
		return 0
	}

	return diff / sum
}

func jaccard(x, y []float64) float64 {
	var inter, union int
	for i := range x {
		a, b := x[i] > 0, y[i] > 0
		if a || b {
			union++
		}
		if a && b {
			inter++
		}
	}
	if union == 0 {
		return 0
	}

	return 1 - float64(inter)/float64(union)
}

func euclidean(x, y []float64) float64 {
	var sum float64
	for i := range x {
		d := x[i] - y[i]
		sum += d * d
	}

	return math.Sqrt(sum)
}

// cosine returns 1 for a zero profile.
func cosine(x, y []float64) float64 {
	var dot, mag1, mag2 float64
	for i := range x {
		dot += x[i] * y[i]
		mag1 += x[i] * x[i]
		mag2 += y[i] * y[i]
	}
	r := 1.0 - dot/math.Sqrt(mag1*mag2)
	if math.IsNaN(r) {
		return 1.0
	}

	return max(r, 0)
}
