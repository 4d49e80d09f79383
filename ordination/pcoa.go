package ordination

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/arloliu/otukit/errs"
)

// Method names the ordination technique of an Ordination.
type Method string

const (
	MethodPCoA Method = "PCoA"
	MethodNMDS Method = "NMDS"
)

// Ordination holds sample coordinates in k dimensions.
type Ordination struct {
	Method Method
	IDs    []string
	// Coords is n×k; row i holds the coordinates of IDs[i].
	Coords *mat.Dense
	// Eigenvalues of the retained PCoA axes, largest first.
	Eigenvalues []float64
	// Explained is the share of the positive eigenvalue sum carried by each
	// retained PCoA axis.
	Explained []float64
	// Stress is the Kruskal stress-1 of an NMDS solution.
	Stress float64
}

// Dims returns the number of axes.
func (o *Ordination) Dims() int {
	_, k := o.Coords.Dims()

	return k
}

// AxisNames returns "PCoA1", "PCoA2", ... or "NMDS1", ...
func (o *Ordination) AxisNames() []string {
	names := make([]string, o.Dims())
	for a := range names {
		names[a] = fmt.Sprintf("%s%d", o.Method, a+1)
	}

	return names
}

// Point returns the coordinates of sample i.
func (o *Ordination) Point(i int) []float64 {
	return mat.Row(nil, i, o.Coords)
}

// PCoA performs classical (Torgerson) scaling of dm into k dimensions.
//
// The squared dissimilarities are Gower-centred and decomposed with a
// symmetric eigendecomposition. Axes with a non-positive eigenvalue get zero
// coordinates; each eigenvector is signed so that its largest component is
// positive, which makes the output reproducible.
//
// Returns:
//   - *Ordination: Coordinates, eigenvalues and explained variance
//   - error: ErrInvalidArgument unless 1 <= k < dm.Len()
func PCoA(dm *DistanceMatrix, k int) (*Ordination, error) {
	n := dm.Len()
	if k < 1 || k >= n {
		return nil, errs.InvalidArgument("pcoa needs 1 <= k < %d samples, got k=%d", n, k)
	}

	b := gowerCentered(dm)

	var eig mat.EigenSym
	if ok := eig.Factorize(b, true); !ok {
		return nil, errs.InvalidArgument("eigendecomposition of the centred distance matrix did not converge")
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// EigenSym returns ascending eigenvalues
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case values[a] > values[b]:
			return -1
		case values[a] < values[b]:
			return 1
		}

		return 0
	})

	var positive float64
	for _, v := range values {
		if v > 0 {
			positive += v
		}
	}

	ord := &Ordination{
		Method:      MethodPCoA,
		IDs:         append([]string(nil), dm.IDs()...),
		Coords:      mat.NewDense(n, k, nil),
		Eigenvalues: make([]float64, k),
		Explained:   make([]float64, k),
	}
	for a := range k {
		col := order[a]
		lambda := values[col]
		ord.Eigenvalues[a] = lambda
		if positive > 0 && lambda > 0 {
			ord.Explained[a] = lambda / positive
		}
		if lambda <= 0 {
			continue
		}

		sign := eigenvectorSign(&vectors, col)
		scale := sign * math.Sqrt(lambda)
		for i := range n {
			ord.Coords.Set(i, a, vectors.At(i, col)*scale)
		}
	}

	return ord, nil
}

// gowerCentered returns B = -1/2 J D² J with J the centring matrix.
func gowerCentered(dm *DistanceMatrix) *mat.SymDense {
	n := dm.Len()
	a := mat.NewSymDense(n, nil)
	rowMean := make([]float64, n)
	var grand float64
	for i := range n {
		for j := i; j < n; j++ {
			d := dm.At(i, j)
			v := -0.5 * d * d
			a.SetSym(i, j, v)
			rowMean[i] += v
			grand += v
			if i != j {
				rowMean[j] += v
				grand += v
			}
		}
	}
	for i := range rowMean {
		rowMean[i] /= float64(n)
	}
	grand /= float64(n * n)

	b := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i; j < n; j++ {
			b.SetSym(i, j, a.At(i, j)-rowMean[i]-rowMean[j]+grand)
		}
	}

	return b
}

// eigenvectorSign returns the sign that makes the largest-magnitude
// component of column col positive.
func eigenvectorSign(vectors *mat.Dense, col int) float64 {
	rows, _ := vectors.Dims()
	best, bestAbs := 0.0, -1.0
	for i := range rows {
		v := vectors.At(i, col)
		if math.Abs(v) > bestAbs+1e-12 {
			best, bestAbs = v, math.Abs(v)
		}
	}
	if best < 0 {
		return -1
	}

	return 1
}
