package curvefit

import (
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/arloliu/otukit/diversity"
	"github.com/arloliu/otukit/errs"
	"github.com/arloliu/otukit/internal/options"
)

// Fit fits the candidate models to richness y observed at depths x and
// ranks them by R².
//
// Parameters:
//   - x: Depths, all positive, at least two distinct
//   - y: Mean richness at each depth
//   - opts: WithModels, WithLogger
//
// Returns:
//   - *Result: Best-fit model, all fitted models and the richness asymptote
//   - error: ErrInvalidArgument for mismatched, too few or non-positive
//     points, or when no candidate model could be fitted
//
// Example:
//
//	result, err := curvefit.Fit([]float64{100, 200, 400, 800}, []float64{31, 48, 66, 79})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.BestFit.Formula)
func Fit(x, y []float64, opts ...Option) (*Result, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if err := checkPoints(x, y); err != nil {
		return nil, err
	}

	models := make([]*Model, 0, len(cfg.Models))
	for _, mt := range cfg.Models {
		var (
			m  *Model
			ok bool
		)
		switch mt {
		case ModelTypeLogarithmic:
			m, ok = fitLogarithmic(x, y)
		case ModelTypePower:
			m, ok = fitPower(x, y)
		case ModelTypeMichaelisMenten:
			m, ok = fitMichaelisMenten(x, y)
		}
		if !ok {
			cfg.Logger.Debug("model not applicable to curve", zap.Stringer("model", mt))
			continue
		}
		models = append(models, m)
	}
	if len(models) == 0 {
		return nil, errs.InvalidArgument("no candidate model could be fitted")
	}

	// Sort models by R² (best first); NaN sorts last
	slices.SortStableFunc(models, func(a, b *Model) int {
		switch {
		case math.IsNaN(a.RSquared) && math.IsNaN(b.RSquared):
			return 0
		case math.IsNaN(a.RSquared):
			return 1
		case math.IsNaN(b.RSquared):
			return -1
		case a.RSquared > b.RSquared:
			return -1
		case a.RSquared < b.RSquared:
			return 1
		}

		return 0
	})

	result := &Result{BestFit: models[0], AllModels: models, Asymptote: math.NaN()}
	for _, m := range models {
		if mm, ok := m.Estimator.(*MichaelisMentenEstimator); ok {
			result.Asymptote = mm.Asymptote()
		}
	}

	return result, nil
}

// FitCurve fits the points of one rarefaction curve.
func FitCurve(curve diversity.SampleCurve, opts ...Option) (*Result, error) {
	x := make([]float64, len(curve.Points))
	y := make([]float64, len(curve.Points))
	for i, p := range curve.Points {
		x[i] = float64(p.Depth)
		y[i] = p.RichnessMean
	}

	result, err := Fit(x, y, opts...)
	if err != nil {
		return nil, fmt.Errorf("sample %q: %w", curve.SampleID, err)
	}

	return result, nil
}

// SampleFit pairs a sample with the fit of its rarefaction curve.
type SampleFit struct {
	SampleID string
	*Result
}

// FitCurves fits every curve of res. Curves that cannot be fitted, typically
// samples too shallow to contribute two points, are logged and skipped.
func FitCurves(res *diversity.CurveResult, opts ...Option) ([]SampleFit, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	fits := make([]SampleFit, 0, len(res.Samples))
	for _, curve := range res.Samples {
		result, err := FitCurve(curve, opts...)
		if err != nil {
			cfg.Logger.Info("skipping rarefaction curve",
				zap.String("sample", curve.SampleID),
				zap.Int("points", len(curve.Points)),
				zap.Error(err))

			continue
		}
		fits = append(fits, SampleFit{SampleID: curve.SampleID, Result: result})
	}

	return fits, nil
}

func checkPoints(x, y []float64) error {
	if len(x) != len(y) {
		return errs.InvalidArgument("mismatched data lengths: %d depths vs %d richness values", len(x), len(y))
	}
	if len(x) < 2 {
		return errs.InvalidArgument("insufficient data points for curve fit: %d", len(x))
	}

	distinct := false
	for i, xi := range x {
		if !(xi > 0) || math.IsInf(xi, 0) {
			return errs.InvalidArgument("depth must be positive and finite, got %g", xi)
		}
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return errs.InvalidArgument("richness must be finite, got %g", y[i])
		}
		if xi != x[0] {
			distinct = true
		}
	}
	if !distinct {
		return errs.InvalidArgument("curve fit needs at least two distinct depths")
	}

	return nil
}

func allPositive(v []float64) bool {
	for _, x := range v {
		if x <= 0 {
			return false
		}
	}

	return true
}

func transform(v []float64, f func(float64) float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = f(x)
	}

	return out
}

func inverse(x float64) float64 { return 1 / x }

// fitLogarithmic fits S = a + b * ln(d) by least squares on X' = ln(d).
func fitLogarithmic(x, y []float64) (*Model, bool) {
	a, b := stat.LinearRegression(transform(x, math.Log), y, nil, false)

	return newModel(NewLogarithmicEstimator(a, b), x, y,
		fmt.Sprintf("S = %.2f + %.2f * ln(depth)", a, b)), true
}

// fitPower fits S = a * d^b by least squares on ln(S) = ln(a) + b*ln(d).
func fitPower(x, y []float64) (*Model, bool) {
	if !allPositive(y) {
		return nil, false
	}

	logA, b := stat.LinearRegression(transform(x, math.Log), transform(y, math.Log), nil, false)
	a := math.Exp(logA)

	return newModel(NewPowerEstimator(a, b), x, y,
		fmt.Sprintf("S = %.2f * depth^%.3f", a, b)), true
}

// fitMichaelisMenten fits S = a*d/(b+d) through the double reciprocal
// 1/S = 1/a + (b/a) * (1/d). A non-positive intercept has no finite
// asymptote and is rejected.
func fitMichaelisMenten(x, y []float64) (*Model, bool) {
	if !allPositive(y) {
		return nil, false
	}

	alpha, beta := stat.LinearRegression(transform(x, inverse), transform(y, inverse), nil, false)
	if !(alpha > 0) {
		return nil, false
	}
	a := 1 / alpha
	b := beta / alpha

	return newModel(NewMichaelisMentenEstimator(a, b), x, y,
		fmt.Sprintf("S = %.2f * depth / (%.2f + depth)", a, b)), true
}

func newModel(est Estimator, x, y []float64, formula string) *Model {
	predicted := make([]float64, len(x))
	for i, xi := range x {
		predicted[i] = est.Estimate(xi)
	}

	return &Model{
		Type:         est.Type(),
		Coefficients: est.Coefficients(),
		RSquared:     calculateRSquared(y, predicted),
		RMSE:         calculateRMSE(y, predicted),
		Formula:      formula,
		Estimator:    est,
	}
}

// calculateRSquared returns 1 - SSres/SStot on the original scale, or 0
// when y is constant.
func calculateRSquared(actual, predicted []float64) float64 {
	mean := stat.Mean(actual, nil)

	var ssRes, ssTot float64
	for i := range actual {
		ssRes += (actual[i] - predicted[i]) * (actual[i] - predicted[i])
		ssTot += (actual[i] - mean) * (actual[i] - mean)
	}
	if ssTot == 0 {
		return 0
	}

	return 1 - ssRes/ssTot
}

func calculateRMSE(actual, predicted []float64) float64 {
	var sum float64
	for i := range actual {
		diff := actual[i] - predicted[i]
		sum += diff * diff
	}

	return math.Sqrt(sum / float64(len(actual)))
}
