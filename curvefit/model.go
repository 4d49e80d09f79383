package curvefit

import "fmt"

// Model is a fitted rarefaction model.
type Model struct {
	// Type is the model type.
	Type ModelType
	// Coefficients contains the model coefficients [a, b].
	Coefficients []float64
	// RSquared is the coefficient of determination on the original scale.
	RSquared float64
	// RMSE is the root mean square error on the original scale.
	RMSE float64
	// Formula is a human-readable representation of the model.
	Formula string
	// Estimator evaluates the fitted model.
	Estimator Estimator
}

// String returns a string representation of the model.
func (m *Model) String() string {
	return fmt.Sprintf("Model{Type: %s, R²: %.4f, RMSE: %.4f, Formula: %s}",
		m.Type, m.RSquared, m.RMSE, m.Formula)
}

// Result is the outcome of fitting one curve.
type Result struct {
	// BestFit is the model with the highest R².
	BestFit *Model
	// AllModels contains every fitted model ranked by R² (best first).
	AllModels []*Model
	// Asymptote is the Michaelis-Menten estimate of total richness, or NaN
	// when that model was not fitted or has no finite positive asymptote.
	Asymptote float64
}

// String returns a string representation of the result.
func (r *Result) String() string {
	if r.BestFit == nil {
		return "Result{BestFit: nil}"
	}

	return fmt.Sprintf("Result{BestFit: %s, TotalModels: %d, Asymptote: %.2f}",
		r.BestFit, len(r.AllModels), r.Asymptote)
}
