// Package curvefit fits saturation models to rarefaction curves.
//
// A rarefaction curve gives the mean observed richness S of a sample at
// increasing subsampling depths d. Its shape tells whether sequencing was
// deep enough: a curve that has levelled off has observed most of the
// community. The package fits three candidate models by least squares on
// linearised data and ranks them by R²:
//
//   - Logarithmic: S = a + b * ln(d)
//   - Power: S = a * d^b
//   - Michaelis-Menten: S = a * d / (b + d)
//
// The Michaelis-Menten asymptote a estimates the richness the sample would
// reach at unlimited depth.
//
// # Usage
//
//	curves, err := diversity.Curve(ctx, ds, diversity.CurveDepths(5000, 20), 50, 42)
//	if err != nil {
//	    return err
//	}
//	for _, sc := range curves.Samples {
//	    result, err := curvefit.FitCurve(sc)
//	    if err != nil {
//	        continue // fewer than two points
//	    }
//	    fmt.Printf("%s: %s (R²=%.4f), asymptote %.1f\n",
//	        sc.SampleID, result.BestFit.Type, result.BestFit.RSquared, result.Asymptote)
//	}
//
// # Model Comparison
//
//	for _, model := range result.AllModels {
//	    fmt.Printf("%s: R²=%.4f, Formula=%s\n", model.Type, model.RSquared, model.Formula)
//	}
//
// Fitted estimators can be rebuilt from stored coefficients with
// NewEstimator, e.g. to extrapolate a curve in a plotting tool.
package curvefit
