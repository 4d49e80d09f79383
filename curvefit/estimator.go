package curvefit

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// ModelType represents the type of rarefaction model.
type ModelType int

const (
	// ModelTypeLogarithmic represents S = a + b * ln(d).
	ModelTypeLogarithmic ModelType = iota
	// ModelTypePower represents S = a * d^b.
	ModelTypePower
	// ModelTypeMichaelisMenten represents S = a * d / (b + d).
	ModelTypeMichaelisMenten
)

var modelTypeNames = map[ModelType]string{
	ModelTypeLogarithmic:     "logarithmic",
	ModelTypePower:           "power",
	ModelTypeMichaelisMenten: "michaelis-menten",
}

// String returns the string representation of the model type.
func (mt ModelType) String() string {
	if name, exists := modelTypeNames[mt]; exists {
		return name
	}

	return "unknown"
}

// ModelTypeFromString returns the ModelType for a name, or ModelType(-1)
// for unknown names. "mm" is accepted for Michaelis-Menten.
func ModelTypeFromString(name string) ModelType {
	name = strings.ToLower(name)
	if name == "mm" {
		return ModelTypeMichaelisMenten
	}
	for mt, n := range modelTypeNames {
		if n == name {
			return mt
		}
	}

	return ModelType(-1)
}

// Estimator evaluates a fitted model.
type Estimator interface {
	// Estimate returns the predicted richness at depth.
	Estimate(depth float64) float64
	// Type returns the model type.
	Type() ModelType
	// Coefficients returns the model coefficients [a, b].
	Coefficients() []float64
	// SetCoefficients replaces the coefficients; exactly two are expected.
	SetCoefficients(coeffs []float64) error
}

// twoParam holds the coefficients shared by all models.
type twoParam struct {
	a, b float64
}

func (p *twoParam) Coefficients() []float64 {
	return []float64{p.a, p.b}
}

func (p *twoParam) set(name string, coeffs []float64) error {
	if len(coeffs) != 2 {
		return fmt.Errorf("%s model expects exactly 2 coefficients, got %d", name, len(coeffs))
	}
	p.a, p.b = coeffs[0], coeffs[1]

	return nil
}

// LogarithmicEstimator implements S = a + b * ln(d).
type LogarithmicEstimator struct{ twoParam }

// NewLogarithmicEstimator creates a logarithmic estimator.
func NewLogarithmicEstimator(a, b float64) *LogarithmicEstimator {
	return &LogarithmicEstimator{twoParam{a, b}}
}

// Estimate returns a + b*ln(depth), or NaN for a non-positive depth.
func (e *LogarithmicEstimator) Estimate(depth float64) float64 {
	if depth <= 0 {
		return math.NaN()
	}

	return e.a + e.b*math.Log(depth)
}

// Type returns ModelTypeLogarithmic.
func (e *LogarithmicEstimator) Type() ModelType { return ModelTypeLogarithmic }

// SetCoefficients sets [a, b].
func (e *LogarithmicEstimator) SetCoefficients(coeffs []float64) error {
	return e.set("logarithmic", coeffs)
}

// PowerEstimator implements S = a * d^b.
type PowerEstimator struct{ twoParam }

// NewPowerEstimator creates a power estimator.
func NewPowerEstimator(a, b float64) *PowerEstimator {
	return &PowerEstimator{twoParam{a, b}}
}

// Estimate returns a*depth^b, or NaN for a non-positive depth.
func (e *PowerEstimator) Estimate(depth float64) float64 {
	if depth <= 0 {
		return math.NaN()
	}

	return e.a * math.Pow(depth, e.b)
}

// Type returns ModelTypePower.
func (e *PowerEstimator) Type() ModelType { return ModelTypePower }

// SetCoefficients sets [a, b].
func (e *PowerEstimator) SetCoefficients(coeffs []float64) error {
	return e.set("power", coeffs)
}

// MichaelisMentenEstimator implements S = a * d / (b + d). a is the
// asymptotic richness and b the depth at which half of it is observed.
type MichaelisMentenEstimator struct{ twoParam }

// NewMichaelisMentenEstimator creates a Michaelis-Menten estimator.
func NewMichaelisMentenEstimator(a, b float64) *MichaelisMentenEstimator {
	return &MichaelisMentenEstimator{twoParam{a, b}}
}

// Estimate returns a*depth/(b+depth), or NaN for a negative depth.
func (e *MichaelisMentenEstimator) Estimate(depth float64) float64 {
	if depth < 0 {
		return math.NaN()
	}

	return e.a * depth / (e.b + depth)
}

// Type returns ModelTypeMichaelisMenten.
func (e *MichaelisMentenEstimator) Type() ModelType { return ModelTypeMichaelisMenten }

// SetCoefficients sets [a, b].
func (e *MichaelisMentenEstimator) SetCoefficients(coeffs []float64) error {
	return e.set("michaelis-menten", coeffs)
}

// Asymptote returns a, the richness approached as depth grows.
func (e *MichaelisMentenEstimator) Asymptote() float64 {
	return e.a
}

// NewEstimator creates an estimator by model name and coefficients.
//
// Example:
//
//	est, err := curvefit.NewEstimator("michaelis-menten", []float64{412.5, 1830})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(est.Estimate(10000))
func NewEstimator(name string, coeffs []float64) (Estimator, error) {
	var est Estimator
	switch ModelTypeFromString(name) {
	case ModelTypeLogarithmic:
		est = NewLogarithmicEstimator(0, 0)
	case ModelTypePower:
		est = NewPowerEstimator(0, 0)
	case ModelTypeMichaelisMenten:
		est = NewMichaelisMentenEstimator(0, 0)
	default:
		supported := make([]string, 0, len(modelTypeNames))
		for _, n := range modelTypeNames {
			supported = append(supported, n)
		}
		slices.Sort(supported)

		return nil, fmt.Errorf("unknown model type: %s. Supported types: %s", name, strings.Join(supported, ", "))
	}

	if err := est.SetCoefficients(coeffs); err != nil {
		return nil, err
	}

	return est, nil
}
