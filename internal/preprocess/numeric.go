// Package preprocess holds the fitted transforms every benchmark
// candidate shares: numeric columns are median-imputed, power-
// transformed for skew and robust-scaled; categorical columns are
// imputed with a constant sentinel and one-hot encoded with
// unknown-category tolerance. All state is fit on the training
// partition only and applied unchanged elsewhere.
package preprocess

import (
	"fmt"
	"math"
	"sort"

	"churn-intel/internal/dataset"
)

// NumericTransform is the per-column impute -> yeo-johnson -> robust
// scale chain. Fields are exported for gob serialization inside the
// scoring bundle.
type NumericTransform struct {
	ImputeValue float64 // training median of observed values
	Lambda      float64 // fitted yeo-johnson exponent
	Center      float64 // post-transform median
	Scale       float64 // post-transform IQR, 1 when degenerate
}

// FitNumeric learns the transform parameters from training values.
// NaN marks missing cells.
func FitNumeric(values []float64) (*NumericTransform, error) {
	observed := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}
	if len(observed) == 0 {
		return nil, fmt.Errorf("preprocess: no observed values to fit")
	}

	nt := &NumericTransform{ImputeValue: percentile(observed, 50)}

	imputed := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			imputed[i] = nt.ImputeValue
		} else {
			imputed[i] = v
		}
	}

	nt.Lambda = fitYeoJohnson(imputed)

	transformed := make([]float64, len(imputed))
	for i, v := range imputed {
		transformed[i] = yeoJohnson(v, nt.Lambda)
	}
	nt.Center = percentile(transformed, 50)
	nt.Scale = percentile(transformed, 75) - percentile(transformed, 25)
	if nt.Scale == 0 {
		nt.Scale = 1
	}
	return nt, nil
}

// Apply transforms a single value with the fitted parameters.
func (nt *NumericTransform) Apply(v float64) float64 {
	if math.IsNaN(v) {
		v = nt.ImputeValue
	}
	return (yeoJohnson(v, nt.Lambda) - nt.Center) / nt.Scale
}

// yeoJohnson applies the power transform for a given lambda.
func yeoJohnson(x, lambda float64) float64 {
	switch {
	case x >= 0 && lambda != 0:
		return (math.Pow(x+1, lambda) - 1) / lambda
	case x >= 0:
		return math.Log1p(x)
	case lambda != 2:
		return -(math.Pow(-x+1, 2-lambda) - 1) / (2 - lambda)
	default:
		return -math.Log1p(-x)
	}
}

// fitYeoJohnson maximizes the profile log-likelihood over a fixed
// deterministic grid.
func fitYeoJohnson(x []float64) float64 {
	bestLambda, bestLL := 1.0, math.Inf(-1)
	for lambda := -2.0; lambda <= 2.0+1e-9; lambda += 0.01 {
		ll := yeoJohnsonLogLikelihood(x, lambda)
		if ll > bestLL {
			bestLL, bestLambda = ll, lambda
		}
	}
	return bestLambda
}

func yeoJohnsonLogLikelihood(x []float64, lambda float64) float64 {
	n := float64(len(x))
	transformed := make([]float64, len(x))
	for i, v := range x {
		transformed[i] = yeoJohnson(v, lambda)
	}
	variance := varianceOf(transformed)
	if variance <= 0 {
		return math.Inf(-1)
	}
	ll := -n / 2 * math.Log(variance)
	for _, v := range x {
		if v >= 0 {
			ll += (lambda - 1) * math.Log1p(v)
		} else {
			ll += (1 - lambda) * math.Log1p(-v)
		}
	}
	return ll
}

func varianceOf(x []float64) float64 {
	n := float64(len(x))
	if n == 0 {
		return 0
	}
	var sum, sumSq float64
	for _, v := range x {
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	return sumSq/n - mean*mean
}

// percentile returns the q-th percentile with linear interpolation
// (allocates a sorted copy).
func percentile(x []float64, q float64) float64 {
	if len(x) == 0 {
		return 0
	}
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	pos := q / 100 * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return s[lo]
	}
	frac := pos - float64(lo)
	return s[lo]*(1-frac) + s[hi]*frac
}

// numericValues extracts a column as float64s with NaN for nulls and
// unparseable cells.
func numericValues(t *dataset.Table, column string) []float64 {
	col, ok := t.Column(column)
	if !ok {
		return nil
	}
	out := make([]float64, len(col))
	for i, v := range col {
		if dataset.IsNull(v) {
			out[i] = math.NaN()
			continue
		}
		f, err := dataset.Float(v)
		if err != nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = f
	}
	return out
}
