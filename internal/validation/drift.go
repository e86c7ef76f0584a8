package validation

import (
	"math"
	"sort"

	"churn-intel/internal/dataset"
	"churn-intel/pkg/api"
)

// driftAlpha is the significance level below which a column is flagged
// as drifted. The check is advisory and never gates processing.
const driftAlpha = 0.05

// DetectDrift runs a two-sample Kolmogorov-Smirnov test for each
// numeric column shared between the current and reference tables.
// Null cells are dropped before testing.
func DetectDrift(current, reference *dataset.Table) []api.DriftStat {
	var report []api.DriftStat
	for _, col := range dataset.NumericColumns {
		cur := numericColumn(current, col)
		ref := numericColumn(reference, col)
		if len(cur) == 0 || len(ref) == 0 {
			continue
		}
		stat, p := ksTwoSample(cur, ref)
		report = append(report, api.DriftStat{
			Column:        col,
			Statistic:     stat,
			PValue:        p,
			DriftDetected: p < driftAlpha,
		})
	}
	return report
}

func numericColumn(t *dataset.Table, name string) []float64 {
	col, ok := t.Column(name)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(col))
	for _, v := range col {
		if dataset.IsNull(v) {
			continue
		}
		if f, err := dataset.Float(v); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// ksTwoSample computes the KS statistic for two samples and its
// asymptotic p-value.
func ksTwoSample(a, b []float64) (stat, pValue float64) {
	x := append([]float64(nil), a...)
	y := append([]float64(nil), b...)
	sort.Float64s(x)
	sort.Float64s(y)

	n1, n2 := len(x), len(y)
	var i, j int
	var d float64
	for i < n1 && j < n2 {
		v1, v2 := x[i], y[j]
		if v1 <= v2 {
			i++
		}
		if v2 <= v1 {
			j++
		}
		diff := math.Abs(float64(i)/float64(n1) - float64(j)/float64(n2))
		if diff > d {
			d = diff
		}
	}

	en := math.Sqrt(float64(n1) * float64(n2) / float64(n1+n2))
	return d, ksProbability((en + 0.12 + 0.11/en) * d)
}

// ksProbability evaluates the Kolmogorov survival function Q_KS(lambda).
func ksProbability(lambda float64) float64 {
	if lambda <= 0 {
		return 1
	}
	var sum float64
	sign := 1.0
	for j := 1; j <= 100; j++ {
		term := sign * math.Exp(-2*float64(j)*float64(j)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}
	p := 2 * sum
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
