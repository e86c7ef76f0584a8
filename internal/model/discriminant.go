package model

import "math"

// LDA is a linear discriminant with a pooled diagonal covariance.
type LDA struct {
	Priors [2]float64
	Mean   [2][]float64
	Var    []float64 // pooled per-feature variance
}

func NewLDA() *LDA { return &LDA{} }

func (m *LDA) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errEmptyInput
	}
	p := len(X[0])
	var counts [2]float64
	for k := 0; k < 2; k++ {
		m.Mean[k] = make([]float64, p)
	}
	for i, x := range X {
		k := y[i]
		counts[k]++
		for j, v := range x {
			m.Mean[k][j] += v
		}
	}
	for k := 0; k < 2; k++ {
		if counts[k] == 0 {
			continue
		}
		for j := range m.Mean[k] {
			m.Mean[k][j] /= counts[k]
		}
	}
	m.Var = make([]float64, p)
	for i, x := range X {
		k := y[i]
		for j, v := range x {
			d := v - m.Mean[k][j]
			m.Var[j] += d * d
		}
	}
	n := counts[0] + counts[1]
	for j := range m.Var {
		m.Var[j] = m.Var[j]/n + nbEpsilon
	}
	m.Priors[0] = counts[0] / n
	m.Priors[1] = counts[1] / n
	return nil
}

func (m *LDA) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = posteriorFromLogJoint(m.score(x, 0), m.score(x, 1))
	}
	return out
}

func (m *LDA) score(x []float64, k int) float64 {
	if m.Priors[k] == 0 {
		return math.Inf(-1)
	}
	s := math.Log(m.Priors[k])
	for j, v := range x {
		s += v*m.Mean[k][j]/m.Var[j] - m.Mean[k][j]*m.Mean[k][j]/(2*m.Var[j])
	}
	return s
}

// QDA keeps a per-class diagonal covariance, giving quadratic
// boundaries without matrix inversion.
type QDA struct {
	Priors [2]float64
	Mean   [2][]float64
	Var    [2][]float64
}

func NewQDA() *QDA { return &QDA{} }

func (m *QDA) Fit(X [][]float64, y []int) error {
	// Identical moments to GaussianNB; QDA differs only in how the
	// per-class covariances enter the decision scores, which for the
	// diagonal case coincides with the Gaussian likelihood.
	nb := &GaussianNB{}
	if err := nb.Fit(X, y); err != nil {
		return err
	}
	m.Priors = nb.Priors
	m.Mean = nb.Mean
	m.Var = nb.Var
	return nil
}

func (m *QDA) PredictProba(X [][]float64) []float64 {
	nb := &GaussianNB{Priors: m.Priors, Mean: m.Mean, Var: m.Var}
	return nb.PredictProba(X)
}
