package model

import "math"

const nbEpsilon = 1e-9

// GaussianNB assumes per-class, per-feature normal likelihoods.
type GaussianNB struct {
	Priors [2]float64
	Mean   [2][]float64
	Var    [2][]float64
}

func NewGaussianNB() *GaussianNB { return &GaussianNB{} }

func (m *GaussianNB) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errEmptyInput
	}
	p := len(X[0])
	var counts [2]float64
	for k := 0; k < 2; k++ {
		m.Mean[k] = make([]float64, p)
		m.Var[k] = make([]float64, p)
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
	for i, x := range X {
		k := y[i]
		for j, v := range x {
			d := v - m.Mean[k][j]
			m.Var[k][j] += d * d
		}
	}
	n := counts[0] + counts[1]
	for k := 0; k < 2; k++ {
		if counts[k] == 0 {
			continue
		}
		for j := range m.Var[k] {
			m.Var[k][j] = m.Var[k][j]/counts[k] + nbEpsilon
		}
		m.Priors[k] = counts[k] / n
	}
	return nil
}

func (m *GaussianNB) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = posteriorFromLogJoint(m.logJoint(x, 0), m.logJoint(x, 1))
	}
	return out
}

func (m *GaussianNB) logJoint(x []float64, k int) float64 {
	if m.Priors[k] == 0 {
		return math.Inf(-1)
	}
	ll := math.Log(m.Priors[k])
	for j, v := range x {
		d := v - m.Mean[k][j]
		ll += -0.5*math.Log(2*math.Pi*m.Var[k][j]) - d*d/(2*m.Var[k][j])
	}
	return ll
}

// BernoulliNB binarizes features at zero (inputs arrive centered by
// the robust scaler) and applies Laplace smoothing.
type BernoulliNB struct {
	Alpha  float64
	Priors [2]float64
	P      [2][]float64 // p(feature active | class)
}

func NewBernoulliNB() *BernoulliNB { return &BernoulliNB{Alpha: 1.0} }

func (m *BernoulliNB) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errEmptyInput
	}
	p := len(X[0])
	var counts [2]float64
	var active [2][]float64
	for k := 0; k < 2; k++ {
		active[k] = make([]float64, p)
	}
	for i, x := range X {
		k := y[i]
		counts[k]++
		for j, v := range x {
			if v > 0 {
				active[k][j]++
			}
		}
	}
	n := counts[0] + counts[1]
	for k := 0; k < 2; k++ {
		m.P[k] = make([]float64, p)
		for j := range m.P[k] {
			m.P[k][j] = (active[k][j] + m.Alpha) / (counts[k] + 2*m.Alpha)
		}
		m.Priors[k] = counts[k] / n
	}
	return nil
}

func (m *BernoulliNB) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = posteriorFromLogJoint(m.logJoint(x, 0), m.logJoint(x, 1))
	}
	return out
}

func (m *BernoulliNB) logJoint(x []float64, k int) float64 {
	if m.Priors[k] == 0 {
		return math.Inf(-1)
	}
	ll := math.Log(m.Priors[k])
	for j, v := range x {
		if v > 0 {
			ll += math.Log(m.P[k][j])
		} else {
			ll += math.Log(1 - m.P[k][j])
		}
	}
	return ll
}

// posteriorFromLogJoint normalizes two class log-joints into p(y=1).
func posteriorFromLogJoint(l0, l1 float64) float64 {
	if math.IsInf(l1, -1) {
		return 0
	}
	if math.IsInf(l0, -1) {
		return 1
	}
	max := math.Max(l0, l1)
	e0 := math.Exp(l0 - max)
	e1 := math.Exp(l1 - max)
	return e1 / (e0 + e1)
}
