package model

import "errors"

var errEmptyInput = errors.New("model: empty training input")

// LinearModel is the shared weight vector + bias for margin learners.
// The embedded field must stay exported: gob silently drops unexported
// fields, which would strip the fitted weights from a saved bundle.
type LinearModel struct {
	W []float64
	B float64
}

func (m *LinearModel) margin(x []float64) float64 { return dot(m.W, x) + m.B }

func (m *LinearModel) probaAll(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = sigmoid(m.margin(x))
	}
	return out
}

// LogisticRegression is full-batch gradient descent on the log loss.
type LogisticRegression struct {
	LinearModel
	Lr     float64
	Epochs int
	L2     float64
}

func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{Lr: 0.1, Epochs: 300}
}

func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errEmptyInput
	}
	n, p := len(X), len(X[0])
	m.W = make([]float64, p)
	m.B = 0
	for ep := 0; ep < m.Epochs; ep++ {
		gW := make([]float64, p)
		gB := 0.0
		for i, x := range X {
			err := sigmoid(m.margin(x)) - float64(y[i])
			for j, v := range x {
				gW[j] += err * v
			}
			gB += err
		}
		for j := range m.W {
			m.W[j] -= m.Lr * (gW[j]/float64(n) + m.L2*m.W[j])
		}
		m.B -= m.Lr * gB / float64(n)
	}
	return nil
}

func (m *LogisticRegression) PredictProba(X [][]float64) []float64 { return m.probaAll(X) }

// RidgeClassifier is logistic regression under a strong L2 penalty.
type RidgeClassifier struct {
	LogisticRegression
}

func NewRidgeClassifier() *RidgeClassifier {
	r := &RidgeClassifier{}
	r.Lr = 0.1
	r.Epochs = 300
	r.L2 = 1.0
	return r
}

// SGDClassifier optimizes the log loss one sample at a time with an
// inverse-scaling learning rate.
type SGDClassifier struct {
	LinearModel
	Lr     float64
	Epochs int
	L2     float64
	Seed   int64
}

func NewSGDClassifier() *SGDClassifier {
	return &SGDClassifier{Lr: 0.05, Epochs: 20, L2: 1e-4, Seed: DefaultSeed}
}

func (m *SGDClassifier) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errEmptyInput
	}
	p := len(X[0])
	m.W = make([]float64, p)
	m.B = 0
	rng := newRNG(m.Seed)
	step := 0
	for ep := 0; ep < m.Epochs; ep++ {
		for _, i := range rng.Perm(len(X)) {
			step++
			lr := m.Lr / (1 + m.Lr*m.L2*float64(step))
			err := sigmoid(m.margin(X[i])) - float64(y[i])
			for j, v := range X[i] {
				m.W[j] -= lr * (err*v + m.L2*m.W[j])
			}
			m.B -= lr * err
		}
	}
	return nil
}

func (m *SGDClassifier) PredictProba(X [][]float64) []float64 { return m.probaAll(X) }

// Perceptron is the classic mistake-driven update rule. Probabilities
// are a sigmoid over the raw margin, good enough for ranking.
type Perceptron struct {
	LinearModel
	Epochs int
	Seed   int64
}

func NewPerceptron() *Perceptron { return &Perceptron{Epochs: 30, Seed: DefaultSeed} }

func (m *Perceptron) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errEmptyInput
	}
	m.W = make([]float64, len(X[0]))
	m.B = 0
	t := signLabels(y)
	rng := newRNG(m.Seed)
	for ep := 0; ep < m.Epochs; ep++ {
		for _, i := range rng.Perm(len(X)) {
			if t[i]*m.margin(X[i]) <= 0 {
				for j, v := range X[i] {
					m.W[j] += t[i] * v
				}
				m.B += t[i]
			}
		}
	}
	return nil
}

func (m *Perceptron) PredictProba(X [][]float64) []float64 { return m.probaAll(X) }

// PassiveAggressive implements the PA-I hinge update with
// aggressiveness capped at C.
type PassiveAggressive struct {
	LinearModel
	C      float64
	Epochs int
	Seed   int64
}

func NewPassiveAggressive() *PassiveAggressive {
	return &PassiveAggressive{C: 1.0, Epochs: 20, Seed: DefaultSeed}
}

func (m *PassiveAggressive) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errEmptyInput
	}
	m.W = make([]float64, len(X[0]))
	m.B = 0
	t := signLabels(y)
	rng := newRNG(m.Seed)
	for ep := 0; ep < m.Epochs; ep++ {
		for _, i := range rng.Perm(len(X)) {
			loss := 1 - t[i]*m.margin(X[i])
			if loss <= 0 {
				continue
			}
			norm := dot(X[i], X[i]) + 1
			tau := loss / norm
			if tau > m.C {
				tau = m.C
			}
			for j, v := range X[i] {
				m.W[j] += tau * t[i] * v
			}
			m.B += tau * t[i]
		}
	}
	return nil
}

func (m *PassiveAggressive) PredictProba(X [][]float64) []float64 { return m.probaAll(X) }

// LinearSVM is a Pegasos-style hinge-loss SGD with L2 regularization.
type LinearSVM struct {
	LinearModel
	Lambda float64
	Epochs int
	Seed   int64
}

func NewLinearSVM() *LinearSVM {
	return &LinearSVM{Lambda: 1e-4, Epochs: 20, Seed: DefaultSeed}
}

func (m *LinearSVM) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errEmptyInput
	}
	m.W = make([]float64, len(X[0]))
	m.B = 0
	t := signLabels(y)
	rng := newRNG(m.Seed)
	step := 0
	for ep := 0; ep < m.Epochs; ep++ {
		for _, i := range rng.Perm(len(X)) {
			step++
			lr := 1 / (m.Lambda * float64(step))
			if t[i]*m.margin(X[i]) < 1 {
				for j, v := range X[i] {
					m.W[j] += lr * (t[i]*v - m.Lambda*m.W[j])
				}
				m.B += lr * t[i]
			} else {
				for j := range m.W {
					m.W[j] -= lr * m.Lambda * m.W[j]
				}
			}
		}
	}
	return nil
}

func (m *LinearSVM) PredictProba(X [][]float64) []float64 { return m.probaAll(X) }
