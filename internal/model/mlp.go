package model

import "math"

// MLP is a single hidden layer network with ReLU activations and a
// sigmoid output, trained by full-batch gradient descent.
type MLP struct {
	HiddenUnits int
	Lr          float64
	Epochs      int
	Seed        int64

	W1 [][]float64 // hidden x input
	B1 []float64
	W2 []float64 // output weights over hidden
	B2 float64
}

func NewMLP() *MLP {
	return &MLP{HiddenUnits: 16, Lr: 0.05, Epochs: 200, Seed: DefaultSeed}
}

func (m *MLP) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errEmptyInput
	}
	n := len(X)
	p := len(X[0])
	h := m.HiddenUnits
	rng := newRNG(m.Seed)

	scale := math.Sqrt(2 / float64(p))
	m.W1 = make([][]float64, h)
	m.B1 = make([]float64, h)
	for j := range m.W1 {
		m.W1[j] = make([]float64, p)
		for k := range m.W1[j] {
			m.W1[j][k] = rng.NormFloat64() * scale
		}
	}
	m.W2 = make([]float64, h)
	outScale := math.Sqrt(1 / float64(h))
	for j := range m.W2 {
		m.W2[j] = rng.NormFloat64() * outScale
	}
	m.B2 = 0

	hidden := make([][]float64, n)
	for i := range hidden {
		hidden[i] = make([]float64, h)
	}
	gradW1 := make([][]float64, h)
	for j := range gradW1 {
		gradW1[j] = make([]float64, p)
	}
	gradB1 := make([]float64, h)
	gradW2 := make([]float64, h)

	for epoch := 0; epoch < m.Epochs; epoch++ {
		for j := range gradW1 {
			for k := range gradW1[j] {
				gradW1[j][k] = 0
			}
			gradB1[j] = 0
			gradW2[j] = 0
		}
		var gradB2 float64

		for i, x := range X {
			for j := 0; j < h; j++ {
				z := dot(m.W1[j], x) + m.B1[j]
				if z < 0 {
					z = 0
				}
				hidden[i][j] = z
			}
			out := sigmoid(dot(m.W2, hidden[i]) + m.B2)
			delta := out - float64(y[i])

			gradB2 += delta
			for j := 0; j < h; j++ {
				gradW2[j] += delta * hidden[i][j]
				if hidden[i][j] > 0 {
					dj := delta * m.W2[j]
					gradB1[j] += dj
					row := gradW1[j]
					for k, xv := range x {
						row[k] += dj * xv
					}
				}
			}
		}

		step := m.Lr / float64(n)
		for j := 0; j < h; j++ {
			for k := range m.W1[j] {
				m.W1[j][k] -= step * gradW1[j][k]
			}
			m.B1[j] -= step * gradB1[j]
			m.W2[j] -= step * gradW2[j]
		}
		m.B2 -= step * gradB2
	}
	return nil
}

func (m *MLP) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	hidden := make([]float64, len(m.W2))
	for i, x := range X {
		for j := range m.W1 {
			z := dot(m.W1[j], x) + m.B1[j]
			if z < 0 {
				z = 0
			}
			hidden[j] = z
		}
		out[i] = sigmoid(dot(m.W2, hidden) + m.B2)
	}
	return out
}
