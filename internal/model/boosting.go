package model

import (
	"math"
	"sort"
)

// GradientBoosting fits shallow regression trees to the log-loss
// gradient with Newton leaf values.
type GradientBoosting struct {
	NEstimators  int
	LearningRate float64
	MaxDepth     int

	Base  float64 // initial log-odds
	Trees []*regressionTree
}

func NewGradientBoosting() *GradientBoosting {
	return &GradientBoosting{NEstimators: 100, LearningRate: 0.1, MaxDepth: 3}
}

func (m *GradientBoosting) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errEmptyInput
	}
	n := len(X)
	positives := 0
	for _, v := range y {
		positives += v
	}
	p := float64(positives) / float64(n)
	// Degenerate single-class training data still yields a usable
	// constant model.
	p = math.Min(math.Max(p, 1e-6), 1-1e-6)
	m.Base = math.Log(p / (1 - p))

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = m.Base
	}

	m.Trees = make([]*regressionTree, 0, m.NEstimators)
	grad := make([]float64, n)
	hess := make([]float64, n)
	for round := 0; round < m.NEstimators; round++ {
		for i := range scores {
			pi := sigmoid(scores[i])
			grad[i] = pi - float64(y[i])
			hess[i] = pi * (1 - pi)
		}
		tree := &regressionTree{MaxDepth: m.MaxDepth, MinSamplesLeaf: 1}
		tree.fit(X, grad, hess)
		m.Trees = append(m.Trees, tree)
		for i, x := range X {
			scores[i] += m.LearningRate * tree.predict(x)
		}
	}
	return nil
}

func (m *GradientBoosting) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		score := m.Base
		for _, tree := range m.Trees {
			score += m.LearningRate * tree.predict(x)
		}
		out[i] = sigmoid(score)
	}
	return out
}

// AdaBoost combines weighted decision stumps (SAMME).
type AdaBoost struct {
	NEstimators int

	Stumps []Stump
	Alphas []float64
}

// Stump is a single-feature threshold rule voting -1/+1.
type Stump struct {
	Feature   int
	Threshold float64
	Polarity  float64 // +1: x > threshold votes positive
}

func (s Stump) vote(x []float64) float64 {
	if x[s.Feature] > s.Threshold {
		return s.Polarity
	}
	return -s.Polarity
}

func NewAdaBoost() *AdaBoost { return &AdaBoost{NEstimators: 50} }

func (m *AdaBoost) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errEmptyInput
	}
	n := len(X)
	t := signLabels(y)
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1 / float64(n)
	}

	m.Stumps = m.Stumps[:0]
	m.Alphas = m.Alphas[:0]
	for round := 0; round < m.NEstimators; round++ {
		stump, errRate := bestStump(X, t, weights)
		if errRate >= 0.5-1e-10 {
			break // no weak learner left with edge
		}
		if errRate < 1e-10 {
			errRate = 1e-10
		}
		alpha := 0.5 * math.Log((1-errRate)/errRate)
		m.Stumps = append(m.Stumps, stump)
		m.Alphas = append(m.Alphas, alpha)

		var total float64
		for i, x := range X {
			weights[i] *= math.Exp(-alpha * t[i] * stump.vote(x))
			total += weights[i]
		}
		for i := range weights {
			weights[i] /= total
		}
	}
	if len(m.Stumps) == 0 {
		// Fall back to a constant vote when the data has no usable cut.
		m.Stumps = append(m.Stumps, Stump{Feature: 0, Threshold: math.Inf(-1), Polarity: 1})
		m.Alphas = append(m.Alphas, 0)
	}
	return nil
}

func (m *AdaBoost) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		var score float64
		for s, stump := range m.Stumps {
			score += m.Alphas[s] * stump.vote(x)
		}
		out[i] = sigmoid(2 * score)
	}
	return out
}

// bestStump scans every feature/threshold pair for the lowest weighted
// error under either polarity.
func bestStump(X [][]float64, t, weights []float64) (Stump, float64) {
	p := len(X[0])
	best := Stump{Feature: 0, Threshold: 0, Polarity: 1}
	bestErr := math.Inf(1)

	for f := 0; f < p; f++ {
		values := make([]float64, 0, len(X))
		seen := map[float64]struct{}{}
		for _, x := range X {
			if _, ok := seen[x[f]]; ok {
				continue
			}
			seen[x[f]] = struct{}{}
			values = append(values, x[f])
		}
		sort.Float64s(values)
		for _, th := range values {
			for _, polarity := range []float64{1, -1} {
				s := Stump{Feature: f, Threshold: th, Polarity: polarity}
				var werr float64
				for i, x := range X {
					if s.vote(x) != t[i] {
						werr += weights[i]
					}
				}
				if werr < bestErr {
					bestErr = werr
					best = s
				}
			}
		}
	}
	return best, bestErr
}
