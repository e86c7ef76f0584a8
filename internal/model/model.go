// Package model implements the candidate classifier suite used by the
// benchmark runner. Every classifier is pure Go, deterministic for a
// fixed seed, and serializable with gob so a fitted champion can ride
// inside the persisted scoring bundle.
package model

import (
	"encoding/gob"
	"math"
	"math/rand"
)

// DefaultSeed keeps training runs reproducible across processes.
const DefaultSeed int64 = 42

// Classifier is a binary classifier over a numeric feature matrix.
// Labels are 0/1; PredictProba returns p(y=1) per row.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	PredictProba(X [][]float64) []float64
}

func init() {
	// Concrete types must be registered so a Classifier interface field
	// survives a gob round-trip inside the bundle.
	gob.Register(&LogisticRegression{})
	gob.Register(&RidgeClassifier{})
	gob.Register(&SGDClassifier{})
	gob.Register(&Perceptron{})
	gob.Register(&PassiveAggressive{})
	gob.Register(&LinearSVM{})
	gob.Register(&GaussianNB{})
	gob.Register(&BernoulliNB{})
	gob.Register(&LDA{})
	gob.Register(&QDA{})
	gob.Register(&KNN{})
	gob.Register(&NearestCentroid{})
	gob.Register(&DecisionTree{})
	gob.Register(&RandomForest{})
	gob.Register(&ExtraTrees{})
	gob.Register(&GradientBoosting{})
	gob.Register(&AdaBoost{})
	gob.Register(&MLP{})
}

// Predict thresholds probabilities at 0.5.
func Predict(c Classifier, X [][]float64) []int {
	return BinaryFromProba(c.PredictProba(X), 0.5)
}

// BinaryFromProba converts probabilities to 0/1 labels at a threshold.
func BinaryFromProba(proba []float64, threshold float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= threshold {
			out[i] = 1
		}
	}
	return out
}

func sigmoid(z float64) float64 {
	// Clamp to keep exp in range; beyond this the result saturates anyway.
	if z > 35 {
		return 1
	}
	if z < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}

func dot(w, x []float64) float64 {
	s := 0.0
	for i, v := range x {
		s += w[i] * v
	}
	return s
}

func newRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = DefaultSeed
	}
	return rand.New(rand.NewSource(seed))
}

// signLabels maps 0/1 labels onto -1/+1 for margin-based learners.
func signLabels(y []int) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		if v == 1 {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out
}
