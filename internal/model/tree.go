package model

import (
	"math/rand"
	"sort"
)

// TreeNode is one node of a fitted CART tree. Exported so fitted trees
// survive the bundle's gob round-trip.
type TreeNode struct {
	Leaf      bool
	Feature   int
	Threshold float64
	Left      *TreeNode
	Right     *TreeNode
	Proba     float64 // leaf: fraction of positive samples
	Value     float64 // leaf: regression output (boosting only)
	Samples   int
}

// DecisionTree is a CART classifier using gini impurity.
type DecisionTree struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 => all features
	RandomThreshold bool
	Seed            int64

	Root *TreeNode
}

func NewDecisionTree() *DecisionTree {
	return &DecisionTree{MaxDepth: 8, MinSamplesSplit: 2, MinSamplesLeaf: 1, Seed: DefaultSeed}
}

func (t *DecisionTree) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errEmptyInput
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.Root = t.grow(X, y, idx, 0, newRNG(t.Seed))
	return nil
}

func (t *DecisionTree) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = t.Root.traverse(x).Proba
	}
	return out
}

func (n *TreeNode) traverse(x []float64) *TreeNode {
	for !n.Leaf {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n
}

func (t *DecisionTree) grow(X [][]float64, y []int, idx []int, depth int, rng *rand.Rand) *TreeNode {
	positives := 0
	for _, i := range idx {
		positives += y[i]
	}
	proba := float64(positives) / float64(len(idx))

	if depth >= t.MaxDepth || len(idx) < t.MinSamplesSplit || positives == 0 || positives == len(idx) {
		return &TreeNode{Leaf: true, Proba: proba, Samples: len(idx)}
	}

	feature, threshold, ok := t.bestSplit(X, y, idx, rng)
	if !ok {
		return &TreeNode{Leaf: true, Proba: proba, Samples: len(idx)}
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < t.MinSamplesLeaf || len(right) < t.MinSamplesLeaf {
		return &TreeNode{Leaf: true, Proba: proba, Samples: len(idx)}
	}

	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      t.grow(X, y, left, depth+1, rng),
		Right:     t.grow(X, y, right, depth+1, rng),
		Samples:   len(idx),
	}
}

func (t *DecisionTree) bestSplit(X [][]float64, y []int, idx []int, rng *rand.Rand) (int, float64, bool) {
	p := len(X[0])
	features := t.candidateFeatures(p, rng)

	bestGain, bestFeature, bestThreshold := 0.0, -1, 0.0
	parent := giniOf(y, idx)

	for _, f := range features {
		thresholds := t.thresholds(X, idx, f, rng)
		for _, th := range thresholds {
			var nL, pL, nR, pR int
			for _, i := range idx {
				if X[i][f] <= th {
					nL++
					pL += y[i]
				} else {
					nR++
					pR += y[i]
				}
			}
			if nL == 0 || nR == 0 {
				continue
			}
			wL := float64(nL) / float64(len(idx))
			gain := parent - wL*gini(pL, nL) - (1-wL)*gini(pR, nR)
			if gain > bestGain+1e-12 {
				bestGain, bestFeature, bestThreshold = gain, f, th
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func (t *DecisionTree) candidateFeatures(p int, rng *rand.Rand) []int {
	k := t.MaxFeatures
	if k <= 0 || k >= p {
		all := make([]int, p)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return rng.Perm(p)[:k]
}

// thresholds picks split candidates for a feature: midpoints between
// sorted unique values, or a single random cut in extra-trees mode.
func (t *DecisionTree) thresholds(X [][]float64, idx []int, f int, rng *rand.Rand) []float64 {
	values := make([]float64, 0, len(idx))
	for _, i := range idx {
		values = append(values, X[i][f])
	}
	sort.Float64s(values)

	if t.RandomThreshold {
		lo, hi := values[0], values[len(values)-1]
		if lo == hi {
			return nil
		}
		return []float64{lo + rng.Float64()*(hi-lo)}
	}

	var out []float64
	for i := 1; i < len(values); i++ {
		if values[i] != values[i-1] {
			out = append(out, (values[i]+values[i-1])/2)
		}
	}
	return out
}

func gini(positives, total int) float64 {
	p := float64(positives) / float64(total)
	return 2 * p * (1 - p)
}

func giniOf(y []int, idx []int) float64 {
	positives := 0
	for _, i := range idx {
		positives += y[i]
	}
	return gini(positives, len(idx))
}

// regressionTree is the shallow variance-reduction tree used inside
// gradient boosting. Leaf values are Newton steps for the log loss.
type regressionTree struct {
	MaxDepth       int
	MinSamplesLeaf int
	Root           *TreeNode
}

func (t *regressionTree) fit(X [][]float64, grad, hess []float64) {
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.Root = t.grow(X, grad, hess, idx, 0)
}

func (t *regressionTree) predict(x []float64) float64 {
	return t.Root.traverse(x).Value
}

func (t *regressionTree) grow(X [][]float64, grad, hess []float64, idx []int, depth int) *TreeNode {
	if depth >= t.MaxDepth || len(idx) <= 2*t.MinSamplesLeaf {
		return t.leaf(grad, hess, idx)
	}
	feature, threshold, ok := t.bestSplit(X, grad, idx)
	if !ok {
		return t.leaf(grad, hess, idx)
	}
	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < t.MinSamplesLeaf || len(right) < t.MinSamplesLeaf {
		return t.leaf(grad, hess, idx)
	}
	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      t.grow(X, grad, hess, left, depth+1),
		Right:     t.grow(X, grad, hess, right, depth+1),
		Samples:   len(idx),
	}
}

func (t *regressionTree) leaf(grad, hess []float64, idx []int) *TreeNode {
	var g, h float64
	for _, i := range idx {
		g += grad[i]
		h += hess[i]
	}
	value := 0.0
	if h > 1e-12 {
		value = -g / h
	}
	return &TreeNode{Leaf: true, Value: value, Samples: len(idx)}
}

// bestSplit maximizes the between-group variance of the gradient,
// which for squared error equals the SSE reduction of the split.
func (t *regressionTree) bestSplit(X [][]float64, grad []float64, idx []int) (int, float64, bool) {
	p := len(X[0])
	var total float64
	for _, i := range idx {
		total += grad[i]
	}
	baseline := total * total / float64(len(idx))

	bestGain, bestFeature, bestThreshold := 1e-9, -1, 0.0
	for f := 0; f < p; f++ {
		order := append([]int(nil), idx...)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })
		var sumL float64
		for pos := 1; pos < len(order); pos++ {
			sumL += grad[order[pos-1]]
			if X[order[pos]][f] == X[order[pos-1]][f] {
				continue
			}
			nL, nR := float64(pos), float64(len(order)-pos)
			sumR := total - sumL
			gain := sumL*sumL/nL + sumR*sumR/nR - baseline
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (X[order[pos]][f] + X[order[pos-1]][f]) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}
