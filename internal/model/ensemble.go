package model

import (
	"math"
	"math/rand"
	"runtime"
	"sync"
)

// RandomForest bags gini trees over bootstrap samples with feature
// subsampling, averaging per-tree probabilities.
type RandomForest struct {
	NEstimators int
	MaxDepth    int
	MaxFeatures int // 0 => sqrt(p)
	Bootstrap   bool
	Seed        int64

	Trees []*DecisionTree
}

func NewRandomForest() *RandomForest {
	return &RandomForest{NEstimators: 100, MaxDepth: 10, Bootstrap: true, Seed: DefaultSeed}
}

func (m *RandomForest) Fit(X [][]float64, y []int) error {
	return fitForest(m, X, y, false)
}

func (m *RandomForest) PredictProba(X [][]float64) []float64 {
	return forestProba(m.Trees, X)
}

// ExtraTrees drops bootstrapping and cuts at random thresholds,
// trading per-tree quality for decorrelation.
type ExtraTrees struct {
	NEstimators int
	MaxDepth    int
	MaxFeatures int
	Seed        int64

	Trees []*DecisionTree
}

func NewExtraTrees() *ExtraTrees {
	return &ExtraTrees{NEstimators: 100, MaxDepth: 10, Seed: DefaultSeed}
}

func (m *ExtraTrees) Fit(X [][]float64, y []int) error {
	f := &RandomForest{
		NEstimators: m.NEstimators,
		MaxDepth:    m.MaxDepth,
		MaxFeatures: m.MaxFeatures,
		Bootstrap:   false,
		Seed:        m.Seed,
	}
	if err := fitForest(f, X, y, true); err != nil {
		return err
	}
	m.Trees = f.Trees
	return nil
}

func (m *ExtraTrees) PredictProba(X [][]float64) []float64 {
	return forestProba(m.Trees, X)
}

// fitForest trains the member trees across a worker pool. Each tree
// derives its own seed from the forest seed so runs stay reproducible
// regardless of scheduling.
func fitForest(f *RandomForest, X [][]float64, y []int, randomThreshold bool) error {
	if len(X) == 0 {
		return errEmptyInput
	}
	n, p := len(X), len(X[0])
	maxFeatures := f.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(p)))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	f.Trees = make([]*DecisionTree, f.NEstimators)
	errs := make([]error, f.NEstimators)

	workers := runtime.GOMAXPROCS(0)
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ti := range jobs {
				seed := f.Seed + int64(ti)
				tree := &DecisionTree{
					MaxDepth:        f.MaxDepth,
					MinSamplesSplit: 2,
					MinSamplesLeaf:  1,
					MaxFeatures:     maxFeatures,
					RandomThreshold: randomThreshold,
					Seed:            seed,
				}
				bx, by := X, y
				if f.Bootstrap {
					bx, by = bootstrapSample(X, y, n, seed)
				}
				errs[ti] = tree.Fit(bx, by)
				f.Trees[ti] = tree
			}
		}()
	}
	for i := 0; i < f.NEstimators; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func bootstrapSample(X [][]float64, y []int, n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	bx := make([][]float64, n)
	by := make([]int, n)
	for i := 0; i < n; i++ {
		j := rng.Intn(n)
		bx[i] = X[j]
		by[i] = y[j]
	}
	return bx, by
}

func forestProba(trees []*DecisionTree, X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(trees) == 0 {
		return out
	}
	for _, tree := range trees {
		for i, p := range tree.PredictProba(X) {
			out[i] += p
		}
	}
	for i := range out {
		out[i] /= float64(len(trees))
	}
	return out
}
