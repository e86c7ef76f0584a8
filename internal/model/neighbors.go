package model

import (
	"runtime"
	"sort"
	"sync"
)

// KNN stores the training set and votes among the K nearest rows.
type KNN struct {
	K int
	X [][]float64
	Y []int
}

func NewKNN() *KNN { return &KNN{K: 5} }

func (m *KNN) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errEmptyInput
	}
	m.X = X
	m.Y = y
	return nil
}

// PredictProba parallelizes the neighbor search across CPU cores; each
// query is independent.
func (m *KNN) PredictProba(X [][]float64) []float64 {
	if len(X) == 0 {
		return nil
	}
	out := make([]float64, len(X))
	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, len(X))
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				out[i] = m.proba(X[i])
			}
		}(start, end)
	}
	wg.Wait()
	return out
}

func (m *KNN) proba(x []float64) float64 {
	type neighbor struct {
		dist  float64
		label int
	}
	neighbors := make([]neighbor, len(m.X))
	for i, t := range m.X {
		neighbors[i] = neighbor{dist: squaredDistance(x, t), label: m.Y[i]}
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].dist < neighbors[j].dist })

	k := m.K
	if k > len(neighbors) {
		k = len(neighbors)
	}
	if k == 0 {
		return 0
	}
	positives := 0
	for _, nb := range neighbors[:k] {
		positives += nb.label
	}
	return float64(positives) / float64(k)
}

// NearestCentroid scores by the gap between squared distances to the
// two class centroids.
type NearestCentroid struct {
	Centroids [2][]float64
	Counts    [2]int
}

func NewNearestCentroid() *NearestCentroid { return &NearestCentroid{} }

func (m *NearestCentroid) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errEmptyInput
	}
	p := len(X[0])
	for k := 0; k < 2; k++ {
		m.Centroids[k] = make([]float64, p)
		m.Counts[k] = 0
	}
	for i, x := range X {
		k := y[i]
		m.Counts[k]++
		for j, v := range x {
			m.Centroids[k][j] += v
		}
	}
	for k := 0; k < 2; k++ {
		if m.Counts[k] == 0 {
			continue
		}
		for j := range m.Centroids[k] {
			m.Centroids[k][j] /= float64(m.Counts[k])
		}
	}
	return nil
}

func (m *NearestCentroid) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		d0 := squaredDistance(x, m.Centroids[0])
		d1 := squaredDistance(x, m.Centroids[1])
		out[i] = sigmoid(d0 - d1)
	}
	return out
}

func squaredDistance(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
