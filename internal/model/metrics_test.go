package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestROCAUC(t *testing.T) {
	cases := []struct {
		name   string
		y      []int
		scores []float64
		want   float64
	}{
		{"PerfectRanking", []int{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9}, 1.0},
		{"InvertedRanking", []int{0, 0, 1, 1}, []float64{0.9, 0.8, 0.2, 0.1}, 0.0},
		{"AllTied", []int{0, 1, 0, 1}, []float64{0.5, 0.5, 0.5, 0.5}, 0.5},
		// neg at 0.5 outranks pos at 0.4: 3 of 4 pairs concordant.
		{"OnePairSwapped", []int{0, 1, 0, 1}, []float64{0.1, 0.4, 0.5, 0.8}, 0.75},
		{"SingleClass", []int{1, 1, 1}, []float64{0.2, 0.5, 0.9}, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.InDelta(t, tc.want, ROCAUC(tc.y, tc.scores), 1e-9)
		})
	}
}

func TestAccuracy(t *testing.T) {
	y := []int{1, 0, 1, 0}
	scores := []float64{0.9, 0.2, 0.4, 0.6} // two right, two wrong at 0.5
	require.InDelta(t, 0.5, Accuracy(y, scores), 1e-9)
}

func TestPrecisionRecallF1(t *testing.T) {
	// predictions at 0.5: [1 1 0 0 1], truth [1 0 0 1 1]
	// tp=2 fp=1 fn=1
	y := []int{1, 0, 0, 1, 1}
	scores := []float64{0.9, 0.7, 0.3, 0.2, 0.8}

	precision, recall, f1 := PrecisionRecallF1(y, scores)
	require.InDelta(t, 2.0/3.0, precision, 1e-9)
	require.InDelta(t, 2.0/3.0, recall, 1e-9)
	require.InDelta(t, 2.0/3.0, f1, 1e-9)
}

func TestKSStat(t *testing.T) {
	// Fully separated classes.
	y := []int{0, 0, 0, 1, 1, 1}
	scores := []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9}
	require.InDelta(t, 1.0, KSStat(y, scores), 1e-9)

	// Identical score distributions.
	y = []int{0, 1, 0, 1}
	scores = []float64{0.4, 0.4, 0.6, 0.6}
	require.InDelta(t, 0.0, KSStat(y, scores), 1e-9)

	require.Equal(t, 0.0, KSStat([]int{1, 1}, []float64{0.2, 0.8}), "single class has no separation")
}

func TestMeanVariance(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	require.InDelta(t, 5.0, Mean(values), 1e-9)
	require.InDelta(t, 4.0, Variance(values), 1e-9)

	require.Equal(t, 0.0, Mean(nil))
	require.Equal(t, 0.0, Variance(nil))
}

func TestBinaryFromProba(t *testing.T) {
	require.Equal(t, []int{0, 1, 1, 0}, BinaryFromProba([]float64{0.2, 0.5, 0.9, 0.49}, 0.5))
}
