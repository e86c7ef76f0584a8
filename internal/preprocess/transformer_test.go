package preprocess

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"churn-intel/internal/dataset"
)

func TestFitNumericMedianImpute(t *testing.T) {
	nt, err := FitNumeric([]float64{1, 2, 3, 4, 100, math.NaN()})
	require.NoError(t, err)
	require.InDelta(t, 3.0, nt.ImputeValue, 1e-9, "median of the observed values")

	// A null cell and the median itself must transform identically.
	require.InDelta(t, nt.Apply(3.0), nt.Apply(math.NaN()), 1e-12)
}

func TestFitNumericAllMissing(t *testing.T) {
	_, err := FitNumeric([]float64{math.NaN(), math.NaN()})
	require.Error(t, err)
}

func TestNumericTransformIsMonotonic(t *testing.T) {
	nt, err := FitNumeric([]float64{1, 5, 10, 20, 50, 80, 120})
	require.NoError(t, err)

	prev := math.Inf(-1)
	for _, v := range []float64{1, 5, 10, 20, 50, 80, 120, 500} {
		got := nt.Apply(v)
		require.False(t, math.IsNaN(got))
		require.Greater(t, got, prev, "power transform must preserve order at %g", v)
		prev = got
	}
}

func TestOneHotDropFirst(t *testing.T) {
	table := dataset.New(
		[]string{"Contract"},
		[][]string{{"Month-to-month"}, {"One year"}, {"Two year"}},
	)
	enc := FitOneHot(table, []string{"Contract"})

	require.Equal(t, 2, enc.Width())
	require.Equal(t, []string{"Contract_One year", "Contract_Two year"}, enc.FeatureNames())

	// First (alphabetical) category becomes the all-zero baseline.
	require.Equal(t, []float64{0, 0}, enc.EncodeRow(table, 0, nil))
	require.Equal(t, []float64{1, 0}, enc.EncodeRow(table, 1, nil))
	require.Equal(t, []float64{0, 1}, enc.EncodeRow(table, 2, nil))
}

func TestOneHotUnknownCategoryEncodesToZeros(t *testing.T) {
	train := dataset.New([]string{"Contract"}, [][]string{{"One year"}, {"Two year"}})
	enc := FitOneHot(train, []string{"Contract"})

	novel := dataset.New([]string{"Contract"}, [][]string{{"Month-to-month"}})
	require.Equal(t, []float64{0}, enc.EncodeRow(novel, 0, nil))
}

func TestOneHotNullBecomesMissingCategory(t *testing.T) {
	train := dataset.New([]string{"Partner"}, [][]string{{"Yes"}, {" "}})
	enc := FitOneHot(train, []string{"Partner"})

	require.Equal(t, []string{"Yes", "missing"}, enc.Categories["Partner"])
}

func TestColumnTransformerRoundTrip(t *testing.T) {
	table := dataset.New(
		[]string{"tenure", "MonthlyCharges", "Contract"},
		[][]string{
			{"1", "29.85", "Month-to-month"},
			{"34", "56.95", "One year"},
			{"2", "53.85", "Month-to-month"},
			{"45", "42.30", "Two year"},
		},
	)

	ct := NewColumnTransformer()
	X, err := ct.FitTransform(table)
	require.NoError(t, err)
	require.Len(t, X, 4)

	// 2 numeric columns present + Contract dummies (3 categories - 1).
	require.Len(t, ct.FeatureNames(), 4)
	for _, row := range X {
		require.Len(t, row, 4)
		for _, v := range row {
			require.False(t, math.IsNaN(v))
		}
	}
}

func TestColumnTransformerStableAcrossBatches(t *testing.T) {
	train := dataset.New(
		[]string{"tenure", "MonthlyCharges", "Contract"},
		[][]string{
			{"1", "20", "Month-to-month"},
			{"50", "80", "Two year"},
			{"25", "55", "One year"},
		},
	)
	ct := NewColumnTransformer()
	_, err := ct.FitTransform(train)
	require.NoError(t, err)

	// Scoring batches must map onto the training-time layout even when
	// they carry fewer categories.
	batch := dataset.New(
		[]string{"tenure", "MonthlyCharges", "Contract"},
		[][]string{{"25", "55", "One year"}},
	)
	X, err := ct.Transform(batch)
	require.NoError(t, err)
	require.Len(t, X[0], len(ct.FeatureNames()))
}

func TestTransformBeforeFitFails(t *testing.T) {
	table := dataset.New([]string{"tenure"}, [][]string{{"1"}})
	_, err := NewColumnTransformer().Transform(table)
	require.Error(t, err)
}
