package bundle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"churn-intel/internal/dataset"
	"churn-intel/internal/model"
	"churn-intel/internal/preprocess"
)

func fittedPipeline(t *testing.T) (*Pipeline, *dataset.Table) {
	t.Helper()

	table := dataset.New(
		[]string{"tenure", "MonthlyCharges", "Contract"},
		[][]string{
			{"1", "80", "Month-to-month"},
			{"2", "95", "Month-to-month"},
			{"40", "30", "Two year"},
			{"55", "25", "Two year"},
			{"3", "85", "Month-to-month"},
			{"60", "20", "One year"},
		},
	)
	y := []int{1, 1, 0, 0, 1, 0}

	ct := preprocess.NewColumnTransformer()
	X, err := ct.FitTransform(table)
	require.NoError(t, err)

	clf := model.NewLogisticRegression()
	require.NoError(t, clf.Fit(X, y))

	return &Pipeline{Transformer: ct, Classifier: clf}, table
}

func TestSaveLoadRoundTrip(t *testing.T) {
	pipeline, table := fittedPipeline(t)
	want, err := pipeline.PredictProba(table)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "models", "bundle.gob")
	b := &Bundle{
		Pipeline: pipeline,
		Metadata: Metadata{
			AUCScore:  0.91,
			KSStat:    0.62,
			Engine:    "Logistic Regression",
			Features:  pipeline.Transformer.FeatureNames(),
			Version:   "1.0.0",
			CreatedAt: time.Now().UTC(),
		},
	}
	require.NoError(t, Save(b, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Logistic Regression", loaded.Metadata.Engine)
	require.Equal(t, b.Metadata.Features, loaded.Metadata.Features)

	// The restored pipeline must score byte-for-byte identically.
	got, err := loaded.Pipeline.PredictProba(table)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestLoadMissingBundle(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.gob"))
	require.ErrorIs(t, err, ErrModelUnavailable)
}

func TestLoadCorruptBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.gob")
	require.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0o644))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalidPipeline)
}

func TestSaveRejectsEmptyBundle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.gob")
	require.ErrorIs(t, Save(nil, path), ErrInvalidPipeline)
	require.ErrorIs(t, Save(&Bundle{}, path), ErrInvalidPipeline)
	require.ErrorIs(t, Save(&Bundle{Pipeline: &Pipeline{}}, path), ErrInvalidPipeline)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	pipeline, _ := fittedPipeline(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.gob")
	require.NoError(t, Save(&Bundle{Pipeline: pipeline}, path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "bundle.gob", entries[0].Name())
}

func TestLoaderCachesAndInvalidates(t *testing.T) {
	pipeline, _ := fittedPipeline(t)
	path := filepath.Join(t.TempDir(), "bundle.gob")
	require.NoError(t, Save(&Bundle{Pipeline: pipeline, Metadata: Metadata{Engine: "first"}}, path))

	loader := NewLoader(path)
	b1, err := loader.Get()
	require.NoError(t, err)
	require.Equal(t, "first", b1.Metadata.Engine)

	// Overwrite on disk: the cached copy keeps serving until invalidated.
	require.NoError(t, Save(&Bundle{Pipeline: pipeline, Metadata: Metadata{Engine: "second"}}, path))
	b2, err := loader.Get()
	require.NoError(t, err)
	require.Equal(t, "first", b2.Metadata.Engine)

	loader.Invalidate()
	b3, err := loader.Get()
	require.NoError(t, err)
	require.Equal(t, "second", b3.Metadata.Engine)
}

func TestLoaderMissingBundleNotCached(t *testing.T) {
	pipeline, _ := fittedPipeline(t)
	path := filepath.Join(t.TempDir(), "bundle.gob")

	loader := NewLoader(path)
	_, err := loader.Get()
	require.ErrorIs(t, err, ErrModelUnavailable)

	// Training lands the bundle afterwards; the next Get must see it.
	require.NoError(t, Save(&Bundle{Pipeline: pipeline}, path))
	_, err = loader.Get()
	require.NoError(t, err)
}
