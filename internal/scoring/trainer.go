package scoring

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"churn-intel/db/clickhouse"
	"churn-intel/internal/benchmark"
	"churn-intel/internal/bundle"
	"churn-intel/internal/dataset"
	"churn-intel/internal/features"
	"churn-intel/internal/ingest"
	"churn-intel/internal/model"
	"churn-intel/internal/preprocess"
	"churn-intel/internal/validation"
	"churn-intel/pkg/platform"
)

// Trainer runs the full training pipeline: validate, synthesize,
// benchmark the catalog and persist the champion bundle.
type Trainer struct {
	Paths  platform.Paths
	Runner *benchmark.Runner

	gate     *validation.Gate
	features *features.Engine
	store    *clickhouse.Store // optional
}

func NewTrainer(paths platform.Paths) *Trainer {
	return &Trainer{
		Paths:    paths,
		Runner:   benchmark.NewRunner(),
		gate:     validation.NewGate(),
		features: features.NewEngine(),
	}
}

// WithStore enables benchmark history persistence.
func (t *Trainer) WithStore(store *clickhouse.Store) *Trainer {
	t.store = store
	return t
}

// Train builds a new bundle from the labeled CSV at dataPath. The
// validation gate is blocking here: bad training data aborts the run.
func (t *Trainer) Train(ctx context.Context, dataPath string) (*benchmark.Report, error) {
	raw, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("reading training data: %w", err)
	}

	table, err := ingest.Parse(raw, filepath.Base(dataPath))
	if err != nil {
		return nil, err
	}

	if verdict := t.gate.Validate(table, validation.ContextTraining); !verdict.Passed {
		return nil, &ContractViolation{Message: verdict.Message, Context: verdict.Context}
	}

	enriched, err := t.features.Synthesize(table)
	if err != nil {
		return nil, err
	}
	y, err := Labels(enriched)
	if err != nil {
		return nil, err
	}

	transformer, X, err := fitTransformer(enriched, y, t.Runner)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("rows", len(X)).
		Int("features", len(transformer.FeatureNames())).
		Str("mode", t.Runner.Mode).
		Msg("starting algorithm benchmark")

	report, err := t.Runner.Run(X, y)
	if err != nil {
		return nil, err
	}

	champion, err := refitChampion(report.Champion, X, y)
	if err != nil {
		return nil, err
	}

	b := &bundle.Bundle{
		Pipeline: &bundle.Pipeline{
			Transformer: transformer,
			Classifier:  champion,
		},
		Metadata: bundle.Metadata{
			AUCScore:  report.ChampionAUC,
			KSStat:    report.ChampionKS,
			Engine:    report.Champion,
			Features:  transformer.FeatureNames(),
			Version:   report.RunID,
			CreatedAt: time.Now().UTC(),
		},
	}
	if err := bundle.Save(b, t.Paths.BundleFile); err != nil {
		return nil, err
	}
	if err := benchmark.WriteReport(report, t.Paths.BenchmarkFile); err != nil {
		return nil, err
	}

	if t.store != nil {
		if err := t.store.InsertBenchmark(ctx, report); err != nil {
			log.Warn().Err(err).Msg("failed to persist benchmark history")
		}
	}

	log.Info().
		Str("champion", report.Champion).
		Float64("auc", report.ChampionAUC).
		Str("bundle", t.Paths.BundleFile).
		Msg("training complete")
	return report, nil
}

// fitTransformer freezes imputation, power-transform and vocabulary
// statistics on the training partition only, then applies the frozen
// fit to every row. StratifiedSplit is deterministic, so the benchmark
// recomputes the identical holdout and its test rows never shape the
// statistics they are scored against. KFold mode fits on the full
// table: there every row trains in k-1 folds and the ranking is
// relative, while the shipped bundle always re-fits through holdout.
func fitTransformer(enriched *dataset.Table, y []int, r *benchmark.Runner) (*preprocess.ColumnTransformer, [][]float64, error) {
	transformer := preprocess.NewColumnTransformer()
	fitTable := enriched
	if r.Mode == benchmark.ModeHoldout || r.Mode == "" {
		train, _ := benchmark.StratifiedSplit(y, r.TestSize, r.Seed)
		fitTable = enriched.Subset(train)
	}
	if err := transformer.Fit(fitTable); err != nil {
		return nil, nil, fmt.Errorf("fitting feature transform: %w", err)
	}
	X, err := transformer.Transform(enriched)
	if err != nil {
		return nil, nil, fmt.Errorf("applying feature transform: %w", err)
	}
	return transformer, X, nil
}

// refitChampion trains a fresh instance of the winning algorithm on
// the full dataset.
func refitChampion(name string, X [][]float64, y []int) (model.Classifier, error) {
	for _, cand := range benchmark.Catalog() {
		if cand.Name == name {
			clf := cand.New()
			if err := clf.Fit(X, y); err != nil {
				return nil, fmt.Errorf("refitting champion %s: %w", name, err)
			}
			return clf, nil
		}
	}
	return nil, fmt.Errorf("champion %q not found in catalog", name)
}

// Labels extracts the binary churn target from the table.
func Labels(t *dataset.Table) ([]int, error) {
	if !t.HasColumn(dataset.ColChurn) {
		return nil, &ContractViolation{
			Message: fmt.Sprintf("training data has no %s column", dataset.ColChurn),
			Context: string(validation.ContextTraining),
		}
	}
	y := make([]int, t.NumRows())
	for i := range y {
		if strings.TrimSpace(t.Cell(i, dataset.ColChurn)) == "Yes" {
			y[i] = 1
		}
	}
	return y, nil
}
