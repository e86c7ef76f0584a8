package benchmark

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"churn-intel/internal/model"
	"churn-intel/pkg/api"
)

// Evaluation modes.
const (
	ModeHoldout = "holdout"
	ModeKFold   = "kfold"
)

// Runner configures one benchmark race over the catalog.
type Runner struct {
	Mode     string
	Folds    int
	TestSize float64
	Seed     int64

	// Candidates overrides the full catalog when non-empty.
	Candidates []Candidate
}

// Report is the full benchmark output, ranked by validation ROC-AUC.
type Report struct {
	RunID       string                 `json:"run_id"`
	Mode        string                 `json:"mode"`
	Champion    string                 `json:"champion"`
	ChampionAUC float64                `json:"champion_auc"`
	ChampionKS  float64                `json:"champion_ks"`
	Precision   float64                `json:"precision"`
	Recall      float64                `json:"recall"`
	F1          float64                `json:"f1"`
	Entries     []api.BenchmarkEntry   `json:"entries"`
	Failures    []api.CandidateFailure `json:"failures,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

func NewRunner() *Runner {
	return &Runner{Mode: ModeHoldout, Folds: 5, TestSize: 0.2, Seed: model.DefaultSeed}
}

// Run races every catalog candidate on stratified splits of (X, y).
// A candidate that errors or panics is recorded as a failure and
// excluded from the ranking; the run itself never aborts on one bad
// algorithm.
func (r *Runner) Run(X [][]float64, y []int) (*Report, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("benchmark requires a non-empty aligned matrix, got %d rows and %d labels", len(X), len(y))
	}

	report := &Report{
		RunID:     uuid.New().String(),
		Mode:      r.Mode,
		CreatedAt: time.Now().UTC(),
	}

	folds, err := r.splits(y)
	if err != nil {
		return nil, err
	}

	var championScores []float64
	var championTruth []int
	for _, cand := range r.candidates() {
		entry, scores, truth, candErr := r.evaluate(cand, X, y, folds)
		if candErr != nil {
			log.Warn().Str("algorithm", cand.Name).Err(candErr).Msg("benchmark candidate failed")
			report.Failures = append(report.Failures, api.CandidateFailure{
				Algorithm: cand.Name,
				Error:     candErr.Error(),
			})
			continue
		}
		report.Entries = append(report.Entries, entry)
		if report.Champion == "" || entry.ROCAUC > report.ChampionAUC {
			report.Champion = entry.Algorithm
			report.ChampionAUC = entry.ROCAUC
			championScores = scores
			championTruth = truth
		}
	}

	if len(report.Entries) == 0 {
		return nil, fmt.Errorf("benchmark produced no ranked candidates: all %d failed", len(report.Failures))
	}

	sort.SliceStable(report.Entries, func(a, b int) bool {
		return report.Entries[a].ROCAUC > report.Entries[b].ROCAUC
	})
	report.ChampionKS = model.KSStat(championTruth, championScores)
	report.Precision, report.Recall, report.F1 = model.PrecisionRecallF1(championTruth, championScores)

	log.Info().
		Str("run_id", report.RunID).
		Str("champion", report.Champion).
		Float64("auc", report.ChampionAUC).
		Int("ranked", len(report.Entries)).
		Int("failed", len(report.Failures)).
		Msg("benchmark complete")
	return report, nil
}

func (r *Runner) candidates() []Candidate {
	if len(r.Candidates) > 0 {
		return r.Candidates
	}
	return Catalog()
}

// evaluate trains one candidate across all folds, converting panics
// from a misbehaving implementation into ordinary errors.
func (r *Runner) evaluate(cand Candidate, X [][]float64, y []int, folds []fold) (entry api.BenchmarkEntry, scores []float64, truth []int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("candidate panicked: %v", rec)
		}
	}()

	start := time.Now()
	for _, f := range folds {
		clf := cand.New()
		if fitErr := clf.Fit(gather(X, f.train), gatherLabels(y, f.train)); fitErr != nil {
			return entry, nil, nil, fmt.Errorf("fit failed: %w", fitErr)
		}
		probas := clf.PredictProba(gather(X, f.test))
		if len(probas) != len(f.test) {
			return entry, nil, nil, fmt.Errorf("predict returned %d scores for %d rows", len(probas), len(f.test))
		}
		scores = append(scores, probas...)
		truth = append(truth, gatherLabels(y, f.test)...)
	}

	entry = api.BenchmarkEntry{
		Algorithm:    cand.Name,
		ROCAUC:       model.ROCAUC(truth, scores),
		Accuracy:     model.Accuracy(truth, scores),
		TrainingTime: time.Since(start).Seconds(),
	}
	return entry, scores, truth, nil
}

type fold struct {
	train []int
	test  []int
}

func (r *Runner) splits(y []int) ([]fold, error) {
	switch r.Mode {
	case ModeHoldout, "":
		train, test := StratifiedSplit(y, r.TestSize, r.Seed)
		if len(train) == 0 || len(test) == 0 {
			return nil, fmt.Errorf("holdout split left an empty partition over %d rows", len(y))
		}
		return []fold{{train: train, test: test}}, nil
	case ModeKFold:
		if r.Folds < 2 {
			return nil, fmt.Errorf("kfold requires at least 2 folds, got %d", r.Folds)
		}
		return stratifiedKFold(y, r.Folds, r.Seed), nil
	default:
		return nil, fmt.Errorf("unknown benchmark mode %q", r.Mode)
	}
}

// StratifiedSplit shuffles each class independently and carves off
// testSize of it, preserving the class balance on both sides.
func StratifiedSplit(y []int, testSize float64, seed int64) (train, test []int) {
	for _, class := range []int{0, 1} {
		var members []int
		for i, label := range y {
			if label == class {
				members = append(members, i)
			}
		}
		rand.New(rand.NewSource(seed + int64(class))).Shuffle(len(members), func(a, b int) {
			members[a], members[b] = members[b], members[a]
		})
		cut := int(float64(len(members)) * testSize)
		test = append(test, members[:cut]...)
		train = append(train, members[cut:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

func stratifiedKFold(y []int, k int, seed int64) []fold {
	buckets := make([][]int, k)
	for _, class := range []int{0, 1} {
		var members []int
		for i, label := range y {
			if label == class {
				members = append(members, i)
			}
		}
		rand.New(rand.NewSource(seed + int64(class))).Shuffle(len(members), func(a, b int) {
			members[a], members[b] = members[b], members[a]
		})
		for pos, idx := range members {
			buckets[pos%k] = append(buckets[pos%k], idx)
		}
	}

	folds := make([]fold, k)
	for fi := range folds {
		for bi, bucket := range buckets {
			if bi == fi {
				folds[fi].test = append(folds[fi].test, bucket...)
			} else {
				folds[fi].train = append(folds[fi].train, bucket...)
			}
		}
		sort.Ints(folds[fi].train)
		sort.Ints(folds[fi].test)
	}
	return folds
}

func gather(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

func gatherLabels(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}

// WriteReport persists the report JSON for the dashboard endpoint.
func WriteReport(report *Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding benchmark report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing benchmark report: %w", err)
	}
	return nil
}

// ReadReport loads a previously persisted benchmark report.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decoding benchmark report: %w", err)
	}
	return &report, nil
}
