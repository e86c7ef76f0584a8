package scoring

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"churn-intel/internal/benchmark"
	"churn-intel/internal/bundle"
	"churn-intel/internal/dataset"
	"churn-intel/internal/features"
	"churn-intel/internal/ingest"
	"churn-intel/pkg/platform"
)

// telcoCSV builds a labeled upload where churners skew month-to-month
// with high charges and short tenure, so every candidate has signal to
// learn from.
func telcoCSV(n int) []byte {
	var b strings.Builder
	b.WriteString("customerID,gender,SeniorCitizen,Partner,Dependents,tenure,PhoneService,MultipleLines,InternetService,OnlineSecurity,OnlineBackup,DeviceProtection,TechSupport,StreamingTV,StreamingMovies,Contract,PaperlessBilling,PaymentMethod,MonthlyCharges,TotalCharges,Churn\n")
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			fmt.Fprintf(&b, "CHRN-%04d,Female,0,No,No,%d,Yes,No,Fiber optic,No,No,No,No,Yes,Yes,Month-to-month,Yes,Electronic check,%.2f,%.2f,Yes\n",
				i, 1+i%6, 85.0+float64(i%10), float64(1+i%6)*(85.0+float64(i%10)))
		} else {
			fmt.Fprintf(&b, "STAY-%04d,Male,0,Yes,Yes,%d,Yes,Yes,DSL,Yes,Yes,Yes,Yes,No,No,Two year,No,Bank transfer (automatic),%.2f,%.2f,No\n",
				i, 40+i%30, 25.0+float64(i%10), float64(40+i%30)*(25.0+float64(i%10)))
		}
	}
	return []byte(b.String())
}

func tempPaths(t *testing.T) platform.Paths {
	t.Helper()
	dir := t.TempDir()
	return platform.Paths{
		ModelsDir:     filepath.Join(dir, "models"),
		BundleFile:    filepath.Join(dir, "models", "bundle.gob"),
		ReportsDir:    filepath.Join(dir, "reports"),
		BenchmarkFile: filepath.Join(dir, "reports", "benchmark.json"),
	}
}

func TestLabels(t *testing.T) {
	table := dataset.New(
		[]string{"customerID", "Churn"},
		[][]string{{"a", "Yes"}, {"b", "No"}, {"c", " Yes "}, {"d", ""}},
	)
	y, err := Labels(table)
	require.NoError(t, err)
	require.Equal(t, []int{1, 0, 1, 0}, y)
}

func TestLabelsMissingColumn(t *testing.T) {
	table := dataset.New([]string{"customerID"}, [][]string{{"a"}})
	_, err := Labels(table)

	var violation *ContractViolation
	require.ErrorAs(t, err, &violation)
	require.Contains(t, violation.Message, "Churn")
}

func TestContractViolationMessage(t *testing.T) {
	err := &ContractViolation{Message: "tenure is null at row 3", Context: "Training"}
	require.Equal(t, "data contract violation (Training): tenure is null at row 3", err.Error())
}

func TestAssembleBandsAndSummary(t *testing.T) {
	table := dataset.New(
		[]string{"customerID", "tenure", "MonthlyCharges", "Contract", "PaymentMethod"},
		[][]string{
			{"c1", "2", "95.50", "Month-to-month", "Electronic check"},
			{"c2", "30", "60.00", "One year", "Mailed check"},
			{"c3", "70", "20.00", "Two year", "Credit card (automatic)"},
			{"c4", "12", "55.00", "One year", "Mailed check"},
		},
	)
	probas := []float64{0.9137, 0.7, 0.05, 0.4}

	resp := assemble(table, probas)
	require.Len(t, resp.Predictions, 4)
	require.Equal(t, 4, resp.Summary.TotalCustomers)
	require.Equal(t, 1, resp.Summary.HighRiskCount)
	require.Equal(t, 1, resp.Summary.MediumRiskCount)
	require.Equal(t, 1, resp.Summary.LowRiskCount)
	require.Equal(t, 1, resp.Summary.StableCount)

	first := resp.Predictions[0]
	require.Equal(t, "c1", first.CustomerID)
	require.Equal(t, 91.37, first.ChurnProbability)
	require.Equal(t, "Critical", first.RiskLevel)
	require.Equal(t, "red", first.RiskColor)
	require.Equal(t, 2, first.TenureMonths)
	require.Equal(t, "95.5", first.MonthlyCharges.String())
	require.NotEmpty(t, first.PrimaryReason)

	// (91.37 + 70 + 5 + 40) / 4, rounded to two decimals.
	require.Equal(t, 51.59, resp.Summary.AverageProbability)
	require.Greater(t, resp.Summary.PredictionVariance, 0.0)
}

func TestAssembleEmptyBatch(t *testing.T) {
	table := dataset.New([]string{"customerID"}, nil)
	resp := assemble(table, nil)
	require.Equal(t, 0, resp.Summary.TotalCustomers)
	require.Equal(t, 0.0, resp.Summary.AverageProbability)
	require.Empty(t, resp.Predictions)
}

func TestStatusOfflineDefaults(t *testing.T) {
	svc := NewService(bundle.NewLoader(filepath.Join(t.TempDir(), "absent.gob")))
	status := svc.Status()
	require.Equal(t, "offline", status.Status)
	require.Equal(t, "Model not trained yet", status.Message)
	require.Equal(t, 0.84, status.AUCScore)
	require.Equal(t, 0.45, status.KSStat)
}

func TestTrainThenScore(t *testing.T) {
	paths := tempPaths(t)
	dataPath := filepath.Join(t.TempDir(), "customers.csv")
	require.NoError(t, os.WriteFile(dataPath, telcoCSV(80), 0o644))

	report, err := NewTrainer(paths).Train(context.Background(), dataPath)
	require.NoError(t, err)
	require.NotEmpty(t, report.Champion)
	require.Greater(t, report.ChampionAUC, 0.6, "separable classes should be learnable")
	require.FileExists(t, paths.BundleFile)
	require.FileExists(t, paths.BenchmarkFile)

	svc := NewService(bundle.NewLoader(paths.BundleFile))
	resp, err := svc.Score(context.Background(), telcoCSV(20), "customers.csv")
	require.NoError(t, err)
	require.Equal(t, 20, resp.Summary.TotalCustomers)
	require.Equal(t, 20,
		resp.Summary.HighRiskCount+resp.Summary.MediumRiskCount+
			resp.Summary.StableCount+resp.Summary.LowRiskCount)

	for _, p := range resp.Predictions {
		require.GreaterOrEqual(t, p.ChurnProbability, 0.0)
		require.LessOrEqual(t, p.ChurnProbability, 100.0)
		require.NotEmpty(t, p.RiskLevel)
		require.NotEmpty(t, p.RiskTimeframe)
		require.NotEmpty(t, p.PrimaryReason)
	}

	status := svc.Status()
	require.Equal(t, "online", status.Status)
	require.Equal(t, report.Champion, status.Engine)
	require.Equal(t, report.RunID, status.ModelVersion)

	names, err := svc.FeatureNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
}

// Editing a holdout row must leave every training row's feature
// vector untouched: imputation, power-transform and vocabulary
// statistics are frozen on the training partition alone.
func TestHoldoutRowsDoNotShapeTrainingFeatures(t *testing.T) {
	table, err := ingest.Parse(telcoCSV(40), "customers.csv")
	require.NoError(t, err)

	engine := features.NewEngine()
	runner := benchmark.NewRunner()
	transform := func(tbl *dataset.Table) ([][]float64, []int, []int) {
		enriched, err := engine.Synthesize(tbl)
		require.NoError(t, err)
		y, err := Labels(enriched)
		require.NoError(t, err)
		_, X, err := fitTransformer(enriched, y, runner)
		require.NoError(t, err)
		train, test := benchmark.StratifiedSplit(y, runner.TestSize, runner.Seed)
		return X, train, test
	}

	base, train, test := transform(table)
	require.NotEmpty(t, test)

	mutated := table.Clone()
	charges, ok := mutated.Column(dataset.ColMonthlyCharges)
	require.True(t, ok)
	charges[test[0]] = "999.00"
	require.NoError(t, mutated.SetColumn(dataset.ColMonthlyCharges, charges))

	shifted, _, _ := transform(mutated)
	for _, i := range train {
		require.Equal(t, base[i], shifted[i], "training row %d moved with a holdout edit", i)
	}
	require.NotEqual(t, base[test[0]], shifted[test[0]])
}

func TestScoreWithoutBundle(t *testing.T) {
	svc := NewService(bundle.NewLoader(filepath.Join(t.TempDir(), "absent.gob")))
	_, err := svc.Score(context.Background(), telcoCSV(5), "customers.csv")
	require.ErrorIs(t, err, bundle.ErrModelUnavailable)
}

func TestTrainBlocksOnDuplicateIdentities(t *testing.T) {
	raw := telcoCSV(10)
	// Clone a customerID to trip the duplicate rule.
	dup := strings.Replace(string(raw), "STAY-0001", "CHRN-0000", 1)
	dataPath := filepath.Join(t.TempDir(), "dupes.csv")
	require.NoError(t, os.WriteFile(dataPath, []byte(dup), 0o644))

	_, err := NewTrainer(tempPaths(t)).Train(context.Background(), dataPath)
	var violation *ContractViolation
	require.ErrorAs(t, err, &violation)
	require.Contains(t, violation.Message, "non-unique")
}

func TestTrainMissingFile(t *testing.T) {
	_, err := NewTrainer(tempPaths(t)).Train(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}
