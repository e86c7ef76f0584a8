package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"churn-intel/pkg/api"
)

// customersCSV builds an upload whose MonthlyCharges cluster around the
// given level, so two builds at different levels show clear drift.
func customersCSV(n int, monthly float64) []byte {
	var b strings.Builder
	b.WriteString("customerID,gender,SeniorCitizen,Partner,Dependents,tenure,PhoneService,MultipleLines,InternetService,OnlineSecurity,OnlineBackup,DeviceProtection,TechSupport,StreamingTV,StreamingMovies,Contract,PaperlessBilling,PaymentMethod,MonthlyCharges,TotalCharges,Churn\n")
	for i := 0; i < n; i++ {
		charge := monthly + float64(i%7)
		tenure := 1 + i%60
		fmt.Fprintf(&b, "CUST-%04d,Female,0,No,No,%d,Yes,No,DSL,No,No,No,No,No,No,Month-to-month,Yes,Mailed check,%.2f,%.2f,No\n",
			i, tenure, charge, float64(tenure)*charge)
	}
	return []byte(b.String())
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()
	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestDriftCommandFlagsShiftedCharges(t *testing.T) {
	dir := t.TempDir()
	baseline := filepath.Join(dir, "train.csv")
	current := filepath.Join(dir, "batch.csv")
	require.NoError(t, os.WriteFile(baseline, customersCSV(80, 25), 0o644))
	require.NoError(t, os.WriteFile(current, customersCSV(80, 95), 0o644))

	out := captureStdout(t, func() {
		require.NoError(t, newApp().Run([]string{
			"churnctl", "drift", "--baseline", baseline, "--data", current, "--format", "json",
		}))
	})

	var stats []api.DriftStat
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.NotEmpty(t, stats)

	byColumn := make(map[string]api.DriftStat, len(stats))
	for _, s := range stats {
		byColumn[s.Column] = s
	}
	require.True(t, byColumn["MonthlyCharges"].DriftDetected, "shifted charges must flag drift")
}

func TestDriftCommandIdenticalBatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "customers.csv")
	require.NoError(t, os.WriteFile(path, customersCSV(80, 25), 0o644))

	out := captureStdout(t, func() {
		require.NoError(t, newApp().Run([]string{
			"churnctl", "drift", "--baseline", path, "--data", path, "--format", "json",
		}))
	})

	var stats []api.DriftStat
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	for _, s := range stats {
		require.False(t, s.DriftDetected, "column %s drifted against itself", s.Column)
	}
}

func TestDriftCommandMissingFile(t *testing.T) {
	err := newApp().Run([]string{
		"churnctl", "drift",
		"--baseline", filepath.Join(t.TempDir(), "nope.csv"),
		"--data", filepath.Join(t.TempDir(), "nope.csv"),
	})
	require.Error(t, err)
}

func TestRunsCommandRequiresHost(t *testing.T) {
	err := newApp().Run([]string{"churnctl", "runs"})
	require.ErrorContains(t, err, "clickhouse-host")
}
