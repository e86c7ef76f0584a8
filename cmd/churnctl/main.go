// ChurnIntel CLI - Customer Churn Risk Intelligence
//
// Usage:
//   churnctl train --data customers.csv [options]
//   churnctl score --data batch.csv [options]
//   churnctl validate --data batch.csv
//   churnctl drift --baseline train.csv --data batch.csv
//   churnctl runs --clickhouse-host localhost
//   churnctl serve --port 8080
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"churn-intel/db/clickhouse"
	"churn-intel/internal/benchmark"
	"churn-intel/internal/bundle"
	"churn-intel/internal/dataset"
	"churn-intel/internal/httpapi"
	"churn-intel/internal/ingest"
	"churn-intel/internal/scoring"
	"churn-intel/internal/validation"
	"churn-intel/pkg/api"
	"churn-intel/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	platform.InitLogger()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "churnctl",
		Usage:   "Customer Churn Risk Intelligence - train, benchmark and score retention models",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"CHURNCTL_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-host",
				Usage:   "ClickHouse host (empty disables history)",
				EnvVars: []string{"CLICKHOUSE_HOST"},
			},
			&cli.IntFlag{
				Name:    "clickhouse-port",
				Value:   9000,
				Usage:   "ClickHouse native port",
				EnvVars: []string{"CLICKHOUSE_PORT"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-database",
				Value:   "churnintel",
				Usage:   "ClickHouse database",
				EnvVars: []string{"CLICKHOUSE_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-user",
				Value:   "default",
				Usage:   "ClickHouse user",
				EnvVars: []string{"CLICKHOUSE_USER"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-password",
				Value:   "",
				Usage:   "ClickHouse password",
				EnvVars: []string{"CLICKHOUSE_PASSWORD"},
			},
		},

		Commands: []*cli.Command{
			trainCommand(),
			scoreCommand(),
			validateCommand(),
			driftCommand(),
			runsCommand(),
			serveCommand(),
		},
	}
}

// optionalStore connects to ClickHouse when a host was configured.
func optionalStore(c *cli.Context) (*clickhouse.Store, error) {
	host := c.String("clickhouse-host")
	if host == "" {
		return nil, nil
	}
	store, err := clickhouse.NewStore(&clickhouse.Config{
		Host:     host,
		Port:     c.Int("clickhouse-port"),
		Database: c.String("clickhouse-database"),
		Username: c.String("clickhouse-user"),
		Password: c.String("clickhouse-password"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := store.Ping(context.Background()); err != nil {
		store.Close()
		return nil, fmt.Errorf("ClickHouse unreachable: %w", err)
	}
	if err := store.EnsureSchema(context.Background()); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to ensure ClickHouse schema: %w", err)
	}
	return store, nil
}

// =============================================================================
// TRAIN COMMAND
// =============================================================================

func trainCommand() *cli.Command {
	return &cli.Command{
		Name:  "train",
		Usage: "Benchmark the algorithm catalog and persist the champion bundle",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Path to labeled customer CSV",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "mode",
				Value:   benchmark.ModeHoldout,
				Usage:   "Evaluation mode (holdout, kfold)",
				EnvVars: []string{"CHURNCTL_BENCHMARK_MODE"},
			},
			&cli.IntFlag{
				Name:  "folds",
				Value: 5,
				Usage: "Fold count for kfold mode",
			},
			&cli.Float64Flag{
				Name:  "test-size",
				Value: 0.2,
				Usage: "Holdout fraction",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "table",
				Usage:   "Output format (table, json)",
			},
		},
		Action: runTrain,
	}
}

func runTrain(c *cli.Context) error {
	ctx := context.Background()
	paths := platform.DefaultPaths()

	trainer := scoring.NewTrainer(paths)
	trainer.Runner.Mode = c.String("mode")
	trainer.Runner.Folds = c.Int("folds")
	trainer.Runner.TestSize = c.Float64("test-size")

	store, err := optionalStore(c)
	if err != nil {
		return err
	}
	if store != nil {
		trainer = trainer.WithStore(store)
		defer store.Close()
	}

	report, err := trainer.Train(ctx, c.String("data"))
	if err != nil {
		return err
	}

	if c.String("format") == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printBenchmark(report)
	return nil
}

func printBenchmark(report *benchmark.Report) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                  🏁 ALGORITHM BENCHMARK                       ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  Champion:              %-37s ║\n", report.Champion)
	fmt.Printf("║  ROC-AUC:               %-37s ║\n", fmt.Sprintf("%.4f", report.ChampionAUC))
	fmt.Printf("║  KS Statistic:          %-37s ║\n", fmt.Sprintf("%.4f", report.ChampionKS))
	fmt.Printf("║  F1 Score:              %-37s ║\n", fmt.Sprintf("%.4f", report.F1))
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")
	fmt.Println("║  RANKED CANDIDATES                                            ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")

	for i, entry := range report.Entries {
		name := truncate(entry.Algorithm, 33)
		fmt.Printf("║  %2d. %-33s  AUC %.4f  %5.1fs ║\n", i+1, name, entry.ROCAUC, entry.TrainingTime)
	}
	for _, failure := range report.Failures {
		fmt.Printf("║  ❌ %-57s ║\n", truncate(failure.Algorithm+": "+failure.Error, 57))
	}
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
}

// =============================================================================
// SCORE COMMAND
// =============================================================================

func scoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "Score a customer batch against the trained bundle",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Path to customer CSV",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "table",
				Usage:   "Output format (table, json)",
			},
			&cli.IntFlag{
				Name:  "top",
				Value: 10,
				Usage: "Rows shown in table output",
			},
		},
		Action: runScore,
	}
}

func runScore(c *cli.Context) error {
	ctx := context.Background()
	paths := platform.DefaultPaths()

	raw, err := os.ReadFile(c.String("data"))
	if err != nil {
		return fmt.Errorf("failed to read batch file: %w", err)
	}

	svc := scoring.NewService(bundle.NewLoader(paths.BundleFile))
	store, err := optionalStore(c)
	if err != nil {
		return err
	}
	if store != nil {
		svc = svc.WithStore(store)
		defer store.Close()
	}

	result, err := svc.Score(ctx, raw, filepath.Base(c.String("data")))
	if err != nil {
		return err
	}

	if c.String("format") == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printScores(result, c.Int("top"))
	return nil
}

func printScores(result *api.ScoreResponse, top int) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                  📉 CHURN RISK SCORING                        ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  Customers:             %-37d ║\n", result.Summary.TotalCustomers)
	fmt.Printf("║  Critical:              %-37d ║\n", result.Summary.HighRiskCount)
	fmt.Printf("║  At-Risk:               %-37d ║\n", result.Summary.MediumRiskCount)
	fmt.Printf("║  Stable:                %-37d ║\n", result.Summary.StableCount)
	fmt.Printf("║  Loyal:                 %-37d ║\n", result.Summary.LowRiskCount)
	fmt.Printf("║  Avg Probability:       %-37s ║\n", fmt.Sprintf("%.2f%%", result.Summary.AverageProbability))
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")
	fmt.Println("║  HIGHEST RISK CUSTOMERS                                       ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")

	shown := 0
	for _, p := range result.Predictions {
		if p.RiskLevel != "Critical" && p.RiskLevel != "At-Risk" {
			continue
		}
		fmt.Printf("║  %-12s %6.2f%%  %-10s %-24s ║\n",
			truncate(p.CustomerID, 12), p.ChurnProbability, p.RiskLevel, truncate(p.PrimaryReason, 24))
		shown++
		if shown == top {
			break
		}
	}
	if shown == 0 {
		fmt.Println("║  (no customers above the at-risk threshold)                   ║")
	}
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// =============================================================================
// VALIDATE COMMAND
// =============================================================================

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Run the data contract gate against a CSV without scoring",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Path to customer CSV",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "strict",
				Value: false,
				Usage: "Apply training-grade blocking rules",
			},
		},
		Action: runValidate,
	}
}

func runValidate(c *cli.Context) error {
	raw, err := os.ReadFile(c.String("data"))
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	table, err := ingest.Parse(raw, filepath.Base(c.String("data")))
	if err != nil {
		return err
	}

	gateCtx := validation.ContextInference
	if c.Bool("strict") {
		gateCtx = validation.ContextTraining
	}

	verdict := validation.NewGate().Validate(table, gateCtx)
	if verdict.Passed {
		fmt.Printf("✅ PASS: %d rows satisfy the data contract\n", table.NumRows())
		return nil
	}

	fmt.Printf("❌ FAIL: %s\n", verdict.Message)
	if gateCtx.Blocking() {
		os.Exit(2)
	}
	return nil
}

// =============================================================================
// DRIFT COMMAND
// =============================================================================

func driftCommand() *cli.Command {
	return &cli.Command{
		Name:  "drift",
		Usage: "Compare a batch's numeric distributions against a baseline CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "baseline",
				Aliases:  []string{"b"},
				Usage:    "Path to reference CSV (typically the training data)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Path to current customer CSV",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "table",
				Usage:   "Output format (table, json)",
			},
		},
		Action: runDrift,
	}
}

// runDrift is advisory only: drifted columns are reported but never
// fail the command, mirroring the non-blocking inference gate.
func runDrift(c *cli.Context) error {
	reference, err := readTable(c.String("baseline"))
	if err != nil {
		return err
	}
	current, err := readTable(c.String("data"))
	if err != nil {
		return err
	}

	stats := validation.DetectDrift(current, reference)
	if c.String("format") == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	printDrift(stats)
	return nil
}

func readTable(path string) (*dataset.Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ingest.Parse(raw, filepath.Base(path))
}

func printDrift(stats []api.DriftStat) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                  🌊 DISTRIBUTION DRIFT                        ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")
	drifted := 0
	for _, s := range stats {
		mark := "  "
		if s.DriftDetected {
			mark = "⚠️"
			drifted++
		}
		fmt.Printf("║  %s %-20s  KS %.4f  p %.4f            ║\n", mark, truncate(s.Column, 20), s.Statistic, s.PValue)
	}
	if len(stats) == 0 {
		fmt.Println("║  (no numeric columns shared with the baseline)                ║")
	}
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  Drifted columns:       %-37d ║\n", drifted)
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
}

// =============================================================================
// RUNS COMMAND
// =============================================================================

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Show recent scoring runs from ClickHouse history",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Value: 10,
				Usage: "Number of runs to show",
			},
		},
		Action: runRuns,
	}
}

func runRuns(c *cli.Context) error {
	store, err := optionalStore(c)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("history requires --clickhouse-host")
	}
	defer store.Close()

	ctx := context.Background()
	runs, err := store.LatestRuns(ctx, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to load scoring history: %w", err)
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                  🗂  SCORING HISTORY                          ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")
	for _, run := range runs {
		peak := decimal.Zero
		if charge, err := store.HighestCharges(ctx, run.ID); err == nil {
			peak = charge
		}
		fmt.Printf("║  %s  %-18s %5d cust  %3d crit  $%-7s ║\n",
			run.CreatedAt.Format("2006-01-02 15:04"),
			truncate(run.SourceFile, 18), run.TotalCustomers, run.HighRisk, peak.StringFixed(2))
	}
	if len(runs) == 0 {
		fmt.Println("║  (no scoring runs recorded yet)                               ║")
	}
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	return nil
}

// =============================================================================
// SERVE COMMAND (API SERVER)
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the churn scoring API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "API server port",
				EnvVars: []string{"CHURNCTL_PORT"},
			},
			&cli.StringFlag{
				Name:    "cors-origins",
				Value:   "*",
				Usage:   "Comma-separated list of allowed CORS origins",
				EnvVars: []string{"CHURNCTL_CORS_ORIGINS"},
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	paths := platform.DefaultPaths()

	svc := scoring.NewService(bundle.NewLoader(paths.BundleFile))
	store, err := optionalStore(c)
	if err != nil {
		return err
	}
	if store != nil {
		svc = svc.WithStore(store)
		defer store.Close()
	}

	config := httpapi.DefaultConfig()
	config.Port = c.Int("port")
	config.CORSOrigins = splitOrigins(c.String("cors-origins"))

	server := httpapi.NewServer(svc, paths, config)
	return server.StartWithGracefulShutdown()
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
