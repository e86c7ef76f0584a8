// Package api defines the wire contracts shared by the scoring
// pipeline, the HTTP server and the CLI.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// PredictionResult is one scored customer row. Derived once, never
// mutated after creation.
type PredictionResult struct {
	CustomerID       string          `json:"customer_id"`
	TenureMonths     int             `json:"tenure_months"`
	MonthlyCharges   decimal.Decimal `json:"monthly_charges"`
	ChurnProbability float64         `json:"churn_probability"` // 0-100, two decimals
	RiskLevel        string          `json:"risk_level"`
	RiskTimeframe    string          `json:"risk_timeframe"`
	RiskColor        string          `json:"risk_color"`
	PrimaryReason    string          `json:"primary_reason"`
	ContractType     string          `json:"contract_type"`
}

// ScoreSummary aggregates a scoring batch for dashboards.
type ScoreSummary struct {
	TotalCustomers     int     `json:"total_customers"`
	HighRiskCount      int     `json:"high_risk_count"`   // Critical
	MediumRiskCount    int     `json:"medium_risk_count"` // At-Risk
	StableCount        int     `json:"stable_count"`
	LowRiskCount       int     `json:"low_risk_count"` // Loyal
	PredictionVariance float64 `json:"prediction_variance"`
	AverageProbability float64 `json:"average_probability"`
}

// ScoreResponse is the full inference output for one uploaded file.
type ScoreResponse struct {
	Predictions []PredictionResult `json:"predictions"`
	Summary     ScoreSummary       `json:"summary"`
}

// BenchmarkEntry is one ranked row of the algorithm benchmark report.
type BenchmarkEntry struct {
	Algorithm    string  `json:"algorithm"`
	ROCAUC       float64 `json:"roc_auc"`
	Accuracy     float64 `json:"accuracy"`
	TrainingTime float64 `json:"training_time"` // seconds
}

// CandidateFailure records a benchmark candidate that failed to fit or
// predict. Failures never abort the run; they are reported and the
// candidate is excluded from ranking.
type CandidateFailure struct {
	Algorithm string `json:"algorithm"`
	Error     string `json:"error"`
}

// ValidationVerdict is the all-or-nothing outcome of the schema gate.
type ValidationVerdict struct {
	Passed    bool      `json:"passed"`
	Message   string    `json:"message,omitempty"`
	Context   string    `json:"context"`
	CheckedAt time.Time `json:"checked_at"`
}

// DriftStat is the two-sample distribution check for one numeric column.
type DriftStat struct {
	Column        string  `json:"column"`
	Statistic     float64 `json:"statistic"`
	PValue        float64 `json:"p_value"`
	DriftDetected bool    `json:"drift_detected"`
}

// StatusResponse exposes bundle health for the /api/stats endpoint.
type StatusResponse struct {
	Status       string  `json:"status"`
	Message      string  `json:"message,omitempty"`
	AUCScore     float64 `json:"auc_score,omitempty"`
	KSStat       float64 `json:"ks_stat,omitempty"`
	Engine       string  `json:"engine,omitempty"`
	ModelVersion string  `json:"model_version,omitempty"`
	LastUpdated  string  `json:"last_updated,omitempty"`
}

// FeatureImportance is one heuristic importance row for the dashboard.
type FeatureImportance struct {
	Feature     string  `json:"feature"`
	Importance  float64 `json:"importance"`
	Description string  `json:"description"`
}
