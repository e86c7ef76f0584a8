// Package risk maps churn probabilities onto retention bands and
// derives the human-readable reason for each score.
package risk

import (
	"strings"

	"churn-intel/internal/dataset"
)

// Band is one probability stratum. Bands are evaluated in order and
// the first match wins.
type Band struct {
	Level     string
	Timeframe string
	Color     string
	matches   func(p float64) bool
}

var bands = []Band{
	{"Critical", "Next 30 Days", "red", func(p float64) bool { return p > 0.85 }},
	{"At-Risk", "2-4 Months", "orange", func(p float64) bool { return p > 0.60 }},
	{"Loyal", "Strong Retention", "green", func(p float64) bool { return p < 0.15 }},
	{"Stable", "Baseline", "yellow", func(p float64) bool { return true }},
}

// Stratify returns the band for a raw probability in [0, 1].
func Stratify(p float64) Band {
	for _, b := range bands {
		if b.matches(p) {
			return b
		}
	}
	return bands[len(bands)-1] // unreachable, the last band matches all
}

const reasonFallback = "Stable profile"

type reasonRule struct {
	text    string
	applies func(in ReasonInput) bool
}

// ReasonInput carries the row attributes the reason rules inspect.
type ReasonInput struct {
	Contract        string
	PaymentMethod   string
	MonthlyCharges  float64
	BatchMeanCharge float64
	TenureMonths    int
}

var reasonRules = []reasonRule{
	{"High-risk monthly contract", func(in ReasonInput) bool {
		return in.Contract == "Month-to-month"
	}},
	{"Unstable payment", func(in ReasonInput) bool {
		return in.PaymentMethod == "Electronic check"
	}},
	{"High charges", func(in ReasonInput) bool {
		return in.BatchMeanCharge > 0 && in.MonthlyCharges > 1.2*in.BatchMeanCharge
	}},
	{"New customer risk", func(in ReasonInput) bool {
		return in.TenureMonths < 6
	}},
}

// PrimaryReason joins the first two matching rules, falling back to a
// neutral label when nothing fires.
func PrimaryReason(in ReasonInput) string {
	var matched []string
	for _, rule := range reasonRules {
		if rule.applies(in) {
			matched = append(matched, rule.text)
			if len(matched) == 2 {
				break
			}
		}
	}
	if len(matched) == 0 {
		return reasonFallback
	}
	return strings.Join(matched, " + ")
}

// ReasonInputFromRow extracts the rule attributes for one table row.
func ReasonInputFromRow(t *dataset.Table, row int, batchMean float64) ReasonInput {
	tenure, _ := dataset.Int(t.Cell(row, dataset.ColTenure))
	return ReasonInput{
		Contract:        strings.TrimSpace(t.Cell(row, dataset.ColContract)),
		PaymentMethod:   strings.TrimSpace(t.Cell(row, dataset.ColPaymentMethod)),
		MonthlyCharges:  dataset.FloatOrZero(t.Cell(row, dataset.ColMonthlyCharges)),
		BatchMeanCharge: batchMean,
		TenureMonths:    tenure,
	}
}
