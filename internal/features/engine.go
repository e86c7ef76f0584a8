// Package features derives behavioral features from validated raw
// attributes. Every derivation is a pure function of the row's own
// canonical attributes: no cross-row aggregate is ever computed, so a
// train/holdout boundary cannot leak through this stage.
package features

import (
	"fmt"
	"strconv"

	"churn-intel/internal/dataset"
)

// Contract and payment variants that mark elevated churn risk.
const (
	monthToMonth    = "Month-to-month"
	electronicCheck = "Electronic check"
	activeSentinel  = "Yes"
)

// tenureBins partitions tenure months into ordered buckets. Values
// outside (0, 100] stay unbucketed.
var tenureBins = []struct {
	upper float64
	label string
}{
	{12, "New"},
	{24, "Junior"},
	{48, "Middle"},
	{72, "Senior"},
	{100, "Legend"},
}

// Engine is the deterministic row-local feature synthesizer.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Synthesize returns a new table extended with the engineered feature
// columns. The input table is never mutated. Running Synthesize twice
// on the same input yields identical output.
func (e *Engine) Synthesize(in *dataset.Table) (*dataset.Table, error) {
	t := in.Clone()
	n := t.NumRows()

	// Identity backfill: uploads without an id column still need stable
	// per-row identifiers for the result records.
	if !t.HasColumn(dataset.ColCustomerID) {
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("CUST-%d", 1000+i)
		}
		if err := t.SetColumn(dataset.ColCustomerID, ids); err != nil {
			return nil, err
		}
	}

	// TotalCharges arrives as text and may be blank for brand-new
	// customers; coerce to numeric with null -> 0 before ratio features.
	if t.HasColumn(dataset.ColTotalCharges) {
		col, _ := t.Column(dataset.ColTotalCharges)
		cleaned := make([]string, n)
		for i, v := range col {
			cleaned[i] = formatFloat(dataset.FloatOrZero(v))
		}
		if err := t.SetColumn(dataset.ColTotalCharges, cleaned); err != nil {
			return nil, err
		}
	}

	if err := e.addTenureBin(t); err != nil {
		return nil, err
	}
	if err := e.addFlag(t, dataset.ColContract, monthToMonth, dataset.ColHighRiskContract); err != nil {
		return nil, err
	}
	if err := e.addFlag(t, dataset.ColPaymentMethod, electronicCheck, dataset.ColUnstablePayment); err != nil {
		return nil, err
	}
	if err := e.addServiceCount(t); err != nil {
		return nil, err
	}
	if err := e.addEconomics(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (e *Engine) addTenureBin(t *dataset.Table) error {
	col, ok := t.Column(dataset.ColTenure)
	if !ok {
		return nil
	}
	bins := make([]string, len(col))
	for i, v := range col {
		bins[i] = bucketTenure(dataset.FloatOrZero(v))
	}
	return t.SetColumn(dataset.ColTenureBin, bins)
}

// bucketTenure returns the ordinal label, or empty (null bucket) for
// values outside the configured range.
func bucketTenure(tenure float64) string {
	if tenure <= 0 {
		return ""
	}
	for _, b := range tenureBins {
		if tenure <= b.upper {
			return b.label
		}
	}
	return ""
}

func (e *Engine) addFlag(t *dataset.Table, source, match, target string) error {
	col, ok := t.Column(source)
	if !ok {
		return nil
	}
	flags := make([]string, len(col))
	for i, v := range col {
		if v == match {
			flags[i] = "1"
		} else {
			flags[i] = "0"
		}
	}
	return t.SetColumn(target, flags)
}

func (e *Engine) addServiceCount(t *dataset.Table) error {
	n := t.NumRows()
	counts := make([]int, n)
	for _, svc := range dataset.ServiceColumns {
		col, ok := t.Column(svc)
		if !ok {
			continue // absent services are excluded, never an error
		}
		for i, v := range col {
			if v == activeSentinel {
				counts[i]++
			}
		}
	}
	out := make([]string, n)
	for i, c := range counts {
		out[i] = strconv.Itoa(c)
	}
	return t.SetColumn(dataset.ColServiceCount, out)
}

func (e *Engine) addEconomics(t *dataset.Table) error {
	monthly, okM := t.Column(dataset.ColMonthlyCharges)
	if !okM {
		return nil
	}
	n := t.NumRows()

	if total, ok := t.Column(dataset.ColTotalCharges); ok {
		sensitivity := make([]string, n)
		for i := range monthly {
			m := dataset.FloatOrZero(monthly[i])
			// +1 guards the zero-total-charge case without a division error.
			sensitivity[i] = formatFloat(m / (dataset.FloatOrZero(total[i]) + 1))
		}
		if err := t.SetColumn(dataset.ColPriceSensitivity, sensitivity); err != nil {
			return err
		}
	}

	if tenure, ok := t.Column(dataset.ColTenure); ok {
		clv := make([]string, n)
		for i := range monthly {
			clv[i] = formatFloat(dataset.FloatOrZero(monthly[i]) * dataset.FloatOrZero(tenure[i]))
		}
		if err := t.SetColumn(dataset.ColCLVProxy, clv); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
