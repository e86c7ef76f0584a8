// Package validation enforces the data contract on canonical tables
// and provides the auxiliary distribution-drift check.
package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"churn-intel/internal/dataset"
	"churn-intel/pkg/api"
)

// Context selects gate strictness. Training failures block the
// pipeline; inference failures are advisory and only logged, so
// serving stays available on imperfect uploads.
type Context string

const (
	ContextTraining  Context = "Training"
	ContextInference Context = "Inference"
)

// Blocking reports whether a failed verdict must stop processing.
func (c Context) Blocking() bool { return c == ContextTraining }

// Gate runs the validation rule chain in fixed precedence:
// type/range contract, then duplicate identities, then null sparsity.
// The verdict is all-or-nothing; the first blocking rule is reported.
type Gate struct {
	SparsityThreshold float64 // fraction of nulls a column may carry
	MaxMonthlyCharge  float64
}

// NewGate returns a gate with production thresholds.
func NewGate() *Gate {
	return &Gate{
		SparsityThreshold: 0.25,
		MaxMonthlyCharge:  1000,
	}
}

type rule struct {
	name  string
	check func(*dataset.Table) string // non-empty = violation message
}

// Validate produces a single verdict for the table.
func (g *Gate) Validate(t *dataset.Table, ctx Context) api.ValidationVerdict {
	rules := []rule{
		{"schema", g.checkSchema},
		{"duplicates", g.checkDuplicates},
		{"sparsity", g.checkSparsity},
	}

	verdict := api.ValidationVerdict{Passed: true, Context: string(ctx), CheckedAt: time.Now().UTC()}
	for _, r := range rules {
		if msg := r.check(t); msg != "" {
			verdict.Passed = false
			verdict.Message = msg
			log.Warn().Str("context", string(ctx)).Str("rule", r.name).Str("violation", msg).
				Msg("validation gate failed")
			return verdict
		}
	}
	log.Info().Str("context", string(ctx)).Int("rows", t.NumRows()).Msg("validation gate passed")
	return verdict
}

func (g *Gate) checkSchema(t *dataset.Table) string {
	if ids, ok := t.Column(dataset.ColCustomerID); ok {
		for i, id := range ids {
			if dataset.IsNull(id) {
				return fmt.Sprintf("schema violation: %s is null at row %d", dataset.ColCustomerID, i+1)
			}
		}
	}

	if col, ok := t.Column(dataset.ColTenure); ok {
		for i, v := range col {
			if dataset.IsNull(v) {
				return fmt.Sprintf("schema violation: %s is null at row %d", dataset.ColTenure, i+1)
			}
			n, err := dataset.Int(v)
			if err != nil {
				return fmt.Sprintf("schema violation: %s must be an integer, got %q at row %d", dataset.ColTenure, v, i+1)
			}
			if n < 0 {
				return fmt.Sprintf("schema violation: %s must be >= 0, got %d at row %d", dataset.ColTenure, n, i+1)
			}
		}
	}

	if col, ok := t.Column(dataset.ColMonthlyCharges); ok {
		for i, v := range col {
			f, err := dataset.Float(v)
			if err != nil {
				return fmt.Sprintf("schema violation: %s must be numeric, got %q at row %d", dataset.ColMonthlyCharges, v, i+1)
			}
			if f < 0 || f > g.MaxMonthlyCharge {
				return fmt.Sprintf("schema violation: %s out of range [0, %.0f] at row %d", dataset.ColMonthlyCharges, g.MaxMonthlyCharge, i+1)
			}
		}
	}

	// TotalCharges may be null (new customers) but never non-numeric
	// text. Embedded whitespace is the classic export defect here, so
	// the message calls it out.
	if col, ok := t.Column(dataset.ColTotalCharges); ok {
		for i, v := range col {
			if dataset.IsNull(v) {
				continue
			}
			if _, err := dataset.Float(v); err != nil {
				return fmt.Sprintf("schema violation: %s carries non-numeric characters (such as embedded whitespace), got %q at row %d; clean the source export",
					dataset.ColTotalCharges, v, i+1)
			}
		}
	}

	if col, ok := t.Column(dataset.ColChurn); ok {
		for i, v := range col {
			if dataset.IsNull(v) {
				continue
			}
			if v != "Yes" && v != "No" {
				return fmt.Sprintf("schema violation: %s must be Yes or No, got %q at row %d", dataset.ColChurn, v, i+1)
			}
		}
	}
	return ""
}

func (g *Gate) checkDuplicates(t *dataset.Table) string {
	ids, ok := t.Column(dataset.ColCustomerID)
	if !ok {
		return ""
	}
	seen := make(map[string]struct{}, len(ids))
	duplicates := 0
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			duplicates++
			continue
		}
		seen[id] = struct{}{}
	}
	if duplicates > 0 {
		return fmt.Sprintf("duplicate identity violation: %d non-unique customer instances detected", duplicates)
	}
	return ""
}

func (g *Gate) checkSparsity(t *dataset.Table) string {
	if t.NumRows() == 0 {
		return ""
	}
	var offending []string
	for _, c := range t.Columns {
		// Blank TotalCharges marks a new customer and is legal under the
		// schema rule, so it never counts toward sparsity.
		if c == dataset.ColTotalCharges {
			continue
		}
		col, _ := t.Column(c)
		nulls := 0
		for _, v := range col {
			if dataset.IsNull(v) {
				nulls++
			}
		}
		if float64(nulls)/float64(len(col)) > g.SparsityThreshold {
			offending = append(offending, c)
		}
	}
	if len(offending) > 0 {
		sort.Strings(offending)
		return fmt.Sprintf("data quality violation: columns [%s] exceed the %.0f%% null threshold",
			strings.Join(offending, ", "), g.SparsityThreshold*100)
	}
	return ""
}
