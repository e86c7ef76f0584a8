// Package dataset holds the typed table the pipeline operates on and
// the canonical customer-attribute registry.
package dataset

import (
	"fmt"
	"strings"
)

// Canonical column names. Fuzzy matching against uploads happens at
// the ingestion boundary only; everything downstream uses these.
const (
	ColCustomerID     = "customerID"
	ColTenure         = "tenure"
	ColMonthlyCharges = "MonthlyCharges"
	ColTotalCharges   = "TotalCharges"
	ColContract       = "Contract"
	ColPaymentMethod  = "PaymentMethod"
	ColChurn          = "Churn"

	// Derived feature columns.
	ColTenureBin          = "tenure_bin"
	ColHighRiskContract   = "is_high_risk_contract"
	ColUnstablePayment    = "unstable_payment"
	ColServiceCount       = "service_count"
	ColPriceSensitivity   = "price_sensitivity"
	ColCLVProxy           = "clv_proxy"
)

// RequiredColumns is the data contract every upload must satisfy,
// in canonical casing.
var RequiredColumns = []string{
	"gender", "SeniorCitizen", "Partner", "Dependents",
	"tenure", "PhoneService", "MultipleLines", "InternetService",
	"OnlineSecurity", "OnlineBackup", "DeviceProtection", "TechSupport",
	"StreamingTV", "StreamingMovies", "Contract", "PaperlessBilling",
	"PaymentMethod", "MonthlyCharges", "TotalCharges",
}

// ServiceColumns are the boolean-like add-on services counted by the
// service_count feature. Absent columns are skipped, never an error.
var ServiceColumns = []string{
	"PhoneService", "MultipleLines", "OnlineSecurity",
	"OnlineBackup", "DeviceProtection", "TechSupport",
	"StreamingTV", "StreamingMovies",
}

// NumericColumns are the raw numeric attributes subject to the drift
// check and, together with the derived features, to preprocessing.
var NumericColumns = []string{ColTenure, ColMonthlyCharges, ColTotalCharges}

// Table is a column-named, string-valued table. Values keep their
// uploaded text form; coercion to numbers happens where a component
// needs it.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// New builds a table from an ordered header and row-major data.
func New(columns []string, rows [][]string) *Table {
	t := &Table{Columns: columns, Rows: rows}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c] = i
	}
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// HasColumn reports whether a column exists under its exact name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Value returns the cell at (row, column). The second return is false
// when the column does not exist.
func (t *Table) Value(row int, column string) (string, bool) {
	i, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.Rows) {
		return "", false
	}
	if i >= len(t.Rows[row]) {
		return "", true // ragged row, treat as empty cell
	}
	return t.Rows[row][i], true
}

// Cell returns the cell at (row, column), or "" when the column does
// not exist. Use Value when absence must be distinguished from empty.
func (t *Table) Cell(row int, column string) string {
	v, _ := t.Value(row, column)
	return v
}

// Subset returns a new table holding the given rows in the given
// order. Row slices are shared with the receiver, not copied.
func (t *Table) Subset(rows []int) *Table {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = t.Rows[r]
	}
	return New(append([]string(nil), t.Columns...), out)
}

// Column returns all values of one column in row order.
func (t *Table) Column(name string) ([]string, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		if i < len(row) {
			out[r] = row[i]
		}
	}
	return out, true
}

// Rename changes a column name in place.
func (t *Table) Rename(from, to string) {
	i, ok := t.index[from]
	if !ok {
		return
	}
	t.Columns[i] = to
	t.reindex()
}

// SetColumn writes a full column, appending it when absent. The value
// count must match the row count.
func (t *Table) SetColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("dataset: column %s has %d values for %d rows", name, len(values), len(t.Rows))
	}
	if i, ok := t.index[name]; ok {
		for r := range t.Rows {
			for i >= len(t.Rows[r]) {
				t.Rows[r] = append(t.Rows[r], "")
			}
			t.Rows[r][i] = values[r]
		}
		return nil
	}
	t.Columns = append(t.Columns, name)
	for r := range t.Rows {
		t.Rows[r] = append(t.Rows[r], values[r])
	}
	t.reindex()
	return nil
}

// Clone deep-copies the table so derivations never mutate their input.
func (t *Table) Clone() *Table {
	cols := make([]string, len(t.Columns))
	copy(cols, t.Columns)
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = make([]string, len(r))
		copy(rows[i], r)
	}
	return New(cols, rows)
}

// IsNull reports whether a cell value counts as missing: empty or
// whitespace-only text.
func IsNull(v string) bool {
	return strings.TrimSpace(v) == ""
}
