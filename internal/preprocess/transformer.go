package preprocess

import (
	"fmt"
	"math"

	"churn-intel/internal/dataset"
)

// DefaultNumeric are the numeric model inputs: raw attributes plus the
// engineered features. Binary flags ride the numeric path unchanged in
// meaning by the scaling.
var DefaultNumeric = []string{
	dataset.ColTenure,
	dataset.ColMonthlyCharges,
	dataset.ColTotalCharges,
	"SeniorCitizen",
	dataset.ColServiceCount,
	dataset.ColPriceSensitivity,
	dataset.ColCLVProxy,
	dataset.ColHighRiskContract,
	dataset.ColUnstablePayment,
}

// DefaultCategorical are the one-hot encoded model inputs.
var DefaultCategorical = []string{
	"gender", "Partner", "Dependents",
	"PhoneService", "MultipleLines", "InternetService",
	"OnlineSecurity", "OnlineBackup", "DeviceProtection",
	"TechSupport", "StreamingTV", "StreamingMovies",
	dataset.ColContract, "PaperlessBilling", dataset.ColPaymentMethod,
	dataset.ColTenureBin,
}

// ColumnTransformer composes the numeric and categorical pipelines
// into one fitted transform producing the model's feature matrix.
type ColumnTransformer struct {
	NumericColumns     []string
	CategoricalColumns []string
	Numeric            map[string]*NumericTransform
	Encoder            *OneHotEncoder
	Fitted             bool
}

// NewColumnTransformer builds an unfitted transformer over the default
// model inputs.
func NewColumnTransformer() *ColumnTransformer {
	return &ColumnTransformer{
		NumericColumns:     DefaultNumeric,
		CategoricalColumns: DefaultCategorical,
	}
}

// Fit learns all transform state from the given (training) table.
func (ct *ColumnTransformer) Fit(t *dataset.Table) error {
	ct.Numeric = make(map[string]*NumericTransform)
	for _, c := range ct.NumericColumns {
		values := numericValues(t, c)
		if values == nil {
			continue // column absent, excluded from the matrix
		}
		nt, err := FitNumeric(values)
		if err != nil {
			return fmt.Errorf("preprocess: fit %s: %w", c, err)
		}
		ct.Numeric[c] = nt
	}
	ct.Encoder = FitOneHot(t, ct.CategoricalColumns)
	ct.Fitted = true
	return nil
}

// Transform maps a table onto the fitted feature matrix.
func (ct *ColumnTransformer) Transform(t *dataset.Table) ([][]float64, error) {
	if !ct.Fitted {
		return nil, fmt.Errorf("preprocess: transformer not fitted")
	}
	n := t.NumRows()
	width := ct.width()
	out := make([][]float64, n)
	for r := 0; r < n; r++ {
		row := make([]float64, 0, width)
		for _, c := range ct.NumericColumns {
			nt, ok := ct.Numeric[c]
			if !ok {
				continue
			}
			v, present := t.Value(r, c)
			if !present || dataset.IsNull(v) {
				row = append(row, nt.Apply(math.NaN()))
				continue
			}
			f, err := dataset.Float(v)
			if err != nil {
				f = math.NaN()
			}
			row = append(row, nt.Apply(f))
		}
		row = ct.Encoder.EncodeRow(t, r, row)
		out[r] = row
	}
	return out, nil
}

// FitTransform fits on the table then transforms it.
func (ct *ColumnTransformer) FitTransform(t *dataset.Table) ([][]float64, error) {
	if err := ct.Fit(t); err != nil {
		return nil, err
	}
	return ct.Transform(t)
}

// FeatureNames lists the output feature names in matrix column order.
func (ct *ColumnTransformer) FeatureNames() []string {
	var names []string
	for _, c := range ct.NumericColumns {
		if _, ok := ct.Numeric[c]; ok {
			names = append(names, c)
		}
	}
	return append(names, ct.Encoder.FeatureNames()...)
}

func (ct *ColumnTransformer) width() int {
	return len(ct.Numeric) + ct.Encoder.Width()
}
