package preprocess

import (
	"sort"

	"churn-intel/internal/dataset"
)

// missingSentinel replaces null categorical cells before encoding.
const missingSentinel = "missing"

// OneHotEncoder encodes categorical columns with drop-first dummies.
// Categories never seen during fit encode to all zeros rather than
// failing, so inference tolerates novel values.
type OneHotEncoder struct {
	Columns    []string
	Categories map[string][]string // column -> sorted category list from fit
}

// FitOneHot learns each column's category vocabulary from the training
// table. Columns absent from the table are skipped.
func FitOneHot(t *dataset.Table, columns []string) *OneHotEncoder {
	enc := &OneHotEncoder{Categories: make(map[string][]string)}
	for _, c := range columns {
		col, ok := t.Column(c)
		if !ok {
			continue
		}
		seen := make(map[string]struct{})
		for _, v := range col {
			seen[cellCategory(v)] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for v := range seen {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		enc.Columns = append(enc.Columns, c)
		enc.Categories[c] = cats
	}
	return enc
}

// Width returns the number of encoded output features.
func (e *OneHotEncoder) Width() int {
	w := 0
	for _, c := range e.Columns {
		if n := len(e.Categories[c]); n > 1 {
			w += n - 1 // first category dropped
		}
	}
	return w
}

// FeatureNames lists the encoded output feature names in order.
func (e *OneHotEncoder) FeatureNames() []string {
	var names []string
	for _, c := range e.Columns {
		cats := e.Categories[c]
		for i := 1; i < len(cats); i++ {
			names = append(names, c+"_"+cats[i])
		}
	}
	return names
}

// EncodeRow appends the dummy block for one table row to dst.
func (e *OneHotEncoder) EncodeRow(t *dataset.Table, row int, dst []float64) []float64 {
	for _, c := range e.Columns {
		cats := e.Categories[c]
		if len(cats) <= 1 {
			continue
		}
		v, _ := t.Value(row, c)
		cat := cellCategory(v)
		for i := 1; i < len(cats); i++ {
			if cat == cats[i] {
				dst = append(dst, 1)
			} else {
				dst = append(dst, 0)
			}
		}
	}
	return dst
}

func cellCategory(v string) string {
	if dataset.IsNull(v) {
		return missingSentinel
	}
	return v
}
