// Package ingest turns raw uploaded bytes into a canonical typed table.
// All fuzzy column matching is confined to this boundary; downstream
// components see canonical names only.
package ingest

import (
	"path/filepath"
	"regexp"
	"strings"

	"churn-intel/internal/dataset"
)

var edgePunct = regexp.MustCompile(`^[^a-zA-Z0-9]+|[^a-zA-Z0-9]+$`)

// sanitizeColumn trims whitespace and quote characters, then strips any
// leading/trailing run of non-alphanumeric characters.
func sanitizeColumn(c string) string {
	c = strings.TrimSpace(c)
	c = strings.Trim(c, `"'`)
	return edgePunct.ReplaceAllString(c, "")
}

// Parse converts an uploaded byte buffer plus claimed filename into a
// CanonicalTable, or rejects it. Rejections are either *Error
// (unreadable input) or *MissingColumnsError (contract gap).
func Parse(raw []byte, filename string) (*dataset.Table, error) {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != ".csv" {
		return nil, &Error{Reason: "unsupported file type " + ext + ", expected .csv"}
	}
	if len(raw) == 0 {
		return nil, &Error{Reason: "uploaded file is empty"}
	}

	header, records, err := decodeAndParse(raw)
	if err != nil {
		return nil, err
	}

	columns := make([]string, len(header))
	for i, c := range header {
		columns[i] = sanitizeColumn(c)
	}

	table := dataset.New(columns, records)
	canonicalize(table)

	if missing := missingRequired(table); len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}
	return table, nil
}

// canonicalize substitutes the declared casing for every
// case-insensitive match against the required attributes, and renames
// the identity column when present under any casing variant.
func canonicalize(t *dataset.Table) {
	byLower := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		byLower[strings.ToLower(c)] = c
	}

	if found, ok := byLower[strings.ToLower(dataset.ColCustomerID)]; ok {
		t.Rename(found, dataset.ColCustomerID)
	}
	for _, want := range append(dataset.RequiredColumns, dataset.ColChurn) {
		if found, ok := byLower[strings.ToLower(want)]; ok && found != want {
			t.Rename(found, want)
		}
	}
}

func missingRequired(t *dataset.Table) []string {
	var missing []string
	for _, want := range dataset.RequiredColumns {
		if !t.HasColumn(want) {
			missing = append(missing, want)
		}
	}
	return missing
}
