package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"churn-intel/internal/dataset"
)

// fullHeader returns a contract-complete header row.
func fullHeader() []string {
	return append([]string{"customerID"}, append(append([]string(nil), dataset.RequiredColumns...), "Churn")...)
}

// sampleRow returns a row aligned with fullHeader.
func sampleRow(id string) []string {
	row := []string{id}
	for range dataset.RequiredColumns {
		row = append(row, "x")
	}
	return append(row, "No")
}

func buildCSV(delim string, header []string, rows ...[]string) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(header, delim) + "\n")
	for _, r := range rows {
		b.WriteString(strings.Join(r, delim) + "\n")
	}
	return []byte(b.String())
}

func TestParseCommaCSV(t *testing.T) {
	raw := buildCSV(",", fullHeader(), sampleRow("0001-A"), sampleRow("0002-B"))

	table, err := Parse(raw, "customers.csv")
	require.NoError(t, err)
	require.Equal(t, 2, table.NumRows())
	require.Equal(t, "0001-A", table.Cell(0, dataset.ColCustomerID))
}

func TestParseSniffsSemicolon(t *testing.T) {
	raw := buildCSV(";", fullHeader(), sampleRow("0001-A"))

	table, err := Parse(raw, "export.csv")
	require.NoError(t, err)
	require.Equal(t, 1, table.NumRows())
	require.True(t, table.HasColumn(dataset.ColMonthlyCharges))
}

func TestParseStripsUTF8BOM(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, buildCSV(",", fullHeader(), sampleRow("0001-A"))...)

	table, err := Parse(raw, "bom.csv")
	require.NoError(t, err)
	require.True(t, table.HasColumn(dataset.ColCustomerID), "BOM must not corrupt the first column name")
}

func TestParseLatin1Fallback(t *testing.T) {
	csv := buildCSV(",", fullHeader(), sampleRow("0001-A"))
	// 0xE9 is é in latin-1 and invalid as a standalone UTF-8 byte.
	raw := []byte(strings.Replace(string(csv), "0001-A", "caf\xe9", 1))

	table, err := Parse(raw, "legacy.csv")
	require.NoError(t, err)
	require.Equal(t, "café", table.Cell(0, dataset.ColCustomerID))
}

func TestParseCanonicalizesCasing(t *testing.T) {
	header := fullHeader()
	for i, c := range header {
		header[i] = strings.ToUpper(c)
	}
	raw := buildCSV(",", header, sampleRow("0001-A"))

	table, err := Parse(raw, "shouty.csv")
	require.NoError(t, err)
	require.True(t, table.HasColumn(dataset.ColCustomerID))
	require.True(t, table.HasColumn(dataset.ColMonthlyCharges))
	require.True(t, table.HasColumn(dataset.ColChurn))
}

func TestParseSanitizesHeaderNoise(t *testing.T) {
	header := fullHeader()
	header[0] = ` "*customerID* "`
	raw := buildCSV(",", header, sampleRow("0001-A"))

	table, err := Parse(raw, "noisy.csv")
	require.NoError(t, err)
	require.True(t, table.HasColumn(dataset.ColCustomerID))
}

func TestParseMissingColumns(t *testing.T) {
	raw := buildCSV(",",
		[]string{"customerID", "tenure", "MonthlyCharges"},
		[]string{"0001-A", "5", "20"},
	)

	_, err := Parse(raw, "partial.csv")
	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	require.Contains(t, err.Error(), "Columns Missing:")
	require.Contains(t, missing.Missing, "TotalCharges")
	require.Contains(t, missing.Missing, "Contract")
	require.NotContains(t, missing.Missing, "tenure")
}

func TestParseRejections(t *testing.T) {
	cases := []struct {
		name     string
		raw      []byte
		filename string
		contains string
	}{
		{"WrongExtension", []byte("a,b\n1,2\n"), "data.xlsx", "unsupported file type"},
		{"NoExtension", []byte("a,b\n1,2\n"), "data", "unsupported file type"},
		{"Empty", nil, "empty.csv", "empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.raw, tc.filename)
			var ingErr *Error
			require.ErrorAs(t, err, &ingErr)
			require.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestSanitizeColumn(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  tenure  ", "tenure"},
		{`"Contract"`, "Contract"},
		{"**MonthlyCharges**", "MonthlyCharges"},
		{"_tenure_", "tenure"},
		{"Total Charges", "Total Charges"}, // interior characters survive
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, sanitizeColumn(tc.in), "input %q", tc.in)
	}
}

func TestSniffDelimiter(t *testing.T) {
	cases := []struct {
		header string
		want   rune
	}{
		{"a,b,c", ','},
		{"a;b;c", ';'},
		{"a\tb\tc", '\t'},
		{"a|b|c", '|'},
		{"single", ','},
		{"a;b,c,d", ','},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, sniffDelimiter(tc.header), "header %q", tc.header)
	}
}
