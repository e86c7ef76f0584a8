package ingest

import (
	"bytes"
	"encoding/csv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// decoderLadder is the fixed, ordered list of encodings attempted on an
// upload. The first decoding whose parse yields more than one column
// wins; otherwise the default (first) decoder's result is surfaced.
var decoderLadder = []struct {
	name string
	enc  encoding.Encoding
}{
	{"utf-8-sig", unicode.UTF8BOM},
	{"latin-1", charmap.ISO8859_1},
	{"windows-1252", charmap.Windows1252},
}

var delimiterCandidates = []rune{',', ';', '\t', '|'}

// sniffDelimiter picks the delimiter that splits the header line into
// the most fields. Defaults to comma when nothing else wins.
func sniffDelimiter(header string) rune {
	best, bestCount := ',', 1
	for _, d := range delimiterCandidates {
		if n := strings.Count(header, string(d)) + 1; n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// utf8bomSignature is stripped before validity checking; the x/text
// UTF-8 decoder substitutes replacement runes instead of failing, so
// invalid input must be rejected explicitly to let the ladder descend.
var utf8bomSignature = []byte{0xEF, 0xBB, 0xBF}

// decodeAndParse runs the decode ladder and returns header + records.
func decodeAndParse(raw []byte) ([]string, [][]string, error) {
	var firstErr error
	for i, d := range decoderLadder {
		if d.name == "utf-8-sig" && !utf8.Valid(bytes.TrimPrefix(raw, utf8bomSignature)) {
			continue
		}
		decoded, err := d.enc.NewDecoder().Bytes(raw)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		header, records, err := parseCSV(decoded)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(header) > 1 {
			return header, records, nil
		}
		// Single-column parse: only acceptable from the fallback decoder.
		if i == len(decoderLadder)-1 {
			return header, records, nil
		}
	}
	// None succeeded with multiple columns; retry with the default
	// decoder and surface whatever error occurs.
	header, records, err := parseCSV(raw)
	if err != nil {
		if firstErr != nil {
			err = firstErr
		}
		return nil, nil, &Error{Reason: "could not decode tabular content", Err: err}
	}
	return header, records, nil
}

func parseCSV(decoded []byte) ([]string, [][]string, error) {
	line := decoded
	if i := bytes.IndexByte(decoded, '\n'); i >= 0 {
		line = decoded[:i]
	}
	r := csv.NewReader(bytes.NewReader(decoded))
	r.Comma = sniffDelimiter(string(line))
	r.FieldsPerRecord = -1 // tolerate ragged rows; the gate audits them
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, &Error{Reason: "file contains no rows"}
	}
	return records[0], records[1:], nil
}
