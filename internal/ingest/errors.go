package ingest

import (
	"fmt"
	"strings"
)

// Error marks input that could not be read or decoded at all.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingestion failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("ingestion failed: %s", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// MissingColumnsError names every required attribute absent after
// canonical matching, not just the first. Callers surface the full
// list so one upload round-trip fixes all of them.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "Columns Missing: " + strings.Join(e.Missing, ", ")
}
