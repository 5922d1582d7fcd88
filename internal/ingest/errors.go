package ingest

import (
	"fmt"
	"strings"
)

// IngestionError means the input cannot be used at all: the file is missing
// or unreadable, or identifying columns are absent.
type IngestionError struct {
	Path    string
	Missing []string
	Err     error
}

func (e *IngestionError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("ingestion of %s failed: missing required columns %s", e.Path, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("ingestion of %s failed: %v", e.Path, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// ParseError is a recoverable per-field problem. The field is set to its
// zero value and the row is kept.
type ParseError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: cannot parse %s %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
