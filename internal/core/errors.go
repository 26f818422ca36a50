package core

import (
	"errors"
	"fmt"
)

// Error kinds. Callers wrap these with fmt.Errorf("...: %w") and match them
// with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrPersistence  = errors.New("persistence failure")
)

// RowError locates a failure inside a bulk upload. Row is 1-based and
// counts the header, so it matches what a spreadsheet shows.
type RowError struct {
	Row   int
	Field string
	Err   error
}

func (e RowError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("row %d: %s: %v", e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// MarshalText lets row errors travel inside JSON import reports.
func (e RowError) MarshalText() ([]byte, error) {
	return []byte(e.Error()), nil
}

// ImportReport summarizes a bulk operation. A row that fails validation is
// recorded in Errors and does not stop the remaining rows.
type ImportReport struct {
	Imported int        `json:"imported"`
	Updated  int        `json:"updated"`
	Errors   []RowError `json:"errors"`
}

func (r *ImportReport) AddError(row int, field string, err error) {
	r.Errors = append(r.Errors, RowError{Row: row, Field: field, Err: err})
}

// Failed returns the number of rows that were skipped.
func (r ImportReport) Failed() int {
	return len(r.Errors)
}
