package simpleexcel

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

var (
	ErrStyleLimit      = errors.New("distinct style limit reached")
	ErrDuplicateHeader = errors.New("duplicate column header")
	ErrDuplicateSheet  = errors.New("duplicate sheet name")
	ErrInvalidSheet    = errors.New("invalid sheet")
	ErrInvalidGroup    = errors.New("invalid header group")
	ErrNoExtractor     = errors.New("column has no value extractor")
	ErrConsumed        = errors.New("data provider already consumed")
)

// WriteError is returned by Render for every failure. Sheet is empty and
// Row is -1 when the failure is not tied to a position.
type WriteError struct {
	Sheet string
	Row   int
	Cause error
}

func (e *WriteError) Error() string {
	switch {
	case e.Sheet != "" && e.Row >= 0:
		return fmt.Sprintf("write failed at sheet %q row %d: %v", e.Sheet, e.Row, e.Cause)
	case e.Sheet != "":
		return fmt.Sprintf("write failed at sheet %q: %v", e.Sheet, e.Cause)
	}
	return fmt.Sprintf("write failed: %v", e.Cause)
}

func (e *WriteError) Unwrap() error { return e.Cause }

func writeError(sheet string, row int, err error) error {
	if err == nil {
		return nil
	}
	var we *WriteError
	if errors.As(err, &we) {
		return err
	}
	return &WriteError{Sheet: sheet, Row: row, Cause: err}
}

// asWriteError folds err into a single *WriteError keeping the position of
// the first positioned failure.
func asWriteError(err error) error {
	if err == nil {
		return nil
	}
	if we, ok := err.(*WriteError); ok {
		return we
	}

	out := &WriteError{Row: -1}
	var causes []error
	for _, e := range multierr.Errors(err) {
		var we *WriteError
		if errors.As(e, &we) {
			if out.Sheet == "" {
				out.Sheet, out.Row = we.Sheet, we.Row
			}
			causes = append(causes, we.Cause)
			continue
		}
		causes = append(causes, e)
	}
	out.Cause = multierr.Combine(causes...)
	return out
}

// ParseError describes one cell that could not be converted while reading.
type ParseError struct {
	Row    int // 1-based spreadsheet row
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d column %q value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
