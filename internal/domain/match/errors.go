package match

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidMatch = errors.New("invalid match")
	ErrReadTable    = errors.New("read match table failed")
)

// ValidationError reports a match row that cannot enter the table.
type ValidationError struct {
	Row    int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid match at row %d: %s: %s", e.Row, e.Field, e.Reason)
}

// Unwrap exposes ErrInvalidMatch to errors.Is.
func (e *ValidationError) Unwrap() error { return ErrInvalidMatch }
