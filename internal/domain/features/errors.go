package features

import (
	"errors"
	"fmt"
)

// ErrFeatureNotFound is the sentinel kind behind every FeatureNotFoundError.
var ErrFeatureNotFound = errors.New("feature not found")

// FeatureNotFoundError names a feature that resolves to no column and no side stat.
type FeatureNotFoundError struct {
	Name string
}

func (e *FeatureNotFoundError) Error() string {
	return fmt.Sprintf("don't know where to get feature %q", e.Name)
}

// Unwrap exposes ErrFeatureNotFound to errors.Is.
func (e *FeatureNotFoundError) Unwrap() error { return ErrFeatureNotFound }
