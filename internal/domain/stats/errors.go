package stats

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package.
var (
	ErrConfig      = errors.New("invalid stats configuration")
	ErrUnknownStat = errors.New("unknown team stat")
)

// ConfigError reports an unusable recent-years window length.
type ConfigError struct {
	RecentYears int
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("recent_years must be >= 1, got %d", e.RecentYears)
}

// Unwrap exposes ErrConfig to errors.Is.
func (e *ConfigError) Unwrap() error { return ErrConfig }
