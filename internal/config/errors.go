package config

import "errors"

// Sentinel error kinds. Validate wraps ErrInvalidConfig; Load wraps
// ErrLoadConfig for file, env and decode failures.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
