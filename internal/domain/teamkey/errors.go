package teamkey

import (
	"errors"
	"fmt"
)

// ErrInvalidKey is the sentinel kind behind every InvalidKeyError.
var ErrInvalidKey = errors.New("invalid team-year key")

// InvalidKeyError names the key or team that could not be encoded or decoded.
type InvalidKeyError struct {
	Key    string
	Reason string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid team-year key %q: %s", e.Key, e.Reason)
}

// Unwrap exposes ErrInvalidKey to errors.Is.
func (e *InvalidKeyError) Unwrap() error { return ErrInvalidKey }
