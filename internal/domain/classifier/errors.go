package classifier

import "errors"

// Sentinel kinds for classifier errors.
var (
	ErrShape      = errors.New("invalid network shape")
	ErrWidth      = errors.New("input width does not match network")
	ErrLabel      = errors.New("label outside {1, 2}")
	ErrNoSamples  = errors.New("no training samples")
	ErrHyperParam = errors.New("invalid training parameter")
)
