package service

import "errors"

// Sentinel error kinds for the predictor pipeline.
var (
	ErrNotReady         = errors.New("pipeline stage not ready")
	ErrAlreadyProcessed = errors.New("data already processed")
	ErrInvalidQuery     = errors.New("invalid prediction query")
	ErrUnknownTeam      = errors.New("unknown team")
)
