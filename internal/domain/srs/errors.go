package srs

import "errors"

// Sentinel kinds for scheduling errors.
var (
	ErrInvalidQualityScore = errors.New("quality score must be an integer in [0,5]")
	ErrInvalidEaseFactor   = errors.New("ease factor must be at least 1.3")
)
