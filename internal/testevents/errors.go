package testevents

import "errors"

// Sentinel errors of a run.
var (
	ErrConfig       = errors.New("invalid test configuration")
	ErrUnexpected   = errors.New("unexpected response")
	ErrVerification = errors.New("verification failed")
	ErrNotSettled   = errors.New("reviews not applied in time")
)
