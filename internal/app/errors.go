package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrRegistrationClosed = errors.New("tournament registration is closed")
	ErrAlreadyJoined      = errors.New("user already joined the tournament")
	ErrBackpressure       = errors.New("review queue is full, retry later")
	ErrStopped            = errors.New("service is stopped")
)
