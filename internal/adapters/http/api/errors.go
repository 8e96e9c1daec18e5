package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/quizarena/internal/adapters/repository"
	service "github.com/okian/quizarena/internal/app"
	"github.com/okian/quizarena/internal/domain/bracket"
	"github.com/okian/quizarena/internal/domain/srs"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// wrap prefixes err with the handler operation.
func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// classify maps an upstream error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, srs.ErrInvalidQualityScore),
		errors.Is(err, bracket.ErrInvalidScore):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, bracket.ErrMatchNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrAlreadyJoined),
		errors.Is(err, service.ErrRegistrationClosed),
		errors.Is(err, bracket.ErrBracketAlreadyGenerated),
		errors.Is(err, bracket.ErrInsufficientParticipants),
		errors.Is(err, bracket.ErrMatchNotReady),
		errors.Is(err, bracket.ErrTournamentNotStarted),
		errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, service.ErrStopped):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
