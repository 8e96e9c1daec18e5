package bracket

import "errors"

// Sentinel kinds for bracket errors. All of them are caller errors and are
// reported before any state changes.
var (
	ErrInsufficientParticipants = errors.New("at least two participants are required")
	ErrBracketAlreadyGenerated  = errors.New("bracket already generated")
	ErrMatchNotReady            = errors.New("match is not ready to be scored")
	ErrMatchNotFound            = errors.New("match not found")
	ErrTournamentNotStarted     = errors.New("tournament is not in progress")
	ErrInvalidScore             = errors.New("scores must not be negative")
)
