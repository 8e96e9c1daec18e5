// Package repository persists flashcards and tournaments.
package repository

import (
	"context"
	"time"

	"github.com/okian/quizarena/internal/domain/model"
)

// CardUpdate receives the stored card and returns its replacement. A non-nil
// log is appended to the card's review history in the same write.
type CardUpdate func(card model.Flashcard) (model.Flashcard, *model.ReviewLog, error)

// TournamentUpdate receives the stored tournament and returns its replacement.
type TournamentUpdate func(t model.Tournament) (model.Tournament, error)

// CardStore provides read/write access to flashcards and their review history.
type CardStore interface {
	// CreateCard stores a new card. Returns ErrAlreadyExists on id conflict.
	CreateCard(ctx context.Context, card model.Flashcard) error

	// GetCard returns ErrNotFound if the card is unknown.
	GetCard(ctx context.Context, id string) (model.Flashcard, error)

	// UpdateCard applies fn atomically: no other update of the same card
	// runs between the read and the write. An error from fn aborts the write.
	UpdateCard(ctx context.Context, id string, fn CardUpdate) (model.Flashcard, error)

	// DueCards returns the user's cards with NextReviewAt <= now, earliest
	// first, ties by id. limit <= 0 means no limit.
	DueCards(ctx context.Context, userID string, now time.Time, limit int) ([]model.Flashcard, error)

	// CountDue counts cards of all users due at now.
	CountDue(ctx context.Context, now time.Time) (int, error)

	// ReviewLogs returns a card's history, oldest first.
	ReviewLogs(ctx context.Context, cardID string) ([]model.ReviewLog, error)
}

// TournamentStore provides read/write access to tournaments.
type TournamentStore interface {
	CreateTournament(ctx context.Context, t model.Tournament) error
	GetTournament(ctx context.Context, id string) (model.Tournament, error)

	// UpdateTournament applies fn atomically per tournament, which
	// serializes match results for the same bracket.
	UpdateTournament(ctx context.Context, id string, fn TournamentUpdate) (model.Tournament, error)

	// ListTournaments returns tournaments newest first.
	ListTournaments(ctx context.Context) ([]model.Tournament, error)
}

// Store is the full persistence surface of the service.
type Store interface {
	CardStore
	TournamentStore
	Close() error
}
