package srs

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/quizarena/internal/domain/model"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithDefaultEaseFactor sets the ease factor given to new cards.
// Values below MinEaseFactor are ignored.
func WithDefaultEaseFactor(ef float64) Option {
	return func(s *Scheduler) {
		if ef >= MinEaseFactor {
			s.defaultEaseFactor = ef
		}
	}
}

// WithClock overrides the time source used by NewCard.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler applies ScheduleNextReview to flashcards. It holds no mutable
// state and is safe for concurrent use.
type Scheduler struct {
	defaultEaseFactor float64
	now               func() time.Time
}

// NewScheduler creates a Scheduler with configuration options.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		defaultEaseFactor: DefaultEaseFactor,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultEaseFactor returns the ease factor assigned to new cards.
func (s *Scheduler) DefaultEaseFactor() float64 { return s.defaultEaseFactor }

// NewCard initializes scheduling fields on a new card. New cards are due
// immediately.
func (s *Scheduler) NewCard(card model.Flashcard) model.Flashcard {
	c := card.Clone()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	c.EaseFactor = s.defaultEaseFactor
	c.IntervalDays = 0
	c.Repetitions = 0
	c.NextReviewAt = c.CreatedAt
	c.LastReviewedAt = nil
	return c
}

// Review returns card rescheduled after a review of the given quality at now.
// The input card is not mutated.
func (s *Scheduler) Review(card model.Flashcard, quality int, now time.Time) (model.Flashcard, error) {
	if card.EaseFactor < MinEaseFactor {
		return model.Flashcard{}, fmt.Errorf("%w: card %s has %.2f", ErrInvalidEaseFactor, card.ID, card.EaseFactor)
	}
	r, err := ScheduleNextReview(State{
		EaseFactor:   card.EaseFactor,
		IntervalDays: card.IntervalDays,
		Repetitions:  card.Repetitions,
	}, quality, now)
	if err != nil {
		return model.Flashcard{}, err
	}

	c := card.Clone()
	c.EaseFactor = r.EaseFactor
	c.IntervalDays = r.IntervalDays
	c.Repetitions = r.Repetitions
	c.NextReviewAt = r.NextReviewAt
	reviewed := r.LastReviewedAt
	c.LastReviewedAt = &reviewed
	return c, nil
}

// Preview returns the outcome of reviewing card with every quality 0..5.
func (s *Scheduler) Preview(card model.Flashcard, now time.Time) ([]Review, error) {
	if card.EaseFactor < MinEaseFactor {
		return nil, fmt.Errorf("%w: card %s has %.2f", ErrInvalidEaseFactor, card.ID, card.EaseFactor)
	}
	state := State{EaseFactor: card.EaseFactor, IntervalDays: card.IntervalDays, Repetitions: card.Repetitions}
	out := make([]Review, 0, MaxQuality-MinQuality+1)
	for q := MinQuality; q <= MaxQuality; q++ {
		r, err := ScheduleNextReview(state, q, now)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// IsDue reports whether card should be studied at now.
func IsDue(card model.Flashcard, now time.Time) bool {
	return !card.NextReviewAt.After(now)
}

// Due returns the cards due at now, earliest first, at most limit of them
// (limit <= 0 means no limit). Ties are broken by card id.
func Due(cards []model.Flashcard, now time.Time, limit int) []model.Flashcard {
	due := make([]model.Flashcard, 0, len(cards))
	for _, c := range cards {
		if IsDue(c, now) {
			due = append(due, c)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextReviewAt.Equal(due[j].NextReviewAt) {
			return due[i].NextReviewAt.Before(due[j].NextReviewAt)
		}
		return due[i].ID < due[j].ID
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due
}
