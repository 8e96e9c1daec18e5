// Package srs implements SM-2 spaced-repetition scheduling for flashcards.
package srs

import (
	"fmt"
	"math"
	"time"
)

// SM-2 constants.
const (
	MinEaseFactor     = 1.3
	DefaultEaseFactor = 2.5

	MinQuality     = 0
	MaxQuality     = 5
	PassingQuality = 3

	firstInterval  = 1
	secondInterval = 6
	failedInterval = 1
)

// State is the scheduling input taken from a card.
type State struct {
	EaseFactor   float64
	IntervalDays int
	Repetitions  int
}

// Review is the scheduling state produced by one review.
type Review struct {
	EaseFactor     float64   `json:"ease_factor"`
	IntervalDays   int       `json:"interval_days"`
	Repetitions    int       `json:"repetitions"`
	NextReviewAt   time.Time `json:"next_review_at"`
	LastReviewedAt time.Time `json:"last_reviewed_at"`
}

// Passed reports whether quality counts as a successful recall.
func Passed(quality int) bool { return quality >= PassingQuality }

// ScheduleNextReview applies one SM-2 review of the given quality at now.
//
// The ease factor update is unconditional; only the interval and repetition
// count branch on success. The interval uses the ease factor from before the
// update. The caller must pass an ease factor >= 1.3.
func ScheduleNextReview(state State, quality int, now time.Time) (Review, error) {
	if quality < MinQuality || quality > MaxQuality {
		return Review{}, fmt.Errorf("%w: got %d", ErrInvalidQualityScore, quality)
	}

	var interval, repetitions int
	if Passed(quality) {
		switch state.Repetitions {
		case 0:
			interval = firstInterval
		case 1:
			interval = secondInterval
		default:
			interval = roundHalfUp(float64(state.IntervalDays) * state.EaseFactor)
		}
		repetitions = state.Repetitions + 1
	} else {
		repetitions = 0
		interval = failedInterval
	}

	return Review{
		EaseFactor:     nextEaseFactor(state.EaseFactor, quality),
		IntervalDays:   interval,
		Repetitions:    repetitions,
		NextReviewAt:   now.AddDate(0, 0, interval),
		LastReviewedAt: now,
	}, nil
}

// nextEaseFactor is EF' = max(1.3, EF + (0.1 - (5-q)*(0.08 + (5-q)*0.02))).
func nextEaseFactor(ef float64, quality int) float64 {
	d := float64(MaxQuality - quality)
	return math.Max(MinEaseFactor, ef+(0.1-d*(0.08+d*0.02)))
}

// roundHalfUp rounds .5 towards +Inf like JavaScript's Math.round, so 7.5 -> 8.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
