// Package model contains domain models passed between layers.
package model

import "time"

// Flashcard is a study card together with its SM-2 scheduling state.
type Flashcard struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	DeckID string `json:"deck_id,omitempty"`
	Front  string `json:"front"`
	Back   string `json:"back"`

	EaseFactor     float64    `json:"ease_factor"`   // >= 1.3
	IntervalDays   int        `json:"interval_days"` // days until next review
	Repetitions    int        `json:"repetitions"`   // consecutive successful reviews
	NextReviewAt   time.Time  `json:"next_review_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"` // nil until first review

	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a copy of the card that shares no pointers with c.
func (c Flashcard) Clone() Flashcard {
	if c.LastReviewedAt != nil {
		t := *c.LastReviewedAt
		c.LastReviewedAt = &t
	}
	return c
}

// ReviewLog is one entry of a card's review history.
type ReviewLog struct {
	ID           string    `json:"id"`
	CardID       string    `json:"card_id"`
	SubmissionID string    `json:"submission_id,omitempty"`
	Quality      int       `json:"quality"`
	ReviewedAt   time.Time `json:"reviewed_at"`
	IntervalDays int       `json:"interval_days"` // resulting interval
	EaseFactor   float64   `json:"ease_factor"`   // resulting ease factor
}

// ReviewSubmission is a review submitted by a client, processed asynchronously.
type ReviewSubmission struct {
	SubmissionID string    // unique id for idempotency
	CardID       string    // reviewed card
	Quality      int       // 0..5 recall rating
	SubmittedAt  time.Time // review timestamp, used as "now" by the scheduler
}
