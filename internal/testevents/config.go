package testevents

import (
	"fmt"
	"time"

	"github.com/okian/quizarena/internal/domain/model"
)

// Config holds configuration for a load and verification run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Users          int           // Number of study users
	CardsPerUser   int           // Cards created for each user
	ReviewsPerCard int           // Distinct reviews submitted per card
	ResubmitEvery  int           // Every Nth review is sent twice; 0 disables
	Players        int           // Tournament size; 0 skips the tournament
	Workers        int           // Number of concurrent workers
	Timeout        time.Duration // HTTP request timeout
	SettleTimeout  time.Duration // How long to wait for queued reviews
	PollInterval   time.Duration // Delay between settle checks
	OutputFile     string        // Report file; empty skips writing
	Verbose        bool          // Enable verbose logging
}

// Validate reports settings the run cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrConfig)
	case c.Users < 1 || c.CardsPerUser < 1:
		return fmt.Errorf("%w: need at least one user and one card per user", ErrConfig)
	case c.ReviewsPerCard < 0 || c.ResubmitEvery < 0:
		return fmt.Errorf("%w: review counts must not be negative", ErrConfig)
	case c.Players == 1 || c.Players < 0:
		return fmt.Errorf("%w: a tournament needs at least two players", ErrConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrConfig)
	}
	return nil
}

func (c *Config) settleTimeout() time.Duration {
	if c.SettleTimeout > 0 {
		return c.SettleTimeout
	}
	return DefaultSettleTimeout
}

func (c *Config) pollInterval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return DefaultPollInterval
}

// Review is one POST /reviews body.
type Review struct {
	SubmissionID string `json:"submission_id"`
	CardID       string `json:"card_id"`
	Quality      int    `json:"quality"`
	SubmittedAt  string `json:"submitted_at,omitempty"`
}

// AckResponse represents the response from review submission.
type AckResponse struct {
	Status       string `json:"status"`
	Duplicate    bool   `json:"duplicate"`
	SubmissionID string `json:"submission_id"`
}

// MatchResult is the part of a match result response the run checks.
type MatchResult struct {
	Match       model.Match `json:"match"`
	Advancement struct {
		TournamentCompleted bool   `json:"tournament_completed"`
		ChampionID          string `json:"champion_id"`
	} `json:"advancement"`
}

// Stats holds run statistics.
type Stats struct {
	CardsCreated      int
	ReviewsGenerated  int
	ReviewsSubmitted  int
	ReviewsAccepted   int
	ReviewsDuplicate  int
	ReviewsFailed     int
	ReviewsRetried    int
	ReviewsApplied    int
	CardsVerified     int
	MatchesPlayed     int
	StandingsVerified int
	ChampionID        string
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
