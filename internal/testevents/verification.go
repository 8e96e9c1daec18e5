package testevents

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/quizarena/internal/domain/model"
	"github.com/okian/quizarena/internal/domain/types"
	"github.com/okian/quizarena/pkg/logger"
)

// minEaseFactor is the SM-2 floor every card must respect.
const minEaseFactor = 1.3

// waitForReviews polls each card's history until it holds the expected
// number of reviews or the settle timeout passes.
func waitForReviews(ctx context.Context, client *HTTPClient, config *Config, expected map[string]int) error {
	logger.Get().Info(ctx, "waiting for reviews to be applied", logger.Int("cards", len(expected)))

	deadline := time.Now().Add(config.settleTimeout())
	pending := make(map[string]int, len(expected))
	for id, n := range expected {
		pending[id] = n
	}

	for {
		for id, want := range pending {
			var logs []model.ReviewLog
			if err := client.getJSON(ctx, "/cards/"+id+"/reviews", &logs); err != nil {
				return err
			}
			if len(logs) > want {
				return fmt.Errorf("%w: card %s has %d reviews, want %d", ErrVerification, id, len(logs), want)
			}
			if len(logs) == want {
				delete(pending, id)
			}
		}
		if len(pending) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %d cards still pending", ErrNotSettled, len(pending))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(config.pollInterval()):
		}
	}
}

// verifyCards checks every card against its review history: each accepted
// submission applied exactly once, schedule fields consistent with SM-2.
func verifyCards(ctx context.Context, client *HTTPClient, cards []model.Flashcard, expected map[string]int, stats *Stats) error {
	applied := 0
	for _, c := range cards {
		var card model.Flashcard
		if err := client.getJSON(ctx, "/cards/"+c.ID, &card); err != nil {
			return err
		}
		var logs []model.ReviewLog
		if err := client.getJSON(ctx, "/cards/"+c.ID+"/reviews", &logs); err != nil {
			return err
		}
		if err := checkCard(card, logs, expected[c.ID]); err != nil {
			return err
		}
		applied += len(logs)
	}
	stats.CardsVerified = len(cards)
	stats.ReviewsApplied = applied
	logger.Get().Info(ctx, "cards verified", logger.Int("cards", len(cards)), logger.Int("reviews", applied))
	return nil
}

func checkCard(card model.Flashcard, logs []model.ReviewLog, want int) error {
	if len(logs) != want {
		return fmt.Errorf("%w: card %s has %d reviews, want %d", ErrVerification, card.ID, len(logs), want)
	}
	seen := make(map[string]bool, len(logs))
	for _, l := range logs {
		if l.SubmissionID != "" && seen[l.SubmissionID] {
			return fmt.Errorf("%w: card %s applied submission %s twice", ErrVerification, card.ID, l.SubmissionID)
		}
		seen[l.SubmissionID] = true
		if l.EaseFactor < minEaseFactor {
			return fmt.Errorf("%w: review %s has ease factor %.2f", ErrVerification, l.ID, l.EaseFactor)
		}
	}
	if card.EaseFactor < minEaseFactor {
		return fmt.Errorf("%w: card %s has ease factor %.2f", ErrVerification, card.ID, card.EaseFactor)
	}
	if card.Repetitions > len(logs) {
		return fmt.Errorf("%w: card %s has %d repetitions from %d reviews", ErrVerification, card.ID, card.Repetitions, len(logs))
	}
	if len(logs) == 0 {
		if card.LastReviewedAt != nil || card.Repetitions != 0 {
			return fmt.Errorf("%w: unreviewed card %s carries review state", ErrVerification, card.ID)
		}
		return nil
	}
	last := logs[len(logs)-1]
	if card.LastReviewedAt == nil {
		return fmt.Errorf("%w: reviewed card %s has no last review time", ErrVerification, card.ID)
	}
	if card.IntervalDays != last.IntervalDays || card.EaseFactor != last.EaseFactor {
		return fmt.Errorf("%w: card %s schedule does not match its latest review", ErrVerification, card.ID)
	}
	return nil
}

// verifyStandings checks the leaderboard of a completed tournament.
func verifyStandings(t model.Tournament, standings []types.Standing, stats *Stats) error {
	if len(standings) != len(t.Participants) {
		return fmt.Errorf("%w: %d standings for %d participants", ErrVerification, len(standings), len(t.Participants))
	}
	champions := 0
	for i, s := range standings {
		if i == 0 && s.Rank != 1 {
			return fmt.Errorf("%w: first standing has rank %d", ErrVerification, s.Rank)
		}
		if i > 0 && s.Rank < standings[i-1].Rank {
			return fmt.Errorf("%w: standings not ordered at row %d", ErrVerification, i)
		}
		if s.Champion {
			champions++
			if s.ParticipantID != t.WinnerID || s.Rank != 1 || s.Eliminated {
				return fmt.Errorf("%w: champion row %+v does not match winner %s", ErrVerification, s, t.WinnerID)
			}
		} else if !s.Eliminated {
			return fmt.Errorf("%w: %s is neither champion nor eliminated", ErrVerification, s.ParticipantID)
		}
	}
	if champions != 1 {
		return fmt.Errorf("%w: %d champions", ErrVerification, champions)
	}
	stats.StandingsVerified = len(standings)
	return nil
}
