package testevents

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/okian/quizarena/internal/domain/model"
	"github.com/okian/quizarena/internal/domain/types"
	"github.com/okian/quizarena/pkg/logger"
)

// maxScore bounds the random match scores.
const maxScore = 10

// playTournament registers Players users, starts the bracket and records a
// random result for every ready match, one round at a time, until a champion
// is crowned. It returns the final tournament and its standings.
func playTournament(ctx context.Context, client *HTTPClient, config *Config, stats *Stats) (model.Tournament, []types.Standing, error) {
	log := logger.Get()
	runID := uuid.NewString()[:8]

	var tour model.Tournament
	if err := client.postJSON(ctx, "/tournaments", map[string]string{"name": "load " + runID}, &tour, http.StatusCreated); err != nil {
		return model.Tournament{}, nil, fmt.Errorf("create tournament: %w", err)
	}
	log.Info(ctx, "tournament created", logger.String("tournament_id", tour.ID), logger.Int("players", config.Players))

	base := "/tournaments/" + tour.ID
	for i := 0; i < config.Players; i++ {
		body := map[string]string{"user_id": fmt.Sprintf("player-%s-%d", runID, i)}
		if err := client.postJSON(ctx, base+"/participants", body, nil, http.StatusCreated); err != nil {
			return model.Tournament{}, nil, fmt.Errorf("join player %d: %w", i, err)
		}
	}

	if err := client.postJSON(ctx, base+"/start", nil, &tour, http.StatusOK); err != nil {
		return model.Tournament{}, nil, fmt.Errorf("start tournament: %w", err)
	}
	if tour.Status != model.TournamentInProgress {
		return model.Tournament{}, nil, fmt.Errorf("%w: started tournament is %s", ErrVerification, tour.Status)
	}

	var played atomic.Int64
	// Each pass scores at least one match, so len(Matches) passes always suffice.
	for pass := 0; pass <= len(tour.Matches); pass++ {
		if tour.Status == model.TournamentCompleted {
			break
		}
		ready := readyMatches(tour)
		if len(ready) == 0 {
			return model.Tournament{}, nil, fmt.Errorf("%w: round %d has no ready match", ErrVerification, tour.CurrentRound)
		}

		var mu sync.Mutex
		var firstErr error
		forEach(ctx, config.Workers, len(ready), func(ctx context.Context, i int) {
			scores := map[string]int{
				"player1_score": randomInt(maxScore + 1),
				"player2_score": randomInt(maxScore + 1),
			}
			var res MatchResult
			err := client.postJSON(ctx, base+"/matches/"+ready[i].ID+"/result", scores, &res, http.StatusOK)
			if err == nil && res.Match.WinnerID == "" {
				err = fmt.Errorf("%w: match %s completed without a winner", ErrVerification, ready[i].ID)
			}
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			played.Add(1)
		})
		if firstErr != nil {
			return model.Tournament{}, nil, firstErr
		}
		if err := client.getJSON(ctx, base, &tour); err != nil {
			return model.Tournament{}, nil, err
		}
	}
	stats.MatchesPlayed = int(played.Load())

	if tour.Status != model.TournamentCompleted {
		return model.Tournament{}, nil, fmt.Errorf("%w: tournament still %s after every match", ErrVerification, tour.Status)
	}

	var standings []types.Standing
	if err := client.getJSON(ctx, base+"/standings", &standings); err != nil {
		return model.Tournament{}, nil, err
	}
	stats.ChampionID = tour.WinnerID
	log.Info(ctx, "tournament completed",
		logger.String("tournament_id", tour.ID),
		logger.String("champion_id", tour.WinnerID),
		logger.Int("matches_played", stats.MatchesPlayed))
	return tour, standings, nil
}

func readyMatches(t model.Tournament) []model.Match {
	var out []model.Match
	for _, m := range t.Matches {
		if m.Ready() {
			out = append(out, m)
		}
	}
	return out
}
