package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/quizarena/internal/domain/bracket"
	"github.com/okian/quizarena/internal/domain/model"
	"github.com/okian/quizarena/internal/domain/types"
	"github.com/okian/quizarena/pkg/logger"
	"github.com/okian/quizarena/pkg/metrics"
)

// CreateTournament opens a tournament for registration.
func (s *Service) CreateTournament(ctx context.Context, name string) (model.Tournament, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Tournament{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	now := s.now().UTC()
	t := model.Tournament{
		ID:           s.newID(),
		Name:         name,
		Status:       model.TournamentRegistration,
		Participants: []model.Participant{},
		Matches:      []model.Match{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateTournament(ctx, t); err != nil {
		return model.Tournament{}, fmt.Errorf("create tournament: %w", err)
	}

	metrics.RecordTournamentCreated()
	s.logger.Info(ctx, "tournament created",
		logger.String("tournament_id", t.ID),
		logger.String("name", t.Name),
	)
	return t, nil
}

// GetTournament returns a tournament with its participants and bracket.
func (s *Service) GetTournament(ctx context.Context, id string) (model.Tournament, error) {
	return s.store.GetTournament(ctx, id)
}

// ListTournaments returns all tournaments, newest first.
func (s *Service) ListTournaments(ctx context.Context) ([]model.Tournament, error) {
	return s.store.ListTournaments(ctx)
}

// JoinTournament registers a user. Each user may join once, and only while
// the tournament is in registration.
func (s *Service) JoinTournament(ctx context.Context, tournamentID, userID string) (model.Participant, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.Participant{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}

	var joined model.Participant
	_, err := s.store.UpdateTournament(ctx, tournamentID, func(t model.Tournament) (model.Tournament, error) {
		if t.Status != model.TournamentRegistration {
			return model.Tournament{}, ErrRegistrationClosed
		}
		for _, p := range t.Participants {
			if p.UserID == userID {
				return model.Tournament{}, fmt.Errorf("%w: %s", ErrAlreadyJoined, userID)
			}
		}
		joined = model.Participant{ID: s.newID(), UserID: userID}
		t.Participants = append(t.Participants, joined)
		t.UpdatedAt = s.now().UTC()
		return t, nil
	})
	if err != nil {
		return model.Participant{}, err
	}

	s.logger.Debug(ctx, "participant joined",
		logger.String("tournament_id", tournamentID),
		logger.String("participant_id", joined.ID),
		logger.String("user_id", userID),
	)
	return joined, nil
}

// StartTournament closes registration and generates the bracket.
func (s *Service) StartTournament(ctx context.Context, id string) (model.Tournament, error) {
	var events []bracket.Event
	t, err := s.store.UpdateTournament(ctx, id, func(t model.Tournament) (model.Tournament, error) {
		started, evs, err := s.engine.Start(t)
		if err != nil {
			return model.Tournament{}, err
		}
		started.UpdatedAt = s.now().UTC()
		events = evs
		return started, nil
	})
	if err != nil {
		return model.Tournament{}, err
	}

	byes := 0
	for _, e := range events {
		if e.Type == bracket.EventByeAwarded {
			byes++
		}
	}
	metrics.RecordBracketGenerated(byes)
	s.logger.Info(ctx, "tournament started",
		logger.String("tournament_id", t.ID),
		logger.Int("participants", len(t.Participants)),
		logger.Int("bracket_size", t.BracketSize),
		logger.Int("byes", byes),
	)
	s.publish(ctx, events)
	return t, nil
}

// RecordMatchResult scores a match and advances the bracket. Results for
// the same tournament are serialized by the store.
func (s *Service) RecordMatchResult(ctx context.Context, tournamentID, matchID string, player1Score, player2Score int) (bracket.Result, error) {
	var res bracket.Result
	_, err := s.store.UpdateTournament(ctx, tournamentID, func(t model.Tournament) (model.Tournament, error) {
		r, err := bracket.RecordMatchResult(t, matchID, player1Score, player2Score)
		if err != nil {
			return model.Tournament{}, err
		}
		r.Tournament.UpdatedAt = s.now().UTC()
		res = r
		return r.Tournament, nil
	})
	if err != nil {
		return bracket.Result{}, err
	}

	metrics.RecordMatchRecorded()
	if res.Advancement.TournamentCompleted {
		metrics.RecordTournamentCompleted()
	}
	s.logger.Info(ctx, "match result recorded",
		logger.String("tournament_id", tournamentID),
		logger.String("match_id", matchID),
		logger.String("winner_id", res.Winner.ID),
		logger.Int("round", res.Match.Round),
	)
	s.publish(ctx, res.Events)
	return res, nil
}

// Standings returns the tournament leaderboard.
func (s *Service) Standings(ctx context.Context, id string) ([]types.Standing, error) {
	t, err := s.store.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	return bracket.Standings(t), nil
}

func (s *Service) publish(ctx context.Context, events []bracket.Event) {
	if len(events) == 0 {
		return
	}
	s.notifier.Notify(ctx, events)
}
