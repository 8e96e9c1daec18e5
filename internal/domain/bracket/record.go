package bracket

import (
	"fmt"

	"github.com/okian/quizarena/internal/domain/model"
)

// Advancement tells where the winner of a match went and what it triggered.
type Advancement struct {
	NextMatchID         string     `json:"next_match_id,omitempty"`
	NextSlot            model.Slot `json:"next_slot,omitempty"`
	RoundCompleted      bool       `json:"round_completed"`
	CurrentRound        int        `json:"current_round"`
	TournamentCompleted bool       `json:"tournament_completed"`
	ChampionID          string     `json:"champion_id,omitempty"`
}

// Result is the outcome of RecordMatchResult.
type Result struct {
	Tournament  model.Tournament
	Match       model.Match
	Winner      model.Participant
	Loser       model.Participant
	Advancement Advancement
	Events      []Event
}

// RecordMatchResult scores a ready match, updates both participants,
// eliminates the loser and moves the winner into the next match. Ties go to
// player 1. The input tournament is never modified, so an error leaves no
// partial update behind.
func RecordMatchResult(t model.Tournament, matchID string, player1Score, player2Score int) (Result, error) {
	idx := indexOf(t.Matches, matchID)
	if idx < 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	if t.Matches[idx].Status == model.MatchCompleted {
		return Result{}, fmt.Errorf("%w: %s already completed", ErrMatchNotReady, matchID)
	}
	if t.Status != model.TournamentInProgress {
		return Result{}, ErrTournamentNotStarted
	}
	if !t.Matches[idx].Ready() {
		return Result{}, fmt.Errorf("%w: %s", ErrMatchNotReady, matchID)
	}
	if player1Score < 0 || player2Score < 0 {
		return Result{}, ErrInvalidScore
	}

	out := t.Clone()
	m := &out.Matches[idx]
	m.Player1Score = player1Score
	m.Player2Score = player2Score
	m.Status = model.MatchCompleted

	winnerID, loserID := m.Player1ID, m.Player2ID
	winnerScore, loserScore := player1Score, player2Score
	if player2Score > player1Score {
		winnerID, loserID = loserID, winnerID
		winnerScore, loserScore = loserScore, winnerScore
	}
	m.WinnerID = winnerID

	var winner, loser model.Participant
	for i := range out.Participants {
		p := &out.Participants[i]
		switch p.ID {
		case winnerID:
			p.MatchesPlayed++
			p.MatchesWon++
			p.TotalScore += winnerScore
			winner = *p
		case loserID:
			p.MatchesPlayed++
			p.TotalScore += loserScore
			p.Eliminated = true
			p.EliminatedInRound = m.Round
			loser = *p
		}
	}

	events := []Event{
		{Type: EventMatchCompleted, TournamentID: out.ID, MatchID: m.ID, ParticipantID: winnerID, Round: m.Round},
		{Type: EventParticipantEliminated, TournamentID: out.ID, MatchID: m.ID, ParticipantID: loserID, Round: m.Round},
	}
	roundBefore := out.CurrentRound
	adv := advance(&out, idx, &events)
	adv.RoundCompleted = out.CurrentRound != roundBefore || adv.TournamentCompleted
	adv.CurrentRound = out.CurrentRound

	return Result{
		Tournament:  out,
		Match:       out.Matches[idx],
		Winner:      winner,
		Loser:       loser,
		Advancement: adv,
		Events:      events,
	}, nil
}

// advance moves the winner of t.Matches[idx] forward, then completes the
// tournament or advances the current round as needed.
func advance(t *model.Tournament, idx int, events *[]Event) Advancement {
	m := t.Matches[idx]
	if m.NextMatchID == "" {
		t.Status = model.TournamentCompleted
		t.WinnerID = m.WinnerID
		*events = append(*events, Event{Type: EventTournamentCompleted, TournamentID: t.ID, MatchID: m.ID, ParticipantID: m.WinnerID, Round: m.Round})
		return Advancement{TournamentCompleted: true, ChampionID: m.WinnerID}
	}

	next := &t.Matches[indexOf(t.Matches, m.NextMatchID)]
	if m.NextSlot == model.SlotPlayer1 {
		next.Player1ID = m.WinnerID
	} else {
		next.Player2ID = m.WinnerID
	}

	for t.CurrentRound < t.Rounds() && roundComplete(t.Matches, t.CurrentRound) {
		t.CurrentRound++
		*events = append(*events, Event{Type: EventRoundAdvanced, TournamentID: t.ID, Round: t.CurrentRound})
	}
	return Advancement{NextMatchID: m.NextMatchID, NextSlot: m.NextSlot}
}

func roundComplete(matches []model.Match, round int) bool {
	for _, m := range matches {
		if m.Round == round && m.Status != model.MatchCompleted {
			return false
		}
	}
	return true
}

func indexOf(matches []model.Match, id string) int {
	for i, m := range matches {
		if m.ID == id {
			return i
		}
	}
	return -1
}
