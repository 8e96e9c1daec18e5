package bracket

import (
	"fmt"

	"github.com/okian/quizarena/internal/domain/model"
)

// Bracket is the output of GenerateBracket.
type Bracket struct {
	Size         int
	Rounds       int
	Participants []model.Participant // seeded, in bracket order
	Matches      []model.Match       // ordered by round then match number
	Events       []Event
}

// GenerateBracket shuffles participants and builds every match of a
// single-elimination bracket. Round 1 starts with full pairings and ends with
// byes; bye winners are already placed in their round-2 slots.
func (e *Engine) GenerateBracket(tournamentID string, participants []model.Participant) (Bracket, error) {
	n := len(participants)
	if n < 2 {
		return Bracket{}, fmt.Errorf("%w: got %d", ErrInsufficientParticipants, n)
	}

	order := append([]model.Participant(nil), participants...)
	e.shuffle(order)
	for i := range order {
		order[i].Seed = i + 1
	}

	rounds := Rounds(n)
	size := 1 << rounds
	matches := make([]model.Match, 0, size-1)

	half := size / 2
	full := n - half
	next := 0
	number := 0
	for i := 0; i < half; i++ {
		number++
		m := e.newMatch(tournamentID, 1, number)
		m.Player1ID = order[next].ID
		next++
		if i < full {
			m.Player2ID = order[next].ID
			next++
		}
		matches = append(matches, m)
	}
	for r := 2; r <= rounds; r++ {
		for i := 0; i < size>>r; i++ {
			number++
			matches = append(matches, e.newMatch(tournamentID, r, number))
		}
	}
	link(matches, size)

	t := model.Tournament{
		ID:           tournamentID,
		BracketSize:  size,
		CurrentRound: 1,
		Status:       model.TournamentInProgress,
		Participants: order,
		Matches:      matches,
	}
	var events []Event
	for i := 0; i < half; i++ {
		m := &t.Matches[i]
		if !m.IsBye() {
			continue
		}
		m.WinnerID = m.Player1ID
		m.Status = model.MatchCompleted
		events = append(events, Event{Type: EventByeAwarded, TournamentID: tournamentID, MatchID: m.ID, ParticipantID: m.WinnerID, Round: 1})
		advance(&t, i, &events)
	}

	return Bracket{
		Size:         size,
		Rounds:       rounds,
		Participants: t.Participants,
		Matches:      t.Matches,
		Events:       events,
	}, nil
}

// Start generates the bracket for a tournament still in registration and
// returns it in progress.
func (e *Engine) Start(t model.Tournament) (model.Tournament, []Event, error) {
	if t.Status != model.TournamentRegistration || len(t.Matches) > 0 {
		return model.Tournament{}, nil, ErrBracketAlreadyGenerated
	}
	b, err := e.GenerateBracket(t.ID, t.Participants)
	if err != nil {
		return model.Tournament{}, nil, err
	}

	out := t.Clone()
	out.Participants = b.Participants
	out.Matches = b.Matches
	out.BracketSize = b.Size
	out.Status = model.TournamentInProgress
	// Round 1 always holds at least one real pairing, so byes alone never
	// complete it.
	out.CurrentRound = 1
	return out, b.Events, nil
}

func (e *Engine) newMatch(tournamentID string, round, number int) model.Match {
	return model.Match{
		ID:          e.matchID(tournamentID, number),
		Round:       round,
		MatchNumber: number,
		Status:      model.MatchWaiting,
	}
}

// link sets NextMatchID and NextSlot on every match except the final.
// Position i of round r feeds position i/2 of round r+1.
func link(matches []model.Match, size int) {
	start := 0
	for count := size / 2; count > 1; count /= 2 {
		nextStart := start + count
		for i := 0; i < count; i++ {
			m := &matches[start+i]
			m.NextMatchID = matches[nextStart+i/2].ID
			if i%2 == 0 {
				m.NextSlot = model.SlotPlayer1
			} else {
				m.NextSlot = model.SlotPlayer2
			}
		}
		start = nextStart
	}
}
