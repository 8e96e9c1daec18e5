package model

import "time"

// TournamentStatus is the lifecycle state of a tournament.
type TournamentStatus string

const (
	TournamentRegistration TournamentStatus = "registration"
	TournamentInProgress   TournamentStatus = "in_progress"
	TournamentCompleted    TournamentStatus = "completed"
)

// MatchStatus is the lifecycle state of a bracket match.
type MatchStatus string

const (
	MatchWaiting    MatchStatus = "waiting"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
)

// Slot identifies one side of a match.
type Slot int

const (
	SlotNone Slot = iota
	SlotPlayer1
	SlotPlayer2
)

// Participant is a user entered in a tournament.
type Participant struct {
	ID                string `json:"id"`
	UserID            string `json:"user_id"`
	Seed              int    `json:"seed,omitempty"`
	Eliminated        bool   `json:"eliminated"`
	EliminatedInRound int    `json:"eliminated_in_round,omitempty"` // 0 while still in play
	TotalScore        int    `json:"total_score"`
	MatchesWon        int    `json:"matches_won"`
	MatchesPlayed     int    `json:"matches_played"`
}

// Match is one node of a single-elimination bracket. An empty player id
// means the slot is a bye (round 1) or not yet determined (later rounds).
type Match struct {
	ID           string      `json:"id"`
	Round        int         `json:"round"`
	MatchNumber  int         `json:"match_number"`
	Player1ID    string      `json:"player1_id,omitempty"`
	Player2ID    string      `json:"player2_id,omitempty"`
	WinnerID     string      `json:"winner_id,omitempty"`
	Player1Score int         `json:"player1_score"`
	Player2Score int         `json:"player2_score"`
	Status       MatchStatus `json:"status"`

	// NextMatchID and NextSlot say where the winner goes; empty on the final.
	NextMatchID string `json:"next_match_id,omitempty"`
	NextSlot    Slot   `json:"next_slot,omitempty"`
}

// IsBye reports whether exactly one slot is filled.
func (m Match) IsBye() bool {
	return (m.Player1ID == "") != (m.Player2ID == "")
}

// Ready reports whether the match can be scored.
func (m Match) Ready() bool {
	return m.Status != MatchCompleted && m.Player1ID != "" && m.Player2ID != ""
}

// Player returns the participant id occupying slot.
func (m Match) Player(slot Slot) string {
	switch slot {
	case SlotPlayer1:
		return m.Player1ID
	case SlotPlayer2:
		return m.Player2ID
	default:
		return ""
	}
}

// Tournament aggregates participants and the bracket.
type Tournament struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Status       TournamentStatus `json:"status"`
	CurrentRound int              `json:"current_round"`
	BracketSize  int              `json:"bracket_size"`
	WinnerID     string           `json:"winner_id,omitempty"`
	Participants []Participant    `json:"participants"`
	Matches      []Match          `json:"matches"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Clone returns a deep copy of t.
func (t Tournament) Clone() Tournament {
	if t.Participants != nil {
		t.Participants = append([]Participant(nil), t.Participants...)
	}
	if t.Matches != nil {
		t.Matches = append([]Match(nil), t.Matches...)
	}
	return t
}

// Rounds returns the number of rounds implied by the bracket size.
func (t Tournament) Rounds() int {
	rounds := 0
	for size := t.BracketSize; size > 1; size /= 2 {
		rounds++
	}
	return rounds
}

// Participant returns the participant with the given id.
func (t Tournament) Participant(id string) (Participant, bool) {
	for _, p := range t.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}
