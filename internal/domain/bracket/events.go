package bracket

// EventType names something that happened while generating or advancing a bracket.
type EventType string

const (
	EventByeAwarded            EventType = "bye_awarded"
	EventMatchCompleted        EventType = "match_completed"
	EventParticipantEliminated EventType = "participant_eliminated"
	EventRoundAdvanced         EventType = "round_advanced"
	EventTournamentCompleted   EventType = "tournament_completed"
)

// Event describes one state change. The engine returns events instead of
// notifying anyone; callers decide how to react.
type Event struct {
	Type          EventType `json:"type"`
	TournamentID  string    `json:"tournament_id"`
	MatchID       string    `json:"match_id,omitempty"`
	ParticipantID string    `json:"participant_id,omitempty"`
	Round         int       `json:"round,omitempty"`
}
