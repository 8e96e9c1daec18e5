// Package types contains common types used across the application
package types

// Standing is one row of a tournament leaderboard.
type Standing struct {
	Rank              int    `json:"rank"`
	ParticipantID     string `json:"participant_id"`
	UserID            string `json:"user_id"`
	Seed              int    `json:"seed,omitempty"`
	Champion          bool   `json:"champion"`
	Eliminated        bool   `json:"eliminated"`
	EliminatedInRound int    `json:"eliminated_in_round,omitempty"`
	MatchesWon        int    `json:"matches_won"`
	MatchesPlayed     int    `json:"matches_played"`
	TotalScore        int    `json:"total_score"`
}
