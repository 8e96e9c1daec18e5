package bracket

import (
	"sort"

	"github.com/okian/quizarena/internal/domain/model"
	"github.com/okian/quizarena/internal/domain/types"
)

// Standings ranks participants: the champion first, then everyone still in
// play, then the eliminated by how far they got. Remaining ties break on
// matches won, total score and finally user id.
func Standings(t model.Tournament) []types.Standing {
	ps := append([]model.Participant(nil), t.Participants...)
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if ca, cb := a.ID == t.WinnerID && t.WinnerID != "", b.ID == t.WinnerID && t.WinnerID != ""; ca != cb {
			return ca
		}
		if ra, rb := reached(a), reached(b); ra != rb {
			return ra > rb
		}
		if a.MatchesWon != b.MatchesWon {
			return a.MatchesWon > b.MatchesWon
		}
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		return a.UserID < b.UserID
	})

	out := make([]types.Standing, len(ps))
	for i, p := range ps {
		out[i] = types.Standing{
			Rank:              i + 1,
			ParticipantID:     p.ID,
			UserID:            p.UserID,
			Seed:              p.Seed,
			Champion:          t.WinnerID != "" && p.ID == t.WinnerID,
			Eliminated:        p.Eliminated,
			EliminatedInRound: p.EliminatedInRound,
			MatchesWon:        p.MatchesWon,
			MatchesPlayed:     p.MatchesPlayed,
			TotalScore:        p.TotalScore,
		}
	}
	return out
}

// reached orders participants by progress; anyone still in play outranks
// every eliminated participant.
func reached(p model.Participant) int {
	if !p.Eliminated {
		return 1 << 30
	}
	return p.EliminatedInRound
}
