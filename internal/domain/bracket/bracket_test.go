package bracket_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/quizarena/internal/domain/bracket"
	"github.com/okian/quizarena/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// keepOrder leaves participants in registration order.
type keepOrder struct{}

func (keepOrder) Shuffle(int, func(i, j int)) {}

func newTournament(n int) model.Tournament {
	t := model.Tournament{ID: "t1", Name: "cup", Status: model.TournamentRegistration}
	for i := 1; i <= n; i++ {
		t.Participants = append(t.Participants, model.Participant{
			ID:     fmt.Sprintf("p%d", i),
			UserID: fmt.Sprintf("u%d", i),
		})
	}
	return t
}

func start(t model.Tournament) model.Tournament {
	out, _, err := bracket.NewEngine(bracket.WithShuffler(keepOrder{})).Start(t)
	So(err, ShouldBeNil)
	return out
}

func matchByNumber(t model.Tournament, n int) model.Match {
	for _, m := range t.Matches {
		if m.MatchNumber == n {
			return m
		}
	}
	return model.Match{}
}

func record(t model.Tournament, number, s1, s2 int) bracket.Result {
	res, err := bracket.RecordMatchResult(t, matchByNumber(t, number).ID, s1, s2)
	So(err, ShouldBeNil)
	return res
}

func TestSizing(t *testing.T) {
	Convey("Rounds and bracket size grow by powers of two", t, func() {
		So(bracket.Rounds(2), ShouldEqual, 1)
		So(bracket.Rounds(3), ShouldEqual, 2)
		So(bracket.Rounds(4), ShouldEqual, 2)
		So(bracket.Rounds(5), ShouldEqual, 3)
		So(bracket.Size(5), ShouldEqual, 8)
		So(bracket.Size(16), ShouldEqual, 16)
		So(bracket.Size(17), ShouldEqual, 32)
	})
}

func TestGenerateBracket(t *testing.T) {
	Convey("Given a bracket engine", t, func() {
		engine := bracket.NewEngine(bracket.WithShuffler(keepOrder{}))

		Convey("When fewer than two participants registered", func() {
			_, err0 := engine.GenerateBracket("t1", nil)
			_, err1 := engine.GenerateBracket("t1", newTournament(1).Participants)

			Convey("Then generation is refused", func() {
				So(errors.Is(err0, bracket.ErrInsufficientParticipants), ShouldBeTrue)
				So(errors.Is(err1, bracket.ErrInsufficientParticipants), ShouldBeTrue)
			})
		})

		Convey("When generating for every field size from 2 to 17", func() {
			for n := 2; n <= 17; n++ {
				b, err := engine.GenerateBracket("t1", newTournament(n).Participants)
				So(err, ShouldBeNil)

				So(len(b.Matches), ShouldEqual, b.Size-1)
				So(b.Size, ShouldBeGreaterThanOrEqualTo, n)
				So(b.Size/2, ShouldBeLessThan, n)

				byes, finals := 0, 0
				seen := map[string]int{}
				perRound := map[int]int{}
				for _, m := range b.Matches {
					perRound[m.Round]++
					if m.NextMatchID == "" {
						finals++
						So(m.Round, ShouldEqual, b.Rounds)
					}
					if m.Round != 1 {
						continue
					}
					if m.IsBye() {
						byes++
						So(m.Player1ID, ShouldNotBeEmpty)
						So(m.Status, ShouldEqual, model.MatchCompleted)
						So(m.WinnerID, ShouldEqual, m.Player1ID)
					}
					seen[m.Player1ID]++
					if m.Player2ID != "" {
						seen[m.Player2ID]++
					}
				}
				So(byes, ShouldEqual, b.Size-n)
				So(finals, ShouldEqual, 1)
				So(len(seen), ShouldEqual, n)
				for _, count := range seen {
					So(count, ShouldEqual, 1)
				}
				for r := 1; r <= b.Rounds; r++ {
					So(perRound[r], ShouldEqual, b.Size>>r)
				}
			}
		})

		Convey("When five participants are seeded", func() {
			b, err := engine.GenerateBracket("t1", newTournament(5).Participants)
			So(err, ShouldBeNil)

			Convey("Then three byes are awarded and pre-filled into round two", func() {
				So(b.Size, ShouldEqual, 8)
				So(b.Rounds, ShouldEqual, 3)
				So(len(b.Events), ShouldEqual, 3)
				for _, ev := range b.Events {
					So(ev.Type, ShouldEqual, bracket.EventByeAwarded)
				}

				So(b.Matches[0].Player1ID, ShouldEqual, "p1")
				So(b.Matches[0].Player2ID, ShouldEqual, "p2")
				So(b.Matches[0].Status, ShouldEqual, model.MatchWaiting)

				So(b.Matches[4].Round, ShouldEqual, 2)
				So(b.Matches[4].Player1ID, ShouldEqual, "")
				So(b.Matches[4].Player2ID, ShouldEqual, "p3")
				So(b.Matches[5].Player1ID, ShouldEqual, "p4")
				So(b.Matches[5].Player2ID, ShouldEqual, "p5")
				So(b.Matches[5].Ready(), ShouldBeTrue)
			})

			Convey("Then seeds follow bracket order", func() {
				for i, p := range b.Participants {
					So(p.Seed, ShouldEqual, i+1)
				}
			})
		})

		Convey("When match ids come from a custom generator", func() {
			custom := bracket.NewEngine(
				bracket.WithShuffler(keepOrder{}),
				bracket.WithMatchIDs(func(tid string, n int) string { return fmt.Sprintf("%s/%02d", tid, n) }),
			)
			b, err := custom.GenerateBracket("t9", newTournament(3).Participants)
			So(err, ShouldBeNil)

			Convey("Then ids and links use it", func() {
				So(b.Matches[0].ID, ShouldEqual, "t9/01")
				So(b.Matches[0].NextMatchID, ShouldEqual, "t9/03")
				So(b.Matches[1].NextSlot, ShouldEqual, model.SlotPlayer2)
			})
		})

		Convey("When two engines share a seed", func() {
			a, _ := bracket.NewEngine(bracket.WithSeed(42)).GenerateBracket("t1", newTournament(9).Participants)
			b, _ := bracket.NewEngine(bracket.WithSeed(42)).GenerateBracket("t1", newTournament(9).Participants)

			Convey("Then they pair identically", func() {
				for i := range a.Participants {
					So(a.Participants[i].ID, ShouldEqual, b.Participants[i].ID)
				}
			})
		})
	})
}

func TestStart(t *testing.T) {
	Convey("Given a tournament in registration", t, func() {
		tr := newTournament(3)
		engine := bracket.NewEngine(bracket.WithShuffler(keepOrder{}))

		Convey("When it starts", func() {
			out, events, err := engine.Start(tr)
			So(err, ShouldBeNil)

			Convey("Then it is in progress at round one with the bye resolved", func() {
				So(out.Status, ShouldEqual, model.TournamentInProgress)
				So(out.CurrentRound, ShouldEqual, 1)
				So(out.BracketSize, ShouldEqual, 4)
				So(len(events), ShouldEqual, 1)
				So(matchByNumber(out, 3).Player2ID, ShouldEqual, "p3")
			})

			Convey("Then the input is untouched", func() {
				So(tr.Status, ShouldEqual, model.TournamentRegistration)
				So(tr.Matches, ShouldBeEmpty)
				So(tr.Participants[0].Seed, ShouldEqual, 0)
			})

			Convey("Then starting again is refused", func() {
				_, _, err := engine.Start(out)
				So(err, ShouldEqual, bracket.ErrBracketAlreadyGenerated)
			})
		})
	})
}

func TestRecordMatchResult(t *testing.T) {
	Convey("Given a four player tournament", t, func() {
		tr := start(newTournament(4))

		Convey("When the first semi-final is played", func() {
			res := record(tr, 1, 3, 1)

			Convey("Then the winner advances and the loser is out", func() {
				So(res.Match.WinnerID, ShouldEqual, "p1")
				So(res.Winner.MatchesWon, ShouldEqual, 1)
				So(res.Winner.TotalScore, ShouldEqual, 3)
				So(res.Loser.ID, ShouldEqual, "p2")
				So(res.Loser.Eliminated, ShouldBeTrue)
				So(res.Loser.EliminatedInRound, ShouldEqual, 1)
				So(res.Advancement.NextMatchID, ShouldEqual, matchByNumber(tr, 3).ID)
				So(res.Advancement.NextSlot, ShouldEqual, model.SlotPlayer1)
				So(res.Advancement.RoundCompleted, ShouldBeFalse)
				So(res.Tournament.CurrentRound, ShouldEqual, 1)
				So(matchByNumber(res.Tournament, 3).Player1ID, ShouldEqual, "p1")
			})

			Convey("Then the original tournament is untouched", func() {
				So(matchByNumber(tr, 1).Status, ShouldEqual, model.MatchWaiting)
				So(tr.Participants[1].Eliminated, ShouldBeFalse)
			})

			Convey("Then the same match cannot be scored twice", func() {
				_, err := bracket.RecordMatchResult(res.Tournament, res.Match.ID, 1, 0)
				So(errors.Is(err, bracket.ErrMatchNotReady), ShouldBeTrue)
			})

			Convey("Then the final is not ready yet", func() {
				_, err := bracket.RecordMatchResult(res.Tournament, matchByNumber(tr, 3).ID, 1, 0)
				So(errors.Is(err, bracket.ErrMatchNotReady), ShouldBeTrue)
			})

			Convey("And the second semi-final is played", func() {
				res2 := record(res.Tournament, 2, 1, 2)

				Convey("Then round two begins", func() {
					So(res2.Match.WinnerID, ShouldEqual, "p4")
					So(res2.Advancement.RoundCompleted, ShouldBeTrue)
					So(res2.Advancement.CurrentRound, ShouldEqual, 2)
					So(res2.Events[len(res2.Events)-1].Type, ShouldEqual, bracket.EventRoundAdvanced)
					final := matchByNumber(res2.Tournament, 3)
					So(final.Player1ID, ShouldEqual, "p1")
					So(final.Player2ID, ShouldEqual, "p4")
				})

				Convey("And the final ends in a tie", func() {
					res3 := record(res2.Tournament, 3, 2, 2)

					Convey("Then player one is champion", func() {
						So(res3.Match.WinnerID, ShouldEqual, "p1")
						So(res3.Tournament.Status, ShouldEqual, model.TournamentCompleted)
						So(res3.Tournament.WinnerID, ShouldEqual, "p1")
						So(res3.Advancement.TournamentCompleted, ShouldBeTrue)
						So(res3.Advancement.ChampionID, ShouldEqual, "p1")
						So(res3.Events[len(res3.Events)-1].Type, ShouldEqual, bracket.EventTournamentCompleted)
					})

					Convey("Then standings rank by progress", func() {
						st := bracket.Standings(res3.Tournament)
						So(len(st), ShouldEqual, 4)
						So(st[0].ParticipantID, ShouldEqual, "p1")
						So(st[0].Champion, ShouldBeTrue)
						So(st[0].Rank, ShouldEqual, 1)
						So(st[1].ParticipantID, ShouldEqual, "p4")
						So(st[1].EliminatedInRound, ShouldEqual, 2)
						So(st[2].ParticipantID, ShouldEqual, "p2")
						So(st[3].ParticipantID, ShouldEqual, "p3")
						So(st[3].Rank, ShouldEqual, 4)
					})

					Convey("Then the final cannot be scored again", func() {
						_, err := bracket.RecordMatchResult(res3.Tournament, res3.Match.ID, 5, 0)
						So(errors.Is(err, bracket.ErrMatchNotReady), ShouldBeTrue)
					})
				})

				Convey("Then a tournament not in progress refuses results", func() {
					halted := res2.Tournament.Clone()
					halted.Status = model.TournamentRegistration
					_, err := bracket.RecordMatchResult(halted, matchByNumber(halted, 3).ID, 1, 0)
					So(err, ShouldEqual, bracket.ErrTournamentNotStarted)
				})
			})
		})

		Convey("When the match does not exist", func() {
			_, err := bracket.RecordMatchResult(tr, "nope", 1, 0)
			So(errors.Is(err, bracket.ErrMatchNotFound), ShouldBeTrue)
		})

		Convey("When a score is negative", func() {
			_, err := bracket.RecordMatchResult(tr, matchByNumber(tr, 1).ID, -1, 0)
			So(err, ShouldEqual, bracket.ErrInvalidScore)
		})
	})

	Convey("Given a two player tournament", t, func() {
		tr := start(newTournament(2))

		Convey("When the only match is played", func() {
			res := record(tr, 1, 0, 4)

			Convey("Then the tournament is over", func() {
				So(len(tr.Matches), ShouldEqual, 1)
				So(res.Tournament.Status, ShouldEqual, model.TournamentCompleted)
				So(res.Tournament.WinnerID, ShouldEqual, "p2")
			})
		})
	})

	Convey("Given a five player tournament", t, func() {
		tr := start(newTournament(5))

		Convey("When all matches are played", func() {
			cur := tr
			for _, n := range []int{1, 6, 5, 7} {
				cur = record(cur, n, 2, 1).Tournament
			}

			Convey("Then every round completed and one champion remains", func() {
				So(cur.Status, ShouldEqual, model.TournamentCompleted)
				So(cur.CurrentRound, ShouldEqual, 3)
				So(cur.WinnerID, ShouldEqual, "p1")
				alive := 0
				for _, p := range cur.Participants {
					if !p.Eliminated {
						alive++
					}
				}
				So(alive, ShouldEqual, 1)
			})
		})
	})

	Convey("Given an eight player tournament", t, func() {
		tr := start(newTournament(8))
		So(len(tr.Matches), ShouldEqual, 7)

		Convey("When every match is played in order", func() {
			cur := tr
			for n := 1; n <= 7; n++ {
				So(matchByNumber(cur, n).Ready(), ShouldBeTrue)
				cur = record(cur, n, 1, 3).Tournament
			}

			Convey("Then one participant remains and the round three final is complete", func() {
				So(cur.Status, ShouldEqual, model.TournamentCompleted)
				So(cur.CurrentRound, ShouldEqual, 3)

				alive := 0
				for _, p := range cur.Participants {
					if !p.Eliminated {
						alive++
						So(p.ID, ShouldEqual, cur.WinnerID)
					}
				}
				So(alive, ShouldEqual, 1)

				finals := 0
				for _, m := range cur.Matches {
					So(m.Status, ShouldEqual, model.MatchCompleted)
					if m.Round == 3 {
						finals++
						So(m.WinnerID, ShouldEqual, m.Player2ID)
						So(m.WinnerID, ShouldEqual, cur.WinnerID)
					}
				}
				So(finals, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a tournament still in registration", t, func() {
		_, err := bracket.RecordMatchResult(newTournament(4), "t1-m1", 1, 0)
		So(errors.Is(err, bracket.ErrMatchNotFound), ShouldBeTrue)
	})
}
