package model_test

import (
	"testing"
	"time"

	model "github.com/okian/quizarena/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestMatch(t *testing.T) {
	convey.Convey("Given bracket matches", t, func() {
		convey.Convey("When only one slot is filled", func() {
			m := model.Match{Player1ID: "p1", Status: model.MatchWaiting}

			convey.Convey("Then it is a bye and cannot be scored", func() {
				convey.So(m.IsBye(), convey.ShouldBeTrue)
				convey.So(m.Ready(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When both slots are filled and the match is waiting", func() {
			m := model.Match{Player1ID: "p1", Player2ID: "p2", Status: model.MatchWaiting}

			convey.Convey("Then it is ready", func() {
				convey.So(m.IsBye(), convey.ShouldBeFalse)
				convey.So(m.Ready(), convey.ShouldBeTrue)
				convey.So(m.Player(model.SlotPlayer2), convey.ShouldEqual, "p2")
				convey.So(m.Player(model.SlotNone), convey.ShouldEqual, "")
			})
		})

		convey.Convey("When the match is completed", func() {
			m := model.Match{Player1ID: "p1", Player2ID: "p2", Status: model.MatchCompleted}

			convey.Convey("Then it is not ready", func() {
				convey.So(m.Ready(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When neither slot is filled", func() {
			m := model.Match{Status: model.MatchWaiting}

			convey.Convey("Then it is neither a bye nor ready", func() {
				convey.So(m.IsBye(), convey.ShouldBeFalse)
				convey.So(m.Ready(), convey.ShouldBeFalse)
			})
		})
	})
}

func TestTournament(t *testing.T) {
	convey.Convey("Given a tournament", t, func() {
		tr := model.Tournament{
			BracketSize:  8,
			Participants: []model.Participant{{ID: "a"}, {ID: "b"}},
			Matches:      []model.Match{{ID: "m1"}},
		}

		convey.Convey("Then rounds follow the bracket size", func() {
			convey.So(tr.Rounds(), convey.ShouldEqual, 3)
			convey.So(model.Tournament{BracketSize: 2}.Rounds(), convey.ShouldEqual, 1)
			convey.So(model.Tournament{}.Rounds(), convey.ShouldEqual, 0)
		})

		convey.Convey("When cloning", func() {
			cp := tr.Clone()
			cp.Participants[0].TotalScore = 10
			cp.Matches[0].WinnerID = "a"

			convey.Convey("Then the original is untouched", func() {
				convey.So(tr.Participants[0].TotalScore, convey.ShouldEqual, 0)
				convey.So(tr.Matches[0].WinnerID, convey.ShouldEqual, "")
			})
		})

		convey.Convey("When looking up participants", func() {
			p, ok := tr.Participant("b")
			_, missing := tr.Participant("z")

			convey.So(ok, convey.ShouldBeTrue)
			convey.So(p.ID, convey.ShouldEqual, "b")
			convey.So(missing, convey.ShouldBeFalse)
		})
	})
}

func TestFlashcardClone(t *testing.T) {
	convey.Convey("Given a reviewed flashcard", t, func() {
		reviewed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		card := model.Flashcard{ID: "c1", EaseFactor: 2.5, LastReviewedAt: &reviewed}

		convey.Convey("When the clone's timestamp changes", func() {
			cp := card.Clone()
			*cp.LastReviewedAt = reviewed.Add(time.Hour)

			convey.Convey("Then the original keeps its own timestamp", func() {
				convey.So(*card.LastReviewedAt, convey.ShouldEqual, reviewed)
			})
		})
	})
}
