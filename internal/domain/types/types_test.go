package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/quizarena/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStanding(t *testing.T) {
	Convey("Given a Standing", t, func() {
		Convey("When the participant is still in play", func() {
			s := types.Standing{Rank: 1, ParticipantID: "p1", UserID: "u1", MatchesWon: 2}
			raw, err := json.Marshal(s)
			So(err, ShouldBeNil)

			Convey("Then the elimination round is omitted", func() {
				So(string(raw), ShouldNotContainSubstring, "eliminated_in_round")
				So(string(raw), ShouldContainSubstring, `"matches_won":2`)
			})
		})

		Convey("When creating a standing with zero values", func() {
			s := types.Standing{}

			Convey("Then it should have default values", func() {
				So(s.Rank, ShouldEqual, 0)
				So(s.Champion, ShouldBeFalse)
				So(s.UserID, ShouldEqual, "")
			})
		})
	})
}
