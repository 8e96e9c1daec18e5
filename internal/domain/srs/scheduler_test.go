package srs_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/quizarena/internal/domain/model"
	"github.com/okian/quizarena/internal/domain/srs"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScheduler(t *testing.T) {
	Convey("Given a scheduler with a fixed clock", t, func() {
		created := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
		s := srs.NewScheduler(
			srs.WithClock(func() time.Time { return created }),
			srs.WithDefaultEaseFactor(2.3),
		)

		Convey("When creating a new card", func() {
			card := s.NewCard(model.Flashcard{ID: "c1", Front: "2+2", Back: "4"})

			Convey("Then it is due immediately with the default ease factor", func() {
				So(card.EaseFactor, ShouldEqual, 2.3)
				So(card.Repetitions, ShouldEqual, 0)
				So(card.IntervalDays, ShouldEqual, 0)
				So(card.CreatedAt, ShouldEqual, created)
				So(card.NextReviewAt, ShouldEqual, created)
				So(card.LastReviewedAt, ShouldBeNil)
				So(srs.IsDue(card, created), ShouldBeTrue)
			})

			Convey("And reviewing it does not mutate the input", func() {
				reviewed, err := s.Review(card, 5, now)
				So(err, ShouldBeNil)

				So(card.Repetitions, ShouldEqual, 0)
				So(card.LastReviewedAt, ShouldBeNil)
				So(reviewed.Repetitions, ShouldEqual, 1)
				So(reviewed.IntervalDays, ShouldEqual, 1)
				So(*reviewed.LastReviewedAt, ShouldEqual, now)
				So(reviewed.NextReviewAt, ShouldEqual, now.AddDate(0, 0, 1))
				So(reviewed.Front, ShouldEqual, "2+2")
			})
		})

		Convey("When the default ease factor is below the floor", func() {
			s2 := srs.NewScheduler(srs.WithDefaultEaseFactor(1.0))

			Convey("Then it is ignored", func() {
				So(s2.DefaultEaseFactor(), ShouldEqual, srs.DefaultEaseFactor)
			})
		})

		Convey("When a card carries an invalid ease factor", func() {
			_, err := s.Review(model.Flashcard{ID: "bad", EaseFactor: 1.1}, 4, now)

			Convey("Then review is refused", func() {
				So(errors.Is(err, srs.ErrInvalidEaseFactor), ShouldBeTrue)
			})
		})

		Convey("When reviewing with an invalid quality", func() {
			_, err := s.Review(model.Flashcard{ID: "c", EaseFactor: 2.5}, 9, now)
			So(errors.Is(err, srs.ErrInvalidQualityScore), ShouldBeTrue)
		})

		Convey("When previewing a card", func() {
			card := model.Flashcard{ID: "c2", EaseFactor: 2.5, IntervalDays: 6, Repetitions: 2}
			preview, err := s.Preview(card, now)
			So(err, ShouldBeNil)

			Convey("Then every quality has an outcome", func() {
				So(preview, ShouldHaveLength, 6)
				So(preview[0].IntervalDays, ShouldEqual, 1)
				So(preview[2].Repetitions, ShouldEqual, 0)
				So(preview[3].IntervalDays, ShouldEqual, 15)
				So(preview[5].IntervalDays, ShouldEqual, 15)
				So(preview[5].EaseFactor, ShouldAlmostEqual, 2.6, 1e-9)
			})
		})
	})
}

func TestDue(t *testing.T) {
	Convey("Given cards with different review dates", t, func() {
		cards := []model.Flashcard{
			{ID: "later", NextReviewAt: now.Add(time.Hour)},
			{ID: "b", NextReviewAt: now.Add(-time.Hour)},
			{ID: "a", NextReviewAt: now.Add(-time.Hour)},
			{ID: "old", NextReviewAt: now.Add(-48 * time.Hour)},
			{ID: "exact", NextReviewAt: now},
		}

		Convey("When selecting due cards", func() {
			due := srs.Due(cards, now, 0)

			Convey("Then they are ordered earliest first", func() {
				So(due, ShouldHaveLength, 4)
				So(due[0].ID, ShouldEqual, "old")
				So(due[1].ID, ShouldEqual, "a")
				So(due[2].ID, ShouldEqual, "b")
				So(due[3].ID, ShouldEqual, "exact")
			})
		})

		Convey("When a limit is given", func() {
			due := srs.Due(cards, now, 2)
			So(due, ShouldHaveLength, 2)
			So(due[1].ID, ShouldEqual, "a")
		})
	})
}
