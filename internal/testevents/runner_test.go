package testevents

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/quizarena/internal/adapters/http/api"
	"github.com/okian/quizarena/internal/adapters/repository"
	service "github.com/okian/quizarena/internal/app"
	"github.com/okian/quizarena/internal/domain/model"
	"github.com/okian/quizarena/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestServer(opts ...service.Option) (*httptest.Server, func()) {
	svc := service.New(append([]service.Option{
		service.WithStore(repository.NewMemoryStore()),
		service.WithWorkerCount(2),
		service.WithBracketSeed(3),
	}, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)

	mux := http.NewServeMux()
	api.NewServer(svc).Register(mux)
	srv := httptest.NewServer(mux)
	return srv, func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running service with a small review queue", t, func() {
		srv, stop := newTestServer(service.WithQueueSize(8))
		defer stop()

		report := filepath.Join(t.TempDir(), "out", "report.json")
		cfg := &Config{
			BaseURL:        srv.URL,
			Users:          2,
			CardsPerUser:   3,
			ReviewsPerCard: 4,
			ResubmitEvery:  3,
			Players:        6,
			Workers:        4,
			Timeout:        5 * time.Second,
			SettleTimeout:  10 * time.Second,
			PollInterval:   10 * time.Millisecond,
			OutputFile:     report,
		}

		Convey("When the full run executes", func() {
			stats, err := Run(context.Background(), cfg)

			Convey("Then every review is applied once and the tournament completes", func() {
				So(err, ShouldBeNil)
				So(stats.CardsCreated, ShouldEqual, 6)
				So(stats.ReviewsGenerated, ShouldEqual, 24)
				So(stats.ReviewsAccepted, ShouldEqual, 24)
				So(stats.ReviewsDuplicate, ShouldEqual, 8)
				So(stats.ReviewsSubmitted, ShouldEqual, 32)
				So(stats.ReviewsFailed, ShouldEqual, 0)
				So(stats.ReviewsApplied, ShouldEqual, 24)
				So(stats.CardsVerified, ShouldEqual, 6)

				So(stats.MatchesPlayed, ShouldEqual, 5)
				So(stats.StandingsVerified, ShouldEqual, 6)
				So(stats.ChampionID, ShouldNotBeEmpty)
			})

			Convey("Then the report is written", func() {
				So(err, ShouldBeNil)
				data, err := os.ReadFile(report)
				So(err, ShouldBeNil)
				var saved Stats
				So(json.Unmarshal(data, &saved), ShouldBeNil)
				So(saved.ReviewsApplied, ShouldEqual, 24)
			})
		})

		Convey("When the tournament is skipped", func() {
			cfg.Players = 0
			cfg.ReviewsPerCard = 1
			cfg.OutputFile = ""
			stats, err := Run(context.Background(), cfg)

			Convey("Then only study mode is exercised", func() {
				So(err, ShouldBeNil)
				So(stats.ReviewsApplied, ShouldEqual, 6)
				So(stats.MatchesPlayed, ShouldEqual, 0)
				So(stats.ChampionID, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a service that is not healthy", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		Convey("Then the run stops at the health check", func() {
			_, err := Run(context.Background(), &Config{BaseURL: srv.URL, Users: 1, CardsPerUser: 1, Workers: 1, Timeout: time.Second})
			So(errors.Is(err, ErrUnexpected), ShouldBeTrue)
		})
	})
}

func TestConfigValidate(t *testing.T) {
	Convey("Given run configurations", t, func() {
		valid := Config{BaseURL: "http://x", Users: 1, CardsPerUser: 1, Workers: 1}
		So(valid.Validate(), ShouldBeNil)

		cases := map[string]func(c *Config){
			"no url":         func(c *Config) { c.BaseURL = "" },
			"no users":       func(c *Config) { c.Users = 0 },
			"no cards":       func(c *Config) { c.CardsPerUser = 0 },
			"lonely player":  func(c *Config) { c.Players = 1 },
			"no workers":     func(c *Config) { c.Workers = 0 },
			"negative count": func(c *Config) { c.ResubmitEvery = -1 },
		}
		for name, mutate := range cases {
			cfg := valid
			mutate(&cfg)

			Convey("Then "+name+" is rejected", func() {
				So(errors.Is(cfg.Validate(), ErrConfig), ShouldBeTrue)
			})
		}
	})
}

func TestCheckCard(t *testing.T) {
	Convey("Given a card reviewed twice", t, func() {
		reviewed := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		card := model.Flashcard{ID: "c1", EaseFactor: 2.6, IntervalDays: 6, Repetitions: 2, LastReviewedAt: &reviewed}
		logs := []model.ReviewLog{
			{ID: "r1", SubmissionID: "s1", EaseFactor: 2.6, IntervalDays: 1},
			{ID: "r2", SubmissionID: "s2", EaseFactor: 2.6, IntervalDays: 6},
		}

		Convey("Then a consistent history passes", func() {
			So(checkCard(card, logs, 2), ShouldBeNil)
		})

		Convey("Then a missing review is reported", func() {
			So(errors.Is(checkCard(card, logs, 3), ErrVerification), ShouldBeTrue)
		})

		Convey("Then a submission applied twice is reported", func() {
			logs[1].SubmissionID = "s1"
			So(errors.Is(checkCard(card, logs, 2), ErrVerification), ShouldBeTrue)
		})

		Convey("Then a schedule that drifted from the last review is reported", func() {
			card.IntervalDays = 15
			So(errors.Is(checkCard(card, logs, 2), ErrVerification), ShouldBeTrue)
		})

		Convey("Then an ease factor under the floor is reported", func() {
			logs[0].EaseFactor = 1.2
			So(errors.Is(checkCard(card, logs, 2), ErrVerification), ShouldBeTrue)
		})
	})
}

func TestVerifyStandings(t *testing.T) {
	Convey("Given a completed three player tournament", t, func() {
		tour := model.Tournament{
			WinnerID:     "p2",
			Participants: []model.Participant{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}},
		}
		standings := []types.Standing{
			{Rank: 1, ParticipantID: "p2", Champion: true},
			{Rank: 2, ParticipantID: "p1", Eliminated: true},
			{Rank: 3, ParticipantID: "p3", Eliminated: true},
		}
		stats := &Stats{}

		Convey("Then the leaderboard passes", func() {
			So(verifyStandings(tour, standings, stats), ShouldBeNil)
			So(stats.StandingsVerified, ShouldEqual, 3)
		})

		Convey("Then a survivor who is not champion is reported", func() {
			standings[2].Eliminated = false
			So(errors.Is(verifyStandings(tour, standings, stats), ErrVerification), ShouldBeTrue)
		})

		Convey("Then a champion that is not the winner is reported", func() {
			tour.WinnerID = "p1"
			So(errors.Is(verifyStandings(tour, standings, stats), ErrVerification), ShouldBeTrue)
		})

		Convey("Then a missing row is reported", func() {
			So(errors.Is(verifyStandings(tour, standings[:2], stats), ErrVerification), ShouldBeTrue)
		})
	})
}
