package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/quizarena/internal/adapters/http/api"
	"github.com/okian/quizarena/internal/adapters/repository"
	service "github.com/okian/quizarena/internal/app"
	"github.com/okian/quizarena/internal/domain/model"
	"github.com/okian/quizarena/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newMux(svcOpts []service.Option, apiOpts ...api.Option) *http.ServeMux {
	opts := append([]service.Option{
		service.WithStore(repository.NewMemoryStore()),
		service.WithClock(func() time.Time { return epoch }),
		service.WithBracketSeed(1),
	}, svcOpts...)
	svc := service.New(opts...)

	mux := http.NewServeMux()
	api.NewServer(svc, apiOpts...).Register(mux)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestServer_Operational(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(nil)

		Convey("Then health, stats and metrics respond", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "ok")

			w = do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			stats := decodeBody[map[string]any](w)
			So(stats, ShouldContainKey, "queueCapacity")

			w = do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "quizarena_")
		})

		Convey("Then unknown methods are refused", func() {
			w := do(mux, http.MethodDelete, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestServer_Cards(t *testing.T) {
	Convey("Given an API server with a one-slot review queue", t, func() {
		mux := newMux([]service.Option{service.WithQueueSize(1)})

		Convey("When a card is created", func() {
			w := do(mux, http.MethodPost, "/cards", `{"user_id":"u1","front":"uno","back":"one"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			card := decodeBody[model.Flashcard](w)
			So(card.ID, ShouldNotBeEmpty)
			So(card.EaseFactor, ShouldEqual, 2.5)

			Convey("Then it can be fetched, previewed and listed as due", func() {
				w := do(mux, http.MethodGet, "/cards/"+card.ID, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeBody[model.Flashcard](w).Front, ShouldEqual, "uno")

				w = do(mux, http.MethodGet, "/cards/"+card.ID+"/preview", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(decodeBody[[]service.ReviewOption](w)), ShouldEqual, 6)

				w = do(mux, http.MethodGet, "/cards/"+card.ID+"/reviews", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decodeBody[[]model.ReviewLog](w), ShouldBeEmpty)

				w = do(mux, http.MethodGet, "/users/u1/due?limit=5", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(decodeBody[[]model.Flashcard](w)), ShouldEqual, 1)
			})

			Convey("Then reviews are accepted once and deduplicated", func() {
				body := `{"submission_id":"s1","card_id":"` + card.ID + `","quality":4}`
				w := do(mux, http.MethodPost, "/reviews", body)
				So(w.Code, ShouldEqual, http.StatusAccepted)

				w = do(mux, http.MethodPost, "/reviews", body)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)

				Convey("And a full queue answers with backpressure", func() {
					w := do(mux, http.MethodPost, "/reviews", `{"submission_id":"s2","card_id":"`+card.ID+`","quality":4}`)
					So(w.Code, ShouldEqual, http.StatusTooManyRequests)
					So(decodeBody[apiError](w).Code, ShouldEqual, "backpressure")
				})
			})

			Convey("Then invalid reviews are rejected", func() {
				cases := []string{
					`{"card_id":"` + card.ID + `","quality":6}`,
					`{"card_id":"` + card.ID + `","quality":-1}`,
					`{"card_id":"` + card.ID + `"}`,
					`{"quality":3}`,
					`{"card_id":"` + card.ID + `","quality":3,"submitted_at":"yesterday"}`,
					`not json`,
				}
				for _, body := range cases {
					w := do(mux, http.MethodPost, "/reviews", body)
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					So(decodeBody[apiError](w).Code, ShouldEqual, "bad_request")
				}
			})
		})

		Convey("Then unknown cards are 404", func() {
			w := do(mux, http.MethodGet, "/cards/missing", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeBody[apiError](w).Code, ShouldEqual, "not_found")

			w = do(mux, http.MethodPost, "/reviews", `{"card_id":"missing","quality":3}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then bad card input is 400", func() {
			So(do(mux, http.MethodPost, "/cards", `{"front":"a","back":"b"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/cards", ``).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/users/u1/due?limit=zero", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestServer_Tournaments(t *testing.T) {
	Convey("Given a tournament with four players", t, func() {
		mux := newMux(nil)

		w := do(mux, http.MethodPost, "/tournaments", `{"name":"Cup"}`)
		So(w.Code, ShouldEqual, http.StatusCreated)
		tour := decodeBody[model.Tournament](w)

		for _, u := range []string{"ana", "ben", "cat", "dan"} {
			w := do(mux, http.MethodPost, "/tournaments/"+tour.ID+"/participants", `{"user_id":"`+u+`"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
		}

		Convey("Then joining twice conflicts", func() {
			w := do(mux, http.MethodPost, "/tournaments/"+tour.ID+"/participants", `{"user_id":"ana"}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decodeBody[apiError](w).Code, ShouldEqual, "conflict")
		})

		Convey("Then results cannot be recorded before the start", func() {
			w := do(mux, http.MethodPost, "/tournaments/"+tour.ID+"/matches/any/result", `{"player1_score":1,"player2_score":0}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When it starts", func() {
			w := do(mux, http.MethodPost, "/tournaments/"+tour.ID+"/start", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			started := decodeBody[model.Tournament](w)
			So(started.Status, ShouldEqual, model.TournamentInProgress)
			So(len(started.Matches), ShouldEqual, 3)

			Convey("Then it cannot start again", func() {
				w := do(mux, http.MethodPost, "/tournaments/"+tour.ID+"/start", "")
				So(w.Code, ShouldEqual, http.StatusConflict)
			})

			Convey("Then the final is not ready yet", func() {
				final := started.Matches[2]
				w := do(mux, http.MethodPost, "/tournaments/"+tour.ID+"/matches/"+final.ID+"/result", `{"player1_score":1,"player2_score":0}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
			})

			Convey("Then scores are validated", func() {
				path := "/tournaments/" + tour.ID + "/matches/" + started.Matches[0].ID + "/result"
				So(do(mux, http.MethodPost, path, `{"player1_score":1}`).Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, path, `{"player1_score":-1,"player2_score":0}`).Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then playing all three matches completes it", func() {
				var last map[string]json.RawMessage
				for _, idx := range []int{0, 1, 2} {
					path := "/tournaments/" + tour.ID + "/matches/" + started.Matches[idx].ID + "/result"
					w := do(mux, http.MethodPost, path, `{"player1_score":2,"player2_score":5}`)
					So(w.Code, ShouldEqual, http.StatusOK)
					last = decodeBody[map[string]json.RawMessage](w)
				}
				So(string(last["advancement"]), ShouldContainSubstring, `"tournament_completed":true`)

				w := do(mux, http.MethodGet, "/tournaments/"+tour.ID, "")
				So(w.Code, ShouldEqual, http.StatusOK)
				final := decodeBody[model.Tournament](w)
				So(final.Status, ShouldEqual, model.TournamentCompleted)

				w = do(mux, http.MethodGet, "/tournaments/"+tour.ID+"/standings", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				standings := decodeBody[[]types.Standing](w)
				So(len(standings), ShouldEqual, 4)
				So(standings[0].ParticipantID, ShouldEqual, final.WinnerID)

				w = do(mux, http.MethodGet, "/tournaments", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(decodeBody[[]model.Tournament](w)), ShouldEqual, 1)
			})
		})
	})
}

func TestServer_StartUnderfilled(t *testing.T) {
	Convey("Given a tournament with a single player", t, func() {
		mux := newMux(nil)
		w := do(mux, http.MethodPost, "/tournaments", `{"name":"Solo"}`)
		So(w.Code, ShouldEqual, http.StatusCreated)
		tour := decodeBody[model.Tournament](w)
		So(do(mux, http.MethodPost, "/tournaments/"+tour.ID+"/participants", `{"user_id":"ana"}`).Code, ShouldEqual, http.StatusCreated)

		Convey("Then starting it conflicts and registration stays open", func() {
			w := do(mux, http.MethodPost, "/tournaments/"+tour.ID+"/start", "")
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decodeBody[apiError](w).Code, ShouldEqual, "conflict")

			So(do(mux, http.MethodPost, "/tournaments/"+tour.ID+"/participants", `{"user_id":"ben"}`).Code, ShouldEqual, http.StatusCreated)
			So(do(mux, http.MethodPost, "/tournaments/"+tour.ID+"/start", "").Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestServer_RateLimit(t *testing.T) {
	Convey("Given a server limited to one mutating request per client", t, func() {
		mux := newMux(nil, api.WithRateLimit(0.001, 1))

		Convey("Then the second write is rejected but reads pass", func() {
			So(do(mux, http.MethodPost, "/tournaments", `{"name":"a"}`).Code, ShouldEqual, http.StatusCreated)

			w := do(mux, http.MethodPost, "/tournaments", `{"name":"b"}`)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(decodeBody[apiError](w).Code, ShouldEqual, "rate_limited")
			So(w.Header().Get("Retry-After"), ShouldEqual, "1")

			So(do(mux, http.MethodGet, "/tournaments", "").Code, ShouldEqual, http.StatusOK)
		})
	})
}
