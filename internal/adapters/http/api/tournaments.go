package api

import (
	"fmt"
	"net/http"

	"github.com/okian/quizarena/internal/domain/bracket"
	"github.com/okian/quizarena/internal/domain/model"
)

// TournamentHandler handles tournament requests.
type TournamentHandler struct {
	deps TournamentDependencies
}

// NewTournamentHandler creates a new tournament handler.
func NewTournamentHandler(deps TournamentDependencies) *TournamentHandler {
	return &TournamentHandler{deps: deps}
}

type createTournamentRequest struct {
	Name string `json:"name"`
}

type joinRequest struct {
	UserID string `json:"user_id"`
}

type matchResultRequest struct {
	Player1Score *int `json:"player1_score"`
	Player2Score *int `json:"player2_score"`
}

type matchResultResponse struct {
	Match       model.Match         `json:"match"`
	Winner      model.Participant   `json:"winner"`
	Loser       model.Participant   `json:"loser"`
	Advancement bracket.Advancement `json:"advancement"`
	Events      []bracket.Event     `json:"events"`
}

// HandleList handles GET /tournaments.
func (h *TournamentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ts, err := h.deps.ListTournaments(r.Context())
	if err != nil {
		writeError(w, wrap("api.list_tournaments", err))
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

// HandleCreate handles POST /tournaments.
func (h *TournamentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_tournament"
	var req createTournamentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, wrap(op, err))
		return
	}
	t, err := h.deps.CreateTournament(r.Context(), req.Name)
	if err != nil {
		writeError(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// HandleGet handles GET /tournaments/{id}.
func (h *TournamentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	t, err := h.deps.GetTournament(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, wrap("api.get_tournament", err))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleJoin handles POST /tournaments/{id}/participants.
func (h *TournamentHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	const op = "api.join_tournament"
	var req joinRequest
	if err := decode(r, &req); err != nil {
		writeError(w, wrap(op, err))
		return
	}
	p, err := h.deps.JoinTournament(r.Context(), r.PathValue("id"), req.UserID)
	if err != nil {
		writeError(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleStart handles POST /tournaments/{id}/start.
func (h *TournamentHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	t, err := h.deps.StartTournament(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, wrap("api.start_tournament", err))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleMatchResult handles POST /tournaments/{id}/matches/{matchID}/result.
func (h *TournamentHandler) HandleMatchResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_match_result"
	var req matchResultRequest
	if err := decode(r, &req); err != nil {
		writeError(w, wrap(op, err))
		return
	}
	if req.Player1Score == nil || req.Player2Score == nil {
		writeError(w, wrap(op, fmt.Errorf("%w: player1_score and player2_score are required", ErrBadRequest)))
		return
	}

	res, err := h.deps.RecordMatchResult(r.Context(), r.PathValue("id"), r.PathValue("matchID"), *req.Player1Score, *req.Player2Score)
	if err != nil {
		writeError(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, matchResultResponse{
		Match:       res.Match,
		Winner:      res.Winner,
		Loser:       res.Loser,
		Advancement: res.Advancement,
		Events:      res.Events,
	})
}

// HandleStandings handles GET /tournaments/{id}/standings.
func (h *TournamentHandler) HandleStandings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.deps.Standings(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, wrap("api.standings", err))
		return
	}
	writeJSON(w, http.StatusOK, standings)
}
