// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/quizarena/internal/app"
	"github.com/okian/quizarena/internal/domain/bracket"
	"github.com/okian/quizarena/internal/domain/model"
	"github.com/okian/quizarena/internal/domain/types"
)

const maxBodyBytes = 1 << 20

// CardDependencies covers study mode.
type CardDependencies interface {
	CreateCard(ctx context.Context, in service.NewCard) (model.Flashcard, error)
	GetCard(ctx context.Context, id string) (model.Flashcard, error)
	DueCards(ctx context.Context, userID string, limit int) ([]model.Flashcard, error)
	CardReviews(ctx context.Context, id string) ([]model.ReviewLog, error)
	PreviewReview(ctx context.Context, id string) ([]service.ReviewOption, error)

	// SubmitReview queues a review. duplicate is true when the submission
	// id was already accepted.
	SubmitReview(ctx context.Context, s model.ReviewSubmission) (accepted model.ReviewSubmission, duplicate bool, err error)
}

// TournamentDependencies covers tournament mode.
type TournamentDependencies interface {
	CreateTournament(ctx context.Context, name string) (model.Tournament, error)
	ListTournaments(ctx context.Context) ([]model.Tournament, error)
	GetTournament(ctx context.Context, id string) (model.Tournament, error)
	JoinTournament(ctx context.Context, tournamentID, userID string) (model.Participant, error)
	StartTournament(ctx context.Context, id string) (model.Tournament, error)
	RecordMatchResult(ctx context.Context, tournamentID, matchID string, player1Score, player2Score int) (bracket.Result, error)
	Standings(ctx context.Context, id string) ([]types.Standing, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CardDependencies
	TournamentDependencies
	StatsProvider
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithRateLimit sets the per-client limit applied to mutating routes.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.rps = rps
		s.burst = burst
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	cardHandler       *CardHandler
	tournamentHandler *TournamentHandler

	rps     float64
	burst   int
	limiter *RateLimiter
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(deps),
		cardHandler:       NewCardHandler(deps),
		tournamentHandler: NewTournamentHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rps > 0 {
		s.limiter = NewRateLimiter(s.rps, s.burst)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	read := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}
	write := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(RateLimitMiddleware(s.limiter, h), endpoint))
	}

	read("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	read("GET /metrics", "metrics", s.healthHandler.HandleMetrics)
	read("GET /stats", "stats", s.statsHandler.HandleStats)

	write("POST /cards", "cards", s.cardHandler.HandleCreateCard)
	read("GET /cards/{id}", "card", s.cardHandler.HandleGetCard)
	read("GET /cards/{id}/preview", "card_preview", s.cardHandler.HandlePreview)
	read("GET /cards/{id}/reviews", "card_reviews", s.cardHandler.HandleReviews)
	read("GET /users/{userID}/due", "due_cards", s.cardHandler.HandleDueCards)
	write("POST /reviews", "reviews", s.cardHandler.HandleSubmitReview)

	read("GET /tournaments", "tournaments", s.tournamentHandler.HandleList)
	write("POST /tournaments", "tournaments", s.tournamentHandler.HandleCreate)
	read("GET /tournaments/{id}", "tournament", s.tournamentHandler.HandleGet)
	write("POST /tournaments/{id}/participants", "tournament_join", s.tournamentHandler.HandleJoin)
	write("POST /tournaments/{id}/start", "tournament_start", s.tournamentHandler.HandleStart)
	write("POST /tournaments/{id}/matches/{matchID}/result", "match_result", s.tournamentHandler.HandleMatchResult)
	read("GET /tournaments/{id}/standings", "standings", s.tournamentHandler.HandleStandings)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

// decode reads a JSON body into v. Any failure is a bad request.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
