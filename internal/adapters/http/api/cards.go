package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/quizarena/internal/app"
	"github.com/okian/quizarena/internal/domain/model"
)

// CardHandler handles flashcard and review requests.
type CardHandler struct {
	deps CardDependencies
}

// NewCardHandler creates a new card handler.
func NewCardHandler(deps CardDependencies) *CardHandler {
	return &CardHandler{deps: deps}
}

// reviewRequest is the body of POST /reviews.
type reviewRequest struct {
	SubmissionID string `json:"submission_id"`
	CardID       string `json:"card_id"`
	Quality      *int   `json:"quality"`
	SubmittedAt  string `json:"submitted_at"` // RFC3339, optional
}

func (r reviewRequest) submission() (model.ReviewSubmission, error) {
	switch {
	case strings.TrimSpace(r.CardID) == "":
		return model.ReviewSubmission{}, fmt.Errorf("%w: missing card_id", ErrBadRequest)
	case r.Quality == nil:
		return model.ReviewSubmission{}, fmt.Errorf("%w: missing quality", ErrBadRequest)
	}
	s := model.ReviewSubmission{
		SubmissionID: strings.TrimSpace(r.SubmissionID),
		CardID:       r.CardID,
		Quality:      *r.Quality,
	}
	if r.SubmittedAt != "" {
		ts, err := time.Parse(time.RFC3339, r.SubmittedAt)
		if err != nil {
			return model.ReviewSubmission{}, fmt.Errorf("%w: invalid submitted_at; must be RFC3339", ErrBadRequest)
		}
		s.SubmittedAt = ts
	}
	return s, nil
}

type ackResponse struct {
	Status       string `json:"status"`
	Duplicate    bool   `json:"duplicate"`
	SubmissionID string `json:"submission_id"`
}

// HandleCreateCard handles POST /cards.
func (h *CardHandler) HandleCreateCard(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_card"
	var req service.NewCard
	if err := decode(r, &req); err != nil {
		writeError(w, wrap(op, err))
		return
	}
	card, err := h.deps.CreateCard(r.Context(), req)
	if err != nil {
		writeError(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

// HandleGetCard handles GET /cards/{id}.
func (h *CardHandler) HandleGetCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.deps.GetCard(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, wrap("api.get_card", err))
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// HandlePreview handles GET /cards/{id}/preview.
func (h *CardHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	opts, err := h.deps.PreviewReview(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, wrap("api.preview_review", err))
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// HandleReviews handles GET /cards/{id}/reviews.
func (h *CardHandler) HandleReviews(w http.ResponseWriter, r *http.Request) {
	logs, err := h.deps.CardReviews(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, wrap("api.card_reviews", err))
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// HandleDueCards handles GET /users/{userID}/due?limit=N. A missing limit
// uses the service maximum.
func (h *CardHandler) HandleDueCards(w http.ResponseWriter, r *http.Request) {
	const op = "api.due_cards"
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, wrap(op, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest)))
			return
		}
		limit = n
	}
	cards, err := h.deps.DueCards(r.Context(), r.PathValue("userID"), limit)
	if err != nil {
		writeError(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

// HandleSubmitReview handles POST /reviews. New submissions are accepted
// with 202; repeated submission ids get 200 and are not applied again.
func (h *CardHandler) HandleSubmitReview(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_review"
	var req reviewRequest
	if err := decode(r, &req); err != nil {
		writeError(w, wrap(op, err))
		return
	}
	sub, err := req.submission()
	if err != nil {
		writeError(w, wrap(op, err))
		return
	}

	accepted, duplicate, err := h.deps.SubmitReview(r.Context(), sub)
	if err != nil {
		writeError(w, wrap(op, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true, SubmissionID: accepted.SubmissionID})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", SubmissionID: accepted.SubmissionID})
}
