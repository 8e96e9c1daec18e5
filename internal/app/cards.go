package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/quizarena/internal/adapters/mq/queue"
	"github.com/okian/quizarena/internal/domain/model"
	"github.com/okian/quizarena/internal/domain/srs"
	"github.com/okian/quizarena/pkg/logger"
	"github.com/okian/quizarena/pkg/metrics"
)

// NewCard is the input of CreateCard.
type NewCard struct {
	UserID string `json:"user_id"`
	DeckID string `json:"deck_id,omitempty"`
	Front  string `json:"front"`
	Back   string `json:"back"`
}

// ReviewOption is the schedule a card would get for one quality rating.
type ReviewOption struct {
	Quality int `json:"quality"`
	srs.Review
}

// CreateCard stores a new card that is due immediately.
func (s *Service) CreateCard(ctx context.Context, in NewCard) (model.Flashcard, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return model.Flashcard{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Front) == "" || strings.TrimSpace(in.Back) == "" {
		return model.Flashcard{}, fmt.Errorf("%w: front and back are required", ErrInvalidInput)
	}

	card := s.scheduler.NewCard(model.Flashcard{
		ID:        s.newID(),
		UserID:    in.UserID,
		DeckID:    in.DeckID,
		Front:     in.Front,
		Back:      in.Back,
		CreatedAt: s.now().UTC(),
	})
	if err := s.store.CreateCard(ctx, card); err != nil {
		return model.Flashcard{}, fmt.Errorf("create card: %w", err)
	}

	metrics.RecordCardCreated()
	s.logger.Debug(ctx, "card created",
		logger.String("card_id", card.ID),
		logger.String("user_id", card.UserID),
	)
	return card, nil
}

// GetCard returns a card by id.
func (s *Service) GetCard(ctx context.Context, id string) (model.Flashcard, error) {
	return s.store.GetCard(ctx, id)
}

// DueCards returns the user's cards due now, earliest first. limit <= 0 or
// above the configured maximum is clamped to the maximum.
func (s *Service) DueCards(ctx context.Context, userID string, limit int) ([]model.Flashcard, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if limit <= 0 || limit > s.maxDueLimit {
		limit = s.maxDueLimit
	}
	return s.store.DueCards(ctx, userID, s.now().UTC(), limit)
}

// CardReviews returns the review history of a card, oldest first.
func (s *Service) CardReviews(ctx context.Context, id string) ([]model.ReviewLog, error) {
	if _, err := s.store.GetCard(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ReviewLogs(ctx, id)
}

// PreviewReview returns the schedule each quality rating would give the card now.
func (s *Service) PreviewReview(ctx context.Context, id string) ([]ReviewOption, error) {
	card, err := s.store.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.scheduler.Preview(card, s.now().UTC())
	if err != nil {
		return nil, err
	}
	out := make([]ReviewOption, len(reviews))
	for i, r := range reviews {
		out[i] = ReviewOption{Quality: srs.MinQuality + i, Review: r}
	}
	return out, nil
}

// SubmitReview validates a review and queues it for the workers. It reports
// duplicate=true, without queueing, when the submission id was seen before.
// A missing submission id or timestamp is filled in.
func (s *Service) SubmitReview(ctx context.Context, sub model.ReviewSubmission) (model.ReviewSubmission, bool, error) {
	if sub.Quality < srs.MinQuality || sub.Quality > srs.MaxQuality {
		return sub, false, fmt.Errorf("%w: got %d", srs.ErrInvalidQualityScore, sub.Quality)
	}
	if sub.CardID == "" {
		return sub, false, fmt.Errorf("%w: card_id is required", ErrInvalidInput)
	}
	if _, err := s.store.GetCard(ctx, sub.CardID); err != nil {
		return sub, false, err
	}
	if sub.SubmissionID == "" {
		sub.SubmissionID = s.newID()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = s.now()
	}
	sub.SubmittedAt = sub.SubmittedAt.UTC()

	if s.deduper.SeenAndRecord(ctx, sub.SubmissionID) {
		metrics.RecordReviewDuplicate()
		s.logger.Debug(ctx, "duplicate review submission",
			logger.String("submission_id", sub.SubmissionID),
		)
		return sub, true, nil
	}

	if err := s.queue.Enqueue(ctx, sub); err != nil {
		s.deduper.Unrecord(ctx, sub.SubmissionID)
		switch {
		case errors.Is(err, queue.ErrQueueFull):
			s.logger.Warn(ctx, "review queue full", logger.Int("capacity", s.queue.Cap()))
			return sub, false, ErrBackpressure
		case errors.Is(err, queue.ErrQueueClosed):
			return sub, false, ErrStopped
		default:
			return sub, false, fmt.Errorf("enqueue review: %w", err)
		}
	}
	return sub, false, nil
}

// ApplyReview reschedules the card and appends the review to its history in
// one atomic store update. Workers call it for every queued submission.
// On failure the submission id is forgotten so the client can retry it.
func (s *Service) ApplyReview(ctx context.Context, sub model.ReviewSubmission) error {
	var log model.ReviewLog
	_, err := s.store.UpdateCard(ctx, sub.CardID, func(card model.Flashcard) (model.Flashcard, *model.ReviewLog, error) {
		next, err := s.scheduler.Review(card, sub.Quality, sub.SubmittedAt)
		if err != nil {
			return model.Flashcard{}, nil, err
		}
		log = model.ReviewLog{
			ID:           s.newID(),
			CardID:       card.ID,
			SubmissionID: sub.SubmissionID,
			Quality:      sub.Quality,
			ReviewedAt:   sub.SubmittedAt.UTC(),
			IntervalDays: next.IntervalDays,
			EaseFactor:   next.EaseFactor,
		}
		return next, &log, nil
	})
	if err != nil {
		// Nothing was written, so a resubmission must be applied rather
		// than answered as a duplicate.
		s.deduper.Unrecord(ctx, sub.SubmissionID)
		metrics.RecordReviewError()
		return fmt.Errorf("apply review to card %s: %w", sub.CardID, err)
	}

	metrics.RecordReviewApplied(sub.Quality, srs.Passed(sub.Quality), log.IntervalDays)
	s.logger.Debug(ctx, "review applied",
		logger.String("card_id", sub.CardID),
		logger.Int("quality", sub.Quality),
		logger.Int("interval_days", log.IntervalDays),
		logger.Float64("ease_factor", log.EaseFactor),
	)
	return nil
}
