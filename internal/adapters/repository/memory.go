package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/quizarena/internal/domain/model"
)

// MemoryStore keeps everything in process memory. Values are cloned on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	cards       map[string]model.Flashcard
	logs        map[string][]model.ReviewLog
	tournaments map[string]model.Tournament
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cards:       make(map[string]model.Flashcard),
		logs:        make(map[string][]model.ReviewLog),
		tournaments: make(map[string]model.Tournament),
	}
}

func (s *MemoryStore) CreateCard(_ context.Context, card model.Flashcard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[card.ID]; ok {
		return fmt.Errorf("card %s: %w", card.ID, ErrAlreadyExists)
	}
	s.cards[card.ID] = card.Clone()
	return nil
}

func (s *MemoryStore) GetCard(_ context.Context, id string) (model.Flashcard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	card, ok := s.cards[id]
	if !ok {
		return model.Flashcard{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	return card.Clone(), nil
}

func (s *MemoryStore) UpdateCard(_ context.Context, id string, fn CardUpdate) (model.Flashcard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[id]
	if !ok {
		return model.Flashcard{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	updated, log, err := fn(card.Clone())
	if err != nil {
		return model.Flashcard{}, err
	}
	updated.ID = id
	s.cards[id] = updated.Clone()
	if log != nil {
		s.logs[id] = append(s.logs[id], *log)
	}
	return updated, nil
}

func (s *MemoryStore) DueCards(_ context.Context, userID string, now time.Time, limit int) ([]model.Flashcard, error) {
	s.mu.RLock()
	out := make([]model.Flashcard, 0)
	for _, c := range s.cards {
		if c.UserID == userID && !c.NextReviewAt.After(now) {
			out = append(out, c.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextReviewAt.Equal(out[j].NextReviewAt) {
			return out[i].NextReviewAt.Before(out[j].NextReviewAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CountDue(_ context.Context, now time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.cards {
		if !c.NextReviewAt.After(now) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ReviewLogs(_ context.Context, cardID string) ([]model.ReviewLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.cards[cardID]; !ok {
		return nil, fmt.Errorf("card %s: %w", cardID, ErrNotFound)
	}
	return append([]model.ReviewLog{}, s.logs[cardID]...), nil
}

func (s *MemoryStore) CreateTournament(_ context.Context, t model.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tournaments[t.ID]; ok {
		return fmt.Errorf("tournament %s: %w", t.ID, ErrAlreadyExists)
	}
	s.tournaments[t.ID] = t.Clone()
	return nil
}

func (s *MemoryStore) GetTournament(_ context.Context, id string) (model.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tournaments[id]
	if !ok {
		return model.Tournament{}, fmt.Errorf("tournament %s: %w", id, ErrNotFound)
	}
	return t.Clone(), nil
}

func (s *MemoryStore) UpdateTournament(_ context.Context, id string, fn TournamentUpdate) (model.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[id]
	if !ok {
		return model.Tournament{}, fmt.Errorf("tournament %s: %w", id, ErrNotFound)
	}
	updated, err := fn(t.Clone())
	if err != nil {
		return model.Tournament{}, err
	}
	updated.ID = id
	s.tournaments[id] = updated.Clone()
	return updated, nil
}

func (s *MemoryStore) ListTournaments(_ context.Context) ([]model.Tournament, error) {
	s.mu.RLock()
	out := make([]model.Tournament, 0, len(s.tournaments))
	for _, t := range s.tournaments {
		out = append(out, t.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
