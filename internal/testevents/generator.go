package testevents

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/okian/quizarena/internal/domain/model"
	"github.com/okian/quizarena/pkg/logger"
)

// Quality bounds accepted by POST /reviews.
const (
	minQuality = 0
	maxQuality = 5
)

// plannedReview is a review and whether it is sent a second time to
// exercise submission deduplication.
type plannedReview struct {
	Review
	resend bool
}

// randomInt returns a uniform value in [0, n) using crypto/rand.
func randomInt(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// forEach calls fn for 0..n-1 on a pool of workers and stops handing out
// work once ctx is done.
func forEach(ctx context.Context, workers, n int, fn func(ctx context.Context, i int)) {
	if n == 0 {
		return
	}
	workers = min(workers, n)
	indices := make(chan int, workers*WorkerChannelMultiplier)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				if ctx.Err() != nil {
					continue
				}
				fn(ctx, i)
			}
		}()
	}

	go func() {
		defer close(indices)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case indices <- i:
			}
		}
	}()
	wg.Wait()
}

// createCards creates CardsPerUser cards for each of Users users.
func createCards(ctx context.Context, client *HTTPClient, config *Config, stats *Stats) ([]model.Flashcard, error) {
	total := config.Users * config.CardsPerUser
	logger.Get().Info(ctx, "creating cards", logger.Int("users", config.Users), logger.Int("cards", total))

	runID := uuid.NewString()[:8]
	cards := make([]model.Flashcard, total)
	var failed atomic.Int64
	var firstErr error
	var once sync.Once

	forEach(ctx, config.Workers, total, func(ctx context.Context, i int) {
		user := i / config.CardsPerUser
		body := map[string]string{
			"user_id": fmt.Sprintf("learner-%s-%d", runID, user),
			"deck_id": "load",
			"front":   fmt.Sprintf("question %d", i),
			"back":    fmt.Sprintf("answer %d", i),
		}
		if err := client.postJSON(ctx, "/cards", body, &cards[i], http.StatusCreated); err != nil {
			failed.Add(1)
			once.Do(func() { firstErr = err })
		}
	})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled during card creation: %w", err)
	}
	if n := failed.Load(); n > 0 {
		return nil, fmt.Errorf("%d of %d cards failed: %w", n, total, firstErr)
	}

	stats.CardsCreated = len(cards)
	logger.Get().Info(ctx, "created cards successfully", logger.Int("count", len(cards)))
	return cards, nil
}

// generateReviews plans ReviewsPerCard reviews with random quality for every
// card. Every ResubmitEvery-th review is marked for a second send.
func generateReviews(config *Config, cards []model.Flashcard, stats *Stats) []plannedReview {
	reviews := make([]plannedReview, 0, len(cards)*config.ReviewsPerCard)
	for _, card := range cards {
		for r := 0; r < config.ReviewsPerCard; r++ {
			n := len(reviews) + 1
			reviews = append(reviews, plannedReview{
				Review: Review{
					SubmissionID: uuid.NewString(),
					CardID:       card.ID,
					Quality:      minQuality + randomInt(maxQuality-minQuality+1),
				},
				resend: config.ResubmitEvery > 0 && n%config.ResubmitEvery == 0,
			})
		}
	}
	stats.ReviewsGenerated = len(reviews)
	return reviews
}
