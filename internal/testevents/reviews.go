package testevents

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/quizarena/pkg/logger"
)

// submitReviews posts every planned review on a worker pool and returns how
// many reviews each card should end up with.
func submitReviews(ctx context.Context, client *HTTPClient, config *Config, reviews []plannedReview, stats *Stats) map[string]int {
	log := logger.Get()
	log.Info(ctx, "submitting reviews", logger.Int("reviews", len(reviews)), logger.Int("workers", config.Workers))

	var (
		submitted, accepted, duplicate, failed, retried atomic.Int64

		mu       sync.Mutex
		expected = make(map[string]int)
	)

	send := func(ctx context.Context, r Review) string {
		outcome, retries := submitWithRetry(ctx, client, r)
		submitted.Add(1)
		retried.Add(int64(retries))
		switch outcome {
		case outcomeAccepted:
			accepted.Add(1)
			mu.Lock()
			expected[r.CardID]++
			mu.Unlock()
		case outcomeDuplicate:
			duplicate.Add(1)
		default:
			failed.Add(1)
		}
		return outcome
	}

	forEach(ctx, config.Workers, len(reviews), func(ctx context.Context, i int) {
		r := reviews[i]
		first := send(ctx, r.Review)
		if r.resend {
			if second := send(ctx, r.Review); first == outcomeAccepted && second != outcomeDuplicate && config.Verbose {
				log.Warn(ctx, "resubmission was not reported as duplicate",
					logger.String("submission_id", r.SubmissionID),
					logger.String("outcome", second))
			}
		}
	})

	stats.ReviewsSubmitted = int(submitted.Load())
	stats.ReviewsAccepted = int(accepted.Load())
	stats.ReviewsDuplicate = int(duplicate.Load())
	stats.ReviewsFailed = int(failed.Load())
	stats.ReviewsRetried = int(retried.Load())

	log.Info(ctx, "review submission completed",
		logger.Int("accepted", stats.ReviewsAccepted),
		logger.Int("duplicate", stats.ReviewsDuplicate),
		logger.Int("failed", stats.ReviewsFailed),
		logger.Int("retried", stats.ReviewsRetried))
	return expected
}

// submitWithRetry posts one review, backing off on 429 and 503. It returns
// the final outcome and how many retries were needed.
func submitWithRetry(ctx context.Context, client *HTTPClient, r Review) (string, int) {
	delay := retryBaseDelay
	for attempt := 0; ; attempt++ {
		resp, err := client.Post(ctx, "/reviews", r)
		if err != nil {
			return outcomeFailed, attempt
		}

		switch resp.status {
		case http.StatusAccepted:
			return outcomeAccepted, attempt
		case http.StatusOK:
			var ack AckResponse
			if resp.decode(&ack) == nil && ack.Duplicate {
				return outcomeDuplicate, attempt
			}
			return outcomeFailed, attempt
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			if attempt >= maxRetries {
				return outcomeFailed, attempt
			}
			wait := delay
			if s, err := strconv.Atoi(resp.header.Get("Retry-After")); err == nil && s > 0 {
				wait = min(time.Duration(s)*time.Second, retryMaxDelay)
			}
			select {
			case <-ctx.Done():
				return outcomeFailed, attempt
			case <-time.After(wait):
			}
			delay = min(delay*2, retryMaxDelay)
		default:
			return outcomeFailed, attempt
		}
	}
}
