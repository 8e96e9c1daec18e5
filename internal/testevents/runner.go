package testevents

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/quizarena/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	reportPermission    = 0600
)

// Run executes a complete load and verification pass against a running
// service: study cards and reviews first, then a tournament when Players > 0.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting quizarena load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("users", config.Users),
		logger.Int("cardsPerUser", config.CardsPerUser),
		logger.Int("reviewsPerCard", config.ReviewsPerCard),
		logger.Int("players", config.Players),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("verbose", config.Verbose))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Create cards
	cards, err := createCards(ctx, client, config, stats)
	if err != nil {
		return stats, fmt.Errorf("card creation failed: %w", err)
	}

	// Step 3: Submit reviews concurrently
	reviews := generateReviews(config, cards, stats)
	expected := submitReviews(ctx, client, config, reviews, stats)
	if stats.ReviewsFailed > 0 {
		return stats, fmt.Errorf("%w: %d review submissions failed", ErrVerification, stats.ReviewsFailed)
	}

	// Step 4: Wait for the workers, then verify every card
	if err := waitForReviews(ctx, client, config, expected); err != nil {
		return stats, fmt.Errorf("review processing: %w", err)
	}
	if err := verifyCards(ctx, client, cards, expected, stats); err != nil {
		return stats, fmt.Errorf("card verification failed: %w", err)
	}

	// Step 5: Play a tournament to completion and verify its standings
	if config.Players > 0 {
		tour, standings, err := playTournament(ctx, client, config, stats)
		if err != nil {
			return stats, fmt.Errorf("tournament run failed: %w", err)
		}
		if err := verifyStandings(tour, standings, stats); err != nil {
			return stats, fmt.Errorf("standings verification failed: %w", err)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	// Step 6: Save the report
	if config.OutputFile != "" {
		if err := saveReport(ctx, config.OutputFile, stats); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}

	displayFinalStats(ctx, stats)
	log.Info(ctx, "test completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	logger.Get().Info(ctx, "checking service health")

	resp, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if err := resp.expect(http.StatusOK); err != nil {
		return err
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveReport writes stats as indented JSON to filename.
func saveReport(ctx context.Context, filename string, stats *Stats) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), reportPermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logger.Get().Info(ctx, "report saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, reviewsPerSecond float64

	if stats.ReviewsSubmitted > 0 {
		acceptRate = float64(stats.ReviewsAccepted) / float64(stats.ReviewsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		reviewsPerSecond = float64(stats.ReviewsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("cardsCreated", stats.CardsCreated),
		logger.Int("reviewsGenerated", stats.ReviewsGenerated),
		logger.Int("reviewsSubmitted", stats.ReviewsSubmitted),
		logger.Int("reviewsAccepted", stats.ReviewsAccepted),
		logger.Int("reviewsDuplicate", stats.ReviewsDuplicate),
		logger.Int("reviewsRetried", stats.ReviewsRetried),
		logger.Int("reviewsApplied", stats.ReviewsApplied),
		logger.Int("matchesPlayed", stats.MatchesPlayed),
		logger.Int("standingsVerified", stats.StandingsVerified),
		logger.String("championID", stats.ChampionID),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("reviewsPerSecond", reviewsPerSecond))
}
