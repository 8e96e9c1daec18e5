package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/quizarena/internal/testevents"
)

// Default configuration constants.
const (
	defaultUsers          = 20
	defaultCardsPerUser   = 10
	defaultReviewsPerCard = 5
	defaultResubmitEvery  = 7
	defaultPlayers        = 13
	defaultWorkers        = 2 // multiplier for runtime.NumCPU()
	defaultTimeout        = 30 * time.Second
	defaultTestTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		users    = flag.Int("users", defaultUsers, "Number of study users")
		cards    = flag.Int("cards", defaultCardsPerUser, "Cards per user")
		reviews  = flag.Int("reviews", defaultReviewsPerCard, "Reviews per card")
		resubmit = flag.Int("resubmit", defaultResubmitEvery, "Send every Nth review twice; 0 disables")
		players  = flag.Int("players", defaultPlayers, "Tournament players; 0 skips the tournament")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle   = flag.Duration("settle", testevents.DefaultSettleTimeout, "How long to wait for queued reviews")
		output   = flag.String("output", "", "Write a JSON report to this file")
		logFile  = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testevents.ShowHelp()
		return
	}

	closeLog, err := testevents.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)

	config := &testevents.Config{
		BaseURL:        *baseURL,
		Users:          *users,
		CardsPerUser:   *cards,
		ReviewsPerCard: *reviews,
		ResubmitEvery:  *resubmit,
		Players:        *players,
		Workers:        *workers,
		Timeout:        *timeout,
		SettleTimeout:  *settle,
		OutputFile:     *output,
		Verbose:        *verbose,
	}

	_, runErr := testevents.Run(ctx, config)
	cancel()
	_ = closeLog()
	if runErr != nil {
		os.Stderr.WriteString("Test failed: " + runErr.Error() + "\n")
		os.Exit(1)
	}
}
