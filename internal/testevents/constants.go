package testevents

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	DefaultSettleTimeout = 30 * time.Second
	DefaultPollInterval  = 100 * time.Millisecond
	PercentageMultiplier = 100
)

// Backpressure retry constants. The service answers 429 when its review
// queue or the client's rate limit is exhausted.
const (
	maxRetries     = 8
	retryBaseDelay = 50 * time.Millisecond
	retryMaxDelay  = 2 * time.Second
)

// Submission outcomes.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)
