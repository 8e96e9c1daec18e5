// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/okian/quizarena/internal/adapters/mq/queue"
	"github.com/okian/quizarena/internal/adapters/mq/worker"
	"github.com/okian/quizarena/internal/adapters/repository"
	"github.com/okian/quizarena/internal/domain/bracket"
	"github.com/okian/quizarena/internal/domain/dedupe"
	"github.com/okian/quizarena/internal/domain/srs"
	"github.com/okian/quizarena/pkg/logger"
	"github.com/okian/quizarena/pkg/metrics"
)

const (
	defaultWorkerCount           = 4
	defaultQueueSize             = 10000
	defaultDedupeSize            = 100000
	defaultMaxDueLimit           = 100
	defaultDueSweepInterval      = time.Minute
	defaultSystemMetricsInterval = 10 * time.Second
)

// Service implements study mode and tournaments on top of a Store.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	deduper   dedupe.Deduper
	queue     queue.Queue
	pool      *worker.Pool
	scheduler *srs.Scheduler
	engine    *bracket.Engine
	notifier  Notifier
	jobs      gocron.Scheduler

	// Configuration
	workerCount           int
	queueSize             int
	dedupeSize            int
	maxDueLimit           int
	defaultEaseFactor     float64
	bracketSeed           *int64
	dueSweepInterval      time.Duration
	systemMetricsInterval time.Duration
	now                   func() time.Time
	newID                 func() string

	// State
	started bool
	stopped bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of review workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the review queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submission ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxDueLimit caps the number of cards returned by DueCards.
func WithMaxDueLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxDueLimit = limit
		}
	}
}

// WithDefaultEaseFactor sets the ease factor of new cards.
func WithDefaultEaseFactor(ef float64) Option {
	return func(s *Service) {
		if ef >= srs.MinEaseFactor {
			s.defaultEaseFactor = ef
		}
	}
}

// WithBracketSeed makes round-1 pairings reproducible.
func WithBracketSeed(seed int64) Option {
	return func(s *Service) {
		s.bracketSeed = &seed
	}
}

// WithDueSweepInterval sets how often the due-card gauge is refreshed.
func WithDueSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.dueSweepInterval = d
		}
	}
}

// WithNotifier sets the receiver of tournament events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the id generator used for cards, tournaments,
// participants, matches and review logs.
func WithIDGenerator(next func() string) Option {
	return func(s *Service) {
		if next != nil {
			s.newID = next
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Workers and jobs run only after Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:           defaultWorkerCount,
		queueSize:             defaultQueueSize,
		dedupeSize:            defaultDedupeSize,
		maxDueLimit:           defaultMaxDueLimit,
		defaultEaseFactor:     srs.DefaultEaseFactor,
		dueSweepInterval:      defaultDueSweepInterval,
		systemMetricsInterval: defaultSystemMetricsInterval,
		now:                   time.Now,
		newID:                 uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.notifier == nil {
		s.notifier = NewLogNotifier(s.logger.Named("events"))
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.scheduler = srs.NewScheduler(
		srs.WithDefaultEaseFactor(s.defaultEaseFactor),
		srs.WithClock(s.now),
	)

	engineOpts := []bracket.Option{
		bracket.WithMatchIDs(func(string, int) string { return s.newID() }),
	}
	if s.bracketSeed != nil {
		engineOpts = append(engineOpts, bracket.WithSeed(*s.bracketSeed))
	}
	s.engine = bracket.NewEngine(engineOpts...)

	return s
}

// Start launches the review workers and the periodic jobs. The workers
// outlive ctx; call Stop to end them.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting quizarena service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	jobs, err := s.newJobs(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("start jobs: %w", err)
	}

	s.pool = worker.NewPool(s.workerCount, s.queue, s)
	s.pool.Start(runCtx)
	jobs.Start()

	s.jobs = jobs
	s.cancel = cancel
	s.started = true
	s.logger.Info(ctx, "quizarena service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("dueSweepInterval", s.dueSweepInterval),
	)
	return nil
}

// Stop closes the review queue, waits for queued reviews to be applied and
// stops the jobs. Reviews still pending when ctx expires are dropped.
// A stopped service cannot be restarted.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true
	if !s.started {
		return s.queue.Close()
	}

	s.logger.Info(ctx, "stopping quizarena service...")

	var firstErr error
	if err := s.pool.Shutdown(ctx); err != nil {
		firstErr = err
	}
	if err := s.jobs.Shutdown(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("stop jobs: %w", err)
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "quizarena service stopped")
	return firstErr
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueCapacity": s.queue.Cap(),
		"queueLength":   s.queue.Len(ctx),
		"dedupeSize":    s.deduper.Size(),
	}

	if due, err := s.store.CountDue(ctx, s.now().UTC()); err == nil {
		stats["cardsDue"] = due
		metrics.UpdateCardsDue(due)
	} else {
		s.logger.Warn(ctx, "failed to count due cards", logger.Error(err))
	}
	if ts, err := s.store.ListTournaments(ctx); err == nil {
		stats["tournaments"] = len(ts)
	}

	return stats
}
