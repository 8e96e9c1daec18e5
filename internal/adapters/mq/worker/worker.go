// Package worker applies queued review submissions to flashcards.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/quizarena/internal/adapters/mq/queue"
	"github.com/okian/quizarena/internal/domain/model"
	"github.com/okian/quizarena/pkg/logger"
	"github.com/okian/quizarena/pkg/metrics"
)

const (
	defaultWorkerCount  = 4
	defaultApplyTimeout = 5 * time.Second
)

// Reviewer applies one review submission.
type Reviewer interface {
	ApplyReview(ctx context.Context, s model.ReviewSubmission) error
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Message
}

// Worker consumes submissions until stopped.
type Worker interface {
	// Run blocks until ctx is canceled, Shutdown is called, or the queue
	// is closed and drained.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current submission.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue    Queue
	reviewer Reviewer
	name     string
	timeout  time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, reviewer Reviewer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		reviewer: reviewer,
		name:     "worker",
		timeout:  defaultApplyTimeout,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	messages := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := w.process(ctx, msg); err != nil {
				w.logger.Error(ctx, "failed to apply review",
					logger.String("submission_id", msg.Submission.SubmissionID),
					logger.String("card_id", msg.Submission.CardID),
					logger.Error(err),
				)
			}
		}
	}
}

func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stop) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, msg queue.Message) error {
	start := time.Now()
	metrics.RecordQueueDequeue()
	metrics.RecordQueueProcessingLatency(float64(start.Sub(msg.EnqueuedAt).Milliseconds()))
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	applyCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.reviewer.ApplyReview(applyCtx, msg.Submission); err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("apply submission %s: %w", msg.Submission.SubmissionID, err)
	}
	return nil
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	wg      sync.WaitGroup
	logger  logger.Logger
}

// NewPool creates a pool. workerCount < 1 selects the default.
func NewPool(workerCount int, q Queue, reviewer Reviewer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, reviewer, workerOpts...)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
	metrics.UpdateWorkerCount(len(p.workers))
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and lets workers drain what is left. Workers
// still busy when ctx expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	defer metrics.UpdateWorkerCount(0)
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		for _, w := range p.workers {
			w.stopOnce.Do(func() { close(w.stop) })
		}
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("pool shutdown: %w", ctx.Err())
	}
}
