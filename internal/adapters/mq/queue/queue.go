// Package queue buffers review submissions between the API and the workers.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/quizarena/internal/domain/model"
	"github.com/okian/quizarena/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Message is a queued submission together with its enqueue time.
type Message struct {
	Submission model.ReviewSubmission
	EnqueuedAt time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a submission without blocking. It returns ErrQueueFull
	// when at capacity and ErrQueueClosed after Close.
	Enqueue(ctx context.Context, s model.ReviewSubmission) error

	// Dequeue returns the channel consumers read from. It is closed by
	// Close once drained.
	Dequeue(ctx context.Context) <-chan Message

	Len(ctx context.Context) int
	Cap() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	messages chan Message
	capacity int
	now      func() time.Time

	mu     sync.RWMutex // guards closed against sends on a closed channel
	closed bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.messages = make(chan Message, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, s model.ReviewSubmission) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		return err
	}

	select {
	case q.messages <- Message{Submission: s, EnqueuedAt: q.now()}:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.messages))
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		return ErrQueueFull
	}
}

func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Message {
	return q.messages
}

// Len returns the number of pending submissions.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.messages)
	metrics.UpdateQueueSize(size)
	return size
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close stops accepting submissions. Pending ones stay readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.messages)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
