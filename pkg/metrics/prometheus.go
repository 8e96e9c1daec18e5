// Package metrics provides Prometheus metrics for the quiz arena service.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace string
	subsystem string
	registry  prometheus.Registerer

	// Study mode
	cardsCreated     prometheus.Counter
	cardsDue         prometheus.Gauge
	reviewsApplied   *prometheus.CounterVec
	reviewsDuplicate prometheus.Counter
	reviewErrors     prometheus.Counter
	reviewQuality    prometheus.Histogram
	reviewInterval   prometheus.Histogram

	// Tournaments
	tournamentsCreated   prometheus.Counter
	bracketsGenerated    prometheus.Counter
	byesAwarded          prometheus.Counter
	matchesRecorded      prometheus.Counter
	tournamentsCompleted prometheus.Counter

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     prometheus.Counter

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// ErrInvalidName reports a namespace or subsystem Prometheus would reject.
var ErrInvalidName = errors.New("invalid metric name component")

// latencyBucketsMs are the histogram buckets of every latency metric.
var latencyBucketsMs = []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000} //nolint:gochecknoglobals // shared buckets

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	m, err := NewManager(WithRegisterer(customRegistry))
	if err != nil {
		panic(err)
	}
	globalManager = m
}

// NewManager creates a metrics manager and registers its collectors under
// quizarena_core unless options say otherwise.
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		namespace: "quizarena",
		subsystem: "core",
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	m.initializeMetrics()
	return m, nil
}

// Configure rebuilds the global metrics on a fresh registry with the given
// naming. It must run before GetRegistry is handed to an exporter and before
// any traffic is served; earlier samples are discarded.
func Configure(namespace, subsystem string) error {
	registry := prometheus.NewRegistry()
	m, err := NewManager(WithNamespace(namespace), WithSubsystem(subsystem), WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("configure metrics: %w", err)
	}
	customRegistry = registry
	globalManager = m
	return nil
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.cardsCreated = m.counter("cards_created_total", "Flashcards created")
	m.cardsDue = m.gauge("cards_due", "Flashcards due for review at the last sweep")
	m.reviewsApplied = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reviews_applied_total",
		Help:      "Reviews applied to flashcards by outcome",
	}, []string{"outcome"})
	m.reviewsDuplicate = m.counter("reviews_duplicate_total", "Review submissions ignored as duplicates")
	m.reviewErrors = m.counter("review_errors_total", "Review submissions that failed to apply")
	m.reviewQuality = m.histogram("review_quality", "Submitted recall quality", []float64{0, 1, 2, 3, 4, 5})
	m.reviewInterval = m.histogram("review_interval_days", "Interval scheduled by a review",
		prometheus.ExponentialBuckets(1, 2, 10))

	m.tournamentsCreated = m.counter("tournaments_created_total", "Tournaments created")
	m.bracketsGenerated = m.counter("brackets_generated_total", "Brackets generated")
	m.byesAwarded = m.counter("byes_awarded_total", "Round-one byes awarded")
	m.matchesRecorded = m.counter("matches_recorded_total", "Match results recorded")
	m.tournamentsCompleted = m.counter("tournaments_completed_total", "Tournaments that crowned a champion")

	m.queueSize = m.gauge("queue_size", "Review submissions waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Queue capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Review submissions enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Review submissions dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Enqueue attempts rejected")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds",
		"Time between enqueue and dequeue", latencyBucketsMs)

	m.workerCount = m.gauge("worker_count", "Running review workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Time to apply one review submission", latencyBucketsMs)
	m.workerErrors = m.counter("worker_errors_total", "Review submissions a worker failed to apply")

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   latencyBucketsMs,
	}, []string{"endpoint", "method", "status_code"})
	m.httpRateLimited = m.counter("http_rate_limited_total", "Requests rejected by the rate limiter")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordCardCreated counts a new flashcard.
func RecordCardCreated() { globalManager.cardsCreated.Inc() }

// UpdateCardsDue sets the number of cards currently due.
func UpdateCardsDue(count int) { globalManager.cardsDue.Set(float64(count)) }

// RecordReviewApplied records an applied review and what it scheduled.
func RecordReviewApplied(quality int, passed bool, intervalDays int) {
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	globalManager.reviewsApplied.WithLabelValues(outcome).Inc()
	globalManager.reviewQuality.Observe(float64(quality))
	globalManager.reviewInterval.Observe(float64(intervalDays))
}

// RecordReviewDuplicate counts a duplicate submission.
func RecordReviewDuplicate() { globalManager.reviewsDuplicate.Inc() }

// RecordReviewError counts a submission that failed to apply.
func RecordReviewError() { globalManager.reviewErrors.Inc() }

// RecordTournamentCreated counts a new tournament.
func RecordTournamentCreated() { globalManager.tournamentsCreated.Inc() }

// RecordBracketGenerated counts a generated bracket and its byes.
func RecordBracketGenerated(byes int) {
	globalManager.bracketsGenerated.Inc()
	globalManager.byesAwarded.Add(float64(byes))
}

// RecordMatchRecorded counts a recorded match result.
func RecordMatchRecorded() { globalManager.matchesRecorded.Inc() }

// RecordTournamentCompleted counts a finished tournament.
func RecordTournamentCompleted() { globalManager.tournamentsCompleted.Inc() }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue counts an enqueue.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// RecordQueueProcessingLatency records time spent waiting in the queue.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records how long a worker spent on one item.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed item.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited() { globalManager.httpRateLimited.Inc() }

// UpdateSystemMemoryUsage sets heap memory in use.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry backing the global metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
