package service

import (
	"context"
	"runtime"

	"github.com/go-co-op/gocron/v2"

	"github.com/okian/quizarena/pkg/logger"
	"github.com/okian/quizarena/pkg/metrics"
)

const (
	jobDueCardSweep  = "due-card-sweep"
	jobSystemMetrics = "system-metrics"
)

func (s *Service) newJobs(ctx context.Context) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(s.dueSweepInterval),
		gocron.NewTask(func() { s.sweepDueCards(ctx) }),
		gocron.WithName(jobDueCardSweep),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(s.systemMetricsInterval),
		gocron.NewTask(collectSystemMetrics),
		gocron.WithName(jobSystemMetrics),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	return sched, nil
}

// sweepDueCards refreshes the due-card gauge.
func (s *Service) sweepDueCards(ctx context.Context) {
	due, err := s.store.CountDue(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error(ctx, "due card sweep failed", logger.Error(err))
		return
	}
	metrics.UpdateCardsDue(due)
	s.logger.Debug(ctx, "due card sweep", logger.Int("due", due))
}

func collectSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
