package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/misteraverin/notification-service/pkg/logger"
)

type CycleRunner interface {
	RunDueMailouts(ctx context.Context) error
}

// Scheduler triggers a dispatch cycle immediately on start and then on
// a fixed interval until stopped.
type Scheduler struct {
	runner   CycleRunner
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewScheduler(runner CycleRunner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	logger.Info("scheduler started", "interval", s.interval)
	go s.loop(ctx)
}

// Stop halts the ticker and waits for an in-flight cycle to return.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.run(ctx)
	for {
		select {
		case <-ticker.C:
			s.run(ctx)
		case <-ctx.Done():
			logger.Info("scheduler context canceled")
			return
		case <-s.stop:
			logger.Info("scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	if err := s.runner.RunDueMailouts(ctx); err != nil {
		logger.Error("dispatch cycle aborted", "error", err)
	}
}
