// internal/app/system/tasks/scheduler.go
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a named unit of periodic background work.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration // zero means Interval
	Run      func(ctx context.Context) error
}

// Scheduler runs Jobs on a cron. A job still running when its next tick
// fires is skipped for that tick.
type Scheduler struct {
	c      *cron.Cron
	logger *zap.Logger
	base   context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	base, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		c:      cron.New(cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger}))),
		logger: logger,
		base:   base,
		cancel: cancel,
	}
}

// Add registers a job. It must be called before Start.
func (s *Scheduler) Add(j Job) error {
	if j.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", j.Name)
	}
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = j.Interval
	}
	_, err := s.c.AddFunc("@every "+j.Interval.String(), func() {
		s.runOnce(j, timeout)
	})
	if err != nil {
		return fmt.Errorf("job %s: %w", j.Name, err)
	}
	s.logger.Debug("scheduled job", zap.String("job", j.Name), zap.Duration("interval", j.Interval))
	return nil
}

func (s *Scheduler) runOnce(j Job, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(s.base, timeout)
	defer cancel()

	start := time.Now()
	if err := j.Run(ctx); err != nil {
		s.logger.Error("job failed", zap.String("job", j.Name), zap.Error(err))
		return
	}
	s.logger.Debug("job finished", zap.String("job", j.Name), zap.Duration("took", time.Since(start)))
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.c.Start()
	s.logger.Info("task scheduler started", zap.Int("jobs", len(s.c.Entries())))
}

// Stop cancels running jobs and waits for them until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.c.Stop()
	select {
	case <-done.Done():
		s.logger.Info("task scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ l *zap.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
