package tasks_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/meraki/internal/app/system/tasks"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeCleaner struct {
	calls atomic.Int32
	n     int64
	err   error
}

func (f *fakeCleaner) CleanupExpired(context.Context) (int64, error) {
	f.calls.Add(1)
	return f.n, f.err
}

type fakePurger struct {
	at time.Time
}

func (f *fakePurger) PurgeExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	f.at = now
	return 2, nil
}

func TestOAuthStateCleanupJob(t *testing.T) {
	c := &fakeCleaner{n: 3}
	job := tasks.OAuthStateCleanupJob(c, zap.NewNop())

	if job.Name != "oauth-state-cleanup" || job.Interval != time.Hour {
		t.Errorf("unexpected job %q every %v", job.Name, job.Interval)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.calls.Load() != 1 {
		t.Errorf("CleanupExpired called %d times", c.calls.Load())
	}

	c.err = errors.New("boom")
	if err := job.Run(context.Background()); err == nil {
		t.Error("expected error to propagate")
	}
}

func TestResetTokenPurgeJob_UsesClock(t *testing.T) {
	p := &fakePurger{}
	fixed := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	core, logs := observer.New(zap.InfoLevel)

	job := tasks.ResetTokenPurgeJob(p, zap.New(core), func() time.Time { return fixed })
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !p.at.Equal(fixed) {
		t.Errorf("purge time = %v, want %v", p.at, fixed)
	}
	if logs.FilterMessage("purged expired reset tokens").Len() != 1 {
		t.Error("expected purge to be logged")
	}
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := tasks.NewScheduler(zap.NewNop())
	c := &fakeCleaner{}

	err := s.Add(tasks.Job{Name: "tick", Interval: time.Second, Run: func(ctx context.Context) error {
		_, err := c.CleanupExpired(ctx)
		return err
	}})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	s.Start()

	deadline := time.Now().Add(3 * time.Second)
	for c.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.calls.Load() == 0 {
		t.Error("job never ran")
	}
}

func TestScheduler_RejectsZeroInterval(t *testing.T) {
	s := tasks.NewScheduler(zap.NewNop())
	if err := s.Add(tasks.Job{Name: "bad", Run: func(context.Context) error { return nil }}); err == nil {
		t.Error("expected error for zero interval")
	}
}
