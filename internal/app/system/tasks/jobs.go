// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StateCleaner removes expired OAuth state tokens.
type StateCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// ResetTokenPurger clears expired password reset tokens.
type ResetTokenPurger interface {
	PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// OAuthStateCleanupJob creates a job that removes expired OAuth state tokens.
// This is a backup for when MongoDB's TTL index cleanup is delayed.
func OAuthStateCleanupJob(stateStore StateCleaner, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: 1 * time.Hour,
		Timeout:  time.Minute,
		Run: func(ctx context.Context) error {
			count, err := stateStore.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired OAuth states", zap.Int64("count", count))
			}
			return nil
		},
	}
}

// ResetTokenPurgeJob creates a job that clears expired password reset tokens
// so stale digests do not linger on user records.
func ResetTokenPurgeJob(users ResetTokenPurger, logger *zap.Logger, now func() time.Time) Job {
	if now == nil {
		now = time.Now
	}
	return Job{
		Name:     "reset-token-purge",
		Interval: 15 * time.Minute,
		Timeout:  time.Minute,
		Run: func(ctx context.Context) error {
			count, err := users.PurgeExpiredResetTokens(ctx, now())
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("purged expired reset tokens", zap.Int64("count", count))
			}
			return nil
		},
	}
}
