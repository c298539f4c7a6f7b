// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of background work. Schedule is a cron spec evaluated in UTC;
// when empty, the job runs every Interval.
type Job struct {
	Name     string
	Schedule string
	Interval time.Duration
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Spec returns the cron spec the scheduler registers for j.
func (j Job) Spec() string {
	if j.Schedule != "" {
		return j.Schedule
	}
	return "@every " + j.Interval.String()
}

// StreakSweeper resets streaks that lapsed before the previous week.
type StreakSweeper interface {
	SweepStaleStreaks(ctx context.Context, now time.Time, trigger string) (int64, error)
}

// ExpiredDeleter removes expired records from a TTL-indexed collection.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// DefaultStreakSweepSchedule runs five minutes into each ISO week (Monday 00:05 UTC).
const DefaultStreakSweepSchedule = "5 0 * * 1"

// WeeklyStreakSweepJob creates a job that zeroes current streaks for users who
// missed the previous week, so bulk reads see the same values status would.
func WeeklyStreakSweepJob(sweeper StreakSweeper, schedule string, logger *zap.Logger) Job {
	if schedule == "" {
		schedule = DefaultStreakSweepSchedule
	}
	return Job{
		Name:     "weekly-streak-sweep",
		Schedule: schedule,
		Timeout:  5 * time.Minute,
		Run: func(ctx context.Context) error {
			n, err := sweeper.SweepStaleStreaks(ctx, time.Now(), "cron")
			if err != nil {
				return err
			}
			logger.Info("weekly streak sweep complete", zap.Int64("reset", n))
			return nil
		},
	}
}

// SessionCleanupJob creates a job that removes expired sessions.
// This is a backup for when MongoDB's TTL index cleanup is delayed.
func SessionCleanupJob(store ExpiredDeleter, logger *zap.Logger) Job {
	return cleanupJob("session-cleanup", "expired sessions", store, logger)
}

// ResetTokenCleanupJob creates a job that removes expired password reset tokens.
// This is a backup for when MongoDB's TTL index cleanup is delayed.
func ResetTokenCleanupJob(store ExpiredDeleter, logger *zap.Logger) Job {
	return cleanupJob("reset-token-cleanup", "expired reset tokens", store, logger)
}

func cleanupJob(name, what string, store ExpiredDeleter, logger *zap.Logger) Job {
	return Job{
		Name:     name,
		Interval: time.Hour,
		Timeout:  time.Minute,
		Run: func(ctx context.Context) error {
			count, err := store.DeleteExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up "+what, zap.Int64("count", count))
			}
			return nil
		},
	}
}
