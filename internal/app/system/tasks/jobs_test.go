package tasks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/positivevibes/internal/app/system/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSweeper struct {
	trigger string
	n       int64
	err     error
}

func (f *fakeSweeper) SweepStaleStreaks(_ context.Context, _ time.Time, trigger string) (int64, error) {
	f.trigger = trigger
	return f.n, f.err
}

type fakeDeleter struct {
	calls int
	err   error
}

func (f *fakeDeleter) DeleteExpired(context.Context) (int64, error) {
	f.calls++
	return 2, f.err
}

func TestWeeklyStreakSweepJob(t *testing.T) {
	sw := &fakeSweeper{n: 4}
	job := tasks.WeeklyStreakSweepJob(sw, "", zap.NewNop())

	assert.Equal(t, "weekly-streak-sweep", job.Name)
	assert.Equal(t, tasks.DefaultStreakSweepSchedule, job.Spec())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "cron", sw.trigger)

	sw.err = errors.New("db down")
	assert.Error(t, job.Run(context.Background()))
}

func TestCleanupJobs(t *testing.T) {
	d := &fakeDeleter{}
	for _, job := range []tasks.Job{
		tasks.SessionCleanupJob(d, zap.NewNop()),
		tasks.ResetTokenCleanupJob(d, zap.NewNop()),
	} {
		assert.Equal(t, "@every 1h0m0s", job.Spec(), job.Name)
		require.NoError(t, job.Run(context.Background()))
	}
	assert.Equal(t, 2, d.calls)

	d.err = errors.New("boom")
	assert.Error(t, tasks.SessionCleanupJob(d, zap.NewNop()).Run(context.Background()))
}
