package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lenskeep/studio-api/pkg/logger"
)

type countingRunner struct {
	ticks  atomic.Int64
	checks atomic.Int64
	err    error
}

func (r *countingRunner) RunTick(context.Context) error {
	r.ticks.Add(1)
	return r.err
}

func (r *countingRunner) RunCheck(context.Context) error {
	r.checks.Add(1)
	return r.err
}

func newTestScheduler(runner *countingRunner, cfg Config) *Scheduler {
	return NewScheduler(runner, runner, cfg, logger.FromZerolog(zerolog.Nop()))
}

func TestSchedulerRejectsZeroIntervals(t *testing.T) {
	runner := &countingRunner{}
	assert.Panics(t, func() {
		newTestScheduler(runner, Config{DueDateInterval: time.Hour})
	})
	assert.Panics(t, func() {
		newTestScheduler(runner, Config{LifecycleInterval: time.Minute})
	})
}

func TestSchedulerTicksUntilCancelled(t *testing.T) {
	runner := &countingRunner{}
	s := newTestScheduler(runner, Config{
		LifecycleInterval: 10 * time.Millisecond,
		DueDateInterval:   time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return runner.ticks.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
	assert.Zero(t, runner.checks.Load())
}

func TestSchedulerSurvivesTickErrors(t *testing.T) {
	runner := &countingRunner{err: errors.New("catalog missing")}
	s := newTestScheduler(runner, Config{
		LifecycleInterval: 10 * time.Millisecond,
		DueDateInterval:   time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	// A failing tick is logged and skipped; the loop keeps going.
	require.Eventually(t, func() bool {
		return runner.ticks.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestManualRunsAreSynchronous(t *testing.T) {
	runner := &countingRunner{}
	s := newTestScheduler(runner, Config{
		LifecycleInterval: time.Hour,
		DueDateInterval:   time.Hour,
	})

	require.NoError(t, s.RunLifecycleNow(context.Background()))
	require.NoError(t, s.RunDueDateNow(context.Background()))
	assert.Equal(t, int64(1), runner.ticks.Load())
	assert.Equal(t, int64(1), runner.checks.Load())

	runner.err = errors.New("boom")
	assert.Error(t, s.RunLifecycleNow(context.Background()))
	assert.Error(t, s.RunDueDateNow(context.Background()))
}
