package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-tracker/internal/lifecycle"
)

type countingSweeper struct {
	runs atomic.Int32
	err  error
}

func (s *countingSweeper) Now() time.Time { return time.Unix(0, 0).UTC() }

func (s *countingSweeper) RunEscalationSweep(_ context.Context, now time.Time) (*lifecycle.SweepResult, error) {
	s.runs.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &lifecycle.SweepResult{Escalated: []string{"r1"}, RanAt: now}, nil
}

type stubLocker struct {
	held     bool
	err      error
	released atomic.Int32
}

func (l *stubLocker) TryLock(context.Context, string, time.Duration) (func(context.Context) error, error) {
	if l.err != nil {
		return nil, l.err
	}
	if l.held {
		return nil, nil
	}
	return func(context.Context) error {
		l.released.Add(1)
		return nil
	}, nil
}

func TestRunOnceHoldsAndReleasesLock(t *testing.T) {
	sweeper := &countingSweeper{}
	locker := &stubLocker{}
	w := NewEscalationWorker(EscalationWorkerConfig{Sweeper: sweeper, Locker: locker})

	result, ran, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, result.Count())
	assert.Equal(t, int32(1), locker.released.Load())
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	sweeper := &countingSweeper{}
	w := NewEscalationWorker(EscalationWorkerConfig{Sweeper: sweeper, Locker: &stubLocker{held: true}})

	result, ran, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Nil(t, result)
	assert.Zero(t, sweeper.runs.Load())
}

func TestRunOnceSweepsWhenLockBackendDown(t *testing.T) {
	sweeper := &countingSweeper{}
	w := NewEscalationWorker(EscalationWorkerConfig{Sweeper: sweeper, Locker: &stubLocker{err: errors.New("dial tcp: refused")}})

	_, ran, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, int32(1), sweeper.runs.Load())
}

func TestRunOnceReturnsSweepError(t *testing.T) {
	w := NewEscalationWorker(EscalationWorkerConfig{Sweeper: &countingSweeper{err: errors.New("list failed")}})

	_, ran, err := w.RunOnce(context.Background())
	assert.True(t, ran)
	assert.Error(t, err)
}

func TestRunTicksUntilCancelled(t *testing.T) {
	sweeper := &countingSweeper{}
	w := NewEscalationWorker(EscalationWorkerConfig{Sweeper: sweeper, Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return sweeper.runs.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestRunDisabledWithZeroInterval(t *testing.T) {
	sweeper := &countingSweeper{}
	w := NewEscalationWorker(EscalationWorkerConfig{Sweeper: sweeper})

	assert.NoError(t, w.Run(context.Background()))
	assert.Zero(t, sweeper.runs.Load())
}
