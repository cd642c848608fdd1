package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/request-tracker/internal/lifecycle"
)

// EscalationLockKey is the redis key guarding timer-driven sweeps across replicas.
const EscalationLockKey = "request-tracker:escalation-sweep"

// Sweeper runs escalation sweeps.
type Sweeper interface {
	Now() time.Time
	RunEscalationSweep(ctx context.Context, now time.Time) (*lifecycle.SweepResult, error)
}

// Locker grants a short-lived exclusive lock. A nil release func means the
// lock is held elsewhere.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// EscalationWorker triggers escalation sweeps on a fixed interval.
type EscalationWorker struct {
	sweeper  Sweeper
	locker   Locker
	interval time.Duration
	lockTTL  time.Duration
	logger   *zap.Logger
}

// EscalationWorkerConfig bundles collaborators for the worker.
type EscalationWorkerConfig struct {
	Sweeper  Sweeper
	Locker   Locker
	Interval time.Duration
	LockTTL  time.Duration
	Logger   *zap.Logger
}

// NewEscalationWorker constructs the worker.
func NewEscalationWorker(cfg EscalationWorkerConfig) *EscalationWorker {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = time.Minute
	}
	return &EscalationWorker{
		sweeper:  cfg.Sweeper,
		locker:   cfg.Locker,
		interval: cfg.Interval,
		lockTTL:  lockTTL,
		logger:   logger.Named("escalation_worker"),
	}
}

// Run sweeps once per interval until ctx is cancelled. A zero interval returns immediately.
func (w *EscalationWorker) Run(ctx context.Context) error {
	if w.interval <= 0 {
		w.logger.Info("escalation timer disabled")
		return nil
	}
	w.logger.Info("escalation timer started", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("escalation timer stopped")
			return nil
		case <-ticker.C:
			if _, _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error("escalation sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs one sweep while holding the cross-replica lock. It reports
// false without sweeping when another replica holds the lock. When the lock
// backend is unreachable the sweep still runs; per-request writes are
// version-checked so overlapping sweeps cannot double-escalate.
func (w *EscalationWorker) RunOnce(ctx context.Context) (*lifecycle.SweepResult, bool, error) {
	if w.locker != nil {
		release, err := w.locker.TryLock(ctx, EscalationLockKey, w.lockTTL)
		switch {
		case err != nil:
			w.logger.Warn("sweep lock unavailable, sweeping without it", zap.Error(err))
		case release == nil:
			w.logger.Debug("sweep lock held elsewhere, skipping")
			return nil, false, nil
		default:
			defer func() {
				releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
				defer cancel()
				if err := release(releaseCtx); err != nil {
					w.logger.Warn("release sweep lock", zap.Error(err))
				}
			}()
		}
	}

	result, err := w.sweeper.RunEscalationSweep(ctx, w.sweeper.Now())
	if err != nil {
		return nil, true, err
	}
	if len(result.Failures) > 0 {
		w.logger.Warn("escalation sweep incomplete",
			zap.Int("escalated", result.Count()),
			zap.Error(result.Err()))
	}
	return result, true, nil
}
