package scheduler

import (
	"context"
	"fmt"
	"time"

	"carrental/internal/domain"
	"carrental/internal/lock"
	"carrental/internal/services"
	"carrental/internal/utils"

	"github.com/google/uuid"
)

const (
	MinLockHold = 5 * time.Minute
	MaxLockHold = 30 * time.Minute
)

// Locker hands out cluster-wide named leases.
type Locker interface {
	TryAcquire(ctx context.Context, name string, minHold, maxHold time.Duration) (lock.Lease, bool, error)
}

// Canceller is the job a sweep runs while holding the lease.
type Canceller interface {
	CancelUnpaidBankTransfers(ctx context.Context) (services.SweepResult, error)
}

// Sweeper runs the auto-cancel job on a fixed interval. Only the instance
// holding the named lease runs a given tick.
type Sweeper struct {
	Locker    Locker
	Canceller Canceller
	Interval  time.Duration
}

// RunOnce reports ran=false when another instance holds the lease.
func (s Sweeper) RunOnce(ctx context.Context) (services.SweepResult, bool, error) {
	ctx = utils.WithRequestID(ctx, "sweep-"+uuid.NewString())
	reqID := utils.RequestIDFrom(ctx)

	lease, ok, err := s.Locker.TryAcquire(ctx, domain.AutoCancelLockName, MinLockHold, MaxLockHold)
	if err != nil {
		return services.SweepResult{}, false, fmt.Errorf("acquire %s: %w", domain.AutoCancelLockName, err)
	}
	if !ok {
		utils.LogEvent(reqID, "sweeper", "skip", "lease held by another instance")
		return services.SweepResult{}, false, nil
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			utils.LogError(reqID, "sweeper", "release", domain.AutoCancelLockName, err)
		}
	}()

	res, err := s.Canceller.CancelUnpaidBankTransfers(ctx)
	return res, true, err
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	utils.LogEvent("", "sweeper", "start", fmt.Sprintf("interval=%s", interval))
	for {
		select {
		case <-ctx.Done():
			utils.LogEvent("", "sweeper", "stop", ctx.Err().Error())
			return
		case <-ticker.C:
			if _, _, err := s.RunOnce(ctx); err != nil {
				utils.LogError("", "sweeper", "run", "auto-cancel sweep failed", err)
			}
		}
	}
}
