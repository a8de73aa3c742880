package services

import (
	"context"
	"fmt"
	"time"

	"carrental/internal/domain"
	"carrental/internal/utils"
)

// SweepResult summarizes one auto-cancel run.
type SweepResult struct {
	Deadline   time.Time `json:"deadline"`
	Candidates int       `json:"candidates"`
	Cancelled  int64     `json:"cancelled"`
}

// CancellationService releases bank transfer bookings that are still
// unpaid close to their rental start.
type CancellationService struct {
	Store AutoCancelStore
	Cache BookingCache
	Now   func() time.Time
}

func (s CancellationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s CancellationService) CancelUnpaidBankTransfers(ctx context.Context) (SweepResult, error) {
	reqID := utils.RequestIDFrom(ctx)
	now := s.now()
	res := SweepResult{Deadline: domain.AutoCancelDeadline(now)}

	ids, err := s.Store.FindDueForAutoCancel(ctx, res.Deadline)
	if err != nil {
		return res, domain.InternalError{Msg: "failed to list auto-cancel candidates", Err: err}
	}
	res.Candidates = len(ids)
	if len(ids) == 0 {
		utils.LogEvent(reqID, "sweeper", "auto_cancel", fmt.Sprintf("deadline=%s no unpaid bookings", utils.FormatDate(res.Deadline)))
		return res, nil
	}

	n, err := s.Store.CancelDue(ctx, ids, res.Deadline, now)
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, ids...)
	}
	if err != nil {
		return res, domain.InternalError{Msg: "failed to cancel unpaid bookings", Err: err}
	}
	res.Cancelled = n

	utils.LogEvent(reqID, "sweeper", "auto_cancel", fmt.Sprintf("deadline=%s candidates=%d cancelled=%d",
		utils.FormatDate(res.Deadline), res.Candidates, res.Cancelled))
	return res, nil
}
