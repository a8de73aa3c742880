package services

import (
	"context"
	"time"

	"carrental/internal/domain/models"
)

// BookingStore persists bookings. GetByBookingID returns sql.ErrNoRows for
// unknown ids and Update returns domain.ErrStaleVersion on a version clash.
type BookingStore interface {
	NextBookingID(ctx context.Context) (string, error)
	Create(ctx context.Context, b *models.Booking) error
	GetByBookingID(ctx context.Context, bookingID string) (models.Booking, error)
	Update(ctx context.Context, b models.Booking) error
}

// AutoCancelStore runs the batch side of the auto-cancel sweep.
type AutoCancelStore interface {
	FindDueForAutoCancel(ctx context.Context, deadline time.Time) ([]string, error)
	CancelDue(ctx context.Context, ids []string, deadline, now time.Time) (int64, error)
}

// PaymentLedger records which payment events were already handled.
type PaymentLedger interface {
	Exists(ctx context.Context, paymentID string) (bool, error)
	Record(ctx context.Context, ev models.ProcessedPaymentEvent) error
}

type DeadLetterPublisher interface {
	Publish(ctx context.Context, msg models.DeadLetterMessage) error
}

type CardApprover interface {
	Approve(ctx context.Context, paymentReference string) (bool, error)
}

// BookingCache is an optional read-through cache keyed by booking id.
type BookingCache interface {
	Get(ctx context.Context, bookingID string) (models.Booking, bool)
	Set(ctx context.Context, b models.Booking)
	Invalidate(ctx context.Context, bookingIDs ...string)
}
