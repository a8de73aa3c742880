package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"carrental/internal/domain"
	"carrental/internal/domain/models"
	"carrental/internal/utils"

	"github.com/shopspring/decimal"
)

// ApplyResult tells the caller what ApplyPayment did.
type ApplyResult int

const (
	// PaymentAccumulated added funds; the booking still awaits payment.
	PaymentAccumulated ApplyResult = iota + 1
	// PaymentCompleted added funds and confirmed the booking.
	PaymentCompleted
	// PaymentSkippedMissing means the booking does not exist.
	PaymentSkippedMissing
	// PaymentSkippedResolved means the booking was already confirmed or cancelled.
	PaymentSkippedResolved
)

func (r ApplyResult) String() string {
	switch r {
	case PaymentAccumulated:
		return "accumulated"
	case PaymentCompleted:
		return "completed"
	case PaymentSkippedMissing:
		return "skipped_missing"
	case PaymentSkippedResolved:
		return "skipped_resolved"
	}
	return "unknown"
}

// BookingService owns the booking state machine.
type BookingService struct {
	Store      BookingStore
	Strategies PaymentStrategies
	Cache      BookingCache
	Now        func() time.Time
}

func (s BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Confirm validates req, runs the payment strategy and stores the booking.
func (s BookingService) Confirm(ctx context.Context, req models.BookingRequest) (models.BookingConfirmation, error) {
	reqID := utils.RequestIDFrom(ctx)
	b, err := s.newBooking(req)
	if err != nil {
		return models.BookingConfirmation{}, err
	}
	utils.LogEvent(reqID, "booking", "confirm", fmt.Sprintf("customer=%q mode=%s", b.CustomerName, b.PaymentMode))

	id, err := s.Store.NextBookingID(ctx)
	if err != nil {
		return models.BookingConfirmation{}, domain.InternalError{Msg: "failed to allocate booking id", Err: err}
	}
	b.BookingID = id

	status, err := s.Strategies.Process(ctx, b, b.PaymentReference)
	if err != nil {
		return models.BookingConfirmation{}, err
	}
	b.Status = status

	now := s.now()
	b.CreatedAt = now
	b.UpdatedAt = now
	if err := s.Store.Create(ctx, &b); err != nil {
		if domain.IsConflict(err) {
			return models.BookingConfirmation{}, err
		}
		return models.BookingConfirmation{}, domain.InternalError{Msg: "failed to save booking", Err: err}
	}
	s.cacheSet(ctx, b)

	utils.LogEvent(reqID, "booking", "confirm", fmt.Sprintf("booking_id=%s status=%s", b.BookingID, b.Status))
	return models.BookingConfirmation{BookingID: b.BookingID, BookingStatus: b.Status}, nil
}

// ApplyPayment adds amount to a pending booking and confirms it once the
// amount due is covered. Missing or already resolved bookings are skipped
// without mutation and reported through the result.
func (s BookingService) ApplyPayment(ctx context.Context, bookingID string, amount decimal.Decimal) (ApplyResult, error) {
	reqID := utils.RequestIDFrom(ctx)
	if !amount.IsPositive() {
		return 0, domain.ValidationError{Field: "paymentAmount", Msg: "amount must be positive"}
	}

	b, err := s.Store.GetByBookingID(ctx, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		utils.LogEvent(reqID, "booking", "apply_payment", fmt.Sprintf("booking_id=%s not found, skipped", bookingID))
		return PaymentSkippedMissing, nil
	}
	if err != nil {
		return 0, domain.InternalError{Msg: "failed to load booking", Err: err}
	}
	if !b.CanAcceptPayment() {
		utils.LogEvent(reqID, "booking", "apply_payment", fmt.Sprintf("booking_id=%s status=%s, skipped", bookingID, b.Status))
		return PaymentSkippedResolved, nil
	}

	b.AmountReceived = b.AmountReceived.Add(amount)
	result := PaymentAccumulated
	if b.FullyPaid() {
		b.Status = domain.StatusConfirmed
		result = PaymentCompleted
	}
	b.UpdatedAt = s.now()

	if err := s.save(ctx, b); err != nil {
		return 0, err
	}

	utils.LogEvent(reqID, "booking", "apply_payment", fmt.Sprintf("booking_id=%s received=%s due=%s status=%s",
		bookingID, b.AmountReceived.StringFixed(2), b.PaymentAmount.StringFixed(2), b.Status))
	return result, nil
}

// Cancel moves a pending booking to CANCELLED.
func (s BookingService) Cancel(ctx context.Context, bookingID string) (models.Booking, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if !b.CanBeCancelled() {
		return models.Booking{}, domain.ConflictError{
			Resource: "booking",
			Code:     domain.CodeInvalidState,
			Msg:      fmt.Sprintf("booking %s cannot be cancelled in status %s", bookingID, b.Status),
		}
	}

	b.Status = domain.StatusCancelled
	b.UpdatedAt = s.now()
	if err := s.save(ctx, b); err != nil {
		return models.Booking{}, err
	}
	b.Version++

	utils.LogEvent(utils.RequestIDFrom(ctx), "booking", "cancel", fmt.Sprintf("booking_id=%s cancelled", bookingID))
	return b, nil
}

func (s BookingService) GetByID(ctx context.Context, bookingID string) (models.Booking, error) {
	if s.Cache != nil {
		if b, ok := s.Cache.Get(ctx, bookingID); ok {
			return b, nil
		}
	}
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	s.cacheSet(ctx, b)
	return b, nil
}

func (s BookingService) load(ctx context.Context, bookingID string) (models.Booking, error) {
	b, err := s.Store.GetByBookingID(ctx, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, domain.NotFoundError{Resource: "booking " + bookingID, Err: err}
	}
	if err != nil {
		return models.Booking{}, domain.InternalError{Msg: "failed to load booking", Err: err}
	}
	return b, nil
}

// save writes b guarded by its version and drops any cached copy.
func (s BookingService) save(ctx context.Context, b models.Booking) error {
	err := s.Store.Update(ctx, b)
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, b.BookingID)
	}
	if errors.Is(err, domain.ErrStaleVersion) {
		return domain.ConflictError{
			Resource: "booking",
			Code:     domain.CodeConcurrentModification,
			Msg:      fmt.Sprintf("booking %s was modified concurrently", b.BookingID),
			Err:      err,
		}
	}
	if err != nil {
		return domain.InternalError{Msg: "failed to update booking", Err: err}
	}
	return nil
}

// cacheSet fills the read-through cache with terminal bookings only. An open
// booking can be written between the load and the fill, and caching it
// would serve the pre-write state until the TTL runs out.
func (s BookingService) cacheSet(ctx context.Context, b models.Booking) {
	if s.Cache != nil && b.Status.Terminal() {
		s.Cache.Set(ctx, b)
	}
}

func (s BookingService) newBooking(req models.BookingRequest) (models.Booking, error) {
	name := utils.NormalizeSpace(req.CustomerName)
	if n := len([]rune(name)); n < 2 || n > 100 {
		return models.Booking{}, domain.ValidationError{Field: "customerName", Msg: "customer name must be between 2 and 100 characters"}
	}
	vehicleID := strings.TrimSpace(req.VehicleID)
	if vehicleID == "" {
		return models.Booking{}, domain.ValidationError{Field: "vehicleId", Msg: "vehicle id is required"}
	}
	category := domain.ParseVehicleCategory(req.VehicleCategory)
	if !category.Valid() {
		return models.Booking{}, domain.ValidationError{Field: "vehicleCategory", Msg: fmt.Sprintf("unknown vehicle category %q", req.VehicleCategory)}
	}
	mode := domain.ParsePaymentMode(req.PaymentMode)
	if !mode.Valid() {
		return models.Booking{}, domain.ValidationError{Field: "paymentMode", Msg: fmt.Sprintf("unknown payment mode %q", req.PaymentMode)}
	}
	ref := strings.TrimSpace(req.PaymentReference)
	if ref == "" {
		return models.Booking{}, domain.ValidationError{Field: "paymentReference", Msg: "payment reference is required"}
	}
	if !req.PaymentAmount.IsPositive() {
		return models.Booking{}, domain.ValidationError{Field: "paymentAmount", Msg: "payment amount must be greater than 0"}
	}

	start, err := utils.ParseDate(req.RentalStartDate)
	if err != nil {
		return models.Booking{}, domain.ValidationError{Field: "rentalStartDate", Msg: "expected YYYY-MM-DD", Err: err}
	}
	end, err := utils.ParseDate(req.RentalEndDate)
	if err != nil {
		return models.Booking{}, domain.ValidationError{Field: "rentalEndDate", Msg: "expected YYYY-MM-DD", Err: err}
	}
	if start.Before(utils.DateOnly(s.now().In(time.Local))) {
		return models.Booking{}, domain.ValidationError{Field: "rentalStartDate", Msg: "rental start date must be today or in the future"}
	}
	if err := domain.ValidateRentalPeriod(start, end); err != nil {
		return models.Booking{}, err
	}

	return models.Booking{
		CustomerName:     name,
		VehicleID:        vehicleID,
		VehicleCategory:  category,
		RentalStartDate:  start,
		RentalEndDate:    end,
		PaymentMode:      mode,
		PaymentReference: ref,
		PaymentAmount:    req.PaymentAmount.Round(2),
		AmountReceived:   decimal.Zero,
	}, nil
}
