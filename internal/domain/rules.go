package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MaxRentalDays = 21

	// AutoCancelLeadDays is how many days before rental start an unpaid
	// bank transfer booking is released.
	AutoCancelLeadDays = 2

	// AutoCancelLockName identifies the sweeper lease across instances.
	AutoCancelLockName = "cancelUnpaidBankTransferBookings"

	// UnknownBookingID tags ledger rows whose booking could not be resolved.
	UnknownBookingID = "UNKNOWN"

	bookingIDModulo = 10_000_000
)

// AutoCancelPredicateSQL is the SQL form of DueForAutoCancel. The single
// placeholder binds the deadline date.
var AutoCancelPredicateSQL = fmt.Sprintf(
	"payment_mode = '%s' AND booking_status = '%s' AND rental_start_date <= ? AND (amount_received IS NULL OR amount_received < payment_amount)",
	PaymentBankTransfer, StatusPendingPayment,
)

// FormatBookingID renders a sequence value as BKG plus seven digits.
func FormatBookingID(seq int64) string {
	if seq < 0 {
		seq = -seq
	}
	return fmt.Sprintf("BKG%07d", seq%bookingIDModulo)
}

// AutoCancelDeadline is the latest rental start date eligible for the sweep.
func AutoCancelDeadline(today time.Time) time.Time {
	y, m, d := today.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, today.Location()).AddDate(0, 0, AutoCancelLeadDays)
}

// DueForAutoCancel is the Go form of AutoCancelPredicateSQL.
func DueForAutoCancel(mode PaymentMode, status BookingStatus, rentalStart time.Time, received, due decimal.Decimal, deadline time.Time) bool {
	if mode != PaymentBankTransfer || !status.Open() {
		return false
	}
	y, m, d := rentalStart.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, deadline.Location())
	if start.After(deadline) {
		return false
	}
	return received.LessThan(due)
}

// ValidateRentalPeriod checks end > start and a span of at most MaxRentalDays.
func ValidateRentalPeriod(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return ValidationError{Field: "rentalStartDate", Msg: "rental dates are required"}
	}
	if !end.After(start) {
		return ValidationError{Field: "rentalEndDate", Msg: "rental end date must be after start date"}
	}
	if days := CalendarDays(start, end); days > MaxRentalDays {
		return ValidationError{Field: "rentalEndDate", Msg: fmt.Sprintf("rental period cannot exceed %d days", MaxRentalDays)}
	}
	return nil
}

// CalendarDays counts calendar days from start to end, negative when end
// is earlier. Wall-clock times are ignored.
func CalendarDays(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours() / 24)
}
