package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestValidateRentalPeriod(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.Local)
	cases := []struct {
		name    string
		end     time.Time
		wantErr bool
	}{
		{"one day", start.AddDate(0, 0, 1), false},
		{"exactly max", start.AddDate(0, 0, MaxRentalDays), false},
		{"over max", start.AddDate(0, 0, MaxRentalDays+1), true},
		{"same day", start, true},
		{"end before start", start.AddDate(0, 0, -1), true},
	}
	for _, tc := range cases {
		err := ValidateRentalPeriod(start, tc.end)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: unexpected result %v", tc.name, err)
		}
		if err != nil && !IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %T", tc.name, err)
		}
	}
}

func TestCalendarDaysIgnoresWallClock(t *testing.T) {
	start := time.Date(2026, 5, 1, 23, 30, 0, 0, time.UTC)
	cases := []struct {
		end  time.Time
		want int
	}{
		{time.Date(2026, 5, 2, 0, 15, 0, 0, time.UTC), 1},
		{time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2026, 5, 31, 8, 0, 0, 0, time.UTC), 30},
		{time.Date(2026, 4, 29, 12, 0, 0, 0, time.UTC), -2},
	}
	for _, tc := range cases {
		if got := CalendarDays(start, tc.end); got != tc.want {
			t.Fatalf("CalendarDays(%v) = %d, want %d", tc.end, got, tc.want)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	cases := []struct {
		status   BookingStatus
		open     bool
		terminal bool
	}{
		{StatusPendingPayment, true, false},
		{StatusConfirmed, false, true},
		{StatusCancelled, false, true},
		{BookingStatus("UNKNOWN"), false, false},
	}
	for _, tc := range cases {
		if tc.status.Open() != tc.open || tc.status.Terminal() != tc.terminal {
			t.Fatalf("%s: open=%v terminal=%v", tc.status, tc.status.Open(), tc.status.Terminal())
		}
	}
}

func TestFormatBookingID(t *testing.T) {
	if got := FormatBookingID(12345); got != "BKG0012345" {
		t.Fatalf("unexpected id %q", got)
	}
	if got := FormatBookingID(10_000_001); got != "BKG0000001" {
		t.Fatalf("expected wrap around, got %q", got)
	}
}

func TestDueForAutoCancel(t *testing.T) {
	today := time.Date(2026, 6, 10, 9, 30, 0, 0, time.Local)
	deadline := AutoCancelDeadline(today)
	if want := time.Date(2026, 6, 12, 0, 0, 0, 0, time.Local); !deadline.Equal(want) {
		t.Fatalf("unexpected deadline %v", deadline)
	}

	due := decimal.NewFromInt(200)
	cases := []struct {
		name     string
		mode     PaymentMode
		status   BookingStatus
		start    time.Time
		received decimal.Decimal
		want     bool
	}{
		{"unpaid tomorrow", PaymentBankTransfer, StatusPendingPayment, today.AddDate(0, 0, 1), decimal.Zero, true},
		{"partial on deadline", PaymentBankTransfer, StatusPendingPayment, deadline, decimal.NewFromInt(50), true},
		{"far future", PaymentBankTransfer, StatusPendingPayment, today.AddDate(0, 0, 10), decimal.Zero, false},
		{"fully paid", PaymentBankTransfer, StatusPendingPayment, today, due, false},
		{"confirmed", PaymentBankTransfer, StatusConfirmed, today, decimal.Zero, false},
		{"wallet", PaymentDigitalWallet, StatusPendingPayment, today, decimal.Zero, false},
	}
	for _, tc := range cases {
		if got := DueForAutoCancel(tc.mode, tc.status, tc.start, tc.received, due, deadline); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestAutoCancelPredicateSQL(t *testing.T) {
	for _, part := range []string{"'BANK_TRANSFER'", "'PENDING_PAYMENT'", "rental_start_date <= ?", "amount_received IS NULL"} {
		if !strings.Contains(AutoCancelPredicateSQL, part) {
			t.Fatalf("predicate missing %q: %s", part, AutoCancelPredicateSQL)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	wrapped := errors.Join(errors.New("ctx"), ConflictError{Resource: "booking", Code: CodeConcurrentModification})
	if !IsConflict(wrapped) || ConflictCode(wrapped) != CodeConcurrentModification {
		t.Fatalf("expected concurrent modification conflict")
	}
	if ConflictCode(ConflictError{Resource: "booking"}) != CodeInvalidState {
		t.Fatalf("expected default conflict code")
	}
	if !IsPaymentRejected(PaymentRejectedError{Reference: "ref"}) {
		t.Fatalf("expected payment rejected")
	}
	if !IsServiceUnavailable(ServiceUnavailableError{Service: "card approval"}) {
		t.Fatalf("expected service unavailable")
	}
	if IsNotFound(ValidationError{Field: "x"}) {
		t.Fatalf("validation must not classify as not found")
	}
}
