package domain

import "strings"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPendingPayment BookingStatus = "PENDING_PAYMENT"
	StatusConfirmed      BookingStatus = "CONFIRMED"
	StatusCancelled      BookingStatus = "CANCELLED"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Open reports whether the booking still accepts payment, cancellation and
// the auto-cancel sweep. Every lifecycle guard goes through it.
func (s BookingStatus) Open() bool {
	return s == StatusPendingPayment
}

// Terminal reports whether no further transition is allowed.
func (s BookingStatus) Terminal() bool {
	return s.Valid() && !s.Open()
}

type PaymentMode string

const (
	PaymentDigitalWallet PaymentMode = "DIGITAL_WALLET"
	PaymentCreditCard    PaymentMode = "CREDIT_CARD"
	PaymentBankTransfer  PaymentMode = "BANK_TRANSFER"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentDigitalWallet, PaymentCreditCard, PaymentBankTransfer:
		return true
	}
	return false
}

type VehicleCategory string

const (
	VehicleCompact VehicleCategory = "COMPACT"
	VehicleSedan   VehicleCategory = "SEDAN"
	VehicleSUV     VehicleCategory = "SUV"
	VehicleLuxury  VehicleCategory = "LUXURY"
)

func (c VehicleCategory) Valid() bool {
	switch c {
	case VehicleCompact, VehicleSedan, VehicleSUV, VehicleLuxury:
		return true
	}
	return false
}

// EventOutcome is the terminal classification of a payment event.
type EventOutcome string

const (
	OutcomeSuccess   EventOutcome = "SUCCESS"
	OutcomeFailed    EventOutcome = "FAILED"
	OutcomeSkipped   EventOutcome = "SKIPPED"
	OutcomeDuplicate EventOutcome = "DUPLICATE"
	// OutcomePoison marks unparseable input; it is dead-lettered but never stored.
	OutcomePoison EventOutcome = "POISON"
)

// ParsePaymentMode accepts the canonical name in any case.
func ParsePaymentMode(s string) PaymentMode {
	return PaymentMode(strings.ToUpper(strings.TrimSpace(s)))
}

// ParseVehicleCategory accepts the canonical name in any case.
func ParseVehicleCategory(s string) VehicleCategory {
	return VehicleCategory(strings.ToUpper(strings.TrimSpace(s)))
}
