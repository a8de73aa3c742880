package models

import (
	"time"

	"carrental/internal/domain"

	"github.com/shopspring/decimal"
)

// Booking is a persisted rental booking. BookingID is the external
// identifier; ID is the storage key.
type Booking struct {
	ID               int64                  `json:"-"`
	BookingID        string                 `json:"bookingId"`
	CustomerName     string                 `json:"customerName"`
	VehicleID        string                 `json:"vehicleId"`
	VehicleCategory  domain.VehicleCategory `json:"vehicleCategory"`
	RentalStartDate  time.Time              `json:"rentalStartDate"`
	RentalEndDate    time.Time              `json:"rentalEndDate"`
	PaymentMode      domain.PaymentMode     `json:"paymentMode"`
	PaymentReference string                 `json:"paymentReference"`
	Status           domain.BookingStatus   `json:"bookingStatus"`
	PaymentAmount    decimal.Decimal        `json:"paymentAmount"`
	AmountReceived   decimal.Decimal        `json:"amountReceived"`
	Version          int64                  `json:"version"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

// CanBeCancelled reports whether an explicit cancel is allowed.
func (b Booking) CanBeCancelled() bool {
	return b.Status.Open()
}

// CanAcceptPayment reports whether incoming funds may still be applied.
func (b Booking) CanAcceptPayment() bool {
	return b.Status.Open()
}

// FullyPaid reports whether the received amount covers the amount due.
func (b Booking) FullyPaid() bool {
	return b.AmountReceived.GreaterThanOrEqual(b.PaymentAmount)
}

func (b Booking) DueForAutoCancel(deadline time.Time) bool {
	return domain.DueForAutoCancel(b.PaymentMode, b.Status, b.RentalStartDate, b.AmountReceived, b.PaymentAmount, deadline)
}

// RentalDays is the number of calendar days between start and end.
func (b Booking) RentalDays() int {
	return domain.CalendarDays(b.RentalStartDate, b.RentalEndDate)
}

// BookingRequest is the create payload. Dates use YYYY-MM-DD.
type BookingRequest struct {
	CustomerName     string          `json:"customerName" binding:"required,min=2,max=100"`
	VehicleID        string          `json:"vehicleId" binding:"required"`
	VehicleCategory  string          `json:"vehicleCategory" binding:"required"`
	RentalStartDate  string          `json:"rentalStartDate" binding:"required"`
	RentalEndDate    string          `json:"rentalEndDate" binding:"required"`
	PaymentMode      string          `json:"paymentMode" binding:"required"`
	PaymentReference string          `json:"paymentReference" binding:"required"`
	PaymentAmount    decimal.Decimal `json:"paymentAmount"`
}

// BookingConfirmation is returned after a booking is created.
type BookingConfirmation struct {
	BookingID     string               `json:"bookingId"`
	BookingStatus domain.BookingStatus `json:"bookingStatus"`
}
