package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"carrental/internal/domain"
	"carrental/internal/domain/models"
	"carrental/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// BookingReader loads a booking by its external id.
type BookingReader interface {
	GetByID(ctx context.Context, bookingID string) (models.Booking, error)
}

// DocsService renders the rental voucher PDF for confirmed bookings.
type DocsService struct {
	Bookings BookingReader
	Now      func() time.Time
}

func (s DocsService) GenerateVoucher(ctx context.Context, bookingID string) ([]byte, string, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, "", err
	}
	if b.Status != domain.StatusConfirmed {
		return nil, "", domain.ConflictError{
			Resource: "booking",
			Code:     domain.CodeInvalidState,
			Msg:      fmt.Sprintf("voucher is only issued for confirmed bookings, %s is %s", bookingID, b.Status),
		}
	}
	utils.LogEvent(utils.RequestIDFrom(ctx), "docs", "generate_voucher", "booking_id="+bookingID)

	issued := time.Now()
	if s.Now != nil {
		issued = s.Now()
	}
	return buildVoucherPDF(b, issued)
}

func buildVoucherPDF(b models.Booking, issued time.Time) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Rental Voucher", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "RENTAL VOUCHER")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking ID     : %s", b.BookingID),
		fmt.Sprintf("Customer       : %s", safe(b.CustomerName, "-")),
		fmt.Sprintf("Vehicle        : %s (%s)", safe(b.VehicleID, "-"), b.VehicleCategory),
		fmt.Sprintf("Pick-up date   : %s", utils.FormatDate(b.RentalStartDate)),
		fmt.Sprintf("Return date    : %s", utils.FormatDate(b.RentalEndDate)),
		fmt.Sprintf("Rental days    : %d", b.RentalDays()),
		fmt.Sprintf("Payment mode   : %s", b.PaymentMode),
		fmt.Sprintf("Payment ref    : %s", safe(b.PaymentReference, "-")),
		fmt.Sprintf("Amount         : %s", utils.FormatMoney(b.PaymentAmount)),
		fmt.Sprintf("Status         : %s", b.Status),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Present this voucher and a valid driving licence at the pick-up counter. Issued "+utils.FormatDateTime(issued)+".", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("VOUCHER_%s_%s.pdf", b.BookingID, utils.SafeFilenamePart(b.CustomerName))
	return buf.Bytes(), filename, nil
}

func safe(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
