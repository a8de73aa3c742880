package handlers

import (
	"context"
	"net/http"
	"strings"

	"carrental/internal/domain"
	"carrental/internal/domain/models"

	"github.com/gin-gonic/gin"
)

// BookingAPI is the booking lifecycle as seen by HTTP clients.
type BookingAPI interface {
	Confirm(ctx context.Context, req models.BookingRequest) (models.BookingConfirmation, error)
	GetByID(ctx context.Context, bookingID string) (models.Booking, error)
	Cancel(ctx context.Context, bookingID string) (models.Booking, error)
}

type VoucherGenerator interface {
	GenerateVoucher(ctx context.Context, bookingID string) ([]byte, string, error)
}

type BookingHandler struct {
	Bookings BookingAPI
	Docs     VoucherGenerator
}

// Create confirms a new booking and answers 201 with its id and status.
func (h BookingHandler) Create(c *gin.Context) {
	var req models.BookingRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	res, err := h.Bookings.Confirm(c.Request.Context(), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h BookingHandler) Get(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	b, err := h.Bookings.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.BookingConfirmation{BookingID: b.BookingID, BookingStatus: b.Status})
}

func (h BookingHandler) Cancel(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	b, err := h.Bookings.Cancel(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.BookingConfirmation{BookingID: b.BookingID, BookingStatus: b.Status})
}

// Voucher returns the rental voucher PDF inline.
func (h BookingHandler) Voucher(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	pdfBytes, filename, err := h.Docs.GenerateVoucher(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

func bookingIDParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("bookingId"))
	if id == "" {
		RespondDomainError(c, domain.ValidationError{Field: "bookingId", Msg: "is required"})
		return "", false
	}
	return id, true
}
