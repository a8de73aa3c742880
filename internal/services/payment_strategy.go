package services

import (
	"context"
	"errors"
	"fmt"

	"carrental/internal/domain"
	"carrental/internal/domain/models"
	"carrental/internal/utils"
)

// PaymentStrategies decides the initial status of a booking from its
// payment mode.
type PaymentStrategies struct {
	card CardApprover
}

func NewPaymentStrategies(card CardApprover) (PaymentStrategies, error) {
	if card == nil {
		return PaymentStrategies{}, errors.New("card approver is required for CREDIT_CARD payments")
	}
	return PaymentStrategies{card: card}, nil
}

func (p PaymentStrategies) Process(ctx context.Context, b models.Booking, paymentReference string) (domain.BookingStatus, error) {
	reqID := utils.RequestIDFrom(ctx)
	switch b.PaymentMode {
	case domain.PaymentDigitalWallet:
		utils.LogEvent(reqID, "payment", "digital_wallet", fmt.Sprintf("booking_id=%s confirmed", b.BookingID))
		return domain.StatusConfirmed, nil

	case domain.PaymentCreditCard:
		approved, err := p.card.Approve(ctx, paymentReference)
		if err != nil {
			utils.LogError(reqID, "payment", "credit_card", fmt.Sprintf("booking_id=%s approval failed", b.BookingID), err)
			return "", err
		}
		if !approved {
			return "", domain.PaymentRejectedError{Reference: paymentReference, Msg: "credit card payment not approved"}
		}
		utils.LogEvent(reqID, "payment", "credit_card", fmt.Sprintf("booking_id=%s approved", b.BookingID))
		return domain.StatusConfirmed, nil

	case domain.PaymentBankTransfer:
		utils.LogEvent(reqID, "payment", "bank_transfer", fmt.Sprintf("booking_id=%s awaiting transfer", b.BookingID))
		return domain.StatusPendingPayment, nil
	}
	return "", domain.ValidationError{Field: "paymentMode", Msg: fmt.Sprintf("unsupported payment mode %q", b.PaymentMode)}
}
