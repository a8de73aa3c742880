package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"carrental/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	// transactionRefLength is the fixed-width transaction reference that
	// precedes the separator and booking id in transactionDetails.
	transactionRefLength = 12
	bookingIDOffset      = transactionRefLength + 1
	minDetailsLength     = 23
)

var ErrInvalidTransactionDetails = errors.New("invalid transactionDetails format")

// PaymentEvent is one bank transfer notification from the payment feed.
type PaymentEvent struct {
	PaymentID           string           `json:"paymentId"`
	SenderAccountNumber string           `json:"senderAccountNumber"`
	PaymentAmount       *decimal.Decimal `json:"paymentAmount"`
	TransactionDetails  string           `json:"transactionDetails"`
}

// Validate checks the fields the pipeline relies on.
func (e PaymentEvent) Validate() error {
	var problems []string
	if strings.TrimSpace(e.PaymentID) == "" {
		problems = append(problems, "paymentId is required")
	}
	if e.PaymentAmount == nil || !e.PaymentAmount.IsPositive() {
		problems = append(problems, "paymentAmount must be positive")
	}
	if strings.TrimSpace(e.TransactionDetails) == "" {
		problems = append(problems, "transactionDetails is required")
	}
	if len(problems) > 0 {
		return domain.ValidationError{Field: "paymentEvent", Msg: strings.Join(problems, "; ")}
	}
	return nil
}

// Amount returns the payment amount or zero when absent.
func (e PaymentEvent) Amount() decimal.Decimal {
	if e.PaymentAmount == nil {
		return decimal.Zero
	}
	return *e.PaymentAmount
}

// BookingID extracts the booking id that follows the transaction reference.
func (e PaymentEvent) BookingID() (string, error) {
	r := []rune(e.TransactionDetails)
	if len(r) < minDetailsLength {
		return "", ErrInvalidTransactionDetails
	}
	id := strings.TrimSpace(string(r[bookingIDOffset:]))
	if id == "" {
		return "", ErrInvalidTransactionDetails
	}
	return id, nil
}

// TransactionRef returns the leading transaction reference, or "".
func (e PaymentEvent) TransactionRef() string {
	r := []rune(e.TransactionDetails)
	if len(r) < transactionRefLength {
		return ""
	}
	return string(r[:transactionRefLength])
}

// ProcessedPaymentEvent is one idempotency ledger row.
type ProcessedPaymentEvent struct {
	ID           int64               `json:"-"`
	PaymentID    string              `json:"paymentId"`
	BookingID    string              `json:"bookingId"`
	Outcome      domain.EventOutcome `json:"outcome"`
	ErrorMessage string              `json:"errorMessage,omitempty"`
	ProcessedAt  time.Time           `json:"processedAt"`
}

// DeadLetterMessage wraps a payload that could not be processed.
// OriginalMessage is the raw feed payload, re-injectable as is.
type DeadLetterMessage struct {
	OriginalMessage string    `json:"originalMessage"`
	ErrorReason     string    `json:"errorReason"`
	Timestamp       time.Time `json:"timestamp"`
}

func (m DeadLetterMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}
