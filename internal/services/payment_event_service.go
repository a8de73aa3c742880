package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"carrental/internal/domain"
	"carrental/internal/domain/models"
	"carrental/internal/repositories"
	"carrental/internal/utils"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
)

const (
	maxLedgerErrorLength = 1000

	reasonInvalidDetails = "Invalid transactionDetails format - cannot extract bookingId"
	reasonNotFound       = "booking not found"
)

// PaymentApplier is the part of the booking lifecycle the pipeline drives.
type PaymentApplier interface {
	ApplyPayment(ctx context.Context, bookingID string, amount decimal.Decimal) (ApplyResult, error)
}

// EventResult is the decision taken for one feed message.
type EventResult struct {
	PaymentID string
	BookingID string
	Outcome   domain.EventOutcome
	Reason    string
}

// PaymentEventService turns raw payment feed messages into booking updates,
// ledger rows and dead letters. Handle never fails: every message ends in
// a terminal outcome so the transport can acknowledge it.
type PaymentEventService struct {
	Ledger      PaymentLedger
	Bookings    PaymentApplier
	DeadLetters DeadLetterPublisher

	// ConflictRetries bounds re-application after an optimistic lock clash.
	ConflictRetries uint64
	ConflictWait    time.Duration
	Now             func() time.Time
}

func (s PaymentEventService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s PaymentEventService) Handle(ctx context.Context, body []byte) EventResult {
	var ev models.PaymentEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return s.poison(ctx, body, "Invalid JSON format: "+err.Error())
	}
	if err := ev.Validate(); err != nil {
		return s.poison(ctx, body, "Schema validation failed: "+err.Error())
	}

	ctx = utils.WithRequestID(ctx, ev.PaymentID)
	reqID := ev.PaymentID
	res := EventResult{PaymentID: ev.PaymentID, BookingID: domain.UnknownBookingID}

	seen, err := s.Ledger.Exists(ctx, ev.PaymentID)
	if err != nil {
		return s.fail(ctx, body, res, err)
	}
	if seen {
		utils.LogEvent(reqID, "payment_event", "duplicate", "payment event already processed, skipped")
		res.Outcome = domain.OutcomeDuplicate
		return res
	}

	bookingID, err := ev.BookingID()
	if err != nil {
		utils.LogEvent(reqID, "payment_event", "invalid_details", fmt.Sprintf("txn_ref=%q", ev.TransactionRef()))
		res.Outcome = domain.OutcomeSkipped
		res.Reason = reasonInvalidDetails
		s.record(ctx, res, "Could not extract booking ID from transactionDetails")
		s.deadLetter(ctx, body, reasonInvalidDetails)
		return res
	}
	res.BookingID = bookingID

	utils.LogEvent(reqID, "payment_event", "apply", fmt.Sprintf("booking_id=%s txn_ref=%s amount=%s",
		bookingID, ev.TransactionRef(), ev.Amount().StringFixed(2)))

	applied, err := s.apply(ctx, bookingID, ev.Amount())
	if err != nil {
		return s.fail(ctx, body, res, err)
	}
	if applied == PaymentSkippedMissing {
		return s.fail(ctx, body, res, errors.New(reasonNotFound+": "+bookingID))
	}

	res.Outcome = domain.OutcomeSuccess
	s.record(ctx, res, "")
	utils.LogEvent(reqID, "payment_event", "processed", fmt.Sprintf("booking_id=%s result=%s", bookingID, applied))
	return res
}

// apply retries ApplyPayment on optimistic lock conflicts only.
func (s PaymentEventService) apply(ctx context.Context, bookingID string, amount decimal.Decimal) (ApplyResult, error) {
	retries := s.ConflictRetries
	if retries == 0 {
		retries = 3
	}
	wait := s.ConflictWait
	if wait <= 0 {
		wait = 50 * time.Millisecond
	}

	var result ApplyResult
	op := func() error {
		r, err := s.Bookings.ApplyPayment(ctx, bookingID, amount)
		if err == nil {
			result = r
			return nil
		}
		if domain.ConflictCode(err) == domain.CodeConcurrentModification {
			utils.LogEvent(utils.RequestIDFrom(ctx), "payment_event", "conflict_retry", fmt.Sprintf("booking_id=%s", bookingID))
			return err
		}
		return backoff.Permanent(err)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(wait), retries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return 0, err
	}
	return result, nil
}

func (s PaymentEventService) poison(ctx context.Context, body []byte, reason string) EventResult {
	utils.LogEvent(utils.RequestIDFrom(ctx), "payment_event", "poison", reason)
	s.deadLetter(ctx, body, reason)
	return EventResult{BookingID: domain.UnknownBookingID, Outcome: domain.OutcomePoison, Reason: reason}
}

func (s PaymentEventService) fail(ctx context.Context, body []byte, res EventResult, cause error) EventResult {
	utils.LogError(res.PaymentID, "payment_event", "failed", fmt.Sprintf("booking_id=%s", res.BookingID), cause)
	res.Outcome = domain.OutcomeFailed
	res.Reason = "Processing failed: " + cause.Error()
	s.record(ctx, res, cause.Error())
	s.deadLetter(ctx, body, res.Reason)
	return res
}

// record writes the ledger row; failures are logged because the message
// is acknowledged regardless.
func (s PaymentEventService) record(ctx context.Context, res EventResult, errMsg string) {
	err := s.Ledger.Record(ctx, models.ProcessedPaymentEvent{
		PaymentID:    res.PaymentID,
		BookingID:    res.BookingID,
		Outcome:      res.Outcome,
		ErrorMessage: utils.Truncate(errMsg, maxLedgerErrorLength),
		ProcessedAt:  s.now(),
	})
	switch {
	case errors.Is(err, repositories.ErrEventAlreadyRecorded):
		utils.LogEvent(res.PaymentID, "payment_event", "record", "ledger row already written by another consumer")
	case err != nil:
		utils.LogError(res.PaymentID, "payment_event", "record", "failed to write ledger row", err)
	}
}

func (s PaymentEventService) deadLetter(ctx context.Context, body []byte, reason string) {
	msg := models.DeadLetterMessage{
		OriginalMessage: string(body),
		ErrorReason:     reason,
		Timestamp:       s.now().UTC(),
	}
	if err := s.DeadLetters.Publish(ctx, msg); err != nil {
		utils.LogError(utils.RequestIDFrom(ctx), "payment_event", "dead_letter", "failed to publish dead letter", err)
		return
	}
	utils.LogEvent(utils.RequestIDFrom(ctx), "payment_event", "dead_letter", reason)
}

// DeadLetterService drains the dead-letter channel. It only logs: replay is
// an operator action.
type DeadLetterService struct{}

func (DeadLetterService) Handle(ctx context.Context, body []byte) {
	var msg models.DeadLetterMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		utils.Logger().WithField("module", "DLQ").WithField("payload", string(body)).
			Error("unreadable dead letter received, manual intervention required")
		return
	}
	utils.Logger().WithField("module", "DLQ").
		WithField("reason", msg.ErrorReason).
		WithField("failed_at", msg.Timestamp).
		WithField("original_message", msg.OriginalMessage).
		Error("dead letter received, manual intervention required")
}
