package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	intconfig "carrental/internal/config"
	intdb "carrental/internal/db"
	"carrental/internal/domain"
	"carrental/internal/domain/models"
)

// ErrEventAlreadyRecorded means another consumer stored the same payment id first.
var ErrEventAlreadyRecorded = errors.New("payment event already recorded")

// ProcessedEventRepository is the idempotency ledger for payment events.
type ProcessedEventRepository struct {
	DB *sql.DB
}

func (r ProcessedEventRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r ProcessedEventRepository) Exists(ctx context.Context, paymentID string) (bool, error) {
	var one int
	err := r.db().QueryRowContext(ctx, `SELECT 1 FROM processed_payment_events WHERE payment_id = ? LIMIT 1`, paymentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check payment event %s: %w", paymentID, err)
	}
	return true, nil
}

func (r ProcessedEventRepository) Record(ctx context.Context, ev models.ProcessedPaymentEvent) error {
	_, err := r.db().ExecContext(ctx, `
		INSERT INTO processed_payment_events (payment_id, booking_id, processing_status, error_message, processed_at)
		VALUES (?,?,?,?,?)`,
		ev.PaymentID, ev.BookingID, string(ev.Outcome), nullIfEmpty(ev.ErrorMessage), ev.ProcessedAt,
	)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return ErrEventAlreadyRecorded
		}
		return fmt.Errorf("record payment event %s: %w", ev.PaymentID, err)
	}
	return nil
}

// GetByPaymentID returns sql.ErrNoRows when the payment id was never processed.
func (r ProcessedEventRepository) GetByPaymentID(ctx context.Context, paymentID string) (models.ProcessedPaymentEvent, error) {
	var (
		ev      models.ProcessedPaymentEvent
		outcome string
		errMsg  sql.NullString
	)
	err := r.db().QueryRowContext(ctx, `
		SELECT id, payment_id, booking_id, processing_status, error_message, processed_at
		FROM processed_payment_events WHERE payment_id = ? LIMIT 1`, paymentID,
	).Scan(&ev.ID, &ev.PaymentID, &ev.BookingID, &outcome, &errMsg, &ev.ProcessedAt)
	if err != nil {
		return models.ProcessedPaymentEvent{}, err
	}
	ev.Outcome = domain.EventOutcome(outcome)
	ev.ErrorMessage = errMsg.String
	return ev, nil
}

// Delete removes a ledger row so a dead-lettered event can be replayed.
func (r ProcessedEventRepository) Delete(ctx context.Context, paymentID string) (bool, error) {
	res, err := r.db().ExecContext(ctx, `DELETE FROM processed_payment_events WHERE payment_id = ?`, paymentID)
	if err != nil {
		return false, fmt.Errorf("delete payment event %s: %w", paymentID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// nullIfEmpty stores optional strings as NULL.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
