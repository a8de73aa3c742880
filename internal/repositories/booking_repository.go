package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	intconfig "carrental/internal/config"
	intdb "carrental/internal/db"
	"carrental/internal/domain"
	"carrental/internal/domain/models"

	"github.com/shopspring/decimal"
)

const bookingColumns = `id, booking_id, customer_name, vehicle_id, vehicle_category,
	rental_start_date, rental_end_date, payment_mode, payment_reference,
	booking_status, payment_amount, amount_received, version, created_at, updated_at`

type BookingRepository struct {
	DB *sql.DB
}

func (r BookingRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// NextBookingID draws the next value from the durable sequence row.
// LAST_INSERT_ID(expr) makes the new value visible as the insert id of
// this statement, so no second round trip is needed.
func (r BookingRepository) NextBookingID(ctx context.Context) (string, error) {
	res, err := r.db().ExecContext(ctx, `UPDATE booking_sequence SET next_val = LAST_INSERT_ID(next_val + 1) WHERE id = 1`)
	if err != nil {
		return "", fmt.Errorf("advance booking sequence: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", fmt.Errorf("booking sequence not initialized")
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("read booking sequence: %w", err)
	}
	return domain.FormatBookingID(seq), nil
}

func (r BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO bookings (
			booking_id, customer_name, vehicle_id, vehicle_category,
			rental_start_date, rental_end_date, payment_mode, payment_reference,
			booking_status, payment_amount, amount_received, version, created_at, updated_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.BookingID, b.CustomerName, b.VehicleID, string(b.VehicleCategory),
		sqlDate(b.RentalStartDate), sqlDate(b.RentalEndDate), string(b.PaymentMode), b.PaymentReference,
		string(b.Status), b.PaymentAmount, b.AmountReceived, b.Version, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return domain.ConflictError{Resource: "booking", Code: domain.CodeConcurrentModification, Msg: "booking id already exists", Err: err}
		}
		return fmt.Errorf("insert booking %s: %w", b.BookingID, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		b.ID = id
	}
	return nil
}

// GetByBookingID returns sql.ErrNoRows when the booking does not exist.
func (r BookingRepository) GetByBookingID(ctx context.Context, bookingID string) (models.Booking, error) {
	row := r.db().QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_id = ? LIMIT 1`, bookingID)
	return scanBooking(row)
}

// Update persists status and amount received when the stored version
// still matches b.Version. A stale version yields domain.ErrStaleVersion.
func (r BookingRepository) Update(ctx context.Context, b models.Booking) error {
	res, err := r.db().ExecContext(ctx, `
		UPDATE bookings
		SET booking_status = ?, amount_received = ?, updated_at = ?, version = version + 1
		WHERE booking_id = ? AND version = ?`,
		string(b.Status), b.AmountReceived, b.UpdatedAt, b.BookingID, b.Version,
	)
	if err != nil {
		return fmt.Errorf("update booking %s: %w", b.BookingID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update booking %s: %w", b.BookingID, err)
	}
	if n == 0 {
		return domain.ErrStaleVersion
	}
	return nil
}

// FindDueForAutoCancel lists booking ids matching the auto-cancel predicate.
func (r BookingRepository) FindDueForAutoCancel(ctx context.Context, deadline time.Time) ([]string, error) {
	rows, err := r.db().QueryContext(ctx,
		`SELECT booking_id FROM bookings WHERE `+domain.AutoCancelPredicateSQL+` ORDER BY rental_start_date, id`,
		sqlDate(deadline),
	)
	if err != nil {
		return nil, fmt.Errorf("find auto-cancel candidates: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CancelDue moves the given bookings to CANCELLED in one statement. The
// auto-cancel predicate is re-applied so rows paid in the meantime are kept.
func (r BookingRepository) CancelDue(ctx context.Context, ids []string, deadline, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+3)
	args = append(args, string(domain.StatusCancelled), now)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, sqlDate(deadline))

	query := `UPDATE bookings
		SET booking_status = ?, updated_at = ?, version = version + 1
		WHERE booking_id IN (` + intdb.Placeholders(len(ids)) + `) AND ` + domain.AutoCancelPredicateSQL

	var affected int64
	err := intdb.WithTx(ctx, r.db(), func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("cancel due bookings: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (models.Booking, error) {
	var (
		b        models.Booking
		category string
		mode     string
		status   string
		received decimal.NullDecimal
	)
	if err := row.Scan(
		&b.ID,
		&b.BookingID,
		&b.CustomerName,
		&b.VehicleID,
		&category,
		&b.RentalStartDate,
		&b.RentalEndDate,
		&mode,
		&b.PaymentReference,
		&status,
		&b.PaymentAmount,
		&received,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return models.Booking{}, err
	}
	b.VehicleCategory = domain.VehicleCategory(category)
	b.PaymentMode = domain.PaymentMode(mode)
	b.Status = domain.BookingStatus(status)
	if received.Valid {
		b.AmountReceived = received.Decimal
	}
	return b, nil
}

func sqlDate(t time.Time) string {
	return t.Format("2006-01-02")
}
