package db

import (
	"context"
	"database/sql"
	"fmt"

	"carrental/internal/utils"
)

var tableDDL = []struct {
	name string
	ddl  string
}{
	{"bookings", `
CREATE TABLE IF NOT EXISTS bookings (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	booking_id VARCHAR(20) NOT NULL,
	customer_name VARCHAR(100) NOT NULL,
	vehicle_id VARCHAR(50) NOT NULL,
	vehicle_category VARCHAR(20) NOT NULL,
	rental_start_date DATE NOT NULL,
	rental_end_date DATE NOT NULL,
	payment_mode VARCHAR(20) NOT NULL,
	payment_reference VARCHAR(100) NOT NULL,
	booking_status VARCHAR(20) NOT NULL,
	payment_amount DECIMAL(10,2) NOT NULL,
	amount_received DECIMAL(10,2) NULL DEFAULT 0,
	version BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_booking_id (booking_id),
	KEY idx_auto_cancel (payment_mode, booking_status, rental_start_date)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
`},
	{"processed_payment_events", `
CREATE TABLE IF NOT EXISTS processed_payment_events (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	payment_id VARCHAR(100) NOT NULL,
	booking_id VARCHAR(20) NOT NULL,
	processing_status VARCHAR(20) NOT NULL,
	error_message VARCHAR(1000) NULL,
	processed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_payment_id (payment_id),
	KEY idx_booking (booking_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
`},
	{"booking_sequence", `
CREATE TABLE IF NOT EXISTS booking_sequence (
	id TINYINT PRIMARY KEY,
	next_val BIGINT NOT NULL
) ENGINE=InnoDB;
`},
}

// EnsureSchema creates missing tables and seeds the booking id sequence.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("db not available")
	}
	for _, t := range tableDDL {
		if HasTable(ctx, db, t.name) {
			continue
		}
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("create %s: %w", t.name, err)
		}
		utils.LogEvent("", "db", "create_table", t.name)
	}
	if _, err := db.ExecContext(ctx, `INSERT IGNORE INTO booking_sequence (id, next_val) VALUES (1, 0)`); err != nil {
		return fmt.Errorf("seed booking_sequence: %w", err)
	}
	return nil
}
