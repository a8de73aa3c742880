package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"carrental/internal/domain"
	"carrental/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func TestProcessedEventExists(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT 1 FROM processed_payment_events WHERE payment_id = \\?").WithArgs("P1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM processed_payment_events").WithArgs("P2").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	repo := ProcessedEventRepository{DB: db}
	ok, err := repo.Exists(context.Background(), "P1")
	if err != nil || !ok {
		t.Fatalf("expected P1 to exist, got %v %v", ok, err)
	}
	ok, err = repo.Exists(context.Background(), "P2")
	if err != nil || ok {
		t.Fatalf("expected P2 to be absent, got %v %v", ok, err)
	}
}

func TestProcessedEventRecord(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO processed_payment_events").
		WithArgs("P1", "BKG0000001", "SUCCESS", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO processed_payment_events").
		WithArgs("P2", domain.UnknownBookingID, "SKIPPED", "bad details", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))

	repo := ProcessedEventRepository{DB: db}
	now := time.Now()
	if err := repo.Record(context.Background(), models.ProcessedPaymentEvent{PaymentID: "P1", BookingID: "BKG0000001", Outcome: domain.OutcomeSuccess, ProcessedAt: now}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if err := repo.Record(context.Background(), models.ProcessedPaymentEvent{PaymentID: "P2", BookingID: domain.UnknownBookingID, Outcome: domain.OutcomeSkipped, ErrorMessage: "bad details", ProcessedAt: now}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProcessedEventRecordDuplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO processed_payment_events").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'P1'"})

	err := ProcessedEventRepository{DB: db}.Record(context.Background(), models.ProcessedPaymentEvent{PaymentID: "P1"})
	if !errors.Is(err, ErrEventAlreadyRecorded) {
		t.Fatalf("expected ErrEventAlreadyRecorded, got %v", err)
	}
}

func TestProcessedEventGetAndDelete(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery("FROM processed_payment_events WHERE payment_id = \\?").WithArgs("P1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "payment_id", "booking_id", "processing_status", "error_message", "processed_at"}).
			AddRow(int64(9), "P1", "BKG0000001", "FAILED", "boom", now))
	mock.ExpectQuery("FROM processed_payment_events WHERE payment_id").WithArgs("P404").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("DELETE FROM processed_payment_events WHERE payment_id = \\?").WithArgs("P1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := ProcessedEventRepository{DB: db}
	ev, err := repo.GetByPaymentID(context.Background(), "P1")
	if err != nil {
		t.Fatalf("GetByPaymentID returned error: %v", err)
	}
	if ev.Outcome != domain.OutcomeFailed || ev.ErrorMessage != "boom" {
		t.Fatalf("unexpected ledger row %+v", ev)
	}
	if _, err := repo.GetByPaymentID(context.Background(), "P404"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
	deleted, err := repo.Delete(context.Background(), "P1")
	if err != nil || !deleted {
		t.Fatalf("expected delete to succeed, got %v %v", deleted, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
