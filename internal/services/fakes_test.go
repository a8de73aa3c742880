package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"carrental/internal/domain"
	"carrental/internal/domain/models"
	"carrental/internal/repositories"
)

type memStore struct {
	mu       sync.Mutex
	seq      int64
	bookings map[string]models.Booking
	updates  int
	// staleWrites makes the next N updates fail with a version clash.
	staleWrites int
	loadErr     error
}

func newMemStore(bookings ...models.Booking) *memStore {
	s := &memStore{bookings: map[string]models.Booking{}}
	for _, b := range bookings {
		s.bookings[b.BookingID] = b
	}
	return s
}

func (s *memStore) NextBookingID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return domain.FormatBookingID(s.seq), nil
}

func (s *memStore) Create(ctx context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.BookingID]; ok {
		return domain.ConflictError{Resource: "booking", Code: domain.CodeConcurrentModification}
	}
	b.ID = int64(len(s.bookings) + 1)
	s.bookings[b.BookingID] = *b
	return nil
}

func (s *memStore) GetByBookingID(ctx context.Context, id string) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return models.Booking{}, s.loadErr
	}
	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, sql.ErrNoRows
	}
	return b, nil
}

func (s *memStore) Update(ctx context.Context, b models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staleWrites > 0 {
		s.staleWrites--
		return domain.ErrStaleVersion
	}
	cur, ok := s.bookings[b.BookingID]
	if !ok || cur.Version != b.Version {
		return domain.ErrStaleVersion
	}
	cur.Status = b.Status
	cur.AmountReceived = b.AmountReceived
	cur.UpdatedAt = b.UpdatedAt
	cur.Version++
	s.bookings[b.BookingID] = cur
	s.updates++
	return nil
}

func (s *memStore) FindDueForAutoCancel(ctx context.Context, deadline time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []string{}
	for id, b := range s.bookings {
		if b.DueForAutoCancel(deadline) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memStore) CancelDue(ctx context.Context, ids []string, deadline, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		b, ok := s.bookings[id]
		if !ok || !b.DueForAutoCancel(deadline) {
			continue
		}
		b.Status = domain.StatusCancelled
		b.UpdatedAt = now
		b.Version++
		s.bookings[id] = b
		n++
	}
	return n, nil
}

func (s *memStore) get(id string) models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id]
}

type memLedger struct {
	mu        sync.Mutex
	rows      map[string]models.ProcessedPaymentEvent
	existsErr error
}

func newMemLedger() *memLedger {
	return &memLedger{rows: map[string]models.ProcessedPaymentEvent{}}
}

func (l *memLedger) Exists(ctx context.Context, paymentID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.existsErr != nil {
		return false, l.existsErr
	}
	_, ok := l.rows[paymentID]
	return ok, nil
}

func (l *memLedger) Record(ctx context.Context, ev models.ProcessedPaymentEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.rows[ev.PaymentID]; ok {
		return repositories.ErrEventAlreadyRecorded
	}
	l.rows[ev.PaymentID] = ev
	return nil
}

func (l *memLedger) get(paymentID string) (models.ProcessedPaymentEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ev, ok := l.rows[paymentID]
	return ev, ok
}

type recordingDLQ struct {
	mu   sync.Mutex
	msgs []models.DeadLetterMessage
	err  error
}

func (d *recordingDLQ) Publish(ctx context.Context, msg models.DeadLetterMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.msgs = append(d.msgs, msg)
	return nil
}

func (d *recordingDLQ) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.msgs)
}

type fakeCard struct {
	approved bool
	err      error
	calls    int
}

func (c *fakeCard) Approve(ctx context.Context, ref string) (bool, error) {
	c.calls++
	return c.approved, c.err
}

type memCache struct {
	mu          sync.Mutex
	items       map[string]models.Booking
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{items: map[string]models.Booking{}}
}

func (c *memCache) Get(ctx context.Context, id string) (models.Booking, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.items[id]
	return b, ok
}

func (c *memCache) Set(ctx context.Context, b models.Booking) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[b.BookingID] = b
}

func (c *memCache) Invalidate(ctx context.Context, ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.items, id)
		c.invalidated = append(c.invalidated, id)
	}
}

var errBoom = errors.New("boom")
