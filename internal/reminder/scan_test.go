package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/glowbook/booking-service/internal/booking"
)

type fakeStore struct {
	bookings  []booking.Booking
	offerings map[uuid.UUID]booking.Offering
	profiles  map[uuid.UUID]booking.Profile
}

func (s *fakeStore) FindConfirmedStartingBetween(_ context.Context, from, to time.Time) ([]booking.Booking, error) {
	var out []booking.Booking
	for _, b := range s.bookings {
		if b.Status == booking.StatusConfirmed && !b.StartTime.Before(from) && b.StartTime.Before(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *fakeStore) GetOfferingByID(_ context.Context, id uuid.UUID) (*booking.Offering, error) {
	o, ok := s.offerings[id]
	if !ok {
		return nil, booking.ErrOfferingNotFound
	}
	return &o, nil
}

func (s *fakeStore) GetProfileByID(_ context.Context, id uuid.UUID) (*booking.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, booking.ErrProfileNotFound
	}
	return &p, nil
}

type fakeMarker struct {
	checked map[uuid.UUID]string
}

func (m *fakeMarker) LastChecked(_ context.Context, customerID uuid.UUID) (string, error) {
	return m.checked[customerID], nil
}

func (m *fakeMarker) SetChecked(_ context.Context, customerID uuid.UUID, date string) error {
	m.checked[customerID] = date
	return nil
}

type captureSink struct {
	events []booking.Event
}

func (s *captureSink) Append(_ context.Context, ev booking.Event) error {
	s.events = append(s.events, ev)
	return nil
}

func setupScan(t *testing.T) (*Scanner, *fakeStore, *fakeMarker, *captureSink, time.Time, uuid.UUID) {
	t.Helper()

	now := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	customerID := uuid.New()
	offeringID := uuid.New()

	store := &fakeStore{
		offerings: map[uuid.UUID]booking.Offering{
			offeringID: {ID: offeringID, Title: "Hot Stone Massage"},
		},
		profiles: map[uuid.UUID]booking.Profile{
			customerID: {ID: customerID, Role: booking.RoleCustomer, Contact: "cust@example.com"},
		},
	}
	store.bookings = []booking.Booking{
		{
			ID:         uuid.New(),
			CustomerID: customerID,
			OfferingID: offeringID,
			StartTime:  now.Add(5 * time.Hour),
			Status:     booking.StatusConfirmed,
		},
	}

	marker := &fakeMarker{checked: map[uuid.UUID]string{}}
	sink := &captureSink{}

	sc := NewScanner(store, marker, sink, 24*time.Hour)
	sc.now = func() time.Time { return now }

	return sc, store, marker, sink, now, customerID
}

func TestScanEmitsReminder(t *testing.T) {
	sc, _, marker, sink, now, customerID := setupScan(t)

	if err := sc.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(sink.events) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(sink.events))
	}
	ev := sink.events[0]
	if ev.Type != booking.EventBookingReminder {
		t.Fatalf("expected reminder event, got %s", ev.Type)
	}
	if ev.ServiceName != "Hot Stone Massage" {
		t.Fatalf("reminder missing service name: %+v", ev)
	}
	if ev.CustomerContact != "cust@example.com" {
		t.Fatalf("reminder missing customer contact: %+v", ev)
	}
	if marker.checked[customerID] != now.Format("2006-01-02") {
		t.Fatalf("marker not advanced: %q", marker.checked[customerID])
	}
}

func TestScanDeduplicatesByDayMarker(t *testing.T) {
	sc, _, _, sink, _, _ := setupScan(t)

	if err := sc.Scan(context.Background()); err != nil {
		t.Fatalf("first Scan failed: %v", err)
	}
	if err := sc.Scan(context.Background()); err != nil {
		t.Fatalf("second Scan failed: %v", err)
	}
	if len(sink.events) != 1 {
		t.Fatalf("same-day rescan must not re-emit, got %d events", len(sink.events))
	}
}

func TestScanReemitsNextDay(t *testing.T) {
	sc, _, _, sink, now, _ := setupScan(t)

	if err := sc.Scan(context.Background()); err != nil {
		t.Fatalf("first Scan failed: %v", err)
	}

	sc.now = func() time.Time { return now.Add(24 * time.Hour) }
	// Push the booking back into the new window.
	// (the original booking at now+5h is already in the past of the new scan)
	if err := sc.Scan(context.Background()); err != nil {
		t.Fatalf("next-day Scan failed: %v", err)
	}
	// The old booking left the window, so nothing new fires; a cleared marker
	// plus an in-window booking would.
	if len(sink.events) != 1 {
		t.Fatalf("expected 1 event total, got %d", len(sink.events))
	}
}

func TestScanSkipsOutOfWindowBookings(t *testing.T) {
	sc, store, _, sink, now, customerID := setupScan(t)
	store.bookings = append(store.bookings, booking.Booking{
		ID:         uuid.New(),
		CustomerID: customerID,
		StartTime:  now.Add(72 * time.Hour),
		Status:     booking.StatusConfirmed,
	})

	if err := sc.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(sink.events) != 1 {
		t.Fatalf("booking 3 days out must not trigger a reminder, got %d events", len(sink.events))
	}
}

func TestScanIgnoresPendingBookings(t *testing.T) {
	sc, store, _, sink, now, customerID := setupScan(t)
	store.bookings = []booking.Booking{
		{
			ID:         uuid.New(),
			CustomerID: customerID,
			StartTime:  now.Add(5 * time.Hour),
			Status:     booking.StatusPending,
		},
	}

	if err := sc.Scan(context.Background()); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(sink.events) != 0 {
		t.Fatalf("pending bookings must not trigger reminders, got %d events", len(sink.events))
	}
}

func TestScanClearedMarkerResends(t *testing.T) {
	sc, _, marker, sink, _, customerID := setupScan(t)

	if err := sc.Scan(context.Background()); err != nil {
		t.Fatalf("first Scan failed: %v", err)
	}

	// New device / cleared marker: the same booking is reminded again.
	delete(marker.checked, customerID)
	if err := sc.Scan(context.Background()); err != nil {
		t.Fatalf("second Scan failed: %v", err)
	}
	if len(sink.events) != 2 {
		t.Fatalf("cleared marker should re-emit (at-least-once), got %d events", len(sink.events))
	}
}
