package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/glowbook/booking-service/internal/booking"
	redisclient "github.com/glowbook/booking-service/internal/redis"
)

// Store is the slice of the booking repository the scan needs.
type Store interface {
	FindConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]booking.Booking, error)
	GetOfferingByID(ctx context.Context, id uuid.UUID) (*booking.Offering, error)
	GetProfileByID(ctx context.Context, id uuid.UUID) (*booking.Profile, error)
}

// Scanner emits reminder events for confirmed bookings starting inside the
// lookahead window, at most once per customer per calendar day. The day
// marker is deliberately coarse: losing it re-sends reminders, and a booking
// confirmed after a customer's daily check waits for the next day's scan.
type Scanner struct {
	store  Store
	marker redisclient.DayMarker
	events booking.EventSink
	window time.Duration
	now    func() time.Time
}

func NewScanner(store Store, marker redisclient.DayMarker, events booking.EventSink, window time.Duration) *Scanner {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Scanner{
		store:  store,
		marker: marker,
		events: events,
		window: window,
		now:    time.Now,
	}
}

// Scan is intended to be called by the worker periodically.
func (s *Scanner) Scan(ctx context.Context) error {
	now := s.now()
	upcoming, err := s.store.FindConfirmedStartingBetween(ctx, now, now.Add(s.window))
	if err != nil {
		return fmt.Errorf("find upcoming confirmed bookings: %w", err)
	}

	byCustomer := make(map[uuid.UUID][]booking.Booking)
	for _, b := range upcoming {
		byCustomer[b.CustomerID] = append(byCustomer[b.CustomerID], b)
	}

	today := now.Format("2006-01-02")
	emitted := 0

	for customerID, bookings := range byCustomer {
		last, err := s.marker.LastChecked(ctx, customerID)
		if err != nil {
			log.Printf("failed to read reminder marker for customer %s: %v", customerID, err)
			continue
		}
		if last == today {
			continue
		}

		for _, b := range bookings {
			s.emitReminder(ctx, b)
			emitted++
		}

		if err := s.marker.SetChecked(ctx, customerID, today); err != nil {
			log.Printf("failed to set reminder marker for customer %s: %v", customerID, err)
		}
	}

	if emitted > 0 {
		log.Printf("reminder scan emitted %d events for %d customers", emitted, len(byCustomer))
	}
	return nil
}

func (s *Scanner) emitReminder(ctx context.Context, b booking.Booking) {
	ev := booking.Event{
		Type:      booking.EventBookingReminder,
		BookingID: b.ID,
		StartTime: b.StartTime,
		Status:    b.Status,
	}

	if off, err := s.store.GetOfferingByID(ctx, b.OfferingID); err == nil {
		ev.ServiceName = off.Title
	} else {
		log.Printf("failed to load offering %s for reminder: %v", b.OfferingID, err)
	}
	if p, err := s.store.GetProfileByID(ctx, b.CustomerID); err == nil {
		ev.CustomerContact = p.Contact
	} else {
		log.Printf("failed to load customer %s for reminder: %v", b.CustomerID, err)
	}

	if err := s.events.Append(ctx, ev); err != nil {
		log.Printf("failed to append reminder event for booking %s: %v", b.ID, err)
	}
}
