package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/glowbook/booking-service/internal/redis"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingCompleted = "booking.completed"
	EventBookingReminder  = "booking.reminder"
)

const (
	DeclineReason = "Declined by provider"
	NoShowReason  = "Customer did not show up"
)

var (
	ErrIllegalTransition = errors.New("invalid status transition")
	ErrUnauthorized      = errors.New("caller may not perform this operation")
	ErrInvalidInput      = errors.New("invalid input")
	ErrSlotTaken         = errors.New("requested time overlaps an existing booking")
	ErrSlotBeingBooked   = errors.New("slot is currently being booked, please retry")
	ErrConflict          = errors.New("booking changed concurrently, please retry")
	ErrAlreadyReviewed   = errors.New("booking already has a review")
)

const (
	lockScopeBooking  = "booking"
	lockScopeProvider = "provider"
)

// Event is the typed notification payload appended after every state change.
// Dispatch is handled downstream; appending is best effort and never fails a
// committed transition.
type Event struct {
	Type            string
	BookingID       uuid.UUID
	ServiceName     string
	StartTime       time.Time
	Status          Status
	Reason          string
	Fee             *int64
	CustomerContact string
	ProviderContact string
}

type EventSink interface {
	Append(ctx context.Context, ev Event) error
}

type Service struct {
	repo   Repository
	locker redisclient.Locker
	events EventSink
	fees   FeePolicy
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, events EventSink, fees FeePolicy) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		events: events,
		fees:   fees,
		now:    time.Now,
	}
}

// Create reserves a provider's time for a customer. It runs under a
// per-provider lock so two concurrent requests cannot both pass the overlap
// check for the same window.
func (s *Service) Create(ctx context.Context, actor Actor, offeringID uuid.UUID, startTime time.Time, notes string) (*Booking, error) {
	if actor.Role != RoleCustomer {
		return nil, ErrUnauthorized
	}
	if offeringID == uuid.Nil || startTime.IsZero() {
		return nil, fmt.Errorf("%w: offering id and start time are required", ErrInvalidInput)
	}

	offering, err := s.repo.GetOfferingByID(ctx, offeringID)
	if err != nil {
		if errors.Is(err, ErrOfferingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load offering: %w", err)
	}
	if offering.Duration <= 0 {
		return nil, fmt.Errorf("%w: offering has no duration", ErrInvalidInput)
	}

	// Validate both parties exist before reserving anything.
	if _, err := s.repo.GetProfileByID(ctx, offering.ProviderID); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}
	if _, err := s.repo.GetProfileByID(ctx, actor.ProfileID); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load customer: %w", err)
	}

	endTime := startTime.Add(offering.Duration)

	var created *Booking

	err = s.locker.WithLock(ctx, lockScopeProvider, offering.ProviderID, func(lockCtx context.Context) error {
		// Inside the critical section re-check the provider's calendar.
		overlapping, err := s.repo.FindOverlapping(lockCtx, offering.ProviderID, startTime, endTime)
		if err != nil {
			return fmt.Errorf("check overlapping bookings: %w", err)
		}
		if len(overlapping) > 0 {
			return ErrSlotTaken
		}

		b, err := s.repo.CreateBooking(lockCtx, &Booking{
			CustomerID: actor.ProfileID,
			ProviderID: offering.ProviderID,
			OfferingID: offering.ID,
			StartTime:  startTime,
			EndTime:    endTime,
			Status:     StatusPending,
			Price:      offering.Price, // snapshot, never re-read
			Notes:      notes,
		})
		if err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		created = b
		s.appendEvent(lockCtx, EventBookingCreated, b)
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

// Approve moves a pending booking to confirmed. Provider only.
func (s *Service) Approve(ctx context.Context, actor Actor, id uuid.UUID) (*Booking, error) {
	return s.applyTransition(ctx, id, func(b *Booking) (*transition, error) {
		if b.ProviderID != actor.ProfileID {
			return nil, ErrUnauthorized
		}
		if b.Status != StatusPending {
			return nil, ErrIllegalTransition
		}
		return &transition{to: StatusConfirmed, event: EventBookingConfirmed}, nil
	})
}

// Decline cancels a pending booking on the provider's behalf. No fee is
// charged to the customer.
func (s *Service) Decline(ctx context.Context, actor Actor, id uuid.UUID) (*Booking, error) {
	return s.applyTransition(ctx, id, func(b *Booking) (*transition, error) {
		if b.ProviderID != actor.ProfileID {
			return nil, ErrUnauthorized
		}
		if b.Status != StatusPending {
			return nil, ErrIllegalTransition
		}
		reason := DeclineReason
		return &transition{
			to:     StatusCancelled,
			update: StatusUpdate{CancellationReason: &reason},
			event:  EventBookingCancelled,
		}, nil
	})
}

// Cancel is the customer-initiated cancellation. Works from pending or
// confirmed; inside the cutoff window it freezes a fee into the booking.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uuid.UUID, reason, notes string) (*Booking, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: cancellation reason is required", ErrInvalidInput)
	}
	return s.applyTransition(ctx, id, func(b *Booking) (*transition, error) {
		if b.CustomerID != actor.ProfileID {
			return nil, ErrUnauthorized
		}
		if b.Status != StatusPending && b.Status != StatusConfirmed {
			return nil, ErrIllegalTransition
		}
		fee := s.fees.Fee(b.Price, b.StartTime, s.now())
		upd := StatusUpdate{
			CancellationReason: &reason,
			CancellationFee:    &fee,
		}
		if notes != "" {
			upd.CancellationNotes = &notes
		}
		return &transition{to: StatusCancelled, update: upd, event: EventBookingCancelled}, nil
	})
}

// Complete marks a confirmed booking as done once the appointment time has
// passed. Provider only.
func (s *Service) Complete(ctx context.Context, actor Actor, id uuid.UUID) (*Booking, error) {
	return s.applyTransition(ctx, id, func(b *Booking) (*transition, error) {
		if b.ProviderID != actor.ProfileID {
			return nil, ErrUnauthorized
		}
		if b.Status != StatusConfirmed {
			return nil, ErrIllegalTransition
		}
		if s.now().Before(b.StartTime) {
			return nil, fmt.Errorf("%w: appointment has not passed yet", ErrIllegalTransition)
		}
		return &transition{to: StatusCompleted, event: EventBookingCompleted}, nil
	})
}

// MarkNoShow records that the customer did not turn up. Provider only, and
// only after the appointment time.
func (s *Service) MarkNoShow(ctx context.Context, actor Actor, id uuid.UUID) (*Booking, error) {
	return s.applyTransition(ctx, id, func(b *Booking) (*transition, error) {
		if b.ProviderID != actor.ProfileID {
			return nil, ErrUnauthorized
		}
		if b.Status != StatusConfirmed {
			return nil, ErrIllegalTransition
		}
		if s.now().Before(b.StartTime) {
			return nil, fmt.Errorf("%w: appointment has not passed yet", ErrIllegalTransition)
		}
		reason := NoShowReason
		return &transition{
			to:     StatusNoShow,
			update: StatusUpdate{CancellationReason: &reason},
			event:  EventBookingCancelled,
		}, nil
	})
}

// MarkReviewed flags a completed booking as reviewed so a second review
// against it is rejected.
func (s *Service) MarkReviewed(ctx context.Context, actor Actor, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if b.CustomerID != actor.ProfileID {
		return nil, ErrUnauthorized
	}
	if b.HasReview {
		return nil, ErrAlreadyReviewed
	}
	if b.Status != StatusCompleted {
		return nil, ErrIllegalTransition
	}

	updated, err := s.repo.MarkReviewed(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			// Row no longer matches the guard: reviewed or mutated since read.
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("mark reviewed: %w", err)
	}
	return updated, nil
}

// Get returns a booking to one of its parties.
func (s *Service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetBookingByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if !s.mayRead(actor, b) {
		return nil, ErrUnauthorized
	}
	return b, nil
}

// ListForActor returns the caller's own bookings, newest start first.
func (s *Service) ListForActor(ctx context.Context, actor Actor, f ListFilter) ([]Booking, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	switch actor.Role {
	case RoleCustomer:
		bookings, err := s.repo.ListByCustomer(ctx, actor.ProfileID, f)
		if err != nil {
			return nil, fmt.Errorf("list bookings by customer: %w", err)
		}
		return bookings, nil
	case RoleProvider:
		bookings, err := s.repo.ListByProvider(ctx, actor.ProfileID, f)
		if err != nil {
			return nil, fmt.Errorf("list bookings by provider: %w", err)
		}
		return bookings, nil
	default:
		return nil, ErrUnauthorized
	}
}

type transition struct {
	to     Status
	update StatusUpdate
	event  string
}

// applyTransition runs the read-check-write sequence of a lifecycle operation
// under the per-booking lock. The status write is a compare-and-swap against
// the status read inside the critical section, so a row that changed anyway
// surfaces as a conflict instead of a silent last-write-wins.
func (s *Service) applyTransition(ctx context.Context, id uuid.UUID, decide func(b *Booking) (*transition, error)) (*Booking, error) {
	var updated *Booking

	err := s.locker.WithLock(ctx, lockScopeBooking, id, func(lockCtx context.Context) error {
		b, err := s.repo.GetBookingByID(lockCtx, id)
		if err != nil {
			if errors.Is(err, ErrBookingNotFound) {
				return err
			}
			return fmt.Errorf("load booking: %w", err)
		}

		tr, err := decide(b)
		if err != nil {
			return err
		}

		upd, err := s.repo.UpdateBookingStatus(lockCtx, id, b.Status, tr.to, tr.update)
		if err != nil {
			if errors.Is(err, ErrBookingNotFound) {
				return ErrConflict
			}
			return fmt.Errorf("update booking status: %w", err)
		}

		updated = upd
		s.appendEvent(lockCtx, tr.event, upd)
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrConflict
		}
		return nil, err
	}

	return updated, nil
}

func (s *Service) mayRead(actor Actor, b *Booking) bool {
	if actor.Role == RoleAdmin {
		return true
	}
	return b.CustomerID == actor.ProfileID || b.ProviderID == actor.ProfileID
}

// appendEvent hands the transition to the outbox. Failures are logged and
// swallowed: the state change is already committed and must stand.
func (s *Service) appendEvent(ctx context.Context, eventType string, b *Booking) {
	if s.events == nil {
		return
	}

	ev := Event{
		Type:      eventType,
		BookingID: b.ID,
		StartTime: b.StartTime,
		Status:    b.Status,
		Reason:    b.CancellationReason,
		Fee:       b.CancellationFee,
	}

	if off, err := s.repo.GetOfferingByID(ctx, b.OfferingID); err == nil {
		ev.ServiceName = off.Title
	} else {
		log.Printf("failed to load offering %s for event %s: %v", b.OfferingID, eventType, err)
	}
	if p, err := s.repo.GetProfileByID(ctx, b.CustomerID); err == nil {
		ev.CustomerContact = p.Contact
	} else {
		log.Printf("failed to load customer %s for event %s: %v", b.CustomerID, eventType, err)
	}
	if p, err := s.repo.GetProfileByID(ctx, b.ProviderID); err == nil {
		ev.ProviderContact = p.Contact
	} else {
		log.Printf("failed to load provider %s for event %s: %v", b.ProviderID, eventType, err)
	}

	if err := s.events.Append(ctx, ev); err != nil {
		log.Printf("failed to append event %s for booking %s: %v", eventType, b.ID, err)
	}
}
