package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrOfferingNotFound = errors.New("service offering not found")
	ErrBookingNotFound  = errors.New("booking not found")
)

// StatusUpdate carries the cancellation fields written alongside a status
// change. Nil pointers leave the stored value untouched.
type StatusUpdate struct {
	CancellationReason *string
	CancellationNotes  *string
	CancellationFee    *int64
}

// ListFilter narrows booking listings. Zero values mean no filter.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetProfileByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetOfferingByID(ctx context.Context, id uuid.UUID) (*Offering, error)

	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// For the create-time double-booking check: non-cancelled bookings of a
	// provider overlapping [start, end).
	FindOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time) ([]Booking, error)

	CreateBooking(ctx context.Context, b *Booking) (*Booking, error)

	// UpdateBookingStatus is a compare-and-swap: the row only changes when its
	// current status equals from. ErrBookingNotFound means no row matched.
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, from, to Status, upd StatusUpdate) (*Booking, error)

	// MarkReviewed flips has_review on a completed, not-yet-reviewed booking.
	MarkReviewed(ctx context.Context, id uuid.UUID) (*Booking, error)

	ListByCustomer(ctx context.Context, customerID uuid.UUID, f ListFilter) ([]Booking, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID, f ListFilter) ([]Booking, error)

	// Reminder scan
	FindConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]Booking, error)
}
