package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Terminal reports whether a status has no outgoing transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// Actor identifies the caller of a lifecycle operation.
type Actor struct {
	ProfileID uuid.UUID
	Role      Role
}

type Profile struct {
	ID        uuid.UUID
	Name      string
	Role      Role
	Contact   string // email or phone, whatever the profile registered with
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Offering is a provider's published service: title, duration and price.
// Price is in cents and snapshotted onto the booking at creation time.
type Offering struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	Title      string
	Price      int64
	Duration   time.Duration
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Booking struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	ProviderID uuid.UUID
	OfferingID uuid.UUID
	StartTime  time.Time
	EndTime    time.Time
	Status     Status
	Price      int64 // cents, frozen at creation
	Notes      string

	CancellationReason string
	CancellationNotes  string
	CancellationFee    *int64 // cents, set only on customer cancellation

	HasReview bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
