package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Payload is the JSON body of a booking event as written to the outbox and
// published to Kafka. The topic name equals the event type.
type Payload struct {
	BookingID       string    `json:"booking_id"`
	ServiceName     string    `json:"service_name"`
	StartTime       time.Time `json:"start_time"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason,omitempty"`
	Fee             *int64    `json:"fee,omitempty"`
	CustomerContact string    `json:"customer_contact,omitempty"`
	ProviderContact string    `json:"provider_contact,omitempty"`
}

// Record is a stored outbox row awaiting publication.
type Record struct {
	ID        int64
	EventType string
	BookingID uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}
