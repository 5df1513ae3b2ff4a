package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/glowbook/booking-service/internal/booking"
)

type CreateBookingRequest struct {
	OfferingID string `json:"offering_id"`
	StartTime  string `json:"start_time"` // RFC 3339
	Notes      string `json:"notes,omitempty"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`
}

type BookingResponse struct {
	ID                 uuid.UUID `json:"id"`
	CustomerID         uuid.UUID `json:"customer_id"`
	ProviderID         uuid.UUID `json:"provider_id"`
	OfferingID         uuid.UUID `json:"offering_id"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	Status             string    `json:"status"`
	Price              int64     `json:"price"`
	Notes              string    `json:"notes,omitempty"`
	CancellationReason string    `json:"cancellation_reason,omitempty"`
	CancellationNotes  string    `json:"cancellation_notes,omitempty"`
	CancellationFee    *int64    `json:"cancellation_fee,omitempty"`
	HasReview          bool      `json:"has_review"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		CustomerID:         b.CustomerID,
		ProviderID:         b.ProviderID,
		OfferingID:         b.OfferingID,
		StartTime:          b.StartTime,
		EndTime:            b.EndTime,
		Status:             string(b.Status),
		Price:              b.Price,
		Notes:              b.Notes,
		CancellationReason: b.CancellationReason,
		CancellationNotes:  b.CancellationNotes,
		CancellationFee:    b.CancellationFee,
		HasReview:          b.HasReview,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}
