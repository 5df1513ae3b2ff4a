package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/glowbook/booking-service/internal/booking"
)

func createBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_actor", "no authenticated profile")
			return
		}

		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		offeringID, err := uuid.Parse(req.OfferingID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_offering_id", "offering_id must be a valid UUID")
			return
		}

		startTime, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be RFC 3339")
			return
		}

		b, err := svc.Create(r.Context(), actor, offeringID, startTime, req.Notes)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBookingResponse(b))
	}
}

func getBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := actorAndID(w, r)
		if !ok {
			return
		}

		b, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func listBookingsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_actor", "no authenticated profile")
			return
		}

		f := booking.ListFilter{
			Status: booking.Status(r.URL.Query().Get("status")),
			Limit:  queryInt(r, "limit"),
			Offset: queryInt(r, "offset"),
		}

		bookings, err := svc.ListForActor(r.Context(), actor, f)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]BookingResponse, 0, len(bookings))
		for i := range bookings {
			resp = append(resp, toBookingResponse(&bookings[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func approveBookingHandler(svc *booking.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, actor booking.Actor, id uuid.UUID) (*booking.Booking, error) {
		return svc.Approve(r.Context(), actor, id)
	})
}

func declineBookingHandler(svc *booking.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, actor booking.Actor, id uuid.UUID) (*booking.Booking, error) {
		return svc.Decline(r.Context(), actor, id)
	})
}

func cancelBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := actorAndID(w, r)
		if !ok {
			return
		}

		var req CancelBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		b, err := svc.Cancel(r.Context(), actor, id, req.Reason, req.Notes)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func completeBookingHandler(svc *booking.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, actor booking.Actor, id uuid.UUID) (*booking.Booking, error) {
		return svc.Complete(r.Context(), actor, id)
	})
}

func noShowBookingHandler(svc *booking.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, actor booking.Actor, id uuid.UUID) (*booking.Booking, error) {
		return svc.MarkNoShow(r.Context(), actor, id)
	})
}

func reviewBookingHandler(svc *booking.Service) http.HandlerFunc {
	return transitionHandler(func(r *http.Request, actor booking.Actor, id uuid.UUID) (*booking.Booking, error) {
		return svc.MarkReviewed(r.Context(), actor, id)
	})
}

// transitionHandler wraps the body-less lifecycle operations.
func transitionHandler(op func(r *http.Request, actor booking.Actor, id uuid.UUID) (*booking.Booking, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := actorAndID(w, r)
		if !ok {
			return
		}

		b, err := op(r, actor, id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func actorAndID(w http.ResponseWriter, r *http.Request) (booking.Actor, uuid.UUID, bool) {
	actor, ok := GetActor(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_actor", "no authenticated profile")
		return booking.Actor{}, uuid.Nil, false
	}

	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
		return booking.Actor{}, uuid.Nil, false
	}

	return actor, id, true
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, booking.ErrOfferingNotFound):
		writeError(w, http.StatusNotFound, "offering_not_found", err.Error())
	case errors.Is(err, booking.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "profile_not_found", err.Error())
	case errors.Is(err, booking.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, booking.ErrIllegalTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, booking.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, booking.ErrAlreadyReviewed):
		writeError(w, http.StatusConflict, "already_reviewed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "something went wrong, please try again")
	}
}
