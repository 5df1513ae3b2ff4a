package notify

import (
	"fmt"
	"log"

	"github.com/glowbook/booking-service/internal/booking"
	"github.com/glowbook/booking-service/internal/outbox"
)

// Dispatch fans one booking event out to the parties its transition concerns:
// created goes to the provider, confirmed/completed/reminder go to the
// customer, cancelled (which covers declines and no-shows) goes to both.
func Dispatch(eventType string, p outbox.Payload, n Notifier) error {
	switch eventType {
	case booking.EventBookingCreated:
		return send(n, p.ProviderContact,
			"New booking request",
			fmt.Sprintf("Booking %s for %s at %s is awaiting your approval.",
				p.BookingID, p.ServiceName, humanTime(p.StartTime)))

	case booking.EventBookingConfirmed:
		return send(n, p.CustomerContact,
			"Booking confirmed",
			fmt.Sprintf("Your booking for %s at %s has been confirmed.",
				p.ServiceName, humanTime(p.StartTime)))

	case booking.EventBookingCancelled:
		body := joinNonEmpty(
			fmt.Sprintf("Booking %s for %s at %s has been cancelled.",
				p.BookingID, p.ServiceName, humanTime(p.StartTime)),
			reasonLine(p.Reason),
			feeLine(p.Fee),
		)
		if err := send(n, p.CustomerContact, "Booking cancelled", body); err != nil {
			return err
		}
		return send(n, p.ProviderContact, "Booking cancelled", body)

	case booking.EventBookingCompleted:
		return send(n, p.CustomerContact,
			"Booking completed",
			fmt.Sprintf("Your %s appointment is complete. Thanks for visiting!", p.ServiceName))

	case booking.EventBookingReminder:
		return send(n, p.CustomerContact,
			"Upcoming appointment",
			fmt.Sprintf("Reminder: your booking for %s starts at %s.",
				p.ServiceName, humanTime(p.StartTime)))

	default:
		log.Printf("[notify] skip unknown event type %s", eventType)
		return nil
	}
}

func send(n Notifier, recipient, subject, body string) error {
	if recipient == "" {
		log.Printf("[notify] no recipient for %q, skipping", subject)
		return nil
	}
	return n.Notify(recipient, subject, body)
}

func reasonLine(reason string) string {
	if reason == "" {
		return ""
	}
	return fmt.Sprintf("Reason: %s.", reason)
}

func feeLine(fee *int64) string {
	if fee == nil || *fee == 0 {
		return ""
	}
	return fmt.Sprintf("A cancellation fee of %d.%02d applies.", *fee/100, *fee%100)
}
