package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/glowbook/booking-service/internal/booking"
	"github.com/glowbook/booking-service/internal/outbox"
)

// Consumer reads booking events off Kafka and drives the Notifier.
// Delivery failures are logged and the message is skipped; the booking state
// that produced the event is already committed and never revisited.
type Consumer struct {
	reader   *kafka.Reader
	notifier Notifier
}

type ConsumerConfig struct {
	Brokers string
	GroupID string
}

func NewConsumer(cfg ConsumerConfig, n Notifier) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: outbox.SplitBrokers(cfg.Brokers),
		GroupID: cfg.GroupID,
		GroupTopics: []string{
			booking.EventBookingCreated,
			booking.EventBookingConfirmed,
			booking.EventBookingCancelled,
			booking.EventBookingCompleted,
			booking.EventBookingReminder,
		},
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:   reader,
		notifier: n,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("kafka read error: %v", err)
			time.Sleep(1 * time.Second)
			continue
		}

		var payload outbox.Payload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			log.Printf("skip malformed event on %s: %v", msg.Topic, err)
			continue
		}

		if err := Dispatch(msg.Topic, payload, c.notifier); err != nil {
			log.Printf("notification delivery failed for %s booking %s: %v", msg.Topic, payload.BookingID, err)
		}
	}
}
