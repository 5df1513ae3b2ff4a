package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DayMarker records the last calendar date the reminder scan ran for a
// customer. Coarse on purpose: a cleared marker means at-least-once delivery,
// not exactly-once.
type DayMarker interface {
	LastChecked(ctx context.Context, customerID uuid.UUID) (string, error)
	SetChecked(ctx context.Context, customerID uuid.UUID, date string) error
}

type redisDayMarker struct {
	client *redis.Client
}

func NewRedisDayMarker(client *redis.Client) DayMarker {
	return &redisDayMarker{client: client}
}

func (m *redisDayMarker) LastChecked(ctx context.Context, customerID uuid.UUID) (string, error) {
	key := markerKey(customerID)
	val, err := m.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("get reminder marker %s: %w", key, err)
	}
	return val, nil
}

func (m *redisDayMarker) SetChecked(ctx context.Context, customerID uuid.UUID, date string) error {
	key := markerKey(customerID)
	// 48h expiry keeps stale markers from piling up; the value only has to
	// survive until the following day's scan.
	if err := m.client.Set(ctx, key, date, 48*time.Hour).Err(); err != nil {
		return fmt.Errorf("set reminder marker %s: %w", key, err)
	}
	return nil
}

func markerKey(customerID uuid.UUID) string {
	return fmt.Sprintf("reminder:checked:%s", customerID.String())
}
