package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	eventKeyPrefix = "stripe:event:"
	// Stripe retries a failing webhook for up to three days.
	DefaultEventTTL = 72 * time.Hour
)

// EventLedger remembers which Stripe events are being or have been processed.
type EventLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewEventLedger(client *redis.Client, ttl time.Duration) *EventLedger {
	if ttl <= 0 {
		ttl = DefaultEventTTL
	}
	return &EventLedger{client: client, ttl: ttl}
}

// Claim marks the event as taken. It returns false when another delivery of
// the same event already claimed it.
func (l *EventLedger) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, eventKeyPrefix+eventID, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim stripe event %s: %w", eventID, err)
	}
	return ok, nil
}

// Release forgets a claim so a retried delivery is processed again.
func (l *EventLedger) Release(ctx context.Context, eventID string) error {
	if err := l.client.Del(ctx, eventKeyPrefix+eventID).Err(); err != nil {
		return fmt.Errorf("failed to release stripe event %s: %w", eventID, err)
	}
	return nil
}
