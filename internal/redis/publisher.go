package redisclient

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// EventPublisher pushes scheduling events onto a Redis channel for the
// external notification/reminder service. Delivery is fire-and-forget;
// the durable record is the store's event log.
type EventPublisher struct {
	client  *redis.Client
	channel string
}

func NewEventPublisher(client *redis.Client, channel string) *EventPublisher {
	return &EventPublisher{client: client, channel: channel}
}

func (p *EventPublisher) Publish(ctx context.Context, payload []byte) error {
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
