package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	TypeForecastUpdated   = "forecast.updated"
	TypeInsightsGenerated = "insights.generated"
)

// Event is the envelope broadcast to UI subscribers
type Event struct {
	Type       string    `json:"type"`
	ProductID  int64     `json:"product_id"`
	Payload    any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher broadcasts engine events. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type redisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) Publisher {
	return &redisPublisher{client: client, channel: channel}
}

func (p *redisPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

type noopPublisher struct{}

func NewNoopPublisher() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, Event) error { return nil }
