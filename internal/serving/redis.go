package serving

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"taxi-duration-lab/internal/domain"
	"taxi-duration-lab/internal/observability"
)

// DefaultChannel is the Redis channel predictions are published to.
const DefaultChannel = "taxi:predictions"

// RedisPublisher publishes prediction events to a Redis channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

var _ Publisher = (*RedisPublisher)(nil)

// NewRedisClient connects to url and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewRedisPublisher creates a publisher. An empty channel uses DefaultChannel.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Channel returns the channel name.
func (p *RedisPublisher) Channel() string {
	return p.channel
}

// Publish sends the prediction event as JSON.
func (p *RedisPublisher) Publish(ctx context.Context, pred *domain.PredictionResult) error {
	data, err := json.Marshal(NewEvent(pred))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	observability.RecordPublished("redis")
	return nil
}
