package redisbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

// Publisher publishes fire-and-forget payloads on Redis pub/sub channels.
// There is no delivery guarantee: a message published with no subscriber
// listening at that moment is lost.
type Publisher struct {
	client *redis.Client
	logger *slog.Logger
}

func NewPublisher(client *redis.Client, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, logger: logger.With("component", "redis_publisher")}
}

// Publish sends payload on the named channel. The subscriber count is logged at
// debug level; zero subscribers is not an error.
func (p *Publisher) Publish(ctx context.Context, channel string, payload []byte) error {
	receivers, err := p.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish on channel %q: %w", channel, err)
	}
	p.logger.DebugContext(ctx, "Published on redis channel", "channel", channel, "receivers", receivers)
	return nil
}
