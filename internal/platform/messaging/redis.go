package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ceto/internal/shared/events"

	goredis "github.com/redis/go-redis/v9"
)

// RedisPublisher fans events out over redis pub/sub. Each topic maps to the
// channel "<prefix>.<topic>".
type RedisPublisher struct {
	rdb    *goredis.Client
	prefix string
	logger *slog.Logger
}

func NewRedisPublisher(addr string, prefix string, logger *slog.Logger) (*RedisPublisher, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisPublisher(rdb, prefix, logger), nil
}

func newRedisPublisher(rdb *goredis.Client, prefix string, logger *slog.Logger) *RedisPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPublisher{
		rdb:    rdb,
		prefix: strings.Trim(strings.TrimSpace(prefix), "."),
		logger: logger,
	}
}

func (p *RedisPublisher) Channel(topic string) string {
	if p.prefix == "" {
		return topic
	}
	return p.prefix + "." + topic
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, event events.Envelope) error {
	if p == nil || p.rdb == nil {
		return fmt.Errorf("redis publisher not initialized")
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	channel := p.Channel(topic)
	if err := p.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	p.logger.Debug("event published",
		"event", "redis_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"channel", channel,
		"event_id", event.EventID,
	)
	return nil
}

func (p *RedisPublisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}
