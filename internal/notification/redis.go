package notification

import (
	"context"
	"encoding/json"

	goredis "github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// DefaultRedisChannel is the pub/sub channel reports are published on.
const DefaultRedisChannel = "crypto-monitor:reports"

// Publisher is the subset of *redis.Client used by RedisPublisher.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
}

// RedisPublisher publishes alerts as JSON on a Redis pub/sub channel so
// other services can consume cycle results.
type RedisPublisher struct {
	rdb     Publisher
	channel string
}

// NewRedisPublisher creates a publisher on channel (DefaultRedisChannel if
// empty).
func NewRedisPublisher(rdb Publisher, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisPublisher{rdb: rdb, channel: channel}
}

// Channel returns the pub/sub channel name.
func (p *RedisPublisher) Channel() string { return p.channel }

func (p *RedisPublisher) Send(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return errors.Wrap(err, "redis: marshal")
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return errors.Wrapf(err, "redis: publish %s", p.channel)
	}
	return nil
}
