package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces every key and channel the locker server touches, so
// the instance can share a Redis with the booking site.
const keyPrefix = "locker"

// NotificationOutboxKey is the list access notifications are pushed onto for
// the mailer to consume.
const NotificationOutboxKey = keyPrefix + ":notifications:outbox"

// EventChannel is the pub/sub channel carrying operator events for a topic.
func EventChannel(topic string) string {
	return fmt.Sprintf("%s:events:%s", keyPrefix, topic)
}

// RateLimitKey is the sorted set holding request timestamps for one limiter
// bucket, e.g. RateLimitKey("ip:login:10.0.0.7").
func RateLimitKey(bucket string) string {
	return fmt.Sprintf("%s:ratelimit:%s", keyPrefix, bucket)
}

// Client is the server's Redis connection. It carries the door event
// channels, the notification outbox and the rate limiter buckets.
type Client struct {
	*redis.Client
}

// NewClient connects and pings. The server refuses to start without Redis
// since login rate limiting fails closed.
func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	c := &Client{redis.NewClient(opts)}
	if err := c.Ping(context.Background()).Err(); err != nil {
		c.Client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return c, nil
}

// PublishEvent sends an encoded event to every server instance subscribed to
// topic.
func (c *Client) PublishEvent(ctx context.Context, topic string, payload []byte) error {
	return c.Publish(ctx, EventChannel(topic), payload).Err()
}

// SubscribeEvents opens a subscription on topic's channel. The caller closes
// it.
func (c *Client) SubscribeEvents(ctx context.Context, topic string) *redis.PubSub {
	return c.Subscribe(ctx, EventChannel(topic))
}

// PushNotification queues an encoded access notification for the mailer.
func (c *Client) PushNotification(ctx context.Context, payload []byte) error {
	return c.LPush(ctx, NotificationOutboxKey, payload).Err()
}

// OutboxLen reports how many notifications the mailer has not picked up yet.
func (c *Client) OutboxLen(ctx context.Context) (int64, error) {
	return c.LLen(ctx, NotificationOutboxKey).Result()
}
