package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/util"
)

// AccessNotification is what the customer needs to reach their locker.
type AccessNotification struct {
	OrderID     int64          `json:"orderId"`
	Kind        model.CodeKind `json:"kind"`
	Code        string         `json:"code"`
	QRURL       string         `json:"qrUrl"`
	WindowStart *time.Time     `json:"windowStart,omitempty"`
	WindowEnd   *time.Time     `json:"windowEnd,omitempty"`
}

// Notifier hands issued codes to whatever delivers them to customers.
type Notifier interface {
	NotifyAccess(ctx context.Context, n AccessNotification) error
}

// QRCodeURL renders code as a QR image link under base.
func QRCodeURL(base, code string) string {
	return base + url.QueryEscape(code)
}

type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) NotifyAccess(_ context.Context, a AccessNotification) error {
	ev := log.Info().
		Int64("orderId", a.OrderID).
		Str("kind", string(a.Kind)).
		Str("code", util.MaskCode(a.Code))
	if a.WindowStart != nil && a.WindowEnd != nil {
		ev = ev.Time("windowStart", *a.WindowStart).Time("windowEnd", *a.WindowEnd)
	}
	ev.Msg("access code issued")
	return nil
}

// NotificationOutbox is the queue the mailer drains. *redis.Client from
// internal/redis implements it.
type NotificationOutbox interface {
	PushNotification(ctx context.Context, payload []byte) error
}

// RedisOutboxNotifier pushes notifications onto the Redis outbox consumed by
// the mailer.
type RedisOutboxNotifier struct {
	outbox NotificationOutbox
}

func NewRedisOutboxNotifier(outbox NotificationOutbox) *RedisOutboxNotifier {
	return &RedisOutboxNotifier{outbox: outbox}
}

func (n *RedisOutboxNotifier) NotifyAccess(ctx context.Context, a AccessNotification) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := n.outbox.PushNotification(ctx, payload); err != nil {
		return fmt.Errorf("push notification: %w", err)
	}
	return nil
}
