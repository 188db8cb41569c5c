package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edumeet/errwatch-backend/internal/domain"
	"github.com/edumeet/errwatch-backend/pkg/logger"
)

// DefaultChannel is the pub/sub channel alerting consumers subscribe to
const DefaultChannel = "telemetry:critical"

// Notifier is the best-effort side channel for critical errors. Delivery is
// fire-and-forget: callers dispatch it detached and a failure never affects
// the ingestion response.
type Notifier interface {
	Notify(ctx context.Context, e *domain.StoredError) error
}

// alertPayload is what goes over the wire to alerting consumers
type alertPayload struct {
	ErrorID     string          `json:"error_id"`
	PageContext string          `json:"page_context"`
	Category    string          `json:"category"`
	Severity    domain.Severity `json:"severity"`
	Message     string          `json:"message"`
	ReceivedAt  string          `json:"received_at"`
}

// RedisNotifier publishes critical errors to a Redis pub/sub channel, the
// same transport the notification hub uses for real-time events.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier creates a notifier publishing to channel. An empty
// channel name falls back to DefaultChannel.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{client: client, channel: channel}
}

// Notify publishes the alert. A nil client reports unavailability instead of
// panicking, mirroring how the rest of the service degrades without Redis.
func (n *RedisNotifier) Notify(ctx context.Context, e *domain.StoredError) error {
	if n.client == nil {
		return fmt.Errorf("redis unavailable, alert for %s dropped", e.ID)
	}
	payload, err := json.Marshal(alertPayload{
		ErrorID:     e.ID,
		PageContext: e.PageContext,
		Category:    e.Category,
		Severity:    e.Severity,
		Message:     e.Message,
		ReceivedAt:  e.ReceivedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

// LogNotifier writes the alert to the structured log. Used when Redis is not
// configured so critical errors still leave a trace.
type LogNotifier struct{}

// Notify logs the alert at error level
func (LogNotifier) Notify(_ context.Context, e *domain.StoredError) error {
	logger.GetLogger().Error().
		Str("error_id", e.ID).
		Str("page_context", e.PageContext).
		Str("category", e.Category).
		Str("severity", string(e.Severity)).
		Str("message", e.Message).
		Msg("critical error reported")
	return nil
}
