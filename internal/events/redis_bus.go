package events

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
)

// RedisPubSubClient is the minimal interface for Redis Pub/Sub operations.
// Implemented by infra.GoRedisAdapter.
type RedisPubSubClient interface {
	// Publish sends a message to a Redis channel.
	Publish(ctx context.Context, channel string, message []byte) error

	// Subscribe registers a callback for messages on a channel.
	// Returns an unsubscribe function.
	Subscribe(ctx context.Context, channel string, handler func([]byte)) (unsubscribe func(), err error)
}

// knownEventTypes enumerates the channels a RedisEventBus listens on.
var knownEventTypes = []string{
	EventAutonomyDecided,
	EventGuardianReport,
	EventReleaseCreated,
	EventReleaseQC,
	EventReleaseAuthorized,
	EventReleaseDenied,
	EventReleaseExecuted,
	EventReleaseRolledBack,
	EventIncidentLogged,
	EventIncidentResolved,
}

// RedisEventBus distributes CloudEvents across pods using Redis Pub/Sub.
// In a multi-pod deployment the in-memory EventBus only delivers within a
// single process; this bus makes events published on pod 1 visible to SSE
// subscribers on pod 2. Events arriving from Redis (including the pod's
// own publishes) are fanned out to the embedded in-memory bus.
type RedisEventBus struct {
	*EventBus

	pubsub     RedisPubSubClient
	prefix     string // Redis channel prefix, e.g. "firmos:events:"
	unsubFuncs []func()
	logger     *log.Logger
}

// NewRedisEventBus creates a Redis-backed event bus and subscribes to all
// FirmOS event channels.
func NewRedisEventBus(client RedisPubSubClient, channelPrefix string) *RedisEventBus {
	if channelPrefix == "" {
		channelPrefix = "firmos:events:"
	}

	bus := &RedisEventBus{
		EventBus: NewEventBus(),
		pubsub:   client,
		prefix:   channelPrefix,
		logger:   log.New(log.Writer(), "[REDIS-EVENTS] ", log.LstdFlags),
	}

	for _, et := range knownEventTypes {
		channel := bus.prefix + et
		unsub, err := client.Subscribe(context.Background(), channel, func(data []byte) {
			var event CloudEvent
			if err := json.Unmarshal(data, &event); err != nil {
				slog.Warn("[RedisEventBus] Failed to unmarshal event", "error", err)
				return
			}
			bus.EventBus.Publish(&event)
		})
		if err != nil {
			slog.Warn("[RedisEventBus] Redis subscribe failed, local-only for type",
				"type", et, "error", err)
			continue
		}
		bus.unsubFuncs = append(bus.unsubFuncs, unsub)
	}

	return bus
}

// Emit publishes the event to Redis so all pods (including this one, via
// its own subscription) deliver it. On publish failure it falls back to
// local-only delivery.
func (b *RedisEventBus) Emit(eventType, source, subject string, data map[string]interface{}) {
	event := NewCloudEvent(eventType, source, subject, data)

	payload, err := event.JSON()
	if err != nil {
		b.logger.Printf("❌ Failed to marshal event %s: %v", event.ID, err)
		return
	}

	channel := b.prefix + event.Type
	if err := b.pubsub.Publish(context.Background(), channel, payload); err != nil {
		slog.Warn("[RedisEventBus] Publish failed, falling back to local",
			"type", event.Type, "error", err)
		b.EventBus.Publish(event)
	}
}

// Close tears down the Redis subscriptions.
func (b *RedisEventBus) Close() error {
	for _, unsub := range b.unsubFuncs {
		unsub()
	}
	b.unsubFuncs = nil
	b.logger.Printf("🔌 Redis event bus closed")
	return nil
}

// ensure interface compatibility
var _ EventEmitter = (*RedisEventBus)(nil)
