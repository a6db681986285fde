// Package eventbus provides event-driven communication infrastructure for
// engine lifecycle notifications.
package eventbus

import (
	"context"
	"log/slog"

	"github.com/cadenza-io/cadenza/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event interface{}) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

// PublishBestEffort publishes an event and only logs failures. Confined to
// telemetry and alerting paths; never used where the outcome affects an
// execution log's status.
func PublishBestEffort(ctx context.Context, logger *slog.Logger, publisher EventPublisher, key string, event Event) {
	if publisher == nil {
		return
	}

	if err := publisher.Publish(ctx, key, event); err != nil {
		logger.WarnContext(ctx, "Failed to publish lifecycle event",
			"event_type", event.GetType(), "key", key, "error", err)
	}
}
