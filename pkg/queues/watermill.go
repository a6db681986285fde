package queues

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cadenza-io/cadenza/pkg/events"
)

// WatermillNotificationProducer publishes notification enqueue requests to
// the notification topic.
type WatermillNotificationProducer struct {
	publisher message.Publisher
}

func NewWatermillNotificationProducer(publisher message.Publisher) *WatermillNotificationProducer {
	return &WatermillNotificationProducer{publisher: publisher}
}

func (p *WatermillNotificationProducer) EnqueueNotification(ctx context.Context, notification Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, notification.RecipientUserID)

	if err := p.publisher.Publish(events.NotificationTopic, msg); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	return nil
}

// WatermillMediaJobProducer publishes media jobs over the message channel.
// Used when no Redis stream is configured.
type WatermillMediaJobProducer struct {
	publisher message.Publisher
}

func NewWatermillMediaJobProducer(publisher message.Publisher) *WatermillMediaJobProducer {
	return &WatermillMediaJobProducer{publisher: publisher}
}

func (p *WatermillMediaJobProducer) EnqueueMediaJob(_ context.Context, job MediaJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal media job: %w", err)
	}

	msg := message.NewMessage(watermill.NewULID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, job.AssetID)

	if err := p.publisher.Publish(MediaJobStream, msg); err != nil {
		return fmt.Errorf("failed to enqueue media job: %w", err)
	}

	return nil
}
