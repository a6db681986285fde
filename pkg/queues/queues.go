// Package queues provides producers for the notification queue and the
// media-processing job queue. Both are fire-and-forget from the engine's
// perspective; failures propagate to the caller as dispatch errors.
package queues

import "context"

// Notification is one outbound notification enqueue request.
type Notification struct {
	RecipientUserID string         `json:"recipient_user_id"`
	Channel         string         `json:"channel"`
	Template        string         `json:"template"`
	Variables       map[string]any `json:"variables,omitempty"`
}

// MediaJob is one media-processing job enqueue request.
type MediaJob struct {
	AssetID   string `json:"asset_id"`
	SourceURL string `json:"source_url"`
	Operation string `json:"operation"`
}

type NotificationProducer interface {
	EnqueueNotification(ctx context.Context, notification Notification) error
}

type MediaJobProducer interface {
	EnqueueMediaJob(ctx context.Context, job MediaJob) error
}
