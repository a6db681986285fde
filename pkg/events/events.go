// Package events defines event types and structures for engine lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Kafka topics.
const Topic = "cadenza.events"                    // Lifecycle events
const NotificationTopic = "cadenza.notifications" // Outbound notification enqueues

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Definition lifecycle events.
	WorkflowCreatedEvent   EventType = "workflow.created"
	WorkflowPublishedEvent EventType = "workflow.published"
	WorkflowPausedEvent    EventType = "workflow.paused"

	// Execution events.
	ExecutionCompletedEvent EventType = "workflow.execution.completed"

	// Collaborator events.
	TicketCreatedEvent EventType = "support.ticket.created"
)

type BaseEvent struct {
	ID             string         `json:"id"`
	Type           EventType      `json:"type"`
	Timestamp      time.Time      `json:"timestamp"`
	OrganizationID string         `json:"organization_id"`
	WorkflowID     string         `json:"workflow_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, organizationID, workflowID string) BaseEvent {
	return BaseEvent{
		ID:             uuid.New().String(),
		Type:           eventType,
		Timestamp:      time.Now().UTC(),
		OrganizationID: organizationID,
		WorkflowID:     workflowID,
	}
}

type WorkflowCreated struct {
	BaseEvent

	TriggerEvent string `json:"trigger_event"`
	ActionCount  int    `json:"action_count"`
}

func (w WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

type WorkflowPublished struct {
	BaseEvent

	VersionID     string `json:"version_id"`
	VersionNumber int    `json:"version_number"`
}

func (w WorkflowPublished) GetType() EventType {
	return WorkflowPublishedEvent
}

type WorkflowPaused struct {
	BaseEvent
}

func (w WorkflowPaused) GetType() EventType {
	return WorkflowPausedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	EntityType  string `json:"entity_type"`
	EntityID    string `json:"entity_id"`
	Status      string `json:"status"`
	DryRun      bool   `json:"dry_run"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type TicketCreated struct {
	BaseEvent

	TicketID string `json:"ticket_id"`
	Title    string `json:"title"`
	Severity string `json:"severity"`
	Source   string `json:"source"`
}

func (t TicketCreated) GetType() EventType {
	return TicketCreatedEvent
}
