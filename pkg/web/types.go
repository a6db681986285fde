// Package web provides HTTP request and response types for the workflow API.
package web

import "time"

// TriggerRequest describes the event subscription of a new workflow.
type TriggerRequest struct {
	EventType string `json:"eventType" validate:"required"`
	Source    string `json:"source,omitempty"`
}

// ActionRequest is one ordered action in a proposed definition.
type ActionRequest struct {
	ActionType string         `json:"actionType" validate:"required"`
	OrderIndex int            `json:"orderIndex" validate:"gte=0"`
	Config     map[string]any `json:"config"`
}

// CreateWorkflowRequest represents the request body for creating a new workflow.
// The condition tree is accepted as raw JSON and parsed leniently; structural
// problems surface through definition validation, not through binding.
type CreateWorkflowRequest struct {
	Name                 string          `json:"name"                         validate:"required,min=3"`
	Description          string          `json:"description"`
	Trigger              TriggerRequest  `json:"trigger"                      validate:"required"`
	ConditionTree        any             `json:"conditionTree,omitempty"`
	Actions              []ActionRequest `json:"actions"                      validate:"required,min=1,dive"`
	DryRunEnabled        bool            `json:"dryRunEnabled"`
	KillSwitchEnabled    bool            `json:"killSwitchEnabled"`
	MaxExecutionsPerHour uint            `json:"maxExecutionsPerHour"`
	ActivationStartsAt   *time.Time      `json:"activationStartsAt,omitempty"`
	ActivationEndsAt     *time.Time      `json:"activationEndsAt,omitempty"`
}

// DryRunRequest carries a hypothetical trigger payload for simulation.
type DryRunRequest struct {
	TriggerInput map[string]any `json:"triggerInput" validate:"required"`
}

// IngestEventRequest represents an inbound domain event.
type IngestEventRequest struct {
	EventType  string         `json:"eventType"  validate:"required"`
	EntityType string         `json:"entityType" validate:"required"`
	EntityID   string         `json:"entityId"   validate:"required"`
	Payload    map[string]any `json:"payload"`
}
