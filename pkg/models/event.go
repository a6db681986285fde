package models

// Event is an inbound domain event submitted by any business module. Unknown
// event types are not an error; they simply match zero workflows.
type Event struct {
	OrganizationID string         `json:"organization_id" validate:"required"`
	EventType      string         `json:"event_type"      validate:"required"`
	EntityType     string         `json:"entity_type"     validate:"required"`
	EntityID       string         `json:"entity_id"       validate:"required"`
	Payload        map[string]any `json:"payload"`
}

// WorkflowOutcome is the per-workflow result surfaced to the event submitter.
type WorkflowOutcome struct {
	WorkflowID  string `json:"workflow_id"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	ActionCount int    `json:"action_count,omitempty"`
	Error       string `json:"error,omitempty"`
}

// EventSummary aggregates the outcome of every candidate workflow for one event.
type EventSummary struct {
	EventType         string            `json:"event_type"`
	EntityType        string            `json:"entity_type"`
	EntityID          string            `json:"entity_id"`
	ExecutedWorkflows []WorkflowOutcome `json:"executed_workflows"`
}
