// Package models defines the core domain models for tenant-scoped workflow automation.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft     WorkflowStatus = "draft"     // Editable, never executes
	WorkflowStatusPublished WorkflowStatus = "published" // Candidate for execution
	WorkflowStatusPaused    WorkflowStatus = "paused"    // Suppressed regardless of version state
)

const DefaultMaxExecutionsPerHour = 100

// WorkflowTrigger describes the domain event a workflow listens for.
type WorkflowTrigger struct {
	EventType string `json:"event_type" validate:"required"`
	Source    string `json:"source"`
	IsEnabled bool   `json:"is_enabled"`
}

// Workflow is an organization-scoped automation rule. Trigger, condition and
// action configuration live on its versions; the workflow itself carries the
// execution guards and the explicit pointer to the live published version.
type Workflow struct {
	ID                   string          `json:"id"`
	OrganizationID       string          `json:"organization_id" validate:"required"`
	Name                 string          `json:"name"            validate:"required,min=3"`
	Description          string          `json:"description"`
	Status               WorkflowStatus  `json:"status"`
	Trigger              WorkflowTrigger `json:"trigger"`
	DryRunEnabled        bool            `json:"dry_run_enabled"`
	KillSwitchEnabled    bool            `json:"kill_switch_enabled"`
	MaxExecutionsPerHour uint            `json:"max_executions_per_hour"`
	PublishedVersionID   string          `json:"published_version_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}
