package models

import "time"

// VersionStatus represents the lifecycle state of a single workflow version.
type VersionStatus string

const (
	VersionStatusDraft     VersionStatus = "draft"
	VersionStatusPublished VersionStatus = "published"
	VersionStatusArchived  VersionStatus = "archived"
)

// WorkflowVersion is an immutable snapshot of a workflow's trigger, condition
// tree and ordered actions. Only its status changes after creation; exactly
// one version per workflow is published at a time.
type WorkflowVersion struct {
	ID                 string           `json:"id"`
	WorkflowID         string           `json:"workflow_id"`
	VersionNumber      int              `json:"version_number"`
	Status             VersionStatus    `json:"status"`
	TriggerConfig      WorkflowTrigger  `json:"trigger_config"`
	ConditionTree      *ConditionNode   `json:"condition_tree"`
	Actions            []WorkflowAction `json:"actions"`
	ActivationStartsAt *time.Time       `json:"activation_starts_at,omitempty"`
	ActivationEndsAt   *time.Time       `json:"activation_ends_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

// IsActiveAt reports whether the version's optional activation window
// includes the given instant. Nil bounds are open.
func (v *WorkflowVersion) IsActiveAt(now time.Time) bool {
	if v.ActivationStartsAt != nil && v.ActivationStartsAt.After(now) {
		return false
	}

	if v.ActivationEndsAt != nil && v.ActivationEndsAt.Before(now) {
		return false
	}

	return true
}
