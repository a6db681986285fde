package models

import "time"

// ExecutionStatus is the overall outcome of one workflow evaluation attempt.
type ExecutionStatus string

const (
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusSkipped ExecutionStatus = "skipped"
	ExecutionStatusBlocked ExecutionStatus = "blocked"
	ExecutionStatusFailed  ExecutionStatus = "failed"
)

// ConditionDetail records one local condition comparison inside a trace entry.
type ConditionDetail struct {
	Field    string             `json:"field"`
	Op       ComparisonOperator `json:"op"`
	Expected any                `json:"expected"`
	Actual   any                `json:"actual"`
	Matched  bool               `json:"matched"`
}

// RuleTraceEntry is one node of the flattened depth-first evaluation trace.
// Node is only set for synthetic entries such as the loop-prevention guard.
type RuleTraceEntry struct {
	Node         string            `json:"node,omitempty"`
	NodeOperator ConditionOperator `json:"node_operator,omitempty"`
	Matched      bool              `json:"matched"`
	Conditions   []ConditionDetail `json:"conditions,omitempty"`
}

// ExecutionLog is the append-only record of one workflow's evaluation of one
// inbound event. It doubles as the audit trail and as the basis for the
// loop-prevention count; rows are never mutated after creation.
type ExecutionLog struct {
	ID                string           `json:"id"`
	OrganizationID    string           `json:"organization_id"`
	WorkflowID        string           `json:"workflow_id"`
	WorkflowVersionID string           `json:"workflow_version_id"`
	TriggerEvent      string           `json:"trigger_event"`
	EntityType        string           `json:"entity_type"`
	EntityID          string           `json:"entity_id"`
	DryRun            bool             `json:"dry_run"`
	Status            ExecutionStatus  `json:"status"`
	TriggerInput      map[string]any   `json:"trigger_input"`
	RulePath          []RuleTraceEntry `json:"rule_path"`
	ActionResults     []ActionResult   `json:"action_results"`
	ErrorMessage      string           `json:"error_message,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}
