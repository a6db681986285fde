package models

// ActionType identifies one entry of the closed action catalog.
type ActionType string

const (
	ActionSendNotification       ActionType = "send_notification"
	ActionCreateTicket           ActionType = "create_ticket"
	ActionApplyLabel             ActionType = "apply_label"
	ActionEnqueueJob             ActionType = "enqueue_job"
	ActionInvokeInternalEndpoint ActionType = "invoke_internal_endpoint"
)

// WorkflowAction is one ordered side-effecting step of a workflow version.
// OrderIndex values are unique within a version so execution order is
// deterministic.
type WorkflowAction struct {
	ActionType ActionType     `json:"action_type"`
	OrderIndex int            `json:"order_index"`
	Config     map[string]any `json:"config"`
}

// ConfigString returns a string config value, or fallback when the key is
// absent or empty.
func (a WorkflowAction) ConfigString(key, fallback string) string {
	if value, ok := a.Config[key].(string); ok && value != "" {
		return value
	}

	return fallback
}

// ActionResultStatus is the per-action outcome recorded in execution logs.
type ActionResultStatus string

const (
	ActionResultExecuted ActionResultStatus = "executed"
	ActionResultDryRun   ActionResultStatus = "dry_run"
	ActionResultSkipped  ActionResultStatus = "skipped"
)

// ActionResult is the recorded outcome of dispatching (or simulating) one action.
type ActionResult struct {
	ActionType ActionType         `json:"action_type"`
	Status     ActionResultStatus `json:"status"`
	Endpoint   string             `json:"endpoint,omitempty"`
}
