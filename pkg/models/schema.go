package models

// BuilderSchema exposes the fixed catalogs the engine accepts so a
// caller-facing UI or CLI can present valid choices. Both the condition
// language and the action catalog are closed sets.
type BuilderSchema struct {
	TriggerEvents       []string             `json:"trigger_events"`
	ConditionOperators  []ConditionOperator  `json:"condition_operators"`
	ComparisonOperators []ComparisonOperator `json:"comparison_operators"`
	ActionTypes         []ActionType         `json:"action_types"`
}

// TriggerEvents is the catalog of domain event types workflows may subscribe
// to, validated at definition time rather than at event submission.
func TriggerEvents() []string {
	return []string{
		"lead_created",
		"lead_converted",
		"booking_created",
		"booking_updated",
		"rental_state_changed",
		"invoice_overdue",
		"invoice_paid",
		"dispute_opened",
		"dispute_resolved",
	}
}

func ConditionOperators() []ConditionOperator {
	return []ConditionOperator{ConditionOperatorAnd, ConditionOperatorOr}
}

func ComparisonOperators() []ComparisonOperator {
	return []ComparisonOperator{
		ComparisonEq,
		ComparisonNeq,
		ComparisonIn,
		ComparisonContains,
		ComparisonGt,
		ComparisonGte,
		ComparisonLt,
		ComparisonLte,
	}
}

func ActionTypes() []ActionType {
	return []ActionType{
		ActionSendNotification,
		ActionCreateTicket,
		ActionApplyLabel,
		ActionEnqueueJob,
		ActionInvokeInternalEndpoint,
	}
}

// NewBuilderSchema assembles the full read-only schema document.
func NewBuilderSchema() BuilderSchema {
	return BuilderSchema{
		TriggerEvents:       TriggerEvents(),
		ConditionOperators:  ConditionOperators(),
		ComparisonOperators: ComparisonOperators(),
		ActionTypes:         ActionTypes(),
	}
}

// KnownTriggerEvent reports whether eventType is part of the trigger catalog.
func KnownTriggerEvent(eventType string) bool {
	for _, known := range TriggerEvents() {
		if known == eventType {
			return true
		}
	}

	return false
}

// KnownActionType reports whether actionType is part of the action catalog.
func KnownActionType(actionType ActionType) bool {
	for _, known := range ActionTypes() {
		if known == actionType {
			return true
		}
	}

	return false
}
