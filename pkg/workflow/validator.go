package workflow

import (
	"fmt"
	"sort"

	"github.com/cadenza-io/cadenza/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ValidationResult is the outcome of statically checking a workflow
// definition. Errors is a structured list of messages; nothing is persisted
// when Valid is false.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Per-action-type config schemas. Configs are permissive key/value maps at
// the dispatch boundary; the schemas only pin down types for the keys the
// dispatcher reads.
var actionConfigSchemas = map[models.ActionType]string{
	models.ActionSendNotification: `{
		"type": "object",
		"properties": {
			"recipientUserId": {"type": "string"},
			"channel": {"type": "string", "enum": ["email", "push"]},
			"template": {"type": "string"}
		}
	}`,
	models.ActionCreateTicket: `{
		"type": "object",
		"properties": {
			"title": {"type": "string"},
			"description": {"type": "string"},
			"severity": {"type": "string", "enum": ["p0", "p1", "p2", "p3"]}
		}
	}`,
	models.ActionApplyLabel: `{
		"type": "object",
		"properties": {
			"label": {"type": "string"}
		}
	}`,
	models.ActionEnqueueJob: `{
		"type": "object",
		"properties": {
			"queue": {"type": "string"},
			"assetId": {"type": "string"},
			"sourceUrl": {"type": "string"},
			"operation": {"type": "string", "enum": ["metadata", "thumbnail", "proxy"]},
			"recipientUserId": {"type": "string"},
			"channel": {"type": "string", "enum": ["email", "push"]},
			"template": {"type": "string"}
		}
	}`,
	models.ActionInvokeInternalEndpoint: `{
		"type": "object",
		"properties": {
			"path": {"type": "string"}
		}
	}`,
}

// ValidateDefinition statically checks a proposed definition: the trigger
// event must be in the catalog, the root condition operator must be AND/OR,
// every action type must be known with a non-negative unique orderIndex, and
// each action config must satisfy its type's schema. Pure and side-effect
// free; called before persisting and on demand for stored definitions.
func ValidateDefinition(triggerEvent string, root *models.ConditionNode, actions []models.WorkflowAction) ValidationResult {
	errs := make([]string, 0)

	if !models.KnownTriggerEvent(triggerEvent) {
		errs = append(errs, fmt.Sprintf("Unsupported trigger event: %s", triggerEvent))
	}

	if root == nil || (root.Operator != models.ConditionOperatorAnd && root.Operator != models.ConditionOperatorOr) {
		errs = append(errs, "Condition group must include operator AND/OR")
	}

	for _, action := range actions {
		if !models.KnownActionType(action.ActionType) {
			errs = append(errs, fmt.Sprintf("Unsupported action type: %s", action.ActionType))

			continue
		}

		if action.OrderIndex < 0 {
			errs = append(errs, fmt.Sprintf("Action %s has invalid orderIndex", action.ActionType))
		}

		errs = append(errs, validateActionConfig(action)...)
	}

	// Duplicate order indices make execution order ambiguous.
	indexes := make([]int, 0, len(actions))
	for _, action := range actions {
		indexes = append(indexes, action.OrderIndex)
	}

	sort.Ints(indexes)

	for i := 1; i < len(indexes); i++ {
		if indexes[i] == indexes[i-1] {
			errs = append(errs, "Action orderIndex values must be unique for deterministic execution order")

			break
		}
	}

	return ValidationResult{
		Valid:  len(errs) == 0,
		Errors: errs,
	}
}

func validateActionConfig(action models.WorkflowAction) []string {
	schema, ok := actionConfigSchemas[action.ActionType]
	if !ok || action.Config == nil {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(action.Config),
	)
	if err != nil {
		return []string{fmt.Sprintf("Action %s has unreadable config: %v", action.ActionType, err)}
	}

	errs := make([]string, 0)
	for _, desc := range result.Errors() {
		errs = append(errs, fmt.Sprintf("Action %s config invalid: %s", action.ActionType, desc.String()))
	}

	return errs
}
