// Package workflow implements the automation engine: condition evaluation,
// definition validation, version lifecycle, event execution and dry-run
// simulation.
package workflow

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cadenza-io/cadenza/pkg/models"
)

// Evaluate recursively evaluates a condition tree against an event payload.
// It is a pure function: no I/O, no errors. Malformed values err toward a
// false match. The returned trace holds one entry per node, flattened
// depth-first with each node's entry prepended before its children's.
func Evaluate(node *models.ConditionNode, payload map[string]any) (bool, []models.RuleTraceEntry) {
	if node == nil {
		node = &models.ConditionNode{Operator: models.ConditionOperatorAnd}
	}

	details := make([]models.ConditionDetail, 0, len(node.Conditions))
	results := make([]bool, 0, len(node.Conditions)+len(node.Groups))

	for _, condition := range node.Conditions {
		matched := evaluateCondition(condition, payload)
		details = append(details, models.ConditionDetail{
			Field:    condition.Field,
			Op:       condition.Op,
			Expected: condition.Value,
			Actual:   payload[condition.Field],
			Matched:  matched,
		})
		results = append(results, matched)
	}

	childTraces := make([][]models.RuleTraceEntry, 0, len(node.Groups))

	for _, group := range node.Groups {
		childMatched, childTrace := Evaluate(group, payload)
		results = append(results, childMatched)
		childTraces = append(childTraces, childTrace)
	}

	// AND over an empty set is vacuously true, OR vacuously false.
	matched := combine(node.Operator, results)

	trace := make([]models.RuleTraceEntry, 0, 1+len(node.Groups))
	trace = append(trace, models.RuleTraceEntry{
		NodeOperator: node.Operator,
		Matched:      matched,
		Conditions:   details,
	})

	for _, childTrace := range childTraces {
		trace = append(trace, childTrace...)
	}

	return matched, trace
}

func combine(operator models.ConditionOperator, results []bool) bool {
	if operator == models.ConditionOperatorOr {
		for _, result := range results {
			if result {
				return true
			}
		}

		return false
	}

	for _, result := range results {
		if !result {
			return false
		}
	}

	return true
}

func evaluateCondition(condition models.Condition, payload map[string]any) bool {
	actual, present := payload[condition.Field]
	expected := condition.Value

	switch condition.Op {
	case models.ComparisonEq:
		return valuesEqual(actual, present, expected)
	case models.ComparisonNeq:
		return !valuesEqual(actual, present, expected)
	case models.ComparisonContains:
		if !present || actual == nil {
			return false
		}

		return strings.Contains(stringify(actual), stringify(expected))
	case models.ComparisonIn:
		// A non-sequence expected value is a false match, not an error.
		values, ok := expected.([]any)
		if !ok {
			return false
		}

		for _, value := range values {
			if valuesEqual(actual, present, value) {
				return true
			}
		}

		return false
	case models.ComparisonGt:
		return toNumber(actual) > toNumber(expected)
	case models.ComparisonGte:
		return toNumber(actual) >= toNumber(expected)
	case models.ComparisonLt:
		return toNumber(actual) < toNumber(expected)
	case models.ComparisonLte:
		return toNumber(actual) <= toNumber(expected)
	default:
		return false
	}
}

// valuesEqual applies strict equality with field presence: an absent field
// never equals an explicit null, only a field that is present and null does.
func valuesEqual(actual any, present bool, expected any) bool {
	if expected == nil {
		return present && actual == nil
	}

	return strictEquals(actual, expected)
}

// strictEquals mirrors strict value equality: differing types never match,
// numeric kinds compare by value.
func strictEquals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if aNum, aOK := asNumber(a); aOK {
		bNum, bOK := asNumber(b)

		return bOK && aNum == bNum
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)

		return ok && av == bv
	case bool:
		bv, ok := b.(bool)

		return ok && av == bv
	default:
		// Composite values (maps, slices) never compare equal.
		return false
	}
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	default:
		return 0, false
	}
}

// toNumber coerces a value for numeric comparison. Anything non-numeric
// becomes NaN, which fails every comparison instead of raising.
func toNumber(value any) float64 {
	if number, ok := asNumber(value); ok {
		return number
	}

	switch v := value.(type) {
	case string:
		number, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return math.NaN()
		}

		return number
	case bool:
		if v {
			return 1
		}

		return 0
	default:
		return math.NaN()
	}
}

func stringify(value any) string {
	if value == nil {
		return ""
	}

	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprint(value)
}
