package workflow

import (
	"testing"

	"github.com/cadenza-io/cadenza/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_EmptyAndNodeIsVacuouslyTrue(t *testing.T) {
	t.Parallel()

	node := &models.ConditionNode{Operator: models.ConditionOperatorAnd}

	matched, trace := Evaluate(node, map[string]any{"anything": "at all"})

	assert.True(t, matched)
	require.Len(t, trace, 1)
	assert.True(t, trace[0].Matched)
}

func TestEvaluate_EmptyOrNodeIsVacuouslyFalse(t *testing.T) {
	t.Parallel()

	node := &models.ConditionNode{Operator: models.ConditionOperatorOr}

	matched, _ := Evaluate(node, map[string]any{})

	assert.False(t, matched)
}

func TestEvaluate_NilNodeMatchesEverything(t *testing.T) {
	t.Parallel()

	matched, trace := Evaluate(nil, map[string]any{"priority": "high"})

	assert.True(t, matched)
	assert.Len(t, trace, 1)
}

func TestEvaluate_EqIsTypeStrict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		actual   any
		expected any
		matched  bool
	}{
		{"equal strings", "high", "high", true},
		{"different strings", "high", "low", false},
		{"string never equals number", "5", 5, false},
		{"numeric kinds cross-compare", 5, float64(5), true},
		{"bool equality", true, true, true},
		{"bool never equals number", true, 1, false},
		{"nil equals nil", nil, nil, true},
		{"nil never equals value", nil, "high", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			node := &models.ConditionNode{
				Operator:   models.ConditionOperatorAnd,
				Conditions: []models.Condition{{Field: "value", Op: models.ComparisonEq, Value: tt.expected}},
			}

			matched, _ := Evaluate(node, map[string]any{"value": tt.actual})

			assert.Equal(t, tt.matched, matched)
		})
	}
}

func TestEvaluate_NullExpectedRequiresPresentField(t *testing.T) {
	t.Parallel()

	eqNull := &models.ConditionNode{
		Operator:   models.ConditionOperatorAnd,
		Conditions: []models.Condition{{Field: "closedAt", Op: models.ComparisonEq, Value: nil}},
	}

	// An absent field is not the same as an explicit null.
	matched, _ := Evaluate(eqNull, map[string]any{})
	assert.False(t, matched)

	matched, _ = Evaluate(eqNull, map[string]any{"closedAt": nil})
	assert.True(t, matched)

	neqNull := &models.ConditionNode{
		Operator:   models.ConditionOperatorAnd,
		Conditions: []models.Condition{{Field: "closedAt", Op: models.ComparisonNeq, Value: nil}},
	}

	matched, _ = Evaluate(neqNull, map[string]any{})
	assert.True(t, matched)

	matched, _ = Evaluate(neqNull, map[string]any{"closedAt": nil})
	assert.False(t, matched)

	inWithNull := &models.ConditionNode{
		Operator:   models.ConditionOperatorAnd,
		Conditions: []models.Condition{{Field: "closedAt", Op: models.ComparisonIn, Value: []any{nil, "today"}}},
	}

	matched, _ = Evaluate(inWithNull, map[string]any{})
	assert.False(t, matched)

	matched, _ = Evaluate(inWithNull, map[string]any{"closedAt": nil})
	assert.True(t, matched)
}

func TestEvaluate_NeqInvertsEq(t *testing.T) {
	t.Parallel()

	node := &models.ConditionNode{
		Operator:   models.ConditionOperatorAnd,
		Conditions: []models.Condition{{Field: "status", Op: models.ComparisonNeq, Value: "closed"}},
	}

	matched, _ := Evaluate(node, map[string]any{"status": "open"})
	assert.True(t, matched)

	matched, _ = Evaluate(node, map[string]any{"status": "closed"})
	assert.False(t, matched)
}

func TestEvaluate_InRequiresSequenceValue(t *testing.T) {
	t.Parallel()

	inList := &models.ConditionNode{
		Operator:   models.ConditionOperatorAnd,
		Conditions: []models.Condition{{Field: "tier", Op: models.ComparisonIn, Value: []any{"gold", "silver"}}},
	}

	matched, _ := Evaluate(inList, map[string]any{"tier": "gold"})
	assert.True(t, matched)

	matched, _ = Evaluate(inList, map[string]any{"tier": "bronze"})
	assert.False(t, matched)

	// A scalar expected value is a false match, not an error.
	scalar := &models.ConditionNode{
		Operator:   models.ConditionOperatorAnd,
		Conditions: []models.Condition{{Field: "tier", Op: models.ComparisonIn, Value: "gold"}},
	}

	matched, _ = Evaluate(scalar, map[string]any{"tier": "gold"})
	assert.False(t, matched)
}

func TestEvaluate_ContainsAbsentFieldIsFalse(t *testing.T) {
	t.Parallel()

	node := &models.ConditionNode{
		Operator:   models.ConditionOperatorAnd,
		Conditions: []models.Condition{{Field: "notes", Op: models.ComparisonContains, Value: "urgent"}},
	}

	matched, _ := Evaluate(node, map[string]any{})
	assert.False(t, matched)

	matched, _ = Evaluate(node, map[string]any{"notes": nil})
	assert.False(t, matched)

	matched, _ = Evaluate(node, map[string]any{"notes": "this is urgent please"})
	assert.True(t, matched)
}

func TestEvaluate_NumericComparisonsCoerce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		op      models.ComparisonOperator
		actual  any
		value   any
		matched bool
	}{
		{"gt numbers", models.ComparisonGt, float64(10), float64(5), true},
		{"gt string coerces", models.ComparisonGt, "10", float64(5), true},
		{"gte equal", models.ComparisonGte, float64(5), float64(5), true},
		{"lt", models.ComparisonLt, float64(3), float64(5), true},
		{"lte boundary", models.ComparisonLte, float64(5), float64(5), true},
		{"non-numeric actual fails", models.ComparisonGt, "not a number", float64(5), false},
		{"non-numeric expected fails", models.ComparisonLt, float64(3), map[string]any{}, false},
		{"bool coerces to one", models.ComparisonGte, true, float64(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			node := &models.ConditionNode{
				Operator:   models.ConditionOperatorAnd,
				Conditions: []models.Condition{{Field: "amount", Op: tt.op, Value: tt.value}},
			}

			matched, _ := Evaluate(node, map[string]any{"amount": tt.actual})

			assert.Equal(t, tt.matched, matched)
		})
	}
}

func TestEvaluate_NestedGroups(t *testing.T) {
	t.Parallel()

	// priority == high AND (source == web OR source == mobile)
	node := &models.ConditionNode{
		Operator: models.ConditionOperatorAnd,
		Conditions: []models.Condition{
			{Field: "priority", Op: models.ComparisonEq, Value: "high"},
		},
		Groups: []*models.ConditionNode{
			{
				Operator: models.ConditionOperatorOr,
				Conditions: []models.Condition{
					{Field: "source", Op: models.ComparisonEq, Value: "web"},
					{Field: "source", Op: models.ComparisonEq, Value: "mobile"},
				},
			},
		},
	}

	matched, trace := Evaluate(node, map[string]any{"priority": "high", "source": "mobile"})
	assert.True(t, matched)

	// Root entry first, then the nested group's entry.
	require.Len(t, trace, 2)
	assert.Equal(t, models.ConditionOperatorAnd, trace[0].NodeOperator)
	assert.Equal(t, models.ConditionOperatorOr, trace[1].NodeOperator)
	assert.True(t, trace[1].Matched)

	matched, _ = Evaluate(node, map[string]any{"priority": "high", "source": "carrier-pigeon"})
	assert.False(t, matched)

	matched, _ = Evaluate(node, map[string]any{"priority": "low", "source": "web"})
	assert.False(t, matched)
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	t.Parallel()

	node := &models.ConditionNode{
		Operator: models.ConditionOperatorOr,
		Conditions: []models.Condition{
			{Field: "score", Op: models.ComparisonGte, Value: float64(80)},
			{Field: "vip", Op: models.ComparisonEq, Value: true},
		},
	}
	payload := map[string]any{"score": float64(75), "vip": true}

	first, firstTrace := Evaluate(node, payload)

	for range 10 {
		matched, trace := Evaluate(node, payload)
		assert.Equal(t, first, matched)
		assert.Equal(t, firstTrace, trace)
	}
}

func TestEvaluate_TraceRecordsConditionDetails(t *testing.T) {
	t.Parallel()

	node := &models.ConditionNode{
		Operator: models.ConditionOperatorAnd,
		Conditions: []models.Condition{
			{Field: "priority", Op: models.ComparisonEq, Value: "high"},
		},
	}

	_, trace := Evaluate(node, map[string]any{"priority": "low"})

	require.Len(t, trace, 1)
	require.Len(t, trace[0].Conditions, 1)

	detail := trace[0].Conditions[0]
	assert.Equal(t, "priority", detail.Field)
	assert.Equal(t, models.ComparisonEq, detail.Op)
	assert.Equal(t, "high", detail.Expected)
	assert.Equal(t, "low", detail.Actual)
	assert.False(t, detail.Matched)
}
