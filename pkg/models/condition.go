package models

// ConditionOperator combines the results of a node's conditions and groups.
type ConditionOperator string

const (
	ConditionOperatorAnd ConditionOperator = "AND"
	ConditionOperatorOr  ConditionOperator = "OR"
)

// ComparisonOperator compares one payload field against a configured value.
type ComparisonOperator string

const (
	ComparisonEq       ComparisonOperator = "eq"
	ComparisonNeq      ComparisonOperator = "neq"
	ComparisonIn       ComparisonOperator = "in"
	ComparisonContains ComparisonOperator = "contains"
	ComparisonGt       ComparisonOperator = "gt"
	ComparisonGte      ComparisonOperator = "gte"
	ComparisonLt       ComparisonOperator = "lt"
	ComparisonLte      ComparisonOperator = "lte"
)

// Condition is a single field comparison against the event payload.
type Condition struct {
	Field string             `json:"field"`
	Op    ComparisonOperator `json:"op"`
	Value any                `json:"value"`
}

// ConditionNode is a recursive AND/OR boolean expression. An AND node with no
// conditions and no groups is vacuously true; an OR node with none is
// vacuously false.
type ConditionNode struct {
	Operator   ConditionOperator `json:"operator"`
	Conditions []Condition       `json:"conditions"`
	Groups     []*ConditionNode  `json:"groups"`
}
