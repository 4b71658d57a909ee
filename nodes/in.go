package nodes

import "github.com/sartor/db/dberr"

// Membership operators.
const (
	OpIn    = "IN"
	OpNotIn = "NOT IN"
)

// InCondition is column [NOT] IN (values).
//
// Column is a name, a Node, or a list of names for composite
// membership; Values is a slice, a scalar or a sub-query. For composite
// columns each value is a *Map (or map[string]any) keyed by column.
type InCondition struct {
	Column any
	Op     string
	Values any
}

// In creates column IN values.
func In(column, values any) *InCondition {
	return &InCondition{Column: column, Op: OpIn, Values: values}
}

// NotIn creates column NOT IN values.
func NotIn(column, values any) *InCondition {
	return &InCondition{Column: column, Op: OpNotIn, Values: values}
}

func (n *InCondition) Kind() Kind       { return KindIn }
func (n *InCondition) Operator() string { return n.Op }

// InFromArray builds a membership condition from [column, values].
func InFromArray(operator string, operands []any) (Condition, error) {
	if len(operands) != 2 {
		return nil, dberr.InvalidArgument("condition", "Operator '%s' requires two operands.", operator)
	}
	switch operands[0].(type) {
	case string, []string, []any, Node:
	default:
		return nil, dberr.InvalidArgument("condition", "Operator '%s' requires column to be string, list or Node.", operator)
	}
	return &InCondition{Column: operands[0], Op: operator, Values: operands[1]}, nil
}
