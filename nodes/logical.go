package nodes

import (
	"github.com/sartor/db/dberr"
)

// Logical operators.
const (
	OpAnd = "AND"
	OpOr  = "OR"
	OpNot = "NOT"
)

// ConjunctionCondition joins child conditions with AND or OR.
// Children may be raw SQL strings, array shorthand ([]any), mappings
// (*Map, map[string]any) or Nodes; shorthand children are parsed when
// the condition is compiled.
type ConjunctionCondition struct {
	Op          string
	Expressions []any
}

// And creates an AND conjunction.
func And(exprs ...any) *ConjunctionCondition {
	return &ConjunctionCondition{Op: OpAnd, Expressions: exprs}
}

// Or creates an OR conjunction.
func Or(exprs ...any) *ConjunctionCondition {
	return &ConjunctionCondition{Op: OpOr, Expressions: exprs}
}

func (n *ConjunctionCondition) Kind() Kind       { return KindConjunction }
func (n *ConjunctionCondition) Operator() string { return n.Op }

// ConjunctionFromArray builds an AND/OR conjunction from array operands.
func ConjunctionFromArray(operator string, operands []any) (Condition, error) {
	return &ConjunctionCondition{Op: operator, Expressions: append([]any(nil), operands...)}, nil
}

// NotCondition negates its child condition.
type NotCondition struct {
	Condition any
}

// Not creates a negation of cond.
func Not(cond any) *NotCondition {
	return &NotCondition{Condition: cond}
}

func (n *NotCondition) Kind() Kind       { return KindNot }
func (n *NotCondition) Operator() string { return OpNot }

// NotFromArray builds a NOT condition; exactly one operand is required.
func NotFromArray(operator string, operands []any) (Condition, error) {
	if len(operands) != 1 {
		return nil, dberr.InvalidArgument("condition", "Operator '%s' requires exactly one operand.", operator)
	}
	return &NotCondition{Condition: operands[0]}, nil
}
