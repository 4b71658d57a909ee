package nodes

import "github.com/sartor/db/dberr"

// Range operators.
const (
	OpBetween    = "BETWEEN"
	OpNotBetween = "NOT BETWEEN"
)

// SimpleCondition compares a column with a value: column operator value.
type SimpleCondition struct {
	Column any // string or Node
	Op     string
	Value  any
}

// Compare creates column op value, e.g. Compare("age", ">", 18).
func Compare(column any, op string, value any) *SimpleCondition {
	return &SimpleCondition{Column: column, Op: op, Value: value}
}

func (n *SimpleCondition) Kind() Kind       { return KindSimple }
func (n *SimpleCondition) Operator() string { return n.Op }

// SimpleFromArray builds a comparison from [column, value] operands.
func SimpleFromArray(operator string, operands []any) (Condition, error) {
	if len(operands) != 2 {
		return nil, dberr.InvalidArgument("condition", "Operator '%s' requires two operands.", operator)
	}
	if !isColumn(operands[0]) {
		return nil, dberr.InvalidArgument("condition", "Operator '%s' requires column to be string or Node.", operator)
	}
	return &SimpleCondition{Column: operands[0], Op: operator, Value: operands[1]}, nil
}

// BetweenCondition is column [NOT] BETWEEN start AND end.
type BetweenCondition struct {
	Column any
	Op     string
	Start  any
	End    any
}

// Between creates column BETWEEN start AND end.
func Between(column, start, end any) *BetweenCondition {
	return &BetweenCondition{Column: column, Op: OpBetween, Start: start, End: end}
}

// NotBetween creates column NOT BETWEEN start AND end.
func NotBetween(column, start, end any) *BetweenCondition {
	return &BetweenCondition{Column: column, Op: OpNotBetween, Start: start, End: end}
}

func (n *BetweenCondition) Kind() Kind       { return KindBetween }
func (n *BetweenCondition) Operator() string { return n.Op }

// BetweenFromArray builds a range condition from [column, start, end].
func BetweenFromArray(operator string, operands []any) (Condition, error) {
	if len(operands) != 3 {
		return nil, dberr.InvalidArgument("condition", "Operator '%s' requires three operands.", operator)
	}
	if !isColumn(operands[0]) {
		return nil, dberr.InvalidArgument("condition", "Operator '%s' requires column to be string or Node.", operator)
	}
	return &BetweenCondition{Column: operands[0], Op: operator, Start: operands[1], End: operands[2]}, nil
}

// BetweenColumnsCondition is value [NOT] BETWEEN startColumn AND endColumn.
type BetweenColumnsCondition struct {
	Value any // scalar or Node
	Op    string
	Start any // column name or Node
	End   any
}

// BetweenColumns creates value BETWEEN start AND end where start and end
// are column references.
func BetweenColumns(value, start, end any) *BetweenColumnsCondition {
	return &BetweenColumnsCondition{Value: value, Op: OpBetween, Start: start, End: end}
}

// NotBetweenColumns is the negated form of BetweenColumns.
func NotBetweenColumns(value, start, end any) *BetweenColumnsCondition {
	return &BetweenColumnsCondition{Value: value, Op: OpNotBetween, Start: start, End: end}
}

func (n *BetweenColumnsCondition) Kind() Kind       { return KindBetweenColumns }
func (n *BetweenColumnsCondition) Operator() string { return n.Op }

func isColumn(v any) bool {
	switch v.(type) {
	case string, Node:
		return true
	}
	return false
}
