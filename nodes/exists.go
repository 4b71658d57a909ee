package nodes

import "github.com/sartor/db/dberr"

// Existence operators.
const (
	OpExists    = "EXISTS"
	OpNotExists = "NOT EXISTS"
)

// ExistsCondition is [NOT] EXISTS (subquery).
type ExistsCondition struct {
	Op    string
	Query Query
}

// Exists creates EXISTS (q).
func Exists(q Query) *ExistsCondition {
	return &ExistsCondition{Op: OpExists, Query: q}
}

// NotExists creates NOT EXISTS (q).
func NotExists(q Query) *ExistsCondition {
	return &ExistsCondition{Op: OpNotExists, Query: q}
}

func (n *ExistsCondition) Kind() Kind       { return KindExists }
func (n *ExistsCondition) Operator() string { return n.Op }

// ExistsFromArray builds an existence condition; the single operand must
// be a Query.
func ExistsFromArray(operator string, operands []any) (Condition, error) {
	if len(operands) == 1 {
		if q, ok := AsQuery(operands[0]); ok {
			return &ExistsCondition{Op: operator, Query: q}, nil
		}
	}
	return nil, dberr.InvalidArgument("condition", "Subquery for %s operator must be a Query object.", operator)
}
