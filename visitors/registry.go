package visitors

import (
	"fmt"
	"maps"
	"strings"

	"github.com/sartor/db/dberr"
	"github.com/sartor/db/nodes"
)

// ExpressionBuilder compiles one node kind into SQL, binding values into params.
type ExpressionBuilder interface {
	Build(b *Builder, n nodes.Node, params *nodes.Params) (string, error)
}

// ExpressionBuilderFunc adapts a function to ExpressionBuilder.
type ExpressionBuilderFunc func(b *Builder, n nodes.Node, params *nodes.Params) (string, error)

func (f ExpressionBuilderFunc) Build(b *Builder, n nodes.Node, params *nodes.Params) (string, error) {
	return f(b, n, params)
}

// ConditionFactory turns array-shorthand operands into a condition.
type ConditionFactory func(operator string, operands []any) (nodes.Condition, error)

func defaultExpressionBuilders() map[nodes.Kind]ExpressionBuilder {
	return map[nodes.Kind]ExpressionBuilder{
		nodes.KindSqlLiteral:     ExpressionBuilderFunc(buildSqlLiteral),
		nodes.KindQuery:          ExpressionBuilderFunc(buildSubQuery),
		nodes.KindConjunction:    ExpressionBuilderFunc(buildConjunction),
		nodes.KindNot:            ExpressionBuilderFunc(buildNot),
		nodes.KindSimple:         ExpressionBuilderFunc(buildSimple),
		nodes.KindBetween:        ExpressionBuilderFunc(buildBetween),
		nodes.KindBetweenColumns: ExpressionBuilderFunc(buildBetweenColumns),
		nodes.KindIn:             ExpressionBuilderFunc(buildIn),
		nodes.KindLike:           ExpressionBuilderFunc(buildLike),
		nodes.KindExists:         ExpressionBuilderFunc(buildExists),
		nodes.KindHash:           ExpressionBuilderFunc(buildHash),
	}
}

func defaultConditionClasses() map[string]ConditionFactory {
	return map[string]ConditionFactory{
		nodes.OpNot:        nodes.NotFromArray,
		nodes.OpAnd:        nodes.ConjunctionFromArray,
		nodes.OpOr:         nodes.ConjunctionFromArray,
		nodes.OpBetween:    nodes.BetweenFromArray,
		nodes.OpNotBetween: nodes.BetweenFromArray,
		nodes.OpIn:         nodes.InFromArray,
		nodes.OpNotIn:      nodes.InFromArray,
		nodes.OpLike:       nodes.LikeFromArray,
		nodes.OpNotLike:    nodes.LikeFromArray,
		nodes.OpOrLike:     nodes.LikeFromArray,
		nodes.OpOrNotLike:  nodes.LikeFromArray,
		nodes.OpExists:     nodes.ExistsFromArray,
		nodes.OpNotExists:  nodes.ExistsFromArray,
	}
}

// SetExpressionBuilders registers or replaces builders per kind.
// It is a setup-time call: it must not run concurrently with compiles.
func (b *Builder) SetExpressionBuilders(builders map[nodes.Kind]ExpressionBuilder) {
	maps.Copy(b.expressionBuilders, builders)
}

// SetConditionClasses registers or replaces array-shorthand operators.
// Keys are matched case-insensitively. Setup-time only, like
// SetExpressionBuilders.
func (b *Builder) SetConditionClasses(classes map[string]ConditionFactory) {
	for k, f := range classes {
		b.conditionClasses[strings.ToUpper(k)] = f
	}
}

// GetExpressionBuilder returns the builder registered for n's kind.
func (b *Builder) GetExpressionBuilder(n nodes.Node) (ExpressionBuilder, error) {
	eb, ok := b.expressionBuilders[n.Kind()]
	if !ok {
		return nil, dberr.InvalidArgument("GetExpressionBuilder", "no builder registered for %q (%T)", n.Kind(), n)
	}
	return eb, nil
}

// GetConditionBuilder returns the builder registered for a condition.
func (b *Builder) GetConditionBuilder(c nodes.Condition) (ExpressionBuilder, error) {
	return b.GetExpressionBuilder(c)
}

// BuildExpression compiles any registered node into SQL.
func (b *Builder) BuildExpression(n nodes.Node, params *nodes.Params) (string, error) {
	eb, err := b.GetExpressionBuilder(n)
	if err != nil {
		return "", err
	}
	return eb.Build(b, n, params)
}

// BuildCondition compiles a condition given in any accepted form: raw
// SQL string, array shorthand, mapping, or Node. Empty input yields "".
func (b *Builder) BuildCondition(cond any, params *nodes.Params) (string, error) {
	switch c := cond.(type) {
	case nil:
		return "", nil
	case string:
		return c, nil
	case nodes.Node:
		return b.BuildExpression(c, params)
	case []any:
		if len(c) == 0 {
			return "", nil
		}
	}
	parsed, err := b.CreateConditionFromArray(cond)
	if err != nil {
		return "", err
	}
	return b.BuildExpression(parsed, params)
}

// CreateConditionFromArray parses array shorthand into a condition.
//
//	["in", "id", []any{1, 2}]     operator format
//	nodes.M("status", 1)          hash format
//
// Unknown operators become simple comparisons, which require two operands.
func (b *Builder) CreateConditionFromArray(input any) (nodes.Condition, error) {
	if arr, ok := input.([]any); ok {
		if len(arr) == 0 {
			return nil, dberr.InvalidArgument("CreateConditionFromArray", "empty condition array")
		}
		op, ok := arr[0].(string)
		if !ok {
			return nil, dberr.InvalidArgument("CreateConditionFromArray", "condition array must start with an operator, got %T", arr[0])
		}
		op = strings.ToUpper(strings.TrimSpace(op))
		factory, ok := b.conditionClasses[op]
		if !ok {
			factory = nodes.SimpleFromArray
		}
		return factory(op, arr[1:])
	}
	if m, ok := nodes.ToMap(input); ok {
		return &nodes.HashCondition{Hash: m}, nil
	}
	return nil, dberr.InvalidArgument("CreateConditionFromArray", "cannot interpret %s as a condition", describe(input))
}

func describe(v any) string {
	return fmt.Sprintf("%T", v)
}
