package visitors

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sartor/db/dberr"
	"github.com/sartor/db/nodes"
)

func buildSqlLiteral(_ *Builder, n nodes.Node, params *nodes.Params) (string, error) {
	e := n.(*nodes.SqlLiteral)
	params.Add(e.Params...)
	return e.Raw, nil
}

func buildSubQuery(b *Builder, n nodes.Node, params *nodes.Params) (string, error) {
	q, _ := nodes.AsQuery(n)
	sql, err := b.build(q, params)
	if err != nil {
		return "", err
	}
	return "(" + sql + ")", nil
}

func buildConjunction(b *Builder, n nodes.Node, params *nodes.Params) (string, error) {
	c := n.(*nodes.ConjunctionCondition)
	var parts []string
	for _, e := range c.Expressions {
		s, err := b.BuildCondition(e, params)
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], nil
	}
	return "(" + strings.Join(parts, ") "+strings.ToUpper(c.Op)+" (") + ")", nil
}

func buildNot(b *Builder, n nodes.Node, params *nodes.Params) (string, error) {
	c := n.(*nodes.NotCondition)
	s, err := b.BuildCondition(c.Condition, params)
	if err != nil || s == "" {
		return "", err
	}
	return nodes.OpNot + " (" + s + ")", nil
}

// column renders a column operand: Nodes are compiled, names without
// parentheses are quoted, anything else is emitted as given.
func (b *Builder) column(col any, params *nodes.Params) (string, error) {
	switch c := col.(type) {
	case nodes.Node:
		return b.BuildExpression(c, params)
	case string:
		if strings.Contains(c, "(") {
			return c, nil
		}
		return b.quoter.QuoteColumnName(c), nil
	}
	return "", dberr.InvalidArgument("condition", "column must be string or Node, got %T", col)
}

// value binds a scalar or compiles a Node.
func (b *Builder) value(v any, params *nodes.Params) (string, error) {
	if n, ok := v.(nodes.Node); ok {
		return b.BuildExpression(n, params)
	}
	return params.Bind(v), nil
}

func buildSimple(b *Builder, n nodes.Node, params *nodes.Params) (string, error) {
	c := n.(*nodes.SimpleCondition)
	col, err := b.column(c.Column, params)
	if err != nil {
		return "", err
	}
	if c.Value == nil {
		return col + " " + c.Op + " NULL", nil
	}
	v, err := b.value(c.Value, params)
	if err != nil {
		return "", err
	}
	return col + " " + c.Op + " " + v, nil
}

func buildBetween(b *Builder, n nodes.Node, params *nodes.Params) (string, error) {
	c := n.(*nodes.BetweenCondition)
	col, err := b.column(c.Column, params)
	if err != nil {
		return "", err
	}
	start, err := b.value(c.Start, params)
	if err != nil {
		return "", err
	}
	end, err := b.value(c.End, params)
	if err != nil {
		return "", err
	}
	return col + " " + c.Op + " " + start + " AND " + end, nil
}

func buildBetweenColumns(b *Builder, n nodes.Node, params *nodes.Params) (string, error) {
	c := n.(*nodes.BetweenColumnsCondition)
	v, err := b.value(c.Value, params)
	if err != nil {
		return "", err
	}
	start, err := b.column(c.Start, params)
	if err != nil {
		return "", err
	}
	end, err := b.column(c.End, params)
	if err != nil {
		return "", err
	}
	return v + " " + c.Op + " " + start + " AND " + end, nil
}

func buildExists(b *Builder, n nodes.Node, params *nodes.Params) (string, error) {
	c := n.(*nodes.ExistsCondition)
	sql, err := b.BuildExpression(c.Query, params)
	if err != nil {
		return "", err
	}
	return c.Op + " " + sql, nil
}

func buildHash(b *Builder, n nodes.Node, params *nodes.Params) (string, error) {
	c := n.(*nodes.HashCondition)
	if c.Hash == nil {
		return "", nil
	}
	var parts []string
	for _, col := range c.Hash.Keys() {
		v, _ := c.Hash.Get(col)
		var (
			s   string
			err error
		)
		_, isQuery := nodes.AsQuery(v)
		_, isList := nodes.Values(v)
		switch {
		case isList || isQuery:
			s, err = b.BuildExpression(nodes.In(col, v), params)
		case v == nil:
			s, err = b.column(col, params)
			s += " IS NULL"
		default:
			var lhs, rhs string
			if lhs, err = b.column(col, params); err == nil {
				rhs, err = b.value(v, params)
			}
			s = lhs + "=" + rhs
		}
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	if len(parts) == 0 {
		return "", nil
	}
	return "(" + strings.Join(parts, ") AND (") + ")", nil
}

func buildIn(b *Builder, n nodes.Node, params *nodes.Params) (string, error) {
	c := n.(*nodes.InCondition)
	op := strings.ToUpper(c.Op)
	negated := op == nodes.OpNotIn

	empty := func() string {
		if negated {
			return "1=1"
		}
		return "0=1"
	}

	columns, composite := columnList(c.Column)
	if composite && len(columns) == 0 {
		return empty(), nil
	}
	if composite && len(columns) == 1 {
		composite = false
		c = &nodes.InCondition{Column: columns[0], Op: op, Values: c.Values}
	}

	if q, ok := nodes.AsQuery(c.Values); ok {
		sub, err := b.BuildExpression(q, params)
		if err != nil {
			return "", err
		}
		if composite {
			quoted := make([]string, len(columns))
			for i, col := range columns {
				quoted[i] = b.quoter.QuoteColumnName(col)
			}
			return "(" + strings.Join(quoted, ", ") + ") " + op + " " + sub, nil
		}
		col, err := b.column(c.Column, params)
		if err != nil {
			return "", err
		}
		return col + " " + op + " " + sub, nil
	}

	values, ok := nodes.Values(c.Values)
	if !ok {
		if n, isNode := c.Values.(nodes.Node); isNode {
			col, err := b.column(c.Column, params)
			if err != nil {
				return "", err
			}
			sql, err := b.BuildExpression(n, params)
			if err != nil {
				return "", err
			}
			return col + " " + op + " (" + sql + ")", nil
		}
		values = []any{c.Values}
	}
	if len(values) == 0 {
		return empty(), nil
	}
	if composite {
		return b.buildCompositeIn(op, columns, values, params, empty)
	}

	name, _ := c.Column.(string)
	hasNull := false
	var placeholders []string
	for _, v := range values {
		if m, ok := nodes.ToMap(v); ok && name != "" {
			v, _ = m.Get(name)
		}
		if v == nil {
			hasNull = true
			continue
		}
		s, err := b.value(v, params)
		if err != nil {
			return "", err
		}
		placeholders = append(placeholders, s)
	}

	col, err := b.column(c.Column, params)
	if err != nil {
		return "", err
	}
	nullCond := col + " IS NULL"
	joiner := " OR "
	if negated {
		nullCond = col + " IS NOT NULL"
		joiner = " AND "
	}

	var sql string
	switch len(placeholders) {
	case 0:
		if hasNull {
			return nullCond, nil
		}
		return empty(), nil
	case 1:
		eq := "="
		if negated {
			eq = "<>"
		}
		sql = col + eq + placeholders[0]
	default:
		sql = col + " " + op + " (" + strings.Join(placeholders, ", ") + ")"
	}
	if hasNull {
		sql += joiner + nullCond
	}
	return sql, nil
}

func (b *Builder) buildCompositeIn(op string, columns []string, values []any, params *nodes.Params, empty func() string) (string, error) {
	var tuples []string
	for _, v := range values {
		m, ok := nodes.ToMap(v)
		if !ok {
			return "", dberr.InvalidArgument("condition", "composite IN value must be a mapping keyed by column, got %T", v)
		}
		parts := make([]string, len(columns))
		for i, col := range columns {
			x, present := m.Get(col)
			if !present || x == nil {
				parts[i] = "NULL"
				continue
			}
			s, err := b.value(x, params)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		tuples = append(tuples, "("+strings.Join(parts, ", ")+")")
	}
	if len(tuples) == 0 {
		return empty(), nil
	}
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = b.quoter.QuoteColumnName(col)
	}
	return "(" + strings.Join(quoted, ", ") + ") " + op + " (" + strings.Join(tuples, ", ") + ")", nil
}

// columnList reports whether col is a list of column names.
func columnList(col any) ([]string, bool) {
	switch c := col.(type) {
	case []string:
		return c, true
	case []any:
		out := make([]string, 0, len(c))
		for _, x := range c {
			out = append(out, fmt.Sprint(x))
		}
		return out, true
	}
	return nil, false
}

var likeOperatorPattern = regexp.MustCompile(`^(AND |OR |)((NOT |)I?LIKE)`)

func buildLike(b *Builder, n nodes.Node, params *nodes.Params) (string, error) {
	c := n.(*nodes.LikeCondition)
	op := strings.ToUpper(c.Op)
	m := likeOperatorPattern.FindStringSubmatch(op)
	if m == nil {
		return "", dberr.InvalidArgument("condition", "Invalid operator in like condition: %q", c.Op)
	}
	joiner := " AND "
	if m[1] == "OR " {
		joiner = " OR "
	}
	operator, negated := m[2], m[3] != ""

	var values []any
	switch v := c.Values.(type) {
	case nil:
	case string, nodes.Node:
		values = []any{v}
	default:
		list, ok := nodes.Values(v)
		if !ok {
			list = []any{v}
		}
		values = list
	}
	if len(values) == 0 {
		if negated {
			return "", nil
		}
		return "0=1", nil
	}

	col, err := b.column(c.Column, params)
	if err != nil {
		return "", err
	}
	escape := b.quoter.LikeEscapeSQL()
	raw := c.Escape != nil && len(c.Escape) == 0

	parts := make([]string, 0, len(values))
	for _, v := range values {
		var ph string
		switch x := v.(type) {
		case nodes.Node:
			if ph, err = b.BuildExpression(x, params); err != nil {
				return "", err
			}
		default:
			s := fmt.Sprint(x)
			if !raw {
				s = "%" + b.quoter.EscapeLike(s, c.Escape) + "%"
			}
			ph = params.Bind(s)
		}
		parts = append(parts, col+" "+operator+" "+ph+escape)
	}
	return strings.Join(parts, joiner), nil
}
