package nodes

import (
	"regexp"
	"slices"
	"strings"
)

// JoinType is the SQL keyword sequence introducing a join.
type JoinType string

// Join types.
const (
	InnerJoin JoinType = "INNER JOIN"
	LeftJoin  JoinType = "LEFT JOIN"
	RightJoin JoinType = "RIGHT JOIN"
	FullJoin  JoinType = "FULL OUTER JOIN"
	CrossJoin JoinType = "CROSS JOIN"
)

// Aliased pairs an expression (column, table, sub-query or Node) with an
// optional alias.
type Aliased struct {
	Expr  any
	Alias string
}

// As aliases expr: it serves select columns and FROM/JOIN sources.
func As(expr any, alias string) Aliased {
	return Aliased{Expr: expr, Alias: alias}
}

// Join is a single JOIN clause.
type Join struct {
	Type  JoinType
	Table any // string, Aliased, Query or Node
	On    any // condition in any accepted form, nil for none
}

// OrderColumn is one ORDER BY entry; Expr takes precedence over Column.
type OrderColumn struct {
	Column string
	Expr   Node
	Desc   bool
}

// Asc orders by column ascending.
func Asc(column string) OrderColumn { return OrderColumn{Column: column} }

// Desc orders by column descending.
func Desc(column string) OrderColumn { return OrderColumn{Column: column, Desc: true} }

// UnionEntry is one UNION [ALL] member; Query is a Query or raw SQL string.
type UnionEntry struct {
	Query any
	All   bool
}

// WithEntry is one common table expression.
type WithEntry struct {
	Query     any // Query or raw SQL string
	Alias     string
	Recursive bool
}

// Query is the clause container compiled by a query builder.
//
// Every method returns an updated copy and leaves the receiver untouched,
// so a Query can be shared and extended safely:
//
//	base := nodes.From("users").Where(nodes.M("active", true))
//	page := base.OrderBy("id").Limit(10)
type Query struct {
	Columns      []Aliased
	IsDistinct   bool
	Option       string
	Sources      []Aliased
	JoinClauses  []Join
	WhereCond    any
	GroupColumns []any
	HavingCond   any
	Orders       []OrderColumn
	LimitValue   any
	OffsetValue  any
	Unions       []UnionEntry
	CTEs         []WithEntry
	Bindings     []Param
}

func (q Query) Kind() Kind { return KindQuery }

// Select starts a query with the given select list.
func Select(columns ...any) Query { return Query{}.Select(columns...) }

// From starts a query reading from the given sources.
func From(tables ...any) Query { return Query{}.From(tables...) }

// aliasPattern matches "expr AS alias" and "expr alias".
var aliasPattern = regexp.MustCompile(`^(.*?)(?i:\s+as\s+|\s+)([\w\-.]+)$`)

var numericPattern = regexp.MustCompile(`^\d+$`)

var listSeparator = regexp.MustCompile(`\s*,\s*`)

// splitList splits a comma separated list unless it contains a function
// call or sub-query, which is kept whole.
func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.Contains(s, "(") {
		return []string{s}
	}
	var out []string
	for _, part := range listSeparator.Split(s, -1) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizeSelect(columns []any) []Aliased {
	var out []Aliased
	for _, c := range columns {
		switch v := c.(type) {
		case string:
			for _, s := range splitList(v) {
				out = append(out, normalizeSelectString(s))
			}
		case Aliased:
			out = append(out, v)
		case *Map:
			for _, k := range v.Keys() {
				e, _ := v.Get(k)
				out = append(out, Aliased{Expr: e, Alias: k})
			}
		default:
			out = append(out, Aliased{Expr: c})
		}
	}
	return out
}

func normalizeSelectString(s string) Aliased {
	if m := aliasPattern.FindStringSubmatch(s); m != nil && !numericPattern.MatchString(m[2]) && !strings.Contains(m[2], ".") {
		return Aliased{Expr: m[1], Alias: m[2]}
	}
	if !strings.Contains(s, "(") {
		return Aliased{Expr: s, Alias: s}
	}
	return Aliased{Expr: s}
}

// Select replaces the select list. Strings are split on commas and
// "col AS alias" forms are recognised; Aliased, *Map (alias → expr) and
// Nodes are accepted as well.
func (q Query) Select(columns ...any) Query {
	q.Columns = normalizeSelect(columns)
	return q
}

// AddSelect appends to the select list, skipping columns already present.
func (q Query) AddSelect(columns ...any) Query {
	if len(q.Columns) == 0 {
		return q.Select(columns...)
	}
	out := slices.Clone(q.Columns)
	for _, c := range normalizeSelect(columns) {
		if !containsColumn(out, c) {
			out = append(out, c)
		}
	}
	q.Columns = out
	return q
}

func containsColumn(list []Aliased, c Aliased) bool {
	for _, x := range list {
		if c.Alias != "" && x.Alias == c.Alias {
			return true
		}
		if c.Alias == "" && x.Alias == "" {
			if a, ok := x.Expr.(string); ok {
				if b, ok := c.Expr.(string); ok && a == b {
					return true
				}
			}
		}
	}
	return false
}

// Distinct toggles SELECT DISTINCT.
func (q Query) Distinct(distinct bool) Query {
	q.IsDistinct = distinct
	return q
}

// SelectOption sets a keyword emitted after SELECT, e.g. SQL_CALC_FOUND_ROWS.
func (q Query) SelectOption(option string) Query {
	q.Option = option
	return q
}

// From replaces the FROM sources. Strings are split on commas; "table
// alias" forms are resolved when compiling.
func (q Query) From(tables ...any) Query {
	var out []Aliased
	for _, t := range tables {
		switch v := t.(type) {
		case string:
			for _, s := range splitList(v) {
				out = append(out, Aliased{Expr: s})
			}
		case Aliased:
			out = append(out, v)
		case *Map:
			for _, k := range v.Keys() {
				e, _ := v.Get(k)
				out = append(out, Aliased{Expr: e, Alias: k})
			}
		default:
			out = append(out, Aliased{Expr: t})
		}
	}
	q.Sources = out
	return q
}

// Join appends a join of the given type.
func (q Query) Join(typ JoinType, table, on any, params ...Param) Query {
	q.JoinClauses = append(slices.Clone(q.JoinClauses), Join{Type: typ, Table: table, On: on})
	return q.AddParams(params...)
}

// InnerJoin appends an INNER JOIN.
func (q Query) InnerJoin(table, on any, params ...Param) Query {
	return q.Join(InnerJoin, table, on, params...)
}

// LeftJoin appends a LEFT JOIN.
func (q Query) LeftJoin(table, on any, params ...Param) Query {
	return q.Join(LeftJoin, table, on, params...)
}

// RightJoin appends a RIGHT JOIN.
func (q Query) RightJoin(table, on any, params ...Param) Query {
	return q.Join(RightJoin, table, on, params...)
}

// Where replaces the WHERE condition.
func (q Query) Where(cond any, params ...Param) Query {
	q.WhereCond = cond
	return q.AddParams(params...)
}

// AndWhere combines cond with the existing WHERE using AND.
func (q Query) AndWhere(cond any, params ...Param) Query {
	q.WhereCond = combine(OpAnd, q.WhereCond, cond)
	return q.AddParams(params...)
}

// OrWhere combines cond with the existing WHERE using OR.
func (q Query) OrWhere(cond any, params ...Param) Query {
	q.WhereCond = combine(OpOr, q.WhereCond, cond)
	return q.AddParams(params...)
}

// FilterWhere is Where with empty operands removed; see FilterCondition.
func (q Query) FilterWhere(cond any) Query {
	if c := FilterCondition(cond); !IsEmpty(c) {
		q.WhereCond = c
	}
	return q
}

// AndFilterWhere is AndWhere with empty operands removed.
func (q Query) AndFilterWhere(cond any) Query {
	if c := FilterCondition(cond); !IsEmpty(c) {
		return q.AndWhere(c)
	}
	return q
}

// OrFilterWhere is OrWhere with empty operands removed.
func (q Query) OrFilterWhere(cond any) Query {
	if c := FilterCondition(cond); !IsEmpty(c) {
		return q.OrWhere(c)
	}
	return q
}

// GroupBy replaces the GROUP BY list.
func (q Query) GroupBy(columns ...any) Query {
	q.GroupColumns = normalizeColumns(columns)
	return q
}

// AddGroupBy appends to the GROUP BY list.
func (q Query) AddGroupBy(columns ...any) Query {
	q.GroupColumns = append(slices.Clone(q.GroupColumns), normalizeColumns(columns)...)
	return q
}

func normalizeColumns(columns []any) []any {
	var out []any
	for _, c := range columns {
		if s, ok := c.(string); ok {
			for _, part := range splitList(s) {
				out = append(out, part)
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

// Having replaces the HAVING condition.
func (q Query) Having(cond any, params ...Param) Query {
	q.HavingCond = cond
	return q.AddParams(params...)
}

// AndHaving combines cond with the existing HAVING using AND.
func (q Query) AndHaving(cond any, params ...Param) Query {
	q.HavingCond = combine(OpAnd, q.HavingCond, cond)
	return q.AddParams(params...)
}

// OrHaving combines cond with the existing HAVING using OR.
func (q Query) OrHaving(cond any, params ...Param) Query {
	q.HavingCond = combine(OpOr, q.HavingCond, cond)
	return q.AddParams(params...)
}

// FilterHaving is Having with empty operands removed.
func (q Query) FilterHaving(cond any) Query {
	if c := FilterCondition(cond); !IsEmpty(c) {
		q.HavingCond = c
	}
	return q
}

var directionPattern = regexp.MustCompile(`(?i)^(.*?)\s+(asc|desc)$`)

// OrderBy replaces the ORDER BY list. Strings such as "name ASC, id DESC"
// are parsed; OrderColumn values and Nodes are taken as given.
func (q Query) OrderBy(columns ...any) Query {
	q.Orders = normalizeOrder(columns)
	return q
}

// AddOrderBy appends to the ORDER BY list.
func (q Query) AddOrderBy(columns ...any) Query {
	q.Orders = append(slices.Clone(q.Orders), normalizeOrder(columns)...)
	return q
}

func normalizeOrder(columns []any) []OrderColumn {
	var out []OrderColumn
	for _, c := range columns {
		switch v := c.(type) {
		case string:
			for _, s := range splitList(v) {
				if m := directionPattern.FindStringSubmatch(s); m != nil {
					out = append(out, OrderColumn{Column: m[1], Desc: strings.EqualFold(m[2], "desc")})
				} else {
					out = append(out, OrderColumn{Column: s})
				}
			}
		case OrderColumn:
			out = append(out, v)
		case Node:
			out = append(out, OrderColumn{Expr: v})
		}
	}
	return out
}

// Limit sets the row limit: an integer or a Node. Negative values clear it.
func (q Query) Limit(limit any) Query {
	q.LimitValue = limit
	return q
}

// Offset sets the row offset: an integer or a Node.
func (q Query) Offset(offset any) Query {
	q.OffsetValue = offset
	return q
}

// Union appends a UNION member (Query or raw SQL).
func (q Query) Union(other any) Query {
	q.Unions = append(slices.Clone(q.Unions), UnionEntry{Query: other})
	return q
}

// UnionAll appends a UNION ALL member.
func (q Query) UnionAll(other any) Query {
	q.Unions = append(slices.Clone(q.Unions), UnionEntry{Query: other, All: true})
	return q
}

// WithQuery prepends a common table expression named alias.
func (q Query) WithQuery(query any, alias string, recursive bool) Query {
	q.CTEs = append(slices.Clone(q.CTEs), WithEntry{Query: query, Alias: alias, Recursive: recursive})
	return q
}

// Params replaces the query's named parameters.
func (q Query) Params(params ...Param) Query {
	q.Bindings = slices.Clone(params)
	return q
}

// AddParams merges named parameters; an existing name takes the new value.
func (q Query) AddParams(params ...Param) Query {
	if len(params) == 0 {
		return q
	}
	bag := NewParams(q.Bindings...)
	bag.Add(params...)
	q.Bindings = bag.All()
	return q
}

// ParamBag returns the query's parameters as a fresh bag.
func (q Query) ParamBag() *Params {
	return NewParams(q.Bindings...)
}

// combine merges cond into existing with op, extending an existing
// top-level conjunction of the same operator.
func combine(op string, existing, cond any) any {
	if existing == nil {
		return cond
	}
	if op == OpAnd {
		if arr, ok := existing.([]any); ok && len(arr) > 0 {
			if s, ok := arr[0].(string); ok && strings.EqualFold(s, "and") {
				return append(slices.Clone(arr), cond)
			}
		}
	}
	return []any{strings.ToLower(op), existing, cond}
}
