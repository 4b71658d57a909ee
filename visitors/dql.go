package visitors

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/sartor/db/nodes"
)

// BuildSelect renders the SELECT clause. An empty list selects *.
func (b *Builder) BuildSelect(columns []nodes.Aliased, params *nodes.Params, distinct bool, option string) (string, error) {
	sel := "SELECT"
	if distinct {
		sel += " DISTINCT"
	}
	if option != "" {
		sel += " " + option
	}
	if len(columns) == 0 {
		return sel + " *", nil
	}
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		switch e := c.Expr.(type) {
		case nodes.Node:
			s, err := b.BuildExpression(e, params)
			if err != nil {
				return "", err
			}
			if c.Alias != "" {
				s += " AS " + b.quoter.QuoteColumnName(c.Alias)
			}
			parts = append(parts, s)
		case string:
			switch {
			case c.Alias != "" && c.Alias != e:
				if !strings.Contains(e, "(") {
					e = b.quoter.QuoteColumnName(e)
				}
				parts = append(parts, e+" AS "+b.quoter.QuoteColumnName(c.Alias))
			case !strings.Contains(e, "("):
				parts = append(parts, b.quoter.QuoteColumnName(e))
			default:
				parts = append(parts, e)
			}
		default:
			parts = append(parts, fmt.Sprint(e))
		}
	}
	return sel + " " + strings.Join(parts, ", "), nil
}

// BuildFrom renders the FROM clause, or "" without sources.
func (b *Builder) BuildFrom(sources []nodes.Aliased, params *nodes.Params) (string, error) {
	if len(sources) == 0 {
		return "", nil
	}
	tables, err := b.quoteTableNames(sources, params)
	if err != nil {
		return "", err
	}
	return "FROM " + strings.Join(tables, ", "), nil
}

var tableAliasPattern = regexp.MustCompile(`(?i)^(.*?)(?:\s+as|)\s+([^ ]+)$`)

func (b *Builder) quoteTableNames(sources []nodes.Aliased, params *nodes.Params) ([]string, error) {
	out := make([]string, 0, len(sources))
	for _, src := range sources {
		switch e := src.Expr.(type) {
		case nodes.Node:
			s, err := b.BuildExpression(e, params)
			if err != nil {
				return nil, err
			}
			if src.Alias != "" {
				s += " " + b.quoter.QuoteTableName(src.Alias)
			}
			out = append(out, s)
		case string:
			switch {
			case src.Alias != "":
				if !strings.Contains(e, "(") {
					e = b.quoter.QuoteTableName(e)
				}
				out = append(out, e+" "+b.quoter.QuoteTableName(src.Alias))
			case strings.Contains(e, "("):
				out = append(out, e)
			default:
				if m := tableAliasPattern.FindStringSubmatch(e); m != nil {
					out = append(out, b.quoter.QuoteTableName(m[1])+" "+b.quoter.QuoteTableName(m[2]))
				} else {
					out = append(out, b.quoter.QuoteTableName(e))
				}
			}
		default:
			out = append(out, fmt.Sprint(e))
		}
	}
	return out, nil
}

// joinSource normalises a join table operand: a name, an Aliased, a
// single-entry mapping alias → table, or a Node.
func joinSource(table any) nodes.Aliased {
	switch t := table.(type) {
	case nodes.Aliased:
		return t
	case nodes.Node:
		return nodes.Aliased{Expr: t}
	}
	if m, ok := nodes.ToMap(table); ok && m.Len() > 0 {
		alias := m.Keys()[0]
		e, _ := m.Get(alias)
		return nodes.Aliased{Expr: e, Alias: alias}
	}
	return nodes.Aliased{Expr: table}
}

// BuildJoin renders the JOIN clauses joined by the separator.
func (b *Builder) BuildJoin(joins []nodes.Join, params *nodes.Params) (string, error) {
	if len(joins) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(joins))
	for _, j := range joins {
		tables, err := b.quoteTableNames([]nodes.Aliased{joinSource(j.Table)}, params)
		if err != nil {
			return "", err
		}
		s := string(j.Type) + " " + tables[0]
		if j.On != nil {
			cond, err := b.BuildCondition(j.On, params)
			if err != nil {
				return "", err
			}
			if cond != "" {
				s += " ON " + cond
			}
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, b.separator), nil
}

// BuildWhere renders the WHERE clause, or "" for an empty condition.
func (b *Builder) BuildWhere(cond any, params *nodes.Params) (string, error) {
	s, err := b.BuildCondition(cond, params)
	if err != nil || s == "" {
		return "", err
	}
	return "WHERE " + s, nil
}

// BuildHaving renders the HAVING clause, or "" for an empty condition.
func (b *Builder) BuildHaving(cond any, params *nodes.Params) (string, error) {
	s, err := b.BuildCondition(cond, params)
	if err != nil || s == "" {
		return "", err
	}
	return "HAVING " + s, nil
}

// BuildGroupBy renders the GROUP BY clause.
func (b *Builder) BuildGroupBy(columns []any, params *nodes.Params) (string, error) {
	if len(columns) == 0 {
		return "", nil
	}
	s, err := b.buildColumnList(columns, params)
	if err != nil {
		return "", err
	}
	return "GROUP BY " + s, nil
}

var columnSeparator = regexp.MustCompile(`\s*,\s*`)

// BuildColumns renders a column list for DDL and index definitions: a
// comma separated string, []string or []any of names and Nodes. Names
// with parentheses are kept verbatim; a string containing ( is returned
// as given.
func (b *Builder) BuildColumns(columns any) (string, error) {
	var list []any
	switch c := columns.(type) {
	case string:
		if strings.Contains(c, "(") {
			return c, nil
		}
		for _, s := range columnSeparator.Split(strings.TrimSpace(c), -1) {
			if s != "" {
				list = append(list, s)
			}
		}
	default:
		values, ok := nodes.Values(columns)
		if !ok {
			list = []any{columns}
		} else {
			list = values
		}
	}
	return b.buildColumnList(list, nodes.NewParams())
}

func (b *Builder) buildColumnList(columns []any, params *nodes.Params) (string, error) {
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		switch x := c.(type) {
		case nodes.Node:
			s, err := b.BuildExpression(x, params)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		case string:
			if strings.Contains(x, "(") {
				parts = append(parts, x)
			} else {
				parts = append(parts, b.quoter.QuoteColumnName(x))
			}
		default:
			parts = append(parts, fmt.Sprint(x))
		}
	}
	return strings.Join(parts, ", "), nil
}

// BuildOrderBy renders the ORDER BY clause.
func (b *Builder) BuildOrderBy(orders []nodes.OrderColumn, params *nodes.Params) (string, error) {
	if len(orders) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		if o.Expr != nil {
			s, err := b.BuildExpression(o.Expr, params)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
			continue
		}
		s := b.quoter.QuoteColumnName(o.Column)
		if o.Desc {
			s += " DESC"
		}
		parts = append(parts, s)
	}
	return "ORDER BY " + strings.Join(parts, ", "), nil
}

// BuildLimit renders LIMIT/OFFSET in the dialect's syntax.
func (b *Builder) BuildLimit(limit, offset any, params *nodes.Params) (string, error) {
	return b.dialect.BuildLimit(b, limit, offset, params)
}

// BuildOrderByAndLimit appends ORDER BY and LIMIT to sql.
func (b *Builder) BuildOrderByAndLimit(sql string, orders []nodes.OrderColumn, limit, offset any, params *nodes.Params) (string, error) {
	orderBy, err := b.BuildOrderBy(orders, params)
	if err != nil {
		return "", err
	}
	if orderBy != "" {
		sql += b.separator + orderBy
	}
	lim, err := b.BuildLimit(limit, offset, params)
	if err != nil {
		return "", err
	}
	if lim != "" {
		sql += b.separator + lim
	}
	return sql, nil
}

// BuildUnion renders UNION [ALL] ( query ) members.
func (b *Builder) BuildUnion(unions []nodes.UnionEntry, params *nodes.Params) (string, error) {
	if len(unions) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for _, u := range unions {
		sql, err := b.subQuerySQL(u.Query, params)
		if err != nil {
			return "", err
		}
		sb.WriteString("UNION ")
		if u.All {
			sb.WriteString("ALL ")
		}
		if enclosed(sql) {
			sb.WriteString(sql + " ")
		} else {
			sb.WriteString("( " + sql + " ) ")
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// enclosed reports whether s is wrapped in a single outer pair of
// parentheses. Quoted text is skipped.
func enclosed(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'', c == '"', c == '`':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}

// BuildWithQueries renders the WITH clause; any recursive entry makes
// the whole clause WITH RECURSIVE.
func (b *Builder) BuildWithQueries(ctes []nodes.WithEntry, params *nodes.Params) (string, error) {
	if len(ctes) == 0 {
		return "", nil
	}
	recursive := false
	parts := make([]string, 0, len(ctes))
	for _, w := range ctes {
		if w.Recursive {
			recursive = true
		}
		sql, err := b.subQuerySQL(w.Query, params)
		if err != nil {
			return "", err
		}
		parts = append(parts, w.Alias+" AS ("+sql+")")
	}
	with := "WITH "
	if recursive {
		with += "RECURSIVE "
	}
	return with + strings.Join(parts, ", "), nil
}

func (b *Builder) subQuerySQL(v any, params *nodes.Params) (string, error) {
	if q, ok := nodes.AsQuery(v); ok {
		return b.build(q, params)
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case nodes.Node:
		return b.BuildExpression(x, params)
	}
	return fmt.Sprint(v), nil
}

// hasLimit accepts Nodes and non-negative integers.
func hasLimit(v any) bool {
	if _, ok := v.(nodes.Node); ok {
		return true
	}
	s, ok := digits(v)
	return ok && s != ""
}

// hasOffset accepts Nodes and positive integers.
func hasOffset(v any) bool {
	if _, ok := v.(nodes.Node); ok {
		return true
	}
	s, ok := digits(v)
	return ok && s != "" && s != "0"
}

var digitsPattern = regexp.MustCompile(`^\d+$`)

func digits(v any) (string, bool) {
	var s string
	if x, ok := v.(string); ok {
		s = x
	} else {
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			s = strconv.FormatInt(rv.Int(), 10)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			s = strconv.FormatUint(rv.Uint(), 10)
		default:
			return "", false
		}
	}
	return s, digitsPattern.MatchString(s)
}

// limitSQL renders a LIMIT or OFFSET operand.
func (b *Builder) limitSQL(v any, params *nodes.Params) (string, error) {
	if n, ok := v.(nodes.Node); ok {
		return b.BuildExpression(n, params)
	}
	s, _ := digits(v)
	return s, nil
}

// BuildLimit is the generic LIMIT n OFFSET m form.
func (BaseDialect) BuildLimit(b *Builder, limit, offset any, params *nodes.Params) (string, error) {
	var sql string
	if hasLimit(limit) {
		s, err := b.limitSQL(limit, params)
		if err != nil {
			return "", err
		}
		sql = "LIMIT " + s
	}
	if hasOffset(offset) {
		s, err := b.limitSQL(offset, params)
		if err != nil {
			return "", err
		}
		sql += " OFFSET " + s
	}
	return strings.TrimLeft(sql, " "), nil
}

// literal renders v as an inline SQL literal.
func (b *Builder) literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return b.quoter.QuoteValue(x)
	case []byte:
		return b.quoter.QuoteValue(string(x))
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case fmt.Stringer:
		return b.quoter.QuoteValue(x.String())
	}
	return fmt.Sprint(v)
}
