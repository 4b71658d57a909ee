package main

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/sartor/db/nodes"
	"github.com/sartor/db/schema"
	"github.com/sartor/db/visitors"
	"gopkg.in/yaml.v3"
)

// YAML tags understood in query files and REPL arguments.
const (
	tagExpr  = "!expr"  // raw SQL expression, bound as a nodes.SqlLiteral
	tagQuery = "!query" // nested query mapping
)

// decodeValue turns a YAML node into the values the builder accepts.
// Mappings keep their key order as *nodes.Map.
func decodeValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return decodeValue(n.Content[0])
	case yaml.AliasNode:
		return decodeValue(n.Alias)
	case yaml.MappingNode:
		if n.Tag == tagQuery {
			return decodeQuery(n)
		}
		m := nodes.M()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := decodeValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(n.Content[i].Value, v)
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := decodeValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		if n.Tag == tagExpr {
			return nodes.NewSqlLiteral(n.Value), nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("line %d: unexpected YAML node", n.Line)
}

// parseYAML decodes a single YAML document.
func parseYAML(src string) (any, error) {
	n, err := yamlNode(src)
	if err != nil {
		return nil, err
	}
	return decodeValue(n)
}

func yamlNode(src string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null"}, nil
	}
	return doc.Content[0], nil
}

// mappingStart recognises "key: value" shorthand typed without braces.
var mappingStart = regexp.MustCompile(`^[\w.\[\]"` + "`" + `]+:\s`)

// parseCondition reads a REPL condition argument. Flow sequences and
// mappings are YAML; anything else is raw SQL.
func parseCondition(arg string) (any, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, errors.New("condition is empty")
	}
	if strings.HasPrefix(arg, "[") || strings.HasPrefix(arg, "{") || mappingStart.MatchString(arg) {
		v, err := parseYAML(arg)
		if err != nil {
			return nil, fmt.Errorf("condition: %w", err)
		}
		return v, nil
	}
	return arg, nil
}

// --- Queries ---

func spread(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	if v == nil {
		return nil
	}
	return []any{v}
}

func mappingPairs(n *yaml.Node) ([][2]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	pairs := make([][2]*yaml.Node, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		pairs = append(pairs, [2]*yaml.Node{n.Content[i], n.Content[i+1]})
	}
	return pairs, nil
}

var joinTypes = map[string]nodes.JoinType{
	"inner": nodes.InnerJoin,
	"left":  nodes.LeftJoin,
	"right": nodes.RightJoin,
	"full":  nodes.FullJoin,
	"cross": nodes.CrossJoin,
}

// decodeQuery reads a query mapping:
//
//	select: [id, name]
//	from: users u
//	where: {status: active}
//	order_by: {name: desc}
//	limit: 10
func decodeQuery(n *yaml.Node) (nodes.Query, error) {
	if n.Kind != yaml.MappingNode {
		return nodes.Query{}, fmt.Errorf("line %d: expected a query mapping", n.Line)
	}
	m := nodes.M()
	for i := 0; i+1 < len(n.Content); i += 2 {
		v, err := decodeValue(n.Content[i+1])
		if err != nil {
			return nodes.Query{}, err
		}
		m.Set(n.Content[i].Value, v)
	}
	return queryFromMap(m)
}

func queryFromMap(m *nodes.Map) (nodes.Query, error) {
	var q nodes.Query
	var err error
	for _, key := range m.Keys() {
		v, _ := m.Get(key)
		switch key {
		case "select":
			q = q.Select(spread(v)...)
		case "distinct":
			b, _ := v.(bool)
			q = q.Distinct(b)
		case "option":
			q = q.SelectOption(fmt.Sprint(v))
		case "from":
			q = q.From(spread(v)...)
		case "join":
			if q, err = decodeJoins(q, v); err != nil {
				return q, err
			}
		case "where":
			q = q.Where(v)
		case "filter_where":
			q = q.FilterWhere(v)
		case "group_by":
			q = q.GroupBy(spread(v)...)
		case "having":
			q = q.Having(v)
		case "order_by":
			q = q.OrderBy(decodeOrder(v)...)
		case "limit":
			q = q.Limit(v)
		case "offset":
			q = q.Offset(v)
		case "union", "union_all":
			for _, member := range spread(v) {
				sub, err := asQuery(member)
				if err != nil {
					return q, fmt.Errorf("%s: %w", key, err)
				}
				if key == "union_all" {
					q = q.UnionAll(sub)
				} else {
					q = q.Union(sub)
				}
			}
		case "with":
			if q, err = decodeCTEs(q, v); err != nil {
				return q, err
			}
		case "params":
			ps, err := decodeParams(v)
			if err != nil {
				return q, err
			}
			q = q.AddParams(ps...)
		default:
			return q, fmt.Errorf("unknown query key %q", key)
		}
	}
	return q, nil
}

// asQuery lets nested queries be written as plain mappings. Other
// values, raw SQL strings included, pass through.
func asQuery(v any) (any, error) {
	m, ok := v.(*nodes.Map)
	if !ok {
		return v, nil
	}
	return queryFromMap(m)
}

func decodeJoins(q nodes.Query, v any) (nodes.Query, error) {
	for _, j := range spread(v) {
		m, ok := j.(*nodes.Map)
		if !ok {
			return q, fmt.Errorf("join: expected a mapping with table and on, got %T", j)
		}
		typ := nodes.InnerJoin
		if t, ok := m.Get("type"); ok {
			jt, known := joinTypes[strings.ToLower(fmt.Sprint(t))]
			if !known {
				return q, fmt.Errorf("join: unknown type %v", t)
			}
			typ = jt
		}
		table, ok := m.Get("table")
		if !ok {
			return q, errors.New("join: table is required")
		}
		if tm, isMap := table.(*nodes.Map); isMap && tm.Len() == 1 {
			alias := tm.Keys()[0]
			expr, _ := tm.Get(alias)
			sub, err := asQuery(expr)
			if err != nil {
				return q, fmt.Errorf("join %s: %w", alias, err)
			}
			table = nodes.As(sub, alias)
		}
		on, _ := m.Get("on")
		q = q.Join(typ, table, on)
	}
	return q, nil
}

func decodeOrder(v any) []any {
	m, ok := v.(*nodes.Map)
	if !ok {
		return spread(v)
	}
	out := make([]any, 0, m.Len())
	for _, col := range m.Keys() {
		dir, _ := m.Get(col)
		if strings.EqualFold(fmt.Sprint(dir), "desc") {
			out = append(out, nodes.Desc(col))
		} else {
			out = append(out, nodes.Asc(col))
		}
	}
	return out
}

func decodeCTEs(q nodes.Query, v any) (nodes.Query, error) {
	for _, c := range spread(v) {
		m, ok := c.(*nodes.Map)
		if !ok {
			return q, fmt.Errorf("with: expected a mapping with alias and query, got %T", c)
		}
		alias, _ := m.Get("alias")
		name, _ := alias.(string)
		if name == "" {
			return q, errors.New("with: alias is required")
		}
		body, ok := m.Get("query")
		if !ok {
			return q, fmt.Errorf("with %s: query is required", name)
		}
		rec, _ := m.Get("recursive")
		recursive, _ := rec.(bool)
		sub, err := asQuery(body)
		if err != nil {
			return q, fmt.Errorf("with %s: %w", name, err)
		}
		q = q.WithQuery(sub, name, recursive)
	}
	return q, nil
}

// decodeParams reads name → value pairs; names get a leading colon.
func decodeParams(v any) ([]nodes.Param, error) {
	m, ok := v.(*nodes.Map)
	if !ok {
		return nil, fmt.Errorf("params: expected a mapping, got %T", v)
	}
	out := make([]nodes.Param, 0, m.Len())
	for _, k := range m.Keys() {
		val, _ := m.Get(k)
		out = append(out, nodes.Named(paramName(k), val))
	}
	return out, nil
}

func paramName(name string) string {
	if strings.HasPrefix(name, ":") {
		return name
	}
	return ":" + name
}

// --- Statements ---

// statement compiles to SQL with a given builder.
type statement func(b *visitors.Builder) (string, *nodes.Params, error)

var statementKinds = []string{"insert", "batch_insert", "update", "delete", "upsert"}

// decodeStatement reads a DML statement mapping such as
//
//	insert: {table: user, values: {email: a@example.com}}
//
// INSERT ... SELECT takes its values as a !query mapping.
func decodeStatement(kind string, n *yaml.Node) (statement, error) {
	v, err := decodeValue(n)
	if err != nil {
		return nil, err
	}
	m, ok := v.(*nodes.Map)
	if !ok {
		return nil, fmt.Errorf("%s: expected a mapping", kind)
	}
	tv, _ := m.Get("table")
	table, _ := tv.(string)
	if table == "" {
		return nil, fmt.Errorf("%s: table is required", kind)
	}
	values, _ := m.Get("values")
	where, _ := m.Get("where")
	var params []nodes.Param
	if pv, ok := m.Get("params"); ok {
		if params, err = decodeParams(pv); err != nil {
			return nil, err
		}
	}

	switch kind {
	case "insert":
		return func(b *visitors.Builder) (string, *nodes.Params, error) {
			return b.Insert(table, values, params...)
		}, nil
	case "batch_insert":
		cv, _ := m.Get("columns")
		var columns []string
		for _, c := range spread(cv) {
			columns = append(columns, fmt.Sprint(c))
		}
		rv, _ := m.Get("rows")
		var rows [][]any
		for _, r := range spread(rv) {
			rows = append(rows, spread(r))
		}
		return func(b *visitors.Builder) (string, *nodes.Params, error) {
			return b.BatchInsert(table, columns, rows)
		}, nil
	case "update":
		set, _ := m.Get("set")
		return func(b *visitors.Builder) (string, *nodes.Params, error) {
			return b.Update(table, set, where, params...)
		}, nil
	case "delete":
		return func(b *visitors.Builder) (string, *nodes.Params, error) {
			return b.Delete(table, where, params...)
		}, nil
	case "upsert":
		uv, _ := m.Get("update")
		update, err := decodeUpdate(uv)
		if err != nil {
			return nil, err
		}
		return func(b *visitors.Builder) (string, *nodes.Params, error) {
			return b.Upsert(table, values, update, params...)
		}, nil
	}
	return nil, fmt.Errorf("unknown statement %q", kind)
}

// decodeUpdate reads the upsert update part: all (default), none, a
// list of columns or a mapping of explicit values.
func decodeUpdate(v any) (visitors.Update, error) {
	switch x := v.(type) {
	case nil:
		return visitors.UpdateAll(), nil
	case bool:
		if x {
			return visitors.UpdateAll(), nil
		}
		return visitors.UpdateNone(), nil
	case string:
		switch strings.ToLower(x) {
		case "all":
			return visitors.UpdateAll(), nil
		case "none":
			return visitors.UpdateNone(), nil
		}
		return visitors.UpdateColumns(x), nil
	case []any:
		cols := make([]string, len(x))
		for i, c := range x {
			cols[i] = fmt.Sprint(c)
		}
		return visitors.UpdateColumns(cols...), nil
	case *nodes.Map:
		return visitors.UpdateValues(x), nil
	}
	return visitors.Update{}, fmt.Errorf("upsert: cannot interpret update %T", v)
}

// --- Schema ---

// decodeTables reads table metadata:
//
//	user:
//	  columns: {id: pk, email: varchar(255) NOT NULL}
//	  unique: [[email]]
//	  sequence: user_id_seq
func decodeTables(f *schema.Factory, v any) ([]*schema.Table, error) {
	m, ok := v.(*nodes.Map)
	if !ok {
		return nil, fmt.Errorf("schema: expected a mapping of tables, got %T", v)
	}
	var out []*schema.Table
	for _, name := range m.Keys() {
		def, _ := m.Get(name)
		t, err := decodeTable(f, name, def)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func decodeTable(f *schema.Factory, name string, v any) (*schema.Table, error) {
	m, ok := v.(*nodes.Map)
	if !ok {
		return nil, fmt.Errorf("table %s: expected a mapping", name)
	}
	cols, _ := m.Get("columns")
	if _, hasColumns := m.Get("columns"); !hasColumns {
		cols = m
	}
	cm, ok := cols.(*nodes.Map)
	if !ok || cm.Len() == 0 {
		return nil, fmt.Errorf("table %s: columns are required", name)
	}
	t := schema.NewTable(name)
	for _, col := range cm.Keys() {
		def, _ := cm.Get(col)
		t.AddColumn(columnFromDefinition(f, col, fmt.Sprint(def)))
	}
	if u, ok := m.Get("unique"); ok {
		for _, set := range spread(u) {
			var names []string
			for _, c := range spread(set) {
				names = append(names, fmt.Sprint(c))
			}
			t.WithUnique(names...)
		}
	}
	if pk, ok := m.Get("primary_key"); ok {
		var names []string
		for _, c := range spread(pk) {
			names = append(names, fmt.Sprint(c))
		}
		t.WithPrimaryKey(names...)
	}
	if seq, ok := m.Get("sequence"); ok {
		t.WithSequence(fmt.Sprint(seq))
	}
	return t, nil
}

// columnFromDefinition expands pk pseudo-types and parses physical
// definitions with the dialect's column factory.
func columnFromDefinition(f *schema.Factory, name, def string) *schema.Column {
	if t := schema.Type(strings.ToLower(strings.TrimSpace(def))); t.IsPseudo() {
		return f.FromPseudoType(string(t), schema.WithName(name))
	}
	return f.FromDefinition(def, schema.WithName(name))
}

// --- Files ---

// queryFile is the content of a `compile` input file: a query or one
// DML statement, optionally with table metadata and a dialect.
type queryFile struct {
	Dialect string
	Tables  []*schema.Table
	Build   statement
}

func parseQueryFile(data []byte, factory func(engine string) *schema.Factory, engine string) (*queryFile, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, errors.New("parse: empty document")
	}
	root := doc.Content[0]
	pairs, err := mappingPairs(root)
	if err != nil {
		return nil, err
	}

	qf := &queryFile{}
	queryNode := &yaml.Node{Kind: yaml.MappingNode}
	var schemaNode *yaml.Node
	for _, kv := range pairs {
		key := kv[0].Value
		switch {
		case key == "dialect":
			qf.Dialect = strings.ToLower(kv[1].Value)
		case key == "schema":
			schemaNode = kv[1]
		case isStatementKind(key):
			if qf.Build != nil {
				return nil, fmt.Errorf("line %d: only one statement per file", kv[0].Line)
			}
			if qf.Build, err = decodeStatement(key, kv[1]); err != nil {
				return nil, err
			}
		default:
			queryNode.Content = append(queryNode.Content, kv[0], kv[1])
		}
	}
	if qf.Dialect != "" {
		if !isValidEngine(qf.Dialect) {
			return nil, fmt.Errorf("unknown dialect %q", qf.Dialect)
		}
		engine = qf.Dialect
	}
	if schemaNode != nil {
		v, err := decodeValue(schemaNode)
		if err != nil {
			return nil, err
		}
		if qf.Tables, err = decodeTables(factory(engine), v); err != nil {
			return nil, err
		}
	}
	if len(queryNode.Content) > 0 {
		if qf.Build != nil {
			return nil, errors.New("a file holds either a query or a statement, not both")
		}
		q, err := decodeQuery(queryNode)
		if err != nil {
			return nil, err
		}
		qf.Build = func(b *visitors.Builder) (string, *nodes.Params, error) { return b.Build(q) }
	}
	if qf.Build == nil {
		return nil, errors.New("nothing to compile")
	}
	return qf, nil
}

func isStatementKind(key string) bool {
	return slices.Contains(statementKinds, key)
}
