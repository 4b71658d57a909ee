package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/sartor/db/command"
	"github.com/sartor/db/nodes"
)

// --- Output ---

func (s *Session) cmdSQL() error {
	cmd, err := s.GenerateSQL()
	if err != nil {
		return err
	}
	s.printCommand(cmd)
	return nil
}

func (s *Session) cmdRaw() error {
	cmd, err := s.GenerateSQL()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(s.out, "  %s;\n", cmd.RawSQL())
	return nil
}

func (s *Session) cmdPositional() error {
	cmd, err := s.GenerateSQL()
	if err != nil {
		return err
	}
	sql, args, err := cmd.Positional()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(s.out, "  %s;\n", sql)
	if len(args) > 0 {
		_, _ = fmt.Fprintf(s.out, "  Args: %v\n", args)
	}
	return nil
}

func (s *Session) cmdReset() error {
	s.reset()
	_, _ = fmt.Fprintln(s.out, "  Query cleared")
	return nil
}

func (s *Session) cmdStatus() {
	_, _ = fmt.Fprintf(s.out, "  Dialect: %s\n", s.engine)
	if s.version != nil {
		_, _ = fmt.Fprintf(s.out, "  Server version: %s\n", s.version)
	}
	if s.cfg.TablePrefix != "" {
		_, _ = fmt.Fprintf(s.out, "  Table prefix: %s\n", s.cfg.TablePrefix)
	}
	for _, entry := range s.plugins.entries {
		_, _ = fmt.Fprintf(s.out, "  Plugin: %s (%s)\n", entry.name, entry.status())
	}
	if len(s.unions) > 0 {
		_, _ = fmt.Fprintf(s.out, "  Pushed unions: %d\n", len(s.unions))
	}
	for _, c := range s.ctes {
		_, _ = fmt.Fprintf(s.out, "  CTE: %s\n", c.alias)
	}
	if s.conn != nil {
		_, _ = fmt.Fprintf(s.out, "  Connected: %s (%s)\n", sanitizeDSN(s.conn.dsn), s.conn.engine)
	}
}

// --- Builder settings ---

func (s *Session) cmdDialect(args string) error {
	if err := s.setEngine(args); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(s.out, "  Dialect: %s\n", s.engine)
	return nil
}

func (s *Session) cmdVersion(args string) error {
	arg := strings.TrimSpace(args)
	if strings.EqualFold(arg, "off") {
		s.version = nil
		s.rebuild()
		_, _ = fmt.Fprintln(s.out, "  Server version cleared")
		return nil
	}
	v, err := version.NewVersion(arg)
	if err != nil {
		return fmt.Errorf("version: %w", err)
	}
	s.version = v
	s.rebuild()
	_, _ = fmt.Fprintf(s.out, "  Server version: %s\n", v)
	return nil
}

func (s *Session) cmdPrefix(args string) error {
	s.cfg.TablePrefix = strings.TrimSpace(args)
	s.rebuild()
	_, _ = fmt.Fprintf(s.out, "  Table prefix: %q\n", s.cfg.TablePrefix)
	return nil
}

// cmdSeparator sets the clause separator; "newline" and "space" are
// accepted for the two common choices.
func (s *Session) cmdSeparator(args string) error {
	sep := args
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "newline", `\n`:
		sep = "\n"
	case "space", "":
		sep = " "
	}
	s.cfg.Separator = sep
	s.rebuild()
	_, _ = fmt.Fprintf(s.out, "  Separator: %q\n", sep)
	return nil
}

// --- Table metadata ---

// cmdTable registers metadata: table <name> <yaml>.
func (s *Session) cmdTable(args string) error {
	name, def, ok := strings.Cut(strings.TrimSpace(args), " ")
	if !ok || strings.TrimSpace(def) == "" {
		return errors.New("usage: table <name> {columns: {id: pk, ...}, unique: [[col]]}")
	}
	v, err := parseYAML(def)
	if err != nil {
		return fmt.Errorf("table %s: %w", name, err)
	}
	t, err := decodeTable(s.builder.ColumnFactory(), name, v)
	if err != nil {
		return err
	}
	s.schema.Add(t)
	_, _ = fmt.Fprintf(s.out, "  Registered table %q (%d columns)\n", name, len(t.Columns()))
	return nil
}

func (s *Session) cmdTables() error {
	names := s.schema.TableNames()
	if len(names) == 0 {
		_, _ = fmt.Fprintln(s.out, "  No tables registered")
		return nil
	}
	for _, name := range names {
		_, _ = fmt.Fprintf(s.out, "  table: %s\n", name)
	}
	return nil
}

func (s *Session) cmdDescribe(args string) error {
	name := strings.TrimSpace(args)
	t, ok := s.schema.TableSchema(name)
	if !ok {
		return fmt.Errorf("unknown table %q", name)
	}
	rows := make([][]string, 0, len(t.Columns()))
	for _, c := range t.Columns() {
		var flags []string
		if c.PrimaryKey {
			flags = append(flags, "pk")
		}
		if c.AutoIncrement {
			flags = append(flags, "auto")
		}
		if c.Unsigned {
			flags = append(flags, "unsigned")
		}
		if !c.AllowNull {
			flags = append(flags, "not null")
		}
		rows = append(rows, []string{c.Name, string(c.Type), c.DbType, strings.Join(flags, ", ")})
	}
	_, _ = fmt.Fprint(s.out, formatTable([]string{"column", "type", "db type", "flags"}, rows))
	for _, set := range t.UniqueSets() {
		_, _ = fmt.Fprintf(s.out, "  unique: %s\n", strings.Join(set, ", "))
	}
	if t.SequenceName != "" {
		_, _ = fmt.Fprintf(s.out, "  sequence: %s\n", t.SequenceName)
	}
	return nil
}

// --- Query building ---

func (s *Session) cmdFrom(args string) error {
	tables := splitTopLevelCommas(args)
	if len(tables) == 0 {
		return errors.New("usage: from <table> [alias], ...")
	}
	q := nodes.From(toAny(tables)...)
	s.query = &q
	_, _ = fmt.Fprintf(s.out, "  Query FROM %s\n", strings.Join(tables, ", "))
	return nil
}

func (s *Session) cmdSelect(args string) error {
	cols := splitTopLevelCommas(args)
	if len(cols) == 0 {
		return errors.New("usage: select <col>, ...")
	}
	return s.update(func(q nodes.Query) nodes.Query { return q.Select(toAny(cols)...) })
}

func (s *Session) cmdAddSelect(args string) error {
	cols := splitTopLevelCommas(args)
	if len(cols) == 0 {
		return errors.New("usage: add select <col>, ...")
	}
	return s.update(func(q nodes.Query) nodes.Query { return q.AddSelect(toAny(cols)...) })
}

func (s *Session) cmdDistinct() error {
	return s.update(func(q nodes.Query) nodes.Query { return q.Distinct(true) })
}

func (s *Session) cmdOption(args string) error {
	return s.update(func(q nodes.Query) nodes.Query { return q.SelectOption(strings.TrimSpace(args)) })
}

type conditionFunc func(nodes.Query, any, ...nodes.Param) nodes.Query

func (s *Session) cmdWhere(args string, combine conditionFunc) error {
	cond, err := parseCondition(args)
	if err != nil {
		return err
	}
	return s.update(func(q nodes.Query) nodes.Query { return combine(q, cond) })
}

func (s *Session) cmdFilterWhere(args string) error {
	cond, err := parseCondition(args)
	if err != nil {
		return err
	}
	return s.update(func(q nodes.Query) nodes.Query { return q.AndFilterWhere(cond) })
}

func (s *Session) cmdGroupBy(args string) error {
	cols := splitTopLevelCommas(args)
	if len(cols) == 0 {
		return errors.New("usage: group by <col>, ...")
	}
	return s.update(func(q nodes.Query) nodes.Query { return q.AddGroupBy(toAny(cols)...) })
}

func (s *Session) cmdOrderBy(args string) error {
	cols := splitTopLevelCommas(args)
	if len(cols) == 0 {
		return errors.New("usage: order by <col> [asc|desc], ...")
	}
	return s.update(func(q nodes.Query) nodes.Query { return q.AddOrderBy(toAny(cols)...) })
}

// limitValue accepts a number or a raw expression.
func limitValue(arg string) any {
	arg = strings.TrimSpace(arg)
	if n, err := strconv.Atoi(arg); err == nil {
		return n
	}
	return nodes.NewSqlLiteral(arg)
}

func (s *Session) cmdLimit(args string) error {
	return s.update(func(q nodes.Query) nodes.Query { return q.Limit(limitValue(args)) })
}

func (s *Session) cmdOffset(args string) error {
	return s.update(func(q nodes.Query) nodes.Query { return q.Offset(limitValue(args)) })
}

// cmdParam binds a named value: param <name> <yaml value>.
func (s *Session) cmdParam(args string) error {
	name, raw, ok := strings.Cut(strings.TrimSpace(args), " ")
	if !ok {
		return errors.New("usage: param <name> <value>")
	}
	v, err := parseYAML(raw)
	if err != nil {
		return fmt.Errorf("param %s: %w", name, err)
	}
	name = paramName(name)
	for i, p := range s.params {
		if p.Name == name {
			s.params[i].Value = v
			return nil
		}
	}
	s.params = append(s.params, nodes.Named(name, v))
	return nil
}

func (s *Session) cmdJoin(args string, typ nodes.JoinType) error {
	table, on, ok := splitOn(args, "on")
	if !ok || table == "" || on == "" {
		return errors.New("usage: join <table> [alias] on <condition>")
	}
	cond, err := parseCondition(on)
	if err != nil {
		return err
	}
	return s.update(func(q nodes.Query) nodes.Query { return q.Join(typ, table, cond) })
}

func (s *Session) cmdCrossJoin(args string) error {
	table := strings.TrimSpace(args)
	if table == "" {
		return errors.New("usage: cross join <table>")
	}
	return s.update(func(q nodes.Query) nodes.Query { return q.Join(nodes.CrossJoin, table, nil) })
}

// cmdUnion pushes the current query; the next 'from' starts the next member.
func (s *Session) cmdUnion(all bool) error {
	if s.query == nil {
		return errNoQuery
	}
	s.unions = append(s.unions, unionEntry{query: *s.query, all: all})
	s.query = nil
	op := "UNION"
	if all {
		op = "UNION ALL"
	}
	_, _ = fmt.Fprintf(s.out, "  Pushed query for %s (%d on stack)\n", op, len(s.unions))
	return nil
}

// cmdWith pushes the current query as a named CTE.
func (s *Session) cmdWith(args string, recursive bool) error {
	alias := strings.TrimSpace(args)
	if alias == "" {
		return errors.New("usage: with [recursive] <alias>")
	}
	q, err := s.currentQuery()
	if err != nil {
		return err
	}
	s.ctes = append(s.ctes, cteEntry{alias: alias, query: q, recursive: recursive})
	s.query = nil
	s.unions = nil
	_, _ = fmt.Fprintf(s.out, "  Pushed CTE %q\n", alias)
	return nil
}

// --- Statements ---

// cmdStatement compiles a DML statement: stmt <kind> <yaml>. With run
// set the statement is executed on the connection.
func (s *Session) cmdStatement(args string, run bool) error {
	kind, body, _ := strings.Cut(strings.TrimSpace(args), " ")
	kind = strings.ToLower(kind)
	if !isStatementKind(kind) {
		return fmt.Errorf("usage: stmt <%s> <yaml>", strings.Join(statementKinds, "|"))
	}
	stmt, err := parseStatement(kind, body)
	if err != nil {
		return err
	}
	sql, params, err := stmt(s.builder)
	if err != nil {
		return err
	}
	cmd := command.New(s.builder, sql, params)
	s.printCommand(cmd)
	if !run {
		return nil
	}
	if s.conn == nil {
		return errors.New("not connected (use 'connect <dsn>' first)")
	}
	n, err := s.conn.exec(s.ctx, cmd)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(s.out, "  %d row(s) affected\n", n)
	return nil
}

// cmdCreateTable prints CREATE TABLE: create table <name> {col: type, ...} [options].
func (s *Session) cmdCreateTable(args string) error {
	name, def, ok := strings.Cut(strings.TrimSpace(args), " ")
	if !ok {
		return errors.New("usage: create table <name> {col: type, ...}")
	}
	var options []string
	if cols, opts, found := splitAfterMapping(def); found {
		def = cols
		if opts != "" {
			options = append(options, opts)
		}
	}
	v, err := parseYAML(def)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if list, isList := v.([]any); isList {
		defs := make([]string, len(list))
		for i, d := range list {
			defs[i] = fmt.Sprint(d)
		}
		v = defs
	}
	sql, err := s.builder.CreateTable(name, v, options...)
	if err != nil {
		return err
	}
	s.printCommand(command.New(s.builder, sql, nil))
	return nil
}

func (s *Session) cmdDropTable(args string) error {
	sql, err := s.builder.DropTable(strings.TrimSpace(args))
	if err != nil {
		return err
	}
	s.printCommand(command.New(s.builder, sql, nil))
	return nil
}

// splitAfterMapping separates a leading flow mapping or sequence from
// trailing text.
func splitAfterMapping(s string) (string, string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return s, "", false
	}
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '{' || ch == '[':
			depth++
		case ch == '}' || ch == ']':
			depth--
			if depth == 0 {
				return s[:i+1], strings.TrimSpace(s[i+1:]), true
			}
		}
	}
	return s, "", false
}

// --- Database connectivity ---

func (s *Session) cmdConnect(args string) error {
	if s.conn != nil {
		return fmt.Errorf("already connected to %s (use 'disconnect' first)", sanitizeDSN(s.conn.dsn))
	}
	dsn := strings.TrimSpace(args)
	if dsn == "" {
		dsn = s.lastDSN
	}
	if dsn == "" {
		return errors.New("usage: connect <dsn>")
	}
	return s.connectWithDSN(dsn)
}

// cmdRun executes the current query and prints the result set.
func (s *Session) cmdRun() error {
	if s.conn == nil {
		return errors.New("not connected (use 'connect <dsn>' first)")
	}
	if s.conn.engine != s.engine {
		_, _ = fmt.Fprintf(s.out, "  Warning: connected to %s but dialect is %s\n", s.conn.engine, s.engine)
	}
	cmd, err := s.GenerateSQL()
	if err != nil {
		return err
	}
	s.printCommand(cmd)
	result, err := s.conn.query(s.ctx, cmd)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprint(s.out, result)
	return nil
}

// --- Plugins ---

func (s *Session) cmdPlugin(args string) error {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		return errEmptyArgs
	}
	name := strings.ToLower(parts[0])
	if name == "off" {
		return s.cmdPluginOff(parts[1:])
	}
	for _, c := range s.configurers {
		if c.name == name {
			return c.configure(s, strings.TrimSpace(args[len(parts[0]):]))
		}
	}
	return fmt.Errorf("unknown plugin %q (available: %s)", name, strings.Join(s.pluginNames(), ", "))
}

func (s *Session) cmdPluginOff(names []string) error {
	if len(names) == 0 {
		s.plugins.deregisterAll()
		s.rebuild()
		_, _ = fmt.Fprintln(s.out, "  All plugins disabled")
		return nil
	}
	for _, name := range names {
		if !s.plugins.deregister(name) {
			return fmt.Errorf("plugin %q is not enabled", name)
		}
		_, _ = fmt.Fprintf(s.out, "  Plugin %s disabled\n", name)
	}
	s.rebuild()
	return nil
}

func (s *Session) cmdPlugins() {
	if len(s.plugins.entries) == 0 {
		_, _ = fmt.Fprintln(s.out, "  No plugins enabled")
		return
	}
	names := s.plugins.names()
	sort.Strings(names)
	for _, name := range names {
		e, _ := s.plugins.get(name)
		_, _ = fmt.Fprintf(s.out, "  %s: %s\n", e.name, e.status())
	}
}

func toAny(items []string) []any {
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

func (s *Session) cmdHelp() {
	_, _ = io.WriteString(s.out, `
  Query Building:
    from <table> [alias], ...       Start a new query
    select <cols>                   Set the select list
    add select <cols>               Append to the select list
    distinct                        SELECT DISTINCT
    option <text>                   Select option, e.g. SQL_CALC_FOUND_ROWS
    where <condition>               AND a WHERE condition
    or where <condition>            OR a WHERE condition
    filter where <condition>        AND a condition, dropping empty operands
    [left|right|full] join <t> on <condition>
    cross join <table>
    group by <cols>                 Append GROUP BY columns
    having <condition>              AND a HAVING condition
    order by <col> [asc|desc], ...  Append ORDER BY columns
    limit <n> / offset <n>
    param <name> <value>            Bind a named parameter
    union [all]                     Push the query; 'from' starts the next member
    with [recursive] <alias>        Push the query as a CTE

  Conditions are raw SQL, or YAML:
    where {status: active, id: [1, 2]}
    where [and, {a: 1}, [">", b, 2]]
    where [like, name, tom]

  Statements:
    stmt insert {table: t, values: {a: 1}}
    stmt batch_insert {table: t, columns: [a, b], rows: [[1, 2]]}
    stmt update {table: t, set: {a: 1}, where: {id: 2}}
    stmt delete {table: t, where: {id: 2}}
    stmt upsert {table: t, values: {a: 1}, update: all|none|[cols]|{col: v}}
    exec <kind> <yaml>              Compile and execute a statement
    create table <name> {col: type} [options]
    drop table <name>

  Output:
    sql                             Show SQL with :name placeholders and params
    raw                             Show SQL with parameters inlined
    positional                      Show SQL with driver placeholders
    status                          Show session settings
    reset                           Clear the query, unions, CTEs and params

  Settings:
    dialect <postgres|mysql|sqlite|generic>
    version <x.y.z|off>             Server version for version-gated syntax
    prefix <p>                      Replacement for % in {{%table}}
    separator <newline|space|text>
    plugin softdelete [column] [on tables...]
    plugin off [name]
    plugins

  Metadata:
    table <name> {columns: {id: pk, email: string}, unique: [[email]]}
    tables
    describe <table>

  Database:
    connect <dsn>                   Connect and load table metadata
    disconnect
    run                             Execute the current query

  exit / quit
`)
}

// parseStatement decodes the YAML body of a stmt/exec command.
func parseStatement(kind, body string) (statement, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%s: body is required", kind)
	}
	node, err := yamlNode(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return decodeStatement(kind, node)
}
