package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sartor/db/command"
	"github.com/sartor/db/nodes"
	"github.com/sartor/db/schema"
	"github.com/sartor/db/visitors"
	_ "modernc.org/sqlite"
)

var driverName = map[string]string{
	"postgres": "pgx",
	"mysql":    "mysql",
	"sqlite":   "sqlite",
}

const maxRows = 1000

type dbConn struct {
	db      *sql.DB
	dsn     string
	engine  string
	version string
}

func connect(ctx context.Context, engine, dsn string) (*dbConn, error) {
	driver, ok := driverName[engine]
	if !ok {
		return nil, fmt.Errorf("no driver for engine %q", engine)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	if engine == "sqlite" {
		// Every connection to :memory: opens a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &dbConn{db: db, dsn: dsn, engine: engine}, nil
}

func (c *dbConn) close() error {
	return c.db.Close()
}

var versionPattern = regexp.MustCompile(`\d+(\.\d+)+`)

// serverVersion asks the server for its version number.
func (c *dbConn) serverVersion(ctx context.Context) (string, error) {
	var query string
	switch c.engine {
	case "postgres":
		query = "SHOW server_version"
	case "mysql":
		query = "SELECT VERSION()"
	case "sqlite":
		query = "SELECT sqlite_version()"
	default:
		return "", fmt.Errorf("unsupported engine: %s", c.engine)
	}
	var raw string
	if err := c.db.QueryRowContext(ctx, query).Scan(&raw); err != nil {
		return "", fmt.Errorf("server version: %w", err)
	}
	v := versionPattern.FindString(raw)
	if v == "" {
		return "", fmt.Errorf("server version: cannot parse %q", raw)
	}
	c.version = v
	return v, nil
}

func (c *dbConn) query(ctx context.Context, cmd *command.Command) (string, error) {
	rows, err := cmd.Query(ctx, c.db)
	if err != nil {
		return "", err
	}
	defer func() { _ = rows.Close() }()
	return formatRows(rows)
}

func (c *dbConn) exec(ctx context.Context, cmd *command.Command) (int64, error) {
	res, err := cmd.Exec(ctx, c.db)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func formatRows(rows *sql.Rows) (string, error) {
	columns, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("columns: %w", err)
	}

	var data [][]string
	truncated := false
	for rows.Next() {
		if len(data) >= maxRows {
			truncated = true
			break
		}
		vals := make([]*sql.NullString, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			vals[i] = &sql.NullString{}
			ptrs[i] = vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", fmt.Errorf("scan: %w", err)
		}
		row := make([]string, len(columns))
		for i, v := range vals {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("rows: %w", err)
	}

	result := formatTable(columns, data)
	if truncated {
		result += fmt.Sprintf("(truncated at %d rows)\n", maxRows)
	}
	return result, nil
}

func formatTable(columns []string, rows [][]string) string {
	if len(columns) == 0 {
		return "(0 rows)\n"
	}

	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	sep := buildSeparator(widths)

	b.WriteString(sep)
	writeRow(&b, widths, columns)
	b.WriteString(sep)
	for _, row := range rows {
		writeRow(&b, widths, row)
	}
	b.WriteString(sep)

	if n := len(rows); n == 1 {
		b.WriteString("(1 row)\n")
	} else {
		fmt.Fprintf(&b, "(%d rows)\n", n)
	}
	return b.String()
}

func writeRow(b *strings.Builder, widths []int, cells []string) {
	b.WriteByte('|')
	for i, cell := range cells {
		fmt.Fprintf(b, " %-*s |", widths[i], cell)
	}
	b.WriteByte('\n')
}

func buildSeparator(widths []int) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteByte('+')
	}
	b.WriteByte('\n')
	return b.String()
}

// --- Introspection ---

// loadSchema reads table and column metadata into a schema.Memory. The
// catalogue queries are compiled by b, so they run through the same
// placeholder rewriting as user queries.
func (c *dbConn) loadSchema(ctx context.Context, b *visitors.Builder) (*schema.Memory, error) {
	names, err := c.tableNames(ctx, b)
	if err != nil {
		return nil, err
	}
	mem := schema.NewMemory()
	for _, name := range names {
		t, err := c.describeTable(ctx, b, name)
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", name, err)
		}
		mem.Add(t)
	}
	return mem, nil
}

func (c *dbConn) tableNames(ctx context.Context, b *visitors.Builder) ([]string, error) {
	var cmd *command.Command
	var err error
	switch c.engine {
	case "postgres":
		cmd, err = command.FromQuery(b, nodes.Select("table_name").
			From("information_schema.tables").
			Where(nodes.M("table_schema", visitors.DefaultPostgresSchema, "table_type", "BASE TABLE")).
			OrderBy("table_name"))
	case "mysql":
		cmd, err = command.FromQuery(b, nodes.Select("table_name").
			From("information_schema.tables").
			Where("table_schema = DATABASE()").
			AndWhere(nodes.M("table_type", "BASE TABLE")).
			OrderBy("table_name"))
	case "sqlite":
		cmd, err = command.FromQuery(b, nodes.Select("name").
			From("sqlite_master").
			Where(nodes.M("type", "table")).
			AndWhere(nodes.NotLike("name", "sqlite_%").Raw()).
			OrderBy("name"))
	default:
		return nil, fmt.Errorf("unsupported engine: %s", c.engine)
	}
	if err != nil {
		return nil, err
	}
	return c.queryStrings(ctx, cmd)
}

var nextvalPattern = regexp.MustCompile(`nextval\('([^']+)'`)

func (c *dbConn) describeTable(ctx context.Context, b *visitors.Builder, table string) (*schema.Table, error) {
	factory := b.ColumnFactory()
	t := schema.NewTable(table)
	switch c.engine {
	case "sqlite":
		cmd := command.New(b, `SELECT name, type, "notnull", pk FROM pragma_table_info(:table) ORDER BY cid`,
			nodes.NewParams(nodes.Named(":table", table)))
		err := c.scan(ctx, cmd, func(rows *sql.Rows) error {
			var name, typ string
			var notNull, pk int
			if err := rows.Scan(&name, &typ, &notNull, &pk); err != nil {
				return err
			}
			col := factory.FromDefinition(typ, schema.WithName(name), schema.WithAllowNull(notNull == 0 && pk == 0))
			if pk > 0 {
				col.PrimaryKey = true
				col.AutoIncrement = col.Type == schema.TypeInteger
			}
			t.AddColumn(col)
			return nil
		})
		return t, err
	case "mysql":
		cmd, err := command.FromQuery(b, nodes.Select("column_name", "column_type", "is_nullable", "column_key", "extra").
			From("information_schema.columns").
			Where("table_schema = DATABASE()").
			AndWhere(nodes.M("table_name", table)).
			OrderBy("ordinal_position"))
		if err != nil {
			return nil, err
		}
		err = c.scan(ctx, cmd, func(rows *sql.Rows) error {
			var name, typ, nullable, key, extra string
			if err := rows.Scan(&name, &typ, &nullable, &key, &extra); err != nil {
				return err
			}
			t.AddColumn(factory.FromDefinition(typ,
				schema.WithName(name),
				schema.WithAllowNull(nullable == "YES"),
				schema.WithPrimaryKey(key == "PRI"),
				schema.WithAutoIncrement(strings.Contains(extra, "auto_increment")),
			))
			if key == "UNI" {
				t.WithUnique(name)
			}
			return nil
		})
		return t, err
	case "postgres":
		cmd, err := command.FromQuery(b, nodes.Select("column_name", "data_type", "is_nullable", "column_default").
			From("information_schema.columns").
			Where(nodes.M("table_schema", visitors.DefaultPostgresSchema, "table_name", table)).
			OrderBy("ordinal_position"))
		if err != nil {
			return nil, err
		}
		err = c.scan(ctx, cmd, func(rows *sql.Rows) error {
			var name, typ, nullable string
			var def sql.NullString
			if err := rows.Scan(&name, &typ, &nullable, &def); err != nil {
				return err
			}
			col := factory.FromDefinition(typ, schema.WithName(name), schema.WithAllowNull(nullable == "YES"))
			if m := nextvalPattern.FindStringSubmatch(def.String); m != nil {
				col.AutoIncrement = true
				t.WithSequence(m[1])
			}
			t.AddColumn(col)
			return nil
		})
		if err != nil {
			return nil, err
		}
		pk, err := c.postgresPrimaryKey(ctx, b, table)
		if err != nil {
			return nil, err
		}
		if len(pk) > 0 {
			t.WithPrimaryKey(pk...)
		}
		return t, nil
	}
	return nil, fmt.Errorf("unsupported engine: %s", c.engine)
}

func (c *dbConn) postgresPrimaryKey(ctx context.Context, b *visitors.Builder, table string) ([]string, error) {
	q := nodes.Select("kcu.column_name").
		From("information_schema.table_constraints tc").
		InnerJoin("information_schema.key_column_usage kcu",
			"kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema").
		Where(nodes.M(
			"tc.constraint_type", "PRIMARY KEY",
			"tc.table_schema", visitors.DefaultPostgresSchema,
			"tc.table_name", table,
		)).
		OrderBy("kcu.ordinal_position")
	cmd, err := command.FromQuery(b, q)
	if err != nil {
		return nil, err
	}
	return c.queryStrings(ctx, cmd)
}

func (c *dbConn) scan(ctx context.Context, cmd *command.Command, fn func(*sql.Rows) error) error {
	rows, err := cmd.Query(ctx, c.db)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (c *dbConn) queryStrings(ctx context.Context, cmd *command.Command) ([]string, error) {
	var result []string
	err := c.scan(ctx, cmd, func(rows *sql.Rows) error {
		var s string
		if err := rows.Scan(&s); err != nil {
			return err
		}
		result = append(result, s)
		return nil
	})
	return result, err
}

// sanitizeDSN masks the password of URL and MySQL style DSNs.
func sanitizeDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err == nil && u.Scheme != "" && u.User != nil {
		if _, hasPass := u.User.Password(); hasPass {
			// Rebuild manually to avoid percent-encoding the mask.
			masked := u.Scheme + "://" + u.User.Username() + ":****@" + u.Host + u.Path
			if u.RawQuery != "" {
				masked += "?" + u.RawQuery
			}
			return masked
		}
		return dsn
	}

	if cfg, err := mysql.ParseDSN(dsn); err == nil && cfg.Passwd != "" {
		cfg.Passwd = "****"
		return cfg.FormatDSN()
	}
	return dsn
}
