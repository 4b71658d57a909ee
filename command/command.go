// Package command turns compiled SQL and its named parameters into
// driver-ready statements and runs them on a database/sql handle.
package command

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sartor/db/nodes"
	"github.com/sartor/db/visitors"
)

// Execer is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// RowQuerier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type RowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Command is one SQL statement with its named parameters, bound to the
// builder whose dialect produced it.
type Command struct {
	b      *visitors.Builder
	sql    string
	params *nodes.Params
}

// New wraps sql and params. sql may contain {{table}} and [[column]]
// markers and :name placeholders.
func New(b *visitors.Builder, sql string, params *nodes.Params) *Command {
	if params == nil {
		params = nodes.NewParams()
	}
	return &Command{b: b, sql: sql, params: params}
}

// FromQuery compiles q with b.
func FromQuery(b *visitors.Builder, q nodes.Query) (*Command, error) {
	sql, params, err := b.Build(q)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return New(b, sql, params), nil
}

// Params returns the parameter bag.
func (c *Command) Params() *nodes.Params { return c.params }

// SQL returns the statement with table and column markers resolved.
func (c *Command) SQL() string { return c.b.Quoter().QuoteSQL(c.sql) }

// RawSQL returns the statement with every parameter inlined as a
// literal. It is meant for logging and debugging, not for execution.
func (c *Command) RawSQL() string { return c.b.InlineParams(c.SQL(), c.params) }

// Positional rewrites :name placeholders into the dialect's driver
// markers and returns the arguments in order. Placeholders inside
// quoted literals or identifiers and :: casts are left alone.
func (c *Command) Positional() (string, []any, error) {
	src := c.SQL()
	var (
		out  strings.Builder
		args []any
	)
	out.Grow(len(src))
	for i := 0; i < len(src); {
		ch := src[i]
		switch {
		case ch == '\'' || ch == '"' || ch == '`':
			end := skipQuoted(src, i)
			out.WriteString(src[i:end])
			i = end
		case ch == ':' && i+1 < len(src) && src[i+1] == ':':
			out.WriteString("::")
			i += 2
		case ch == ':' && i+1 < len(src) && isNameChar(src[i+1]):
			j := i + 1
			for j < len(src) && isNameChar(src[j]) {
				j++
			}
			name := src[i:j]
			v, ok := c.params.Get(name)
			if !ok {
				v, ok = c.params.Get(name[1:])
			}
			if !ok {
				return "", nil, fmt.Errorf("positional: parameter %s is not bound", name)
			}
			args = append(args, v)
			out.WriteString(c.b.Placeholder(len(args)))
			i = j
		default:
			out.WriteByte(ch)
			i++
		}
	}
	return out.String(), args, nil
}

// skipQuoted returns the index just past the quoted section starting at
// i. A doubled quote character is an escaped quote.
func skipQuoted(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

func isNameChar(ch byte) bool {
	return ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
}

// Exec runs the statement and returns the driver result.
func (c *Command) Exec(ctx context.Context, db Execer) (sql.Result, error) {
	query, args, err := c.Positional()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := db.ExecContext(ctx, query, args...)
	c.log("exec", query, len(args), start, err)
	if err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}
	return res, nil
}

// Query runs the statement and returns the rows; the caller closes them.
func (c *Command) Query(ctx context.Context, db Querier) (*sql.Rows, error) {
	query, args, err := c.Positional()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := db.QueryContext(ctx, query, args...)
	c.log("query", query, len(args), start, err)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return rows, nil
}

// QueryRow runs the statement expecting at most one row. Rewrite errors
// are returned directly; driver errors surface from Row.Scan.
func (c *Command) QueryRow(ctx context.Context, db RowQuerier) (*sql.Row, error) {
	query, args, err := c.Positional()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	row := db.QueryRowContext(ctx, query, args...)
	c.log("query row", query, len(args), start, row.Err())
	return row, nil
}

func (c *Command) log(kind, query string, args int, start time.Time, err error) {
	l := c.b.Logger()
	if err != nil {
		l.Error("command failed", "kind", kind, "sql", query, "args", args, "duration", time.Since(start), "error", err)
		return
	}
	l.Debug("command executed", "kind", kind, "sql", query, "args", args, "duration", time.Since(start))
}
