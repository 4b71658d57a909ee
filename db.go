// Package db compiles dialect-neutral query descriptions into SQL for
// PostgreSQL, MySQL and SQLite.
//
// This package re-exports commonly used types and functions from subpackages
// for convenience. Advanced users can import subpackages directly:
//   - github.com/sartor/db/nodes (query description and conditions)
//   - github.com/sartor/db/visitors (dialect builders)
//   - github.com/sartor/db/schema (table metadata and typecasting)
//   - github.com/sartor/db/command (execution on database/sql)
//   - github.com/sartor/db/plugins (query transformers)
package db

import (
	"github.com/sartor/db/command"
	"github.com/sartor/db/dberr"
	"github.com/sartor/db/nodes"
	"github.com/sartor/db/visitors"
)

// --- Query description ---

// Query is an immutable SELECT description.
type Query = nodes.Query

// Map is an ordered column → value mapping.
type Map = nodes.Map

// Params is an ordered bag of named parameters.
type Params = nodes.Params

// Param is one named parameter.
type Param = nodes.Param

// Select starts a query with the given columns.
func Select(columns ...any) Query { return nodes.Select(columns...) }

// From starts a query reading from the given tables.
func From(tables ...any) Query { return nodes.From(tables...) }

// M builds a Map from alternating keys and values.
func M(kv ...any) *Map { return nodes.M(kv...) }

// Expr wraps raw SQL so it is emitted verbatim.
func Expr(raw string, params ...Param) *nodes.SqlLiteral {
	return nodes.NewBoundSqlLiteral(raw, params...)
}

// Named creates a named parameter.
func Named(name string, value any) Param { return nodes.Named(name, value) }

// As aliases a table, sub-query or expression.
func As(expr any, alias string) nodes.Aliased { return nodes.As(expr, alias) }

// --- Conditions ---

// And joins conditions with AND.
func And(exprs ...any) *nodes.ConjunctionCondition { return nodes.And(exprs...) }

// Or joins conditions with OR.
func Or(exprs ...any) *nodes.ConjunctionCondition { return nodes.Or(exprs...) }

// Not negates a condition.
func Not(cond any) *nodes.NotCondition { return nodes.Not(cond) }

// In matches column against a list of values or a sub-query.
func In(column, values any) *nodes.InCondition { return nodes.In(column, values) }

// Like matches column against one or more patterns.
func Like(column, values any) *nodes.LikeCondition { return nodes.Like(column, values) }

// Between matches column within [start, end].
func Between(column, start, end any) *nodes.BetweenCondition {
	return nodes.Between(column, start, end)
}

// Exists tests whether q returns rows.
func Exists(q Query) *nodes.ExistsCondition { return nodes.Exists(q) }

// Compare builds "column op value".
func Compare(column any, op string, value any) *nodes.SimpleCondition {
	return nodes.Compare(column, op, value)
}

// --- Builders ---

// Builder compiles queries and statements for one dialect.
type Builder = visitors.Builder

// Option configures a Builder.
type Option = visitors.Option

// NewPostgresBuilder creates a PostgreSQL builder.
func NewPostgresBuilder(opts ...Option) *Builder { return visitors.NewPostgresBuilder(opts...) }

// NewMySQLBuilder creates a MySQL builder.
func NewMySQLBuilder(opts ...Option) *Builder { return visitors.NewMySQLBuilder(opts...) }

// NewSQLiteBuilder creates a SQLite builder.
func NewSQLiteBuilder(opts ...Option) *Builder { return visitors.NewSQLiteBuilder(opts...) }

// Update selects what an upsert overwrites on conflict.
type Update = visitors.Update

// UpdateAll overwrites every inserted column outside the conflict target.
func UpdateAll() Update { return visitors.UpdateAll() }

// UpdateNone ignores conflicting rows.
func UpdateNone() Update { return visitors.UpdateNone() }

// UpdateColumns overwrites only the named columns.
func UpdateColumns(names ...string) Update { return visitors.UpdateColumns(names...) }

// UpdateValues sets explicit values on conflict.
func UpdateValues(m *Map) Update { return visitors.UpdateValues(m) }

// --- Commands ---

// Command is a compiled statement ready for database/sql.
type Command = command.Command

// NewCommand wraps SQL with markers and its parameters.
func NewCommand(b *Builder, sql string, params *Params) *Command {
	return command.New(b, sql, params)
}

// CommandFromQuery compiles q with b.
func CommandFromQuery(b *Builder, q Query) (*Command, error) {
	return command.FromQuery(b, q)
}

// --- Errors ---

var (
	// ErrNotSupported reports syntax the dialect does not have.
	ErrNotSupported = dberr.ErrNotSupported
	// ErrInvalidArgument reports malformed input or missing metadata.
	ErrInvalidArgument = dberr.ErrInvalidArgument
)
