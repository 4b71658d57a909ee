// Package softdelete provides a Transformer that injects "column IS NULL"
// conditions into queries, filtering out soft-deleted rows.
//
// By default it appends WHERE "deleted_at" IS NULL for every table
// referenced in the FROM and JOIN clauses. Both the column name and the
// set of tables can be customised via options.
//
// # Basic usage
//
//	b := visitors.NewPostgresBuilder(visitors.WithTransformers(softdelete.New()))
//	sql, _, _ := b.Build(nodes.From("users"))
//	// SELECT * FROM "users" WHERE "users"."deleted_at" IS NULL
//
// # Custom column
//
//	sd := softdelete.New(softdelete.WithColumn("removed_at"))
//	// ... WHERE "users"."removed_at" IS NULL
//
// # Restrict to specific tables
//
// When a query joins multiple tables but only some use soft-delete:
//
//	sd := softdelete.New(softdelete.WithTables("users"))
//	// Only "users" gets the IS NULL condition; other joined tables are unchanged.
//
// # Per-table columns
//
// Different tables may use different column names for soft-delete:
//
//	sd := softdelete.New(
//	    softdelete.WithTableColumn("users", "deleted_at"),
//	    softdelete.WithTableColumn("posts", "removed_at"),
//	)
//	// users gets "deleted_at" IS NULL; posts gets "removed_at" IS NULL
//
// # REPL usage
//
//	sqlb> plugin softdelete
//	sqlb> plugin softdelete removed_at
//	sqlb> plugin softdelete removed_at on users posts
//	sqlb> plugin off softdelete
package softdelete

import (
	"github.com/sartor/db/nodes"
	"github.com/sartor/db/plugins"
)

// SoftDelete is a Transformer that appends IS NULL conditions for a
// soft-delete column on every referenced table (or a configured subset).
type SoftDelete struct {
	plugins.BaseTransformer
	Column  string
	Columns map[string]string // per-table column overrides (table name → column name)
	tables  map[string]bool   // nil means apply to all tables
}

// Option configures a SoftDelete transformer.
type Option func(*SoftDelete)

// WithColumn sets the soft-delete column name. Default is "deleted_at".
func WithColumn(name string) Option {
	return func(sd *SoftDelete) { sd.Column = name }
}

// WithTables restricts the plugin to only the named tables.
// By default, the plugin applies to every table in the query.
func WithTables(names ...string) Option {
	return func(sd *SoftDelete) {
		sd.tables = make(map[string]bool, len(names))
		for _, n := range names {
			sd.tables[n] = true
		}
	}
}

// WithTableColumn sets a per-table column override. The table is
// automatically added to the whitelist, restricting the plugin's scope.
func WithTableColumn(table, column string) Option {
	return func(sd *SoftDelete) {
		if sd.Columns == nil {
			sd.Columns = make(map[string]string)
		}
		sd.Columns[table] = column
		if sd.tables == nil {
			sd.tables = make(map[string]bool)
		}
		sd.tables[table] = true
	}
}

// New creates a SoftDelete transformer with the given options.
func New(opts ...Option) *SoftDelete {
	sd := &SoftDelete{Column: "deleted_at"}
	for _, o := range opts {
		o(sd)
	}
	return sd
}

// TransformQuery ANDs "ref.column IS NULL" into the WHERE clause for
// each matching table referenced in the query (FROM and JOINs).
func (sd *SoftDelete) TransformQuery(q nodes.Query) (nodes.Query, error) {
	cond := nodes.M()
	for _, ref := range plugins.CollectTables(q) {
		if sd.appliesTo(ref.Name) {
			cond.Set(ref.Ref+"."+sd.columnFor(ref.Name), nil)
		}
	}
	if cond.Len() == 0 {
		return q, nil
	}
	return q.AndWhere(cond), nil
}

func (sd *SoftDelete) appliesTo(tableName string) bool {
	if sd.tables == nil {
		return true
	}
	return sd.tables[tableName]
}

// columnFor returns the column name to use for the given table.
// It checks Columns for a per-table override, falling back to Column.
func (sd *SoftDelete) columnFor(tableName string) string {
	if sd.Columns != nil {
		if col, ok := sd.Columns[tableName]; ok {
			return col
		}
	}
	return sd.Column
}
