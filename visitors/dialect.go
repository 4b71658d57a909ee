package visitors

import (
	"github.com/sartor/db/internal/quoting"
	"github.com/sartor/db/nodes"
	"github.com/sartor/db/schema"
)

// Dialect supplies the syntax that differs between database servers.
//
// Implementations embed BaseDialect and override the hooks they need.
// Hooks receive the Builder so that they can reach the quoter, the
// schema provider and the shared clause builders.
type Dialect interface {
	Name() string
	Quoter() *StandardQuoter
	// Placeholder returns the driver bind marker for the i-th (1-based) argument.
	Placeholder(i int) string
	ColumnFactory() *schema.Factory
	// TypeMap maps abstract column types to physical definitions.
	TypeMap() map[schema.Type]string
	ConditionClasses() map[string]ConditionFactory
	ExpressionBuilders() map[nodes.Kind]ExpressionBuilder

	BuildLimit(b *Builder, limit, offset any, params *nodes.Params) (string, error)
	// EmptyValues is the INSERT tail used when no columns are given.
	EmptyValues() string
	Upsert(b *Builder, table string, insert any, update Update, params *nodes.Params) (string, error)
	ResetSequence(b *Builder, table string, value *int64) (string, error)

	RenameTable(b *Builder, oldName, newName string) (string, error)
	TruncateTable(b *Builder, table string) (string, error)
	AlterColumn(b *Builder, table, column string, typ any) (string, error)
	RenameColumn(b *Builder, table, oldName, newName string) (string, error)
	DropColumn(b *Builder, table, column string) (string, error)
	AddPrimaryKey(b *Builder, name, table string, columns []string) (string, error)
	DropPrimaryKey(b *Builder, name, table string) (string, error)
	AddForeignKey(b *Builder, fk ForeignKey) (string, error)
	DropForeignKey(b *Builder, name, table string) (string, error)
	AddUnique(b *Builder, name, table string, columns []string) (string, error)
	DropUnique(b *Builder, name, table string) (string, error)
	AddCheck(b *Builder, name, table, expr string) (string, error)
	DropCheck(b *Builder, name, table string) (string, error)
	AddDefaultValue(b *Builder, name, table, column string, value any) (string, error)
	DropDefaultValue(b *Builder, name, table string) (string, error)
	CreateIndex(b *Builder, idx Index) (string, error)
	DropIndex(b *Builder, name, table string) (string, error)
	AddCommentOnTable(b *Builder, table, comment string) (string, error)
	AddCommentOnColumn(b *Builder, table, column, comment string) (string, error)
	DropCommentFromTable(b *Builder, table string) (string, error)
	DropCommentFromColumn(b *Builder, table, column string) (string, error)
	CheckIntegrity(b *Builder, schemaName, table string, check bool) (string, error)
}

// BaseDialect implements the generic syntax shared by most servers.
// Operations without a portable form report dberr.ErrNotSupported.
type BaseDialect struct{}

func (BaseDialect) Name() string { return "generic" }

func (BaseDialect) Quoter() *StandardQuoter {
	return NewQuoter(quoting.DoubleQuote, quoting.EscapeStandardString)
}

func (BaseDialect) Placeholder(int) string { return "?" }

func (BaseDialect) ColumnFactory() *schema.Factory { return schema.GenericFactory() }

func (BaseDialect) TypeMap() map[schema.Type]string { return nil }

func (BaseDialect) ConditionClasses() map[string]ConditionFactory { return nil }

func (BaseDialect) ExpressionBuilders() map[nodes.Kind]ExpressionBuilder { return nil }
