package visitors

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sartor/db/dberr"
	"github.com/sartor/db/internal/quoting"
	"github.com/sartor/db/nodes"
	"github.com/sartor/db/schema"
)

// Postgres condition operators on top of the generic set.
const (
	OpILike      = "ILIKE"
	OpNotILike   = "NOT ILIKE"
	OpOrILike    = "OR ILIKE"
	OpOrNotILike = "OR NOT ILIKE"
)

var postgresTypes = map[schema.Type]string{
	schema.TypePK:        "serial NOT NULL PRIMARY KEY",
	schema.TypeUPK:       "serial NOT NULL PRIMARY KEY",
	schema.TypeBigPK:     "bigserial NOT NULL PRIMARY KEY",
	schema.TypeUBigPK:    "bigserial NOT NULL PRIMARY KEY",
	schema.TypeChar:      "char(1)",
	schema.TypeString:    "varchar(255)",
	schema.TypeText:      "text",
	schema.TypeTinyInt:   "smallint",
	schema.TypeSmallInt:  "smallint",
	schema.TypeInteger:   "integer",
	schema.TypeBigInt:    "bigint",
	schema.TypeFloat:     "double precision",
	schema.TypeDouble:    "double precision",
	schema.TypeDecimal:   "numeric(10,0)",
	schema.TypeDateTime:  "timestamp(0)",
	schema.TypeTimestamp: "timestamp(0)",
	schema.TypeTime:      "time(0)",
	schema.TypeDate:      "date",
	schema.TypeBinary:    "bytea",
	schema.TypeBoolean:   "boolean",
	schema.TypeMoney:     "numeric(19,4)",
	schema.TypeJSON:      "jsonb",
	schema.TypeUUID:      "uuid",
	schema.TypeBit:       "bit(1)",
}

// DefaultPostgresSchema is the schema CheckIntegrity targets when none is given.
const DefaultPostgresSchema = "public"

// PostgresDialect generates PostgreSQL syntax.
// Identifiers are quoted with double quotes: "table"."column".
type PostgresDialect struct {
	BaseDialect
}

// NewPostgresBuilder creates a Builder for PostgreSQL.
func NewPostgresBuilder(opts ...Option) *Builder {
	return NewBuilder(PostgresDialect{}, opts...)
}

func (PostgresDialect) Name() string { return "pgsql" }

func (PostgresDialect) Placeholder(i int) string { return fmt.Sprintf("$%d", i) }

func (PostgresDialect) Quoter() *StandardQuoter {
	return NewQuoter(quoting.DoubleQuote, quoting.EscapeStandardString)
}

func (PostgresDialect) ColumnFactory() *schema.Factory { return schema.PostgresFactory() }

func (PostgresDialect) TypeMap() map[schema.Type]string { return postgresTypes }

func (PostgresDialect) ConditionClasses() map[string]ConditionFactory {
	return map[string]ConditionFactory{
		OpILike:      nodes.LikeFromArray,
		OpNotILike:   nodes.LikeFromArray,
		OpOrILike:    nodes.LikeFromArray,
		OpOrNotILike: nodes.LikeFromArray,
	}
}

// Upsert renders INSERT ... ON CONFLICT.
func (PostgresDialect) Upsert(b *Builder, table string, insert any, update Update, params *nodes.Params) (string, error) {
	return b.onConflictUpsert(table, insert, update, params, func(sql string) string {
		return sql + " ON CONFLICT DO NOTHING"
	})
}

// onConflictUpsert is shared by postgres and sqlite, which differ only
// in how a no-update upsert is spelled.
func (b *Builder) onConflictUpsert(table string, insert any, update Update, params *nodes.Params, ignore func(string) string) (string, error) {
	unique, _, updatable, err := b.upsertColumns(table, insert)
	if err != nil {
		return "", err
	}
	sql, err := b.insert(table, insert, params)
	if err != nil {
		return "", err
	}
	sets := b.upsertAssignments(update, updatable, func(c string) string {
		return "EXCLUDED." + b.quoter.QuoteColumnName(c)
	})
	if sets == nil || sets.Len() == 0 {
		return ignore(sql), nil
	}
	assignments, err := b.prepareUpdateSets(table, sets, params)
	if err != nil {
		return "", err
	}
	return sql + " ON CONFLICT (" + b.quoteColumns(unique) + ") DO UPDATE SET " + strings.Join(assignments, ", "), nil
}

func (PostgresDialect) ResetSequence(b *Builder, table string, value *int64) (string, error) {
	t, err := b.sequenceTable(table)
	if err != nil {
		return "", err
	}
	if t.SequenceName == "" {
		return "", dberr.InvalidArgument("ResetSequence", "There is not sequence associated with table '%s'.", table)
	}
	seq := b.quoter.QuoteTableName(t.SequenceName)
	var next string
	if value != nil {
		next = fmt.Sprint(*value)
	} else {
		if len(t.PrimaryKey) == 0 {
			return "", dberr.InvalidArgument("ResetSequence", "table '%s' has no primary key", table)
		}
		next = "(SELECT COALESCE(MAX(" + b.quoter.QuoteColumnName(t.PrimaryKey[0]) + "),0) FROM " +
			b.quoter.QuoteTableName(t.Name) + ")+1"
	}
	return "SELECT SETVAL('" + seq + "'," + next + ",false)", nil
}

func (PostgresDialect) RenameTable(b *Builder, oldName, newName string) (string, error) {
	return b.alterTable(oldName) + " RENAME TO " + b.quoter.QuoteTableName(newName), nil
}

var pgAlterActionPattern = regexp.MustCompile(`(?i)^(DROP|SET|RESET|USING)\s+`)

// AlterColumn changes the column type. Definitions starting with DROP,
// SET, RESET or USING are passed through as the alter action.
func (PostgresDialect) AlterColumn(b *Builder, table, column string, typ any) (string, error) {
	prefix := b.alterTable(table) + " ALTER COLUMN " + b.quoter.QuoteColumnName(column) + " "
	if s, ok := typ.(string); ok && pgAlterActionPattern.MatchString(s) {
		return prefix + s, nil
	}
	return prefix + "TYPE " + b.ColumnType(typ), nil
}

func (PostgresDialect) DropIndex(b *Builder, name, _ string) (string, error) {
	return "DROP INDEX " + b.quoter.QuoteTableName(name), nil
}

func (PostgresDialect) AddDefaultValue(b *Builder, _, table, column string, value any) (string, error) {
	return setDefault(b, table, column, value), nil
}

func setDefault(b *Builder, table, column string, value any) string {
	v := b.literal(value)
	if n, ok := value.(nodes.Node); ok {
		v, _ = b.BuildExpression(n, nodes.NewParams())
	}
	return b.alterTable(table) + " ALTER COLUMN " + b.quoter.QuoteColumnName(column) + " SET DEFAULT " + v
}

// CheckIntegrity toggles triggers, which carry foreign-key checks in
// PostgreSQL. An empty table covers every table the schema provider
// lists.
func (PostgresDialect) CheckIntegrity(b *Builder, schemaName, table string, check bool) (string, error) {
	if schemaName == "" {
		schemaName = DefaultPostgresSchema
	}
	var tables []string
	switch {
	case table != "":
		tables = []string{table}
	default:
		lister, ok := b.schema.(interface{ TableNames() []string })
		if !ok {
			return "", dberr.InvalidArgument("CheckIntegrity", "table name is required when the schema cannot list tables")
		}
		tables = lister.TableNames()
	}
	action := "DISABLE"
	if check {
		action = "ENABLE"
	}
	stmts := make([]string, 0, len(tables))
	for _, t := range tables {
		stmts = append(stmts, "ALTER TABLE "+b.quoter.QuoteTableName(schemaName+"."+t)+" "+action+" TRIGGER ALL;")
	}
	return strings.Join(stmts, " "), nil
}
