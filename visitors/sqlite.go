package visitors

import (
	"strconv"
	"strings"

	"github.com/sartor/db/dberr"
	"github.com/sartor/db/internal/quoting"
	"github.com/sartor/db/nodes"
	"github.com/sartor/db/schema"
)

// sqliteMaxRows stands in for "no limit" when only an offset is given.
const sqliteMaxRows = "9223372036854775807"

var sqliteTypes = map[schema.Type]string{
	schema.TypePK:        "integer PRIMARY KEY AUTOINCREMENT NOT NULL",
	schema.TypeUPK:       "integer PRIMARY KEY AUTOINCREMENT NOT NULL",
	schema.TypeBigPK:     "integer PRIMARY KEY AUTOINCREMENT NOT NULL",
	schema.TypeUBigPK:    "integer PRIMARY KEY AUTOINCREMENT NOT NULL",
	schema.TypeChar:      "char(1)",
	schema.TypeString:    "varchar(255)",
	schema.TypeText:      "text",
	schema.TypeTinyInt:   "tinyint",
	schema.TypeSmallInt:  "smallint",
	schema.TypeInteger:   "integer",
	schema.TypeBigInt:    "bigint",
	schema.TypeFloat:     "float",
	schema.TypeDouble:    "double",
	schema.TypeDecimal:   "decimal(10,0)",
	schema.TypeDateTime:  "datetime",
	schema.TypeTimestamp: "timestamp",
	schema.TypeTime:      "time",
	schema.TypeDate:      "date",
	schema.TypeBinary:    "blob",
	schema.TypeBoolean:   "boolean",
	schema.TypeMoney:     "decimal(19,4)",
	schema.TypeJSON:      "json",
	schema.TypeUUID:      "text",
	schema.TypeBit:       "smallint",
}

// SQLiteDialect generates SQLite syntax.
// Identifiers are quoted with backticks and LIKE carries ESCAPE '\'.
type SQLiteDialect struct {
	BaseDialect
}

// NewSQLiteBuilder creates a Builder for SQLite.
func NewSQLiteBuilder(opts ...Option) *Builder {
	return NewBuilder(SQLiteDialect{}, opts...)
}

func (SQLiteDialect) Name() string { return "sqlite" }

func (SQLiteDialect) Quoter() *StandardQuoter {
	q := NewQuoter(quoting.Backtick, quoting.EscapeStandardString)
	q.LikeEscapeChar = `\`
	return q
}

func (SQLiteDialect) ColumnFactory() *schema.Factory { return schema.SQLiteFactory() }

func (SQLiteDialect) TypeMap() map[schema.Type]string { return sqliteTypes }

func (d SQLiteDialect) BuildLimit(b *Builder, limit, offset any, params *nodes.Params) (string, error) {
	if hasLimit(limit) || !hasOffset(offset) {
		return d.BaseDialect.BuildLimit(b, limit, offset, params)
	}
	s, err := b.limitSQL(offset, params)
	if err != nil {
		return "", err
	}
	return "LIMIT " + sqliteMaxRows + " OFFSET " + s, nil
}

// Upsert renders INSERT ... ON CONFLICT, available from 3.24.0 on.
// A no-update upsert uses INSERT OR IGNORE on every version.
func (SQLiteDialect) Upsert(b *Builder, table string, insert any, update Update, params *nodes.Params) (string, error) {
	if !update.IsNone() && b.serverBelow("3.24.0") {
		return "", dberr.NotSupported("Upsert")
	}
	// INSERT ... SELECT needs a WHERE before ON CONFLICT to parse.
	if q, ok := nodes.AsQuery(insert); ok && q.WhereCond == nil && len(q.Unions) == 0 {
		insert = q.Where("true")
	}
	return b.onConflictUpsert(table, insert, update, params, func(sql string) string {
		return strings.Replace(sql, "INSERT INTO", "INSERT OR IGNORE INTO", 1)
	})
}

func (SQLiteDialect) ResetSequence(b *Builder, table string, value *int64) (string, error) {
	t, err := b.sequenceTable(table)
	if err != nil {
		return "", err
	}
	var seq string
	if value != nil {
		seq = strconv.FormatInt(*value-1, 10)
	} else {
		if len(t.PrimaryKey) == 0 {
			return "", dberr.InvalidArgument("ResetSequence", "table '%s' has no primary key", table)
		}
		seq = "(SELECT MAX(" + b.quoter.QuoteColumnName(t.PrimaryKey[0]) + ") FROM " + b.quoter.QuoteTableName(table) + ")"
	}
	return "UPDATE sqlite_sequence SET seq=" + seq + " WHERE name=" + b.quoter.QuoteValue(t.Name), nil
}

func (SQLiteDialect) RenameTable(b *Builder, oldName, newName string) (string, error) {
	return b.alterTable(oldName) + " RENAME TO " + b.quoter.QuoteTableName(newName), nil
}

func (SQLiteDialect) TruncateTable(b *Builder, table string) (string, error) {
	return "DELETE FROM " + b.quoter.QuoteTableName(table), nil
}

func (SQLiteDialect) AlterColumn(*Builder, string, string, any) (string, error) {
	return "", dberr.NotSupported("AlterColumn")
}

func (d SQLiteDialect) RenameColumn(b *Builder, table, oldName, newName string) (string, error) {
	if b.serverBelow("3.25.0") {
		return "", dberr.NotSupported("RenameColumn")
	}
	return d.BaseDialect.RenameColumn(b, table, oldName, newName)
}

func (d SQLiteDialect) DropColumn(b *Builder, table, column string) (string, error) {
	if b.serverBelow("3.35.0") {
		return "", dberr.NotSupported("DropColumn")
	}
	return d.BaseDialect.DropColumn(b, table, column)
}

func (SQLiteDialect) AddPrimaryKey(*Builder, string, string, []string) (string, error) {
	return "", dberr.NotSupported("AddPrimaryKey")
}

func (SQLiteDialect) DropPrimaryKey(*Builder, string, string) (string, error) {
	return "", dberr.NotSupported("DropPrimaryKey")
}

func (SQLiteDialect) AddForeignKey(*Builder, ForeignKey) (string, error) {
	return "", dberr.NotSupported("AddForeignKey")
}

func (SQLiteDialect) DropForeignKey(*Builder, string, string) (string, error) {
	return "", dberr.NotSupported("DropForeignKey")
}

// AddUnique falls back to a unique index.
func (d SQLiteDialect) AddUnique(b *Builder, name, table string, columns []string) (string, error) {
	return d.CreateIndex(b, Index{Name: name, Table: table, Columns: columns, Type: "UNIQUE"})
}

func (SQLiteDialect) DropUnique(b *Builder, name, _ string) (string, error) {
	return "DROP INDEX " + b.quoter.QuoteTableName(name), nil
}

func (SQLiteDialect) AddCheck(*Builder, string, string, string) (string, error) {
	return "", dberr.NotSupported("AddCheck")
}

func (SQLiteDialect) DropCheck(*Builder, string, string) (string, error) {
	return "", dberr.NotSupported("DropCheck")
}

// CreateIndex ignores the index method. A schema-qualified table moves
// the schema onto the index name.
func (SQLiteDialect) CreateIndex(b *Builder, idx Index) (string, error) {
	parts := b.quoter.TableNameParts(idx.Table)
	name := b.quoter.QuoteTableName(idx.Name)
	table := b.quoter.QuoteTableName(idx.Table)
	if len(parts) == 2 {
		name = b.quoter.QuoteTableName(parts[0] + "." + idx.Name)
		table = b.quoter.QuoteTableName(parts[1])
	}
	sql := "CREATE "
	if idx.Type != "" {
		sql += idx.Type + " "
	}
	return sql + "INDEX " + name + " ON " + table + " (" + b.quoteColumns(idx.Columns) + ")", nil
}

func (SQLiteDialect) DropIndex(b *Builder, name, _ string) (string, error) {
	return "DROP INDEX " + b.quoter.QuoteTableName(name), nil
}

func (SQLiteDialect) AddCommentOnTable(*Builder, string, string) (string, error) {
	return "", dberr.NotSupported("AddCommentOnTable")
}

func (SQLiteDialect) AddCommentOnColumn(*Builder, string, string, string) (string, error) {
	return "", dberr.NotSupported("AddCommentOnColumn")
}

func (SQLiteDialect) DropCommentFromTable(*Builder, string) (string, error) {
	return "", dberr.NotSupported("DropCommentFromTable")
}

func (SQLiteDialect) DropCommentFromColumn(*Builder, string, string) (string, error) {
	return "", dberr.NotSupported("DropCommentFromColumn")
}

func (SQLiteDialect) CheckIntegrity(_ *Builder, _, _ string, check bool) (string, error) {
	if check {
		return "PRAGMA foreign_keys=1", nil
	}
	return "PRAGMA foreign_keys=0", nil
}
