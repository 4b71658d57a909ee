package visitors

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sartor/db/dberr"
	"github.com/sartor/db/internal/quoting"
	"github.com/sartor/db/nodes"
	"github.com/sartor/db/schema"
)

// mysqlMaxRows stands in for "no limit" when only an offset is given.
const mysqlMaxRows = "18446744073709551615"

var mysqlTypes = map[schema.Type]string{
	schema.TypePK:        "int(11) NOT NULL AUTO_INCREMENT PRIMARY KEY",
	schema.TypeUPK:       "int(10) UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY",
	schema.TypeBigPK:     "bigint(20) NOT NULL AUTO_INCREMENT PRIMARY KEY",
	schema.TypeUBigPK:    "bigint(20) UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY",
	schema.TypeChar:      "char(1)",
	schema.TypeString:    "varchar(255)",
	schema.TypeText:      "text",
	schema.TypeTinyInt:   "tinyint(3)",
	schema.TypeSmallInt:  "smallint(6)",
	schema.TypeInteger:   "int(11)",
	schema.TypeBigInt:    "bigint(20)",
	schema.TypeFloat:     "float",
	schema.TypeDouble:    "double",
	schema.TypeDecimal:   "decimal(10,0)",
	schema.TypeDateTime:  "datetime(0)",
	schema.TypeTimestamp: "timestamp(0)",
	schema.TypeTime:      "time(0)",
	schema.TypeDate:      "date",
	schema.TypeBinary:    "blob",
	schema.TypeBoolean:   "bit(1)",
	schema.TypeMoney:     "decimal(19,4)",
	schema.TypeJSON:      "json",
	schema.TypeUUID:      "char(36)",
	schema.TypeBit:       "bit(1)",
}

// MySQLDialect generates MySQL and MariaDB syntax.
// Identifiers are quoted with backticks: `table`.`column`.
type MySQLDialect struct {
	BaseDialect
}

// NewMySQLBuilder creates a Builder for MySQL.
func NewMySQLBuilder(opts ...Option) *Builder {
	return NewBuilder(MySQLDialect{}, opts...)
}

func (MySQLDialect) Name() string { return "mysql" }

func (MySQLDialect) Quoter() *StandardQuoter {
	return NewQuoter(quoting.Backtick, quoting.EscapeString)
}

func (MySQLDialect) ColumnFactory() *schema.Factory { return schema.MySQLFactory() }

func (MySQLDialect) TypeMap() map[schema.Type]string { return mysqlTypes }

func (MySQLDialect) EmptyValues() string { return " () VALUES ()" }

// BuildLimit uses LIMIT offset, max when only an offset is set.
func (d MySQLDialect) BuildLimit(b *Builder, limit, offset any, params *nodes.Params) (string, error) {
	if hasLimit(limit) || !hasOffset(offset) {
		return d.BaseDialect.BuildLimit(b, limit, offset, params)
	}
	s, err := b.limitSQL(offset, params)
	if err != nil {
		return "", err
	}
	return "LIMIT " + s + ", " + mysqlMaxRows, nil
}

// Upsert renders INSERT ... ON DUPLICATE KEY UPDATE. Servers from
// 8.0.19 on read incoming values through a row alias instead of the
// deprecated VALUES() function.
func (MySQLDialect) Upsert(b *Builder, table string, insert any, update Update, params *nodes.Params) (string, error) {
	unique, _, updatable, err := b.upsertColumns(table, insert)
	if err != nil {
		return "", err
	}
	sql, err := b.insert(table, insert, params)
	if err != nil {
		return "", err
	}
	_, fromQuery := nodes.AsQuery(insert)
	rowAlias := !fromQuery && b.serverAtLeast("8.0.19")

	sets := b.upsertAssignments(update, updatable, func(c string) string {
		if rowAlias {
			return "new." + b.quoter.QuoteColumnName(c)
		}
		return "VALUES(" + b.quoter.QuoteColumnName(c) + ")"
	})
	if sets == nil || sets.Len() == 0 {
		// No-op assignment keeps the row and suppresses the duplicate error.
		first := b.quoter.QuoteColumnName(unique[0])
		sets = nodes.M(unique[0], nodes.NewSqlLiteral(first))
		rowAlias = false
	}
	assignments, err := b.prepareUpdateSets(table, sets, params)
	if err != nil {
		return "", err
	}
	if rowAlias {
		sql += " AS new"
	}
	return sql + " ON DUPLICATE KEY UPDATE " + strings.Join(assignments, ", "), nil
}

func (MySQLDialect) ResetSequence(b *Builder, table string, value *int64) (string, error) {
	t, err := b.sequenceTable(table)
	if err != nil {
		return "", err
	}
	name := b.quoter.QuoteTableName(table)
	if value != nil {
		return "ALTER TABLE " + name + " AUTO_INCREMENT=" + strconv.FormatInt(*value, 10) + ";", nil
	}
	if len(t.PrimaryKey) == 0 {
		return "", dberr.InvalidArgument("ResetSequence", "table '%s' has no primary key", table)
	}
	key := b.quoter.QuoteColumnName(t.PrimaryKey[0])
	return "SET @new_autoincrement_value := (SELECT MAX(" + key + ") + 1 FROM " + name + ");\n" +
		"SET @sql = CONCAT(" + b.quoter.QuoteValue("ALTER TABLE "+name+" AUTO_INCREMENT =") + ", @new_autoincrement_value);\n" +
		"PREPARE autoincrement_stmt FROM @sql;\n" +
		"EXECUTE autoincrement_stmt", nil
}

func (MySQLDialect) DropPrimaryKey(b *Builder, _, table string) (string, error) {
	return b.alterTable(table) + " DROP PRIMARY KEY", nil
}

func (MySQLDialect) DropForeignKey(b *Builder, name, table string) (string, error) {
	return b.alterTable(table) + " DROP FOREIGN KEY " + b.quoter.QuoteColumnName(name), nil
}

func (MySQLDialect) DropUnique(b *Builder, name, table string) (string, error) {
	return b.alterTable(table) + " DROP INDEX " + b.quoter.QuoteColumnName(name), nil
}

func (MySQLDialect) AddDefaultValue(b *Builder, _, table, column string, value any) (string, error) {
	return setDefault(b, table, column, value), nil
}

func (MySQLDialect) CreateIndex(b *Builder, idx Index) (string, error) {
	sql := "CREATE "
	if idx.Type != "" {
		sql += idx.Type + " "
	}
	sql += "INDEX " + b.quoter.QuoteTableName(idx.Name)
	if idx.Method != "" {
		sql += " USING " + idx.Method
	}
	return sql + " ON " + b.quoter.QuoteTableName(idx.Table) + " (" + b.quoteColumns(idx.Columns) + ")", nil
}

func (MySQLDialect) AddCommentOnTable(b *Builder, table, comment string) (string, error) {
	return b.alterTable(table) + " COMMENT " + b.quoter.QuoteValue(comment), nil
}

func (MySQLDialect) DropCommentFromTable(b *Builder, table string) (string, error) {
	return b.alterTable(table) + " COMMENT " + b.quoter.QuoteValue(""), nil
}

// AddCommentOnColumn restates the column definition, which MySQL
// requires when changing a comment; the definition comes from schema
// metadata.
func (MySQLDialect) AddCommentOnColumn(b *Builder, table, column, comment string) (string, error) {
	def, err := mysqlColumnDefinition(b, table, column)
	if err != nil {
		return "", err
	}
	c := b.quoter.QuoteColumnName(column)
	return b.alterTable(table) + " CHANGE " + c + " " + c + " " + def + " COMMENT " + b.quoter.QuoteValue(comment), nil
}

func (d MySQLDialect) DropCommentFromColumn(b *Builder, table, column string) (string, error) {
	return d.AddCommentOnColumn(b, table, column, "")
}

func mysqlColumnDefinition(b *Builder, table, column string) (string, error) {
	t, ok := b.tableSchema(table)
	if !ok {
		return "", dberr.InvalidArgument("AddCommentOnColumn", "Table not found: '%s'.", table)
	}
	c, ok := t.Column(column)
	if !ok {
		return "", dberr.InvalidArgument("AddCommentOnColumn", "column '%s' not found in table '%s'", column, table)
	}
	def := c.DbType
	if def == "" {
		def = b.ColumnType(string(c.Type))
	}
	if c.Size > 0 && !strings.Contains(def, "(") {
		if c.Scale > 0 {
			def += fmt.Sprintf("(%d,%d)", c.Size, c.Scale)
		} else {
			def += fmt.Sprintf("(%d)", c.Size)
		}
	}
	if c.Unsigned && !strings.Contains(strings.ToUpper(def), "UNSIGNED") {
		def += " UNSIGNED"
	}
	if !c.AllowNull {
		def += " NOT NULL"
	}
	return def, nil
}

func (MySQLDialect) CheckIntegrity(_ *Builder, _, _ string, check bool) (string, error) {
	if check {
		return "SET FOREIGN_KEY_CHECKS = 1;", nil
	}
	return "SET FOREIGN_KEY_CHECKS = 0;", nil
}
