package visitors

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/sartor/db/dberr"
	"github.com/sartor/db/nodes"
	"github.com/sartor/db/schema"
)

// ForeignKey describes an ADD CONSTRAINT ... FOREIGN KEY request.
type ForeignKey struct {
	Name       string
	Table      string
	Columns    []string
	RefTable   string
	RefColumns []string
	OnDelete   string
	OnUpdate   string
}

// Index describes a CREATE INDEX request. Type is e.g. UNIQUE or
// FULLTEXT, Method e.g. btree or gin.
type Index struct {
	Name    string
	Table   string
	Columns []string
	Type    string
	Method  string
}

var (
	sizedTypePattern  = regexp.MustCompile(`^(\w+)\((.+?)\)(.*)$`)
	typeWordPattern   = regexp.MustCompile(`^(\w+)\s+`)
	typeSizePattern   = regexp.MustCompile(`\(.+\)`)
	leadingWordSuffix = regexp.MustCompile(`^\w+`)
)

// ColumnType maps an abstract column type (a string or a
// schema.ColumnBuilder) to the dialect's physical definition. Explicit
// sizes and trailing constraints survive the mapping:
//
//	string(100) NOT NULL  →  varchar(100) NOT NULL
func (b *Builder) ColumnType(typ any) string {
	var s string
	switch t := typ.(type) {
	case string:
		s = t
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprint(typ)
	}
	tm := b.dialect.TypeMap()
	if mapped, ok := tm[schema.Type(s)]; ok {
		return mapped
	}
	if m := sizedTypePattern.FindStringSubmatch(s); m != nil {
		if mapped, ok := tm[schema.Type(m[1])]; ok {
			return typeSizePattern.ReplaceAllLiteralString(mapped, "("+m[2]+")") + m[3]
		}
		return s
	}
	if m := typeWordPattern.FindStringSubmatch(s); m != nil {
		if mapped, ok := tm[schema.Type(m[1])]; ok {
			return leadingWordSuffix.ReplaceAllLiteralString(s, mapped)
		}
	}
	return s
}

// CreateTable builds CREATE TABLE. columns is a mapping name → type, or
// a list of definitions emitted verbatim.
func (b *Builder) CreateTable(table string, columns any, options ...string) (string, error) {
	var defs []string
	switch c := columns.(type) {
	case []string:
		for _, d := range c {
			defs = append(defs, "\t"+d)
		}
	default:
		m, ok := nodes.ToMap(columns)
		if !ok {
			return "", dberr.InvalidArgument("CreateTable", "columns must be a mapping or a list of definitions, got %T", columns)
		}
		for _, name := range m.Keys() {
			typ, _ := m.Get(name)
			defs = append(defs, "\t"+b.quoter.QuoteColumnName(name)+" "+b.ColumnType(typ))
		}
	}
	if len(defs) == 0 {
		return "", dberr.InvalidArgument("CreateTable", "table '%s' has no columns", table)
	}
	sql := "CREATE TABLE " + b.quoter.QuoteTableName(table) + " (\n" + strings.Join(defs, ",\n") + "\n)"
	if opt := strings.Join(options, " "); opt != "" {
		sql += " " + opt
	}
	return sql, nil
}

func (b *Builder) DropTable(table string) (string, error) {
	return "DROP TABLE " + b.quoter.QuoteTableName(table), nil
}

// CreateView builds CREATE VIEW name AS sub. A Query sub is compiled and
// its bound values inlined as literals, since views cannot take
// parameters.
func (b *Builder) CreateView(name string, sub any) (string, error) {
	var body string
	switch s := sub.(type) {
	case string:
		body = s
	default:
		q, ok := nodes.AsQuery(sub)
		if !ok {
			return "", dberr.InvalidArgument("CreateView", "view body must be SQL text or a Query, got %T", sub)
		}
		sql, params, err := b.Build(q)
		if err != nil {
			return "", err
		}
		body = b.InlineParams(sql, params)
	}
	return "CREATE VIEW " + b.quoter.QuoteTableName(name) + " AS " + body, nil
}

// InlineParams substitutes every placeholder name with its literal,
// longest names first so that :qp1 never matches inside :qp10.
func (b *Builder) InlineParams(sql string, params *nodes.Params) string {
	all := params.All()
	if len(all) == 0 {
		return sql
	}
	slices.SortStableFunc(all, func(x, y nodes.Param) int { return cmp.Compare(len(y.Name), len(x.Name)) })
	pairs := make([]string, 0, len(all)*2)
	for _, p := range all {
		pairs = append(pairs, p.Name, b.literal(p.Value))
	}
	return strings.NewReplacer(pairs...).Replace(sql)
}

func (b *Builder) DropView(name string) (string, error) {
	return "DROP VIEW " + b.quoter.QuoteTableName(name), nil
}

func (b *Builder) AddColumn(table, column string, typ any) (string, error) {
	return "ALTER TABLE " + b.quoter.QuoteTableName(table) + " ADD " + b.quoter.QuoteColumnName(column) + " " + b.ColumnType(typ), nil
}

func (b *Builder) RenameTable(oldName, newName string) (string, error) {
	return b.dialect.RenameTable(b, oldName, newName)
}

func (b *Builder) TruncateTable(table string) (string, error) {
	return b.dialect.TruncateTable(b, table)
}

func (b *Builder) AlterColumn(table, column string, typ any) (string, error) {
	return b.dialect.AlterColumn(b, table, column, typ)
}

func (b *Builder) RenameColumn(table, oldName, newName string) (string, error) {
	return b.dialect.RenameColumn(b, table, oldName, newName)
}

func (b *Builder) DropColumn(table, column string) (string, error) {
	return b.dialect.DropColumn(b, table, column)
}

func (b *Builder) AddPrimaryKey(name, table string, columns ...string) (string, error) {
	return b.dialect.AddPrimaryKey(b, name, table, columns)
}

func (b *Builder) DropPrimaryKey(name, table string) (string, error) {
	return b.dialect.DropPrimaryKey(b, name, table)
}

func (b *Builder) AddForeignKey(fk ForeignKey) (string, error) {
	return b.dialect.AddForeignKey(b, fk)
}

func (b *Builder) DropForeignKey(name, table string) (string, error) {
	return b.dialect.DropForeignKey(b, name, table)
}

func (b *Builder) AddUnique(name, table string, columns ...string) (string, error) {
	return b.dialect.AddUnique(b, name, table, columns)
}

func (b *Builder) DropUnique(name, table string) (string, error) {
	return b.dialect.DropUnique(b, name, table)
}

func (b *Builder) AddCheck(name, table, expr string) (string, error) {
	return b.dialect.AddCheck(b, name, table, expr)
}

func (b *Builder) DropCheck(name, table string) (string, error) {
	return b.dialect.DropCheck(b, name, table)
}

func (b *Builder) AddDefaultValue(name, table, column string, value any) (string, error) {
	return b.dialect.AddDefaultValue(b, name, table, column, value)
}

func (b *Builder) DropDefaultValue(name, table string) (string, error) {
	return b.dialect.DropDefaultValue(b, name, table)
}

func (b *Builder) CreateIndex(idx Index) (string, error) {
	if len(idx.Columns) == 0 {
		return "", dberr.InvalidArgument("CreateIndex", "index '%s' has no columns", idx.Name)
	}
	return b.dialect.CreateIndex(b, idx)
}

func (b *Builder) DropIndex(name, table string) (string, error) {
	return b.dialect.DropIndex(b, name, table)
}

func (b *Builder) AddCommentOnTable(table, comment string) (string, error) {
	return b.dialect.AddCommentOnTable(b, table, comment)
}

func (b *Builder) AddCommentOnColumn(table, column, comment string) (string, error) {
	return b.dialect.AddCommentOnColumn(b, table, column, comment)
}

func (b *Builder) DropCommentFromTable(table string) (string, error) {
	return b.dialect.DropCommentFromTable(b, table)
}

func (b *Builder) DropCommentFromColumn(table, column string) (string, error) {
	return b.dialect.DropCommentFromColumn(b, table, column)
}

// CheckIntegrity enables (check true) or disables integrity checks. An
// empty table means every table of schemaName where the dialect needs
// a per-table statement.
func (b *Builder) CheckIntegrity(schemaName, table string, check bool) (string, error) {
	return b.dialect.CheckIntegrity(b, schemaName, table, check)
}

func (b *Builder) alterTable(table string) string {
	return "ALTER TABLE " + b.quoter.QuoteTableName(table)
}

func (b *Builder) addConstraint(name, table, body string) string {
	return b.alterTable(table) + " ADD CONSTRAINT " + b.quoter.QuoteColumnName(name) + " " + body
}

func (b *Builder) dropConstraint(name, table string) string {
	return b.alterTable(table) + " DROP CONSTRAINT " + b.quoter.QuoteColumnName(name)
}

func (BaseDialect) RenameTable(b *Builder, oldName, newName string) (string, error) {
	return "RENAME TABLE " + b.quoter.QuoteTableName(oldName) + " TO " + b.quoter.QuoteTableName(newName), nil
}

func (BaseDialect) TruncateTable(b *Builder, table string) (string, error) {
	return "TRUNCATE TABLE " + b.quoter.QuoteTableName(table), nil
}

func (BaseDialect) AlterColumn(b *Builder, table, column string, typ any) (string, error) {
	c := b.quoter.QuoteColumnName(column)
	return b.alterTable(table) + " CHANGE " + c + " " + c + " " + b.ColumnType(typ), nil
}

func (BaseDialect) RenameColumn(b *Builder, table, oldName, newName string) (string, error) {
	return b.alterTable(table) + " RENAME COLUMN " + b.quoter.QuoteColumnName(oldName) + " TO " + b.quoter.QuoteColumnName(newName), nil
}

func (BaseDialect) DropColumn(b *Builder, table, column string) (string, error) {
	return b.alterTable(table) + " DROP COLUMN " + b.quoter.QuoteColumnName(column), nil
}

func (BaseDialect) AddPrimaryKey(b *Builder, name, table string, columns []string) (string, error) {
	return b.addConstraint(name, table, "PRIMARY KEY ("+b.quoteColumns(columns)+")"), nil
}

func (BaseDialect) DropPrimaryKey(b *Builder, name, table string) (string, error) {
	return b.dropConstraint(name, table), nil
}

func (BaseDialect) AddForeignKey(b *Builder, fk ForeignKey) (string, error) {
	sql := b.addConstraint(fk.Name, fk.Table, "FOREIGN KEY ("+b.quoteColumns(fk.Columns)+")") +
		" REFERENCES " + b.quoter.QuoteTableName(fk.RefTable) + " (" + b.quoteColumns(fk.RefColumns) + ")"
	if fk.OnDelete != "" {
		sql += " ON DELETE " + fk.OnDelete
	}
	if fk.OnUpdate != "" {
		sql += " ON UPDATE " + fk.OnUpdate
	}
	return sql, nil
}

func (BaseDialect) DropForeignKey(b *Builder, name, table string) (string, error) {
	return b.dropConstraint(name, table), nil
}

func (BaseDialect) AddUnique(b *Builder, name, table string, columns []string) (string, error) {
	return b.addConstraint(name, table, "UNIQUE ("+b.quoteColumns(columns)+")"), nil
}

func (BaseDialect) DropUnique(b *Builder, name, table string) (string, error) {
	return b.dropConstraint(name, table), nil
}

func (BaseDialect) AddCheck(b *Builder, name, table, expr string) (string, error) {
	return b.addConstraint(name, table, "CHECK ("+b.quoter.QuoteSQL(expr)+")"), nil
}

func (BaseDialect) DropCheck(b *Builder, name, table string) (string, error) {
	return b.dropConstraint(name, table), nil
}

func (BaseDialect) AddDefaultValue(*Builder, string, string, string, any) (string, error) {
	return "", dberr.NotSupported("AddDefaultValue")
}

func (BaseDialect) DropDefaultValue(*Builder, string, string) (string, error) {
	return "", dberr.NotSupported("DropDefaultValue")
}

func (BaseDialect) CreateIndex(b *Builder, idx Index) (string, error) {
	sql := "CREATE "
	if idx.Type != "" {
		sql += idx.Type + " "
	}
	sql += "INDEX " + b.quoter.QuoteTableName(idx.Name) + " ON " + b.quoter.QuoteTableName(idx.Table)
	if idx.Method != "" {
		sql += " USING " + idx.Method
	}
	return sql + " (" + b.quoteColumns(idx.Columns) + ")", nil
}

func (BaseDialect) DropIndex(b *Builder, name, table string) (string, error) {
	return "DROP INDEX " + b.quoter.QuoteTableName(name) + " ON " + b.quoter.QuoteTableName(table), nil
}

func (BaseDialect) AddCommentOnTable(b *Builder, table, comment string) (string, error) {
	return "COMMENT ON TABLE " + b.quoter.QuoteTableName(table) + " IS " + b.quoter.QuoteValue(comment), nil
}

func (BaseDialect) AddCommentOnColumn(b *Builder, table, column, comment string) (string, error) {
	return "COMMENT ON COLUMN " + b.quoter.QuoteTableName(table) + "." + b.quoter.QuoteColumnName(column) + " IS " + b.quoter.QuoteValue(comment), nil
}

func (BaseDialect) DropCommentFromTable(b *Builder, table string) (string, error) {
	return "COMMENT ON TABLE " + b.quoter.QuoteTableName(table) + " IS NULL", nil
}

func (BaseDialect) DropCommentFromColumn(b *Builder, table, column string) (string, error) {
	return "COMMENT ON COLUMN " + b.quoter.QuoteTableName(table) + "." + b.quoter.QuoteColumnName(column) + " IS NULL", nil
}

func (BaseDialect) CheckIntegrity(*Builder, string, string, bool) (string, error) {
	return "", dberr.NotSupported("CheckIntegrity")
}
