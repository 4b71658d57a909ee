package schema

import (
	"strconv"
	"strings"

	"github.com/sartor/db/internal/quoting"
)

// ColumnBuilder assembles an abstract column definition for CREATE TABLE
// and ADD COLUMN. Its String form, e.g. "string(64) NOT NULL", is mapped
// to the dialect's physical type when the statement is built:
//
//	schema.String(64).NotNull().Default("guest")
type ColumnBuilder struct {
	typ      Type
	length   []string
	notNull  *bool
	unique   bool
	unsigned bool
	check    string
	def      string
	append   string
}

func newBuilder(t Type, length ...int) *ColumnBuilder {
	b := &ColumnBuilder{typ: t}
	for _, n := range length {
		b.length = append(b.length, strconv.Itoa(n))
	}
	return b
}

// PrimaryKey is an auto-incrementing integer primary key.
func PrimaryKey() *ColumnBuilder { return newBuilder(TypePK) }

// BigPrimaryKey is an auto-incrementing bigint primary key.
func BigPrimaryKey() *ColumnBuilder { return newBuilder(TypeBigPK) }

// Typed column constructors; length arguments render as type(a,b).
func Char(length ...int) *ColumnBuilder         { return newBuilder(TypeChar, length...) }
func String(length ...int) *ColumnBuilder       { return newBuilder(TypeString, length...) }
func Text() *ColumnBuilder                      { return newBuilder(TypeText) }
func TinyInt(length ...int) *ColumnBuilder      { return newBuilder(TypeTinyInt, length...) }
func SmallInt(length ...int) *ColumnBuilder     { return newBuilder(TypeSmallInt, length...) }
func Integer(length ...int) *ColumnBuilder      { return newBuilder(TypeInteger, length...) }
func BigInt(length ...int) *ColumnBuilder       { return newBuilder(TypeBigInt, length...) }
func Float(precision ...int) *ColumnBuilder     { return newBuilder(TypeFloat, precision...) }
func Double(precision ...int) *ColumnBuilder    { return newBuilder(TypeDouble, precision...) }
func Decimal(precScale ...int) *ColumnBuilder   { return newBuilder(TypeDecimal, precScale...) }
func DateTime(precision ...int) *ColumnBuilder  { return newBuilder(TypeDateTime, precision...) }
func Timestamp(precision ...int) *ColumnBuilder { return newBuilder(TypeTimestamp, precision...) }
func Time(precision ...int) *ColumnBuilder      { return newBuilder(TypeTime, precision...) }
func Date() *ColumnBuilder                      { return newBuilder(TypeDate) }
func Binary(length ...int) *ColumnBuilder       { return newBuilder(TypeBinary, length...) }
func Boolean() *ColumnBuilder                   { return newBuilder(TypeBoolean) }
func Money(precScale ...int) *ColumnBuilder     { return newBuilder(TypeMoney, precScale...) }
func JSON() *ColumnBuilder                      { return newBuilder(TypeJSON) }
func UUID() *ColumnBuilder                      { return newBuilder(TypeUUID) }

// NotNull adds NOT NULL.
func (b *ColumnBuilder) NotNull() *ColumnBuilder {
	v := true
	b.notNull = &v
	return b
}

// Null adds an explicit NULL.
func (b *ColumnBuilder) Null() *ColumnBuilder {
	v := false
	b.notNull = &v
	return b
}

// Unique adds UNIQUE.
func (b *ColumnBuilder) Unique() *ColumnBuilder {
	b.unique = true
	return b
}

// Unsigned adds UNSIGNED to numeric types; pk and bigpk become upk and ubigpk.
func (b *ColumnBuilder) Unsigned() *ColumnBuilder {
	switch b.typ {
	case TypePK:
		b.typ = TypeUPK
	case TypeBigPK:
		b.typ = TypeUBigPK
	default:
		b.unsigned = true
	}
	return b
}

// Check adds CHECK (expr).
func (b *ColumnBuilder) Check(expr string) *ColumnBuilder {
	b.check = expr
	return b
}

// Default adds DEFAULT with v rendered as a literal.
func (b *ColumnBuilder) Default(v any) *ColumnBuilder {
	b.def = literal(v)
	return b
}

// DefaultExpression adds DEFAULT followed by raw SQL.
func (b *ColumnBuilder) DefaultExpression(expr string) *ColumnBuilder {
	b.def = expr
	return b
}

// Append adds raw SQL at the end of the definition.
func (b *ColumnBuilder) Append(sql string) *ColumnBuilder {
	b.append = sql
	return b
}

// Type returns the abstract column type.
func (b *ColumnBuilder) Type() Type { return b.typ }

func (b *ColumnBuilder) String() string {
	var sb strings.Builder
	sb.WriteString(string(b.typ))
	if len(b.length) > 0 && !b.typ.IsPseudo() {
		sb.WriteString("(" + strings.Join(b.length, ",") + ")")
	}
	if b.unsigned {
		sb.WriteString(" UNSIGNED")
	}
	if b.notNull != nil {
		if *b.notNull {
			sb.WriteString(" NOT NULL")
		} else {
			sb.WriteString(" NULL")
		}
	}
	if b.unique {
		sb.WriteString(" UNIQUE")
	}
	if b.def != "" {
		sb.WriteString(" DEFAULT " + b.def)
	}
	if b.check != "" {
		sb.WriteString(" CHECK (" + b.check + ")")
	}
	if b.append != "" {
		sb.WriteString(" " + b.append)
	}
	return sb.String()
}

func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case string:
		return "'" + quoting.EscapeStandardString(x) + "'"
	}
	return toString(v)
}
