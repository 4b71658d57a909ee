// Package schema describes table metadata used while compiling
// statements: abstract column types, per-dialect column factories,
// value typecasting and column definitions for DDL.
package schema

// Type is an abstract, dialect-independent column type.
type Type string

// Abstract column types. The pk family are pseudo-types that expand to a
// full primary key definition.
const (
	TypePK        Type = "pk"
	TypeUPK       Type = "upk"
	TypeBigPK     Type = "bigpk"
	TypeUBigPK    Type = "ubigpk"
	TypeChar      Type = "char"
	TypeString    Type = "string"
	TypeText      Type = "text"
	TypeTinyInt   Type = "tinyint"
	TypeSmallInt  Type = "smallint"
	TypeInteger   Type = "integer"
	TypeBigInt    Type = "bigint"
	TypeFloat     Type = "float"
	TypeDouble    Type = "double"
	TypeDecimal   Type = "decimal"
	TypeDateTime  Type = "datetime"
	TypeTimestamp Type = "timestamp"
	TypeTime      Type = "time"
	TypeDate      Type = "date"
	TypeBinary    Type = "binary"
	TypeBoolean   Type = "boolean"
	TypeMoney     Type = "money"
	TypeJSON      Type = "json"
	TypeUUID      Type = "uuid"
	TypeBit       Type = "bit"
)

// AppType tags the application-side representation of a column value.
type AppType string

const (
	AppInt    AppType = "int"
	AppFloat  AppType = "float"
	AppString AppType = "string"
	AppBool   AppType = "bool"
	AppBytes  AppType = "bytes"
	AppJSON   AppType = "json"
	AppUUID   AppType = "uuid"
	AppTime   AppType = "time"
)

// IsPseudo reports whether t is one of the primary key pseudo-types.
func (t Type) IsPseudo() bool {
	switch t {
	case TypePK, TypeUPK, TypeBigPK, TypeUBigPK:
		return true
	}
	return false
}

// AppType returns the default application type for t.
func (t Type) AppType() AppType {
	switch t {
	case TypePK, TypeUPK, TypeBigPK, TypeUBigPK,
		TypeTinyInt, TypeSmallInt, TypeInteger, TypeBigInt, TypeBit:
		return AppInt
	case TypeFloat, TypeDouble, TypeDecimal, TypeMoney:
		return AppFloat
	case TypeDateTime, TypeTimestamp, TypeTime, TypeDate:
		return AppTime
	case TypeBinary:
		return AppBytes
	case TypeBoolean:
		return AppBool
	case TypeJSON:
		return AppJSON
	case TypeUUID:
		return AppUUID
	}
	return AppString
}

// exact reports whether values of t must keep their decimal text.
func (t Type) exact() bool {
	return t == TypeDecimal || t == TypeMoney
}
