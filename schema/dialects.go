package schema

// PostgresFactory returns the column factory for PostgreSQL type names.
func PostgresFactory() *Factory {
	f := NewFactory(map[string]Type{
		"bit": TypeBit, "bit varying": TypeBit, "varbit": TypeBit,
		"smallint": TypeSmallInt, "int2": TypeSmallInt, "smallserial": TypeSmallInt,
		"integer": TypeInteger, "int": TypeInteger, "int4": TypeInteger, "serial": TypeInteger,
		"bigint": TypeBigInt, "int8": TypeBigInt, "bigserial": TypeBigInt,
		"real": TypeFloat, "float4": TypeFloat,
		"double precision": TypeDouble, "float8": TypeDouble,
		"numeric": TypeDecimal, "decimal": TypeDecimal,
		"money": TypeMoney,
		"char": TypeChar, "character": TypeChar, "bpchar": TypeChar,
		"varchar": TypeString, "character varying": TypeString,
		"text": TypeText, "citext": TypeText,
		"bytea": TypeBinary,
		"boolean": TypeBoolean, "bool": TypeBoolean,
		"date": TypeDate,
		"time": TypeTime, "time without time zone": TypeTime, "timetz": TypeTime, "time with time zone": TypeTime,
		"timestamp": TypeTimestamp, "timestamp without time zone": TypeTimestamp,
		"timestamptz": TypeTimestamp, "timestamp with time zone": TypeTimestamp,
		"json": TypeJSON, "jsonb": TypeJSON,
		"uuid": TypeUUID,
	})
	f.Normalize = func(c *Column) {
		switch c.DbType {
		case "serial", "bigserial", "smallserial":
			c.AutoIncrement = true
		}
	}
	return f
}

// MySQLFactory returns the column factory for MySQL and MariaDB type names.
func MySQLFactory() *Factory {
	f := NewFactory(map[string]Type{
		"bit": TypeBit, "bool": TypeBoolean, "boolean": TypeBoolean,
		"tinyint": TypeTinyInt, "smallint": TypeSmallInt,
		"mediumint": TypeInteger, "int": TypeInteger, "integer": TypeInteger,
		"bigint": TypeBigInt,
		"float": TypeFloat, "real": TypeFloat,
		"double": TypeDouble, "double precision": TypeDouble,
		"decimal": TypeDecimal, "numeric": TypeDecimal, "dec": TypeDecimal, "fixed": TypeDecimal,
		"char": TypeChar, "varchar": TypeString, "enum": TypeString, "set": TypeString,
		"tinytext": TypeText, "text": TypeText, "mediumtext": TypeText, "longtext": TypeText,
		"binary": TypeBinary, "varbinary": TypeBinary,
		"tinyblob": TypeBinary, "blob": TypeBinary, "mediumblob": TypeBinary, "longblob": TypeBinary,
		"year": TypeDate, "date": TypeDate, "time": TypeTime,
		"datetime": TypeDateTime, "timestamp": TypeTimestamp,
		"json": TypeJSON,
	})
	f.Normalize = func(c *Column) {
		if (c.Type == TypeTinyInt || c.Type == TypeBit) && c.Size == 1 {
			c.Type = TypeBoolean
			c.AppType = AppBool
		}
	}
	return f
}

// SQLiteFactory returns the column factory for SQLite declared types.
func SQLiteFactory() *Factory {
	return NewFactory(map[string]Type{
		"bit": TypeBit, "bool": TypeBoolean, "boolean": TypeBoolean,
		"tinyint": TypeTinyInt, "smallint": TypeSmallInt,
		"mediumint": TypeInteger, "int": TypeInteger, "integer": TypeInteger,
		"bigint": TypeBigInt,
		"float": TypeFloat, "real": TypeFloat,
		"double": TypeDouble, "double precision": TypeDouble,
		"decimal": TypeDecimal, "numeric": TypeDecimal, "money": TypeMoney,
		"char": TypeChar, "varchar": TypeString, "string": TypeString, "enum": TypeString,
		"tinytext": TypeText, "text": TypeText, "mediumtext": TypeText, "longtext": TypeText,
		"blob": TypeBinary,
		"date": TypeDate, "time": TypeTime,
		"datetime": TypeDateTime, "timestamp": TypeTimestamp,
		"json": TypeJSON,
	})
}

// GenericFactory maps the abstract type names onto themselves.
func GenericFactory() *Factory {
	m := map[string]Type{}
	for _, t := range []Type{
		TypeChar, TypeString, TypeText, TypeTinyInt, TypeSmallInt, TypeInteger,
		TypeBigInt, TypeFloat, TypeDouble, TypeDecimal, TypeDateTime, TypeTimestamp,
		TypeTime, TypeDate, TypeBinary, TypeBoolean, TypeMoney, TypeJSON, TypeUUID, TypeBit,
	} {
		m[string(t)] = t
	}
	return NewFactory(m)
}
