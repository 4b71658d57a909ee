package schema

import (
	"regexp"
	"strconv"
	"strings"
)

// Factory creates columns from physical type names for one dialect.
type Factory struct {
	typeMap map[string]Type
	// Normalize, when set, adjusts each column after it is built, e.g.
	// to map MySQL tinyint(1) to boolean.
	Normalize func(*Column)
}

// NewFactory returns a factory mapping lower-case physical type names
// to abstract types. Unknown names map to TypeString.
func NewFactory(typeMap map[string]Type) *Factory {
	return &Factory{typeMap: typeMap}
}

// TypeOf returns the abstract type of a physical type name.
func (f *Factory) TypeOf(dbType string) Type {
	if t, ok := f.typeMap[strings.ToLower(strings.TrimSpace(dbType))]; ok {
		return t
	}
	return TypeString
}

// FromDbType builds a column from a physical type name such as "int4".
func (f *Factory) FromDbType(dbType string, opts ...Option) *Column {
	base := []Option{WithDbType(dbType)}
	c := newColumn(f.TypeOf(dbType), append(base, opts...))
	if f.Normalize != nil {
		f.Normalize(c)
	}
	return c
}

var definitionPattern = regexp.MustCompile(`^([^(]+?)\s*\(([^)]*)\)\s*(.*)$`)

var enumPattern = regexp.MustCompile(`'((?:''|[^'])*)'`)

var unsignedPattern = regexp.MustCompile(`(?i)\bunsigned\b`)

// FromDefinition parses a column definition such as
// "varchar(255) NOT NULL" or "decimal(10,2) unsigned".
func (f *Factory) FromDefinition(def string, opts ...Option) *Column {
	def = strings.TrimSpace(def)
	var dbType, args, rest string
	if m := definitionPattern.FindStringSubmatch(def); m != nil && f.isTypeName(m[1]) {
		dbType, args, rest = m[1], m[2], m[3]
	} else {
		dbType, rest = f.splitTypeName(def)
	}
	dbType = strings.ToLower(strings.TrimSpace(dbType))

	var parsed []Option
	if args != "" {
		if dbType == "enum" || dbType == "set" {
			var values []string
			for _, v := range enumPattern.FindAllStringSubmatch(args, -1) {
				values = append(values, strings.ReplaceAll(v[1], "''", "'"))
			}
			parsed = append(parsed, WithEnumValues(values...))
		} else {
			parts := strings.Split(args, ",")
			if n, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
				parsed = append(parsed, WithSize(n))
			}
			if len(parts) > 1 {
				if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
					parsed = append(parsed, WithScale(n))
				}
			}
		}
	}
	rest = strings.TrimSpace(rest)
	if unsignedPattern.MatchString(rest) {
		parsed = append(parsed, WithUnsigned(true))
		rest = strings.Join(strings.Fields(unsignedPattern.ReplaceAllString(rest, "")), " ")
	}
	if strings.Contains(strings.ToLower(rest), "not null") {
		parsed = append(parsed, WithAllowNull(false))
	}
	if rest != "" {
		parsed = append(parsed, WithExtra(rest))
	}
	return f.FromDbType(dbType, append(parsed, opts...)...)
}

func (f *Factory) isTypeName(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := f.typeMap[s]; ok {
		return true
	}
	return !strings.ContainsAny(s, " \t")
}

// splitTypeName separates a multi-word type name such as
// "double precision" from the rest of a definition. The longest known
// prefix wins; otherwise the first word is the type.
func (f *Factory) splitTypeName(def string) (string, string) {
	words := strings.Fields(def)
	if len(words) == 0 {
		return "", ""
	}
	for k := len(words); k > 1; k-- {
		name := strings.ToLower(strings.Join(words[:k], " "))
		if _, ok := f.typeMap[name]; ok {
			return name, strings.Join(words[k:], " ")
		}
	}
	return words[0], strings.Join(words[1:], " ")
}

// FromPseudoType expands pk, upk, bigpk and ubigpk into an
// auto-incrementing primary key column. Other names fall back to FromType.
func (f *Factory) FromPseudoType(pseudo string, opts ...Option) *Column {
	t := Type(strings.ToLower(pseudo))
	base := []Option{WithPrimaryKey(true), WithAutoIncrement(true), WithAllowNull(false)}
	switch t {
	case TypePK:
		return newColumn(TypeInteger, append(base, opts...))
	case TypeUPK:
		return newColumn(TypeInteger, append(append(base, WithUnsigned(true)), opts...))
	case TypeBigPK:
		return newColumn(TypeBigInt, append(base, opts...))
	case TypeUBigPK:
		return newColumn(TypeBigInt, append(append(base, WithUnsigned(true)), opts...))
	}
	return f.FromType(t, opts...)
}

// FromType builds a column of an abstract type.
func (f *Factory) FromType(t Type, opts ...Option) *Column {
	if t.IsPseudo() {
		return f.FromPseudoType(string(t), opts...)
	}
	return newColumn(t, opts)
}
