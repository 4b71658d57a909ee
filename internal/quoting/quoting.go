// Package quoting provides shared identifier and literal quoting utilities.
package quoting

import "strings"

// DoubleQuote quotes a SQL identifier using double quotes (PostgreSQL, SQLite, ANSI SQL).
// Internal double quotes are escaped by doubling them.
func DoubleQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Backtick quotes a SQL identifier using backticks (MySQL).
// Internal backticks are escaped by doubling them.
func Backtick(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// Brackets quotes a SQL identifier using square brackets.
// Internal closing brackets are escaped by doubling them.
func Brackets(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

// EscapeString escapes a string literal for SQL by doubling single quotes
// and escaping backslashes (for MySQL compatibility).
//
// SECURITY: This escaping is intended for literals that cannot be bound,
// such as comments, view bodies and debug output. Values in DML must go
// through placeholders. MySQL with non-default character sets (GBK, SJIS)
// may have multi-byte sequences where a trailing byte coincides with
// backslash or quote; placeholders avoid this class of attack entirely.
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", "''")
}

// EscapeStandardString escapes a literal for servers that treat backslash
// as an ordinary character (PostgreSQL with standard_conforming_strings,
// SQLite): only single quotes are doubled.
func EscapeStandardString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// LikeReplacements are the default LIKE escape pairs: backslash, percent
// and underscore are escaped with a backslash.
var LikeReplacements = []string{`\`, `\\`, "%", `\%`, "_", `\_`}

// EscapeLikePattern escapes LIKE wildcard characters (%, _) in a string
// so they are matched literally. The backslash is used as the escape character.
func EscapeLikePattern(s string) string {
	return strings.NewReplacer(LikeReplacements...).Replace(s)
}

// SplitName splits a dotted name such as schema.table into its parts.
// Dots inside quoted parts are kept.
func SplitName(name string, quotes ...string) []string {
	var parts []string
	var cur strings.Builder
	var closing byte
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case closing != 0:
			if c == closing {
				closing = 0
			}
		case c == '.':
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		default:
			for _, q := range quotes {
				if len(q) == 2 && c == q[0] {
					closing = q[1]
				}
			}
		}
		cur.WriteByte(c)
	}
	return append(parts, cur.String())
}
