package visitors

import (
	"regexp"
	"strings"

	"github.com/sartor/db/internal/quoting"
)

// Quoter quotes identifiers and literals for one dialect.
type Quoter interface {
	// QuoteTableName quotes a possibly schema-qualified table name.
	// Names in parentheses or containing {{ markers are returned unchanged.
	QuoteTableName(name string) string
	// QuoteColumnName quotes a possibly table-qualified column name.
	// Names containing ( or [[ are returned unchanged.
	QuoteColumnName(name string) string
	QuoteSimpleTableName(name string) string
	QuoteSimpleColumnName(name string) string
	UnquoteSimpleTableName(name string) string
	UnquoteSimpleColumnName(name string) string
	// TableNameParts splits schema.table into unquoted parts.
	TableNameParts(name string) []string
	// QuoteValue renders s as a string literal.
	QuoteValue(s string) string
	// QuoteSQL resolves {{table}}, {{%table}} and [[column]] markers.
	QuoteSQL(sql string) string
	// EscapeLike escapes pattern with old/new pairs; nil uses the
	// dialect defaults.
	EscapeLike(pattern string, pairs []string) string
	// LikeEscapeSQL is appended after each LIKE comparison, e.g. " ESCAPE '\'".
	LikeEscapeSQL() string
}

// StandardQuoter implements Quoter on top of an identifier quoting
// function such as quoting.DoubleQuote.
type StandardQuoter struct {
	quoteIdent  func(string) string
	quoteString func(string) string
	open, close string

	// TablePrefix replaces % inside {{%table}} markers.
	TablePrefix string
	// LikeEscapeChar, when set, adds an explicit ESCAPE clause to LIKE.
	LikeEscapeChar string
	// LikePairs overrides the default LIKE escape replacements.
	LikePairs []string
}

// NewQuoter builds a quoter from an identifier quoting function and a
// string literal escaping function.
func NewQuoter(quoteIdent, escapeString func(string) string) *StandardQuoter {
	empty := quoteIdent("")
	return &StandardQuoter{
		quoteIdent:  quoteIdent,
		quoteString: escapeString,
		open:        empty[:1],
		close:       empty[1:],
	}
}

func (q *StandardQuoter) clone() *StandardQuoter {
	c := *q
	return &c
}

func (q *StandardQuoter) QuoteTableName(name string) string {
	if strings.HasPrefix(name, "(") && strings.HasSuffix(name, ")") {
		return name
	}
	if strings.Contains(name, "{{") {
		return name
	}
	if !strings.Contains(name, ".") {
		return q.QuoteSimpleTableName(name)
	}
	parts := quoting.SplitName(name, q.open+q.close)
	for i, p := range parts {
		parts[i] = q.QuoteSimpleTableName(p)
	}
	return strings.Join(parts, ".")
}

func (q *StandardQuoter) QuoteColumnName(name string) string {
	if strings.Contains(name, "(") || strings.Contains(name, "[[") {
		return name
	}
	prefix := ""
	if pos := strings.LastIndex(name, "."); pos >= 0 {
		prefix = q.QuoteTableName(name[:pos]) + "."
		name = name[pos+1:]
	}
	if strings.Contains(name, "{{") {
		return prefix + name
	}
	return prefix + q.QuoteSimpleColumnName(name)
}

func (q *StandardQuoter) QuoteSimpleTableName(name string) string {
	if strings.HasPrefix(name, q.open) {
		return name
	}
	return q.quoteIdent(name)
}

func (q *StandardQuoter) QuoteSimpleColumnName(name string) string {
	if name == "*" || strings.HasPrefix(name, q.open) {
		return name
	}
	return q.quoteIdent(name)
}

func (q *StandardQuoter) UnquoteSimpleTableName(name string) string {
	return q.unquote(name)
}

func (q *StandardQuoter) UnquoteSimpleColumnName(name string) string {
	return q.unquote(name)
}

func (q *StandardQuoter) unquote(name string) string {
	if len(name) >= 2 && strings.HasPrefix(name, q.open) && strings.HasSuffix(name, q.close) {
		inner := name[len(q.open) : len(name)-len(q.close)]
		return strings.ReplaceAll(inner, q.close+q.close, q.close)
	}
	return name
}

func (q *StandardQuoter) TableNameParts(name string) []string {
	parts := quoting.SplitName(name, q.open+q.close)
	for i, p := range parts {
		parts[i] = q.unquote(p)
	}
	return parts
}

func (q *StandardQuoter) QuoteValue(s string) string {
	return "'" + q.quoteString(s) + "'"
}

var markerPattern = regexp.MustCompile(`{{(%?[\w\-. ]+%?)}}|\[\[([\w\-. ]+)]]`)

func (q *StandardQuoter) QuoteSQL(sql string) string {
	return markerPattern.ReplaceAllStringFunc(sql, func(m string) string {
		sub := markerPattern.FindStringSubmatch(m)
		if sub[2] != "" {
			return q.QuoteColumnName(sub[2])
		}
		return strings.ReplaceAll(q.QuoteTableName(sub[1]), "%", q.TablePrefix)
	})
}

func (q *StandardQuoter) EscapeLike(pattern string, pairs []string) string {
	if pairs == nil {
		pairs = q.LikePairs
	}
	if pairs == nil {
		pairs = quoting.LikeReplacements
	}
	if len(pairs) < 2 {
		return pattern
	}
	return strings.NewReplacer(pairs[:len(pairs)&^1]...).Replace(pattern)
}

func (q *StandardQuoter) LikeEscapeSQL() string {
	if q.LikeEscapeChar == "" {
		return ""
	}
	return " ESCAPE " + q.QuoteValue(q.LikeEscapeChar)
}
