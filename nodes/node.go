// Package nodes defines the values that describe a SQL query: conditions,
// raw expressions, sub-queries and the Query clause container.
//
// Every node carries an explicit Kind so that builders are looked up by
// discriminant rather than by reflection.
package nodes

// Kind identifies a node variant. Builders are registered per Kind.
type Kind string

// Built-in node kinds.
const (
	KindSqlLiteral     Kind = "sql_literal"
	KindQuery          Kind = "query"
	KindConjunction    Kind = "conjunction"
	KindNot            Kind = "not"
	KindSimple         Kind = "simple"
	KindBetween        Kind = "between"
	KindBetweenColumns Kind = "between_columns"
	KindIn             Kind = "in"
	KindLike           Kind = "like"
	KindExists         Kind = "exists"
	KindHash           Kind = "hash"
)

// Node is the interface that all compilable values implement.
type Node interface {
	Kind() Kind
}

// Condition is a Node usable as a WHERE, HAVING or JOIN predicate.
type Condition interface {
	Node
	Operator() string
}

// AsQuery reports whether n is a sub-query and returns it.
func AsQuery(n any) (Query, bool) {
	switch q := n.(type) {
	case Query:
		return q, true
	case *Query:
		if q != nil {
			return *q, true
		}
	}
	return Query{}, false
}
