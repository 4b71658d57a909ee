package plugins

import (
	"regexp"
	"strings"

	"github.com/sartor/db/nodes"
)

// TableRef holds a table referenced by a query. Ref is the name columns
// are qualified with (the alias when one is given) and Name is the
// underlying table name used for matching.
type TableRef struct {
	Ref  string
	Name string
}

var aliasPattern = regexp.MustCompile(`(?i)^(.*?)(?:\s+as|)\s+([^ ]+)$`)

// CollectTables returns the plain tables referenced by the FROM and JOIN
// clauses of q. Sub-queries, expressions and raw SQL sources are skipped.
func CollectTables(q nodes.Query) []TableRef {
	var refs []TableRef
	for _, src := range q.Sources {
		if ref, ok := extractTableRef(src); ok {
			refs = append(refs, ref)
		}
	}
	for _, j := range q.JoinClauses {
		if ref, ok := extractTableRef(joinTable(j.Table)); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

func joinTable(table any) nodes.Aliased {
	switch t := table.(type) {
	case nodes.Aliased:
		return t
	case nodes.Node:
		return nodes.Aliased{Expr: t}
	}
	if m, ok := nodes.ToMap(table); ok && m.Len() > 0 {
		alias := m.Keys()[0]
		e, _ := m.Get(alias)
		return nodes.Aliased{Expr: e, Alias: alias}
	}
	return nodes.Aliased{Expr: table}
}

func extractTableRef(src nodes.Aliased) (TableRef, bool) {
	name, ok := src.Expr.(string)
	if !ok || name == "" || strings.ContainsAny(name, "({") {
		return TableRef{}, false
	}
	if src.Alias != "" {
		return TableRef{Ref: src.Alias, Name: name}, true
	}
	if m := aliasPattern.FindStringSubmatch(name); m != nil {
		return TableRef{Ref: m[2], Name: m[1]}, true
	}
	return TableRef{Ref: name, Name: name}, true
}
