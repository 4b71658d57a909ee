package nodes

import "strings"

// FilterCondition removes operands with empty values (see IsEmpty) from
// array-shorthand and hash conditions, so optional filters can be passed
// straight from user input:
//
//	nodes.FilterCondition(nodes.M("name", "", "status", 1)) // only status
//
// Operators NOT, AND and OR are filtered recursively and vanish when no
// operand is left; BETWEEN is dropped when either bound is empty; any
// other operator is dropped when its value operand is empty. Other
// condition forms are returned unchanged.
func FilterCondition(cond any) any {
	switch c := cond.(type) {
	case *HashCondition:
		return Hash(filterHash(c.Hash))
	case []any:
		return filterArray(c)
	}
	if m, ok := ToMap(cond); ok {
		return filterHash(m)
	}
	return cond
}

func filterHash(m *Map) *Map {
	out := &Map{}
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		if !IsEmpty(v) {
			out.Set(k, v)
		}
	}
	return out
}

func filterArray(c []any) any {
	if len(c) == 0 {
		return c
	}
	op, ok := c[0].(string)
	if !ok {
		return c
	}
	operands := c[1:]
	switch strings.ToUpper(op) {
	case OpNot, OpAnd, OpOr:
		kept := []any{op}
		for _, operand := range operands {
			sub := FilterCondition(operand)
			if !IsEmpty(sub) {
				kept = append(kept, sub)
			}
		}
		if len(kept) == 1 {
			return []any{}
		}
		return kept
	case OpBetween, OpNotBetween:
		if len(operands) >= 3 && (IsEmpty(operands[1]) || IsEmpty(operands[2])) {
			return []any{}
		}
	default:
		if len(operands) >= 2 && IsEmpty(operands[1]) {
			return []any{}
		}
	}
	return c
}
