package nodes

import (
	"reflect"
	"strings"
)

// Values converts a slice or array of any element type into []any.
// []byte is treated as a scalar. It returns false for non-slices.
func Values(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []byte, nil:
		return nil, false
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// IsEmpty reports whether v counts as "no value" for filtering: nil, a
// blank string, an empty slice or an empty mapping. false and 0 are values.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case *Map:
		return x.Len() == 0
	case *HashCondition:
		return x.Hash.Len() == 0
	case map[string]any:
		return len(x) == 0
	}
	if s, ok := Values(v); ok {
		return len(s) == 0
	}
	return false
}
