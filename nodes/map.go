package nodes

import (
	"fmt"
	"sort"
)

// Map is an insertion-ordered column → value mapping. It backs hash
// conditions, insert rows, update sets and table column definitions.
type Map struct {
	keys []string
	vals map[string]any
}

// M builds a Map from alternating key/value arguments:
//
//	nodes.M("status", 1, "deleted_at", nil)
//
// It panics when a key is not a string or a value is missing.
func M(kv ...any) *Map {
	if len(kv)%2 != 0 {
		panic("nodes.M: odd number of arguments")
	}
	m := &Map{}
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("nodes.M: key %v is %T, not string", kv[i], kv[i]))
		}
		m.Set(k, kv[i+1])
	}
	return m
}

// Set stores v under k, keeping the original position of an existing key.
func (m *Map) Set(k string, v any) *Map {
	if m.vals == nil {
		m.vals = make(map[string]any)
	}
	if _, ok := m.vals[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.vals[k] = v
	return m
}

// Get returns the value stored under k.
func (m *Map) Get(k string) (any, bool) {
	if m == nil || m.vals == nil {
		return nil, false
	}
	v, ok := m.vals[k]
	return v, ok
}

// Delete removes k.
func (m *Map) Delete(k string) {
	if m == nil {
		return
	}
	if _, ok := m.vals[k]; !ok {
		return
	}
	delete(m.vals, k)
	for i, key := range m.keys {
		if key == k {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Clone returns a shallow copy.
func (m *Map) Clone() *Map {
	c := &Map{}
	for _, k := range m.Keys() {
		c.Set(k, m.vals[k])
	}
	return c
}

// ToMap converts the mapping forms accepted by the builders into a *Map.
// Plain Go maps are ordered by key so that output stays deterministic.
func ToMap(v any) (*Map, bool) {
	switch m := v.(type) {
	case *Map:
		if m == nil {
			return &Map{}, true
		}
		return m, true
	case Map:
		return &m, true
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := &Map{}
		for _, k := range keys {
			out.Set(k, m[k])
		}
		return out, true
	}
	return nil, false
}
