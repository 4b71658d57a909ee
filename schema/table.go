package schema

import (
	"slices"
	"sort"
	"sync"
)

// Table is the metadata of one table.
type Table struct {
	Name         string
	PrimaryKey   []string
	Uniques      [][]string
	SequenceName string

	columns []*Column
}

// NewTable creates a table from its columns. Columns flagged PrimaryKey
// form the primary key.
func NewTable(name string, columns ...*Column) *Table {
	t := &Table{Name: name}
	for _, c := range columns {
		t.AddColumn(c)
	}
	return t
}

// AddColumn appends c, or replaces a column of the same name.
func (t *Table) AddColumn(c *Column) *Table {
	if i := t.index(c.Name); i >= 0 {
		t.columns[i] = c
	} else {
		t.columns = append(t.columns, c)
	}
	if c.PrimaryKey && !slices.Contains(t.PrimaryKey, c.Name) {
		t.PrimaryKey = append(t.PrimaryKey, c.Name)
	}
	return t
}

// WithPrimaryKey replaces the primary key.
func (t *Table) WithPrimaryKey(columns ...string) *Table {
	t.PrimaryKey = append([]string(nil), columns...)
	return t
}

// WithUnique adds a unique constraint.
func (t *Table) WithUnique(columns ...string) *Table {
	t.Uniques = append(t.Uniques, append([]string(nil), columns...))
	return t
}

// WithSequence sets the sequence feeding the primary key.
func (t *Table) WithSequence(name string) *Table {
	t.SequenceName = name
	return t
}

func (t *Table) index(name string) int {
	return slices.IndexFunc(t.columns, func(c *Column) bool { return c.Name == name })
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	if i := t.index(name); i >= 0 {
		return t.columns[i], true
	}
	return nil, false
}

// Columns returns the columns in declaration order.
func (t *Table) Columns() []*Column {
	return slices.Clone(t.columns)
}

// ColumnNames returns the column names in declaration order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Name
	}
	return out
}

// UniqueSets returns the primary key followed by every unique constraint.
func (t *Table) UniqueSets() [][]string {
	var out [][]string
	if len(t.PrimaryKey) > 0 {
		out = append(out, t.PrimaryKey)
	}
	return append(out, t.Uniques...)
}

// Provider looks up table metadata by name.
type Provider interface {
	TableSchema(name string) (*Table, bool)
}

// Memory is a Provider backed by a map. It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewMemory returns a provider holding tables.
func NewMemory(tables ...*Table) *Memory {
	m := &Memory{tables: make(map[string]*Table)}
	for _, t := range tables {
		m.Add(t)
	}
	return m
}

// Add registers t under its name, replacing any previous entry.
func (m *Memory) Add(t *Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[t.Name] = t
}

// Remove forgets the named table.
func (m *Memory) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, name)
}

func (m *Memory) TableSchema(name string) (*Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[name]
	return t, ok
}

// TableNames returns the registered names, sorted.
func (m *Memory) TableNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.tables))
	for name := range m.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
