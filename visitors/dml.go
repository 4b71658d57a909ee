package visitors

import (
	"slices"
	"strings"

	"github.com/sartor/db/dberr"
	"github.com/sartor/db/nodes"
	"github.com/sartor/db/schema"
)

type updateMode int

const (
	updateAll updateMode = iota
	updateNone
	updateColumns
	updateValues
)

// Update says what an upsert does when the row already exists.
type Update struct {
	mode    updateMode
	columns []string
	values  *nodes.Map
}

// UpdateAll overwrites every inserted column that is not part of the
// conflict target with the incoming value.
func UpdateAll() Update { return Update{mode: updateAll} }

// UpdateNone keeps the existing row.
func UpdateNone() Update { return Update{mode: updateNone} }

// UpdateColumns overwrites only the named columns with the incoming values.
func UpdateColumns(names ...string) Update {
	return Update{mode: updateColumns, columns: append([]string(nil), names...)}
}

// UpdateValues assigns explicit values (scalars or Nodes) to columns.
func UpdateValues(m *nodes.Map) Update { return Update{mode: updateValues, values: m} }

// IsNone reports whether the update keeps the existing row.
func (u Update) IsNone() bool { return u.mode == updateNone }

// tableSchema looks up metadata for a possibly quoted or prefixed table name.
func (b *Builder) tableSchema(name string) (*schema.Table, bool) {
	if b.schema == nil {
		return nil, false
	}
	if t, ok := b.schema.TableSchema(name); ok {
		return t, true
	}
	plain := strings.NewReplacer("{{", "", "}}", "", "%", b.quoter.TablePrefix).Replace(name)
	parts := b.quoter.TableNameParts(plain)
	if t, ok := b.schema.TableSchema(strings.Join(parts, ".")); ok {
		return t, true
	}
	return b.schema.TableSchema(parts[len(parts)-1])
}

// typecast applies the column's DB typecast when metadata is known.
func typecast(t *schema.Table, column string, v any) (any, error) {
	if t == nil {
		return v, nil
	}
	if c, ok := t.Column(column); ok {
		return c.DBTypecast(v)
	}
	return v, nil
}

// Insert builds INSERT INTO table. columns is a mapping column → value
// or a Query with an enumerated select list.
func (b *Builder) Insert(table string, columns any, params ...nodes.Param) (string, *nodes.Params, error) {
	bag := nodes.NewParams(params...)
	sql, err := b.insert(table, columns, bag)
	if err != nil {
		return "", nil, err
	}
	return sql, bag, nil
}

func (b *Builder) insert(table string, columns any, params *nodes.Params) (string, error) {
	names, placeholders, values, err := b.prepareInsertValues(table, columns, params)
	if err != nil {
		return "", err
	}
	sql := "INSERT INTO " + b.quoter.QuoteTableName(table)
	if len(names) > 0 {
		sql += " (" + strings.Join(names, ", ") + ")"
	}
	if len(placeholders) > 0 {
		return sql + " VALUES (" + strings.Join(placeholders, ", ") + ")", nil
	}
	return sql + values, nil
}

func (b *Builder) prepareInsertValues(table string, columns any, params *nodes.Params) (names, placeholders []string, values string, err error) {
	if q, ok := nodes.AsQuery(columns); ok {
		names, values, err = b.prepareInsertSelect(q, params)
		return names, nil, values, err
	}
	m, ok := nodes.ToMap(columns)
	if !ok {
		return nil, nil, "", dberr.InvalidArgument("Insert", "columns must be a mapping or a Query, got %T", columns)
	}
	if m.Len() == 0 {
		return nil, nil, b.dialect.EmptyValues(), nil
	}
	t, _ := b.tableSchema(table)
	for _, name := range m.Keys() {
		v, _ := m.Get(name)
		if v, err = typecast(t, name, v); err != nil {
			return nil, nil, "", err
		}
		ph, err := b.value(v, params)
		if err != nil {
			return nil, nil, "", err
		}
		names = append(names, b.quoter.QuoteColumnName(name))
		placeholders = append(placeholders, ph)
	}
	return names, placeholders, "", nil
}

func (b *Builder) prepareInsertSelect(q nodes.Query, params *nodes.Params) ([]string, string, error) {
	selected, err := selectNames(q)
	if err != nil {
		return nil, "", err
	}
	sql, err := b.build(q, params)
	if err != nil {
		return nil, "", err
	}
	names := make([]string, len(selected))
	for i, n := range selected {
		names[i] = b.quoter.QuoteColumnName(n)
	}
	return names, " " + sql, nil
}

// selectNames returns the output column names of an enumerated select.
func selectNames(q nodes.Query) ([]string, error) {
	invalid := dberr.InvalidArgument("Insert", "Expected select query object with enumerated (named) parameter")
	if len(q.Columns) == 0 {
		return nil, invalid
	}
	names := make([]string, 0, len(q.Columns))
	for _, c := range q.Columns {
		name := c.Alias
		if name == "" {
			s, ok := c.Expr.(string)
			if !ok {
				return nil, invalid
			}
			name = s
		}
		if name == "*" || strings.HasSuffix(name, ".*") {
			return nil, invalid
		}
		names = append(names, name)
	}
	return names, nil
}

// BatchInsert builds a multi-row INSERT. It returns "" for no rows.
func (b *Builder) BatchInsert(table string, columns []string, rows [][]any) (string, *nodes.Params, error) {
	params := nodes.NewParams()
	if len(rows) == 0 {
		return "", params, nil
	}
	t, _ := b.tableSchema(table)
	tuples := make([]string, 0, len(rows))
	for i, row := range rows {
		if len(columns) > 0 && len(row) != len(columns) {
			return "", nil, dberr.InvalidArgument("BatchInsert", "row %d has %d values, expected %d", i, len(row), len(columns))
		}
		phs := make([]string, len(row))
		for j, v := range row {
			if len(columns) > 0 {
				var err error
				if v, err = typecast(t, columns[j], v); err != nil {
					return "", nil, err
				}
			}
			ph, err := b.value(v, params)
			if err != nil {
				return "", nil, err
			}
			phs[j] = ph
		}
		tuples = append(tuples, "("+strings.Join(phs, ", ")+")")
	}
	sql := "INSERT INTO " + b.quoter.QuoteTableName(table)
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = b.quoter.QuoteColumnName(c)
		}
		sql += " (" + strings.Join(quoted, ", ") + ")"
	}
	return sql + " VALUES " + strings.Join(tuples, ", "), params, nil
}

// Update builds UPDATE table SET ... [WHERE condition].
func (b *Builder) Update(table string, columns any, condition any, params ...nodes.Param) (string, *nodes.Params, error) {
	bag := nodes.NewParams(params...)
	sets, err := b.prepareUpdateSets(table, columns, bag)
	if err != nil {
		return "", nil, err
	}
	sql := "UPDATE " + b.quoter.QuoteTableName(table) + " SET " + strings.Join(sets, ", ")
	where, err := b.BuildWhere(condition, bag)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		sql += " " + where
	}
	return sql, bag, nil
}

func (b *Builder) prepareUpdateSets(table string, columns any, params *nodes.Params) ([]string, error) {
	m, ok := nodes.ToMap(columns)
	if !ok || m.Len() == 0 {
		return nil, dberr.InvalidArgument("Update", "columns must be a non-empty mapping")
	}
	t, _ := b.tableSchema(table)
	sets := make([]string, 0, m.Len())
	for _, name := range m.Keys() {
		v, _ := m.Get(name)
		v, err := typecast(t, name, v)
		if err != nil {
			return nil, err
		}
		ph, err := b.value(v, params)
		if err != nil {
			return nil, err
		}
		sets = append(sets, b.quoter.QuoteColumnName(name)+"="+ph)
	}
	return sets, nil
}

// Delete builds DELETE FROM table [WHERE condition].
func (b *Builder) Delete(table string, condition any, params ...nodes.Param) (string, *nodes.Params, error) {
	bag := nodes.NewParams(params...)
	sql := "DELETE FROM " + b.quoter.QuoteTableName(table)
	where, err := b.BuildWhere(condition, bag)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		sql += " " + where
	}
	return sql, bag, nil
}

// Upsert builds an insert that updates (or keeps) the existing row when
// it conflicts with the primary key or a unique constraint. The conflict
// target comes from schema metadata.
func (b *Builder) Upsert(table string, insert any, update Update, params ...nodes.Param) (string, *nodes.Params, error) {
	bag := nodes.NewParams(params...)
	sql, err := b.dialect.Upsert(b, table, insert, update, bag)
	if err != nil {
		return "", nil, err
	}
	return sql, bag, nil
}

// upsertColumns splits the inserted columns into the conflict target
// (every primary key or unique constraint fully covered by the insert)
// and the remaining updatable columns.
func (b *Builder) upsertColumns(table string, insert any) (unique, inserted, updatable []string, err error) {
	if q, ok := nodes.AsQuery(insert); ok {
		if inserted, err = selectNames(q); err != nil {
			return nil, nil, nil, err
		}
	} else if m, ok := nodes.ToMap(insert); ok {
		inserted = m.Keys()
	} else {
		return nil, nil, nil, dberr.InvalidArgument("Upsert", "insert columns must be a mapping or a Query, got %T", insert)
	}
	t, ok := b.tableSchema(table)
	if !ok {
		return nil, nil, nil, dberr.InvalidArgument("Upsert", "Table not found: '%s'.", table)
	}
	for _, set := range t.UniqueSets() {
		covered := true
		for _, c := range set {
			if !slices.Contains(inserted, c) {
				covered = false
				break
			}
		}
		if !covered {
			continue
		}
		for _, c := range set {
			if !slices.Contains(unique, c) {
				unique = append(unique, c)
			}
		}
	}
	if len(unique) == 0 {
		return nil, nil, nil, dberr.InvalidArgument("Upsert", "table '%s' has no primary key or unique constraint covered by the inserted columns", table)
	}
	for _, c := range inserted {
		if !slices.Contains(unique, c) {
			updatable = append(updatable, c)
		}
	}
	return unique, inserted, updatable, nil
}

// upsertAssignments resolves u into column → value pairs. incoming
// renders the expression reading the incoming value of a column, such
// as EXCLUDED."c". A nil map means no update.
func (b *Builder) upsertAssignments(u Update, updatable []string, incoming func(string) string) *nodes.Map {
	switch u.mode {
	case updateNone:
		return nil
	case updateValues:
		return u.values
	}
	names := updatable
	if u.mode == updateColumns {
		names = u.columns
	}
	if len(names) == 0 {
		return nil
	}
	m := nodes.M()
	for _, n := range names {
		m.Set(n, nodes.NewSqlLiteral(incoming(n)))
	}
	return m
}

func (b *Builder) quoteColumns(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = b.quoter.QuoteColumnName(n)
	}
	return strings.Join(quoted, ", ")
}

// ResetSequence builds a statement setting the table's sequence so that
// the next generated key is value, or one past the current maximum when
// value is omitted.
func (b *Builder) ResetSequence(table string, value ...int64) (string, error) {
	var v *int64
	if len(value) > 0 {
		v = &value[0]
	}
	return b.dialect.ResetSequence(b, table, v)
}

// sequenceTable returns the metadata of a table owning a sequence.
func (b *Builder) sequenceTable(table string) (*schema.Table, error) {
	t, ok := b.tableSchema(table)
	if !ok {
		return nil, dberr.InvalidArgument("ResetSequence", "Table not found: '%s'.", table)
	}
	if t.SequenceName == "" && !hasAutoIncrement(t) {
		return nil, dberr.InvalidArgument("ResetSequence", "There is not sequence associated with table '%s'.", table)
	}
	return t, nil
}

func hasAutoIncrement(t *schema.Table) bool {
	for _, name := range t.PrimaryKey {
		if c, ok := t.Column(name); ok && c.AutoIncrement {
			return true
		}
	}
	return false
}

// SelectExists wraps raw SQL into SELECT EXISTS(...).
func (b *Builder) SelectExists(rawSQL string) string {
	return "SELECT EXISTS(" + rawSQL + ")"
}

func (BaseDialect) EmptyValues() string { return " DEFAULT VALUES" }

func (BaseDialect) Upsert(*Builder, string, any, Update, *nodes.Params) (string, error) {
	return "", dberr.NotSupported("Upsert")
}

func (BaseDialect) ResetSequence(*Builder, string, *int64) (string, error) {
	return "", dberr.NotSupported("ResetSequence")
}
