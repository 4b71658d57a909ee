package main

import (
	"testing"

	"github.com/sartor/db/nodes"
	"github.com/sartor/db/schema"
	"github.com/sartor/db/visitors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeTestQuery(t *testing.T, src string) nodes.Query {
	t.Helper()
	n, err := yamlNode(src)
	require.NoError(t, err)
	q, err := decodeQuery(n)
	require.NoError(t, err)
	return q
}

func buildPG(t *testing.T, q nodes.Query) (string, *nodes.Params) {
	t.Helper()
	sql, params, err := visitors.NewPostgresBuilder().Build(q)
	require.NoError(t, err)
	return sql, params
}

func TestDecodeValueKeepsOrder(t *testing.T) {
	v, err := parseYAML("{b: 1, a: [x, 2], c: {d: true}}")
	require.NoError(t, err)
	m, ok := v.(*nodes.Map)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a", "c"}, m.Keys())

	a, _ := m.Get("a")
	assert.Equal(t, []any{"x", 2}, a)
	c, _ := m.Get("c")
	d, _ := c.(*nodes.Map).Get("d")
	assert.Equal(t, true, d)
}

func TestDecodeValueTags(t *testing.T) {
	v, err := parseYAML("{at: !expr NOW(), sub: !query {select: id, from: t}}")
	require.NoError(t, err)
	m := v.(*nodes.Map)

	at, _ := m.Get("at")
	assert.Equal(t, nodes.NewSqlLiteral("NOW()"), at)

	sub, _ := m.Get("sub")
	q, ok := sub.(nodes.Query)
	require.True(t, ok)
	sql, _ := buildPG(t, q)
	assert.Equal(t, `SELECT "id" FROM "t"`, sql)
}

func TestDecodeValueAliasAndEmpty(t *testing.T) {
	v, err := parseYAML("base: &b 7\ncopy: *b\n")
	require.NoError(t, err)
	got, _ := v.(*nodes.Map).Get("copy")
	assert.Equal(t, 7, got)

	v, err = parseYAML("")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = parseYAML("{a: [1, 2}")
	require.Error(t, err)
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"a = 1", "a = 1"},
		{"a:1", "a:1"},
		{"x = ':y'", "x = ':y'"},
		{`["in", id, [1, 2]]`, []any{"in", "id", []any{1, 2}}},
		{"[and, a = 1, b = 2]", []any{"and", "a = 1", "b = 2"}},
	}
	for _, tt := range tests {
		got, err := parseCondition(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, in := range []string{"{status: active}", "status: active", "u.status: active"} {
		got, err := parseCondition(in)
		require.NoError(t, err, in)
		m, ok := got.(*nodes.Map)
		require.True(t, ok, in)
		assert.Equal(t, 1, m.Len(), in)
	}

	_, err := parseCondition("   ")
	require.Error(t, err)
	_, err = parseCondition("{a: ")
	require.Error(t, err)
}

func TestDecodeQuery(t *testing.T) {
	q := decodeTestQuery(t, `
select: [id, name]
from: users
where: {status: active}
order_by: {name: desc, id: asc}
limit: 10
offset: 5
`)
	sql, params := buildPG(t, q)
	assert.Equal(t, `SELECT "id", "name" FROM "users" WHERE "status"=:qp0 ORDER BY "name" DESC, "id" LIMIT 10 OFFSET 5`, sql)
	got, ok := params.Get(":qp0")
	require.True(t, ok)
	assert.Equal(t, "active", got)
}

func TestDecodeQueryJoinsAndParams(t *testing.T) {
	q := decodeTestQuery(t, `
from: users u
join:
  - {type: left, table: posts p, on: p.user_id = u.id}
where: u.id = :id
params: {id: 3}
`)
	sql, params := buildPG(t, q)
	assert.Equal(t, `SELECT * FROM "users" "u" LEFT JOIN "posts" "p" ON p.user_id = u.id WHERE u.id = :id`, sql)
	got, ok := params.Get(":id")
	require.True(t, ok)
	assert.Equal(t, 3, got)
}

func TestDecodeQuerySubqueryJoin(t *testing.T) {
	q := decodeTestQuery(t, `
from: users u
join:
  - table: {r: {select: user_id, from: orders}}
    on: r.user_id = u.id
`)
	sql, _ := buildPG(t, q)
	assert.Equal(t, `SELECT * FROM "users" "u" INNER JOIN (SELECT "user_id" FROM "orders") "r" ON r.user_id = u.id`, sql)
}

func TestDecodeQueryUnionAndWith(t *testing.T) {
	q := decodeTestQuery(t, `
with:
  - alias: cte
    query: {from: t}
from: cte
union: [{from: a}]
`)
	sql, _ := buildPG(t, q)
	assert.Equal(t, `WITH cte AS (SELECT * FROM "t") (SELECT * FROM "cte") UNION ( SELECT * FROM "a" )`, sql)
}

func TestDecodeQueryErrors(t *testing.T) {
	for _, src := range []string{
		"frm: users",
		"from: t\njoin: [posts]",
		"from: t\njoin: [{type: sideways, table: p}]",
		"from: t\njoin: [{on: a = b}]",
		"from: t\nwith: [{query: {from: x}}]",
		"from: t\nwith: [{alias: x}]",
		"from: t\nparams: [1, 2]",
		"- from: t",
	} {
		n, err := yamlNode(src)
		require.NoError(t, err, src)
		_, err = decodeQuery(n)
		assert.Error(t, err, src)
	}
}

func TestDecodeStatement(t *testing.T) {
	b := visitors.NewPostgresBuilder()
	tests := []struct {
		kind, src, want string
	}{
		{"insert", "{table: user, values: {name: tom}}", `INSERT INTO "user" ("name") VALUES (:qp0)`},
		{"batch_insert", "{table: user, columns: [name, age], rows: [[a, 1], [b, 2]]}", `INSERT INTO "user" ("name", "age") VALUES (:qp0, :qp1), (:qp2, :qp3)`},
		{"update", "{table: user, set: {name: x}, where: {id: 1}}", `UPDATE "user" SET "name"=:qp0 WHERE "id"=:qp1`},
		{"delete", "{table: user, where: id > :min, params: {min: 4}}", `DELETE FROM "user" WHERE id > :min`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.kind, func(t *testing.T) {
			n, err := yamlNode(tt.src)
			require.NoError(t, err)
			stmt, err := decodeStatement(tt.kind, n)
			require.NoError(t, err)
			sql, _, err := stmt(b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sql)
		})
	}
}

func TestDecodeStatementErrors(t *testing.T) {
	for _, tt := range []struct{ kind, src string }{
		{"insert", "[a, b]"},
		{"insert", "{values: {a: 1}}"},
		{"merge", "{table: t}"},
		{"upsert", "{table: t, values: {a: 1}, update: 5}"},
	} {
		n, err := yamlNode(tt.src)
		require.NoError(t, err)
		_, err = decodeStatement(tt.kind, n)
		assert.Error(t, err, tt.src)
	}
}

func TestDecodeUpdate(t *testing.T) {
	values := nodes.M("n", 1)
	tests := []struct {
		in   any
		want visitors.Update
	}{
		{nil, visitors.UpdateAll()},
		{true, visitors.UpdateAll()},
		{"ALL", visitors.UpdateAll()},
		{false, visitors.UpdateNone()},
		{"none", visitors.UpdateNone()},
		{"name", visitors.UpdateColumns("name")},
		{[]any{"a", "b"}, visitors.UpdateColumns("a", "b")},
		{values, visitors.UpdateValues(values)},
	}
	for _, tt := range tests {
		got, err := decodeUpdate(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestDecodeTable(t *testing.T) {
	f := factoryFor("postgres")
	v, err := parseYAML("{columns: {id: pk, email: varchar(255) NOT NULL}, unique: [[email]], sequence: user_id_seq}")
	require.NoError(t, err)
	tbl, err := decodeTable(f, "user", v)
	require.NoError(t, err)

	assert.Equal(t, []string{"id"}, tbl.PrimaryKey)
	assert.Equal(t, []string{"id", "email"}, tbl.ColumnNames())
	assert.Equal(t, "user_id_seq", tbl.SequenceName)
	assert.Equal(t, [][]string{{"id"}, {"email"}}, tbl.UniqueSets())

	id, _ := tbl.Column("id")
	assert.True(t, id.AutoIncrement)
	email, _ := tbl.Column("email")
	assert.Equal(t, schema.TypeString, email.Type)
	assert.Equal(t, 255, email.Size)
	assert.False(t, email.AllowNull)
}

func TestDecodeTableShorthand(t *testing.T) {
	v, err := parseYAML("{a: int, b: int}")
	require.NoError(t, err)
	tbl, err := decodeTable(factoryFor("mysql"), "pair", v)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.ColumnNames())
	assert.Empty(t, tbl.PrimaryKey)

	v, err = parseYAML("{columns: {a: int, b: int}, primary_key: [a, b]}")
	require.NoError(t, err)
	tbl, err = decodeTable(factoryFor("mysql"), "pair", v)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.PrimaryKey)

	for _, src := range []string{"[a]", "{columns: {}}", "{columns: [a]}"} {
		v, err := parseYAML(src)
		require.NoError(t, err)
		_, err = decodeTable(factoryFor("mysql"), "bad", v)
		assert.Error(t, err, src)
	}
}

func TestParseQueryFile(t *testing.T) {
	qf, err := parseQueryFile([]byte(`
dialect: MySQL
schema:
  user:
    columns: {id: pk, email: varchar(64)}
select: email
from: user
`), factoryFor, "postgres")
	require.NoError(t, err)
	assert.Equal(t, "mysql", qf.Dialect)
	require.Len(t, qf.Tables, 1)
	assert.Equal(t, "user", qf.Tables[0].Name)

	sql, _, err := qf.Build(visitors.NewMySQLBuilder())
	require.NoError(t, err)
	assert.Equal(t, "SELECT `email` FROM `user`", sql)
}

func TestParseQueryFileErrors(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"not a mapping":  "- a\n- b\n",
		"both":           "from: t\ninsert: {table: t, values: {a: 1}}\n",
		"two statements": "insert: {table: t, values: {a: 1}}\ndelete: {table: t}\n",
		"nothing":        "dialect: mysql\n",
		"bad dialect":    "dialect: oracle\nfrom: t\n",
		"bad yaml":       "from: [t\n",
	}
	for name, src := range tests {
		src := src
		t.Run(name, func(t *testing.T) {
			_, err := parseQueryFile([]byte(src), factoryFor, "postgres")
			assert.Error(t, err)
		})
	}
}
