package command

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/sartor/db/nodes"
	"github.com/sartor/db/schema"
	"github.com/sartor/db/visitors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// --- Marker resolution and placeholder rewriting ---

func TestSQLResolvesMarkers(t *testing.T) {
	t.Parallel()
	b := visitors.NewPostgresBuilder(visitors.WithTablePrefix("tbl_"))
	c := New(b, "SELECT [[id]] FROM {{%user}} WHERE {{user}}.[[x]] = 1", nil)
	assert.Equal(t, `SELECT "id" FROM "tbl_user" WHERE "user"."x" = 1`, c.SQL())
}

func TestPositional(t *testing.T) {
	t.Parallel()
	params := nodes.NewParams(nodes.Named(":qp0", 1), nodes.Named(":qp1", "x"))
	sql := "SELECT * FROM [[t]] WHERE [[a]]=:qp0 AND b = ':qp1' AND c::text = :qp1"

	tests := []struct {
		name    string
		b       *visitors.Builder
		wantSQL string
	}{
		{"postgres", visitors.NewPostgresBuilder(), `SELECT * FROM "t" WHERE "a"=$1 AND b = ':qp1' AND c::text = $2`},
		{"mysql", visitors.NewMySQLBuilder(), "SELECT * FROM `t` WHERE `a`=? AND b = ':qp1' AND c::text = ?"},
		{"sqlite", visitors.NewSQLiteBuilder(), "SELECT * FROM `t` WHERE `a`=? AND b = ':qp1' AND c::text = ?"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, args, err := New(tt.b, sql, params).Positional()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, got)
			assert.Equal(t, []any{1, "x"}, args)
		})
	}
}

func TestPositionalSkipsEscapedQuotes(t *testing.T) {
	t.Parallel()
	params := nodes.NewParams(nodes.Named(":v", 7))
	got, args, err := New(visitors.NewPostgresBuilder(), "SELECT 'it''s :v', :v", params).Positional()
	require.NoError(t, err)
	assert.Equal(t, "SELECT 'it''s :v', $1", got)
	assert.Equal(t, []any{7}, args)
}

func TestPositionalAcceptsNamesWithoutColon(t *testing.T) {
	t.Parallel()
	params := nodes.NewParams(nodes.Named("id", 3))
	got, args, err := New(visitors.NewMySQLBuilder(), "DELETE FROM t WHERE id = :id", params).Positional()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM t WHERE id = ?", got)
	assert.Equal(t, []any{3}, args)
}

func TestPositionalUnboundParameter(t *testing.T) {
	t.Parallel()
	_, _, err := New(visitors.NewPostgresBuilder(), "SELECT :missing", nil).Positional()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":missing")
}

func TestRawSQL(t *testing.T) {
	t.Parallel()
	b := visitors.NewPostgresBuilder()
	q := nodes.From("t").Where(nodes.M("a", 1, "b", "it's", "c", nil))
	c, err := FromQuery(b, q)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "t" WHERE ("a"=1) AND ("b"='it''s') AND ("c" IS NULL)`, c.RawSQL())
}

func TestRawSQLLongestNameFirst(t *testing.T) {
	t.Parallel()
	params := nodes.NewParams()
	for i := 0; i < 11; i++ {
		params.Bind(i)
	}
	got := New(visitors.NewGenericBuilder(), "SELECT :qp1, :qp10", params).RawSQL()
	assert.Equal(t, "SELECT 1, 10", got)
}

// --- Execution against SQLite ---

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func itemSchema() *schema.Memory {
	f := schema.SQLiteFactory()
	return schema.NewMemory(schema.NewTable("item",
		f.FromPseudoType(string(schema.TypePK), schema.WithName("id")),
		f.FromType(schema.TypeString, schema.WithName("name"), schema.WithAllowNull(false)),
	))
}

func setupItems(t *testing.T, b *visitors.Builder, db *sql.DB) {
	t.Helper()
	ddl, err := b.CreateTable("item", nodes.M(
		"id", schema.PrimaryKey(),
		"name", schema.String(64).NotNull(),
	))
	require.NoError(t, err)
	_, err = New(b, ddl, nil).Exec(context.Background(), db)
	require.NoError(t, err)
}

func countItems(t *testing.T, b *visitors.Builder, db *sql.DB) int {
	t.Helper()
	c, err := FromQuery(b, nodes.Select(nodes.NewSqlLiteral("COUNT(*)")).From("item"))
	require.NoError(t, err)
	row, err := c.QueryRow(context.Background(), db)
	require.NoError(t, err)
	var n int
	require.NoError(t, row.Scan(&n))
	return n
}

func TestUpsertTwiceKeepsOneRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openSQLite(t)
	b := visitors.NewSQLiteBuilder(visitors.WithSchema(itemSchema()))
	setupItems(t, b, db)

	for i, name := range []string{"first", "second"} {
		sql, params, err := b.Upsert("item", nodes.M("id", 1, "name", name), visitors.UpdateAll())
		require.NoError(t, err)
		res, err := New(b, sql, params).Exec(ctx, db)
		require.NoError(t, err, "upsert %d", i)
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.EqualValues(t, 1, n, "upsert %d", i)
	}
	assert.Equal(t, 1, countItems(t, b, db))

	c, err := FromQuery(b, nodes.Select("name").From("item").Where(nodes.M("id", 1)))
	require.NoError(t, err)
	row, err := c.QueryRow(ctx, db)
	require.NoError(t, err)
	var name string
	require.NoError(t, row.Scan(&name))
	assert.Equal(t, "second", name)
}

func TestUpsertIgnoreKeepsExistingRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openSQLite(t)
	b := visitors.NewSQLiteBuilder(visitors.WithSchema(itemSchema()))
	setupItems(t, b, db)

	for _, name := range []string{"first", "second"} {
		sql, params, err := b.Upsert("item", nodes.M("id", 1, "name", name), visitors.UpdateNone())
		require.NoError(t, err)
		_, err = New(b, sql, params).Exec(ctx, db)
		require.NoError(t, err)
	}

	c, err := FromQuery(b, nodes.Select("name").From("item"))
	require.NoError(t, err)
	rows, err := c.Query(ctx, db)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"first"}, names)
}

func TestBatchInsertUpdateDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openSQLite(t)
	b := visitors.NewSQLiteBuilder(visitors.WithSchema(itemSchema()))
	setupItems(t, b, db)

	sql, params, err := b.BatchInsert("item", []string{"name"}, [][]any{{"a"}, {"b"}, {"c"}})
	require.NoError(t, err)
	_, err = New(b, sql, params).Exec(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 3, countItems(t, b, db))

	sql, params, err = b.Update("item", nodes.M("name", "z"), nodes.M("name", []any{"a", "b"}))
	require.NoError(t, err)
	res, err := New(b, sql, params).Exec(ctx, db)
	require.NoError(t, err)
	n, _ := res.RowsAffected()
	assert.EqualValues(t, 2, n)

	sql, params, err = b.Delete("item", nodes.M("name", "z"))
	require.NoError(t, err)
	_, err = New(b, sql, params).Exec(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, countItems(t, b, db))
}

func TestResetSequence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openSQLite(t)
	b := visitors.NewSQLiteBuilder(visitors.WithSchema(itemSchema()))
	setupItems(t, b, db)

	sql, params, err := b.Insert("item", nodes.M("name", "seed"))
	require.NoError(t, err)
	_, err = New(b, sql, params).Exec(ctx, db)
	require.NoError(t, err)

	reset, err := b.ResetSequence("item", 10)
	require.NoError(t, err)
	_, err = New(b, reset, nil).Exec(ctx, db)
	require.NoError(t, err)

	sql, params, err = b.Insert("item", nodes.M("name", "next"))
	require.NoError(t, err)
	res, err := New(b, sql, params).Exec(ctx, db)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	assert.EqualValues(t, 10, id)
}

func TestExecErrorIsWrapped(t *testing.T) {
	t.Parallel()
	db := openSQLite(t)
	_, err := New(visitors.NewSQLiteBuilder(), "SELECT * FROM [[missing]]", nil).Exec(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exec:")
}

func TestCommandLogsExecution(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	db := openSQLite(t)
	b := visitors.NewSQLiteBuilder(visitors.WithLogger(logger))

	_, err := New(b, "SELECT 1", nil).Exec(context.Background(), db)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "command executed")
	assert.Contains(t, buf.String(), "duration=")
}
