package visitors

import (
	"testing"

	"github.com/sartor/db/internal/testutil"
	"github.com/sartor/db/nodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- SELECT ---

func TestSelectStar(t *testing.T) {
	t.Parallel()
	q := nodes.From("users")
	testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT * FROM "users"`)
	testutil.AssertSQL(t, NewMySQLBuilder(), q, "SELECT * FROM `users`")
	testutil.AssertSQL(t, NewSQLiteBuilder(), q, "SELECT * FROM `users`")
	testutil.AssertSQL(t, NewGenericBuilder(), q, `SELECT * FROM "users"`)
}

func TestSelectColumnsAndAliases(t *testing.T) {
	t.Parallel()
	q := nodes.Select("id, name AS n").From("users u")
	testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT "id", "name" AS "n" FROM "users" "u"`)
	testutil.AssertSQL(t, NewMySQLBuilder(), q, "SELECT `id`, `name` AS `n` FROM `users` `u`")
}

func TestSelectQualifiedColumn(t *testing.T) {
	t.Parallel()
	q := nodes.Select("u.id").From("users u")
	testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT "u"."id" FROM "users" "u"`)
}

func TestSelectExpressionKeptVerbatim(t *testing.T) {
	t.Parallel()
	q := nodes.Select("COUNT(*) AS total").From("users")
	testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT COUNT(*) AS "total" FROM "users"`)
}

func TestSelectNodeWithAlias(t *testing.T) {
	t.Parallel()
	q := nodes.Select(nodes.M("now", nodes.NewSqlLiteral("NOW()"))).From("t")
	testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT NOW() AS "now" FROM "t"`)
}

func TestSelectSubQueryColumn(t *testing.T) {
	t.Parallel()
	sub := nodes.Select(nodes.NewSqlLiteral("MAX(id)")).From("orders")
	q := nodes.Select("id", nodes.As(sub, "last_order")).From("users")
	testutil.AssertSQL(t, NewPostgresBuilder(), q,
		`SELECT "id", (SELECT MAX(id) FROM "orders") AS "last_order" FROM "users"`)
}

func TestSelectDistinct(t *testing.T) {
	t.Parallel()
	q := nodes.Select("id").Distinct(true).From("t")
	testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT DISTINCT "id" FROM "t"`)
}

func TestSelectOption(t *testing.T) {
	t.Parallel()
	q := nodes.Select("id").SelectOption("SQL_CALC_FOUND_ROWS").From("t")
	testutil.AssertSQL(t, NewMySQLBuilder(), q, "SELECT SQL_CALC_FOUND_ROWS `id` FROM `t`")
}

func TestSelectWithoutFrom(t *testing.T) {
	t.Parallel()
	q := nodes.Select(nodes.NewSqlLiteral("1"))
	testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT 1`)
}

// --- FROM ---

func TestFromMultipleSources(t *testing.T) {
	t.Parallel()
	q := nodes.From("users, posts p")
	testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT * FROM "users", "posts" "p"`)
}

func TestFromSchemaQualified(t *testing.T) {
	t.Parallel()
	q := nodes.From("public.users")
	testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT * FROM "public"."users"`)
}

func TestFromSubQuery(t *testing.T) {
	t.Parallel()
	q := nodes.From(nodes.As(nodes.From("t").Where(nodes.M("a", 1)), "sub"))
	params := testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT * FROM (SELECT * FROM "t" WHERE "a"=:qp0) "sub"`)
	testutil.AssertParams(t, params, nodes.Named(":qp0", 1))
}

func TestFromMapAliases(t *testing.T) {
	t.Parallel()
	q := nodes.From(nodes.M("u", "users"))
	testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT * FROM "users" "u"`)
}

func TestFromPrefixMarker(t *testing.T) {
	t.Parallel()
	q := nodes.From("{{%users}}")
	testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT * FROM {{%users}}`)
}

// --- JOIN ---

func TestJoinWithAlias(t *testing.T) {
	t.Parallel()
	q := nodes.From("users").LeftJoin("posts p", "p.user_id = users.id")
	testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT * FROM "users" LEFT JOIN "posts" "p" ON p.user_id = users.id`)
	testutil.AssertSQL(t, NewMySQLBuilder(), q, "SELECT * FROM `users` LEFT JOIN `posts` `p` ON p.user_id = users.id")
}

func TestJoinTypes(t *testing.T) {
	t.Parallel()
	q := nodes.From("a").
		InnerJoin("b", "b.a_id = a.id").
		RightJoin("c", "c.b_id = b.id").
		Join(nodes.CrossJoin, "d", nil)
	testutil.AssertSQL(t, NewPostgresBuilder(), q,
		`SELECT * FROM "a" INNER JOIN "b" ON b.a_id = a.id RIGHT JOIN "c" ON c.b_id = b.id CROSS JOIN "d"`)
}

func TestJoinHashCondition(t *testing.T) {
	t.Parallel()
	q := nodes.From("users").InnerJoin(nodes.M("p", "posts"), nodes.M("p.published", true))
	params := testutil.AssertSQL(t, NewPostgresBuilder(), q,
		`SELECT * FROM "users" INNER JOIN "posts" "p" ON "p"."published"=:qp0`)
	testutil.AssertParams(t, params, nodes.Named(":qp0", true))
}

func TestJoinSubQuery(t *testing.T) {
	t.Parallel()
	sub := nodes.Select("user_id").From("orders")
	q := nodes.From("users").LeftJoin(nodes.As(sub, "o"), "o.user_id = users.id")
	testutil.AssertSQL(t, NewPostgresBuilder(), q,
		`SELECT * FROM "users" LEFT JOIN (SELECT "user_id" FROM "orders") "o" ON o.user_id = users.id`)
}

func TestJoinParamsAreCarried(t *testing.T) {
	t.Parallel()
	q := nodes.From("users").InnerJoin("posts", "posts.kind = :kind", nodes.Named(":kind", "draft"))
	params := testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT * FROM "users" INNER JOIN "posts" ON posts.kind = :kind`)
	testutil.AssertParams(t, params, nodes.Named(":kind", "draft"))
}

// --- WHERE ---

func TestWhereHash(t *testing.T) {
	t.Parallel()
	q := nodes.From("t").Where(nodes.M("a", 1, "b", nil))
	params := testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT * FROM "t" WHERE ("a"=:qp0) AND ("b" IS NULL)`)
	testutil.AssertParams(t, params, nodes.Named(":qp0", 1))
}

func TestWhereRawWithParams(t *testing.T) {
	t.Parallel()
	q := nodes.From("t").Where("a = :a", nodes.Named(":a", 5)).AndWhere(nodes.M("b", 1))
	params := testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT * FROM "t" WHERE (a = :a) AND ("b"=:qp1)`)
	testutil.AssertParams(t, params, nodes.Named(":a", 5), nodes.Named(":qp1", 1))
}

func TestWhereGeneratedNameAvoidsCallerName(t *testing.T) {
	t.Parallel()
	q := nodes.From("t").Where(nodes.M("a", 1)).Params(nodes.Named(":qp1", "x"))
	params := testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT * FROM "t" WHERE "a"=:qp1_0`)
	testutil.AssertParams(t, params, nodes.Named(":qp1", "x"), nodes.Named(":qp1_0", 1))
}

func TestWhereAndOrChaining(t *testing.T) {
	t.Parallel()
	q := nodes.From("t").
		Where(nodes.M("a", 1)).
		AndWhere([]any{">", "b", 2}).
		AndWhere([]any{"<", "c", 3}).
		OrWhere(nodes.M("d", 4))
	testutil.AssertSQL(t, NewPostgresBuilder(), q,
		`SELECT * FROM "t" WHERE (("a"=:qp0) AND ("b" > :qp1) AND ("c" < :qp2)) OR ("d"=:qp3)`)
}

func TestWhereSubQueryParamsShareBag(t *testing.T) {
	t.Parallel()
	sub := nodes.Select("uid").From("o").Where(nodes.M("s", 1))
	q := nodes.From("u").Where(nodes.In("id", sub)).AndWhere(nodes.M("a", 2))
	params := testutil.AssertSQL(t, NewPostgresBuilder(), q,
		`SELECT * FROM "u" WHERE ("id" IN (SELECT "uid" FROM "o" WHERE "s"=:qp0)) AND ("a"=:qp1)`)
	testutil.AssertParams(t, params, nodes.Named(":qp0", 1), nodes.Named(":qp1", 2))
}

func TestFilterWhereDropsEmptyOperands(t *testing.T) {
	t.Parallel()
	q := nodes.From("t").FilterWhere(nodes.M("name", "", "status", 1))
	testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT * FROM "t" WHERE "status"=:qp0`)

	empty := nodes.From("t").FilterWhere([]any{"like", "name", ""})
	testutil.AssertSQL(t, NewPostgresBuilder(), empty, `SELECT * FROM "t"`)
}

// --- GROUP BY / HAVING ---

func TestGroupByHaving(t *testing.T) {
	t.Parallel()
	q := nodes.Select("status", nodes.NewSqlLiteral("COUNT(*)")).
		From("t").
		GroupBy("status").
		Having([]any{">", nodes.NewSqlLiteral("COUNT(*)"), 1})
	params := testutil.AssertSQL(t, NewPostgresBuilder(), q,
		`SELECT "status", COUNT(*) FROM "t" GROUP BY "status" HAVING COUNT(*) > :qp0`)
	testutil.AssertParams(t, params, nodes.Named(":qp0", 1))
}

func TestGroupByMultipleAndExpression(t *testing.T) {
	t.Parallel()
	q := nodes.From("t").GroupBy("a, b").AddGroupBy(nodes.NewSqlLiteral("DATE(created_at)"))
	testutil.AssertSQL(t, NewMySQLBuilder(), q, "SELECT * FROM `t` GROUP BY `a`, `b`, DATE(created_at)")
}

// --- ORDER BY / LIMIT ---

func TestOrderBy(t *testing.T) {
	t.Parallel()
	q := nodes.From("t").OrderBy("name ASC, id DESC")
	testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT * FROM "t" ORDER BY "name", "id" DESC`)
}

func TestOrderByExpression(t *testing.T) {
	t.Parallel()
	q := nodes.From("t").OrderBy(nodes.NewSqlLiteral("FIELD(id, 3, 1, 2)"), nodes.Desc("name"))
	testutil.AssertSQL(t, NewMySQLBuilder(), q, "SELECT * FROM `t` ORDER BY FIELD(id, 3, 1, 2), `name` DESC")
}

func TestLimitOffsetPerDialect(t *testing.T) {
	t.Parallel()
	both := nodes.From("t").Limit(10).Offset(20)
	onlyOffset := nodes.From("t").Offset(20)
	onlyLimit := nodes.From("t").Limit(5)

	tests := []struct {
		name     string
		b        *Builder
		q        nodes.Query
		expected string
	}{
		{"postgres both", NewPostgresBuilder(), both, `SELECT * FROM "t" LIMIT 10 OFFSET 20`},
		{"postgres offset", NewPostgresBuilder(), onlyOffset, `SELECT * FROM "t" OFFSET 20`},
		{"postgres limit", NewPostgresBuilder(), onlyLimit, `SELECT * FROM "t" LIMIT 5`},
		{"mysql both", NewMySQLBuilder(), both, "SELECT * FROM `t` LIMIT 10 OFFSET 20"},
		{"mysql offset", NewMySQLBuilder(), onlyOffset, "SELECT * FROM `t` LIMIT 20, 18446744073709551615"},
		{"sqlite both", NewSQLiteBuilder(), both, "SELECT * FROM `t` LIMIT 10 OFFSET 20"},
		{"sqlite offset", NewSQLiteBuilder(), onlyOffset, "SELECT * FROM `t` LIMIT 9223372036854775807 OFFSET 20"},
		{"generic offset", NewGenericBuilder(), onlyOffset, `SELECT * FROM "t" OFFSET 20`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			testutil.AssertSQL(t, tt.b, tt.q, tt.expected)
		})
	}
}

func TestLimitZeroIsKept(t *testing.T) {
	t.Parallel()
	testutil.AssertSQL(t, NewPostgresBuilder(), nodes.From("t").Limit(0), `SELECT * FROM "t" LIMIT 0`)
}

func TestNegativeLimitAndZeroOffsetAreIgnored(t *testing.T) {
	t.Parallel()
	q := nodes.From("t").Limit(-1).Offset(0)
	testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT * FROM "t"`)
	testutil.AssertSQL(t, NewMySQLBuilder(), q, "SELECT * FROM `t`")
}

func TestLimitAcceptsEveryIntegerKind(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		limit, offset any
	}{
		{int8(10), int16(5)},
		{uint8(10), uint16(5)},
		{uint32(10), int32(5)},
		{uint64(10), int64(5)},
	} {
		q := nodes.Select("*").From("t").Limit(tc.limit).Offset(tc.offset)
		testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT * FROM "t" LIMIT 10 OFFSET 5`)
	}
}

func TestLimitExpression(t *testing.T) {
	t.Parallel()
	q := nodes.From("t").Limit(nodes.NewSqlLiteral("1 + 1")).Offset(nodes.NewSqlLiteral("2 * 3"))
	testutil.AssertSQL(t, NewPostgresBuilder(), q, `SELECT * FROM "t" LIMIT 1 + 1 OFFSET 2 * 3`)
}

// --- UNION / WITH ---

func TestUnion(t *testing.T) {
	t.Parallel()
	q := nodes.From("a").Union(nodes.From("b")).UnionAll("SELECT 1")
	testutil.AssertSQL(t, NewPostgresBuilder(), q,
		`(SELECT * FROM "a") UNION ( SELECT * FROM "b" ) UNION ALL ( SELECT 1 )`)
}

func TestUnionKeepsParenthesizedMember(t *testing.T) {
	t.Parallel()
	testutil.AssertSQL(t, NewPostgresBuilder(), nodes.From("a").Union("(SELECT 1)"),
		`(SELECT * FROM "a") UNION (SELECT 1)`)
	testutil.AssertSQL(t, NewPostgresBuilder(), nodes.From("a").Union("(SELECT 1) UNION (SELECT 2)"),
		`(SELECT * FROM "a") UNION ( (SELECT 1) UNION (SELECT 2) )`)
	testutil.AssertSQL(t, NewPostgresBuilder(), nodes.From("a").Union("(SELECT ')(')"),
		`(SELECT * FROM "a") UNION (SELECT ')(')`)
}

func TestUnionParamsFollowMainQuery(t *testing.T) {
	t.Parallel()
	q := nodes.From("a").Where(nodes.M("x", 1)).Union(nodes.From("b").Where(nodes.M("y", 2)))
	params := testutil.AssertSQL(t, NewPostgresBuilder(), q,
		`(SELECT * FROM "a" WHERE "x"=:qp0) UNION ( SELECT * FROM "b" WHERE "y"=:qp1 )`)
	testutil.AssertParams(t, params, nodes.Named(":qp0", 1), nodes.Named(":qp1", 2))
}

func TestWithQuery(t *testing.T) {
	t.Parallel()
	cte := nodes.From("t").Where(nodes.M("x", 1))
	q := nodes.From("cte").WithQuery(cte, "cte", false)
	testutil.AssertSQL(t, NewPostgresBuilder(), q, `WITH cte AS (SELECT * FROM "t" WHERE "x"=:qp0) SELECT * FROM "cte"`)
}

func TestWithQueryParamsFollowMainQuery(t *testing.T) {
	t.Parallel()
	cte := nodes.From("t").Where(nodes.M("x", 1))
	q := nodes.From("cte").Where(nodes.M("y", 2)).WithQuery(cte, "cte", false)
	params := testutil.AssertSQL(t, NewPostgresBuilder(), q,
		`WITH cte AS (SELECT * FROM "t" WHERE "x"=:qp1) SELECT * FROM "cte" WHERE "y"=:qp0`)
	testutil.AssertParams(t, params, nodes.Named(":qp0", 2), nodes.Named(":qp1", 1))
}

func TestWithRecursive(t *testing.T) {
	t.Parallel()
	seed := "SELECT 1 AS n UNION ALL SELECT n + 1 FROM nums WHERE n < 5"
	q := nodes.From("nums").WithQuery("SELECT 0", "zero", false).WithQuery(seed, "nums", true)
	testutil.AssertSQL(t, NewPostgresBuilder(), q,
		`WITH RECURSIVE zero AS (SELECT 0), nums AS (`+seed+`) SELECT * FROM "nums"`)
}

// --- Separator ---

func TestSeparator(t *testing.T) {
	t.Parallel()
	q := nodes.Select("id").From("t").Where("id > 1").OrderBy("id").Limit(3)
	b := NewPostgresBuilder(WithSeparator("\n"))
	testutil.AssertSQL(t, b, q, "SELECT \"id\"\nFROM \"t\"\nWHERE id > 1\nORDER BY \"id\"\nLIMIT 3")
	assert.Equal(t, "\n", b.Separator())

	b.SetSeparator(" ")
	testutil.AssertSQL(t, b, q, `SELECT "id" FROM "t" WHERE id > 1 ORDER BY "id" LIMIT 3`)
}

// --- Golden ---

func TestReportQueryGolden(t *testing.T) {
	t.Parallel()
	recent := nodes.Select("user_id", nodes.M("total", nodes.NewSqlLiteral("SUM(amount)"))).
		From("orders").
		Where(nodes.Between("created_at", "2024-01-01", "2024-12-31")).
		GroupBy("user_id")
	q := nodes.Select("u.id", "u.name", "r.total").
		From("users u").
		InnerJoin(nodes.As(recent, "r"), "r.user_id = u.id").
		Where(nodes.M("u.status", []string{"active", "trial"})).
		AndWhere(nodes.NotLike("u.email", "@example.com")).
		OrderBy("r.total DESC").
		Limit(50)

	for _, d := range []struct {
		name string
		b    *Builder
	}{
		{"report_postgres", NewPostgresBuilder(WithSeparator("\n"))},
		{"report_mysql", NewMySQLBuilder(WithSeparator("\n"))},
		{"report_sqlite", NewSQLiteBuilder(WithSeparator("\n"))},
	} {
		d := d
		t.Run(d.name, func(t *testing.T) {
			t.Parallel()
			sql, params, err := d.b.Build(q)
			require.NoError(t, err)
			testutil.AssertGolden(t, d.name, sql)
			assert.Equal(t, []string{":qp0", ":qp1", ":qp2", ":qp3", ":qp4"}, params.Names())
			v, _ := params.Get(":qp4")
			assert.Equal(t, `%@example.com%`, v)
		})
	}
}

// --- Transformers and logging ---

type addCondition struct{ cond any }

func (a addCondition) TransformQuery(q nodes.Query) (nodes.Query, error) {
	return q.AndWhere(a.cond), nil
}

func TestTransformersApplyToTopLevelQuery(t *testing.T) {
	t.Parallel()
	b := NewPostgresBuilder(WithTransformers(addCondition{nodes.M("tenant_id", 7)}))
	q := nodes.From("t").Where(nodes.In("id", nodes.Select("id").From("s")))
	params := testutil.AssertSQL(t, b, q,
		`SELECT * FROM "t" WHERE ("id" IN (SELECT "id" FROM "s")) AND ("tenant_id"=:qp0)`)
	testutil.AssertParams(t, params, nodes.Named(":qp0", 7))
}

func TestBuildIntoAppendsToBag(t *testing.T) {
	t.Parallel()
	params := nodes.NewParams(nodes.Named(":x", 1))
	sql, err := NewPostgresBuilder().BuildInto(nodes.From("t").Where(nodes.M("a", 2)), params)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "t" WHERE "a"=:qp1`, sql)
	assert.Equal(t, 2, params.Len())
}

func TestBuildDoesNotMutateQuery(t *testing.T) {
	t.Parallel()
	q := nodes.From("t").Where(nodes.M("a", 1)).Params(nodes.Named(":p", 1))
	b := NewPostgresBuilder()
	first, _, err := b.Build(q)
	require.NoError(t, err)
	second, _, err := b.Build(q)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, q.Bindings, 1)
}
