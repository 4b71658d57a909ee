// Package testutil provides shared test helpers for the module.
package testutil

import (
	"errors"
	"strings"
	"testing"

	"github.com/sartor/db/nodes"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// QueryBuilder is the part of a dialect builder the helpers need.
type QueryBuilder interface {
	Build(q nodes.Query) (string, *nodes.Params, error)
}

// AssertEqual checks that got == want and reports a descriptive error if not.
func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	assert.Equal(t, want, got)
}

// AssertSQL builds q and compares the SQL with expected. It returns the
// params so callers can check them too.
func AssertSQL(t *testing.T, b QueryBuilder, q nodes.Query, expected string) *nodes.Params {
	t.Helper()
	sql, params, err := b.Build(q)
	require.NoError(t, err)
	assert.Equal(t, expected, sql)
	return params
}

// AssertParams checks the bag holds exactly want, in order.
func AssertParams(t *testing.T, got *nodes.Params, want ...nodes.Param) {
	t.Helper()
	if len(want) == 0 {
		assert.Zero(t, got.Len(), "expected no params, got %v", got.All())
		return
	}
	assert.Equal(t, want, got.All())
}

// AssertNoError fails the test if err is non-nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	require.NoError(t, err)
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
}

// AssertErrorIs fails the test unless err matches target and its message
// contains every fragment.
func AssertErrorIs(t *testing.T, err, target error, fragments ...string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, target), "expected %v, got %v", target, err)
	for _, f := range fragments {
		assert.Contains(t, err.Error(), f)
	}
}

// Quotes rewrites [[name]] markers in an expected SQL string to the
// dialect's identifier quotes, so one expectation serves every dialect.
func Quotes(sql, open, close string) string {
	return strings.NewReplacer("[[", open, "]]", close).Replace(sql)
}

// AssertGolden compares got with testdata/golden/<name>.golden. Run the
// tests with -update to rewrite the fixture.
func AssertGolden(t *testing.T, name, got string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(got))
}
