// Package visitors compiles nodes.Query values and statement requests
// into dialect-specific SQL with named bind parameters.
//
// A Builder couples the shared compile logic with a Dialect supplying
// quoting, limit syntax, upsert syntax and DDL differences:
//
//	b := visitors.NewPostgresBuilder()
//	sql, params, err := b.Build(nodes.From("users").Where(nodes.M("id", 1)))
//	// SELECT * FROM "users" WHERE "id"=:qp0
package visitors

import (
	"io"
	"log/slog"
	"maps"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/sartor/db/nodes"
	"github.com/sartor/db/plugins"
	"github.com/sartor/db/schema"
)

// Option configures a Builder at construction time.
type Option func(*Builder)

// WithSeparator sets the string joining clauses; the default is a space.
func WithSeparator(sep string) Option {
	return func(b *Builder) { b.separator = sep }
}

// WithSchema supplies table metadata for typecasting, upsert conflict
// targets and sequence resets.
func WithSchema(p schema.Provider) Option {
	return func(b *Builder) { b.schema = p }
}

// WithServerVersion enables version-gated syntax, e.g. SQLite upsert
// (3.24.0) or the MySQL row alias (8.0.19).
func WithServerVersion(v *version.Version) Option {
	return func(b *Builder) { b.version = v }
}

// WithTablePrefix sets the replacement for % in {{%table}} markers.
func WithTablePrefix(prefix string) Option {
	return func(b *Builder) { b.quoter.TablePrefix = prefix }
}

// WithLogger sets the logger for compile events. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithTransformers registers transformers applied to every top-level
// query before it is compiled.
func WithTransformers(ts ...plugins.Transformer) Option {
	return func(b *Builder) { b.transformers = append(b.transformers, ts...) }
}

// WithExpressionBuilders registers or replaces builders per node kind.
func WithExpressionBuilders(m map[nodes.Kind]ExpressionBuilder) Option {
	return func(b *Builder) { b.SetExpressionBuilders(m) }
}

// WithConditionClasses registers or replaces array-shorthand operators.
func WithConditionClasses(m map[string]ConditionFactory) Option {
	return func(b *Builder) { b.SetConditionClasses(m) }
}

// Builder compiles queries and statements for one dialect. A configured
// Builder is safe for concurrent use; Set* methods and SetSeparator are
// setup-time calls.
type Builder struct {
	dialect Dialect
	quoter  *StandardQuoter
	factory *schema.Factory
	schema  schema.Provider
	version *version.Version
	logger  *slog.Logger

	separator          string
	expressionBuilders map[nodes.Kind]ExpressionBuilder
	conditionClasses   map[string]ConditionFactory
	transformers       []plugins.Transformer
}

// NewBuilder creates a Builder for d.
func NewBuilder(d Dialect, opts ...Option) *Builder {
	b := &Builder{
		dialect:            d,
		quoter:             d.Quoter(),
		factory:            d.ColumnFactory(),
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		separator:          " ",
		expressionBuilders: defaultExpressionBuilders(),
		conditionClasses:   defaultConditionClasses(),
	}
	b.SetExpressionBuilders(d.ExpressionBuilders())
	b.SetConditionClasses(d.ConditionClasses())
	for _, o := range opts {
		o(b)
	}
	return b
}

// NewGenericBuilder creates a Builder with dialect-neutral syntax.
func NewGenericBuilder(opts ...Option) *Builder {
	return NewBuilder(BaseDialect{}, opts...)
}

// Clone returns an independent copy; changes to either side do not
// affect the other.
func (b *Builder) Clone() *Builder {
	c := *b
	c.quoter = b.quoter.clone()
	c.expressionBuilders = maps.Clone(b.expressionBuilders)
	c.conditionClasses = maps.Clone(b.conditionClasses)
	c.transformers = append([]plugins.Transformer(nil), b.transformers...)
	return &c
}

// SetSeparator changes the clause joiner. Setup-time only.
func (b *Builder) SetSeparator(sep string) { b.separator = sep }

// Separator returns the clause joiner.
func (b *Builder) Separator() string { return b.separator }

// Dialect returns the dialect hooks.
func (b *Builder) Dialect() Dialect { return b.dialect }

// Quoter returns the identifier and literal quoter.
func (b *Builder) Quoter() Quoter { return b.quoter }

// ColumnFactory returns the dialect's column factory.
func (b *Builder) ColumnFactory() *schema.Factory { return b.factory }

// Schema returns the table metadata provider, which may be nil.
func (b *Builder) Schema() schema.Provider { return b.schema }

// ServerVersion returns the configured server version, which may be nil.
func (b *Builder) ServerVersion() *version.Version { return b.version }

// Logger returns the builder's logger.
func (b *Builder) Logger() *slog.Logger { return b.logger }

// Placeholder returns the driver placeholder for the i-th (1-based) argument.
func (b *Builder) Placeholder(i int) string { return b.dialect.Placeholder(i) }

// serverBelow reports whether a server version is configured and lower than min.
func (b *Builder) serverBelow(min string) bool {
	if b.version == nil {
		return false
	}
	return b.version.LessThan(version.Must(version.NewVersion(min)))
}

// serverAtLeast reports whether a server version is configured and at least min.
func (b *Builder) serverAtLeast(min string) bool {
	if b.version == nil {
		return false
	}
	return b.version.GreaterThanOrEqual(version.Must(version.NewVersion(min)))
}

// Build compiles q into SQL and a fresh parameter bag seeded with the
// query's own params.
func (b *Builder) Build(q nodes.Query) (string, *nodes.Params, error) {
	params := nodes.NewParams()
	sql, err := b.BuildInto(q, params)
	if err != nil {
		return "", nil, err
	}
	return sql, params, nil
}

// BuildInto compiles q, appending its bindings to params.
func (b *Builder) BuildInto(q nodes.Query, params *nodes.Params) (string, error) {
	q, err := plugins.Chain(q, b.transformers...)
	if err != nil {
		return "", err
	}
	sql, err := b.build(q, params)
	if err != nil {
		return "", err
	}
	b.logger.Debug("query built", "dialect", b.dialect.Name(), "sql", sql, "params", params.Len())
	return sql, nil
}

// build compiles q without transformers; sub-queries come through here.
func (b *Builder) build(q nodes.Query, params *nodes.Params) (string, error) {
	params.Add(q.Bindings...)

	var clauses []string
	add := func(s string, err error) error {
		if err != nil {
			return err
		}
		if s != "" {
			clauses = append(clauses, s)
		}
		return nil
	}
	if err := add(b.BuildSelect(q.Columns, params, q.IsDistinct, q.Option)); err != nil {
		return "", err
	}
	if err := add(b.BuildFrom(q.Sources, params)); err != nil {
		return "", err
	}
	if err := add(b.BuildJoin(q.JoinClauses, params)); err != nil {
		return "", err
	}
	if err := add(b.BuildWhere(q.WhereCond, params)); err != nil {
		return "", err
	}
	if err := add(b.BuildGroupBy(q.GroupColumns, params)); err != nil {
		return "", err
	}
	if err := add(b.BuildHaving(q.HavingCond, params)); err != nil {
		return "", err
	}

	sql, err := b.BuildOrderByAndLimit(strings.Join(clauses, b.separator), q.Orders, q.LimitValue, q.OffsetValue, params)
	if err != nil {
		return "", err
	}

	union, err := b.BuildUnion(q.Unions, params)
	if err != nil {
		return "", err
	}
	if union != "" {
		sql = "(" + sql + ")" + b.separator + union
	}

	with, err := b.BuildWithQueries(q.CTEs, params)
	if err != nil {
		return "", err
	}
	if with != "" {
		sql = with + b.separator + sql
	}
	return sql, nil
}
