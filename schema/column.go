package schema

// Column is the metadata of one table column.
type Column struct {
	Name          string
	Type          Type
	AppType       AppType
	DbType        string
	Size          int
	Scale         int
	AllowNull     bool
	Default       any
	PrimaryKey    bool
	AutoIncrement bool
	Unsigned      bool
	Comment       string
	EnumValues    []string
	Extra         string
}

// Option adjusts a column created by a Factory.
type Option func(*Column)

// WithName sets the column name.
func WithName(name string) Option { return func(c *Column) { c.Name = name } }

// WithSize sets the declared length or precision.
func WithSize(size int) Option { return func(c *Column) { c.Size = size } }

// WithScale sets the number of decimal digits.
func WithScale(scale int) Option { return func(c *Column) { c.Scale = scale } }

// WithAllowNull marks the column nullable or not.
func WithAllowNull(allow bool) Option { return func(c *Column) { c.AllowNull = allow } }

// WithDefault sets the default value.
func WithDefault(v any) Option { return func(c *Column) { c.Default = v } }

// WithPrimaryKey marks the column as (part of) the primary key.
func WithPrimaryKey(pk bool) Option { return func(c *Column) { c.PrimaryKey = pk } }

// WithAutoIncrement marks the column as auto-incrementing.
func WithAutoIncrement(ai bool) Option { return func(c *Column) { c.AutoIncrement = ai } }

// WithUnsigned marks a numeric column unsigned.
func WithUnsigned(u bool) Option { return func(c *Column) { c.Unsigned = u } }

// WithComment sets the column comment.
func WithComment(comment string) Option { return func(c *Column) { c.Comment = comment } }

// WithDbType overrides the physical type name.
func WithDbType(dbType string) Option { return func(c *Column) { c.DbType = dbType } }

// WithAppType overrides the application type.
func WithAppType(t AppType) Option { return func(c *Column) { c.AppType = t } }

// WithEnumValues sets the allowed values of an enum column.
func WithEnumValues(values ...string) Option {
	return func(c *Column) { c.EnumValues = append([]string(nil), values...) }
}

// WithExtra sets trailing definition text such as "on update CURRENT_TIMESTAMP".
func WithExtra(extra string) Option { return func(c *Column) { c.Extra = extra } }

func newColumn(t Type, opts []Option) *Column {
	c := &Column{Type: t, AppType: t.AppType(), AllowNull: true}
	for _, o := range opts {
		o(c)
	}
	return c
}
