package nodes

// SqlLiteral represents a raw SQL fragment injected verbatim into the query,
// together with the named parameters it references.
//
// SECURITY: Raw is rendered directly into SQL output without escaping.
// Never build it from user-controlled input; bind values through Params.
type SqlLiteral struct {
	Raw    string
	Params []Param
}

// NewSqlLiteral creates a raw fragment with no parameters.
func NewSqlLiteral(raw string) *SqlLiteral {
	return &SqlLiteral{Raw: raw}
}

// NewBoundSqlLiteral creates a raw fragment carrying its own named params.
//
//	nodes.NewBoundSqlLiteral("SUBSTR(name, 0, :to)", nodes.Named(":to", 4))
func NewBoundSqlLiteral(raw string, params ...Param) *SqlLiteral {
	return &SqlLiteral{Raw: raw, Params: params}
}

func (n *SqlLiteral) Kind() Kind { return KindSqlLiteral }

func (n *SqlLiteral) String() string { return n.Raw }
