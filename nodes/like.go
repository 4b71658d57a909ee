package nodes

import "github.com/sartor/db/dberr"

// Pattern operators. The OR variants combine several patterns with OR.
const (
	OpLike      = "LIKE"
	OpNotLike   = "NOT LIKE"
	OpOrLike    = "OR LIKE"
	OpOrNotLike = "OR NOT LIKE"
)

// LikeCondition matches column against one or more patterns.
//
// Patterns are wrapped in % and escaped with the dialect's replacements
// unless Escape overrides them. A non-nil empty Escape disables both
// escaping and the % wrapping, so the patterns are bound as given.
type LikeCondition struct {
	Column any
	Op     string
	Values any      // string, Node, or a slice of them
	Escape []string // old/new replacement pairs; nil uses the dialect defaults
}

// Like creates column LIKE %value%.
func Like(column, values any) *LikeCondition {
	return &LikeCondition{Column: column, Op: OpLike, Values: values}
}

// NotLike creates column NOT LIKE %value%.
func NotLike(column, values any) *LikeCondition {
	return &LikeCondition{Column: column, Op: OpNotLike, Values: values}
}

// OrLike creates column LIKE ... OR column LIKE ... for several patterns.
func OrLike(column, values any) *LikeCondition {
	return &LikeCondition{Column: column, Op: OpOrLike, Values: values}
}

// OrNotLike creates column NOT LIKE ... OR column NOT LIKE ....
func OrNotLike(column, values any) *LikeCondition {
	return &LikeCondition{Column: column, Op: OpOrNotLike, Values: values}
}

// WithEscape returns a copy using the given old/new replacement pairs.
func (n *LikeCondition) WithEscape(pairs ...string) *LikeCondition {
	c := *n
	c.Escape = append([]string{}, pairs...)
	return &c
}

// Raw returns a copy that binds the patterns verbatim.
func (n *LikeCondition) Raw() *LikeCondition {
	return n.WithEscape()
}

func (n *LikeCondition) Kind() Kind       { return KindLike }
func (n *LikeCondition) Operator() string { return n.Op }

// LikeFromArray builds a pattern condition from [column, values] with an
// optional third operand holding escape replacements as a map or as
// old/new pairs.
func LikeFromArray(operator string, operands []any) (Condition, error) {
	if len(operands) != 2 && len(operands) != 3 {
		return nil, dberr.InvalidArgument("condition", "Operator '%s' requires two operands.", operator)
	}
	if !isColumn(operands[0]) {
		return nil, dberr.InvalidArgument("condition", "Operator '%s' requires column to be string or Node.", operator)
	}
	c := &LikeCondition{Column: operands[0], Op: operator, Values: operands[1]}
	if len(operands) == 3 {
		switch esc := operands[2].(type) {
		case nil:
		case bool:
			if !esc {
				c.Escape = []string{}
			}
		case []string:
			c.Escape = append([]string{}, esc...)
		default:
			m, ok := ToMap(esc)
			if !ok {
				return nil, dberr.InvalidArgument("condition", "Operator '%s' requires escape replacements to be a mapping.", operator)
			}
			c.Escape = []string{}
			for _, k := range m.Keys() {
				v, _ := m.Get(k)
				s, _ := v.(string)
				c.Escape = append(c.Escape, k, s)
			}
		}
	}
	return c, nil
}
