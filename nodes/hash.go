package nodes

// HashCondition is the column → value shorthand: every entry is an
// equality, list values become IN, nil becomes IS NULL; entries are
// joined with AND in insertion order.
type HashCondition struct {
	Hash *Map
}

// Hash creates a hash condition from a *Map or map[string]any.
// Anything else yields an empty condition.
func Hash(hash any) *HashCondition {
	m, _ := ToMap(hash)
	return &HashCondition{Hash: m}
}

func (n *HashCondition) Kind() Kind       { return KindHash }
func (n *HashCondition) Operator() string { return OpAnd }
