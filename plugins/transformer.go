// Package plugins defines the Transformer interface for query middleware.
package plugins

import "github.com/sartor/db/nodes"

// Transformer rewrites a query before it is compiled. Builders apply
// their transformers to top-level queries only; sub-queries are
// compiled as given.
type Transformer interface {
	TransformQuery(q nodes.Query) (nodes.Query, error)
}

// TransformerFunc adapts a plain function to Transformer.
type TransformerFunc func(q nodes.Query) (nodes.Query, error)

func (f TransformerFunc) TransformQuery(q nodes.Query) (nodes.Query, error) { return f(q) }

// BaseTransformer returns queries unchanged; plugins embed it.
type BaseTransformer struct{}

func (BaseTransformer) TransformQuery(q nodes.Query) (nodes.Query, error) {
	return q, nil
}

// Chain applies ts in order and stops at the first error.
func Chain(q nodes.Query, ts ...Transformer) (nodes.Query, error) {
	for _, t := range ts {
		var err error
		if q, err = t.TransformQuery(q); err != nil {
			return nodes.Query{}, err
		}
	}
	return q, nil
}
