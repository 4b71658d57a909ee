package nodes

import "strconv"

// ParamPrefix is the prefix of generated placeholder names.
const ParamPrefix = ":qp"

// Param is a single named bind parameter.
type Param struct {
	Name  string
	Value any
}

// Named returns a Param binding value to name.
func Named(name string, value any) Param {
	return Param{Name: name, Value: value}
}

// Params is an ordered placeholder → value mapping. Insertion order is
// the order in which placeholders first occur in the generated SQL.
// The zero value is ready to use; a nil *Params reads as empty.
type Params struct {
	names  []string
	values map[string]any
}

// NewParams creates a bag pre-filled with ps in order.
func NewParams(ps ...Param) *Params {
	p := &Params{}
	p.Add(ps...)
	return p
}

// Len returns the number of bound parameters.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.names)
}

// Get returns the value bound to name.
func (p *Params) Get(name string) (any, bool) {
	if p == nil || p.values == nil {
		return nil, false
	}
	v, ok := p.values[name]
	return v, ok
}

// Has reports whether name is bound.
func (p *Params) Has(name string) bool {
	_, ok := p.Get(name)
	return ok
}

// Set binds value to name. An existing name keeps its position and
// takes the new value.
func (p *Params) Set(name string, value any) {
	if p.values == nil {
		p.values = make(map[string]any)
	}
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = value
}

// Add sets every param in order.
func (p *Params) Add(ps ...Param) {
	for _, x := range ps {
		p.Set(x.Name, x.Value)
	}
}

// Merge copies all of other's params into p, in other's order.
func (p *Params) Merge(other *Params) {
	if other == nil {
		return
	}
	for _, name := range other.names {
		p.Set(name, other.values[name])
	}
}

// Bind stores value under a fresh placeholder name and returns that name.
// The name is ParamPrefix followed by the current bag size; when a caller
// already used that name a _N suffix is appended until it is unique.
func (p *Params) Bind(value any) string {
	base := ParamPrefix + strconv.Itoa(p.Len())
	name := base
	for i := 0; p.Has(name); i++ {
		name = base + "_" + strconv.Itoa(i)
	}
	p.Set(name, value)
	return name
}

// Names returns the parameter names in insertion order.
func (p *Params) Names() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.names...)
}

// All returns the parameters in insertion order.
func (p *Params) All() []Param {
	if p == nil {
		return nil
	}
	out := make([]Param, len(p.names))
	for i, name := range p.names {
		out[i] = Param{Name: name, Value: p.values[name]}
	}
	return out
}

// Map returns an unordered copy of the bag.
func (p *Params) Map() map[string]any {
	out := make(map[string]any, p.Len())
	if p == nil {
		return out
	}
	for _, name := range p.names {
		out[name] = p.values[name]
	}
	return out
}

// Clone returns an independent copy of the bag.
func (p *Params) Clone() *Params {
	c := &Params{}
	c.Merge(p)
	return c
}
