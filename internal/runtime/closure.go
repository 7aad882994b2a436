package runtime

import "github.com/mvsc-lang/mvsc/internal/machine"

// Closure bundles a function's code with its captured environment and
// that environment's own lifecycle operations, per spec.md §9's "Closures"
// design note: two closure instances of the same function type can have
// different environment layouts, so copy/drop/equal travel with the
// instance (derived from CaptureMeta) rather than being looked up from a
// single per-function-type metatype.
type Closure struct {
	FuncName string
	// Captures holds one entry per name in the defining Func's
	// CaptureNames, in the same order, so invocation can zip them
	// positionally into the callee's frame without a map lookup.
	Captures    []machine.Value
	CaptureMeta []*machine.Metatype
}

func (c Closure) copy() Closure {
	next := make([]machine.Value, len(c.Captures))
	for i, v := range c.Captures {
		if m := c.CaptureMeta[i]; m != nil && m.Copy != nil {
			next[i] = m.Copy(v)
		} else {
			next[i] = v
		}
	}
	return Closure{FuncName: c.FuncName, Captures: next, CaptureMeta: c.CaptureMeta}
}

func (c Closure) drop() {
	for i, v := range c.Captures {
		if m := c.CaptureMeta[i]; m != nil && m.Drop != nil {
			m.Drop(v)
		}
	}
}

// Equal implements spec.md §8's closure-equality example: f == g is true
// after `g = f` because both reference the same function and carry
// equal (here, empty) captured environments.
func (c Closure) Equal(o Closure) bool {
	if c.FuncName != o.FuncName || len(c.Captures) != len(o.Captures) {
		return false
	}
	for i, v := range c.Captures {
		m := c.CaptureMeta[i]
		if m != nil && m.Equal != nil {
			if !m.Equal(v, o.Captures[i]) {
				return false
			}
		} else if v != o.Captures[i] {
			return false
		}
	}
	return true
}

// ClosureMetatype builds the (function-type-level) metatype used for
// closures of one FuncType; its Copy/Drop/Equal delegate to the
// instance-specific copy()/drop()/Equal above. A function-typed value that
// is not a Closure (an operator used as a value) owns nothing: Copy returns
// it unchanged, Drop ignores it, and Equal compares it with ==.
func ClosureMetatype() *machine.Metatype {
	m := &machine.Metatype{Size: 8, Trivial: false}
	m.Copy = func(v machine.Value) machine.Value {
		if c, ok := v.(Closure); ok {
			return c.copy()
		}
		return v
	}
	m.Drop = func(v machine.Value) {
		if c, ok := v.(Closure); ok {
			c.drop()
		}
	}
	m.Equal = func(a, b machine.Value) bool {
		ca, okA := a.(Closure)
		cb, okB := b.(Closure)
		if okA && okB {
			return ca.Equal(cb)
		}
		return !okA && !okB && a == b
	}
	return m
}
