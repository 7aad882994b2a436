package runtime

import "github.com/mvsc-lang/mvsc/internal/machine"

// StructVal is a fixed-shape record value. Copying one (StructMetatype's
// Copy) always allocates a fresh Fields slice — even when every field is
// trivial — so that two struct variables produced by `var q = p` never
// alias the same backing array; any Array-typed field is retained rather
// than element-wise cloned, which is what actually gives struct copies
// their O(1)-ish cost and COW sharing.
type StructVal struct {
	Layout *machine.StructLayout
	Fields []machine.Value
}

// NewStruct builds a struct value from positionally-ordered field values.
func NewStruct(layout *machine.StructLayout, fields []machine.Value) StructVal {
	return StructVal{Layout: layout, Fields: fields}
}

func (s StructVal) Get(name string) machine.Value {
	return s.Fields[s.Layout.IndexOf(name)]
}

// Set returns a struct with field name holding v, backed by a freshly
// allocated Fields slice. It never writes through s.Fields in place: a
// StructVal read out of an array element (runtime.Array.Get) shares that
// element's backing array until the element's own Uniq runs, so mutating
// s.Fields directly would corrupt storage still aliased by another Array
// handle. Returning a new value instead — mirroring Array.Set's own
// uniquify-then-write contract — lets the caller feed it back through
// whatever addressed the struct in the first place.
func (s StructVal) Set(name string, v machine.Value) StructVal {
	next := make([]machine.Value, len(s.Fields))
	copy(next, s.Fields)
	next[s.Layout.IndexOf(name)] = v
	return StructVal{Layout: s.Layout, Fields: next}
}

func (s StructVal) copyFields() []machine.Value {
	next := make([]machine.Value, len(s.Fields))
	for i, f := range s.Layout.Fields {
		if f.Meta != nil && f.Meta.Copy != nil {
			next[i] = f.Meta.Copy(s.Fields[i])
		} else {
			next[i] = s.Fields[i]
		}
	}
	return next
}

// StructMetatype builds the metatype for a struct type from its layout.
// allTrivial should be precomputed by the caller (internal/types.IsTrivial)
// so the emitter can still special-case the common scalar-only-fields case
// elsewhere without recomputing it here.
func StructMetatype(layout *machine.StructLayout, allTrivial bool) *machine.Metatype {
	size := 0
	for _, f := range layout.Fields {
		size += f.Meta.Size
	}

	m := &machine.Metatype{
		Name:         layout.Name,
		Size:         size,
		Trivial:      allTrivial,
		StructLayout: layout,
	}
	m.Copy = func(v machine.Value) machine.Value {
		s := v.(StructVal)
		return StructVal{Layout: s.Layout, Fields: s.copyFields()}
	}
	m.Drop = func(v machine.Value) {
		s := v.(StructVal)
		for i, f := range layout.Fields {
			if f.Meta != nil && f.Meta.Drop != nil {
				f.Meta.Drop(s.Fields[i])
			}
		}
	}
	m.Equal = func(a, b machine.Value) bool {
		sa, sb := a.(StructVal), b.(StructVal)
		for i, f := range layout.Fields {
			if f.Meta != nil && f.Meta.Equal != nil {
				if !f.Meta.Equal(sa.Fields[i], sb.Fields[i]) {
					return false
				}
			} else if sa.Fields[i] != sb.Fields[i] {
				return false
			}
		}
		return true
	}
	return m
}
