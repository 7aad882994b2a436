package runtime

import "github.com/mvsc-lang/mvsc/internal/machine"

// AnyBox is the existential container backing the `Any` type: a value
// together with the witness metatype that knows how to copy/drop/equate
// it, mirroring mvs_Existential. The inline-vs-out-of-line storage split
// in the original (three-word inline buffer, heap allocation beyond that)
// is a native-codegen concern; hosted on Go's GC, a single boxed Value
// already gives the same semantics without the manual split.
type AnyBox struct {
	Value   machine.Value
	Witness *machine.Metatype
}

func (b AnyBox) copy() AnyBox {
	v := b.Value
	if b.Witness != nil && b.Witness.Copy != nil {
		v = b.Witness.Copy(v)
	}
	return AnyBox{Value: v, Witness: b.Witness}
}

func (b AnyBox) drop() {
	if b.Witness != nil && b.Witness.Drop != nil {
		b.Witness.Drop(b.Value)
	}
}

// Equal mirrors mvs_exist_equal: false outright for differing witnesses,
// otherwise delegates to the witness's own equality. Two Any values
// wrapping the same underlying type but constructed through different
// Cast sites still compare equal here, since Cast never changes the
// witness attached by the original producing expression (resolves the
// Cast-between-two-Any-witnesses open question: the witness travels with
// the value, unaffected by how many times it passed through `as Any`).
func (b AnyBox) Equal(o AnyBox) bool {
	if b.Witness != o.Witness {
		return false
	}
	if b.Witness != nil && b.Witness.Equal != nil {
		return b.Witness.Equal(b.Value, o.Value)
	}
	return b.Value == o.Value
}

// AnyMetatype is the single, stateless metatype for `Any` itself: copying
// or dropping an Any defers to whatever witness it currently holds.
func AnyMetatype() *machine.Metatype {
	m := &machine.Metatype{Name: "Any", Size: 32, Trivial: false}
	m.Copy = func(v machine.Value) machine.Value { return v.(AnyBox).copy() }
	m.Drop = func(v machine.Value) { v.(AnyBox).drop() }
	m.Equal = func(a, b machine.Value) bool { return a.(AnyBox).Equal(b.(AnyBox)) }
	return m
}
