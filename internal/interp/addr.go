package interp

import (
	"github.com/mvsc-lang/mvsc/internal/machine"
	"github.com/mvsc-lang/mvsc/internal/runtime"
)

// addr is a resolved machine.AddrNode: a location that can be read without
// disturbing it (get) or overwritten (set). Unlike AddrRead's value-level
// read, get never copies through a metatype — that is AddrRead's job, and
// Assign needs the raw stored value (to pass to Drop) rather than a copy.
type addr struct {
	get func() machine.Value
	set func(machine.Value)
}

func (ip *Interp) evalAddr(n machine.AddrNode, fr []machine.Value) addr {
	switch n := n.(type) {
	case machine.SlotAddr:
		if r, ok := fr[n.Slot].(ref); ok {
			return addr{get: r.get, set: r.set}
		}
		slot := n.Slot
		return addr{
			get: func() machine.Value { return fr[slot] },
			set: func(v machine.Value) { fr[slot] = v },
		}

	case machine.FieldAddr:
		base := ip.evalAddr(n.Base, fr)
		name := n.Name
		return addr{
			get: func() machine.Value { return base.get().(runtime.StructVal).Get(name) },
			// StructVal.Set returns a new value rather than mutating
			// Fields in place, so this must route through base.set the
			// same way ElemAddr does below: when base is itself an
			// ElemAddr, base.set forces the enclosing array's Uniq to
			// run before the mutated struct is written back, so a
			// struct nested inside a still-shared array element never
			// corrupts the sharing handle's storage.
			set: func(v machine.Value) { base.set(base.get().(runtime.StructVal).Set(name, v)) },
		}

	case machine.ElemAddr:
		base := ip.evalAddr(n.Base, fr)
		idx := ip.eval(n.Index, fr).(int64)
		return addr{
			get: func() machine.Value { return base.get().(runtime.Array).Get(idx) },
			// Array.Set uniquifies the storage before writing (spec.md
			// §4.4's copy-on-write discipline) and returns a possibly new
			// handle, which must be written back through base in case the
			// old handle was shared and Set had to clone it.
			set: func(v machine.Value) { base.set(base.get().(runtime.Array).Set(idx, v)) },
		}

	case machine.Materialize:
		// The CG contract's "origin" case: Value is rooted in an rvalue,
		// not a name, so there is no caller-owned storage to address —
		// evaluate it once into a Go-local temporary and address into
		// that instead. The temporary is never explicitly dropped: since
		// nothing else can alias a materialized value before this point,
		// the only cost of not dropping it is a refcount that reads one
		// higher than a fully alias-tracking backend would leave it,
		// which can only ever cause a spurious extra Uniq clone later —
		// never a correctness bug. Full alias-avoidance optimization is
		// explicitly permitted-but-optional per spec.md §4.4.
		tmp := ip.eval(n.Value, fr)
		return addr{
			get: func() machine.Value { return tmp },
			set: func(v machine.Value) { tmp = v },
		}
	}
	panic("interp: unhandled addr node type")
}
