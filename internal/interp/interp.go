// Package interp implements the abstract machine (spec.md §4.5) that
// executes the tree-shaped internal/machine IR internal/lower produces.
//
// Grounded on the dispatch loop in Heliodex-coputer's litecode/vm/vm.go: a
// flat slice of register-indexed values threaded through one evaluation
// function, growing the slice only at call boundaries rather than on every
// scope entry. The one structural difference is that litecode's bytecode is
// a linear tape addressed by a program counter, while internal/machine is
// already a tree (CG produces expression-shaped IR, per spec.md §4.4's
// contract), so there is no opcode-dispatch switch over an instruction
// stream — eval recurses directly over the tree instead of stepping pc.
package interp

import (
	"github.com/mvsc-lang/mvsc/internal/machine"
	"github.com/mvsc-lang/mvsc/internal/runtime"
)

// Interp executes one machine.Program against a fixed set of primitive
// builtins (print/sqrt/uptime, spec.md §4.6).
type Interp struct {
	prog *machine.Program
	prim *runtime.Primitives
}

func New(prog *machine.Program, prim *runtime.Primitives) *Interp {
	return &Interp{prog: prog, prim: prim}
}

// Run evaluates the program's entry expression and returns its final value.
func (ip *Interp) Run() machine.Value {
	fr := make([]machine.Value, ip.prog.EntrySlots)
	return ip.eval(ip.prog.Entry, fr)
}

// ref is what an Inout parameter's frame slot holds: not a value, but a
// borrowed location in the caller's own frame (or further up the call
// chain, through any number of hops). evalAddr's SlotAddr case unwraps it
// transparently, so the rest of eval never has to know whether a given
// name denotes local storage or a borrowed one.
type ref struct {
	get func() machine.Value
	set func(machine.Value)
}

// eval lowers a machine.Node to its runtime value, applying the CG
// contract's "every rvalue is owned storage" rule wherever a value is
// read out of an addressable location (see AddrRead below) rather than
// freshly constructed.
func (ip *Interp) eval(n machine.Node, fr []machine.Value) machine.Value {
	switch n := n.(type) {
	case machine.LitInt:
		return n.Value
	case machine.LitFloat:
		return n.Value

	case machine.MakeArray:
		elems := make([]machine.Value, len(n.Elems))
		for i, e := range n.Elems {
			elems[i] = ip.eval(e, fr)
		}
		// StackAlloc (escape analysis's verdict, spec.md §4.3) is not
		// consulted here: a Go-GC-hosted tree walker has no caller-frame
		// lifetime to exploit the way a native backend would, and the
		// refcounted path below is already correct and cheap (one atomic
		// store) regardless of whether the array ever escapes. The flag
		// still survives end to end for a future native backend to use.
		return runtime.NewArray(elems, runtime.ArrayMetatype(n.ElemMeta))

	case machine.MakeStruct:
		fields := make([]machine.Value, len(n.Fields))
		for i, f := range n.Fields {
			fields[i] = ip.eval(f, fr)
		}
		return runtime.NewStruct(n.Layout, fields)

	case machine.MakeClosure:
		caps, meta := ip.buildCaptures(n.Captures, fr)
		return runtime.Closure{FuncName: n.FuncName, Captures: caps, CaptureMeta: meta}

	case machine.OperRef:
		return operValue{kind: n.Kind, operand: n.Operand}

	case machine.BinOp:
		lhs := ip.eval(n.Lhs, fr)
		rhs := ip.eval(n.Rhs, fr)
		return applyOper(n.Kind, n.Operand, lhs, rhs)

	case machine.Call:
		return ip.evalCall(n, fr)

	case machine.Cond:
		if ip.eval(n.Cond, fr).(int64) != 0 {
			return ip.eval(n.Succ, fr)
		}
		return ip.eval(n.Fail, fr)

	case machine.Cast:
		// Cast changes the static metatype attached to a value without
		// altering its representation (spec.md §4.1); nothing to do here.
		return ip.eval(n.Value, fr)

	case machine.Let:
		fr[n.Slot] = ip.eval(n.Init, fr)
		result := ip.eval(n.Body, fr)
		if n.Meta != nil && n.Meta.Drop != nil {
			n.Meta.Drop(fr[n.Slot])
		}
		return result

	case machine.LetFunc:
		caps, meta := ip.buildCaptures(n.Lit.Captures, fr)
		fr[n.Slot] = runtime.Closure{FuncName: n.Lit.FuncName, Captures: caps, CaptureMeta: meta}
		result := ip.eval(n.Body, fr)
		runtime.ClosureMetatype().Drop(fr[n.Slot])
		return result

	case machine.Assign:
		return ip.evalAssign(n, fr)

	case machine.AddrRead:
		a := ip.evalAddr(n.Addr, fr)
		v := a.get()
		if n.Meta != nil && n.Meta.Copy != nil {
			v = n.Meta.Copy(v)
		}
		return v

	case machine.InoutRef:
		// Only reachable if an &path expression is ever evaluated outside
		// Call argument position; evalCall reads InoutArgs directly and
		// never evaluates the matching Args[i] node.
		return ip.evalAddr(n.Target, fr).get()

	case machine.Materialize:
		return ip.eval(n.Value, fr)
	}
	panic("interp: unhandled node type")
}

// buildCaptures reads a MakeClosure/LetFunc's capture list out of the
// current frame, copying each through its metatype (spec.md §4.4: captures
// are lifted into an owned environment, not aliased into it).
func (ip *Interp) buildCaptures(caps []machine.CaptureSlot, fr []machine.Value) ([]machine.Value, []*machine.Metatype) {
	vals := make([]machine.Value, len(caps))
	metas := make([]*machine.Metatype, len(caps))
	for i, c := range caps {
		v := fr[c.Slot]
		if c.Meta != nil && c.Meta.Copy != nil {
			v = c.Meta.Copy(v)
		}
		vals[i] = v
		metas[i] = c.Meta
	}
	return vals, metas
}

func (ip *Interp) evalAssign(n machine.Assign, fr []machine.Value) machine.Value {
	if n.IsWildcard {
		v := ip.eval(n.Value, fr)
		if n.Meta != nil && n.Meta.Drop != nil {
			n.Meta.Drop(v)
		}
		return ip.eval(n.Body, fr)
	}

	target := ip.evalAddr(n.Target, fr)
	old := target.get()
	// spec.md §5's ordering guarantee: the rvalue is evaluated after the
	// lvalue's location is produced, and the old value is dropped before
	// the new one is installed.
	rv := ip.eval(n.Value, fr)
	if n.Meta != nil && n.Meta.Drop != nil {
		n.Meta.Drop(old)
	}
	target.set(rv)
	return ip.eval(n.Body, fr)
}
