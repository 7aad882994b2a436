package interp

import (
	"github.com/mvsc-lang/mvsc/internal/machine"
	"github.com/mvsc-lang/mvsc/internal/runtime"
)

// evalCall implements spec.md §5's ordering guarantee for Call: arguments
// are evaluated left-to-right, before dispatch; an Inout argument's slot is
// never evaluated by value at all — it is bound to a borrowed ref into the
// caller's own frame instead (see ref in interp.go).
func (ip *Interp) evalCall(n machine.Call, fr []machine.Value) machine.Value {
	argVals := make([]machine.Value, len(n.Args))
	for i, a := range n.Args {
		if i < len(n.InoutArgs) && n.InoutArgs[i] != nil {
			continue
		}
		argVals[i] = ip.eval(a, fr)
	}

	var fn *machine.Func
	var captures []machine.Value
	var capMeta []*machine.Metatype

	switch callee := n.Callee.(type) {
	case machine.GlobalFuncRef:
		if v, ok := ip.invokeBuiltin(callee.Name, argVals); ok {
			return v
		}
		fn = ip.prog.Funcs[callee.Name]

	default:
		v := ip.eval(n.Callee, fr)
		if ov, ok := v.(operValue); ok {
			return applyOper(ov.kind, ov.operand, argVals[0], argVals[1])
		}
		cv := v.(runtime.Closure)
		fn = ip.prog.Funcs[cv.FuncName]
		captures, capMeta = cv.Captures, cv.CaptureMeta
	}

	callFr := make([]machine.Value, fn.NumSlots)
	for i, p := range fn.Params {
		if p.Inout {
			callFr[p.Slot] = ip.refFor(n.InoutArgs[i], fr)
		} else {
			callFr[p.Slot] = argVals[i]
		}
	}
	for i := range fn.CaptureNames {
		v := captures[i]
		if m := capMeta[i]; m != nil && m.Copy != nil {
			// A closure is invoked possibly many times; each invocation's
			// frame gets its own copy of the environment so one call's
			// mutation-through-Var-capture... — except captures can never
			// be Var (Func demotes every outer binding to Let before
			// checking its body), so in practice this Copy only matters
			// for non-trivial Let captures that must not alias the
			// closure's own stored environment across reentrant calls.
			v = m.Copy(v)
		}
		callFr[len(fn.Params)+i] = v
	}

	result := ip.eval(fn.Body, callFr)

	for _, p := range fn.Params {
		if !p.Inout && p.Meta != nil && p.Meta.Drop != nil {
			p.Meta.Drop(callFr[p.Slot])
		}
	}
	for i := range fn.CaptureNames {
		if m := capMeta[i]; m != nil && m.Drop != nil {
			m.Drop(callFr[len(fn.Params)+i])
		}
	}
	return result
}

// refFor resolves n (evaluated in the caller's frame) into a borrowed
// reference for binding to a callee's Inout parameter slot.
func (ip *Interp) refFor(n machine.AddrNode, fr []machine.Value) ref {
	a := ip.evalAddr(n, fr)
	return ref{get: a.get, set: a.set}
}

// invokeBuiltin dispatches the optional built-ins spec.md §4.1 names
// (uptime, sqrt); they are never registered in Program.Funcs since they
// have no machine.Func body for CG to lower.
func (ip *Interp) invokeBuiltin(name string, args []machine.Value) (machine.Value, bool) {
	switch name {
	case "uptime":
		return ip.prim.UptimeNanoseconds(), true
	case "sqrt":
		return ip.prim.Sqrt(args[0].(float64)), true
	}
	return nil, false
}
