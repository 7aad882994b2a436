// Package lower implements CG (spec.md §4.4): it walks a checked TProgram
// (internal/check) and produces the tree-shaped internal/machine IR that
// internal/interp executes and internal/emit prints.
//
// Per spec.md §9's design notes, every rvalue CG produces is owned storage
// (a fresh machine.Node) and every lvalue is an explicit machine.AddrNode —
// the distinction is load-bearing in the type system here, not a runtime
// flag, so a read or write through the wrong kind of node is a
// compile-time (Go) type error in this package rather than a memory bug in
// the generated program.
package lower

import (
	"fmt"

	"github.com/mvsc-lang/mvsc/internal/ast"
	"github.com/mvsc-lang/mvsc/internal/check"
	"github.com/mvsc-lang/mvsc/internal/diag"
	"github.com/mvsc-lang/mvsc/internal/machine"
	"github.com/mvsc-lang/mvsc/internal/types"
)

// Options configures a single lowering pass (spec.md §6's
// --max-stack-array-size flag feeds MaxStackArraySize).
type Options struct {
	MaxStackArraySize int
}

type lowerer struct {
	sink diag.Sink
	opts Options

	metaCache   map[string]*machine.Metatype
	prog        *machine.Program
	funcCounter int
}

// Lower produces the Program CG's contract describes from a fully checked
// TProgram. sink receives any codegen-level diagnostics lowering itself can
// raise (today, exactly one: CodeUnsupportedCapture).
func Lower(tp check.TProgram, sink diag.Sink, opts Options) *machine.Program {
	if opts.MaxStackArraySize <= 0 {
		opts.MaxStackArraySize = check.MaxStackArraySize
	}
	l := &lowerer{
		sink:      sink,
		opts:      opts,
		metaCache: map[string]*machine.Metatype{},
		prog:      &machine.Program{Metatypes: map[string]*machine.Metatype{}, Funcs: map[string]*machine.Func{}},
	}

	for _, td := range tp.Types {
		l.metaFor(td.Type)
	}

	counter := 0
	entryFrame := newFrame(&counter)
	l.prog.Entry = l.lowerExpr(tp.Entry, entryFrame)
	l.prog.EntrySlots = counter
	l.prog.Metatypes = l.metaCache
	return l.prog
}

func (l *lowerer) lowerExpr(e check.TExpr, fr *frame) machine.Node {
	switch e.Kind {
	case check.TKInt:
		return machine.LitInt{Value: e.IntVal}

	case check.TKFloat:
		return machine.LitFloat{Value: e.FloatVal}

	case check.TKArray:
		return l.lowerArray(e, fr)

	case check.TKStruct:
		return l.lowerStruct(e, fr)

	case check.TKFunc:
		return l.lowerFuncLit(e, fr)

	case check.TKOper:
		return l.lowerOper(e)

	case check.TKCall:
		return l.lowerCall(e, fr)

	case check.TKInfix:
		return l.lowerInfix(e, fr)

	case check.TKInout:
		return machine.InoutRef{Target: l.lowerAddr(*e.Path, fr)}

	case check.TKBinding:
		return l.lowerBinding(e, fr)

	case check.TKFuncBinding:
		return l.lowerFuncBinding(e, fr)

	case check.TKAssign:
		return l.lowerAssign(e, fr)

	case check.TKCond:
		return machine.Cond{
			Cond: l.lowerExpr(*e.Cond, fr),
			Succ: l.lowerExpr(*e.Succ, fr),
			Fail: l.lowerExpr(*e.Fail, fr),
		}

	case check.TKCast:
		return machine.Cast{Value: l.lowerExpr(*e.Lhs, fr), Target: l.metaFor(e.CastSig)}

	case check.TKNamePath, check.TKPropPath, check.TKElemPath:
		return machine.AddrRead{Addr: l.lowerAddr(e, fr), Meta: l.metaFor(e.Type)}

	case check.TKError:
		return machine.LitInt{}
	}
	return machine.LitInt{}
}

// lowerAddr lowers a Path TExpr to its address. Per the CG contract, a
// path's root need not be a name — PropPath/ElemPath accept any base
// expression syntactically — so a non-addressable base (e.g. the struct
// literal in `P(1, 2).f`) is lowered as an ordinary rvalue and wrapped in
// Materialize rather than recursively addressed.
func (l *lowerer) lowerAddr(e check.TExpr, fr *frame) machine.AddrNode {
	switch e.Kind {
	case check.TKNamePath:
		if slot, ok := fr.lookup(e.Name); ok {
			return machine.SlotAddr{Slot: slot, Name: e.Name}
		}
		// unreachable for well-typed input: every name that resolves in Γ
		// also has a frame slot allocated for it by the time it is used.
		return machine.SlotAddr{Slot: -1, Name: e.Name}

	case check.TKPropPath:
		base := l.addrOfBase(*e.Base, fr)
		idx := -1
		if st, ok := e.Base.Type.(types.StructType); ok {
			idx = l.fieldIndex(st, e.Name)
		}
		return machine.FieldAddr{Base: base, Index: idx, Name: e.Name}

	case check.TKElemPath:
		base := l.addrOfBase(*e.Base, fr)
		return machine.ElemAddr{Base: base, Index: l.lowerExpr(*e.Index, fr)}
	}
	return machine.SlotAddr{Slot: -1}
}

func (l *lowerer) addrOfBase(e check.TExpr, fr *frame) machine.AddrNode {
	switch e.Kind {
	case check.TKNamePath, check.TKPropPath, check.TKElemPath:
		return l.lowerAddr(e, fr)
	}
	return machine.Materialize{Value: l.lowerExpr(e, fr)}
}

func (l *lowerer) lowerArray(e check.TExpr, fr *frame) machine.Node {
	arr := e.Type.(types.ArrayType)
	elems := make([]machine.Node, len(e.Elems))
	for i, el := range e.Elems {
		elems[i] = l.lowerExpr(el, fr)
	}
	return machine.MakeArray{Elems: elems, ElemMeta: l.metaFor(arr.Elem)}
}

func (l *lowerer) lowerStruct(e check.TExpr, fr *frame) machine.Node {
	m := l.metaFor(e.Type)
	fields := make([]machine.Node, len(e.Args))
	for i, a := range e.Args {
		fields[i] = l.lowerExpr(a, fr)
	}
	return machine.MakeStruct{Layout: m.StructLayout, Fields: fields}
}

func (l *lowerer) lowerOper(e check.TExpr) machine.Node {
	ft := e.Type.(types.FuncType)
	return machine.OperRef{Kind: operKind(e.OperKind), Operand: l.metaFor(ft.Params[0]), Result: l.metaFor(ft.Output)}
}

func (l *lowerer) lowerInfix(e check.TExpr, fr *frame) machine.Node {
	return machine.BinOp{
		Kind:    operKind(e.OperKind),
		Lhs:     l.lowerExpr(*e.Lhs, fr),
		Rhs:     l.lowerExpr(*e.Rhs, fr),
		Operand: l.metaFor(e.Lhs.Type),
	}
}

func operKind(k ast.OperKind) machine.OperKind {
	switch k {
	case ast.OpEq:
		return machine.OpEq
	case ast.OpNe:
		return machine.OpNe
	case ast.OpLt:
		return machine.OpLt
	case ast.OpLe:
		return machine.OpLe
	case ast.OpGe:
		return machine.OpGe
	case ast.OpGt:
		return machine.OpGt
	case ast.OpAdd:
		return machine.OpAdd
	case ast.OpSub:
		return machine.OpSub
	case ast.OpMul:
		return machine.OpMul
	case ast.OpDiv:
		return machine.OpDiv
	}
	return machine.OpEq
}

// lowerCall implements the CG contract's dispatch rule: a callee that
// resolves lexically to a direct-dispatch target (see lowerFuncBinding)
// becomes a GlobalFuncRef; every other callee is evaluated to a closure
// value and dispatched indirectly.
func (l *lowerer) lowerCall(e check.TExpr, fr *frame) machine.Node {
	var callee machine.Node
	if e.Callee.Kind == check.TKNamePath {
		if fn, _, isDirect, ok := fr.resolveCallee(e.Callee.Name); ok && isDirect {
			callee = machine.GlobalFuncRef{Name: fn}
		} else if !ok && isBuiltinFunc(e.Callee.Name) {
			// uptime/sqrt (spec.md §4.1's optional built-ins) are never
			// bound to a frame slot — they are resolved directly by name,
			// the same as any other direct-dispatch target, unless a
			// program binds its own name over them first (then ok is true
			// above and this branch is never reached).
			callee = machine.GlobalFuncRef{Name: e.Callee.Name}
		}
	}
	if callee == nil {
		callee = l.lowerExpr(*e.Callee, fr)
	}

	args := make([]machine.Node, len(e.Args))
	anyInout := false
	for i, a := range e.Args {
		args[i] = l.lowerExpr(a, fr)
		if a.Kind == check.TKInout {
			anyInout = true
		}
	}
	var inoutArgs []machine.AddrNode
	if anyInout {
		inoutArgs = make([]machine.AddrNode, len(e.Args))
		for i, a := range e.Args {
			if a.Kind == check.TKInout {
				inoutArgs[i] = l.lowerAddr(*a.Path, fr)
			}
		}
	}
	return machine.Call{Callee: callee, Args: args, InoutArgs: inoutArgs}
}

// lowerFuncLit lowers an anonymous function literal: lift it to a fresh
// global Func and build the closure bundling its captures at the use site
// (spec.md §4.4's Func-literal row).
func (l *lowerer) lowerFuncLit(e check.TExpr, fr *frame) machine.Node {
	lit := e.FuncLit
	name := fmt.Sprintf("anon%d", l.funcCounter)
	l.funcCounter++

	l.prog.Funcs[name] = l.buildFunc(lit, name, lit.Captures, "", "")
	return machine.MakeClosure{FuncName: name, Captures: l.captureSlots(lit.Captures, fr)}
}

// lowerFuncBinding resolves spec.md §4.4's "FuncBinding: if literal has no
// local captures, emit as global function ... otherwise TBD in §9" rule.
//
// Capture analysis reports a recursive FuncBinding's own name as one of
// its literal's free names (it is visible inside its own body), so the
// literal's Captures list always contains a "self capture" whenever the
// body actually recurses. internal/lower treats that self capture
// specially rather than as ordinary bundled state:
//
//   - If self-reference is the *only* capture, the literal needs no
//     environment at all: it is emitted as a global Func taking zero
//     captures, and every call to the bound name — recursive or not — is
//     rewritten to a direct GlobalFuncRef. This is the common case
//     (every recursive example in spec.md §8) and the one the lowering
//     table names explicitly.
//   - If the literal also captures other outer bindings, a genuine
//     self-referential closure would be needed (the closure's own
//     Captures would have to include a copy of itself) — spec.md §9
//     flags exactly this shape ("nested closures that capture
//     already-captured names") as unresolved in the original and leaves
//     the choice to reject or to implement proper multi-level closures.
//     This implementation rejects it with CodeUnsupportedCapture rather
//     than guess a multi-level-closure representation, and degrades to
//     the zero-capture lowering so the rest of the program still lowers
//     cleanly for further diagnostics.
//
// A slot is always allocated for the bound name regardless, so it remains
// usable as an ordinary first-class Func value outside of call position.
func (l *lowerer) lowerFuncBinding(e check.TExpr, fr *frame) machine.Node {
	lit := e.FuncLit
	selfCaptured := false
	nonSelf := make([]check.Capture, 0, len(lit.Captures))
	for _, c := range lit.Captures {
		if c.Name == e.Name {
			selfCaptured = true
			continue
		}
		nonSelf = append(nonSelf, c)
	}
	if selfCaptured && len(nonSelf) > 0 {
		diag.Errorf(l.sink, diag.CodeUnsupportedCapture, lit.Span,
			"recursive function %q may not capture outer bindings other than itself (captures: %s); only pure self-recursion is supported",
			e.Name, captureNames(nonSelf))
		nonSelf = nonSelf[:0]
	}

	direct := selfCaptured && len(nonSelf) == 0
	funcName := fmt.Sprintf("%s$%d", e.Name, l.funcCounter)
	l.funcCounter++

	selfName, selfTarget := "", ""
	if direct {
		selfName, selfTarget = e.Name, funcName
	}
	l.prog.Funcs[funcName] = l.buildFunc(lit, funcName, nonSelf, selfName, selfTarget)

	caps := l.captureSlots(nonSelf, fr)

	bodyFr := fr.child()
	slot := bodyFr.alloc(e.Name)
	if direct {
		bodyFr.markDirect(e.Name, funcName)
	}
	body := l.lowerExpr(*e.Body, bodyFr)

	return machine.LetFunc{Slot: slot, Lit: machine.MakeClosure{FuncName: funcName, Captures: caps}, Body: body}
}

// isBuiltinFunc reports whether name is one of spec.md §4.1's optional
// built-ins, resolved by internal/interp directly rather than through
// Program.Funcs (see internal/interp's handling of GlobalFuncRef).
func isBuiltinFunc(name string) bool {
	return name == "uptime" || name == "sqrt"
}

func captureNames(caps []check.Capture) string {
	s := ""
	for i, c := range caps {
		if i > 0 {
			s += ", "
		}
		s += c.Name
	}
	return s
}

// buildFunc lowers a checked function literal into a global machine.Func.
// captures gives the (already self-filtered) list of free names the
// generated Func receives as trailing frame slots; when selfName is
// non-empty, the literal's own body resolves that name to direct dispatch
// against selfTarget rather than to a frame slot.
func (l *lowerer) buildFunc(lit *check.TFunc, name string, captures []check.Capture, selfName, selfTarget string) *machine.Func {
	counter := 0
	fr := newFrame(&counter)
	if selfName != "" {
		fr.markDirect(selfName, selfTarget)
	}

	params := make([]machine.Param, len(lit.Params))
	for i, p := range lit.Params {
		slot := fr.alloc(p.Name)
		if io, ok := p.Type.(types.InoutType); ok {
			params[i] = machine.Param{Slot: slot, Name: p.Name, Meta: l.metaFor(io.Base), Inout: true}
		} else {
			params[i] = machine.Param{Slot: slot, Name: p.Name, Meta: l.metaFor(p.Type)}
		}
	}

	capNames := make([]string, len(captures))
	for i, c := range captures {
		fr.alloc(c.Name)
		capNames[i] = c.Name
	}

	body := l.lowerExpr(lit.Body, fr)
	return &machine.Func{
		Name:         name,
		Params:       params,
		CaptureNames: capNames,
		NumSlots:     counter,
		Output:       l.metaFor(lit.Output),
		Body:         body,
	}
}

func (l *lowerer) captureSlots(caps []check.Capture, fr *frame) []machine.CaptureSlot {
	out := make([]machine.CaptureSlot, len(caps))
	for i, c := range caps {
		slot, _ := fr.lookup(c.Name)
		out[i] = machine.CaptureSlot{Name: c.Name, Slot: slot, Meta: l.metaFor(c.Type)}
	}
	return out
}

// lowerBinding implements spec.md §4.4's Binding row, including its named
// special case (a binding whose body is just its own name lowers to the
// initializer directly) and escape analysis's stack-allocation hint for
// small array literals (§4.3).
func (l *lowerer) lowerBinding(e check.TExpr, fr *frame) machine.Node {
	var initNode machine.Node
	if e.Init != nil {
		initNode = l.lowerExpr(*e.Init, fr)
		if ma, ok := initNode.(machine.MakeArray); ok &&
			check.IsSmallArrayLiteral(*e.Init, l.opts.MaxStackArraySize) &&
			!check.Escapes(e.Decl.Name, *e.Body) {
			ma.StackAlloc = true
			initNode = ma
		}
	} else {
		initNode = l.zeroValue(e.Decl.Type)
	}

	if e.Body.Kind == check.TKNamePath && e.Body.Name == e.Decl.Name {
		return initNode
	}

	child := fr.child()
	slot := child.alloc(e.Decl.Name)
	body := l.lowerExpr(*e.Body, child)

	return machine.Let{Slot: slot, Meta: l.metaFor(e.Decl.Type), Init: initNode, Body: body}
}

// zeroValue produces a best-effort default for a binding declared without
// an initializer. Int/Float/Array/Struct all have an obvious zero value;
// Func, Any, and Inout do not, and the checker does not reject declaring
// one without an initializer today — a known gap, not a silent miscompile,
// since any such binding used before being assigned would read a LitInt{0}
// miscoded as its declared type.
func (l *lowerer) zeroValue(t types.Type) machine.Node {
	switch t := t.(type) {
	case types.IntType:
		return machine.LitInt{}
	case types.FloatType:
		return machine.LitFloat{}
	case types.ArrayType:
		return machine.MakeArray{ElemMeta: l.metaFor(t.Elem)}
	case types.StructType:
		m := l.metaFor(t)
		fields := make([]machine.Node, len(m.StructLayout.Fields))
		for i, f := range m.StructLayout.Fields {
			fields[i] = l.zeroValue(fieldType(t, f.Name))
		}
		return machine.MakeStruct{Layout: m.StructLayout, Fields: fields}
	}
	return machine.LitInt{}
}

func fieldType(st types.StructType, name string) types.Type {
	for _, p := range st.Props {
		if p.Name == name {
			return p.Elem
		}
	}
	return types.ErrorType{}
}

// lowerAssign implements spec.md §4.4's Assign row. The permitted
// "skip if lv and rv denote the same location" and move-vs-copy
// optimizations are not performed: this pass always lowers to the
// conservative form, keeping it a straightforward structural translation,
// and internal/interp executes that form as is.
func (l *lowerer) lowerAssign(e check.TExpr, fr *frame) machine.Node {
	if e.IsWildcardLvalue {
		return machine.Assign{
			IsWildcard: true,
			Value:      l.lowerExpr(*e.Rvalue, fr),
			Meta:       l.metaFor(e.Rvalue.Type),
			Body:       l.lowerExpr(*e.Body, fr),
		}
	}
	return machine.Assign{
		Target: l.lowerAddr(*e.Lvalue, fr),
		Value:  l.lowerExpr(*e.Rvalue, fr),
		Meta:   l.metaFor(e.Lvalue.Type),
		Body:   l.lowerExpr(*e.Body, fr),
	}
}
