package check

import (
	"sort"

	"github.com/mvsc-lang/mvsc/internal/ast"
	"github.com/mvsc-lang/mvsc/internal/types"
)

// Capture is one free variable lifted into a function literal's environment
// (spec.md §4.2). Sorted by Name for reproducible code generation.
type Capture struct {
	Name string
	Type types.Type
}

// freeNames computes the set of names referenced in lit's body that are not
// bound by lit's own parameters or by a local Binding/FuncBinding within
// the body (spec.md §4.2). The wildcard `_` is always treated as bound.
func freeNames(lit ast.FuncExpr) map[string]struct{} {
	bound := map[string]struct{}{"_": {}}
	for _, p := range lit.Params {
		bound[p.Name] = struct{}{}
	}
	free := map[string]struct{}{}
	walkFree(lit.Body, bound, free)
	return free
}

func walkFree(e ast.Expr, bound, free map[string]struct{}) {
	if e == nil {
		return
	}
	switch e := e.(type) {
	case ast.NamePath:
		if _, isBound := bound[e.Name]; !isBound {
			free[e.Name] = struct{}{}
		}
	case ast.PropPath:
		walkFree(e.Base, bound, free)
	case ast.ElemPath:
		walkFree(e.Base, bound, free)
		walkFree(e.Index, bound, free)
	case ast.IntExpr, ast.FloatExpr, ast.OperExpr, ast.ErrorExpr, ast.WildcardExpr:
		// no subexpressions
	case ast.ArrayExpr:
		for _, el := range e.Elems {
			walkFree(el, bound, free)
		}
	case ast.StructExpr:
		for _, a := range e.Args {
			walkFree(a, bound, free)
		}
	case ast.FuncExpr:
		// a nested literal's own params/locals are bound inside itself;
		// names it captures from *this* scope still count as free here
		// unless already bound in the outer scope we're walking.
		inner := cloneSet(bound)
		for _, p := range e.Params {
			inner[p.Name] = struct{}{}
		}
		walkFree(e.Body, inner, free)
	case ast.CallExpr:
		walkFree(e.Callee, bound, free)
		for _, a := range e.Args {
			walkFree(a, bound, free)
		}
	case ast.InfixExpr:
		walkFree(e.Lhs, bound, free)
		walkFree(e.Rhs, bound, free)
	case ast.InoutExpr:
		walkFree(e.Path, bound, free)
	case ast.BindingExpr:
		walkFree(e.Init, bound, free)
		inner := cloneSet(bound)
		inner[e.Decl.Name] = struct{}{}
		walkFree(e.Body, inner, free)
	case ast.FuncBindingExpr:
		inner := cloneSet(bound)
		inner[e.Name] = struct{}{}
		// the literal's own body is walked with its params also bound, via
		// the FuncExpr case below, but the *name* itself must be visible
		// inside its own literal for recursion.
		litBound := cloneSet(inner)
		for _, p := range e.Literal.Params {
			litBound[p.Name] = struct{}{}
		}
		walkFree(e.Literal.Body, litBound, free)
		walkFree(e.Body, inner, free)
	case ast.AssignExpr:
		walkFree(e.Lvalue, bound, free)
		walkFree(e.Rvalue, bound, free)
		walkFree(e.Body, bound, free)
	case ast.CondExpr:
		walkFree(e.Cond, bound, free)
		walkFree(e.Succ, bound, free)
		walkFree(e.Fail, bound, free)
	case ast.CastExpr:
		walkFree(e.Value, bound, free)
	}
}

func cloneSet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s)+1)
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// computeCaptures resolves each free name against the enclosing Γ and
// returns them sorted by name, per spec.md §4.2's determinism requirement.
func computeCaptures(lit ast.FuncExpr, outer *types.Env) []Capture {
	free := freeNames(lit)
	names := make([]string, 0, len(free))
	for n := range free {
		names = append(names, n)
	}
	sort.Strings(names)

	caps := make([]Capture, 0, len(names))
	for _, n := range names {
		if _, typ, ok := outer.Lookup(n); ok {
			caps = append(caps, Capture{Name: n, Type: typ})
		}
		// names that fail to resolve are reported as undefined bindings by
		// the normal NamePath check when the body is actually type-checked;
		// capture analysis itself never reports a diagnostic.
	}
	return caps
}
