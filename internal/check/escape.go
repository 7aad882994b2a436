package check

import "github.com/mvsc-lang/mvsc/internal/types"

// MaxStackArraySize is the default byte budget for stack-allocating a local
// array literal (spec.md §4.3), overridable by --max-stack-array-size.
const MaxStackArraySize = 256

// IsSmallArrayLiteral reports whether init is an array literal whose total
// payload size is within budget bytes.
func IsSmallArrayLiteral(init TExpr, budget int) bool {
	arr, ok := init.Type.(types.ArrayType)
	if !ok || init.Kind != TKArray {
		return false
	}
	return len(init.Elems)*types.SizeOf(arr.Elem) <= budget
}

// Escapes implements spec.md §4.3: name escapes body if it appears inside a
// function literal that captures it, is passed as a Call argument by
// value, or is the tail expression of a scope that outlives the binding.
func Escapes(name string, body TExpr) bool {
	if escapesViaCapture(name, body) {
		return true
	}
	if escapesViaCallArg(name, body) {
		return true
	}
	return escapesViaTail(name, body)
}

func escapesViaCapture(name string, e TExpr) bool {
	found := false
	visitFuncLits(e, func(f *TFunc) {
		for _, c := range f.Captures {
			if c.Name == name {
				found = true
			}
		}
	})
	return found
}

func visitFuncLits(e TExpr, f func(*TFunc)) {
	if e.FuncLit != nil {
		f(e.FuncLit)
		visitFuncLits(e.FuncLit.Body, f)
	}
	forEachChild(e, func(c TExpr) { visitFuncLits(c, f) })
}

func escapesViaCallArg(name string, e TExpr) bool {
	found := false
	var walk func(e TExpr)
	walk = func(e TExpr) {
		if found {
			return
		}
		if e.Kind == TKCall {
			for _, a := range e.Args {
				if a.Kind == TKNamePath && a.Name == name {
					found = true
					return
				}
			}
		}
		forEachChild(e, walk)
	}
	walk(e)
	return found
}

// escapesViaTail checks whether name is the tail expression of body itself,
// or of any nested scope (Binding/FuncBinding/Assign body, Cond branch)
// that outlives the binding — i.e. whose result flows out as body's own
// result.
func escapesViaTail(name string, body TExpr) bool {
	for _, t := range tailExprs(body) {
		if t.Kind == TKNamePath && t.Name == name {
			return true
		}
	}
	return false
}

// tailExprs collects every expression reachable from e purely by following
// "tail position" edges (the position whose value becomes e's own value).
func tailExprs(e TExpr) []TExpr {
	switch e.Kind {
	case TKBinding, TKFuncBinding, TKAssign:
		if e.Body != nil {
			return append([]TExpr{e}, tailExprs(*e.Body)...)
		}
	case TKCond:
		var out []TExpr
		if e.Succ != nil {
			out = append(out, tailExprs(*e.Succ)...)
		}
		if e.Fail != nil {
			out = append(out, tailExprs(*e.Fail)...)
		}
		return append(out, e)
	}
	return []TExpr{e}
}

// forEachChild visits e's immediate TExpr children, for generic recursive
// walks that don't need tail-position awareness.
func forEachChild(e TExpr, f func(TExpr)) {
	for _, el := range e.Elems {
		f(el)
	}
	for _, a := range e.Args {
		f(a)
	}
	if e.Base != nil {
		f(*e.Base)
	}
	if e.Index != nil {
		f(*e.Index)
	}
	if e.Callee != nil {
		f(*e.Callee)
	}
	if e.Lhs != nil {
		f(*e.Lhs)
	}
	if e.Rhs != nil {
		f(*e.Rhs)
	}
	if e.Path != nil {
		f(*e.Path)
	}
	if e.Init != nil {
		f(*e.Init)
	}
	if e.Body != nil {
		f(*e.Body)
	}
	if e.Lvalue != nil {
		f(*e.Lvalue)
	}
	if e.Rvalue != nil {
		f(*e.Rvalue)
	}
	if e.Cond != nil {
		f(*e.Cond)
	}
	if e.Succ != nil {
		f(*e.Succ)
	}
	if e.Fail != nil {
		f(*e.Fail)
	}
}
