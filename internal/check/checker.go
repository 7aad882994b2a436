package check

import (
	"github.com/mvsc-lang/mvsc/internal/ast"
	"github.com/mvsc-lang/mvsc/internal/diag"
	"github.com/mvsc-lang/mvsc/internal/types"
)

// Checker is TC (spec.md §4.1): Δ (struct context), Γ (typing context, via
// types.Env), and a Sink for accumulated diagnostics.
type Checker struct {
	delta *types.StructContext
	sink  diag.Sink
	file  string
}

func New(sink diag.Sink, file string) *Checker {
	delta := types.NewStructContext()
	// Unit, the canonical empty struct, is a built-in (spec.md §4.1).
	delta.Insert(&types.StructType{Name: "Unit"})
	return &Checker{delta: delta, sink: sink, file: file}
}

// CheckProgram implements the top-level rule: check all StructDecls, then
// the entry expression with no expected type.
func (c *Checker) CheckProgram(p ast.Program) TProgram {
	var tdecls []TStructDecl
	for _, sd := range p.Types {
		tdecls = append(tdecls, c.checkStructDecl(sd))
	}

	if cycleStart, found := c.delta.HasCycle(); found {
		diag.Errorf(c.sink, diag.CodeDuplicateDecl, diag.Span{File: c.file},
			"struct type %q participates in a mutually recursive (non-finite) definition", cycleStart)
	}

	env := types.NewEnv()
	// Optional built-ins (spec.md §4.1): bound as ordinary Let functions so
	// a program may shadow them with its own binding of the same name.
	env.Bind("uptime", ast.Let, types.FuncType{Output: types.FloatType{}})
	env.Bind("sqrt", ast.Let, types.FuncType{Params: []types.Type{types.FloatType{}}, Output: types.FloatType{}})

	entry := c.check(p.Entry, env, nil)
	return TProgram{Types: tdecls, Entry: entry}
}

func (c *Checker) checkStructDecl(sd ast.StructDecl) TStructDecl {
	st := &types.StructType{Name: sd.Name}
	seen := map[string]bool{}
	for _, prop := range sd.Props {
		if seen[prop.Name] {
			diag.Errorf(c.sink, diag.CodeDuplicateDecl, prop.Span, "duplicate property %q in struct %q", prop.Name, sd.Name)
			continue
		}
		seen[prop.Name] = true
		elem := c.resolveSig(prop.Sig)
		if types.ContainsInout(elem) {
			diag.Errorf(c.sink, diag.CodeInvalidConversion, prop.Span, "inout type may not appear as a struct field")
			elem = types.ErrorType{}
		}
		st.Props = append(st.Props, types.Prop{Mut: prop.Mut, Name: prop.Name, Elem: elem})
	}
	if dup := c.delta.Insert(st); dup {
		diag.Errorf(c.sink, diag.CodeDuplicateDecl, sd.Span, "duplicate struct declaration %q", sd.Name)
	}
	return TStructDecl{Span: sd.Span, Type: *st}
}

func (c *Checker) resolveSig(s ast.Sign) types.Type {
	switch s := s.(type) {
	case ast.IntSign:
		return types.IntType{}
	case ast.FloatSign:
		return types.FloatType{}
	case ast.AnySign:
		return types.AnyType{}
	case ast.NameSign:
		if st, ok := c.delta.Lookup(s.Name); ok {
			return *st
		}
		diag.Errorf(c.sink, diag.CodeUndefinedType, s.Span, "undefined type %q", s.Name)
		return types.ErrorType{}
	case ast.ArraySign:
		return types.ArrayType{Elem: c.resolveSig(s.Elem)}
	case ast.FuncSign:
		params := make([]types.Type, len(s.Params))
		for i, p := range s.Params {
			params[i] = c.resolveSig(p)
		}
		return types.FuncType{Params: params, Output: c.resolveSig(s.Output)}
	case ast.InoutSign:
		return types.InoutType{Base: c.resolveSig(s.Base)}
	}
	return types.ErrorType{}
}

// check dispatches on e's dynamic kind, implementing every rule in
// spec.md §4.1. expected is nil when there is no expected-type context.
func (c *Checker) check(e ast.Expr, env *types.Env, expected types.Type) TExpr {
	switch e := e.(type) {
	case ast.IntExpr:
		return TExpr{Span: e.Span, Kind: TKInt, Type: types.IntType{}, IntVal: e.Value}

	case ast.FloatExpr:
		return TExpr{Span: e.Span, Kind: TKFloat, Type: types.FloatType{}, FloatVal: e.Value}

	case ast.ArrayExpr:
		return c.checkArray(e, env, expected)

	case ast.StructExpr:
		return c.checkStructLit(e, env, expected)

	case ast.FuncExpr:
		return c.checkFunc(e, env, expected)

	case ast.OperExpr:
		return c.checkOper(e, expected)

	case ast.CallExpr:
		return c.checkCall(e, env, expected)

	case ast.InfixExpr:
		return c.checkInfix(e, env)

	case ast.InoutExpr:
		return c.checkInout(e, env)

	case ast.BindingExpr:
		return c.checkBinding(e, env, expected)

	case ast.FuncBindingExpr:
		return c.checkFuncBinding(e, env, expected)

	case ast.AssignExpr:
		return c.checkAssign(e, env, expected)

	case ast.CondExpr:
		return c.checkCond(e, env, expected)

	case ast.CastExpr:
		return c.checkCast(e, env)

	case ast.NamePath:
		return c.checkNamePath(e, env)

	case ast.PropPath:
		return c.checkPropPath(e, env)

	case ast.ElemPath:
		return c.checkElemPath(e, env)

	case ast.WildcardExpr:
		diag.Errorf(c.sink, diag.CodeInvalidWildcard, e.Span, "`_` may only appear on the left of an assignment")
		return terr(e.Span)

	case ast.ErrorExpr:
		return terr(e.Span)
	}
	return terr(ast.ExprSpan(e))
}

func terr(span diag.Span) TExpr {
	return TExpr{Span: span, Kind: TKError, Type: types.ErrorType{}}
}

func (c *Checker) checkArray(e ast.ArrayExpr, env *types.Env, expected types.Type) TExpr {
	var elemExpected types.Type
	if arr, ok := expected.(types.ArrayType); ok {
		elemExpected = arr.Elem
	}

	if len(e.Elems) == 0 {
		if elemExpected == nil {
			diag.Errorf(c.sink, diag.CodeAmbiguousElem, e.Span, "ambiguous element type for empty array literal")
			return terr(e.Span)
		}
		return TExpr{Span: e.Span, Kind: TKArray, Type: types.ArrayType{Elem: elemExpected}}
	}

	telems := make([]TExpr, len(e.Elems))
	telems[0] = c.check(e.Elems[0], env, elemExpected)
	elemType := telems[0].Type
	if elemExpected == nil {
		elemExpected = elemType
	}
	for i := 1; i < len(e.Elems); i++ {
		telems[i] = c.check(e.Elems[i], env, elemExpected)
	}
	return TExpr{Span: e.Span, Kind: TKArray, Type: types.ArrayType{Elem: elemExpected}, Elems: telems}
}

func (c *Checker) checkStructLit(e ast.StructExpr, env *types.Env, expected types.Type) TExpr {
	st, ok := c.delta.Lookup(e.Name)
	if !ok {
		diag.Errorf(c.sink, diag.CodeUndefinedType, e.Span, "undefined struct type %q", e.Name)
		return terr(e.Span)
	}
	if len(e.Args) != len(st.Props) {
		diag.Errorf(c.sink, diag.CodeArity, e.Span, "struct %q expects %d fields, got %d", e.Name, len(st.Props), len(e.Args))
	}
	targs := make([]TExpr, len(e.Args))
	for i, a := range e.Args {
		var fieldExpected types.Type
		if i < len(st.Props) {
			fieldExpected = st.Props[i].Elem
		}
		targs[i] = c.check(a, env, fieldExpected)
	}
	return TExpr{Span: e.Span, Kind: TKStruct, Type: *st, StructName: e.Name, Args: targs}
}

// checkFunc implements spec.md §4.1's Func rule: check parameter
// signatures, save Γ, downgrade every outer binding to Let, add
// parameters, check body, restore Γ. Capture analysis (§4.2) runs here too,
// against the *outer* (pre-downgrade) Γ, since a capture's type is fixed at
// closure-creation time regardless of the demotion applied inside the body.
func (c *Checker) checkFunc(e ast.FuncExpr, env *types.Env, expected types.Type) TExpr {
	seen := map[string]bool{}
	params := make([]TParam, len(e.Params))
	for i, p := range e.Params {
		if seen[p.Name] {
			diag.Errorf(c.sink, diag.CodeDuplicateDecl, p.Span, "duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
		params[i] = TParam{Name: p.Name, Type: c.resolveSig(p.Sig)}
	}

	output := c.resolveSig(e.OutputSig)

	inner := env.Child(true)
	for _, p := range params {
		if io, ok := p.Type.(types.InoutType); ok {
			inner.Bind(p.Name, ast.Var, io.Base)
		} else {
			inner.Bind(p.Name, ast.Let, p.Type)
		}
	}

	body := c.check(e.Body, inner, output)

	paramTypes := make([]types.Type, len(params))
	for i, p := range params {
		paramTypes[i] = p.Type
	}
	ft := types.FuncType{Params: paramTypes, Output: output}

	lit := &TFunc{Span: e.Span, Params: params, Output: output, Body: body, Captures: computeCaptures(e, env)}
	return TExpr{Span: e.Span, Kind: TKFunc, Type: ft, FuncLit: lit}
}

func (c *Checker) checkOper(e ast.OperExpr, expected types.Type) TExpr {
	ft, ok := expected.(types.FuncType)
	if !ok || len(ft.Params) != 2 || !types.Equal(ft.Params[0], ft.Params[1]) {
		diag.Errorf(c.sink, diag.CodeAmbiguousOperator, e.Span, "ambiguous operator reference: expected a (T, T) -> U context")
		return terr(e.Span)
	}
	operand := ft.Params[0]
	if ok, resultOk := operKindAccepts(e.Kind, operand, ft.Output); !ok || !resultOk {
		diag.Errorf(c.sink, diag.CodeAmbiguousOperator, e.Span, "no overload of this operator matches (%v, %v) -> %v", operand, operand, ft.Output)
		return terr(e.Span)
	}
	return TExpr{Span: e.Span, Kind: TKOper, Type: ft, OperKind: e.Kind}
}

// operKindAccepts reports whether kind can be instantiated at operand type
// T with result type out, per spec.md §4.1's operator-kind split.
func operKindAccepts(kind ast.OperKind, operand, out types.Type) (accepts, resultOk bool) {
	switch {
	case kind.IsEquality():
		_, isInt := out.(types.IntType)
		return true, isInt
	case kind.IsComparison():
		_, isInt := out.(types.IntType)
		return types.IsNumeric(operand), isInt
	case kind.IsArithmetic():
		return types.IsNumeric(operand), types.Equal(operand, out)
	}
	return false, false
}

func (c *Checker) checkCall(e ast.CallExpr, env *types.Env, expected types.Type) TExpr {
	callee := c.check(e.Callee, env, nil)
	ft, ok := callee.Type.(types.FuncType)
	if !ok {
		if _, isErr := callee.Type.(types.ErrorType); !isErr {
			diag.Errorf(c.sink, diag.CodeCallNonFunction, e.Span, "call to a non-function value")
		}
		for _, a := range e.Args {
			c.check(a, env, nil)
		}
		return terr(e.Span)
	}

	if len(e.Args) != len(ft.Params) {
		diag.Errorf(c.sink, diag.CodeArity, e.Span, "expected %d arguments, got %d", len(ft.Params), len(e.Args))
	}

	targs := make([]TExpr, len(e.Args))
	var inoutPaths []ast.Expr
	for i, a := range e.Args {
		var pt types.Type
		if i < len(ft.Params) {
			pt = ft.Params[i]
		}
		targs[i] = c.check(a, env, pt)
		if _, isInout := pt.(types.InoutType); isInout {
			if io, ok := a.(ast.InoutExpr); ok {
				inoutPaths = append(inoutPaths, io.Path)
			}
		}
	}

	for i := 0; i < len(inoutPaths); i++ {
		for j := i + 1; j < len(inoutPaths); j++ {
			if MayOverlap(inoutPaths[i], inoutPaths[j]) {
				diag.Errorf(c.sink, diag.CodeExclusiveAccess, e.Span, "exclusive-access violation: two inout arguments may alias the same location")
			}
		}
	}

	return TExpr{Span: e.Span, Kind: TKCall, Type: ft.Output, Callee: &callee, Args: targs}
}

func (c *Checker) checkInfix(e ast.InfixExpr, env *types.Env) TExpr {
	lhs := c.check(e.Lhs, env, nil)
	rhs := c.check(e.Rhs, env, lhs.Type)

	resultType := c.operResultType(e.Span, e.Kind, lhs.Type, rhs.Type)
	return TExpr{Span: e.Span, Kind: TKInfix, Type: resultType, Lhs: &lhs, Rhs: &rhs, OperKind: e.Kind}
}

func (c *Checker) operResultType(span diag.Span, kind ast.OperKind, lt, rt types.Type) types.Type {
	if _, le := lt.(types.ErrorType); le {
		return types.ErrorType{}
	}
	if _, re := rt.(types.ErrorType); re {
		return types.ErrorType{}
	}
	switch {
	case kind.IsEquality():
		return types.IntType{}
	case kind.IsComparison():
		if !types.IsNumeric(lt) || !types.Equal(lt, rt) {
			diag.Errorf(c.sink, diag.CodeUndefinedOperator, span, "undefined operator for operand types")
			return types.ErrorType{}
		}
		return types.IntType{}
	case kind.IsArithmetic():
		if !types.IsNumeric(lt) || !types.Equal(lt, rt) {
			diag.Errorf(c.sink, diag.CodeUndefinedOperator, span, "undefined operator for operand types")
			return types.ErrorType{}
		}
		return lt
	}
	return types.ErrorType{}
}

func (c *Checker) checkInout(e ast.InoutExpr, env *types.Env) TExpr {
	pathExpr, ok := ast.AsPath(e.Path)
	if !ok {
		diag.Errorf(c.sink, diag.CodeImmutableInout, e.Span, "& may only be applied to a path")
		return terr(e.Span)
	}
	tp := c.check(pathExpr, env, nil)
	if tp.Mut != ast.Var {
		diag.Errorf(c.sink, diag.CodeImmutableInout, e.Span, "cannot take an inout reference to an immutable path")
		return TExpr{Span: e.Span, Kind: TKInout, Type: types.InoutType{Base: tp.Type}, Path: &tp}
	}
	return TExpr{Span: e.Span, Kind: TKInout, Type: types.InoutType{Base: tp.Type}, Path: &tp}
}

func (c *Checker) checkBinding(e ast.BindingExpr, env *types.Env, expected types.Type) TExpr {
	var declType types.Type
	if e.Decl.Sig != nil {
		declType = c.resolveSig(e.Decl.Sig)
	}
	if declType == nil && e.Init == nil {
		diag.Errorf(c.sink, diag.CodeMissingSignature, e.Decl.Span, "binding %q needs a signature or an initializer", e.Decl.Name)
		declType = types.ErrorType{}
	}

	var init TExpr
	if e.Init != nil {
		init = c.check(e.Init, env, declType)
		if declType == nil {
			declType = init.Type
		}
	}

	inner := env.Child(false)
	inner.Bind(e.Decl.Name, e.Decl.Mut, declType)
	body := c.check(e.Body, inner, expected)
	inner.Unbind(e.Decl.Name)

	return TExpr{
		Span: e.Span, Kind: TKBinding, Type: body.Type,
		Decl: TBindingDecl{Mut: e.Decl.Mut, Name: e.Decl.Name, Type: declType},
		Init: initPtr(e.Init, init), Body: &body,
	}
}

func initPtr(rawInit ast.Expr, init TExpr) *TExpr {
	if rawInit == nil {
		return nil
	}
	return &init
}

// checkFuncBinding implements spec.md §4.1's FuncBinding rule: compute the
// literal's signature first, bind name -> (Let, type) to enable recursion,
// then check the literal's body in that extended Γ.
func (c *Checker) checkFuncBinding(e ast.FuncBindingExpr, env *types.Env, expected types.Type) TExpr {
	paramTypes := make([]types.Type, len(e.Literal.Params))
	for i, p := range e.Literal.Params {
		paramTypes[i] = c.resolveSig(p.Sig)
	}
	output := c.resolveSig(e.Literal.OutputSig)
	ft := types.FuncType{Params: paramTypes, Output: output}

	recEnv := env.Child(false)
	recEnv.Bind(e.Name, ast.Let, ft)

	litExpr := c.checkFunc(e.Literal, recEnv, nil)

	bodyEnv := env.Child(false)
	bodyEnv.Bind(e.Name, ast.Let, ft)
	body := c.check(e.Body, bodyEnv, expected)

	return TExpr{
		Span: e.Span, Kind: TKFuncBinding, Type: body.Type,
		Name: e.Name, FuncLit: litExpr.FuncLit, Body: &body,
	}
}

func (c *Checker) checkAssign(e ast.AssignExpr, env *types.Env, expected types.Type) TExpr {
	if _, isWild := e.Lvalue.(ast.WildcardExpr); isWild {
		rv := c.check(e.Rvalue, env, nil)
		body := c.check(e.Body, env, expected)
		return TExpr{Span: e.Span, Kind: TKAssign, Type: body.Type, IsWildcardLvalue: true, Rvalue: &rv, Body: &body}
	}

	lvPath, ok := ast.AsPath(e.Lvalue)
	if !ok {
		diag.Errorf(c.sink, diag.CodeImmutableLvalue, e.Span, "assignment target must be a path or `_`")
		rv := c.check(e.Rvalue, env, nil)
		body := c.check(e.Body, env, expected)
		return TExpr{Span: e.Span, Kind: TKAssign, Type: body.Type, Rvalue: &rv, Body: &body}
	}

	lv := c.check(lvPath, env, nil)
	if lv.Mut != ast.Var {
		diag.Errorf(c.sink, diag.CodeImmutableLvalue, e.Span, "cannot assign to an immutable lvalue")
	}
	rv := c.check(e.Rvalue, env, lv.Type)
	body := c.check(e.Body, env, expected)

	return TExpr{Span: e.Span, Kind: TKAssign, Type: body.Type, Lvalue: &lv, Rvalue: &rv, Body: &body}
}

func (c *Checker) checkCond(e ast.CondExpr, env *types.Env, expected types.Type) TExpr {
	cond := c.check(e.Cond, env, types.IntType{})
	if !types.Equal(cond.Type, types.IntType{}) {
		if _, isErr := cond.Type.(types.ErrorType); !isErr {
			diag.Errorf(c.sink, diag.CodeInvalidConversion, ast.ExprSpan(e.Cond), "condition must have type Int")
		}
	}

	succ := c.check(e.Succ, env, expected)
	failExpected := expected
	if failExpected == nil {
		failExpected = succ.Type
	}
	fail := c.check(e.Fail, env, failExpected)

	result := succ.Type
	if expected == nil && !types.Equal(succ.Type, fail.Type) {
		diag.Errorf(c.sink, diag.CodeUndefinedOperator, e.Span, "branches of `if` have different types")
		result = types.ErrorType{}
	}

	return TExpr{Span: e.Span, Kind: TKCond, Type: result, Cond: &cond, Succ: &succ, Fail: &fail}
}

func (c *Checker) checkCast(e ast.CastExpr, env *types.Env) TExpr {
	v := c.check(e.Value, env, nil)
	target := c.resolveSig(e.Sig)

	_, vIsAny := v.Type.(types.AnyType)
	_, tIsAny := target.(types.AnyType)
	if !vIsAny && !tIsAny && !types.Equal(v.Type, target) {
		diag.Errorf(c.sink, diag.CodeInvalidConversion, e.Span, "invalid conversion: neither side is `Any` and the types differ")
		return terr(e.Span)
	}

	return TExpr{Span: e.Span, Kind: TKCast, Type: target, Lhs: &v, CastSig: target}
}

func (c *Checker) checkNamePath(e ast.NamePath, env *types.Env) TExpr {
	if e.Name == "_" {
		diag.Errorf(c.sink, diag.CodeInvalidWildcard, e.Span, "`_` may only appear on the left of an assignment")
		return terr(e.Span)
	}
	mut, typ, ok := env.Lookup(e.Name)
	if !ok {
		diag.Errorf(c.sink, diag.CodeUndefinedBinding, e.Span, "undefined binding %q", e.Name)
		return terr(e.Span)
	}
	return TExpr{Span: e.Span, Kind: TKNamePath, Type: typ, Mut: mut, Name: e.Name}
}

func (c *Checker) checkPropPath(e ast.PropPath, env *types.Env) TExpr {
	base := c.check(e.Base, env, nil)
	st, ok := base.Type.(types.StructType)
	if !ok {
		if _, isErr := base.Type.(types.ErrorType); !isErr {
			diag.Errorf(c.sink, diag.CodeMissingMember, e.Span, "property access on a non-struct type")
		}
		return terr(e.Span)
	}
	for _, p := range st.Props {
		if p.Name == e.Name {
			mut := ast.Min(base.Mut, p.Mut) // transitive immutability, spec.md §4.1
			return TExpr{Span: e.Span, Kind: TKPropPath, Type: p.Elem, Mut: mut, Base: &base, Name: e.Name}
		}
	}
	diag.Errorf(c.sink, diag.CodeMissingMember, e.Span, "struct %q has no property %q", st.Name, e.Name)
	return terr(e.Span)
}

func (c *Checker) checkElemPath(e ast.ElemPath, env *types.Env) TExpr {
	base := c.check(e.Base, env, nil)
	arr, ok := base.Type.(types.ArrayType)
	if !ok {
		if _, isErr := base.Type.(types.ErrorType); !isErr {
			diag.Errorf(c.sink, diag.CodeIndexNonArray, e.Span, "indexing into a non-array type")
		}
		idx := c.check(e.Index, env, types.IntType{})
		return TExpr{Span: e.Span, Kind: TKError, Type: types.ErrorType{}, Base: &base, Index: &idx}
	}
	idx := c.check(e.Index, env, types.IntType{})
	if !types.Equal(idx.Type, types.IntType{}) {
		if _, isErr := idx.Type.(types.ErrorType); !isErr {
			diag.Errorf(c.sink, diag.CodeIndexNonArray, ast.ExprSpan(e.Index), "array index must have type Int")
		}
	}
	return TExpr{Span: e.Span, Kind: TKElemPath, Type: arr.Elem, Mut: base.Mut, Base: &base, Index: &idx}
}
