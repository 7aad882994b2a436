// Package check implements TC (spec.md §4.1), its overlap analysis
// (§4.1.1), capture analysis (§4.2), and escape analysis (§4.3).
//
// Per spec.md §9's design note, the checker does not mutate the parsed AST
// in place; it returns a parallel typed tree (TExpr) instead, so dataflow
// through "expected type" stays an explicit parameter rather than a
// node-identity-keyed side table.
package check

import (
	"github.com/mvsc-lang/mvsc/internal/ast"
	"github.com/mvsc-lang/mvsc/internal/diag"
	"github.com/mvsc-lang/mvsc/internal/types"
)

// TExpr is a type-and-mutability-decorated expression node. Every TExpr
// carries its resolved Type; TExpr values that denote paths additionally
// carry a Mutability (spec.md §8's "every AST node ends with a concrete
// semantic type" invariant).
type TExpr struct {
	Span diag.Span
	Type types.Type
	Mut  ast.Mutability // meaningful only when Kind is a path kind
	Kind TKind

	// payloads, populated according to Kind
	IntVal    int64
	FloatVal  float64
	Elems     []TExpr
	StructName string
	Name      string
	Base      *TExpr
	Index     *TExpr
	Callee    *TExpr
	Args      []TExpr
	Lhs, Rhs  *TExpr
	OperKind  ast.OperKind
	Path      *TExpr
	Decl      TBindingDecl
	Init      *TExpr
	FuncLit   *TFunc
	Body      *TExpr
	Lvalue    *TExpr
	Rvalue    *TExpr
	Cond, Succ, Fail *TExpr
	CastSig   types.Type
	IsWildcardLvalue bool
}

// TKind discriminates TExpr's variant.
type TKind int

const (
	TKInt TKind = iota
	TKFloat
	TKArray
	TKStruct
	TKFunc
	TKOper
	TKCall
	TKInfix
	TKInout
	TKBinding
	TKFuncBinding
	TKAssign
	TKCond
	TKCast
	TKError
	TKNamePath
	TKPropPath
	TKElemPath
)

// TBindingDecl mirrors ast.BindingDecl with its resolved type attached.
type TBindingDecl struct {
	Mut  ast.Mutability
	Name string
	Type types.Type
}

// TParam is a checked function parameter.
type TParam struct {
	Name string
	Type types.Type // Inout(T) for inout params
}

// TFunc is a checked function literal: parameters, output type, body, and
// (filled in by capture analysis, §4.2) its captures in deterministic
// (name-sorted) order.
type TFunc struct {
	Span     diag.Span
	Params   []TParam
	Output   types.Type
	Body     TExpr
	Captures []Capture
}

// TStructDecl is a checked struct declaration.
type TStructDecl struct {
	Span diag.Span
	Type types.StructType
}

// TProgram is the fully checked program: struct declarations plus the
// typed entry expression.
type TProgram struct {
	Types []TStructDecl
	Entry TExpr
}

func isPathKind(k TKind) bool {
	return k == TKNamePath || k == TKPropPath || k == TKElemPath
}
