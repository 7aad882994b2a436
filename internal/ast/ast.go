// Package ast defines the mvs-calculus AST, per spec.md §3: a finite set of
// tagged-struct node kinds connected by interfaces, rather than a dynamic
// visitor protocol (spec.md §9's "AST hierarchy → tagged variants" note).
// Each node carries a source Span; nothing mutates a node after the parser
// constructs it — the checker's results live in internal/check's typed tree
// (TExpr), not on the node itself (spec.md §9's "in-place mutation" design
// note: we keep the parsed AST untouched and build a parallel typed tree
// instead).
package ast

import "github.com/mvsc-lang/mvsc/internal/diag"

// Mutability is the ordered qualifier Let < Var.
type Mutability int

const (
	Let Mutability = iota
	Var
)

func (m Mutability) String() string {
	if m == Let {
		return "let"
	}
	return "var"
}

// Min returns the more restrictive of two qualifiers (Let if either is Let).
func Min(a, b Mutability) Mutability {
	if a == Let || b == Let {
		return Let
	}
	return Var
}

// Sign mirrors the semantic types for parsing, before name resolution.
type Sign interface{ span() diag.Span }

type IntSign struct{ Span diag.Span }
type FloatSign struct{ Span diag.Span }
type AnySign struct{ Span diag.Span }
type NameSign struct {
	Span diag.Span
	Name string
}
type ArraySign struct {
	Span diag.Span
	Elem Sign
}
type FuncSign struct {
	Span    diag.Span
	Params  []Sign
	Output  Sign
}
type InoutSign struct {
	Span diag.Span
	Base Sign
}

func (s IntSign) span() diag.Span    { return s.Span }
func (s FloatSign) span() diag.Span  { return s.Span }
func (s AnySign) span() diag.Span    { return s.Span }
func (s NameSign) span() diag.Span   { return s.Span }
func (s ArraySign) span() diag.Span  { return s.Span }
func (s FuncSign) span() diag.Span   { return s.Span }
func (s InoutSign) span() diag.Span  { return s.Span }

// Span returns a Sign's source range.
func Span(s Sign) diag.Span { return s.span() }

// ParamDecl is a function-literal parameter.
type ParamDecl struct {
	Span   diag.Span
	Name   string
	Sig    Sign // may wrap InoutSign
}

// BindingDecl is the left side of a let/var binding.
type BindingDecl struct {
	Span diag.Span
	Mut  Mutability
	Name string
	Sig  Sign // optional
}

// PropDecl is one struct field declaration.
type PropDecl struct {
	Span diag.Span
	Mut  Mutability
	Name string
	Sig  Sign
}

// StructDecl declares a nominal struct type.
type StructDecl struct {
	Span  diag.Span
	Name  string
	Props []PropDecl
}

// Program is the whole compilation unit: struct declarations then one entry
// expression, per spec.md §3.
type Program struct {
	Types []StructDecl
	Entry Expr
}

// Expr is any mvs-calculus expression node.
type Expr interface{ span() diag.Span }

// Path is the subset of expressions denoting memory locations.
type Path interface {
	Expr
	isPath()
}

// ExprSpan returns any Expr's source span.
func ExprSpan(e Expr) diag.Span { return e.span() }

// AsPath returns e as a Path if it is one.
func AsPath(e Expr) (Path, bool) {
	p, ok := e.(Path)
	return p, ok
}

type IntExpr struct {
	Span  diag.Span
	Value int64
}

type FloatExpr struct {
	Span  diag.Span
	Value float64
}

type ArrayExpr struct {
	Span  diag.Span
	Elems []Expr
}

type StructExpr struct {
	Span diag.Span
	Name string
	Args []Expr
}

type FuncExpr struct {
	Span     diag.Span
	Params   []ParamDecl
	OutputSig Sign
	Body     Expr
}

// OperKind names a first-class operator reference (§4.1's "Oper").
type OperKind int

const (
	OpEq OperKind = iota
	OpNe
	OpLt
	OpLe
	OpGe
	OpGt
	OpAdd
	OpSub
	OpMul
	OpDiv
)

var operNames = map[string]OperKind{
	"==": OpEq, "!=": OpNe, "<": OpLt, "<=": OpLe, ">=": OpGe, ">": OpGt,
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv,
}

// OperKindFromText resolves a surface operator token to an OperKind, used
// both for Infix expressions and for first-class Oper references like `[+, -]`.
func OperKindFromText(s string) (OperKind, bool) {
	k, ok := operNames[s]
	return k, ok
}

func (k OperKind) IsEquality() bool    { return k == OpEq || k == OpNe }
func (k OperKind) IsComparison() bool  { return k == OpLt || k == OpLe || k == OpGe || k == OpGt }
func (k OperKind) IsArithmetic() bool  { return k == OpAdd || k == OpSub || k == OpMul || k == OpDiv }

type OperExpr struct {
	Span diag.Span
	Kind OperKind
}

type CallExpr struct {
	Span   diag.Span
	Callee Expr
	Args   []Expr
}

type InfixExpr struct {
	Span diag.Span
	Lhs  Expr
	Kind OperKind
	Rhs  Expr
}

type InoutExpr struct {
	Span diag.Span
	Path Expr // must resolve to a Path
}

type BindingExpr struct {
	Span diag.Span
	Decl BindingDecl
	Init Expr
	Body Expr
}

type FuncBindingExpr struct {
	Span    diag.Span
	Name    string
	Literal FuncExpr
	Body    Expr
}

type AssignExpr struct {
	Span    diag.Span
	Lvalue  Expr // NamePath/PropPath/ElemPath, or Underscore sentinel
	Rvalue  Expr
	Body    Expr
}

type CondExpr struct {
	Span diag.Span
	Cond Expr
	Succ Expr
	Fail Expr
}

type CastExpr struct {
	Span  diag.Span
	Value Expr
	Sig   Sign
}

// ErrorExpr marks a subtree that failed to parse or check; its semantic
// type is always types.ErrorType (spec.md §7).
type ErrorExpr struct {
	Span diag.Span
}

// WildcardExpr is the reserved `_` used only on the left of an assignment.
type WildcardExpr struct {
	Span diag.Span
}

// --- Paths ---

type NamePath struct {
	Span diag.Span
	Name string
}

type PropPath struct {
	Span diag.Span
	Base Expr
	Name string
}

type ElemPath struct {
	Span  diag.Span
	Base  Expr
	Index Expr
}

func (e IntExpr) span() diag.Span         { return e.Span }
func (e FloatExpr) span() diag.Span       { return e.Span }
func (e ArrayExpr) span() diag.Span       { return e.Span }
func (e StructExpr) span() diag.Span      { return e.Span }
func (e FuncExpr) span() diag.Span        { return e.Span }
func (e OperExpr) span() diag.Span        { return e.Span }
func (e CallExpr) span() diag.Span        { return e.Span }
func (e InfixExpr) span() diag.Span       { return e.Span }
func (e InoutExpr) span() diag.Span       { return e.Span }
func (e BindingExpr) span() diag.Span     { return e.Span }
func (e FuncBindingExpr) span() diag.Span { return e.Span }
func (e AssignExpr) span() diag.Span      { return e.Span }
func (e CondExpr) span() diag.Span        { return e.Span }
func (e CastExpr) span() diag.Span        { return e.Span }
func (e ErrorExpr) span() diag.Span       { return e.Span }
func (e WildcardExpr) span() diag.Span    { return e.Span }
func (e NamePath) span() diag.Span        { return e.Span }
func (e PropPath) span() diag.Span        { return e.Span }
func (e ElemPath) span() diag.Span        { return e.Span }

func (NamePath) isPath() {}
func (PropPath) isPath() {}
func (ElemPath) isPath() {}
