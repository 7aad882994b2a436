// Package types implements the mvs-calculus semantic type system: the
// tagged, structurally-compared type variant from spec.md §3, plus the
// trivial/address-only predicates that drive the code generator's memory
// discipline (spec.md §4.4).
package types

import "github.com/mvsc-lang/mvsc/internal/ast"

// Type is any semantic type. Structural equality is value equality of the
// concrete Go type plus its fields (Struct compares by name + ordered
// props, per spec.md §3), so two Type values are interchangeable with ==
// only for the variants that are comparable (Int, Float, Error, Inout of a
// comparable base); Struct/Array/Func must be compared with Equal.
type Type interface {
	isType()
}

type IntType struct{}
type FloatType struct{}
type ErrorType struct{}

// AnyType is the existential escape hatch used only by Cast (spec.md §4.1).
type AnyType struct{}

type Prop struct {
	Mut  ast.Mutability
	Name string
	Elem Type
}

// StructType is compared nominally: by name, then by ordered props.
type StructType struct {
	Name  string
	Props []Prop
}

type ArrayType struct {
	Elem Type
}

type FuncType struct {
	Params []Type
	Output Type
}

// InoutType only appears as a parameter type or as the type of a `&path`
// expression; it may never be an array element, struct field, or capture
// type (spec.md §3's invariant).
type InoutType struct {
	Base Type
}

func (IntType) isType()    {}
func (FloatType) isType()  {}
func (ErrorType) isType()  {}
func (AnyType) isType()    {}
func (StructType) isType() {}
func (ArrayType) isType()  {}
func (FuncType) isType()   {}
func (InoutType) isType()  {}

// Equal is structural/nominal equality per spec.md §3.
func Equal(a, b Type) bool {
	switch a := a.(type) {
	case IntType:
		_, ok := b.(IntType)
		return ok
	case FloatType:
		_, ok := b.(FloatType)
		return ok
	case ErrorType:
		_, ok := b.(ErrorType)
		return ok
	case AnyType:
		_, ok := b.(AnyType)
		return ok
	case StructType:
		bs, ok := b.(StructType)
		if !ok || a.Name != bs.Name || len(a.Props) != len(bs.Props) {
			return false
		}
		for i := range a.Props {
			if a.Props[i].Mut != bs.Props[i].Mut || a.Props[i].Name != bs.Props[i].Name ||
				!Equal(a.Props[i].Elem, bs.Props[i].Elem) {
				return false
			}
		}
		return true
	case ArrayType:
		bs, ok := b.(ArrayType)
		return ok && Equal(a.Elem, bs.Elem)
	case FuncType:
		bs, ok := b.(FuncType)
		if !ok || len(a.Params) != len(bs.Params) {
			return false
		}
		for i := range a.Params {
			if !Equal(a.Params[i], bs.Params[i]) {
				return false
			}
		}
		return Equal(a.Output, bs.Output)
	case InoutType:
		bs, ok := b.(InoutType)
		return ok && Equal(a.Base, bs.Base)
	}
	return false
}

// IsNumeric reports whether t is Int or Float (the operand types for
// arithmetic and ordered comparison, spec.md §4.1).
func IsNumeric(t Type) bool {
	switch t.(type) {
	case IntType, FloatType:
		return true
	}
	return false
}

// IsTrivial reports whether values of t can be duplicated bitwise: t
// contains no Array and no Func, deeply (spec.md §3's invariant).
func IsTrivial(t Type) bool {
	switch t := t.(type) {
	case IntType, FloatType, InoutType, ErrorType, AnyType:
		return true
	case ArrayType, FuncType:
		return false
	case StructType:
		for _, p := range t.Props {
			if !IsTrivial(p.Elem) {
				return false
			}
		}
		return true
	}
	return false
}

// IsAddressOnly reports whether t's values are manipulated by address at
// the abstract-machine level: everything except Int, Float, Inout, Error
// (spec.md §3's invariant). AnyType is address-only: its representation
// (three words of inline storage + a witness) is a four-word struct passed
// by address like any other composite.
func IsAddressOnly(t Type) bool {
	switch t.(type) {
	case IntType, FloatType, InoutType, ErrorType:
		return false
	}
	return true
}

// ContainsInout reports whether t is or (deeply) contains an InoutType in a
// position the spec.md §3 invariant forbids (array element, struct field).
// Used by the checker to reject `[inout Int]`-shaped signatures.
func ContainsInout(t Type) bool {
	switch t := t.(type) {
	case InoutType:
		return true
	case ArrayType:
		return ContainsInout(t.Elem)
	case StructType:
		for _, p := range t.Props {
			if ContainsInout(p.Elem) {
				return true
			}
		}
	}
	return false
}
