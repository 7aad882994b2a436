package interp

import "github.com/mvsc-lang/mvsc/internal/machine"

// operValue is the runtime representation of a first-class operator
// reference (spec.md §4.4's "Oper(kind): memoized closure wrapping the
// operator" row — `let ops: [(Int, Int) -> Int] = [+, -] in ops[0](10, 1)`).
// It carries its own Metatype rather than going through Program.Funcs
// since there is no lowered machine.Func body for a built-in operator to
// call into; evalCall recognizes it ahead of the ordinary closure-dispatch
// path.
type operValue struct {
	kind    machine.OperKind
	operand *machine.Metatype
}

// applyOper implements spec.md §4.1's operator families: equality (any
// type, via the operand metatype when one is non-trivial), ordered
// comparison and arithmetic (numeric types only, dispatched on the
// argument's dynamic Go type since int64/float64 is exactly what every
// well-typed numeric operand lowers to).
func applyOper(kind machine.OperKind, operand *machine.Metatype, a, b machine.Value) machine.Value {
	switch kind {
	case machine.OpEq:
		return boolInt(valuesEqual(operand, a, b))
	case machine.OpNe:
		return boolInt(!valuesEqual(operand, a, b))
	}

	if af, ok := a.(float64); ok {
		bf := b.(float64)
		switch kind {
		case machine.OpLt:
			return boolInt(af < bf)
		case machine.OpLe:
			return boolInt(af <= bf)
		case machine.OpGe:
			return boolInt(af >= bf)
		case machine.OpGt:
			return boolInt(af > bf)
		case machine.OpAdd:
			return af + bf
		case machine.OpSub:
			return af - bf
		case machine.OpMul:
			return af * bf
		case machine.OpDiv:
			return af / bf
		}
	}

	ai, bi := a.(int64), b.(int64)
	switch kind {
	case machine.OpLt:
		return boolInt(ai < bi)
	case machine.OpLe:
		return boolInt(ai <= bi)
	case machine.OpGe:
		return boolInt(ai >= bi)
	case machine.OpGt:
		return boolInt(ai > bi)
	case machine.OpAdd:
		return ai + bi
	case machine.OpSub:
		return ai - bi
	case machine.OpMul:
		return ai * bi
	case machine.OpDiv:
		return ai / bi
	}
	panic("interp: unhandled operator kind")
}

func valuesEqual(meta *machine.Metatype, a, b machine.Value) bool {
	if meta != nil && meta.Equal != nil {
		return meta.Equal(a, b)
	}
	return a == b
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
