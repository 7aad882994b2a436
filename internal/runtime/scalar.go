package runtime

import "github.com/mvsc-lang/mvsc/internal/machine"

// IntMetatype and FloatMetatype describe the two primitive numeric types.
// They are trivial: Copy/Drop/Equal stay nil, and callers fall back to a
// plain Go value copy / no-op drop / == comparison, since int64 and
// float64 are already comparable, independently-owned Go values.
func IntMetatype() *machine.Metatype {
	return &machine.Metatype{Name: "Int", Size: 8, Trivial: true}
}

func FloatMetatype() *machine.Metatype {
	return &machine.Metatype{Name: "Float", Size: 8, Trivial: true}
}

// ErrorMetatype backs the sentinel type assigned to ill-typed expressions;
// it is never actually instantiated at runtime (a program with any Error
// type reaching interp/emit is one internal/check should have rejected),
// but internal/lower still needs a Metatype value to attach to ErrorExpr
// nodes it must lower defensively.
func ErrorMetatype() *machine.Metatype {
	return &machine.Metatype{Name: "Error", Size: 8, Trivial: true}
}

// InoutMetatype describes a borrowed reference's own (trivial,
// pointer-sized) representation — distinct from the Metatype of the type
// it points to.
func InoutMetatype() *machine.Metatype {
	return &machine.Metatype{Name: "Inout", Size: 8, Trivial: true}
}
