package lower

import (
	"strings"

	"github.com/mvsc-lang/mvsc/internal/machine"
	"github.com/mvsc-lang/mvsc/internal/runtime"
	"github.com/mvsc-lang/mvsc/internal/types"
)

// metaFor resolves t to its machine.Metatype, building (and memoizing by
// mangled name, per spec.md §9's "Metatypes" note) one on first use.
func (l *lowerer) metaFor(t types.Type) *machine.Metatype {
	name := mangle(t)
	if m, ok := l.metaCache[name]; ok {
		return m
	}

	switch t := t.(type) {
	case types.IntType:
		return l.cache(name, runtime.IntMetatype())
	case types.FloatType:
		return l.cache(name, runtime.FloatMetatype())
	case types.ErrorType:
		return l.cache(name, runtime.ErrorMetatype())
	case types.InoutType:
		return l.cache(name, runtime.InoutMetatype())
	case types.AnyType:
		return l.cache(name, runtime.AnyMetatype())
	case types.ArrayType:
		elemMeta := l.metaFor(t.Elem)
		m := runtime.ArrayMetatype(elemMeta)
		m.Name = name
		return l.cache(name, m)
	case types.FuncType:
		// Closures are a uniform handle regardless of the particular
		// function signature; internal/runtime's ClosureMetatype already
		// captures the right Copy/Drop/Equal behavior for any of them.
		m := runtime.ClosureMetatype()
		m.Name = name
		return l.cache(name, m)
	case types.StructType:
		layout := &machine.StructLayout{Name: t.Name}
		for _, p := range t.Props {
			layout.Fields = append(layout.Fields, machine.StructField{Name: p.Name, Meta: l.metaFor(p.Elem)})
		}
		m := runtime.StructMetatype(layout, types.IsTrivial(t))
		m.Name = name
		m.StructLayout = layout
		return l.cache(name, m)
	}
	return l.cache(name, runtime.ErrorMetatype())
}

func (l *lowerer) cache(name string, m *machine.Metatype) *machine.Metatype {
	l.metaCache[name] = m
	return m
}

func (l *lowerer) fieldIndex(st types.StructType, name string) int {
	m := l.metaFor(st)
	if m.StructLayout == nil {
		return -1
	}
	return m.StructLayout.IndexOf(name)
}

// mangle gives t a stable, unique name for the metatype cache — the code
// generator's private constant name in spirit, if not in literal emitted
// form (spec.md §4.5).
func mangle(t types.Type) string {
	switch t := t.(type) {
	case types.IntType:
		return "Int"
	case types.FloatType:
		return "Float"
	case types.ErrorType:
		return "Error"
	case types.AnyType:
		return "Any"
	case types.InoutType:
		return "Inout<" + mangle(t.Base) + ">"
	case types.ArrayType:
		return "[" + mangle(t.Elem) + "]"
	case types.FuncType:
		var b strings.Builder
		b.WriteByte('(')
		for i, p := range t.Params {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(mangle(p))
		}
		b.WriteString(")->")
		b.WriteString(mangle(t.Output))
		return b.String()
	case types.StructType:
		return "struct:" + t.Name
	}
	return "?"
}
