// Package emit serializes a lowered machine.Program to the textual object
// format SPEC_FULL.md §4.7 defines in place of real native/LLVM emission:
// one function per line group, one three-address-style instruction per
// line, each producing a numbered temporary later instructions reference.
//
// Both --emit-llvm and the default <input>.o output share this same body;
// only the one-line header differs (a "mvsco1" magic plus the content
// label for the object form, a "; " comment for the textual form).
package emit

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mvsc-lang/mvsc/internal/machine"
)

// ObjectMagic is the one-line header written before an .o file's body.
const ObjectMagic = "mvsco1"

// WriteObject writes prog's default object-file form: a "mvsco1 <label>"
// header line, then Dump(prog).
func WriteObject(w io.Writer, prog *machine.Program, label string) error {
	if _, err := fmt.Fprintf(w, "%s %s\n", ObjectMagic, label); err != nil {
		return err
	}
	_, err := io.WriteString(w, Dump(prog))
	return err
}

// WriteLLVM writes prog's --emit-llvm form: a comment header naming the
// same content label, then Dump(prog).
func WriteLLVM(w io.Writer, prog *machine.Program, label string) error {
	if _, err := fmt.Fprintf(w, "; mvsc label %s\n", label); err != nil {
		return err
	}
	_, err := io.WriteString(w, Dump(prog))
	return err
}

// Dump renders prog as deterministic text: functions in name-sorted order,
// then the entry expression. Determinism is the whole point (SPEC_FULL.md
// §4.7's byte-identical-output property test) — Program.Funcs is a map, so
// every iteration over it here goes through a sorted key slice first.
func Dump(prog *machine.Program) string {
	var b strings.Builder

	names := make([]string, 0, len(prog.Funcs))
	for n := range prog.Funcs {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		p := newPrinter(&b)
		p.printFunc(name, prog.Funcs[name])
	}

	p := newPrinter(&b)
	fmt.Fprintf(&b, "entry: (%d slots)\n", prog.EntrySlots)
	ref := p.value(prog.Entry)
	fmt.Fprintf(&b, "  return %s\n", ref)

	return b.String()
}

type printer struct {
	out     *strings.Builder
	counter int
}

func newPrinter(out *strings.Builder) *printer {
	return &printer{out: out}
}

func (p *printer) temp() string {
	p.counter++
	return fmt.Sprintf("%%%d", p.counter)
}

func (p *printer) line(format string, args ...any) string {
	ref := p.temp()
	fmt.Fprintf(p.out, "  %s = %s\n", ref, fmt.Sprintf(format, args...))
	return ref
}

func (p *printer) printFunc(name string, fn *machine.Func) {
	params := make([]string, len(fn.Params))
	for i, pm := range fn.Params {
		mode := ""
		if pm.Inout {
			mode = "inout "
		}
		params[i] = fmt.Sprintf("%s%s: %s@%d", mode, pm.Name, metaName(pm.Meta), pm.Slot)
	}
	fmt.Fprintf(p.out, "func %s(%s) -> %s (%d slots):\n",
		name, strings.Join(params, ", "), metaName(fn.Output), fn.NumSlots)
	ref := p.value(fn.Body)
	fmt.Fprintf(p.out, "  return %s\n", ref)
}

func metaName(m *machine.Metatype) string {
	if m == nil {
		return "?"
	}
	return m.Name
}

// value renders n and every subexpression it needs, returning the ref that
// holds n's own result.
func (p *printer) value(n machine.Node) string {
	switch n := n.(type) {
	case machine.LitInt:
		return p.line("LitInt %d", n.Value)
	case machine.LitFloat:
		return p.line("LitFloat %g", n.Value)

	case machine.MakeArray:
		elems := p.values(n.Elems)
		return p.line("MakeArray [%s] elem=%s stack=%t", strings.Join(elems, ", "), metaName(n.ElemMeta), n.StackAlloc)

	case machine.MakeStruct:
		fields := p.values(n.Fields)
		return p.line("MakeStruct %s {%s}", n.Layout.Name, strings.Join(fields, ", "))

	case machine.MakeClosure:
		caps := make([]string, len(n.Captures))
		for i, c := range n.Captures {
			caps[i] = fmt.Sprintf("%s@%d", c.Name, c.Slot)
		}
		return p.line("MakeClosure %s [%s]", n.FuncName, strings.Join(caps, ", "))

	case machine.OperRef:
		return p.line("OperRef %s", operName(n.Kind))

	case machine.BinOp:
		lhs, rhs := p.value(n.Lhs), p.value(n.Rhs)
		return p.line("BinOp %s %s %s", operName(n.Kind), lhs, rhs)

	case machine.Call:
		callee := p.value(n.Callee)
		args := p.values(n.Args)
		return p.line("Call %s(%s)", callee, strings.Join(args, ", "))

	case machine.Cond:
		cond := p.value(n.Cond)
		succ := p.value(n.Succ)
		fail := p.value(n.Fail)
		return p.line("Cond %s ? %s : %s", cond, succ, fail)

	case machine.Cast:
		v := p.value(n.Value)
		return p.line("Cast %s -> %s", v, metaName(n.Target))

	case machine.Let:
		init := p.value(n.Init)
		fmt.Fprintf(p.out, "  slot%d = %s\n", n.Slot, init)
		return p.value(n.Body)

	case machine.LetFunc:
		clos := p.value(n.Lit)
		fmt.Fprintf(p.out, "  slot%d = %s\n", n.Slot, clos)
		return p.value(n.Body)

	case machine.Assign:
		if n.IsWildcard {
			v := p.value(n.Value)
			fmt.Fprintf(p.out, "  _ = %s\n", v)
			return p.value(n.Body)
		}
		target := p.addr(n.Target)
		v := p.value(n.Value)
		fmt.Fprintf(p.out, "  store %s <- %s\n", target, v)
		return p.value(n.Body)

	case machine.AddrRead:
		a := p.addr(n.Addr)
		return p.line("AddrRead %s", a)

	case machine.InoutRef:
		a := p.addr(n.Target)
		return p.line("InoutRef %s", a)

	case machine.GlobalFuncRef:
		return p.line("GlobalFuncRef %s", n.Name)

	case machine.Materialize:
		v := p.value(n.Value)
		return p.line("Materialize %s", v)
	}
	panic(fmt.Sprintf("emit: unhandled node type %T", n))
}

func (p *printer) values(ns []machine.Node) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = p.value(n)
	}
	return out
}

func (p *printer) addr(n machine.AddrNode) string {
	switch n := n.(type) {
	case machine.SlotAddr:
		return fmt.Sprintf("slot%d(%s)", n.Slot, n.Name)
	case machine.FieldAddr:
		base := p.addr(n.Base)
		return fmt.Sprintf("%s.%s", base, n.Name)
	case machine.ElemAddr:
		base := p.addr(n.Base)
		idx := p.value(n.Index)
		return fmt.Sprintf("%s[%s]", base, idx)
	case machine.Materialize:
		return p.value(n)
	}
	panic(fmt.Sprintf("emit: unhandled addr node type %T", n))
}

func operName(k machine.OperKind) string {
	switch k {
	case machine.OpEq:
		return "=="
	case machine.OpNe:
		return "!="
	case machine.OpLt:
		return "<"
	case machine.OpLe:
		return "<="
	case machine.OpGe:
		return ">="
	case machine.OpGt:
		return ">"
	case machine.OpAdd:
		return "+"
	case machine.OpSub:
		return "-"
	case machine.OpMul:
		return "*"
	case machine.OpDiv:
		return "/"
	}
	return "?"
}
