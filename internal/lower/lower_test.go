package lower

import (
	"testing"

	"github.com/mvsc-lang/mvsc/internal/check"
	"github.com/mvsc-lang/mvsc/internal/diag"
	"github.com/mvsc-lang/mvsc/internal/machine"
	"github.com/mvsc-lang/mvsc/internal/parse"
)

func lowerSource(t *testing.T, src string) (*machine.Program, *diag.Collector) {
	t.Helper()
	sink := diag.NewCollector()
	p := parse.New("test.mvs", src, sink)
	prog := p.ParseProgram()
	if sink.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", sink.All())
	}

	c := check.New(sink, "test.mvs")
	tp := c.CheckProgram(prog)
	if sink.HasErrors() {
		t.Fatalf("unexpected check errors: %v", sink.All())
	}

	return Lower(tp, sink, Options{}), sink
}

// TestLowerFactUsesDirectDispatch reproduces spec.md §8's Fib scenario:
// `fun fact(n) { if n > 1 ? n * fact(n - 1) ! 1 } in fact(6)`. Since fact
// captures nothing but itself, every call to it — the top-level fact(6)
// and the recursive fact(n - 1) inside its own body — must lower to a
// direct GlobalFuncRef, never to a closure read.
func TestLowerFactUsesDirectDispatch(t *testing.T) {
	src := `fun fact(n: Int) -> Int { if n > 1 ? n * fact(n - 1) ! 1 } in fact(6)`
	prog, _ := lowerSource(t, src)

	lf, ok := prog.Entry.(machine.LetFunc)
	if !ok {
		t.Fatalf("expected entry to be a LetFunc, got %T", prog.Entry)
	}
	funcName := lf.Lit.FuncName
	if len(lf.Lit.Captures) != 0 {
		t.Fatalf("expected fact's binding-site closure to have zero captures, got %d", len(lf.Lit.Captures))
	}

	topCall, ok := lf.Body.(machine.Call)
	if !ok {
		t.Fatalf("expected LetFunc body to be a Call, got %T", lf.Body)
	}
	ref, ok := topCall.Callee.(machine.GlobalFuncRef)
	if !ok || ref.Name != funcName {
		t.Fatalf("expected top-level fact(6) to dispatch directly to %q, got %#v", funcName, topCall.Callee)
	}

	fn, ok := prog.Funcs[funcName]
	if !ok {
		t.Fatalf("expected %q registered in Program.Funcs", funcName)
	}
	if len(fn.CaptureNames) != 0 {
		t.Fatalf("expected fact's Func to have zero capture slots, got %v", fn.CaptureNames)
	}

	cond, ok := fn.Body.(machine.Cond)
	if !ok {
		t.Fatalf("expected fact's body to lower to a Cond, got %T", fn.Body)
	}
	mul, ok := cond.Succ.(machine.BinOp)
	if !ok || mul.Kind != machine.OpMul {
		t.Fatalf("expected the succ branch to be a multiplication, got %#v", cond.Succ)
	}
	recCall, ok := mul.Rhs.(machine.Call)
	if !ok {
		t.Fatalf("expected fact(n - 1) to lower to a Call, got %T", mul.Rhs)
	}
	recRef, ok := recCall.Callee.(machine.GlobalFuncRef)
	if !ok || recRef.Name != funcName {
		t.Fatalf("expected the recursive call to dispatch directly to %q, got %#v", funcName, recCall.Callee)
	}
}

// TestLowerStructCopyIsolatesFields reproduces spec.md §8's COW scenario
// and checks the nested Let/Assign shape the lowering produces for it.
func TestLowerStructCopyIsolatesFields(t *testing.T) {
	src := `struct P { var f: Int; var s: Int } in var p = P(4, 2) in var q = p in q.s = 8 in p.s`
	prog, _ := lowerSource(t, src)

	letP, ok := prog.Entry.(machine.Let)
	if !ok {
		t.Fatalf("expected entry to bind p via Let, got %T", prog.Entry)
	}
	if _, ok := letP.Init.(machine.MakeStruct); !ok {
		t.Fatalf("expected p's initializer to be a MakeStruct, got %T", letP.Init)
	}

	letQ, ok := letP.Body.(machine.Let)
	if !ok {
		t.Fatalf("expected p's body to bind q via Let, got %T", letP.Body)
	}
	qInit, ok := letQ.Init.(machine.AddrRead)
	if !ok {
		t.Fatalf("expected q's initializer to read p's address, got %T", letQ.Init)
	}
	if sa, ok := qInit.Addr.(machine.SlotAddr); !ok || sa.Slot != letP.Slot {
		t.Fatalf("expected q to be initialized from p's own slot, got %#v", qInit.Addr)
	}

	assign, ok := letQ.Body.(machine.Assign)
	if !ok {
		t.Fatalf("expected q.s = 8 to lower to Assign, got %T", letQ.Body)
	}
	target, ok := assign.Target.(machine.FieldAddr)
	if !ok || target.Name != "s" {
		t.Fatalf("expected the assignment target to be field s, got %#v", assign.Target)
	}
	if sa, ok := target.Base.(machine.SlotAddr); !ok || sa.Slot != letQ.Slot {
		t.Fatalf("expected the assignment to target q's slot, not p's, got %#v", target.Base)
	}

	tail, ok := assign.Body.(machine.AddrRead)
	if !ok {
		t.Fatalf("expected the tail expression p.s to lower to AddrRead, got %T", assign.Body)
	}
	tailField, ok := tail.Addr.(machine.FieldAddr)
	if !ok || tailField.Name != "s" {
		t.Fatalf("expected the tail to read field s, got %#v", tail.Addr)
	}
	if sa, ok := tailField.Base.(machine.SlotAddr); !ok || sa.Slot != letP.Slot {
		t.Fatalf("expected the tail expression to read p's slot, not q's, got %#v", tailField.Base)
	}
}

// TestLowerClosureEquality reproduces spec.md §8's closure-equality
// scenario: `let f = () -> Int { 1 } in let g = f in f == g`.
func TestLowerClosureEquality(t *testing.T) {
	src := `let f = () -> Int { 1 } in let g = f in f == g`
	prog, _ := lowerSource(t, src)

	letF, ok := prog.Entry.(machine.Let)
	if !ok {
		t.Fatalf("expected entry to bind f via Let, got %T", prog.Entry)
	}
	closure, ok := letF.Init.(machine.MakeClosure)
	if !ok {
		t.Fatalf("expected f's initializer to be a MakeClosure, got %T", letF.Init)
	}
	if len(closure.Captures) != 0 {
		t.Fatalf("expected a non-capturing literal's closure to have zero captures, got %d", len(closure.Captures))
	}
	if _, ok := prog.Funcs[closure.FuncName]; !ok {
		t.Fatalf("expected %q registered in Program.Funcs", closure.FuncName)
	}

	letG, ok := letF.Body.(machine.Let)
	if !ok {
		t.Fatalf("expected f's body to bind g via Let, got %T", letF.Body)
	}

	eq, ok := letG.Body.(machine.BinOp)
	if !ok || eq.Kind != machine.OpEq {
		t.Fatalf("expected f == g to lower to an OpEq BinOp, got %#v", letG.Body)
	}
	lhs, ok := eq.Lhs.(machine.AddrRead)
	if !ok {
		t.Fatalf("expected the lhs to read f's slot, got %T", eq.Lhs)
	}
	if sa, ok := lhs.Addr.(machine.SlotAddr); !ok || sa.Slot != letF.Slot {
		t.Fatalf("expected the lhs to address f's slot, got %#v", lhs.Addr)
	}
}

// TestLowerRejectsRecursiveFuncBindingWithExtraCapture exercises the
// documented resolution of spec.md §9's "nested closures that capture
// already-captured names" open question: a recursive FuncBinding whose
// literal captures an additional outer binding (not just itself) is
// rejected with CodeUnsupportedCapture rather than silently lowered.
func TestLowerRejectsRecursiveFuncBindingWithExtraCapture(t *testing.T) {
	src := `let k = 10 in fun loop(n: Int) -> Int { if n > 0 ? k + loop(n - 1) ! 0 } in loop(3)`
	_, sink := lowerSource(t, src)

	if !sink.HasErrors() {
		t.Fatalf("expected lowering a self-recursive closure that also captures an outer binding to report an error")
	}
	found := false
	for _, d := range sink.All() {
		if d.Code == diag.CodeUnsupportedCapture {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a CodeUnsupportedCapture diagnostic, got %v", sink.All())
	}
}
