package emit

import (
	"strings"
	"testing"

	"github.com/mvsc-lang/mvsc/internal/check"
	"github.com/mvsc-lang/mvsc/internal/diag"
	"github.com/mvsc-lang/mvsc/internal/lower"
	"github.com/mvsc-lang/mvsc/internal/machine"
	"github.com/mvsc-lang/mvsc/internal/parse"
)

func lowerSource(t *testing.T, src string) *machine.Program {
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
	mp := lower.Lower(tp, sink, lower.Options{})
	if sink.HasErrors() {
		t.Fatalf("unexpected lowering errors: %v", sink.All())
	}
	return mp
}

const factSrc = `fun fact(n: Int) -> Int { if n > 1 ? n * fact(n - 1) ! 1 } in fact(6)`

// Two lowerings of identical source must dump to byte-identical text —
// SPEC_FULL.md §4.7's reproducibility property. Map iteration over
// Program.Funcs would break this if Dump ever iterated it unsorted.
func TestDumpIsDeterministic(t *testing.T) {
	a := Dump(lowerSource(t, factSrc))
	b := Dump(lowerSource(t, factSrc))
	if a != b {
		t.Fatalf("expected identical dumps for identical source, got:\n%s\n---\n%s", a, b)
	}
}

func TestDumpMentionsDirectDispatch(t *testing.T) {
	out := Dump(lowerSource(t, factSrc))
	if !strings.Contains(out, "GlobalFuncRef") {
		t.Fatalf("expected fact's self-call to show up as a GlobalFuncRef, got:\n%s", out)
	}
	if !strings.Contains(out, "func fact$") {
		t.Fatalf("expected a func fact$N(...) line group, got:\n%s", out)
	}
}

func TestWriteObjectHeader(t *testing.T) {
	var b strings.Builder
	if err := WriteObject(&b, lowerSource(t, factSrc), "deadbeef"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.SplitN(b.String(), "\n", 2)
	if lines[0] != "mvsco1 deadbeef" {
		t.Fatalf("expected header %q, got %q", "mvsco1 deadbeef", lines[0])
	}
}

func TestWriteLLVMHeader(t *testing.T) {
	var b strings.Builder
	if err := WriteLLVM(&b, lowerSource(t, factSrc), "deadbeef"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(b.String(), "; mvsc label deadbeef\n") {
		t.Fatalf("expected a comment header, got %q", b.String())
	}
}
