package check

import (
	"testing"

	"github.com/mvsc-lang/mvsc/internal/ast"
	"github.com/mvsc-lang/mvsc/internal/diag"
	"github.com/mvsc-lang/mvsc/internal/parse"
)

func checkSource(t *testing.T, src string) (TProgram, *diag.Collector) {
	t.Helper()
	sink := diag.NewCollector()
	p := parse.New("test.mvs", src, sink)
	prog := p.ParseProgram()
	if sink.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", sink.All())
	}

	c := New(sink, "test.mvs")
	return c.CheckProgram(prog), sink
}

// Every TExpr reachable from the entry carries a concrete, non-nil Type —
// spec.md §8's "every AST node ends with a concrete semantic type"
// invariant — and TC never panics walking a well-formed program.
func TestCheckProgramAssignsTypeToEveryNode(t *testing.T) {
	src := `struct P { var f: Int; var s: Int } in var p = P(4, 2) in var q = p in q.s = 8 in p.s`
	tp, sink := checkSource(t, src)
	if sink.HasErrors() {
		t.Fatalf("unexpected check errors: %v", sink.All())
	}

	var walk func(e TExpr)
	walk = func(e TExpr) {
		if e.Type == nil {
			t.Fatalf("node of kind %v has a nil Type", e.Kind)
		}
		forEachChild(e, walk)
	}
	walk(tp.Entry)
}

// Transitive immutability (spec.md §4.1): a property reached through a Let
// binding is immutable even if the struct declares that property `var`.
func TestTransitiveImmutabilityThroughLetBinding(t *testing.T) {
	src := `struct P { var f: Int } in let p = P(1) in p.f = 2 in p.f`
	_, sink := checkSource(t, src)
	if !sink.HasErrors() {
		t.Fatalf("expected assigning through a Let-bound struct's var field to be rejected")
	}
	if !hasCode(sink, diag.CodeImmutableLvalue) {
		t.Fatalf("expected CodeImmutableLvalue, got %v", sink.All())
	}
}

// A `var`-declared struct field reached through a `var` binding stays
// mutable — the counterpart to the immutability test above.
func TestVarFieldThroughVarBindingIsMutable(t *testing.T) {
	src := `struct P { var f: Int } in var p = P(1) in p.f = 2 in p.f`
	_, sink := checkSource(t, src)
	if sink.HasErrors() {
		t.Fatalf("unexpected check errors: %v", sink.All())
	}
}

// A struct field declared `let` stays immutable even when reached through
// a `var` binding — mutability is the conjunction of the binding's and
// every intermediate property's own mutability, not just the binding's.
func TestLetFieldStaysImmutableThroughVarBinding(t *testing.T) {
	src := `struct P { let f: Int } in var p = P(1) in p.f = 2 in p.f`
	_, sink := checkSource(t, src)
	if !hasCode(sink, diag.CodeImmutableLvalue) {
		t.Fatalf("expected CodeImmutableLvalue assigning to a let field, got %v", sink.All())
	}
}

// Exclusive access (spec.md §4.1.1): two inout arguments that provably
// alias the same path are rejected, but two that provably do not are
// accepted.
func TestExclusiveAccessRejectsAliasedInoutArguments(t *testing.T) {
	src := `struct U{} in fun sw(x: inout Int, y: inout Int) -> U { let t = x in x = y in y = t in U() } in ` +
		`var num = 1 in _ = sw(&num, &num) in num`
	_, sink := checkSource(t, src)
	if !hasCode(sink, diag.CodeExclusiveAccess) {
		t.Fatalf("expected CodeExclusiveAccess for sw(&num, &num), got %v", sink.All())
	}
}

func TestExclusiveAccessAcceptsDistinctInoutArguments(t *testing.T) {
	src := `struct P { var f: Int; var s: Int } in struct U{} in ` +
		`fun sw(x: inout Int, y: inout Int) -> U { let t = x in x = y in y = t in U() } in ` +
		`var p = P(4, 2) in _ = sw(&p.f, &p.s) in p.f`
	_, sink := checkSource(t, src)
	if sink.HasErrors() {
		t.Fatalf("unexpected check errors for distinct inout paths: %v", sink.All())
	}
}

// Array elements at distinct literal indices never overlap; the same
// literal index does; a dynamic index is conservatively assumed to.
func TestMayOverlapArrayIndices(t *testing.T) {
	a := ast.ElemPath{Base: ast.NamePath{Name: "arr"}, Index: ast.IntExpr{Value: 0}}
	b := ast.ElemPath{Base: ast.NamePath{Name: "arr"}, Index: ast.IntExpr{Value: 1}}
	if MayOverlap(a, b) {
		t.Fatalf("expected arr[0] and arr[1] not to overlap")
	}

	c := ast.ElemPath{Base: ast.NamePath{Name: "arr"}, Index: ast.IntExpr{Value: 0}}
	if !MayOverlap(a, c) {
		t.Fatalf("expected arr[0] and arr[0] to overlap")
	}

	dyn := ast.ElemPath{Base: ast.NamePath{Name: "arr"}, Index: ast.NamePath{Name: "i"}}
	if !MayOverlap(a, dyn) {
		t.Fatalf("expected a dynamic index to be conservatively assumed to overlap")
	}
}

func TestMayOverlapDifferentRootsNeverOverlap(t *testing.T) {
	a := ast.PropPath{Base: ast.NamePath{Name: "p"}, Name: "f"}
	b := ast.PropPath{Base: ast.NamePath{Name: "q"}, Name: "f"}
	if MayOverlap(a, b) {
		t.Fatalf("expected p.f and q.f (different roots) not to overlap")
	}
}

// Capture discipline (spec.md §4.2): a function literal's captures are the
// free names in its body, sorted by name, resolved against the *outer* Γ —
// not the literal's own parameters or locals.
func TestCaptureAnalysisExcludesParamsAndLocals(t *testing.T) {
	src := `let k = 1 in let m = 2 in let f = (n: Int) -> Int { let j = n in j + k + m } in f(0)`
	tp, sink := checkSource(t, src)
	if sink.HasErrors() {
		t.Fatalf("unexpected check errors: %v", sink.All())
	}

	fn := findFuncLit(tp.Entry)
	if fn == nil {
		t.Fatalf("expected to find a function literal in the checked program")
	}
	names := make([]string, len(fn.Captures))
	for i, c := range fn.Captures {
		names[i] = c.Name
	}
	if len(names) != 2 || names[0] != "k" || names[1] != "m" {
		t.Fatalf("expected captures [k, m] sorted by name, got %v", names)
	}
}

// A self-recursive FuncBinding whose literal refers only to its own name
// captures exactly that name — the common case §4.4's lowering table
// special-cases into direct dispatch (internal/lower recognizes it by the
// self capture being the only one).
func TestCaptureAnalysisSelfRecursionCapturesOnlyItself(t *testing.T) {
	src := `fun fact(n: Int) -> Int { if n > 1 ? n * fact(n - 1) ! 1 } in fact(6)`
	tp, sink := checkSource(t, src)
	if sink.HasErrors() {
		t.Fatalf("unexpected check errors: %v", sink.All())
	}
	fn := findFuncLit(tp.Entry)
	if fn == nil {
		t.Fatalf("expected to find fact's function literal")
	}
	if len(fn.Captures) != 1 || fn.Captures[0].Name != "fact" {
		t.Fatalf("expected fact to capture only itself, got %v", fn.Captures)
	}
}

// Type preservation sanity: a cast between identical types is always
// accepted, and a cast between two unrelated concrete types (neither side
// Any) is always rejected.
func TestCastRequiresAnyUnlessTypesMatch(t *testing.T) {
	_, sink := checkSource(t, `1 as Int`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors casting Int to Int: %v", sink.All())
	}

	_, sink2 := checkSource(t, `1 as Float`)
	if !hasCode(sink2, diag.CodeInvalidConversion) {
		t.Fatalf("expected CodeInvalidConversion casting Int to Float with neither side Any, got %v", sink2.All())
	}
}

func TestCastThroughAnyIsAccepted(t *testing.T) {
	_, sink := checkSource(t, `(1 as Any) as Int`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors round-tripping Int through Any: %v", sink.All())
	}
}

// The Unit struct (spec.md §4.1's "canonical empty struct") is available
// without a user declaration.
func TestUnitIsABuiltinStruct(t *testing.T) {
	_, sink := checkSource(t, `struct Box { var u: Unit } in Box(Unit())`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors referencing the builtin Unit struct: %v", sink.All())
	}
}

// uptime/sqrt (spec.md §4.1's optional builtins) resolve by name with no
// declaration required, but a program may still shadow them.
func TestOptionalBuiltinsResolveByName(t *testing.T) {
	_, sink := checkSource(t, `sqrt(9.0)`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors calling the builtin sqrt: %v", sink.All())
	}
}

func TestProgramMayShadowOptionalBuiltin(t *testing.T) {
	_, sink := checkSource(t, `let sqrt = (x: Float) -> Float { x } in sqrt(9.0)`)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors shadowing sqrt with a local binding: %v", sink.All())
	}
}

func hasCode(sink *diag.Collector, code diag.Code) bool {
	for _, d := range sink.All() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func findFuncLit(e TExpr) *TFunc {
	if e.FuncLit != nil {
		return e.FuncLit
	}
	var found *TFunc
	forEachChild(e, func(c TExpr) {
		if found == nil {
			found = findFuncLit(c)
		}
	})
	return found
}
