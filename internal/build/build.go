// Package build wires the compiler's phases into the single-file driver
// spec.md §6 describes and SPEC_FULL.md §4.11 extends to multiple files:
// lex/parse -> check (which folds in capture and escape analysis) -> lower
// -> emit, then (unless --emit-llvm) interpret. cmd/mvsc is a thin flag-parsing shell over
// this package.
package build

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/mvsc-lang/mvsc/internal/check"
	"github.com/mvsc-lang/mvsc/internal/diag"
	"github.com/mvsc-lang/mvsc/internal/emit"
	"github.com/mvsc-lang/mvsc/internal/interp"
	"github.com/mvsc-lang/mvsc/internal/lower"
	"github.com/mvsc-lang/mvsc/internal/machine"
	"github.com/mvsc-lang/mvsc/internal/manifest"
	"github.com/mvsc-lang/mvsc/internal/parse"
	"github.com/mvsc-lang/mvsc/internal/runtime"
)

// Request configures the compilation of a single entry file — the resolved
// union of spec.md §6's CLI flags and any mvsc.jsonc defaults they didn't
// override (SPEC_FULL.md §4.9).
type Request struct {
	Path              string
	Output            string // ignored when EmitLLVM; "" means <input>.o
	Optimize          bool
	Benchmark         int // 0 disables --benchmark
	EmitLLVM          bool
	NoPrint           bool
	MaxStackArraySize int
}

// Result reports what a single Run produced, for the CLI to print or the
// caller to inspect in tests.
type Result struct {
	Label      string // blake2b-256 content label, hex-encoded (§4.10)
	OutputPath string // "" when EmitLLVM (written to stdout instead)
	Printed    string // the entry value's printed form, when interpreted
}

// Run compiles and, with EmitLLVM, writes the LLVM-text form and stops;
// otherwise it writes the object form and then interprets the entry
// expression directly. stdout receives --emit-llvm
// text or the interpreted program's own prints (and --benchmark's summary
// line); sink receives every diagnostic every phase reports.
func Run(req Request, sink diag.Sink, stdout io.Writer) (Result, error) {
	req = applyManifestDefaults(req, sink)

	src, err := os.ReadFile(req.Path)
	if err != nil {
		return Result{}, fmt.Errorf("build: %w", err)
	}

	label := ContentLabel(src, req)

	p := parse.New(req.Path, string(src), sink)
	prog := p.ParseProgram()
	if sink.HasErrors() {
		return Result{Label: label}, fmt.Errorf("build: %s: parse errors", req.Path)
	}

	c := check.New(sink, req.Path)
	tp := c.CheckProgram(prog)
	if sink.HasErrors() {
		return Result{Label: label}, fmt.Errorf("build: %s: type errors", req.Path)
	}

	mp := lower.Lower(tp, sink, lower.Options{MaxStackArraySize: req.MaxStackArraySize})
	if sink.HasErrors() {
		return Result{Label: label}, fmt.Errorf("build: %s: lowering errors", req.Path)
	}

	if req.EmitLLVM {
		if err := emit.WriteLLVM(stdout, mp, label); err != nil {
			return Result{Label: label}, err
		}
		return Result{Label: label}, nil
	}

	out := req.Output
	if out == "" {
		out = objectPath(req.Path)
	}
	f, err := os.Create(out)
	if err != nil {
		return Result{Label: label}, fmt.Errorf("build: %w", err)
	}
	defer f.Close()
	if err := emit.WriteObject(f, mp, label); err != nil {
		return Result{Label: label}, err
	}

	res := Result{Label: label, OutputPath: out}

	prim := runtime.NewPrimitives(stdout)
	ip := interp.New(mp, prim)

	if req.Benchmark > 0 {
		val, elapsed := runBenchmark(ip, req.Benchmark)
		res.Printed = printValue(prim, val)
		fmt.Fprintf(stdout, "%d\n", elapsed.Nanoseconds())
		return res, nil
	}

	val := ip.Run()
	if !req.NoPrint {
		res.Printed = printValue(prim, val)
	}
	return res, nil
}

// runBenchmark reifies spec.md §6's --benchmark N flag at the driver level:
// mvs-calculus itself has no loop construct (spec.md §5.1's non-goals), so
// the "N-iteration timing loop" runs in Go around N independent
// evaluations of the same Program, each against a fresh frame (Run is
// stateless — see interp.Interp.Run). Only the final iteration's value is
// reported; all N contribute to the elapsed time.
func runBenchmark(ip *interp.Interp, n int) (machine.Value, time.Duration) {
	start := time.Now()
	var val machine.Value
	for i := 0; i < n; i++ {
		val = ip.Run()
	}
	return val, time.Since(start)
}

// printValue prints entry's final value through the same primitives an
// mvs-calculus program would call itself (print_i64/print_f64), so a
// top-level Int or Float entry matches spec.md §8's printed forms exactly
// ("720", "16.000000"). Any other value (a struct, array, or closure) has
// no primitive print counterpart in mvs-calculus, so it falls back to Go's
// default formatting — reachable only via --no-print's absence on a
// non-scalar entry, which spec.md's examples never exercise.
func printValue(prim *runtime.Primitives, val machine.Value) string {
	switch v := val.(type) {
	case int64:
		prim.PrintI64(v)
		return fmt.Sprintf("%d", v)
	case float64:
		prim.PrintF64(v)
		return fmt.Sprintf("%f", v)
	default:
		s := fmt.Sprint(v)
		fmt.Fprintln(prim.Out, s)
		return s
	}
}

func objectPath(entry string) string {
	ext := filepath.Ext(entry)
	return entry[:len(entry)-len(ext)] + ".o"
}

// applyManifestDefaults fills in zero-valued Request fields from mvsc.jsonc,
// if present next to req.Path. Explicit flags (non-zero fields) always win;
// this only backfills what the caller left at its zero value.
func applyManifestDefaults(req Request, sink diag.Sink) Request {
	m, ok, err := manifest.Load(req.Path)
	if err != nil {
		diag.Errorf(sink, diag.CodeManifest, diag.Span{File: req.Path}, "%v", err)
		return req
	}
	if !ok {
		return req
	}
	if req.MaxStackArraySize == 0 && m.MaxStackArraySize != nil {
		req.MaxStackArraySize = *m.MaxStackArraySize
	}
	if !req.Optimize && m.Optimize != nil {
		req.Optimize = *m.Optimize
	}
	return req
}

// ContentLabel is SPEC_FULL.md §4.10's build label: a blake2b-256 digest of
// the entry source bytes and the resolved flag set that would change the
// artifact's contents, hex-encoded. It is informational only — embedded in
// the .o header and the --emit-llvm comment — and is never consulted to
// skip a compilation; spec.md's "no incremental mode" rule still governs
// the pipeline itself.
func ContentLabel(src []byte, req Request) string {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only errors on a bad key length, and nil is always
		// valid; sha256 is the fallback of last resort, never expected to run.
		s := sha256.Sum256(append(src, flagBytes(req)...))
		return hex.EncodeToString(s[:])
	}
	h.Write(src)
	h.Write(flagBytes(req))
	return hex.EncodeToString(h.Sum(nil))
}

func flagBytes(req Request) []byte {
	return []byte(fmt.Sprintf("O=%t;bench=%d;llvm=%t;noprint=%t;maxstack=%d",
		req.Optimize, req.Benchmark, req.EmitLLVM, req.NoPrint, req.MaxStackArraySize))
}
