// Command mvsc is the mvs-calculus compiler driver: spec.md §6's flag
// surface (default object emission, --emit-llvm, --benchmark, --no-print,
// --max-stack-array-size) plus SPEC_FULL.md §4.11's multi-file and --watch
// extensions.
//
// Flag parsing follows the same flag.FlagSet-plus-os.Exit(1)-on-error shape
// Heliodex-coputer/wallflower/main.go uses for its own subcommands, adapted
// from wallflower's single-command switch to mvsc's flat "one or more input
// files plus flags" surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mvsc-lang/mvsc/internal/build"
	"github.com/mvsc-lang/mvsc/internal/diag"
	"github.com/mvsc-lang/mvsc/internal/watch"
)

func main() {
	fs := flag.NewFlagSet("mvsc", flag.ExitOnError)
	output := fs.String("o", "", "output path (single-file mode only; default <input>.o)")
	optimize := fs.Bool("O", false, "enable optimization")
	benchmark := fs.Int("benchmark", 0, "run the entry expression N times and print the elapsed time")
	emitLLVM := fs.Bool("emit-llvm", false, "print the lowered representation instead of emitting an object")
	noPrint := fs.Bool("no-print", false, "suppress the default print of the entry expression's value")
	maxStackArraySize := fs.Int("max-stack-array-size", 0, "bound stack-allocated arrays (0 uses the compiler's own default)")
	watchFlag := fs.Bool("watch", false, "re-run the build whenever an input file or its mvsc.jsonc changes")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: mvsc <input.mvs>... [-o <output>] [-O] [--benchmark N] [--emit-llvm] [--no-print] [--max-stack-array-size N] [--watch]")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	inputs := fs.Args()
	if len(inputs) == 0 {
		fs.Usage()
		os.Exit(2)
	}
	if *output != "" && len(inputs) > 1 {
		fmt.Fprintln(os.Stderr, "mvsc: -o requires exactly one input file")
		os.Exit(2)
	}

	reqs := make([]build.Request, len(inputs))
	for i, path := range inputs {
		reqs[i] = build.Request{
			Path:              path,
			Output:            *output,
			Optimize:          *optimize,
			Benchmark:         *benchmark,
			EmitLLVM:          *emitLLVM,
			NoPrint:           *noPrint,
			MaxStackArraySize: *maxStackArraySize,
		}
	}

	if *watchFlag {
		runWatch(reqs)
		return
	}

	if runAll(reqs) {
		os.Exit(1)
	}
}

// runAll compiles every request (concurrently, when there's more than one —
// SPEC_FULL.md §4.11) and reports diagnostics for each. It returns true iff
// any file failed, so main can pick the right exit code.
func runAll(reqs []build.Request) (failed bool) {
	results, err := build.RunAll(context.Background(), reqs, os.Stdout)
	if err != nil && len(results) == 0 {
		fmt.Fprintln(os.Stderr, "mvsc:", err)
		return true
	}

	f := diag.NewFormatter()
	for _, req := range reqs {
		if src, err := os.ReadFile(req.Path); err == nil {
			f.LoadSource(req.Path, string(src))
		}
	}

	for _, r := range results {
		f.Format(os.Stderr, r.Sink.All())
		if r.Err != nil {
			failed = true
		}
	}
	return failed
}

// runWatch rebuilds reqs on every change to their inputs or manifests,
// grounded on wallflower/watch.go's debounced notify.Watch loop
// (internal/watch.Path). It runs until interrupted.
func runWatch(reqs []build.Request) {
	fmt.Fprintln(os.Stderr, "mvsc: watching for changes, press Ctrl+C to stop")
	rebuild := func() {
		if runAll(reqs) {
			fmt.Fprintln(os.Stderr, "mvsc: build failed")
		} else {
			fmt.Fprintln(os.Stderr, "mvsc: build succeeded")
		}
	}
	rebuild()

	ctx := context.Background()
	for _, req := range reqs {
		req := req
		go func() {
			if err := watch.Path(ctx, req.Path, watch.ManifestPath(req.Path), rebuild); err != nil {
				fmt.Fprintln(os.Stderr, "mvsc: watch error:", err)
			}
		}()
	}
	select {}
}
