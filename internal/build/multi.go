package build

import (
	"context"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mvsc-lang/mvsc/internal/diag"
)

// FileResult pairs one Request's outcome with the file it came from, so a
// caller driving RunAll can report failures against the right path even
// though compilations complete out of order.
type FileResult struct {
	Path   string
	Result Result
	Sink   *diag.Collector
	Err    error
}

// RunAll compiles every request concurrently (SPEC_FULL.md §4.11: each
// file is an independent unit; concurrency is confined to independent
// top-level units, never within a single compilation's own phases — one
// Request's parse/check/lower/emit sequence always runs on a single
// goroutine). stdout writes from different files are serialized against
// each other so --emit-llvm/interpreted output from one file is never
// interleaved mid-line with another's.
//
// A failing file does not cancel the others; every request runs to
// completion and RunAll returns the first error only after all finish,
// alongside the full set of per-file results.
func RunAll(ctx context.Context, reqs []Request, stdout io.Writer) ([]FileResult, error) {
	results := make([]FileResult, len(reqs))
	var mu sync.Mutex // serializes stdout writes across goroutines

	g, _ := errgroup.WithContext(ctx)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			sink := diag.NewCollector()
			var buf syncWriter
			buf.mu = &mu
			buf.w = stdout

			res, err := Run(req, sink, &buf)
			results[i] = FileResult{Path: req.Path, Result: res, Sink: sink, Err: err}
			return nil // per-file errors are reported via FileResult, not the group
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	for _, r := range results {
		if r.Err != nil {
			return results, r.Err
		}
	}
	return results, nil
}

// syncWriter serializes concurrent writers onto a shared io.Writer without
// buffering: each Write call takes the lock for its own duration only, so
// one file's multi-line output can still interleave with another's between
// calls — good enough for the line-oriented output every phase produces,
// and simpler than accumulating each file's output before a final flush.
type syncWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
