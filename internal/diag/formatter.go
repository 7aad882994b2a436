package diag

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Formatter renders Diagnostics as "file:L:C: error: <message>" (or
// "L:C: ..." when the span has no file) followed by a highlighted source
// excerpt, per spec.md §7.
type Formatter struct {
	sourceCache map[string][]string
}

func NewFormatter() *Formatter {
	return &Formatter{sourceCache: make(map[string][]string)}
}

// LoadSource registers the text of a file so excerpts can be rendered for
// diagnostics pointing into it. Filenames are used as cache keys only; the
// compiler never re-reads a file off disk on the formatter's behalf.
func (f *Formatter) LoadSource(filename, text string) {
	f.sourceCache[filename] = strings.Split(text, "\n")
}

// Format writes every diagnostic in d, sorted by file then position, to w.
func (f *Formatter) Format(w io.Writer, ds []Diagnostic) {
	sorted := append([]Diagnostic(nil), ds...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Span.File != b.Span.File {
			return a.Span.File < b.Span.File
		}
		if a.Span.Start.Line != b.Span.Start.Line {
			return a.Span.Start.Line < b.Span.Start.Line
		}
		return a.Span.Start.Column < b.Span.Start.Column
	})

	for _, d := range sorted {
		fmt.Fprintf(w, "%s: %s: %s\n", d.Span, d.Severity, d.Message)
		f.excerpt(w, d.Span)
	}
}

func (f *Formatter) excerpt(w io.Writer, span Span) {
	lines, ok := f.sourceCache[span.File]
	if !ok || span.Start.Line < 1 || span.Start.Line > len(lines) {
		return
	}

	line := lines[span.Start.Line-1]
	fmt.Fprintf(w, "  %s\n", line)

	width := span.End.Column - span.Start.Column
	if span.End.Line != span.Start.Line || width < 1 {
		width = 1
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", max(span.Start.Column-1, 0)), strings.Repeat("^", width))
}
