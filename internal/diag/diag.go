// Package diag defines the diagnostic model shared by every compiler phase:
// lexer, parser, type checker, and code generator all report through a Sink
// rather than returning a Go error per call, since mvs-calculus type errors
// accumulate instead of aborting the pass that found them.
package diag

import "fmt"

// Position is a 1-based line/column pair.
type Position struct {
	Line, Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span is a half-open source range within one file.
type Span struct {
	File       string
	Start, End Position
}

func (s Span) String() string {
	if s.File == "" {
		return s.Start.String()
	}
	return fmt.Sprintf("%s:%s", s.File, s.Start)
}

// Severity classifies a Diagnostic. Only Error halts compilation; the CLI's
// exit code is non-zero iff any reported Diagnostic has Severity Error.
type Severity int

const (
	Error Severity = iota
	Warning
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "note"
	}
}

// Code is a stable identifier for a diagnostic kind, matching the taxonomy
// in spec.md §7.
type Code string

const (
	// Lex/parse
	CodeInvalidToken    Code = "invalid-token"
	CodeInvalidLiteral  Code = "invalid-literal"
	CodeUnexpectedToken Code = "unexpected-token"
	CodeMissingToken    Code = "missing-token"
	CodeMissingSig      Code = "missing-property-annotation"

	// Name resolution
	CodeUndefinedBinding Code = "undefined-binding"
	CodeUndefinedType    Code = "undefined-type"
	CodeInvalidWildcard  Code = "invalid-use-of-wildcard"
	CodeMissingMember    Code = "missing-member"

	// Arity & shape
	CodeArity            Code = "invalid-argument-count"
	CodeCallNonFunction  Code = "call-to-non-function"
	CodeIndexNonArray    Code = "indexing-in-non-array-type"
	CodeAmbiguousElem    Code = "ambiguous-element-type"

	// Mutability
	CodeImmutableLvalue Code = "immutable-lvalue"
	CodeImmutableInout  Code = "immutable-inout-argument"

	// MVS discipline
	CodeExclusiveAccess Code = "exclusive-access-violation"
	CodeDuplicateDecl   Code = "duplicate-declaration"

	// Operators
	CodeUndefinedOperator  Code = "undefined-operator"
	CodeAmbiguousOperator  Code = "ambiguous-operator-reference"

	// Conversions
	CodeInvalidConversion Code = "invalid-conversion"

	// Annotation
	CodeMissingSignature Code = "binding-without-signature-or-initializer"

	// Manifest / driver (added)
	CodeManifest Code = "invalid-manifest"

	// Code generation (added): a program the checker accepts but the code
	// generator cannot lower without the proper-multi-level-closure support
	// spec.md §9 leaves as an open question.
	CodeUnsupportedCapture Code = "unsupported-capture"
)

// Diagnostic is one reported problem.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Span     Span
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Span, d.Severity, d.Message)
}

// Sink accumulates diagnostics during a single compilation. Phases never
// return a fatal Go error for a type or lex/parse problem; they call
// Report and continue, per spec.md §7's "local recovery" rule.
type Sink interface {
	Report(Diagnostic)
	HasErrors() bool
}

// Collector is the default Sink: an in-memory, order-preserving list.
type Collector struct {
	diags []Diagnostic
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Report(d Diagnostic) {
	c.diags = append(c.diags, d)
}

func (c *Collector) HasErrors() bool {
	for _, d := range c.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

func (c *Collector) All() []Diagnostic {
	return c.diags
}

// Errorf reports an Error-severity diagnostic with the given code and span.
func Errorf(sink Sink, code Code, span Span, format string, args ...any) {
	sink.Report(Diagnostic{
		Severity: Error,
		Code:     code,
		Span:     span,
		Message:  fmt.Sprintf(format, args...),
	})
}
