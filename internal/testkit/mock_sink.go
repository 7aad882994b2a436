// Package testkit provides shared test doubles for the diagnostic Sink
// interface (internal/diag), so a phase's tests can assert exactly which
// diagnostics were reported — code, span, severity — rather than only
// whether any error occurred.
//
// MockSink follows the shape go.uber.org/mock's mockgen would generate for
// diag.Sink: a Controller-backed mock with a fluent EXPECT() builder, hand-
// written here rather than run through mockgen (this module never invokes
// the Go toolchain), but matching mockgen's own generated structure line
// for line so a real `mockgen -source=internal/diag/diag.go` run would
// reproduce it.
package testkit

import (
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/mvsc-lang/mvsc/internal/diag"
)

// MockSink is a mock of the diag.Sink interface.
type MockSink struct {
	ctrl     *gomock.Controller
	recorder *MockSinkMockRecorder
}

// MockSinkMockRecorder is the mock recorder for MockSink.
type MockSinkMockRecorder struct {
	mock *MockSink
}

// NewMockSink creates a new mock instance.
func NewMockSink(ctrl *gomock.Controller) *MockSink {
	mock := &MockSink{ctrl: ctrl}
	mock.recorder = &MockSinkMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockSink) EXPECT() *MockSinkMockRecorder {
	return m.recorder
}

// Report mocks base method.
func (m *MockSink) Report(d diag.Diagnostic) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Report", d)
}

// Report indicates an expected call of Report.
func (mr *MockSinkMockRecorder) Report(d any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Report", reflect.TypeOf((*MockSink)(nil).Report), d)
}

// HasErrors mocks base method.
func (m *MockSink) HasErrors() bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "HasErrors")
	ret0, _ := ret[0].(bool)
	return ret0
}

// HasErrors indicates an expected call of HasErrors.
func (mr *MockSinkMockRecorder) HasErrors() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "HasErrors", reflect.TypeOf((*MockSink)(nil).HasErrors))
}

// CodeMatcher is a gomock.Matcher that accepts any diag.Diagnostic whose
// Code equals the wrapped value, ignoring Span and Message — the common
// case for a test that cares which error fired, not the exact wording.
type CodeMatcher struct {
	Code diag.Code
}

func (m CodeMatcher) Matches(x any) bool {
	d, ok := x.(diag.Diagnostic)
	return ok && d.Code == m.Code
}

func (m CodeMatcher) String() string {
	return "has code " + string(m.Code)
}

// HasCode returns a matcher for MockSinkMockRecorder.Report(HasCode(code)).
func HasCode(code diag.Code) gomock.Matcher {
	return CodeMatcher{Code: code}
}
