package testkit

import (
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/mvsc-lang/mvsc/internal/diag"
)

func TestMockSinkRecordsExpectedReport(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := NewMockSink(ctrl)

	sink.EXPECT().Report(HasCode(diag.CodeUndefinedBinding))
	sink.EXPECT().HasErrors().Return(true)

	sink.Report(diag.Diagnostic{Severity: diag.Error, Code: diag.CodeUndefinedBinding, Message: "x is not defined"})
	if !sink.HasErrors() {
		t.Fatalf("expected HasErrors to return true")
	}
}
