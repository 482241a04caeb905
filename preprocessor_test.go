package sketchvm

import "strings"

import "testing"

func newTestPreprocessor(t *testing.T) *Preprocessor {
	t.Helper()
	profile, err := ProfileFor("ARDUINO_UNO")
	if err != nil {
		t.Fatalf("ProfileFor: %v", err)
	}
	return NewPreprocessor(profile)
}

func TestPreprocessorObjectLikeMacroExpansion(t *testing.T) {
	pp := newTestPreprocessor(t)
	res := pp.Run("#define LED_PIN 13\nint pin = LED_PIN;")
	if res.Diagnostics.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	if !strings.Contains(res.Source, "13") {
		t.Errorf("expanded source = %q, want it to contain 13", res.Source)
	}
	if strings.Contains(res.Source, "LED_PIN") {
		t.Errorf("expanded source = %q, macro name should be gone", res.Source)
	}
}

func TestPreprocessorFunctionLikeMacro(t *testing.T) {
	pp := newTestPreprocessor(t)
	res := pp.Run("#define MAX(a,b) ((a) > (b) ? (a) : (b))\nint m = MAX(1,2);")
	if res.Diagnostics.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	if !strings.Contains(res.Source, "1") || !strings.Contains(res.Source, "2") {
		t.Errorf("expanded source = %q, want substituted arguments", res.Source)
	}
}

func TestPreprocessorLineCountPreserved(t *testing.T) {
	pp := newTestPreprocessor(t)
	src := "int a;\n#define X 1\nint b;\nint c;"
	res := pp.Run(src)
	if got, want := len(strings.Split(res.Source, "\n")), len(strings.Split(src, "\n")); got != want {
		t.Errorf("output has %d lines, want %d (1:1 with input)", got, want)
	}
}

func TestPreprocessorIfdefExcludesInactiveBranch(t *testing.T) {
	pp := newTestPreprocessor(t)
	res := pp.Run("#ifdef NOT_DEFINED\nint excludedVar;\n#else\nint includedVar;\n#endif")
	if res.Diagnostics.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	if strings.Contains(res.Source, "excludedVar") {
		t.Error("inactive #ifdef branch leaked into output")
	}
	if !strings.Contains(res.Source, "includedVar") {
		t.Error("active #else branch missing from output")
	}
}

func TestPreprocessorIfElifElse(t *testing.T) {
	pp := newTestPreprocessor(t)
	res := pp.Run("#if 0\nint a;\n#elif 1\nint b;\n#else\nint c;\n#endif")
	if res.Diagnostics.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics)
	}
	if strings.Contains(res.Source, "int a") || strings.Contains(res.Source, "int c") {
		t.Errorf("unselected branches leaked: %q", res.Source)
	}
	if !strings.Contains(res.Source, "int b") {
		t.Errorf("selected #elif branch missing: %q", res.Source)
	}
}

func TestPreprocessorPlatformMacrosPredefined(t *testing.T) {
	pp := newTestPreprocessor(t)
	res := pp.Run("#ifdef ARDUINO_ARCH_AVR\nint onAVR;\n#endif")
	if !strings.Contains(res.Source, "onAVR") {
		t.Error("platform-predefined macro ARDUINO_ARCH_AVR not visible to #ifdef")
	}
}

func TestPreprocessorIncludeActivatesLibrary(t *testing.T) {
	pp := newTestPreprocessor(t)
	res := pp.Run(`#include <Servo.h>`)
	if !res.ActiveLibraries["Servo"] {
		t.Errorf("ActiveLibraries = %v, want Servo activated", res.ActiveLibraries)
	}
}

func TestPreprocessorUnterminatedConditionalReportsError(t *testing.T) {
	pp := newTestPreprocessor(t)
	res := pp.Run("#if 1\nint a;")
	if !res.Diagnostics.HasErrors() {
		t.Error("unterminated #if: want a diagnostic, got none")
	}
}

func TestPPExprDefinedOperator(t *testing.T) {
	pp := newTestPreprocessor(t)
	pp.macros.define(&Macro{Name: "FOO", Body: literalTokens("1")})
	var diag Diagnostics
	truth, err := pp.evalPPExpr(1, "defined(FOO)", &diag)
	if err != nil {
		t.Fatalf("evalPPExpr: %v", err)
	}
	if !truth {
		t.Error("defined(FOO) = false, want true")
	}
	truth2, _ := pp.evalPPExpr(1, "defined(BAR)", &diag)
	if truth2 {
		t.Error("defined(BAR) = true, want false")
	}
}

func TestPPExprArithmeticAndPrecedence(t *testing.T) {
	pp := newTestPreprocessor(t)
	var diag Diagnostics
	for _, tc := range []struct {
		expr string
		want bool
	}{
		{"1 + 2 * 3 == 7", true},
		{"(1 + 2) * 3 == 9", true},
		{"1 && 0", false},
		{"1 || 0", true},
		{"!0", true},
		{"5 > 3 && 2 < 4", true},
	} {
		got, err := pp.evalPPExpr(1, tc.expr, &diag)
		if err != nil {
			t.Fatalf("%q: %v", tc.expr, err)
		}
		if got != tc.want {
			t.Errorf("%q = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestPPExprDivisionByZeroReportsDiagnostic(t *testing.T) {
	pp := newTestPreprocessor(t)
	var diag Diagnostics
	pp.evalPPExpr(1, "1 / 0", &diag)
	if !diag.HasErrors() {
		t.Error("1/0 in #if: want a diagnostic, got none")
	}
}
