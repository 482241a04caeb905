package sketchvm

import "fmt"

// Severity classifies a Diagnostic the way the preprocessor and parser
// both need: accumulate-and-continue rather than raise, per spec §7's
// propagation policy for lex/parse/preprocessor errors.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is the shared record type produced by Preprocessor.Run and
// Parser.Parse. Both phases continue after recording one rather than
// unwinding, matching the teacher's accumulate-into-a-result-struct
// habit (google-kati/eval.go's evalResult/accessCache) instead of
// raising on the first problem found.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Line     int
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d: %s: %s", d.Severity, d.Line, d.Kind, d.Message)
}

// Diagnostics is an ordered list of Diagnostic, in the order encountered.
type Diagnostics []Diagnostic

func (ds *Diagnostics) add(sev Severity, kind Kind, line int, format string, args ...interface{}) {
	*ds = append(*ds, Diagnostic{
		Severity: sev,
		Kind:     kind,
		Line:     line,
		Message:  fmt.Sprintf(format, args...),
	})
}

// HasErrors reports whether any diagnostic at SeverityError was recorded.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
