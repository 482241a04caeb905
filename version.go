package sketchvm

// InterpreterVersion and ParserVersion are reported in the VERSION_INFO
// command emitted at the start of every run (spec §4.5.1 step 2). Kept
// as separate constants because the CompactAST format, the parser
// grammar, and the interpreter's command-stream shape can each evolve
// independently of one another.
const (
	InterpreterVersion = "1.0.0"
	ParserVersion      = "1.0.0"
)
