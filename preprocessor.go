package sketchvm

import (
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// condFrame is one level of #if/#ifdef/#ifndef nesting. parentActive
// is whether the enclosing frame is emitting; anyTaken tracks whether any
// branch so far in this chain has already been selected (so a
// trailing #else is skipped once an earlier branch matched).
type condFrame struct {
	parentActive  bool
	branchActive  bool
	anyTaken      bool
	sawElse       bool
}

// Preprocessor expands macros and evaluates conditional-compilation
// directives (spec §4.2). Directive/conditional evaluation dispatch
// ("evaluate one directive against a mutable environment") is grounded
// on google-kati/eval.go's per-statement eval(stmt) switch.
type Preprocessor struct {
	profile   *Profile
	macros    *macroTable
	activeLib map[string]bool
	diag      Diagnostics
	line      int
}

// NewPreprocessor constructs a Preprocessor seeded with the given
// Platform Profile's predefined macros and active library set (spec
// §4.1/§4.2). Grounded on google-kati/bootstrap.go's pattern of
// seeding builtin definitions before the real input is processed.
func NewPreprocessor(profile *Profile) *Preprocessor {
	pp := &Preprocessor{
		profile:   profile,
		macros:    newMacroTable(),
		activeLib: make(map[string]bool),
	}
	for name, val := range profile.Macros {
		pp.macros.define(&Macro{Name: name, Body: literalTokens(val), Origin: OriginPlatform})
	}
	for lib := range profile.ActiveLibraries {
		pp.activeLib[lib] = true
	}
	return pp
}

func literalTokens(s string) []Token {
	diag := Diagnostics{}
	lx := NewLexer([]byte(s), &diag)
	var toks []Token
	for {
		t := lx.Next()
		if t.Kind == TokEOF {
			break
		}
		toks = append(toks, t)
	}
	return toks
}

// Result is the output of a Preprocessor run: clean source text ready
// for the lexer/parser, plus the final active-library set and any
// diagnostics (spec §4.2 "Output").
type Result struct {
	Source          string
	ActiveLibraries map[string]bool
	Diagnostics     Diagnostics
}

// Run expands macros and strips directives from src, preserving a
// 1:1 line count with the input so downstream token line numbers still
// correspond to original source lines (spec §4.2 "Output invariants").
func (pp *Preprocessor) Run(src string) Result {
	lines := strings.Split(src, "\n")
	var out []string
	var stack []condFrame

	for i := 0; i < len(lines); i++ {
		pp.line = i + 1
		raw := lines[i]

		// line continuation: merge backslash-continued physical lines
		// into one logical line, but keep the physical line count by
		// emitting blank continuation lines.
		joined := raw
		consumed := 0
		for strings.HasSuffix(strings.TrimRight(joined, " \t"), "\\") && i+1 < len(lines) {
			trimmed := strings.TrimRight(joined, " \t")
			joined = trimmed[:len(trimmed)-1] + " " + lines[i+1]
			i++
			consumed++
		}

		active := pp.isActive(stack)
		trimmed := strings.TrimSpace(joined)
		if strings.HasPrefix(trimmed, "#") {
			pp.handleDirective(trimmed[1:], &stack, active)
			out = append(out, "")
			for k := 0; k < consumed; k++ {
				out = append(out, "")
			}
			continue
		}

		if !active {
			out = append(out, "")
			for k := 0; k < consumed; k++ {
				out = append(out, "")
			}
			continue
		}

		out = append(out, pp.expandLine(joined))
		for k := 0; k < consumed; k++ {
			out = append(out, "")
		}
	}

	for range stack {
		pp.diag.add(SeverityError, KindPreprocessor, pp.line, "unterminated conditional (#endif missing)")
	}

	return Result{
		Source:          strings.Join(out, "\n"),
		ActiveLibraries: pp.activeLib,
		Diagnostics:     pp.diag,
	}
}

func (pp *Preprocessor) isActive(stack []condFrame) bool {
	for _, f := range stack {
		if !f.parentActive || !f.branchActive {
			return false
		}
	}
	return true
}

func (pp *Preprocessor) handleDirective(body string, stack *[]condFrame, active bool) {
	body = strings.TrimSpace(body)
	kw, rest := splitDirective(body)

	switch kw {
	case "define":
		if active {
			pp.handleDefine(rest)
		}
	case "undef":
		if active {
			pp.macros.undef(strings.TrimSpace(rest))
		}
	case "include":
		if active {
			pp.handleInclude(rest)
		}
	case "if":
		parentActive := pp.isActive(*stack)
		truth := false
		if parentActive {
			var err error
			truth, err = pp.evalPPExpr(pp.line, rest, &pp.diag)
			if err != nil {
				pp.diag.add(SeverityError, KindPreprocessor, pp.line, "%v", err)
			}
		}
		*stack = append(*stack, condFrame{parentActive: parentActive, branchActive: truth, anyTaken: truth})
	case "ifdef", "ifndef":
		parentActive := pp.isActive(*stack)
		truth := false
		if parentActive {
			defined := pp.macros.isDefined(strings.TrimSpace(rest))
			truth = defined == (kw == "ifdef")
		}
		*stack = append(*stack, condFrame{parentActive: parentActive, branchActive: truth, anyTaken: truth})
	case "elif":
		if len(*stack) == 0 {
			pp.diag.add(SeverityError, KindPreprocessor, pp.line, "#elif without #if")
			return
		}
		top := &(*stack)[len(*stack)-1]
		if top.sawElse {
			pp.diag.add(SeverityError, KindPreprocessor, pp.line, "#elif after #else")
			return
		}
		if !top.parentActive || top.anyTaken {
			top.branchActive = false
			return
		}
		truth, err := pp.evalPPExpr(pp.line, rest, &pp.diag)
		if err != nil {
			pp.diag.add(SeverityError, KindPreprocessor, pp.line, "%v", err)
		}
		top.branchActive = truth
		if truth {
			top.anyTaken = true
		}
	case "else":
		if len(*stack) == 0 {
			pp.diag.add(SeverityError, KindPreprocessor, pp.line, "#else without #if")
			return
		}
		top := &(*stack)[len(*stack)-1]
		if top.sawElse {
			pp.diag.add(SeverityError, KindPreprocessor, pp.line, "duplicate #else")
			return
		}
		top.sawElse = true
		top.branchActive = top.parentActive && !top.anyTaken
		if top.branchActive {
			top.anyTaken = true
		}
	case "endif":
		if len(*stack) == 0 {
			pp.diag.add(SeverityError, KindPreprocessor, pp.line, "#endif without #if")
			return
		}
		*stack = (*stack)[:len(*stack)-1]
	case "pragma":
		// recorded, otherwise ignored (spec §4.2).
		if glog.V(1) {
			glog.Infof("pragma at line %d: %s", pp.line, rest)
		}
	case "line":
		fields := strings.Fields(rest)
		if len(fields) > 0 {
			if n, err := strconv.Atoi(fields[0]); err == nil {
				pp.line = n
			}
		}
	case "error":
		if active {
			pp.diag.add(SeverityError, KindPreprocessor, pp.line, "#error %s", rest)
		}
	case "warning":
		if active {
			pp.diag.add(SeverityWarning, KindPreprocessor, pp.line, "#warning %s", rest)
		}
	default:
		pp.diag.add(SeverityWarning, KindPreprocessor, pp.line, "unrecognized directive #%s", kw)
	}
}

func splitDirective(body string) (kw, rest string) {
	i := 0
	for i < len(body) && (isIdentStart(body[i]) || (i > 0 && isDigit(body[i]))) {
		i++
	}
	return body[:i], strings.TrimSpace(body[i:])
}

// handleDefine parses "#define NAME body", "#define NAME(a,b) body",
// and bare "#define NAME" (value defaults to 1, matching common usage
// in #if defined(X) guards).
func (pp *Preprocessor) handleDefine(rest string) {
	i := 0
	for i < len(rest) && isIdentCont(rest[i]) {
		i++
	}
	name := rest[:i]
	if name == "" {
		pp.diag.add(SeverityError, KindPreprocessor, pp.line, "#define missing macro name")
		return
	}
	if i < len(rest) && rest[i] == '(' {
		j := strings.IndexByte(rest[i:], ')')
		if j < 0 {
			pp.diag.add(SeverityError, KindPreprocessor, pp.line, "unterminated macro parameter list")
			return
		}
		paramStr := rest[i+1 : i+j]
		var params []string
		if strings.TrimSpace(paramStr) != "" {
			for _, p := range strings.Split(paramStr, ",") {
				params = append(params, strings.TrimSpace(p))
			}
		} else {
			params = []string{}
		}
		bodyStr := strings.TrimSpace(rest[i+j+1:])
		pp.macros.define(&Macro{Name: name, Params: params, Body: literalTokens(bodyStr), Origin: OriginUser})
		return
	}
	bodyStr := strings.TrimSpace(rest[i:])
	if bodyStr == "" {
		bodyStr = "1"
	}
	pp.macros.define(&Macro{Name: name, Body: literalTokens(bodyStr), Origin: OriginUser})
}

// handleInclude activates the named library (spec §4.2 "Include
// handling"); file contents are never read from disk.
func (pp *Preprocessor) handleInclude(rest string) {
	rest = strings.TrimSpace(rest)
	var name string
	switch {
	case strings.HasPrefix(rest, "\"") && strings.HasSuffix(rest, "\""):
		name = rest[1 : len(rest)-1]
	case strings.HasPrefix(rest, "<") && strings.HasSuffix(rest, ">"):
		name = rest[1 : len(rest)-1]
	default:
		pp.diag.add(SeverityError, KindPreprocessor, pp.line, "malformed #include %q", rest)
		return
	}
	name = strings.TrimSuffix(name, ".h")
	pp.activeLib[name] = true
}

// expandLine tokenizes one logical source line and macro-expands it,
// then renders the result back to text with single-space separation
// (the lexer that later re-tokenizes this output is whitespace
// insensitive outside of literals, so exact spacing is not required to
// be preserved).
func (pp *Preprocessor) expandLine(line string) string {
	toks := literalTokens(line)
	expanded := pp.expandTokens(toks, map[string]bool{})
	var sb strings.Builder
	for i, t := range expanded {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(renderToken(t))
	}
	return sb.String()
}

func renderToken(t Token) string {
	switch t.Kind {
	case TokStringLit:
		return strconv.Quote(t.Lexeme)
	case TokCharLit:
		c := byte(t.IntValue)
		for esc, v := range escapeValues {
			if v == c {
				return `'\` + string(esc) + `'`
			}
		}
		return "'" + string(rune(c)) + "'"
	default:
		return t.Lexeme
	}
}

// expandObjectLike expands an object-like macro's own body (used both
// by #if expression evaluation in ppexpr.go and recursively here).
func (pp *Preprocessor) expandObjectLike(m *Macro) []Token {
	return pp.expandTokens(m.Body, map[string]bool{m.Name: true})
}

// expandTokens performs one token-level macro-expansion + rescan pass
// (spec §4.2 "Macro expansion"). expanding is the set of macro names
// currently being substituted on this call chain, so that re-expansion
// of the same macro name within its own replacement is suppressed
// (spec §3 invariant).
func (pp *Preprocessor) expandTokens(toks []Token, expanding map[string]bool) []Token {
	var out []Token
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind != TokIdent {
			out = append(out, t)
			continue
		}
		m, ok := pp.macros.lookup(t.Lexeme)
		if !ok || expanding[t.Lexeme] {
			out = append(out, t)
			continue
		}
		if !m.isFunctionLike() {
			nested := map[string]bool{t.Lexeme: true}
			for k := range expanding {
				nested[k] = true
			}
			out = append(out, pp.expandTokens(m.Body, nested)...)
			continue
		}
		// function-like: only expands if followed by '('.
		if i+1 >= len(toks) || toks[i+1].Lexeme != "(" {
			out = append(out, t)
			continue
		}
		args, consumed := splitArgs(toks[i+1:])
		if consumed == 0 {
			out = append(out, t)
			continue
		}
		i += consumed
		substituted := substituteParams(m, args)
		nested := map[string]bool{t.Lexeme: true}
		for k := range expanding {
			nested[k] = true
		}
		out = append(out, pp.expandTokens(substituted, nested)...)
	}
	return out
}

// splitArgs consumes a parenthesized, comma-separated argument list
// starting at toks[0] == "(" and returns the unexpanded argument token
// groups plus how many tokens (including both parens) were consumed.
func splitArgs(toks []Token) ([][]Token, int) {
	if len(toks) == 0 || toks[0].Lexeme != "(" {
		return nil, 0
	}
	depth := 0
	var args [][]Token
	var cur []Token
	i := 0
	for ; i < len(toks); i++ {
		t := toks[i]
		switch t.Lexeme {
		case "(":
			depth++
			if depth == 1 {
				continue
			}
		case ")":
			depth--
			if depth == 0 {
				args = append(args, cur)
				i++
				return args, i
			}
		case ",":
			if depth == 1 {
				args = append(args, cur)
				cur = nil
				continue
			}
		}
		cur = append(cur, t)
	}
	return nil, 0 // unterminated
}

// substituteParams substitutes arguments (unexpanded) into a
// function-like macro's body (spec §4.2: "evaluates its arguments
// unexpanded, substitutes, then rescans").
func substituteParams(m *Macro, args [][]Token) []Token {
	var out []Token
	for _, t := range m.Body {
		if t.Kind == TokIdent {
			if idx := paramIndex(m.Params, t.Lexeme); idx >= 0 && idx < len(args) {
				out = append(out, args[idx]...)
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func paramIndex(params []string, name string) int {
	for i, p := range params {
		if p == name {
			return i
		}
	}
	return -1
}
