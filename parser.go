package sketchvm

import "strings"

// Parser is a recursive-descent parser for the C++ subset Arduino
// sketches use (spec §4.3). Token-buffer management (one token of
// lookahead plus an explicit "checkpoint and rewind" pair used for
// disambiguation) mirrors google-kati/rule_parser.go's small, separate
// sub-grammar invoked from the bigger parser; the overall "parseX
// returns a *Node, records any syntax error as a diagnostic via errorf
// and keeps going" shape mirrors google-kati/parser.go's parseError
// handling.
type Parser struct {
	lex  *Lexer
	cur  Token
	diag *Diagnostics

	// typeScopes is a stack of scope-local type-name sets (spec §4.3
	// "Disambiguation" / §9 "the set is scope-aware: a local typedef
	// must shadow a global non-type identifier").
	typeScopes []map[string]bool
}

// NewParser constructs a Parser over already-preprocessed source.
func NewParser(src []byte, diag *Diagnostics) *Parser {
	p := &Parser{lex: NewLexer(src, diag), diag: diag}
	p.typeScopes = []map[string]bool{builtinTypeNames()}
	p.cur = p.lex.Next()
	return p
}

func builtinTypeNames() map[string]bool {
	return map[string]bool{
		"void": true, "bool": true, "char": true, "int": true, "float": true,
		"double": true, "short": true, "long": true, "unsigned": true,
		"signed": true, "String": true, "byte": true, "word": true,
		"boolean": true, "size_t": true, "auto": true,
		// constructible library classes from the Library Registry
		"Servo": true, "Adafruit_NeoPixel": true, "LiquidCrystal": true,
	}
}

func (p *Parser) pushTypeScope() { p.typeScopes = append(p.typeScopes, map[string]bool{}) }
func (p *Parser) popTypeScope()  { p.typeScopes = p.typeScopes[:len(p.typeScopes)-1] }
func (p *Parser) declareTypeName(name string) {
	p.typeScopes[len(p.typeScopes)-1][name] = true
}
func (p *Parser) isTypeName(name string) bool {
	for i := len(p.typeScopes) - 1; i >= 0; i-- {
		if p.typeScopes[i][name] {
			return true
		}
	}
	return false
}

func (p *Parser) advance() Token {
	t := p.cur
	p.cur = p.lex.Next()
	return t
}

func (p *Parser) at(kind TokKind, lexeme string) bool {
	return p.cur.Kind == kind && p.cur.Lexeme == lexeme
}

func (p *Parser) atAny(lexemes ...string) bool {
	for _, l := range lexemes {
		if p.cur.Lexeme == l && (p.cur.Kind == TokPunct || p.cur.Kind == TokOp) {
			return true
		}
	}
	return false
}

func (p *Parser) expectPunct(lexeme string) bool {
	if p.at(TokPunct, lexeme) || p.at(TokOp, lexeme) {
		p.advance()
		return true
	}
	p.errorf("expected %q, got %q", lexeme, p.cur.Lexeme)
	return false
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.diag.add(SeverityError, KindParse, p.cur.Line, format, args...)
}

// recover resynchronizes after a syntax error at a statement boundary
// (spec §4.3 "Error recovery": skip to the next ';' or '}').
func (p *Parser) recover() *Node {
	n := newNode(NodeErrorStmt, p.cur.Line)
	for p.cur.Kind != TokEOF {
		if p.at(TokPunct, ";") {
			p.advance()
			break
		}
		if p.at(TokPunct, "}") {
			break
		}
		p.advance()
	}
	return n
}

// Parse parses an entire translation unit, returning a Program node
// whose children are top-level declarations, plus any diagnostics
// collected. Parse never panics and always returns a Program, even
// when every declaration had to be recovered from (spec §4.3: "the
// parser must still emit a complete Program node").
func (p *Parser) Parse() *Node {
	prog := newNode(NodeProgram, 1)
	for p.cur.Kind != TokEOF {
		decl := p.parseTopLevelDecl()
		if decl != nil {
			prog.addChild(decl)
		}
	}
	return prog
}

func (p *Parser) parseTopLevelDecl() *Node {
	switch {
	case p.at(TokKeyword, "typedef"):
		return p.parseTypedef()
	case p.at(TokKeyword, "struct"), p.at(TokKeyword, "union"):
		return p.parseStructOrUnion()
	case p.at(TokKeyword, "enum"):
		return p.parseEnum()
	default:
		return p.parseFuncOrVarDecl()
	}
}

func (p *Parser) parseTypedef() *Node {
	line := p.cur.Line
	p.advance() // typedef
	typ := p.parseTypeSpecifiers()
	name := p.cur.Lexeme
	if p.cur.Kind == TokIdent {
		p.advance()
	}
	p.expectPunct(";")
	p.declareTypeName(name)
	n := newNode(NodeTypedefDecl, line)
	n.Type = typ
	n.Ident = name
	return n
}

func (p *Parser) parseStructOrUnion() *Node {
	line := p.cur.Line
	kind := NodeStructDecl
	if p.at(TokKeyword, "union") {
		kind = NodeUnionDecl
	}
	p.advance()
	name := ""
	if p.cur.Kind == TokIdent {
		name = p.cur.Lexeme
		p.advance()
		p.declareTypeName(name)
	}
	n := newNode(kind, line)
	n.Ident = name
	if p.at(TokPunct, "{") {
		p.advance()
		for !p.at(TokPunct, "}") && p.cur.Kind != TokEOF {
			n.addChild(p.parseStructMember())
		}
		p.expectPunct("}")
	}
	p.expectPunct(";")
	return n
}

func (p *Parser) parseStructMember() *Node {
	line := p.cur.Line
	typ := p.parseTypeSpecifiers()
	ident := p.cur.Lexeme
	if p.cur.Kind == TokIdent {
		p.advance()
	}
	typ += strings.Repeat("*", p.parsePointerStars())
	p.expectPunct(";")
	m := newNode(NodeStructMember, line)
	m.Type = typ
	m.Ident = ident
	return m
}

func (p *Parser) parseEnum() *Node {
	line := p.cur.Line
	p.advance()
	name := ""
	if p.cur.Kind == TokIdent {
		name = p.cur.Lexeme
		p.advance()
		p.declareTypeName(name)
	}
	n := newNode(NodeEnumDecl, line)
	n.Ident = name
	p.expectPunct("{")
	for !p.at(TokPunct, "}") && p.cur.Kind != TokEOF {
		eline := p.cur.Line
		ename := p.cur.Lexeme
		p.advance()
		e := newNode(NodeEnumerator, eline)
		e.Ident = ename
		if p.at(TokOp, "=") {
			p.advance()
			e.addChild(p.parseExpr())
		}
		n.addChild(e)
		if p.at(TokPunct, ",") {
			p.advance()
		}
	}
	p.expectPunct("}")
	p.expectPunct(";")
	return n
}

// parseTypeSpecifiers consumes const/static/volatile/extern and the
// unsigned/long/short/base-type combinations (spec §4.3) and returns a
// normalized type string.
func (p *Parser) parseTypeSpecifiers() string {
	var parts []string
	for {
		switch {
		case p.at(TokKeyword, "const"), p.at(TokKeyword, "static"),
			p.at(TokKeyword, "volatile"), p.at(TokKeyword, "extern"),
			p.at(TokKeyword, "unsigned"), p.at(TokKeyword, "signed"),
			p.at(TokKeyword, "long"), p.at(TokKeyword, "short"),
			p.at(TokKeyword, "struct"), p.at(TokKeyword, "union"):
			parts = append(parts, p.cur.Lexeme)
			p.advance()
			continue
		}
		if p.cur.Kind == TokKeyword && builtinTypeNames()[p.cur.Lexeme] {
			parts = append(parts, p.cur.Lexeme)
			p.advance()
			continue
		}
		if p.cur.Kind == TokIdent && p.isTypeName(p.cur.Lexeme) {
			parts = append(parts, p.cur.Lexeme)
			p.advance()
			continue
		}
		break
	}
	if len(parts) == 0 {
		return "int"
	}
	return strings.Join(parts, " ")
}

func (p *Parser) parsePointerStars() int {
	n := 0
	for p.at(TokOp, "*") {
		n++
		p.advance()
	}
	return n
}

func (p *Parser) currentSpecifierFlags(typ string) uint8 {
	var f uint8
	if strings.Contains(typ, "const") {
		f |= FlagConst
	}
	if strings.Contains(typ, "static") {
		f |= FlagStatic
	}
	if strings.Contains(typ, "volatile") {
		f |= FlagVolatile
	}
	if strings.Contains(typ, "extern") {
		f |= FlagExtern
	}
	return f
}

// parseFuncOrVarDecl resolves the function-declaration vs.
// variable-with-constructor-call ambiguity from spec §4.3
// ("T x(expr); is a variable ... T f(); is a function declaration"):
// a '(' followed by ')' or by a token that starts a type (a keyword
// other than true/false/nullptr/sizeof, or a known type name) opens a
// parameter list, which is a function definition if '{' follows and a
// function declaration otherwise; a '(' followed by anything else is a
// constructor-style variable initializer.
func (p *Parser) parseFuncOrVarDecl() *Node {
	line := p.cur.Line
	typ := p.parseTypeSpecifiers()
	flags := p.currentSpecifierFlags(typ)
	stars := p.parsePointerStars()
	typ += strings.Repeat("*", stars)

	if p.cur.Kind != TokIdent {
		p.errorf("expected identifier, got %q", p.cur.Lexeme)
		return p.recover()
	}
	name := p.advance().Lexeme

	if p.at(TokPunct, "(") {
		save := *p.lex
		next := p.lex.Next()
		*p.lex = save
		isParamList := (next.Kind == TokPunct && next.Lexeme == ")") ||
			(next.Kind == TokKeyword && next.Lexeme != "true" && next.Lexeme != "false" &&
				next.Lexeme != "nullptr" && next.Lexeme != "sizeof") ||
			(next.Kind == TokIdent && p.isTypeName(next.Lexeme))
		if isParamList {
			return p.parseFuncTail(line, typ, name, flags)
		}
	}
	return p.parseVarTail(line, typ, name, flags)
}

func (p *Parser) parseFuncTail(line int, typ, name string, flags uint8) *Node {
	p.advance() // (
	params := newNode(NodeParamList, p.cur.Line)
	for !p.at(TokPunct, ")") && p.cur.Kind != TokEOF {
		params.addChild(p.parseParam())
		if p.at(TokPunct, ",") {
			p.advance()
		}
	}
	p.expectPunct(")")

	if p.at(TokPunct, "{") {
		body := p.parseCompoundStmt()
		fn := newNode(NodeFuncDef, line)
		fn.Type = typ
		fn.Ident = name
		rt := newNode(NodeReturnType, line)
		rt.Type = typ
		fn.addChild(rt)
		fn.addChild(params)
		fn.addChild(body)
		return fn
	}
	p.expectPunct(";")
	decl := newNode(NodeFuncDecl, line)
	decl.Type = typ
	decl.Ident = name
	decl.Flags = flags
	decl.addChild(params)
	return decl
}

func (p *Parser) parseParam() *Node {
	line := p.cur.Line
	typ := p.parseTypeSpecifiers()
	typ += strings.Repeat("*", p.parsePointerStars())
	name := ""
	if p.cur.Kind == TokIdent {
		name = p.advance().Lexeme
	}
	param := newNode(NodeParam, line)
	param.Type = typ
	param.Ident = name
	return param
}

func (p *Parser) parseVarTail(line int, typ, name string, flags uint8) *Node {
	decl := newNode(NodeVarDecl, line)
	decl.Type = typ
	decl.Ident = name
	decl.Flags = flags

	for p.at(TokPunct, "[") {
		p.advance()
		dim := newNode(NodeArrayDeclarator, p.cur.Line)
		if !p.at(TokPunct, "]") {
			dim.addChild(p.parseExpr())
		}
		p.expectPunct("]")
		decl.addChild(dim)
	}

	if p.at(TokOp, "=") {
		p.advance()
		decl.addChild(p.parseInitializer())
	} else if p.at(TokPunct, "(") {
		// constructor-style initialization: T x(expr, ...);
		p.advance()
		call := newNode(NodeCallExpr, p.cur.Line)
		ident := newNode(NodeIdentExpr, p.cur.Line)
		ident.Ident = name
		call.addChild(ident)
		for !p.at(TokPunct, ")") && p.cur.Kind != TokEOF {
			call.addChild(p.parseAssignExpr())
			if p.at(TokPunct, ",") {
				p.advance()
			}
		}
		p.expectPunct(")")
		decl.addChild(call)
	}

	for p.at(TokPunct, ",") {
		p.advance()
		extra := p.cur.Lexeme
		if p.cur.Kind == TokIdent {
			p.advance()
		}
		next := p.parseVarTail(p.cur.Line, typ, extra, flags)
		decl.addChild(next)
	}

	p.expectPunct(";")
	return decl
}

func (p *Parser) parseInitializer() *Node {
	if p.at(TokPunct, "{") {
		return p.parseInitList()
	}
	return p.parseAssignExpr()
}

// parseInitList handles both plain aggregate initializers ({1,2,3})
// and designated initializers ({.a=1,.b=2}) per spec §4.3 and the
// boundary case in §8.
func (p *Parser) parseInitList() *Node {
	line := p.cur.Line
	p.advance() // {
	n := newNode(NodeInitList, line)
	for !p.at(TokPunct, "}") && p.cur.Kind != TokEOF {
		if p.at(TokPunct, ".") {
			dline := p.cur.Line
			p.advance()
			field := p.cur.Lexeme
			if p.cur.Kind == TokIdent {
				p.advance()
			}
			p.expectPunct("=")
			d := newNode(NodeDesignatedInit, dline)
			d.Ident = field
			d.addChild(p.parseInitializer())
			n.addChild(d)
		} else {
			n.addChild(p.parseInitializer())
		}
		if p.at(TokPunct, ",") {
			p.advance()
		}
	}
	p.expectPunct("}")
	return n
}

// --- statements ---

func (p *Parser) parseCompoundStmt() *Node {
	line := p.cur.Line
	p.expectPunct("{")
	p.pushTypeScope()
	n := newNode(NodeCompoundStmt, line)
	for !p.at(TokPunct, "}") && p.cur.Kind != TokEOF {
		n.addChild(p.parseStatement())
	}
	p.popTypeScope()
	p.expectPunct("}")
	return n
}

func (p *Parser) parseStatement() *Node {
	switch {
	case p.at(TokPunct, "{"):
		return p.parseCompoundStmt()
	case p.at(TokKeyword, "if"):
		return p.parseIf()
	case p.at(TokKeyword, "for"):
		return p.parseFor()
	case p.at(TokKeyword, "while"):
		return p.parseWhile()
	case p.at(TokKeyword, "do"):
		return p.parseDoWhile()
	case p.at(TokKeyword, "switch"):
		return p.parseSwitch()
	case p.at(TokKeyword, "break"):
		line := p.cur.Line
		p.advance()
		p.expectPunct(";")
		return newNode(NodeBreak, line)
	case p.at(TokKeyword, "continue"):
		line := p.cur.Line
		p.advance()
		p.expectPunct(";")
		return newNode(NodeContinue, line)
	case p.at(TokKeyword, "return"):
		return p.parseReturn()
	case p.at(TokPunct, ";"):
		line := p.cur.Line
		p.advance()
		return newNode(NodeEmptyStmt, line)
	case p.looksLikeDecl():
		return p.parseFuncOrVarDecl()
	default:
		line := p.cur.Line
		e := p.parseExpr()
		p.expectPunct(";")
		s := newNode(NodeExprStmt, line)
		s.addChild(e)
		return s
	}
}

func (p *Parser) looksLikeDecl() bool {
	if p.at(TokKeyword, "const") || p.at(TokKeyword, "static") ||
		p.at(TokKeyword, "volatile") || p.at(TokKeyword, "extern") ||
		p.at(TokKeyword, "unsigned") || p.at(TokKeyword, "signed") ||
		p.at(TokKeyword, "long") || p.at(TokKeyword, "short") ||
		p.at(TokKeyword, "struct") || p.at(TokKeyword, "union") {
		return true
	}
	if p.cur.Kind == TokKeyword && builtinTypeNames()[p.cur.Lexeme] {
		return true
	}
	if p.cur.Kind == TokIdent && p.isTypeName(p.cur.Lexeme) {
		return true
	}
	return false
}

func (p *Parser) parseIf() *Node {
	line := p.cur.Line
	p.advance()
	p.expectPunct("(")
	cond := p.parseExpr()
	p.expectPunct(")")
	then := p.parseStatement()
	n := newNode(NodeIf, line)
	n.addChild(cond)
	n.addChild(then)
	if p.at(TokKeyword, "else") {
		p.advance()
		n.addChild(p.parseStatement())
	}
	return n
}

func (p *Parser) parseFor() *Node {
	line := p.cur.Line
	p.advance()
	p.expectPunct("(")
	p.pushTypeScope()
	defer p.popTypeScope()

	// range-for lookahead: a declarator followed by ':' before ';'
	if p.looksLikeRangeFor() {
		typ := p.parseTypeSpecifiers()
		typ += strings.Repeat("*", p.parsePointerStars())
		name := p.cur.Lexeme
		if p.cur.Kind == TokIdent {
			p.advance()
		}
		p.expectPunct(":")
		coll := p.parseExpr()
		p.expectPunct(")")
		body := p.parseStatement()
		n := newNode(NodeRangeFor, line)
		decl := newNode(NodeVarDecl, line)
		decl.Type = typ
		decl.Ident = name
		n.addChild(decl)
		n.addChild(coll)
		n.addChild(body)
		return n
	}

	n := newNode(NodeFor, line)
	if p.at(TokPunct, ";") {
		n.addChild(newNode(NodeEmptyStmt, line))
		p.advance()
	} else if p.looksLikeDecl() {
		n.addChild(p.parseFuncOrVarDecl())
	} else {
		e := p.parseExpr()
		p.expectPunct(";")
		s := newNode(NodeExprStmt, line)
		s.addChild(e)
		n.addChild(s)
	}
	if p.at(TokPunct, ";") {
		trueLit := newNode(NodeBoolLitExpr, line)
		trueLit.BoolVal = true
		n.addChild(trueLit)
	} else {
		n.addChild(p.parseExpr())
	}
	p.expectPunct(";")
	if p.at(TokPunct, ")") {
		n.addChild(newNode(NodeEmptyStmt, line))
	} else {
		n.addChild(p.parseExpr())
	}
	p.expectPunct(")")
	n.addChild(p.parseStatement())
	return n
}

// looksLikeRangeFor peeks for "<decl-start> ... :" before the matching
// ')' without a ';' in between, without a full backtracking parse.
func (p *Parser) looksLikeRangeFor() bool {
	if !p.looksLikeDecl() {
		return false
	}
	save := *p.lex
	saveCur := p.cur
	depth := 0
	isRange := false
	for i := 0; i < 64; i++ {
		t := p.lex.Next()
		if t.Kind == TokEOF {
			break
		}
		if t.Kind == TokPunct && t.Lexeme == "(" {
			depth++
		}
		if t.Kind == TokPunct && t.Lexeme == ")" {
			if depth == 0 {
				break
			}
			depth--
		}
		if depth == 0 && t.Kind == TokPunct && t.Lexeme == ";" {
			break
		}
		if depth == 0 && t.Kind == TokPunct && t.Lexeme == ":" {
			isRange = true
			break
		}
	}
	*p.lex = save
	p.cur = saveCur
	return isRange
}

func (p *Parser) parseWhile() *Node {
	line := p.cur.Line
	p.advance()
	p.expectPunct("(")
	cond := p.parseExpr()
	p.expectPunct(")")
	body := p.parseStatement()
	n := newNode(NodeWhile, line)
	n.addChild(cond)
	n.addChild(body)
	return n
}

func (p *Parser) parseDoWhile() *Node {
	line := p.cur.Line
	p.advance()
	body := p.parseStatement()
	if !p.at(TokKeyword, "while") {
		p.errorf("expected 'while', got %q", p.cur.Lexeme)
	} else {
		p.advance()
	}
	p.expectPunct("(")
	cond := p.parseExpr()
	p.expectPunct(")")
	p.expectPunct(";")
	n := newNode(NodeDoWhile, line)
	n.addChild(body)
	n.addChild(cond)
	return n
}

func (p *Parser) parseSwitch() *Node {
	line := p.cur.Line
	p.advance()
	p.expectPunct("(")
	subj := p.parseExpr()
	p.expectPunct(")")
	p.expectPunct("{")
	n := newNode(NodeSwitch, line)
	n.addChild(subj)
	for !p.at(TokPunct, "}") && p.cur.Kind != TokEOF {
		switch {
		case p.at(TokKeyword, "case"):
			cline := p.cur.Line
			p.advance()
			val := p.parseExpr()
			p.expectPunct(":")
			c := newNode(NodeCase, cline)
			c.addChild(val)
			for !p.at(TokKeyword, "case") && !p.at(TokKeyword, "default") && !p.at(TokPunct, "}") {
				c.addChild(p.parseStatement())
			}
			n.addChild(c)
		case p.at(TokKeyword, "default"):
			dline := p.cur.Line
			p.advance()
			p.expectPunct(":")
			d := newNode(NodeDefault, dline)
			for !p.at(TokKeyword, "case") && !p.at(TokKeyword, "default") && !p.at(TokPunct, "}") {
				d.addChild(p.parseStatement())
			}
			n.addChild(d)
		default:
			p.errorf("expected 'case' or 'default', got %q", p.cur.Lexeme)
			n.addChild(p.recover())
		}
	}
	p.expectPunct("}")
	return n
}

func (p *Parser) parseReturn() *Node {
	line := p.cur.Line
	p.advance()
	n := newNode(NodeReturn, line)
	if !p.at(TokPunct, ";") {
		n.addChild(p.parseExpr())
	}
	p.expectPunct(";")
	return n
}

// --- expressions (full precedence table, spec §4.3) ---

func (p *Parser) parseExpr() *Node { return p.parseComma() }

func (p *Parser) parseComma() *Node {
	left := p.parseAssignExpr()
	for p.at(TokPunct, ",") {
		line := p.cur.Line
		p.advance()
		right := p.parseAssignExpr()
		n := newNode(NodeCommaExpr, line)
		n.addChild(left)
		n.addChild(right)
		left = n
	}
	return left
}

var compoundAssignOps = map[string]bool{
	"+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
}

func (p *Parser) parseAssignExpr() *Node {
	left := p.parseTernary()
	if p.at(TokOp, "=") {
		line := p.cur.Line
		p.advance()
		right := p.parseAssignExpr()
		n := newNode(NodeAssignExpr, line)
		n.Ident = "="
		n.addChild(left)
		n.addChild(right)
		return n
	}
	if p.cur.Kind == TokOp && compoundAssignOps[p.cur.Lexeme] {
		op := p.cur.Lexeme
		line := p.cur.Line
		p.advance()
		right := p.parseAssignExpr()
		n := newNode(NodeCompoundAssignExpr, line)
		n.Ident = op
		n.addChild(left)
		n.addChild(right)
		return n
	}
	return left
}

func (p *Parser) parseTernary() *Node {
	cond := p.parseLogicalOr()
	if p.at(TokOp, "?") || p.at(TokPunct, "?") {
		line := p.cur.Line
		p.advance()
		then := p.parseAssignExpr()
		p.expectPunct(":")
		els := p.parseAssignExpr()
		n := newNode(NodeTernaryExpr, line)
		n.addChild(cond)
		n.addChild(then)
		n.addChild(els)
		return n
	}
	return cond
}

// binLevel is one level of the left-associative binary-operator
// precedence climb; levels is ordered loosest to tightest.
type binLevel struct {
	ops []string
}

var precedenceLevels = []binLevel{
	{[]string{"||"}},
	{[]string{"&&"}},
	{[]string{"|"}},
	{[]string{"^"}},
	{[]string{"&"}},
	{[]string{"==", "!="}},
	{[]string{"<", ">", "<=", ">="}},
	{[]string{"<<", ">>"}},
	{[]string{"+", "-"}},
	{[]string{"*", "/", "%"}},
}

func (p *Parser) parseLogicalOr() *Node  { return p.parseBinLevel(0) }
func (p *Parser) parseBinLevel(i int) *Node {
	if i >= len(precedenceLevels) {
		return p.parseUnary()
	}
	left := p.parseBinLevel(i + 1)
	for p.cur.Kind == TokOp && containsOp(precedenceLevels[i].ops, p.cur.Lexeme) {
		op := p.cur.Lexeme
		line := p.cur.Line
		p.advance()
		right := p.parseBinLevel(i + 1)
		n := newNode(NodeBinaryExpr, line)
		n.Ident = op
		n.addChild(left)
		n.addChild(right)
		left = n
	}
	return left
}

func containsOp(ops []string, s string) bool {
	for _, o := range ops {
		if o == s {
			return true
		}
	}
	return false
}

var prefixUnaryOps = map[string]bool{
	"++": true, "--": true, "!": true, "~": true, "-": true, "+": true,
	"*": true, "&": true,
}

func (p *Parser) parseUnary() *Node {
	line := p.cur.Line
	if p.at(TokKeyword, "sizeof") {
		p.advance()
		n := newNode(NodeSizeofExpr, line)
		if p.at(TokPunct, "(") && p.isTypeAhead() {
			p.advance()
			n.Type = p.parseTypeSpecifiers()
			n.Type += strings.Repeat("*", p.parsePointerStars())
			p.expectPunct(")")
		} else {
			n.addChild(p.parseUnary())
		}
		return n
	}
	if p.at(TokKeyword, "typeof") {
		p.advance()
		p.expectPunct("(")
		n := newNode(NodeTypeofExpr, line)
		n.addChild(p.parseExpr())
		p.expectPunct(")")
		return n
	}
	if p.cur.Kind == TokOp && prefixUnaryOps[p.cur.Lexeme] {
		op := p.cur.Lexeme
		p.advance()
		n := newNode(NodeUnaryExpr, line)
		n.Ident = op
		n.addChild(p.parseUnary())
		return n
	}
	if p.at(TokPunct, "(") && p.isCastAhead() {
		p.advance()
		typ := p.parseTypeSpecifiers()
		typ += strings.Repeat("*", p.parsePointerStars())
		p.expectPunct(")")
		n := newNode(NodeCastExpr, line)
		n.Type = typ
		n.addChild(p.parseUnary())
		return n
	}
	return p.parsePostfix()
}

// isTypeAhead peeks past '(' to see if a type name follows (used by
// sizeof(T) vs sizeof(expr)).
func (p *Parser) isTypeAhead() bool {
	save := *p.lex
	t := p.lex.Next()
	*p.lex = save
	if t.Kind == TokKeyword && builtinTypeNames()[t.Lexeme] {
		return true
	}
	return t.Kind == TokIdent && p.isTypeName(t.Lexeme)
}

// isCastAhead implements spec §4.3's cast-disambiguation rule: "(T)"
// followed by a primary expression is a cast only if T resolves to a
// known type name.
func (p *Parser) isCastAhead() bool {
	return p.isTypeAhead()
}

var postfixOps = map[string]bool{"++": true, "--": true}

func (p *Parser) parsePostfix() *Node {
	n := p.parsePrimary()
	for {
		line := p.cur.Line
		switch {
		case p.at(TokPunct, "("):
			p.advance()
			call := newNode(NodeCallExpr, line)
			call.addChild(n)
			for !p.at(TokPunct, ")") && p.cur.Kind != TokEOF {
				call.addChild(p.parseAssignExpr())
				if p.at(TokPunct, ",") {
					p.advance()
				}
			}
			p.expectPunct(")")
			n = call
		case p.at(TokPunct, "["):
			p.advance()
			sub := newNode(NodeSubscriptExpr, line)
			sub.addChild(n)
			sub.addChild(p.parseExpr())
			p.expectPunct("]")
			n = sub
		case p.at(TokPunct, "."):
			p.advance()
			m := newNode(NodeMemberExpr, line)
			m.Ident = p.cur.Lexeme
			if p.cur.Kind == TokIdent {
				p.advance()
			}
			m.addChild(n)
			n = m
		case p.at(TokOp, "->"):
			p.advance()
			m := newNode(NodeArrowExpr, line)
			m.Ident = p.cur.Lexeme
			if p.cur.Kind == TokIdent {
				p.advance()
			}
			m.addChild(n)
			n = m
		case p.at(TokOp, "::"):
			p.advance()
			m := newNode(NodeScopeExpr, line)
			m.Ident = p.cur.Lexeme
			if p.cur.Kind == TokIdent {
				p.advance()
			}
			m.addChild(n)
			n = m
		case p.cur.Kind == TokOp && postfixOps[p.cur.Lexeme]:
			op := p.cur.Lexeme
			p.advance()
			post := newNode(NodePostfixExpr, line)
			post.Ident = op
			post.addChild(n)
			n = post
		default:
			return n
		}
	}
}

func (p *Parser) parsePrimary() *Node {
	line := p.cur.Line
	switch {
	case p.cur.Kind == TokIntLit:
		t := p.advance()
		n := newNode(NodeIntLitExpr, line)
		n.IntVal = t.IntValue
		return n
	case p.cur.Kind == TokFloatLit:
		t := p.advance()
		n := newNode(NodeFloatLitExpr, line)
		n.FloatVal = t.FloatValue
		return n
	case p.cur.Kind == TokCharLit:
		t := p.advance()
		n := newNode(NodeCharLitExpr, line)
		n.IntVal = t.IntValue
		return n
	case p.cur.Kind == TokStringLit:
		t := p.advance()
		n := newNode(NodeStringLitExpr, line)
		n.StrVal = t.Lexeme
		return n
	case p.at(TokKeyword, "true"), p.at(TokKeyword, "false"):
		t := p.advance()
		n := newNode(NodeBoolLitExpr, line)
		n.BoolVal = t.Lexeme == "true"
		return n
	case p.at(TokKeyword, "nullptr"):
		p.advance()
		return newNode(NodeNullptrLitExpr, line)
	case p.at(TokPunct, "("):
		p.advance()
		n := p.parseExpr()
		p.expectPunct(")")
		return n
	case p.cur.Kind == TokIdent:
		t := p.advance()
		n := newNode(NodeIdentExpr, line)
		n.Ident = t.Lexeme
		return n
	default:
		p.errorf("unexpected token %q in expression", p.cur.Lexeme)
		p.advance()
		return newNode(NodeErrorStmt, line)
	}
}
