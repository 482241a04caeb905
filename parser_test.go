package sketchvm

import "testing"

func parse(t *testing.T, src string) (*Node, Diagnostics) {
	t.Helper()
	var diag Diagnostics
	p := NewParser([]byte(src), &diag)
	return p.Parse(), diag
}

func TestParseFuncDefVsFuncDeclVsVarWithCtor(t *testing.T) {
	prog, diag := parse(t, `
void setup() {}
void helper();
Servo myServo(9);
`)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	if len(prog.Children) != 3 {
		t.Fatalf("got %d top-level decls, want 3", len(prog.Children))
	}
	if k := prog.Child(0).Kind; k != NodeFuncDef {
		t.Errorf("setup(): Kind = %v, want NodeFuncDef", k)
	}
	if k := prog.Child(1).Kind; k != NodeFuncDecl {
		t.Errorf("helper(): Kind = %v, want NodeFuncDecl", k)
	}
	varDecl := prog.Child(2)
	if varDecl.Kind != NodeVarDecl {
		t.Fatalf("myServo(9): Kind = %v, want NodeVarDecl", varDecl.Kind)
	}
	if varDecl.Type != "Servo" || varDecl.Ident != "myServo" {
		t.Errorf("myServo decl = {Type: %q, Ident: %q}", varDecl.Type, varDecl.Ident)
	}
	if len(varDecl.Children) != 1 || varDecl.Child(0).Kind != NodeCallExpr {
		t.Error("myServo(9) initializer should be a CallExpr")
	}
}

func TestParseQualifiersSetFlagsButStripFromClassification(t *testing.T) {
	prog, diag := parse(t, `const int buttonPin = 2;`)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	decl := prog.Child(0)
	if decl.Flags&FlagConst == 0 {
		t.Error("const int decl: FlagConst not set")
	}
	if got := typeKindFromName(decl.Type); got != VKInt32 {
		t.Errorf("typeKindFromName(%q) = %v, want VKInt32", decl.Type, got)
	}
}

func TestParseStaticLocalFlag(t *testing.T) {
	prog, _ := parse(t, `
void loop() {
  static int count;
}
`)
	body := prog.Child(0).Child(2)
	decl := body.Child(0)
	if decl.Kind != NodeVarDecl {
		t.Fatalf("got %v, want NodeVarDecl", decl.Kind)
	}
	if decl.Flags&FlagStatic == 0 {
		t.Error("static int decl: FlagStatic not set")
	}
}

func TestParseCastVsParenDisambiguation(t *testing.T) {
	prog, diag := parse(t, `void f() { int x = (int)(3.5); int y = (x); }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	body := prog.Child(0).Child(2)
	xDecl := body.Child(0)
	cast := xDecl.Child(0)
	if cast.Kind != NodeCastExpr {
		t.Fatalf("(int)(3.5): Kind = %v, want NodeCastExpr", cast.Kind)
	}
	if cast.Type != "int" {
		t.Errorf("cast Type = %q, want %q", cast.Type, "int")
	}

	yDecl := body.Child(1)
	paren := yDecl.Child(0)
	if paren.Kind != NodeIdentExpr {
		t.Errorf("(x) where x is not a type: Kind = %v, want NodeIdentExpr (not a cast)", paren.Kind)
	}
}

func TestParseBinaryPrecedence(t *testing.T) {
	prog, diag := parse(t, `void f() { int x = 1 + 2 * 3; }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	decl := prog.Child(0).Child(2).Child(0)
	add := decl.Child(0)
	if add.Kind != NodeBinaryExpr || add.Ident != "+" {
		t.Fatalf("top operator = %v %q, want BinaryExpr \"+\"", add.Kind, add.Ident)
	}
	mul := add.Child(1)
	if mul.Kind != NodeBinaryExpr || mul.Ident != "*" {
		t.Errorf("right operand = %v %q, want BinaryExpr \"*\" (precedence)", mul.Kind, mul.Ident)
	}
}

func TestParseErrorRecoveryStillYieldsProgram(t *testing.T) {
	prog, diag := parse(t, `void f() { int x = ; int y = 1; }`)
	if !diag.HasErrors() {
		t.Fatal("malformed statement: want a diagnostic, got none")
	}
	if prog.Kind != NodeProgram {
		t.Fatalf("Parse() after an error still returned %v, want NodeProgram", prog.Kind)
	}
}

func TestParseIfElseArity(t *testing.T) {
	prog, diag := parse(t, `void f() { if (1) { } else { } }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	ifNode := prog.Child(0).Child(2).Child(0)
	if ifNode.Kind != NodeIf {
		t.Fatalf("got %v, want NodeIf", ifNode.Kind)
	}
	if len(ifNode.Children) != 3 {
		t.Fatalf("If node has %d children, want 3 (cond, then, else)", len(ifNode.Children))
	}
	if ifNode.Child(2) == nil {
		t.Error("else branch missing")
	}
}

func TestParseFunctionCallArguments(t *testing.T) {
	prog, diag := parse(t, `void f() { digitalWrite(13, HIGH); }`)
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diag)
	}
	call := prog.Child(0).Child(2).Child(0).Child(0)
	if call.Kind != NodeCallExpr {
		t.Fatalf("got %v, want NodeCallExpr", call.Kind)
	}
	if len(call.Children) != 3 { // callee + 2 args
		t.Fatalf("call has %d children, want 3", len(call.Children))
	}
}
