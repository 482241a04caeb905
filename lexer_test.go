package sketchvm

import "testing"

func lexAll(t *testing.T, src string) ([]Token, Diagnostics) {
	t.Helper()
	var diag Diagnostics
	lx := NewLexer([]byte(src), &diag)
	var toks []Token
	for {
		tok := lx.Next()
		if tok.Kind == TokEOF {
			break
		}
		toks = append(toks, tok)
	}
	return toks, diag
}

func TestLexNumericLiteralSuffixes(t *testing.T) {
	for _, tc := range []struct {
		in         string
		wantVal    int64
		wantSuffix NumSuffix
		wantUns    bool
	}{
		{"0xFFu", 0xFF, SuffixU, true},
		{"100LL", 100, SuffixLL, false},
		{"42UL", 42, SuffixU | SuffixL, true},
		{"0b1010", 10, SuffixNone, false},
		{"017", 15, SuffixNone, false}, // octal
	} {
		toks, diag := lexAll(t, tc.in)
		if diag.HasErrors() {
			t.Fatalf("%q: unexpected diagnostics %v", tc.in, diag)
		}
		if len(toks) != 1 || toks[0].Kind != TokIntLit {
			t.Fatalf("%q: got %d tokens, want 1 TokIntLit", tc.in, len(toks))
		}
		if toks[0].IntValue != tc.wantVal {
			t.Errorf("%q: IntValue = %d, want %d", tc.in, toks[0].IntValue, tc.wantVal)
		}
		if toks[0].Suffix != tc.wantSuffix {
			t.Errorf("%q: Suffix = %v, want %v", tc.in, toks[0].Suffix, tc.wantSuffix)
		}
		if toks[0].IsUnsigned != tc.wantUns {
			t.Errorf("%q: IsUnsigned = %v, want %v", tc.in, toks[0].IsUnsigned, tc.wantUns)
		}
	}
}

func TestLexFloatLiteralSuffix(t *testing.T) {
	toks, _ := lexAll(t, "1.0f")
	if len(toks) != 1 || toks[0].Kind != TokFloatLit {
		t.Fatalf("got %+v, want single TokFloatLit", toks)
	}
	if toks[0].FloatValue != 1.0 {
		t.Errorf("FloatValue = %v, want 1.0", toks[0].FloatValue)
	}
	if toks[0].Suffix&SuffixF == 0 {
		t.Error("Suffix missing SuffixF bit")
	}
}

func TestLexStringLiteralConcatenation(t *testing.T) {
	toks, _ := lexAll(t, `"foo" "bar"`)
	if len(toks) != 1 || toks[0].Kind != TokStringLit {
		t.Fatalf("got %+v, want single concatenated TokStringLit", toks)
	}
	if toks[0].Lexeme != "foobar" {
		t.Errorf("Lexeme = %q, want %q", toks[0].Lexeme, "foobar")
	}
}

func TestLexCharEscapes(t *testing.T) {
	toks, _ := lexAll(t, `'\n'`)
	if len(toks) != 1 || toks[0].Kind != TokCharLit || toks[0].IntValue != '\n' {
		t.Fatalf("got %+v, want char literal with value %d", toks, int('\n'))
	}
}

func TestLexKeywordsVsIdentifiers(t *testing.T) {
	toks, _ := lexAll(t, "int foo_bar static123")
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3", len(toks))
	}
	if toks[0].Kind != TokKeyword {
		t.Errorf("int: Kind = %v, want TokKeyword", toks[0].Kind)
	}
	if toks[1].Kind != TokIdent {
		t.Errorf("foo_bar: Kind = %v, want TokIdent", toks[1].Kind)
	}
	if toks[2].Kind != TokIdent {
		t.Errorf("static123: Kind = %v, want TokIdent (not a keyword)", toks[2].Kind)
	}
}

func TestLexOperatorLongestMatchFirst(t *testing.T) {
	toks, _ := lexAll(t, "a <<= b")
	if len(toks) != 3 || toks[1].Lexeme != "<<=" {
		t.Fatalf("got %+v, want a, <<=, b", toks)
	}
	toks2, _ := lexAll(t, "a << b")
	if len(toks2) != 3 || toks2[1].Lexeme != "<<" {
		t.Fatalf("got %+v, want a, <<, b", toks2)
	}
}

func TestLexCommentsSkipped(t *testing.T) {
	toks, _ := lexAll(t, "int /* block \n comment */ x; // line comment\ny")
	var lexemes []string
	for _, tok := range toks {
		lexemes = append(lexemes, tok.Lexeme)
	}
	want := []string{"int", "x", ";", "y"}
	if len(lexemes) != len(want) {
		t.Fatalf("lexemes = %v, want %v", lexemes, want)
	}
	for i := range want {
		if lexemes[i] != want[i] {
			t.Errorf("lexemes[%d] = %q, want %q", i, lexemes[i], want[i])
		}
	}
}

func TestLexUnterminatedStringReportsError(t *testing.T) {
	_, diag := lexAll(t, `"unterminated`)
	if !diag.HasErrors() {
		t.Error("unterminated string literal: want a diagnostic, got none")
	}
}
