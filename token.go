package sketchvm

// TokKind is the closed set of lexical categories (spec §3 "Source
// Token" / §4.3 "Lexer").
type TokKind int

const (
	TokEOF TokKind = iota
	TokIdent
	TokKeyword
	TokIntLit
	TokFloatLit
	TokCharLit
	TokStringLit
	TokPunct
	TokOp
)

func (k TokKind) String() string {
	switch k {
	case TokEOF:
		return "EOF"
	case TokIdent:
		return "Ident"
	case TokKeyword:
		return "Keyword"
	case TokIntLit:
		return "IntLit"
	case TokFloatLit:
		return "FloatLit"
	case TokCharLit:
		return "CharLit"
	case TokStringLit:
		return "StringLit"
	case TokPunct:
		return "Punct"
	case TokOp:
		return "Op"
	default:
		return "?"
	}
}

// NumSuffix is the set of numeric literal suffix flags (spec §3:
// "U, L, LL, F, D").
type NumSuffix uint8

const (
	SuffixNone NumSuffix = 0
	SuffixU    NumSuffix = 1 << iota
	SuffixL
	SuffixLL
	SuffixF
	SuffixD
)

// Token is one lexical unit. Every token has Line >= 1 (spec §3
// invariant). Transient to the parse phase; not retained by the AST.
type Token struct {
	Kind   TokKind
	Lexeme string
	Line   int

	// IntValue/FloatValue hold the normalized numeric value for
	// TokIntLit/TokFloatLit tokens; Suffix holds the parsed suffix set.
	IntValue   int64
	FloatValue float64
	Suffix     NumSuffix
	IsUnsigned bool
}

var keywords = map[string]bool{
	"auto": true, "bool": true, "break": true, "case": true, "char": true,
	"const": true, "continue": true, "default": true, "do": true,
	"double": true, "else": true, "enum": true, "extern": true,
	"float": true, "for": true, "goto": true, "if": true, "int": true,
	"long": true, "nullptr": true, "return": true, "short": true,
	"signed": true, "sizeof": true, "static": true, "struct": true,
	"switch": true, "typedef": true, "typeof": true, "union": true,
	"unsigned": true, "void": true, "volatile": true, "while": true,
	"class": true, "namespace": true, "true": true, "false": true,
}

// punct3, punct2 and the single-char punctuator/operator set are
// consulted in longest-match-first order by the lexer (spec §4.3:
// "all C++ operators up to three characters").
var punct3 = []string{"<<=", ">>=", "->*", "...", "::*"}
var punct2 = []string{
	"<<", ">>", "<=", ">=", "==", "!=", "&&", "||", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "->", "::",
	".*",
}
