package sketchvm

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeKind is the closed AST node-kind enumeration referenced by both
// the parser (C3) and the CompactAST codec (C4, spec §4.4 "kind: u8,
// 1..~0x90"). Values are stable across releases: the codec persists
// them on the wire, so existing kinds are never renumbered, only
// appended to.
type NodeKind uint8

const (
	NodeProgram NodeKind = iota + 1
	NodeFuncDef
	NodeFuncDecl
	NodeParamList
	NodeParam
	NodeReturnType
	NodeCompoundStmt
	NodeVarDecl
	NodeTypedefDecl
	NodeStructDecl
	NodeUnionDecl
	NodeEnumDecl
	NodeEnumerator
	NodeStructMember
	NodeArrayDeclarator
	NodePointerDeclarator
	NodeFuncPointerDeclarator
	NodeInitList
	NodeDesignatedInit
	NodeIf
	NodeFor
	NodeRangeFor
	NodeWhile
	NodeDoWhile
	NodeSwitch
	NodeCase
	NodeDefault
	NodeBreak
	NodeContinue
	NodeReturn
	NodeExprStmt
	NodeEmptyStmt
	NodeErrorStmt // error-recovery placeholder (spec §4.3 "error-flagged sub-tree")
	NodeBinaryExpr
	NodeUnaryExpr
	NodePostfixExpr
	NodeAssignExpr
	NodeCompoundAssignExpr
	NodeTernaryExpr
	NodeCommaExpr
	NodeCallExpr
	NodeSubscriptExpr
	NodeMemberExpr
	NodeArrowExpr
	NodeScopeExpr
	NodeCastExpr
	NodeSizeofExpr
	NodeTypeofExpr
	NodeIdentExpr
	NodeIntLitExpr
	NodeFloatLitExpr
	NodeCharLitExpr
	NodeStringLitExpr
	NodeBoolLitExpr
	NodeNullptrLitExpr
	NodeTypeName
)

var nodeKindNames = map[NodeKind]string{
	NodeProgram: "Program", NodeFuncDef: "FuncDef", NodeFuncDecl: "FuncDecl",
	NodeParamList: "ParamList", NodeParam: "Param", NodeReturnType: "ReturnType",
	NodeCompoundStmt: "CompoundStmt", NodeVarDecl: "VarDecl",
	NodeTypedefDecl: "TypedefDecl", NodeStructDecl: "StructDecl",
	NodeUnionDecl: "UnionDecl", NodeEnumDecl: "EnumDecl", NodeEnumerator: "Enumerator",
	NodeStructMember: "StructMember", NodeArrayDeclarator: "ArrayDeclarator",
	NodePointerDeclarator: "PointerDeclarator", NodeFuncPointerDeclarator: "FuncPointerDeclarator",
	NodeInitList: "InitList", NodeDesignatedInit: "DesignatedInit",
	NodeIf: "If", NodeFor: "For", NodeRangeFor: "RangeFor", NodeWhile: "While",
	NodeDoWhile: "DoWhile", NodeSwitch: "Switch", NodeCase: "Case", NodeDefault: "Default",
	NodeBreak: "Break", NodeContinue: "Continue", NodeReturn: "Return",
	NodeExprStmt: "ExprStmt", NodeEmptyStmt: "EmptyStmt", NodeErrorStmt: "ErrorStmt",
	NodeBinaryExpr: "BinaryExpr", NodeUnaryExpr: "UnaryExpr", NodePostfixExpr: "PostfixExpr",
	NodeAssignExpr: "AssignExpr", NodeCompoundAssignExpr: "CompoundAssignExpr",
	NodeTernaryExpr: "TernaryExpr", NodeCommaExpr: "CommaExpr", NodeCallExpr: "CallExpr",
	NodeSubscriptExpr: "SubscriptExpr", NodeMemberExpr: "MemberExpr", NodeArrowExpr: "ArrowExpr",
	NodeScopeExpr: "ScopeExpr", NodeCastExpr: "CastExpr", NodeSizeofExpr: "SizeofExpr",
	NodeTypeofExpr: "TypeofExpr", NodeIdentExpr: "IdentExpr", NodeIntLitExpr: "IntLitExpr",
	NodeFloatLitExpr: "FloatLitExpr", NodeCharLitExpr: "CharLitExpr",
	NodeStringLitExpr: "StringLitExpr", NodeBoolLitExpr: "BoolLitExpr",
	NodeNullptrLitExpr: "NullptrLitExpr", NodeTypeName: "TypeName",
}

func (k NodeKind) String() string {
	if s, ok := nodeKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("NodeKind(%d)", k)
}

// Node is the single concrete AST node type (spec §3 "AST Node
// (abstract)"): a kind tag, line, optional type annotation, ordered
// children, and a small payload. A single concrete struct (rather than
// one Go type per kind, the way google-kati/ast.go has one struct per
// AST statement form) keeps the CompactAST codec's node table
// (kind/flags/dataType/childCount/value) a direct mirror of this type;
// kind-specific accessors below give callers the same ergonomics a
// one-struct-per-kind design would, without the codec needing a type
// switch over dozens of Go types.
type Node struct {
	Kind     NodeKind
	Line     int
	Type     string // declared type annotation, "" if not a declaration
	Children []*Node
	Parent   *Node

	// Payload: exactly one of these is meaningful, selected by Kind.
	Ident    string // identifier name, operator symbol, struct tag, ...
	IntVal   int64
	FloatVal float64
	StrVal   string
	BoolVal  bool
	Flags    uint8 // e.g. const/static/volatile/extern bit flags on VarDecl
}

// Flag bits stored in Node.Flags for VarDecl/Param specifiers.
const (
	FlagConst uint8 = 1 << iota
	FlagStatic
	FlagVolatile
	FlagExtern
)

func newNode(kind NodeKind, line int) *Node {
	return &Node{Kind: kind, Line: line}
}

func (n *Node) addChild(c *Node) *Node {
	if c == nil {
		return n
	}
	c.Parent = n
	n.Children = append(n.Children, c)
	return n
}

// Child returns the i'th child or nil if out of range, so visitors can
// use fixed-arity access (spec §3: "Control-flow nodes have fixed child
// arity per kind") without bounds-checking everywhere.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Print renders a canonical, deterministic textual form of the tree,
// used by the CLI's -dump_ast flag and by the CompactAST round-trip
// test to compare trees. Programs, function definitions, parameters,
// blocks, if/while/return, expression statements, binary, assignment
// and call expressions, identifiers and int/float/string/bool literals
// render as C source, and a variable declaration renders with its
// first child as an "= ..." initializer; every other node kind renders
// as its kind name, so Print output for trees containing those kinds
// is not valid input to Parse.
func (n *Node) Print() string {
	var sb strings.Builder
	n.print(&sb, 0)
	return sb.String()
}

func (n *Node) print(sb *strings.Builder, depth int) {
	if n == nil {
		return
	}
	switch n.Kind {
	case NodeProgram:
		for _, c := range n.Children {
			c.print(sb, depth)
			sb.WriteString("\n")
		}
	case NodeFuncDef:
		sb.WriteString(n.Type + " " + n.Ident + "(")
		n.Child(1).print(sb, depth)
		sb.WriteString(") ")
		n.Child(2).print(sb, depth)
	case NodeParamList:
		for i, p := range n.Children {
			if i > 0 {
				sb.WriteString(", ")
			}
			p.print(sb, depth)
		}
	case NodeParam:
		sb.WriteString(n.Type + " " + n.Ident)
	case NodeCompoundStmt:
		sb.WriteString("{\n")
		for _, c := range n.Children {
			sb.WriteString(strings.Repeat("  ", depth+1))
			c.print(sb, depth+1)
			sb.WriteString(";\n")
		}
		sb.WriteString(strings.Repeat("  ", depth) + "}")
	case NodeVarDecl:
		sb.WriteString(n.Type + " " + n.Ident)
		if len(n.Children) > 0 {
			sb.WriteString(" = ")
			n.Child(0).print(sb, depth)
		}
	case NodeIf:
		sb.WriteString("if (")
		n.Child(0).print(sb, depth)
		sb.WriteString(") ")
		n.Child(1).print(sb, depth)
		if n.Child(2) != nil {
			sb.WriteString(" else ")
			n.Child(2).print(sb, depth)
		}
	case NodeWhile:
		sb.WriteString("while (")
		n.Child(0).print(sb, depth)
		sb.WriteString(") ")
		n.Child(1).print(sb, depth)
	case NodeReturn:
		sb.WriteString("return")
		if len(n.Children) > 0 {
			sb.WriteString(" ")
			n.Child(0).print(sb, depth)
		}
	case NodeExprStmt:
		n.Child(0).print(sb, depth)
	case NodeBinaryExpr:
		sb.WriteString("(")
		n.Child(0).print(sb, depth)
		sb.WriteString(" " + n.Ident + " ")
		n.Child(1).print(sb, depth)
		sb.WriteString(")")
	case NodeAssignExpr, NodeCompoundAssignExpr:
		n.Child(0).print(sb, depth)
		sb.WriteString(" " + n.Ident + " ")
		n.Child(1).print(sb, depth)
	case NodeCallExpr:
		n.Child(0).print(sb, depth)
		sb.WriteString("(")
		for i := 1; i < len(n.Children); i++ {
			if i > 1 {
				sb.WriteString(", ")
			}
			n.Child(i).print(sb, depth)
		}
		sb.WriteString(")")
	case NodeIdentExpr:
		sb.WriteString(n.Ident)
	case NodeIntLitExpr:
		sb.WriteString(strconv.FormatInt(n.IntVal, 10))
	case NodeFloatLitExpr:
		sb.WriteString(strconv.FormatFloat(n.FloatVal, 'g', -1, 64))
	case NodeStringLitExpr:
		sb.WriteString(strconv.Quote(n.StrVal))
	case NodeBoolLitExpr:
		sb.WriteString(strconv.FormatBool(n.BoolVal))
	default:
		sb.WriteString(n.Kind.String())
	}
}
