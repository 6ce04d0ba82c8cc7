// Package tree implements the postorder parse tree: a dense, append-only
// sequence of ParseNode records where every node's children occupy a
// contiguous range immediately before it, recoverable from subtree_size
// alone. No parent or child pointers are stored, per spec.md §3/§9.
package tree

import (
	"fmt"

	"github.com/nerdalytics/tinywhale/internal/token"
)

// Kind is a parse-node kind, grouped into integer bands so a caller can
// test a node's syntactic category with a range comparison instead of a
// type switch, the same banding spec.md §3 uses for ParseNode and Inst.
type Kind int

// Band boundaries. A node's Kind always falls in exactly one band.
const (
	bandRootMin       = 0
	bandStatementMin  = 10
	bandExpressionMin = 100
	bandPatternMin    = 200
)

const (
	// Root / line nodes: 0-9
	Program Kind = bandRootMin + iota
	RootLine
	IndentedLine
	DedentLine
)

const (
	// Statement-level nodes: 10-99
	VariableBinding Kind = bandStatementMin + iota
	PrimitiveBinding
	RecordBinding
	PanicStatement
	TypeDecl
	TypeAlias
	FieldDecl
	FieldInit
	MatchArm
	TypeAnnotation
	TypeBounds
	Bound
	TypeList
	FuncDecl
	FuncType
	ListType
	RefinementType
	Parameter
	Lambda
	ExpressionSequence
)

const (
	// Expressions: 100-149
	IntLiteral Kind = bandExpressionMin + iota
	FloatLiteral
	Identifier
	ParenExpr
	UnaryExpr
	BinaryExpr
	CompareChain
	FieldAccess
	IndexAccess
	FuncCall
	ListLiteral
	MatchExpr
	PanicExpr
	BindingExpr
)

const (
	// Patterns: 200-249
	LiteralPattern Kind = bandPatternMin + iota
	BindingPattern
	WildcardPattern
	OrPattern
)

// IsStatement reports whether k falls in the statement band.
func (k Kind) IsStatement() bool {
	return k >= bandStatementMin && k < bandExpressionMin
}

// IsExpression reports whether k falls in the expression band.
func (k Kind) IsExpression() bool {
	return k >= bandExpressionMin && k < bandPatternMin
}

// IsPattern reports whether k falls in the pattern band.
func (k Kind) IsPattern() bool {
	return k >= bandPatternMin
}

var kindNames = map[Kind]string{
	Program: "Program", RootLine: "RootLine", IndentedLine: "IndentedLine", DedentLine: "DedentLine",
	VariableBinding: "VariableBinding", PrimitiveBinding: "PrimitiveBinding", RecordBinding: "RecordBinding",
	PanicStatement: "PanicStatement", TypeDecl: "TypeDecl", TypeAlias: "TypeAlias", FieldDecl: "FieldDecl",
	FieldInit: "FieldInit", MatchArm: "MatchArm", TypeAnnotation: "TypeAnnotation", TypeBounds: "TypeBounds",
	Bound: "Bound", TypeList: "TypeList", FuncDecl: "FuncDecl", FuncType: "FuncType", ListType: "ListType",
	RefinementType: "RefinementType", Parameter: "Parameter", Lambda: "Lambda", ExpressionSequence: "ExpressionSequence",
	IntLiteral: "IntLiteral", FloatLiteral: "FloatLiteral", Identifier: "Identifier", ParenExpr: "ParenExpr",
	UnaryExpr: "UnaryExpr", BinaryExpr: "BinaryExpr", CompareChain: "CompareChain", FieldAccess: "FieldAccess",
	IndexAccess: "IndexAccess", FuncCall: "FuncCall", ListLiteral: "ListLiteral", MatchExpr: "MatchExpr",
	PanicExpr: "PanicExpr", BindingExpr: "BindingExpr",
	LiteralPattern: "LiteralPattern", BindingPattern: "BindingPattern", WildcardPattern: "WildcardPattern",
	OrPattern: "OrPattern",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ID identifies a ParseNode within a NodeStore.
type ID int32

const InvalidID ID = -1

// Node is a single postorder parse-tree record.
type Node struct {
	Kind        Kind
	TokenID     token.ID
	SubtreeSize int32
}
