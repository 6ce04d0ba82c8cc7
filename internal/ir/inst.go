// Package ir implements the InstStore: the SemIR's dense, fixed-layout
// instructions. Every Inst is (kind, type_id, arg0, arg1, parse_node_id),
// banded by role the same way token.Kind and tree.Kind are, per spec.md §3.
package ir

import (
	"fmt"

	"github.com/nerdalytics/tinywhale/internal/symbols"
	"github.com/nerdalytics/tinywhale/internal/tree"
	"github.com/nerdalytics/tinywhale/internal/types"
)

// Kind is an instruction kind, banded by role: terminators 0-9, constants
// 10-19, variables 20-29, operators 30-39, control 40-49.
type Kind int

const (
	// Terminators: 0-9
	Unreachable Kind = iota
)

const (
	// Constants: 10-19
	IntConst Kind = 10 + iota
	FloatConst
)

const (
	// Variables: 20-29
	Bind Kind = 20 + iota
	VarRef
	FieldAccess
)

const (
	// Operators: 30-39
	Negate Kind = 30 + iota
	BitwiseNot
	BinaryOp
	LogicalAnd
	LogicalOr
)

const (
	// Control: 40-49
	Match Kind = 40 + iota
	MatchArm
	PatternBind
)

var kindNames = map[Kind]string{
	Unreachable: "Unreachable",
	IntConst:    "IntConst", FloatConst: "FloatConst",
	Bind: "Bind", VarRef: "VarRef", FieldAccess: "FieldAccess",
	Negate: "Negate", BitwiseNot: "BitwiseNot", BinaryOp: "BinaryOp", LogicalAnd: "LogicalAnd", LogicalOr: "LogicalOr",
	Match: "Match", MatchArm: "MatchArm", PatternBind: "PatternBind",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// BinaryOperator distinguishes BinaryOp instructions by the source
// operator, since a single Kind covers every arithmetic, bitwise, and
// comparison operator.
type BinaryOperator int

const (
	OpAdd BinaryOperator = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpRemRem // %%
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpUShr
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNeq
	OpCompareChain
)

var binaryOperatorNames = map[BinaryOperator]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpRem: "%", OpRemRem: "%%",
	OpBitAnd: "&", OpBitOr: "|", OpBitXor: "^", OpShl: "<<", OpShr: ">>", OpUShr: ">>>",
	OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=", OpEq: "==", OpNeq: "!=",
	OpCompareChain: "compare-chain",
}

func (op BinaryOperator) String() string {
	if s, ok := binaryOperatorNames[op]; ok {
		return s
	}
	return fmt.Sprintf("BinaryOperator(%d)", int(op))
}

// ID identifies an Inst within an InstStore.
type ID int32

const InvalidID ID = -1

// Inst is the fixed-layout SemIR instruction. Operand semantics are
// encoded per Kind:
//   - IntConst: arg0 is the low 32 bits, arg1 the high 32 bits of the value.
//   - FloatConst: arg0 indexes the CompilationContext's float table.
//   - Bind: arg0 is the symbols.ID being bound; arg1 is the value Inst's ID.
//   - VarRef: arg0 is the symbols.ID referenced.
//   - FieldAccess: arg0 is the base Inst's ID; arg1 is the field index.
//   - BinaryOp: arg0 is the left operand Inst's ID, arg1 the right; the
//     BinaryOperator is carried by TypeID's sibling field Operator below
//     via NewBinaryOp.
//   - Match: arg0 is the scrutinee Inst's ID, arg1 the arm count.
//   - MatchArm: arg0 is the pattern's parse-node id, arg1 the body Inst's ID.
type Inst struct {
	Kind        Kind
	TypeID      types.ID
	Arg0        int32
	Arg1        int32
	ParseNodeID tree.ID
	Operator    BinaryOperator // valid for BinaryOp only
}

// Store is the append-only SemIR instruction sequence, in emission order.
type Store struct {
	insts []Inst
}

// NewStore returns an empty instruction store.
func NewStore() *Store {
	return &Store{insts: make([]Inst, 0, 256)}
}

// Add appends inst and returns its id.
func (s *Store) Add(inst Inst) ID {
	id := ID(len(s.insts))
	s.insts = append(s.insts, inst)
	return id
}

// Get returns the instruction at id.
func (s *Store) Get(id ID) Inst {
	return s.insts[id]
}

// Len returns the number of instructions.
func (s *Store) Len() int {
	return len(s.insts)
}

// NewIntConst builds an IntConst instruction from a 64-bit value split
// into its low/high 32-bit halves, typed as typ (I32 or I64).
func NewIntConst(typ types.ID, value int64, nodeID tree.ID) Inst {
	return Inst{Kind: IntConst, TypeID: typ, Arg0: int32(uint64(value)), Arg1: int32(uint64(value) >> 32), ParseNodeID: nodeID}
}

// IntConstValue reassembles the 64-bit value an IntConst instruction
// carries across its two 32-bit halves.
func IntConstValue(inst Inst) int64 {
	return int64(uint64(uint32(inst.Arg0)) | uint64(uint32(inst.Arg1))<<32)
}

// NewFloatConst builds a FloatConst instruction referencing floatID in the
// CompilationContext's float table.
func NewFloatConst(typ types.ID, floatID int32, nodeID tree.ID) Inst {
	return Inst{Kind: FloatConst, TypeID: typ, Arg0: floatID, ParseNodeID: nodeID}
}

// NewBind builds a Bind instruction binding sym to the value produced by
// valueInst.
func NewBind(typ types.ID, sym symbols.ID, valueInst ID, nodeID tree.ID) Inst {
	return Inst{Kind: Bind, TypeID: typ, Arg0: int32(sym), Arg1: int32(valueInst), ParseNodeID: nodeID}
}

// NewVarRef builds a VarRef instruction reading sym's current value.
func NewVarRef(typ types.ID, sym symbols.ID, nodeID tree.ID) Inst {
	return Inst{Kind: VarRef, TypeID: typ, Arg0: int32(sym), ParseNodeID: nodeID}
}

// NewBinaryOp builds a BinaryOp instruction over left and right operand
// instructions, resulting in typ (the operand type for arithmetic, I32
// for comparisons, per spec.md §8).
func NewBinaryOp(typ types.ID, op BinaryOperator, left, right ID, nodeID tree.ID) Inst {
	return Inst{Kind: BinaryOp, TypeID: typ, Arg0: int32(left), Arg1: int32(right), Operator: op, ParseNodeID: nodeID}
}

// NewUnreachable builds the sole terminator instruction, emitted for a
// panic statement.
func NewUnreachable(nodeID tree.ID) Inst {
	return Inst{Kind: Unreachable, TypeID: types.None, ParseNodeID: nodeID}
}
