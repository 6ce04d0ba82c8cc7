// Package semir exposes the downstream contract spec.md §6 promises a
// WASM emitter: read-only views over the InstStore, SymbolStore, and
// TypeStore in id (= emission) order, with no encoding logic of its own.
// The actual WebAssembly encoder is out of scope for this repository; this
// package is where it would plug in.
package semir

import (
	"github.com/nerdalytics/tinywhale/internal/check"
	"github.com/nerdalytics/tinywhale/internal/ir"
	"github.com/nerdalytics/tinywhale/internal/symbols"
	"github.com/nerdalytics/tinywhale/internal/types"
)

// ExportedInst mirrors one InstStore entry, with Kind/Operator already
// resolved to readable names so a downstream consumer never has to reach
// back into the internal ir package.
type ExportedInst struct {
	ID       int
	Kind     string
	TypeID   int
	Arg0     int32
	Arg1     int32
	Operator string // only meaningful when Kind == "BinaryOp"
}

// ExportedSymbol mirrors one SymbolStore entry: a single scalar machine
// local per spec.md §6 ("allocate one machine local per symbol").
type ExportedSymbol struct {
	ID         int
	Name       string
	TypeID     int
	LocalIndex int
}

// ExportedType mirrors one TypeStore entry, with WasmType already resolved
// via toWasmType so the emitter never needs to unwrap Distinct/Refined/List
// itself.
type ExportedType struct {
	ID       int
	Kind     string
	Name     string
	WasmType int
}

// View is the complete downstream contract for one successful check: every
// instruction, symbol, and type in emission/id order.
type View struct {
	Insts   []ExportedInst
	Symbols []ExportedSymbol
	Types   []ExportedType
}

// Export builds a View from a check.Result. Callers only do this after a
// check that produced no errors; a failed check still has stores, but an
// emitter has no business consuming them.
func Export(result *check.Result) *View {
	v := &View{
		Insts:   make([]ExportedInst, 0, result.Insts.Len()),
		Symbols: make([]ExportedSymbol, 0, result.Symbols.Count()),
		Types:   make([]ExportedType, 0, result.Types.Len()),
	}

	for i := 0; i < result.Insts.Len(); i++ {
		inst := result.Insts.Get(ir.ID(i))
		exp := ExportedInst{ID: i, Kind: inst.Kind.String(), TypeID: int(inst.TypeID), Arg0: inst.Arg0, Arg1: inst.Arg1}
		if inst.Kind == ir.BinaryOp {
			exp.Operator = inst.Operator.String()
		}
		v.Insts = append(v.Insts, exp)
	}

	for i := 0; i < result.Symbols.Count(); i++ {
		entry := result.Symbols.Get(symbols.ID(i))
		v.Symbols = append(v.Symbols, ExportedSymbol{
			ID:         i,
			Name:       entry.Name,
			TypeID:     int(entry.Type),
			LocalIndex: entry.LocalIndex,
		})
	}

	for i := 0; i < result.Types.Len(); i++ {
		info := result.Types.Get(types.ID(i))
		v.Types = append(v.Types, ExportedType{
			ID:       i,
			Kind:     info.Kind.String(),
			Name:     info.Name,
			WasmType: int(result.Types.ToWasmType(types.ID(i))),
		})
	}

	return v
}
