package ir

import (
	"testing"

	"github.com/nerdalytics/tinywhale/internal/symbols"
	"github.com/nerdalytics/tinywhale/internal/types"
)

func TestIntConstRoundTrip(t *testing.T) {
	inst := NewIntConst(types.I64, -2147483649, -1)
	if got := IntConstValue(inst); got != -2147483649 {
		t.Errorf("IntConstValue = %d, want -2147483649", got)
	}
}

func TestIntConstRoundTripLargePositive(t *testing.T) {
	inst := NewIntConst(types.I64, 9223372036854775807, -1)
	if got := IntConstValue(inst); got != 9223372036854775807 {
		t.Errorf("IntConstValue = %d, want max int64", got)
	}
}

func TestStoreAppendsInOrder(t *testing.T) {
	s := NewStore()
	a := s.Add(NewIntConst(types.I32, 1, -1))
	b := s.Add(NewIntConst(types.I32, 2, -1))
	if a != 0 || b != 1 {
		t.Errorf("got ids %d, %d, want 0, 1", a, b)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestBindCarriesSymbolAndValue(t *testing.T) {
	s := NewStore()
	val := s.Add(NewIntConst(types.I32, 42, -1))
	bind := s.Add(NewBind(types.I32, symbols.ID(3), val, -1))
	got := s.Get(bind)
	if got.Arg0 != 3 || got.Arg1 != int32(val) {
		t.Errorf("Bind operands = %d, %d, want 3, %d", got.Arg0, got.Arg1, val)
	}
}
