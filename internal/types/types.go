// Package types implements the TypeStore: five fixed builtin primitives,
// plus nominal Distinct, content-interned Refined and List types, and
// nominal Record types, per spec.md §4.4.
package types

import (
	"fmt"
	"strconv"

	"github.com/nerdalytics/tinywhale/internal/tree"
)

// Kind classifies a TypeInfo entry.
type Kind int

const (
	KindNone Kind = iota
	KindI32
	KindI64
	KindF32
	KindF64
	KindDistinct
	KindRecord
	KindRefined
	KindList
)

var kindNames = map[Kind]string{
	KindNone: "None", KindI32: "i32", KindI64: "i64", KindF32: "f32", KindF64: "f64",
	KindDistinct: "Distinct", KindRecord: "Record", KindRefined: "Refined", KindList: "List",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ID identifies a TypeInfo within a Store. Fixed builtin ids match
// spec.md §4.4 exactly: None=0 is never itself used as a valid type, I32=1,
// I64=2, F32=3, F64=4. -1 is the Invalid sentinel and never resolves.
type ID int32

const (
	None    ID = 0
	I32     ID = 1
	I64     ID = 2
	F32     ID = 3
	F64     ID = 4
	Invalid ID = -1
)

// Field describes one record field, ordered by declaration.
type Field struct {
	Name  string
	Type  ID
	Index int
}

// Bound is an arbitrary-precision signed bound on a refined integer type.
// Stored as a decimal string to avoid truncating values outside int64
// range (a refinement constraint is itself just a literal, but the
// underlying base may be i64).
type Bound struct {
	Present bool
	Value   string
}

// Info is a single TypeStore entry. Only the fields relevant to Kind are
// populated; the rest hold zero values.
type Info struct {
	Kind        Kind
	Name        string
	Underlying  ID // Distinct/Refined: base type; builtin primitives: themselves. List: n/a (see ElementType)
	ParseNodeID tree.ID

	Fields []Field // Record only

	// Refined only
	Min, Max Bound

	// List only
	ElementType ID
	Size        int
}

// Store is the append-only, content-interning type table.
type Store struct {
	infos []Info

	byName     map[string]ID
	refinedKey map[string]ID // "base|min|max" -> id
	listKey    map[string]ID // "element|size" -> id
}

// NewStore returns a Store pre-populated with the five fixed builtins.
func NewStore() *Store {
	s := &Store{
		byName:     make(map[string]ID, 16),
		refinedKey: make(map[string]ID, 8),
		listKey:    make(map[string]ID, 8),
	}
	s.infos = append(s.infos,
		Info{Kind: KindNone, Name: "None"},
		Info{Kind: KindI32, Name: "i32"},
		Info{Kind: KindI64, Name: "i64"},
		Info{Kind: KindF32, Name: "f32"},
		Info{Kind: KindF64, Name: "f64"},
	)
	s.infos[I32].Underlying = I32
	s.infos[I64].Underlying = I64
	s.infos[F32].Underlying = F32
	s.infos[F64].Underlying = F64
	s.byName["i32"] = I32
	s.byName["i64"] = I64
	s.byName["f32"] = F32
	s.byName["f64"] = F64
	return s
}

// Get returns the Info for id. It panics on an invalid id.
func (s *Store) Get(id ID) Info {
	return s.infos[id]
}

// Len returns the number of registered types, including the five builtins.
func (s *Store) Len() int {
	return len(s.infos)
}

// Lookup resolves a type by name. The Invalid sentinel never resolves.
func (s *Store) Lookup(name string) (ID, bool) {
	id, ok := s.byName[name]
	return id, ok
}

// IsInteger reports whether id's base primitive is i32 or i64.
func (s *Store) IsInteger(id ID) bool {
	base := s.ToWasmType(id)
	return base == I32 || base == I64
}

// IsFloat reports whether id's base primitive is f32 or f64.
func (s *Store) IsFloat(id ID) bool {
	base := s.ToWasmType(id)
	return base == F32 || base == F64
}

// RegisterDistinct allocates a fresh nominal type naming underlying
// (type X = T). Nominal equality is a == b on the resulting id.
func (s *Store) RegisterDistinct(name string, underlying ID, nodeID tree.ID) ID {
	id := ID(len(s.infos))
	s.infos = append(s.infos, Info{Kind: KindDistinct, Name: name, Underlying: underlying, ParseNodeID: nodeID})
	s.byName[name] = id
	return id
}

// RegisterRefinedType content-interns a refined integer type by
// (base, min, max): identical constraints yield the same id.
func (s *Store) RegisterRefinedType(base ID, min, max Bound, nodeID tree.ID) ID {
	key := refinedKey(base, min, max)
	if id, ok := s.refinedKey[key]; ok {
		return id
	}
	id := ID(len(s.infos))
	s.infos = append(s.infos, Info{Kind: KindRefined, Underlying: base, Min: min, Max: max, ParseNodeID: nodeID})
	s.refinedKey[key] = id
	return id
}

func refinedKey(base ID, min, max Bound) string {
	k := strconv.Itoa(int(base)) + "|"
	if min.Present {
		k += "min=" + min.Value
	}
	k += "|"
	if max.Present {
		k += "max=" + max.Value
	}
	return k
}

// RegisterListType content-interns a fixed-size list type by
// (elementType, size).
func (s *Store) RegisterListType(element ID, size int, nodeID tree.ID) ID {
	key := strconv.Itoa(int(element)) + "|" + strconv.Itoa(size)
	if id, ok := s.listKey[key]; ok {
		return id
	}
	id := ID(len(s.infos))
	s.infos = append(s.infos, Info{Kind: KindList, ElementType: element, Size: size, ParseNodeID: nodeID})
	s.listKey[key] = id
	return id
}

// RegisterRecordType allocates a fresh nominal record type. Records are
// never content-interned: two declarations with identical fields are
// distinct nominal types.
func (s *Store) RegisterRecordType(name string, fields []Field, nodeID tree.ID) ID {
	id := ID(len(s.infos))
	s.infos = append(s.infos, Info{Kind: KindRecord, Name: name, Fields: fields, ParseNodeID: nodeID})
	s.byName[name] = id
	return id
}

// ToWasmType recursively unwraps Distinct to its underlying primitive, and
// reduces a List to its element's base primitive (flattening into scalar
// locals is the symbol table's job, not the type system's). Refined types
// unwrap to their integer base.
func (s *Store) ToWasmType(id ID) ID {
	for {
		info := s.Get(id)
		switch info.Kind {
		case KindDistinct:
			id = info.Underlying
		case KindRefined:
			id = info.Underlying
		case KindList:
			id = info.ElementType
		default:
			return id
		}
	}
}

// AreEqual implements nominal equality: identical ids only. O(1).
func AreEqual(a, b ID) bool {
	return a == b
}

// AliasName binds name directly to target's existing id without allocating a
// new Info entry: an uppercase-to-uppercase TypeAlias (no `type` keyword) is
// pure renaming per spec.md §9, not nominal type creation the way
// RegisterDistinct is.
func (s *Store) AliasName(name string, target ID) {
	s.byName[name] = target
}

