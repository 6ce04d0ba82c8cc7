// Package symbols implements the SymbolStore: append-only variable
// bindings with shadowing via a name->most-recent-id map, plus record and
// list flattening into scalar locals, per spec.md §4.5.
package symbols

import (
	"strconv"

	"github.com/nerdalytics/tinywhale/internal/intern"
	"github.com/nerdalytics/tinywhale/internal/tree"
	"github.com/nerdalytics/tinywhale/internal/types"
)

// ID identifies a SymbolEntry within a Store.
type ID int32

const InvalidID ID = -1

// Entry is a single variable binding. LocalIndex is a fresh, monotonically
// increasing machine-local index assigned on every Add, so a shadowed name
// still keeps its own local.
type Entry struct {
	NameID      int32
	Name        string
	Type        types.ID
	LocalIndex  int
	ParseNodeID tree.ID
}

// Store is the append-only symbol table.
type Store struct {
	entries   []Entry
	byName    map[string]ID // most-recent id per name, for shadowing
	nextLocal int
}

// NewStore returns an empty symbol table.
func NewStore() *Store {
	return &Store{byName: make(map[string]ID, 32)}
}

// Add appends entry, allocates it a fresh LocalIndex, and overwrites the
// name->id map so lookupByName resolves to the new binding (shadowing).
func (s *Store) Add(entry Entry) ID {
	entry.LocalIndex = s.nextLocal
	s.nextLocal++
	id := ID(len(s.entries))
	s.entries = append(s.entries, entry)
	s.byName[entry.Name] = id
	return id
}

// Get returns the entry at id.
func (s *Store) Get(id ID) Entry {
	return s.entries[id]
}

// LookupByName returns the most recently added entry with the given name.
func (s *Store) LookupByName(name string) (ID, bool) {
	id, ok := s.byName[name]
	return id, ok
}

// Count is the number of machine locals needed: one per Add call.
func (s *Store) Count() int {
	return s.nextLocal
}

// Len returns the number of symbol entries (equal to Count, since shadowed
// entries are never removed).
func (s *Store) Len() int {
	return len(s.entries)
}

// DeclareRecordBinding flattens a record binding into one symbol per
// field, named "${baseName}_${fieldName}", each typed as the field's
// declared type. Returns the created entries' ids in field-declaration
// order so the caller can emit one Bind instruction per field.
func (s *Store) DeclareRecordBinding(baseName string, fields []types.Field, nodeID tree.ID, strings *intern.StringTable) []ID {
	ids := make([]ID, len(fields))
	for i, f := range fields {
		flatName := baseName + "_" + f.Name
		ids[i] = s.Add(Entry{
			NameID:      strings.Intern(flatName),
			Name:        flatName,
			Type:        f.Type,
			ParseNodeID: nodeID,
		})
	}
	return ids
}

// DeclareListBinding flattens a fixed-size list binding into `size`
// symbols named "${baseName}_${0..size-1}", each typed as elementType.
func (s *Store) DeclareListBinding(baseName string, listType types.ID, nodeID tree.ID, strings *intern.StringTable, typeStore *types.Store) []ID {
	info := typeStore.Get(listType)
	ids := make([]ID, info.Size)
	for i := 0; i < info.Size; i++ {
		flatName := baseName + "_" + strconv.Itoa(i)
		ids[i] = s.Add(Entry{
			NameID:      strings.Intern(flatName),
			Name:        flatName,
			Type:        info.ElementType,
			ParseNodeID: nodeID,
		})
	}
	return ids
}
