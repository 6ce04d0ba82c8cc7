// Package scope implements the ScopeStore: scope lifecycles and
// reachability tracking. A single root "main" scope is created at check
// start; nested scopes are reserved for future function bodies, per
// spec.md §3.
package scope

// ID identifies a Scope within a Store.
type ID int32

const InvalidID ID = -1

// Scope is (id, parent_id, reachable). Reachable is the only field ever
// mutated after creation: a panic statement flips it false for the
// enclosing scope.
type Scope struct {
	Parent    ID
	Reachable bool
}

// Store is the append-only scope table.
type Store struct {
	scopes []Scope
	root   ID
}

// NewStore creates a Store with the single root "main" scope, reachable
// by construction.
func NewStore() *Store {
	s := &Store{}
	s.root = s.push(InvalidID)
	return s
}

// Root returns the id of the root "main" scope.
func (s *Store) Root() ID {
	return s.root
}

// push appends a new reachable scope with the given parent and returns
// its id.
func (s *Store) push(parent ID) ID {
	id := ID(len(s.scopes))
	s.scopes = append(s.scopes, Scope{Parent: parent, Reachable: true})
	return id
}

// Push creates a new reachable child scope under parent. Reserved for
// future function-body support; the checker's core line dispatch never
// nests scopes today.
func (s *Store) Push(parent ID) ID {
	return s.push(parent)
}

// Get returns the scope at id.
func (s *Store) Get(id ID) Scope {
	return s.scopes[id]
}

// SetReachable mutates id's reachability, the one mutation any store in
// this compiler permits after creation.
func (s *Store) SetReachable(id ID, reachable bool) {
	s.scopes[id].Reachable = reachable
}

// IsReachable reports id's current reachability.
func (s *Store) IsReachable(id ID) bool {
	return s.scopes[id].Reachable
}
