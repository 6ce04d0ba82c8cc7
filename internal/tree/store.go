package tree

// Store is the dense, append-only postorder sequence of parse nodes. For a
// node at index n with SubtreeSize s, its children occupy [n-s+1, n-1];
// iterating children is a backwards walk using each child's own
// SubtreeSize. Program is always the last node added.
type Store struct {
	nodes []Node
}

// NewStore returns an empty node store.
func NewStore() *Store {
	return &Store{nodes: make([]Node, 0, 256)}
}

// Add appends a node and returns its ID. Callers are responsible for
// computing SubtreeSize as 1 + the sum of the node's children's sizes
// before calling Add, since postorder emission happens after children are
// fully built.
func (s *Store) Add(n Node) ID {
	id := ID(len(s.nodes))
	s.nodes = append(s.nodes, n)
	return id
}

// Get returns the node at id.
func (s *Store) Get(id ID) Node {
	return s.nodes[id]
}

// Len returns the number of nodes stored.
func (s *Store) Len() int {
	return len(s.nodes)
}

// Valid reports whether id addresses a real node.
func (s *Store) Valid(id ID) bool {
	return id >= 0 && int(id) < len(s.nodes)
}

// Root returns the last-added node's id, the Program node by construction.
func (s *Store) Root() ID {
	return ID(len(s.nodes) - 1)
}

// Children returns the ids of id's direct children in left-to-right
// source order, derived purely from SubtreeSize fields — no parent or
// child pointers are ever stored.
func (s *Store) Children(id ID) []ID {
	n := s.Get(id)
	end := int32(id) - 1
	start := int32(id) - n.SubtreeSize + 1

	var kids []ID
	cursor := end
	for cursor >= start {
		child := s.Get(ID(cursor))
		kids = append(kids, ID(cursor))
		cursor -= child.SubtreeSize
	}
	// kids was built rightmost-first (backwards walk); reverse for
	// left-to-right source order.
	for i, j := 0, len(kids)-1; i < j; i, j = i+1, j-1 {
		kids[i], kids[j] = kids[j], kids[i]
	}
	return kids
}

// LastChild returns the rightmost direct child of id, or InvalidID if id
// has no children.
func (s *Store) LastChild(id ID) ID {
	n := s.Get(id)
	if n.SubtreeSize <= 1 {
		return InvalidID
	}
	return ID(int32(id) - 1)
}
