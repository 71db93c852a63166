package hierarchy

import (
	"slices"
	"strings"
)

// ExpandedSet holds the ids of expanded nodes. It belongs to whoever renders
// the tree and is passed to Flatten; the zero value is an empty set that
// must be created with NewExpandedSet before mutation.
type ExpandedSet map[ID]struct{}

// NewExpandedSet returns a set containing ids.
func NewExpandedSet(ids ...ID) ExpandedSet {
	s := make(ExpandedSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// ParseExpanded reads a comma separated id list such as "a,b,c".
// Blank entries are skipped.
func ParseExpanded(raw string) ExpandedSet {
	s := NewExpandedSet()
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			s[ID(part)] = struct{}{}
		}
	}
	return s
}

func (s ExpandedSet) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

func (s ExpandedSet) Expand(id ID) { s[id] = struct{}{} }

func (s ExpandedSet) Collapse(id ID) { delete(s, id) }

// Toggle flips id and reports whether it is now expanded.
func (s ExpandedSet) Toggle(id ID) bool {
	if s.Has(id) {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

// CollapseAll empties the set.
func (s ExpandedSet) CollapseAll() { clear(s) }

// ExpandAll adds every node of forest that has children.
func (s ExpandedSet) ExpandAll(forest Forest) {
	for _, id := range InternalIDs(forest) {
		s[id] = struct{}{}
	}
}

// IDs returns the members in sorted order.
func (s ExpandedSet) IDs() []ID {
	ids := make([]ID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// String is the inverse of ParseExpanded.
func (s ExpandedSet) String() string {
	ids := s.IDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}
