package hierarchy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateID     = errors.New("duplicate node id")
	ErrCyclicHierarchy = errors.New("cyclic hierarchy")
)

// DuplicateIDError reports two input records sharing an id.
type DuplicateIDError struct {
	ID ID
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("%s: %q", ErrDuplicateID.Error(), string(e.ID))
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// CyclicHierarchyError reports a parent chain that loops back on itself.
// Path lists the chain starting and ending at NodeID.
type CyclicHierarchyError struct {
	NodeID ID
	Path   []ID
}

func (e *CyclicHierarchyError) Error() string {
	msg := fmt.Sprintf("%s at %q", ErrCyclicHierarchy.Error(), string(e.NodeID))
	if len(e.Path) == 0 {
		return msg
	}
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = string(id)
	}
	return msg + ": " + strings.Join(parts, " -> ")
}

func (e *CyclicHierarchyError) Unwrap() error { return ErrCyclicHierarchy }

// DanglingParentWarning describes a node whose parent is not in the input.
// It is not an error: the node is promoted to a root.
type DanglingParentWarning struct {
	NodeID   ID `json:"node_id"`
	ParentID ID `json:"parent_id"`
}

func (w DanglingParentWarning) String() string {
	return fmt.Sprintf("node %q references missing parent %q", string(w.NodeID), string(w.ParentID))
}
