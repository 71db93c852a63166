package hierarchy

import (
	"encoding/json"
	"fmt"
)

// ID identifies a node. Callers with numeric keys pass their decimal form.
type ID string

type parentKind uint8

const (
	parentNone parentKind = iota
	parentTaskRoot
	parentNode
)

// taskRootToken is the JSON form of TaskRoot.
const taskRootToken = "@task"

// ParentRef says where a node hangs. A node can be detached (NoParent),
// attached directly under its owning task (TaskRoot), or attached to
// another node (ParentOf). The first two both make the node a root of the
// forest but are kept apart so they survive a round trip.
type ParentRef struct {
	kind parentKind
	id   ID
}

// NoParent returns the reference for a record with no parent at all.
func NoParent() ParentRef { return ParentRef{} }

// TaskRoot returns the reference for a record attached to its task's root.
func TaskRoot() ParentRef { return ParentRef{kind: parentTaskRoot} }

// ParentOf returns a reference to another node. An empty id is NoParent.
func ParentOf(id ID) ParentRef {
	if id == "" {
		return NoParent()
	}
	return ParentRef{kind: parentNode, id: id}
}

// IsRoot reports whether the reference places the node at the top level.
func (p ParentRef) IsRoot() bool { return p.kind != parentNode }

// IsTaskRoot reports whether the node is attached to its task's root.
func (p ParentRef) IsTaskRoot() bool { return p.kind == parentTaskRoot }

// ID returns the referenced node id and true, or "" and false for roots.
func (p ParentRef) ID() (ID, bool) {
	if p.kind != parentNode {
		return "", false
	}
	return p.id, true
}

func (p ParentRef) String() string {
	switch p.kind {
	case parentTaskRoot:
		return taskRootToken
	case parentNode:
		return string(p.id)
	default:
		return "<none>"
	}
}

// MarshalJSON encodes NoParent as null, TaskRoot as "@task" and a node
// reference as its id.
func (p ParentRef) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case parentTaskRoot:
		return json.Marshal(taskRootToken)
	case parentNode:
		return json.Marshal(string(p.id))
	default:
		return []byte("null"), nil
	}
}

func (p *ParentRef) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = NoParent()
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("parent reference: %w", err)
	}
	if s == taskRootToken {
		*p = TaskRoot()
		return nil
	}
	*p = ParentOf(ID(s))
	return nil
}

// Node is the unit record handed to BuildForest. Level is an advisory depth
// hint supplied by the caller; it is carried but never checked. Payload holds
// every domain field and is passed through untouched.
type Node struct {
	ID         ID             `json:"id"`
	Parent     ParentRef      `json:"parent_id"`
	Level      int            `json:"level"`
	OrderIndex int            `json:"order_index"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// TreeNode is a node of a built forest together with its ordered children.
type TreeNode struct {
	Node     Node        `json:"node"`
	Children []*TreeNode `json:"children,omitempty"`
}

// ID is shorthand for n.Node.ID.
func (n *TreeNode) ID() ID { return n.Node.ID }

// HasChildren reports whether the node has at least one child.
func (n *TreeNode) HasChildren() bool { return len(n.Children) > 0 }

// Forest is an ordered list of root nodes.
type Forest []*TreeNode
