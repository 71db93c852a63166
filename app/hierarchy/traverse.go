package hierarchy

import "iter"

// Flatten yields the visible rows of forest in depth-first pre-order along
// with their depth (roots are depth 0). A node's children are visited only
// when its id is in expanded; collapsed nodes are still yielded themselves.
//
// The sequence reads forest and expanded without modifying either, so it can
// be ranged over any number of times.
func Flatten(forest Forest, expanded ExpandedSet) iter.Seq2[*TreeNode, int] {
	return func(yield func(*TreeNode, int) bool) {
		var visit func(nodes []*TreeNode, depth int) bool
		visit = func(nodes []*TreeNode, depth int) bool {
			for _, n := range nodes {
				if !yield(n, depth) {
					return false
				}
				if len(n.Children) > 0 && expanded.Has(n.Node.ID) {
					if !visit(n.Children, depth+1) {
						return false
					}
				}
			}
			return true
		}
		visit(forest, 0)
	}
}

// Walk yields every node of forest in pre-order regardless of expansion.
func Walk(forest Forest) iter.Seq2[*TreeNode, int] {
	return func(yield func(*TreeNode, int) bool) {
		var visit func(nodes []*TreeNode, depth int) bool
		visit = func(nodes []*TreeNode, depth int) bool {
			for _, n := range nodes {
				if !yield(n, depth) || !visit(n.Children, depth+1) {
					return false
				}
			}
			return true
		}
		visit(forest, 0)
	}
}

// Count returns the total number of nodes in forest.
func Count(forest Forest) int {
	n := 0
	for range Walk(forest) {
		n++
	}
	return n
}

// Find locates id in forest and returns the node with the ids of its
// ancestors, root first. It returns nil if id is not present.
func Find(forest Forest, id ID) (*TreeNode, []ID) {
	var path []ID
	var found *TreeNode
	var visit func(nodes []*TreeNode) bool
	visit = func(nodes []*TreeNode) bool {
		for _, n := range nodes {
			if n.Node.ID == id {
				found = n
				return true
			}
			path = append(path, n.Node.ID)
			if visit(n.Children) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}
	if !visit(forest) {
		return nil, nil
	}
	return found, path
}

// InternalIDs returns the ids of every node that has children, in pre-order.
func InternalIDs(forest Forest) []ID {
	var ids []ID
	for n := range Walk(forest) {
		if n.HasChildren() {
			ids = append(ids, n.Node.ID)
		}
	}
	return ids
}
