package hierarchy

import (
	"cmp"
	"slices"
)

// BuildOption configures BuildForest.
type BuildOption func(*buildConfig)

type buildConfig struct {
	onDangling func(DanglingParentWarning)
}

// WithDanglingParent registers fn to be called, in input order, for every
// node whose parent id is not present in the input.
func WithDanglingParent(fn func(DanglingParentWarning)) BuildOption {
	return func(c *buildConfig) { c.onDangling = fn }
}

// BuildForest assembles nodes into a forest.
//
// Roots are the nodes whose parent is NoParent or TaskRoot, plus the nodes
// whose parent id does not resolve to any input node. Roots and siblings
// are ordered by OrderIndex, ties keeping input order. Every input node
// appears exactly once in the result.
//
// A repeated id fails with *DuplicateIDError and a loop in any parent chain
// fails with *CyclicHierarchyError; no partial forest is returned.
func BuildForest(nodes []Node, opts ...BuildOption) (Forest, error) {
	var cfg buildConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	index := make(map[ID]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.ID]; dup {
			return nil, &DuplicateIDError{ID: n.ID}
		}
		index[n.ID] = i
	}

	// parent[i] is the input index of node i's parent, or -1 for a root.
	parent := make([]int, len(nodes))
	for i, n := range nodes {
		parent[i] = -1
		pid, ok := n.Parent.ID()
		if !ok {
			continue
		}
		p, found := index[pid]
		if !found {
			if cfg.onDangling != nil {
				cfg.onDangling(DanglingParentWarning{NodeID: n.ID, ParentID: pid})
			}
			continue
		}
		parent[i] = p
	}

	if err := checkAcyclic(nodes, parent); err != nil {
		return nil, err
	}

	tree := make([]*TreeNode, len(nodes))
	for i := range nodes {
		tree[i] = &TreeNode{Node: nodes[i]}
	}

	// Input order is preserved here, so the stable sort below only has to
	// break ties by position.
	var roots Forest
	for i := range nodes {
		if parent[i] < 0 {
			roots = append(roots, tree[i])
			continue
		}
		p := tree[parent[i]]
		p.Children = append(p.Children, tree[i])
	}

	sortSiblings(roots)
	for _, n := range tree {
		sortSiblings(n.Children)
	}
	return roots, nil
}

func sortSiblings(s []*TreeNode) {
	slices.SortStableFunc(s, func(a, b *TreeNode) int {
		return cmp.Compare(a.Node.OrderIndex, b.Node.OrderIndex)
	})
}

// checkAcyclic walks each parent chain upward once, colouring nodes so the
// whole pass stays linear. Reaching a node already on the current walk
// means the chain loops.
func checkAcyclic(nodes []Node, parent []int) error {
	const (
		unvisited = iota
		onPath
		done
	)

	state := make([]uint8, len(nodes))
	var path []int
	for start := range nodes {
		path = path[:0]
		cur := start
		for cur >= 0 && state[cur] == unvisited {
			state[cur] = onPath
			path = append(path, cur)
			cur = parent[cur]
		}
		if cur >= 0 && state[cur] == onPath {
			return cycleError(nodes, path, cur)
		}
		for _, i := range path {
			state[i] = done
		}
	}
	return nil
}

func cycleError(nodes []Node, path []int, at int) error {
	pos := slices.Index(path, at)
	ids := make([]ID, 0, len(path)-pos+1)
	for _, i := range path[pos:] {
		ids = append(ids, nodes[i].ID)
	}
	ids = append(ids, nodes[at].ID)
	return &CyclicHierarchyError{NodeID: nodes[at].ID, Path: ids}
}
