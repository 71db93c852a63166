package hierarchy

// Filter returns a new forest holding the nodes that satisfy pred together
// with every ancestor of such a node, so a matching child never loses its
// parent. Sibling order is kept. The input forest is not modified; the
// returned TreeNodes are fresh but share Payload maps with the input.
func Filter(forest Forest, pred func(Node) bool) Forest {
	var keep func(nodes []*TreeNode) []*TreeNode
	keep = func(nodes []*TreeNode) []*TreeNode {
		var out []*TreeNode
		for _, n := range nodes {
			children := keep(n.Children)
			if len(children) == 0 && !pred(n.Node) {
				continue
			}
			out = append(out, &TreeNode{Node: n.Node, Children: children})
		}
		return out
	}
	return keep(forest)
}
