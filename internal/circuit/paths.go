package circuit

// PathNodes returns every power path ending at id. Each path is the set of
// nodes walked backwards through predecessor tables toward a source. A
// powered INPUT with no predecessors is its own single path.
//
// Cost is O(nodes × paths); path counts are small in practice.
func (g *Graph) PathNodes(id NodeID) ([]NodeSet, error) {
	n, err := g.node(id)
	if err != nil {
		return nil, err
	}
	return g.pathNodes(n), nil
}

func (g *Graph) pathNodes(n *Node) []NodeSet {
	var paths []NodeSet
	switch {
	case n.prevs.len() > 0:
		paths = append(paths, make(NodeSet))
		g.walkPaths(n, &paths)
	case n.powerRefs > 0 && n.kind == KindInput:
		paths = append(paths, NodeSet{n.id: {}})
	}
	return paths
}

// walkPaths extends the last path in *paths with n and recurses into n's
// predecessors. A node with several predecessors replaces the last path with
// one copy per predecessor; a single predecessor extends it in place.
func (g *Graph) walkPaths(n *Node, paths *[]NodeSet) {
	cur := (*paths)[len(*paths)-1]
	cur.Add(n.id)

	if n.prevs.len() > 1 {
		root := cur.Clone()
		*paths = (*paths)[:len(*paths)-1]
		for _, prev := range n.prevs.keys() {
			if cur.Has(prev) {
				continue
			}
			*paths = append(*paths, root.Clone())
			g.walkPaths(g.nodes[prev], paths)
		}
		return
	}

	for _, prev := range n.prevs.keys() {
		if !cur.Has(prev) {
			g.walkPaths(g.nodes[prev], paths)
		}
	}
}
