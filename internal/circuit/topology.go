package circuit

import "fmt"

type direction int

const (
	dirIllegal direction = iota
	dirUndirected
	dirForward  // a → b
	dirBackward // b → a
)

// edgeDirection applies the legality table. IO-IO is undirected; otherwise
// edges never leave an OUTPUT and never enter an INPUT. Naming an OUTPUT
// first and an INPUT second is rejected outright.
func edgeDirection(a, b Kind) direction {
	switch {
	case a == KindIO && b == KindIO:
		return dirUndirected
	case a == KindOutput && b == KindInput:
		return dirIllegal
	case a != KindOutput && b != KindInput:
		return dirForward
	case a != KindInput && b != KindOutput:
		return dirBackward
	}
	return dirIllegal
}

// CanConnect reports whether an edge between nodes of kinds a and b is legal.
func CanConnect(a, b Kind) bool {
	return edgeDirection(a, b) != dirIllegal
}

// AddNeighbor connects a and b and credits each side with the power the
// other already carries, as if it had always flowed across the new edge.
// It returns false without error if the two are already connected.
func (g *Graph) AddNeighbor(a, b NodeID) (bool, error) {
	na, nb, err := g.endpoints(a, b)
	if err != nil {
		return false, err
	}
	if na.hasNeighbor(b) || nb.hasNeighbor(a) {
		return false, nil
	}
	dir := edgeDirection(na.kind, nb.kind)
	if a == b || dir == dirIllegal {
		return false, fmt.Errorf("%w: %s (%s) to %s (%s)", ErrIllegalEdge, na.name, na.kind, nb.name, nb.kind)
	}

	switch dir {
	case dirUndirected:
		// Both snapshots are taken before either side changes.
		fromB := g.pathNodes(nb)
		fromA := g.pathNodes(na)
		for _, p := range fromB {
			g.propagate(na, true, b, p, 1)
		}
		for _, p := range fromA {
			g.propagate(nb, true, a, p, 1)
		}
		na.neighbors = append(na.neighbors, b)
		nb.neighbors = append(nb.neighbors, a)
	case dirForward:
		g.propagatePaths(true, na, nb)
		na.neighbors = append(na.neighbors, b)
	case dirBackward:
		g.propagatePaths(true, nb, na)
		nb.neighbors = append(nb.neighbors, a)
	}
	return true, nil
}

// RemoveNeighbor disconnects a and b and withdraws the contributions that
// crossed the edge. It returns false without error if they are not connected.
func (g *Graph) RemoveNeighbor(a, b NodeID) (bool, error) {
	na, nb, err := g.endpoints(a, b)
	if err != nil {
		return false, err
	}
	if !na.hasNeighbor(b) && !nb.hasNeighbor(a) {
		return false, nil
	}

	switch storedDirection(na, nb) {
	case dirUndirected:
		// Reverse order of AddNeighbor: the edge goes first.
		na.removeNeighbor(b)
		nb.removeNeighbor(a)
		na.prevs.remove(b)
		nb.prevs.remove(a)

		fromB := g.pathNodes(nb)
		fromA := g.pathNodes(na)
		for _, p := range fromB {
			g.propagate(na, false, b, p, 1)
		}
		for _, p := range fromA {
			g.propagate(nb, false, a, p, 1)
		}
	case dirForward:
		na.removeNeighbor(b)
		g.propagatePaths(false, na, nb)
	case dirBackward:
		nb.removeNeighbor(a)
		g.propagatePaths(false, nb, na)
	}
	return true, nil
}

// storedDirection reads the direction of an existing edge from adjacency.
func storedDirection(na, nb *Node) direction {
	ab, ba := na.hasNeighbor(nb.id), nb.hasNeighbor(na.id)
	switch {
	case ab && ba:
		return dirUndirected
	case ab:
		return dirForward
	case ba:
		return dirBackward
	}
	return dirIllegal
}

// RemoveAllNeighbors disconnects every outgoing edge of id. Incoming directed
// edges are left alone.
func (g *Graph) RemoveAllNeighbors(id NodeID) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	for len(n.neighbors) > 0 {
		if _, err := g.RemoveNeighbor(id, n.neighbors[0]); err != nil {
			return err
		}
	}
	return nil
}

// propagatePaths pushes value along each power path of from into to.
func (g *Graph) propagatePaths(value bool, from, to *Node) {
	for _, p := range g.pathNodes(from) {
		g.propagate(to, value, from.id, p, 1)
	}
}

func (g *Graph) endpoints(a, b NodeID) (*Node, *Node, error) {
	na, nb := g.get(a), g.get(b)
	if na == nil {
		return nil, nil, fmt.Errorf("%w: %d", ErrNullEndpoint, a)
	}
	if nb == nil {
		return nil, nil, fmt.Errorf("%w: %d", ErrNullEndpoint, b)
	}
	return na, nb, nil
}
