package circuit

import (
	"errors"
	"fmt"
)

// Start runs the circuit's start-up hook. For every node in ID order,
// power-on-start sources are activated, and any other node that already reads
// as powered (inverted nodes) announces it. Only the first call has an effect.
func (g *Graph) Start() error {
	if g.started {
		return nil
	}
	g.started = true

	var errs []error
	for _, n := range g.nodes {
		switch {
		case n.powerOnStart:
			if err := g.StartSignal(n.id, true, true); err != nil {
				errs = append(errs, fmt.Errorf("start %s: %w", n.name, err))
			}
		case n.powered():
			g.notify(n)
		}
	}
	return errors.Join(errs...)
}

// StartSignal drives a source node to value and pushes it downstream. With
// includeSelf the source's own reference count is overwritten to match.
// Nothing happens if the node already reads as value.
func (g *Graph) StartSignal(id NodeID, value, includeSelf bool) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	if n.kind != KindInput {
		return fmt.Errorf("%w: %s is %s", ErrInvalidSourceActivation, n.name, n.kind)
	}
	if n.powered() == value {
		return nil
	}
	if includeSelf {
		if value {
			n.powerRefs = 1
		} else {
			n.powerRefs = 0
		}
	}
	g.notify(n)
	g.push(n, value, nil, 1)
	return nil
}

// SetBlackout toggles the blackout override on id. The notification always
// fires, and the resulting normal state is pushed to every neighbor as a new
// propagation.
func (g *Graph) SetBlackout(id NodeID, on bool) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	n.blackedOut = on
	g.notify(n)
	g.push(n, !on && n.poweredNormally(), nil, 1)
	return nil
}

// SetGlobalBlackout applies SetBlackout to every node a blackout can reach
// and whose override differs from on. It returns how many nodes changed.
func (g *Graph) SetGlobalBlackout(on bool) int {
	changed := 0
	for _, n := range g.nodes {
		if !n.affectedByBlackoutEffective() || n.blackedOut == on {
			continue
		}
		_ = g.SetBlackout(n.id, on)
		changed++
	}
	return changed
}

// ForcePowered sets the debug override. A forced node reads as powered no
// matter what reaches it; the override is not pushed to neighbors.
func (g *Graph) ForcePowered(id NodeID, on bool) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	was := n.powered()
	n.debugForcedOn = on
	if n.powered() != was {
		g.notify(n)
	}
	return nil
}

// propagate applies one incoming contribution to n and spreads it on.
// active holds the nodes on the current call chain; reaching one of them
// again ends the branch.
func (g *Graph) propagate(n *Node, value bool, from NodeID, active NodeSet, refs int) {
	if n.kind == KindInput || active.Has(n.id) {
		return
	}

	was := n.powered()
	if value {
		n.addRefs(refs)
		n.prevs.add(from, refs)
	} else {
		n.subRefs(refs)
		n.prevs.sub(from, refs)
	}
	if n.powered() != was {
		g.notify(n)
	}

	g.push(n, value, active, refs)
}

// push sends value from n to each neighbor not already in flight.
func (g *Graph) push(n *Node, value bool, active NodeSet, refs int) {
	if active == nil {
		active = make(NodeSet)
	}
	active.Add(n.id)
	for _, nb := range n.neighbors {
		if !active.Has(nb) {
			g.propagate(g.nodes[nb], value, n.id, active, refs)
		}
	}
	active.Remove(n.id)
}
