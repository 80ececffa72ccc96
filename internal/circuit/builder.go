package circuit

import (
	"fmt"

	"github.com/gyaneshwarpardhi/powergrid/internal/config"
)

// Build constructs an unstarted Graph from a validated CircuitConfig.
// Nodes are created in file order; edges are added through AddNeighbor so the
// same legality rules apply as at runtime.
func Build(cfg *config.CircuitConfig) (*Graph, error) {
	g := New()
	for _, nd := range cfg.Nodes {
		kind, err := ParseKind(nd.Kind)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", nd.ID, err)
		}
		_, err = g.AddNode(nd.ID, kind,
			WithInvertSignal(nd.InvertSignal),
			WithAffectedByBlackout(nd.BlackoutAffected()),
			WithBlackoutExempt(nd.BlackoutExempt),
			WithPowerOnStart(nd.PowerOnStart),
		)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", nd.ID, err)
		}
	}
	for i, e := range cfg.Edges {
		if err := g.Connect(e.From, e.To); err != nil {
			return nil, fmt.Errorf("edges[%d]: %w", i, err)
		}
	}
	return g, nil
}

// Connect adds an edge by node name. Unlike AddNeighbor, an existing edge is
// reported as an error.
func (g *Graph) Connect(from, to string) error {
	a, b, err := g.resolvePair(from, to)
	if err != nil {
		return err
	}
	ok, err := g.AddNeighbor(a, b)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s and %s are already connected", from, to)
	}
	return nil
}

func (g *Graph) resolvePair(from, to string) (NodeID, NodeID, error) {
	a, ok := g.Lookup(from)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrNullEndpoint, from)
	}
	b, ok := g.Lookup(to)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrNullEndpoint, to)
	}
	return a, b, nil
}
