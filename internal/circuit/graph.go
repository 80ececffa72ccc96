package circuit

import (
	"fmt"
	"strings"
)

// Listener receives a node's new powered state each time it flips.
// Listeners run synchronously inside the operation that caused the flip.
type Listener func(id NodeID, powered bool)

// Graph is the arena owning every node of one circuit.
//
// Graph is not safe for concurrent use. Each operation runs to completion,
// including all listener callbacks, before returning.
type Graph struct {
	nodes     []*Node
	byName    map[string]NodeID
	listeners []Listener
	started   bool
}

// New allocates an empty Graph.
func New() *Graph {
	return &Graph{byName: make(map[string]NodeID)}
}

// AddNode registers a node and returns its ID.
func (g *Graph) AddNode(name string, kind Kind, opts ...Option) (NodeID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrInvalidNode
	}
	if _, dup := g.byName[name]; dup {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateNode, name)
	}
	kind, err := ParseKind(string(kind))
	if err != nil {
		return 0, err
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, newNode(id, name, kind, opts...))
	g.byName[name] = id
	return id, nil
}

// OnPowered registers a listener for powered-state changes on every node.
func (g *Graph) OnPowered(fn Listener) {
	g.listeners = append(g.listeners, fn)
}

func (g *Graph) notify(n *Node) {
	p := n.powered()
	for _, fn := range g.listeners {
		fn(n.id, p)
	}
}

// Lookup resolves a node name.
func (g *Graph) Lookup(name string) (NodeID, bool) {
	id, ok := g.byName[name]
	return id, ok
}

// Name returns the name of id, or "" if id is not in the graph.
func (g *Graph) Name(id NodeID) string {
	if n := g.get(id); n != nil {
		return n.name
	}
	return ""
}

// Node returns the node for id (nil if not found).
func (g *Graph) Node(id NodeID) *Node {
	return g.get(id)
}

// Nodes returns all node IDs in creation order.
func (g *Graph) Nodes() []NodeID {
	out := make([]NodeID, len(g.nodes))
	for i := range g.nodes {
		out[i] = NodeID(i)
	}
	return out
}

// NodeCount returns the total number of registered nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// Powered reports whether id currently reads as powered.
func (g *Graph) Powered(id NodeID) (bool, error) {
	n, err := g.node(id)
	if err != nil {
		return false, err
	}
	return n.powered(), nil
}

// Edge is one connection. Undirected edges exist only between IO nodes and
// are reported once, with From < To.
type Edge struct {
	From     NodeID
	To       NodeID
	Directed bool
}

// Edges lists every edge, ordered by source node then adjacency order.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, n := range g.nodes {
		for _, nb := range n.neighbors {
			directed := !g.nodes[nb].hasNeighbor(n.id)
			if !directed && nb < n.id {
				continue
			}
			out = append(out, Edge{From: n.id, To: nb, Directed: directed})
		}
	}
	return out
}

// PrevRef is one entry of a node's predecessor table.
type PrevRef struct {
	Node  string `json:"node"`
	Count int    `json:"count"`
}

// NodeState is a read-only view of a node.
type NodeState struct {
	ID                 NodeID    `json:"id"`
	Name               string    `json:"name"`
	Kind               Kind      `json:"kind"`
	Powered            bool      `json:"powered"`
	PoweredNormally    bool      `json:"powered_normally"`
	PowerRefs          uint32    `json:"power_refs"`
	Prevs              []PrevRef `json:"prevs"`
	Neighbors          []string  `json:"neighbors"`
	InvertSignal       bool      `json:"invert_signal"`
	AffectedByBlackout bool      `json:"affected_by_blackout"`
	BlackedOut         bool      `json:"blacked_out"`
	ForcedOn           bool      `json:"forced_on"`
}

// Snapshot copies the current state of id.
func (g *Graph) Snapshot(id NodeID) (NodeState, error) {
	n, err := g.node(id)
	if err != nil {
		return NodeState{}, err
	}
	st := NodeState{
		ID:                 n.id,
		Name:               n.name,
		Kind:               n.kind,
		Powered:            n.powered(),
		PoweredNormally:    n.poweredNormally(),
		PowerRefs:          n.powerRefs,
		Prevs:              make([]PrevRef, 0, n.prevs.len()),
		Neighbors:          make([]string, 0, len(n.neighbors)),
		InvertSignal:       n.invertSignal,
		AffectedByBlackout: n.affectedByBlackoutEffective(),
		BlackedOut:         n.blackedOut,
		ForcedOn:           n.debugForcedOn,
	}
	for _, p := range n.prevs.keys() {
		st.Prevs = append(st.Prevs, PrevRef{Node: g.nodes[p].name, Count: n.prevs.count(p)})
	}
	for _, nb := range n.neighbors {
		st.Neighbors = append(st.Neighbors, g.nodes[nb].name)
	}
	return st, nil
}

func (g *Graph) get(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

func (g *Graph) node(id NodeID) (*Node, error) {
	n := g.get(id)
	if n == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	return n, nil
}
