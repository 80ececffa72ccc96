package circuit

import (
	"fmt"
	"slices"
	"strings"
)

// Kind determines which edge directions a node may take part in.
type Kind string

const (
	KindIO     Kind = "io"
	KindInput  Kind = "input"
	KindOutput Kind = "output"
)

// ParseKind maps a config string onto a Kind (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindIO, KindInput, KindOutput:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// NodeID addresses a node in its Graph's arena. IDs are dense and stable for
// the lifetime of the graph.
type NodeID int

// Gate turns the reference-count reading of a node into its powered state.
// Buffered or timed variants plug in here; the graph never calls a gate for
// anything except reading powered.
type Gate interface {
	Evaluate(poweredNormally bool) bool
}

// GateFunc adapts a plain function to Gate.
type GateFunc func(poweredNormally bool) bool

func (f GateFunc) Evaluate(poweredNormally bool) bool { return f(poweredNormally) }

// Option configures a node at AddNode time.
type Option func(*Node)

// WithInvertSignal makes the node read as powered while no power reaches it.
func WithInvertSignal(v bool) Option { return func(n *Node) { n.invertSignal = v } }

// WithAffectedByBlackout marks an INPUT as darkened by a global blackout.
// Defaults to true.
func WithAffectedByBlackout(v bool) Option { return func(n *Node) { n.affectedByBlackout = v } }

// WithBlackoutExempt excludes the node from global blackouts regardless of
// its other flags.
func WithBlackoutExempt(v bool) Option { return func(n *Node) { n.blackoutExempt = v } }

// WithPowerOnStart activates an INPUT when Graph.Start runs.
func WithPowerOnStart(v bool) Option { return func(n *Node) { n.powerOnStart = v } }

// WithGate installs a custom powered evaluation.
func WithGate(g Gate) Option { return func(n *Node) { n.gate = g } }

// Node is a single vertex of the power graph. All mutation goes through Graph.
type Node struct {
	id   NodeID
	name string
	kind Kind

	invertSignal       bool
	affectedByBlackout bool
	blackoutExempt     bool
	powerOnStart       bool
	gate               Gate

	powerRefs uint32
	prevs     refTable // predecessor → contribution count, for path backtracking
	neighbors []NodeID // outgoing edges only

	blackedOut    bool
	debugForcedOn bool
}

func newNode(id NodeID, name string, kind Kind, opts ...Option) *Node {
	n := &Node{
		id:                 id,
		name:               name,
		kind:               kind,
		affectedByBlackout: true,
		prevs:              newRefTable(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Node) ID() NodeID   { return n.id }
func (n *Node) Name() string { return n.name }
func (n *Node) Kind() Kind   { return n.kind }

func (n *Node) poweredNormally() bool {
	if n.invertSignal {
		return n.powerRefs == 0
	}
	return n.powerRefs > 0
}

func (n *Node) powered() bool {
	if n.debugForcedOn {
		return true
	}
	if n.blackedOut {
		return false
	}
	normally := n.poweredNormally()
	if n.gate != nil {
		return n.gate.Evaluate(normally)
	}
	return normally
}

// affectedByBlackoutEffective reports whether a global blackout applies.
func (n *Node) affectedByBlackoutEffective() bool {
	return n.kind == KindInput && n.affectedByBlackout && !n.blackoutExempt
}

func (n *Node) hasNeighbor(id NodeID) bool {
	return slices.Contains(n.neighbors, id)
}

func (n *Node) removeNeighbor(id NodeID) {
	if i := slices.Index(n.neighbors, id); i >= 0 {
		n.neighbors = slices.Delete(n.neighbors, i, i+1)
	}
}

func (n *Node) addRefs(k int) {
	n.powerRefs += uint32(k)
}

// subRefs saturates at zero.
func (n *Node) subRefs(k int) {
	if uint32(k) >= n.powerRefs {
		n.powerRefs = 0
		return
	}
	n.powerRefs -= uint32(k)
}

// -----------------------------------------------------------------------
// refTable
// -----------------------------------------------------------------------

// refTable is an insertion-ordered multiset of predecessors. Every stored
// count is strictly positive.
type refTable struct {
	order  []NodeID
	counts map[NodeID]int
}

func newRefTable() refTable {
	return refTable{counts: make(map[NodeID]int)}
}

func (t *refTable) add(id NodeID, k int) {
	if _, ok := t.counts[id]; !ok {
		t.order = append(t.order, id)
	}
	t.counts[id] += k
	if t.counts[id] <= 0 {
		t.remove(id)
	}
}

func (t *refTable) sub(id NodeID, k int) {
	if _, ok := t.counts[id]; !ok {
		return
	}
	t.counts[id] -= k
	if t.counts[id] <= 0 {
		t.remove(id)
	}
}

func (t *refTable) remove(id NodeID) {
	if _, ok := t.counts[id]; !ok {
		return
	}
	delete(t.counts, id)
	if i := slices.Index(t.order, id); i >= 0 {
		t.order = slices.Delete(t.order, i, i+1)
	}
}

func (t *refTable) len() int { return len(t.order) }

func (t *refTable) count(id NodeID) int { return t.counts[id] }

// keys returns the predecessors in insertion order. The slice is shared;
// callers must not hold it across a mutation.
func (t *refTable) keys() []NodeID { return t.order }

// -----------------------------------------------------------------------
// NodeSet
// -----------------------------------------------------------------------

// NodeSet is an unordered set of node IDs. It doubles as a power path and as
// the in-flight set of a propagation.
type NodeSet map[NodeID]struct{}

func (s NodeSet) Has(id NodeID) bool {
	_, ok := s[id]
	return ok
}

func (s NodeSet) Add(id NodeID)    { s[id] = struct{}{} }
func (s NodeSet) Remove(id NodeID) { delete(s, id) }

// Clone returns an independent copy.
func (s NodeSet) Clone() NodeSet {
	c := make(NodeSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Sorted returns the members in ascending ID order.
func (s NodeSet) Sorted() []NodeID {
	out := make([]NodeID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
