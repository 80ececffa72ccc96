package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/powergrid/internal/circuit"
	"github.com/gyaneshwarpardhi/powergrid/internal/config"
	"github.com/gyaneshwarpardhi/powergrid/internal/metrics"
)

// Reload modes.
const (
	ModeIncremental = "incremental"
	ModeRebuild     = "rebuild"
	ModeFailed      = "failed"
)

// Applied reports whether a Reconcile with this mode replaced or edited the
// live circuit. A rebuild is applied even when it also returns the start-up
// errors of the new graph.
func Applied(mode string) bool {
	return mode == ModeIncremental || mode == ModeRebuild
}

type namePair struct{ a, b string }

// Reconcile makes the live circuit match cfg. When only edges differ, the
// live graph is edited in place with RemoveNeighbor/AddNeighbor and keeps its
// power state; any change to the node set builds and starts a fresh graph.
// Engine queue settings are fixed at New and are not reloaded.
func (e *Engine) Reconcile(ctx context.Context, cfg *config.CircuitConfig) (string, error) {
	if err := config.Validate(cfg); err != nil {
		metrics.Reloads.WithLabelValues(ModeFailed).Inc()
		return ModeFailed, err
	}
	bindings, err := resolveBindings(cfg, e.registry)
	if err != nil {
		metrics.Reloads.WithLabelValues(ModeFailed).Inc()
		return ModeFailed, err
	}

	mode, err := call(ctx, e, "reload", func(g *circuit.Graph) (string, error) {
		return e.reconcile(g, cfg, bindings)
	})
	if err != nil && mode == "" {
		mode = ModeFailed
	}
	metrics.Reloads.WithLabelValues(mode).Inc()
	return mode, err
}

// reconcile runs on the command worker.
func (e *Engine) reconcile(g *circuit.Graph, cfg *config.CircuitConfig, bindings []binding) (string, error) {
	if sameNodes(e.cfg.Nodes, cfg.Nodes) {
		remove, add, err := planEdges(g, cfg)
		if err != nil {
			return ModeFailed, err
		}
		for _, p := range remove {
			a, b, _ := lookupPair(g, p.a, p.b)
			if _, err := g.RemoveNeighbor(a, b); err != nil {
				return ModeFailed, fmt.Errorf("remove %s-%s: %w", p.a, p.b, err)
			}
		}
		for _, p := range add {
			a, b, _ := lookupPair(g, p.a, p.b)
			if _, err := g.AddNeighbor(a, b); err != nil {
				return ModeFailed, fmt.Errorf("add %s-%s: %w", p.a, p.b, err)
			}
		}
		e.cfg = cfg
		e.bindings = bindings
		return ModeIncremental, nil
	}

	ng, err := circuit.Build(cfg)
	if err != nil {
		return ModeFailed, fmt.Errorf("build circuit: %w", err)
	}
	e.install(ng)
	e.cfg = cfg
	e.bindings = bindings
	if err := ng.Start(); err != nil {
		return ModeRebuild, fmt.Errorf("start rebuilt circuit: %w", err)
	}
	return ModeRebuild, nil
}

// planEdges diffs the live edges against cfg. Every edge to add is checked
// for legality before anything is touched.
func planEdges(g *circuit.Graph, cfg *config.CircuitConfig) (remove, add []namePair, err error) {
	want := make(map[namePair]struct{}, len(cfg.Edges))
	for _, ed := range cfg.Edges {
		want[key(ed.From, ed.To)] = struct{}{}
	}

	live := make(map[namePair]struct{})
	for _, ed := range g.Edges() {
		p := key(g.Name(ed.From), g.Name(ed.To))
		live[p] = struct{}{}
		if _, ok := want[p]; !ok {
			remove = append(remove, namePair{g.Name(ed.From), g.Name(ed.To)})
		}
	}

	for _, ed := range cfg.Edges {
		if _, ok := live[key(ed.From, ed.To)]; ok {
			continue
		}
		a, b, err := lookupPair(g, ed.From, ed.To)
		if err != nil {
			return nil, nil, err
		}
		if !circuit.CanConnect(g.Node(a).Kind(), g.Node(b).Kind()) {
			return nil, nil, fmt.Errorf("%w: %s to %s", circuit.ErrIllegalEdge, ed.From, ed.To)
		}
		add = append(add, namePair{ed.From, ed.To})
	}
	return remove, add, nil
}

func key(a, b string) namePair {
	if b < a {
		a, b = b, a
	}
	return namePair{a, b}
}

// sameNodes reports whether two node lists describe the same arena,
// ignoring descriptions.
func sameNodes(old, next []config.NodeDef) bool {
	if len(old) != len(next) {
		return false
	}
	for i := range old {
		o, n := old[i], next[i]
		if o.ID != n.ID ||
			!strings.EqualFold(strings.TrimSpace(o.Kind), strings.TrimSpace(n.Kind)) ||
			o.InvertSignal != n.InvertSignal ||
			o.BlackoutAffected() != n.BlackoutAffected() ||
			o.BlackoutExempt != n.BlackoutExempt ||
			o.PowerOnStart != n.PowerOnStart {
			return false
		}
	}
	return true
}
