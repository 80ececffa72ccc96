package config

import (
	"fmt"
	"strings"
)

var validKinds = map[string]struct{}{"io": {}, "input": {}, "output": {}}

// Validate checks the config for:
//   - Required fields and known node kinds
//   - Duplicate node IDs
//   - Edges and sink bindings that reference unknown nodes
//   - Self-loops and duplicate edges
//   - Edges no direction can carry (input-input, output-output, output then input)
//
// Sink types are resolved against the sink registry when the engine binds them.
func Validate(cfg *CircuitConfig) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	ids := make(map[string]string) // id → kind
	var errs []string

	for i, n := range cfg.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			errs = append(errs, fmt.Sprintf("nodes[%d]: id is required", i))
			continue
		}
		kind := strings.ToLower(strings.TrimSpace(n.Kind))
		if _, ok := validKinds[kind]; !ok {
			errs = append(errs, fmt.Sprintf("node %s: kind must be one of io, input, output, got %q", n.ID, n.Kind))
		}
		if _, dup := ids[n.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate node id %q (nodes[%d])", n.ID, i))
			continue
		}
		ids[n.ID] = kind
		if n.PowerOnStart && kind != "input" {
			errs = append(errs, fmt.Sprintf("node %s: power_on_start requires kind input", n.ID))
		}
	}

	seen := make(map[[2]string]int)
	for i, e := range cfg.Edges {
		loc := fmt.Sprintf("edges[%d]", i)
		if e.From == "" || e.To == "" {
			errs = append(errs, fmt.Sprintf("%s: from and to are required", loc))
			continue
		}
		if _, ok := ids[e.From]; !ok {
			errs = append(errs, fmt.Sprintf("%s: unknown node %q", loc, e.From))
		}
		if _, ok := ids[e.To]; !ok {
			errs = append(errs, fmt.Sprintf("%s: unknown node %q", loc, e.To))
		}
		if e.From == e.To {
			errs = append(errs, fmt.Sprintf("%s: node %q cannot connect to itself", loc, e.From))
			continue
		}
		if !legalKinds(ids[e.From], ids[e.To]) {
			errs = append(errs, fmt.Sprintf("%s: illegal direction %s (%s) to %s (%s)", loc, e.From, ids[e.From], e.To, ids[e.To]))
			continue
		}
		key := edgeKey(e.From, e.To)
		if prev, dup := seen[key]; dup {
			errs = append(errs, fmt.Sprintf("%s: duplicates edges[%d] (%s, %s)", loc, prev, e.From, e.To))
			continue
		}
		seen[key] = i
	}

	for i, b := range cfg.Sinks {
		if b.Type == "" {
			errs = append(errs, fmt.Sprintf("sinks[%d]: type is required", i))
		}
		for _, id := range b.Nodes {
			if _, ok := ids[id]; !ok {
				errs = append(errs, fmt.Sprintf("sinks[%d]: unknown node %q", i, id))
			}
		}
	}

	if cfg.Engine.QueueDepth < 0 || cfg.Engine.CommandTimeoutMs < 0 || cfg.Engine.SinkWorkers < 0 || cfg.Engine.SinkQueueDepth < 0 || cfg.Engine.HistorySize < 0 {
		errs = append(errs, "engine: settings must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// legalKinds mirrors the circuit legality table: an edge never enters an
// input and never leaves an output, and an output named first to an input is
// always rejected. Unknown kinds are reported elsewhere.
func legalKinds(from, to string) bool {
	_, fk := validKinds[from]
	_, tk := validKinds[to]
	if !fk || !tk {
		return true
	}
	switch {
	case from == "output" && to == "input":
		return false
	case from == to && from != "io":
		return false
	}
	return true
}

// edgeKey is order-independent: two nodes share at most one edge.
func edgeKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}
