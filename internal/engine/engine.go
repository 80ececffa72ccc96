package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/powergrid/internal/circuit"
	"github.com/gyaneshwarpardhi/powergrid/internal/config"
	"github.com/gyaneshwarpardhi/powergrid/internal/event"
	"github.com/gyaneshwarpardhi/powergrid/internal/metrics"
	"github.com/gyaneshwarpardhi/powergrid/internal/render"
	"github.com/gyaneshwarpardhi/powergrid/internal/sink"
)

var (
	ErrQueueFull      = errors.New("command queue full")
	ErrCommandTimeout = errors.New("command timed out")
)

// Engine owns one live circuit. Every read and write of the graph runs as a
// command on a single worker goroutine, so the graph itself needs no locking.
type Engine struct {
	conf     config.EngineConf
	registry *sink.Registry
	cmdPool  *workerPool[*command]
	sinkPool *workerPool[*delivery]

	// Fields below are touched only by the command worker.
	graph        *circuit.Graph
	cfg          *config.CircuitConfig
	bindings     []binding
	lastPowered  []bool
	poweredCount int
	pending      []*event.Change
	cause        string
	seq          uint64
}

type command struct {
	op   string
	run  func(g *circuit.Graph) error
	done func() // called after pending changes are handed to sinks
}

type delivery struct {
	sink   sink.Sink
	change *event.Change
}

// binding routes changes of a node subset (nil = all) to one sink.
type binding struct {
	sink  sink.Sink
	nodes map[string]struct{}
}

func (b binding) matches(node string) bool {
	if b.nodes == nil {
		return true
	}
	_, ok := b.nodes[node]
	return ok
}

// New builds the circuit described by cfg and starts the worker pools.
// The circuit is not started; call Start once sinks are ready.
func New(ctx context.Context, cfg *config.CircuitConfig, reg *sink.Registry) (*Engine, error) {
	g, err := circuit.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("build circuit: %w", err)
	}
	bindings, err := resolveBindings(cfg, reg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		conf:     cfg.Engine,
		registry: reg,
		cfg:      cfg,
		bindings: bindings,
	}
	e.install(g)

	// Start the sink pool first so the command worker can hand off to it.
	e.sinkPool = newWorkerPool(ctx, cfg.Engine.SinkWorkers, cfg.Engine.SinkQueueDepth, e.deliver)
	e.cmdPool = newWorkerPool(ctx, 1, cfg.Engine.QueueDepth, e.execute)
	return e, nil
}

// install makes g the live graph and seeds the powered bookkeeping.
func (e *Engine) install(g *circuit.Graph) {
	e.graph = g
	e.lastPowered = make([]bool, g.NodeCount())
	e.poweredCount = 0
	for _, id := range g.Nodes() {
		p, _ := g.Powered(id)
		e.lastPowered[id] = p
		if p {
			e.poweredCount++
		}
	}
	metrics.PoweredNodes.Set(float64(e.poweredCount))
	g.OnPowered(func(id circuit.NodeID, powered bool) {
		e.record(g, id, powered)
	})
}

func (e *Engine) record(g *circuit.Graph, id circuit.NodeID, powered bool) {
	e.seq++
	if e.lastPowered[id] != powered {
		e.lastPowered[id] = powered
		if powered {
			e.poweredCount++
		} else {
			e.poweredCount--
		}
	}
	metrics.PowerChanges.WithLabelValues(strconv.FormatBool(powered)).Inc()
	e.pending = append(e.pending, &event.Change{
		ID:       uuid.New().String(),
		Seq:      e.seq,
		Cause:    e.cause,
		NodeID:   int(id),
		NodeName: g.Name(id),
		Powered:  powered,
		FiredAt:  time.Now(),
	})
}

func (e *Engine) execute(_ context.Context, cmd *command) {
	start := time.Now()
	e.cause = cmd.op
	err := cmd.run(e.graph)

	metrics.CommandDuration.WithLabelValues(cmd.op).Observe(float64(time.Since(start).Microseconds()) / 1000)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.CommandsTotal.WithLabelValues(cmd.op, status).Inc()
	metrics.PoweredNodes.Set(float64(e.poweredCount))

	e.flush()
	if cmd.done != nil {
		cmd.done()
	}
}

// flush hands the changes of the last command to the sink pool, in firing order.
func (e *Engine) flush() {
	for _, ch := range e.pending {
		for _, b := range e.bindings {
			if !b.matches(ch.NodeName) {
				continue
			}
			if !e.sinkPool.Submit(&delivery{sink: b.sink, change: ch}) {
				metrics.SinkDropped.Inc()
			}
		}
	}
	clear(e.pending)
	e.pending = e.pending[:0]
}

func (e *Engine) deliver(ctx context.Context, d *delivery) {
	status := "success"
	if err := d.sink.Notify(ctx, d.change); err != nil {
		status = "error"
	}
	metrics.SinkDeliveries.WithLabelValues(d.sink.Type(), status).Inc()
}

// call runs fn on the command worker and waits for its result.
func call[T any](ctx context.Context, e *Engine, op string, fn func(g *circuit.Graph) (T, error)) (T, error) {
	type outcome struct {
		v   T
		err error
	}
	var (
		out  outcome
		zero T
	)
	resC := make(chan outcome, 1)
	cmd := &command{
		op: op,
		run: func(g *circuit.Graph) error {
			out.v, out.err = fn(g)
			return out.err
		},
		done: func() { resC <- out },
	}

	if !e.cmdPool.Submit(cmd) {
		metrics.CommandsRejected.Inc()
		return zero, fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.cmdPool.QueueCap())
	}

	timeout := time.Duration(e.conf.CommandTimeoutMs) * time.Millisecond
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-resC:
		return res.v, res.err
	case <-timer.C:
		return zero, fmt.Errorf("%w after %v", ErrCommandTimeout, timeout)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func do(ctx context.Context, e *Engine, op string, fn func(g *circuit.Graph) error) error {
	_, err := call(ctx, e, op, func(g *circuit.Graph) (struct{}, error) {
		return struct{}{}, fn(g)
	})
	return err
}

// mutateNode applies fn to the named node and snapshots it within the same
// command, so the result is the state fn left behind.
func mutateNode(ctx context.Context, e *Engine, op, name string, fn func(g *circuit.Graph, id circuit.NodeID) error) (circuit.NodeState, error) {
	return call(ctx, e, op, func(g *circuit.Graph) (circuit.NodeState, error) {
		id, err := lookup(g, name)
		if err != nil {
			return circuit.NodeState{}, err
		}
		if err := fn(g, id); err != nil {
			return circuit.NodeState{}, err
		}
		return g.Snapshot(id)
	})
}

// Start runs the circuit's start-up hook: power-on-start sources activate and
// already-powered nodes announce themselves.
func (e *Engine) Start(ctx context.Context) error {
	return do(ctx, e, "start", func(g *circuit.Graph) error { return g.Start() })
}

// Snapshot returns the state of one node.
func (e *Engine) Snapshot(ctx context.Context, name string) (circuit.NodeState, error) {
	return call(ctx, e, "snapshot", func(g *circuit.Graph) (circuit.NodeState, error) {
		id, err := lookup(g, name)
		if err != nil {
			return circuit.NodeState{}, err
		}
		return g.Snapshot(id)
	})
}

// Snapshots returns the state of every node in creation order.
func (e *Engine) Snapshots(ctx context.Context) ([]circuit.NodeState, error) {
	return call(ctx, e, "snapshot_all", func(g *circuit.Graph) ([]circuit.NodeState, error) {
		out := make([]circuit.NodeState, 0, g.NodeCount())
		for _, id := range g.Nodes() {
			st, err := g.Snapshot(id)
			if err != nil {
				return nil, err
			}
			out = append(out, st)
		}
		return out, nil
	})
}

// Paths returns every power path into name, each as sorted node names.
func (e *Engine) Paths(ctx context.Context, name string) ([][]string, error) {
	return call(ctx, e, "paths", func(g *circuit.Graph) ([][]string, error) {
		id, err := lookup(g, name)
		if err != nil {
			return nil, err
		}
		sets, err := g.PathNodes(id)
		if err != nil {
			return nil, err
		}
		out := make([][]string, 0, len(sets))
		for _, s := range sets {
			names := make([]string, 0, len(s))
			for _, n := range s.Sorted() {
				names = append(names, g.Name(n))
			}
			out = append(out, names)
		}
		return out, nil
	})
}

// DOT renders the live circuit as a Graphviz document.
func (e *Engine) DOT(ctx context.Context) (string, error) {
	return call(ctx, e, "render", func(g *circuit.Graph) (string, error) {
		return render.ToDOT(g), nil
	})
}

// StartSignal drives a source node.
func (e *Engine) StartSignal(ctx context.Context, name string, value, includeSelf bool) (circuit.NodeState, error) {
	return mutateNode(ctx, e, "start_signal", name, func(g *circuit.Graph, id circuit.NodeID) error {
		return g.StartSignal(id, value, includeSelf)
	})
}

// SetBlackout toggles the blackout override of one node.
func (e *Engine) SetBlackout(ctx context.Context, name string, on bool) (circuit.NodeState, error) {
	return mutateNode(ctx, e, "set_blackout", name, func(g *circuit.Graph, id circuit.NodeID) error {
		return g.SetBlackout(id, on)
	})
}

// GlobalBlackout toggles the blackout on every affected source and reports
// how many changed.
func (e *Engine) GlobalBlackout(ctx context.Context, on bool) (int, error) {
	return call(ctx, e, "global_blackout", func(g *circuit.Graph) (int, error) {
		return g.SetGlobalBlackout(on), nil
	})
}

// ForcePowered sets the debug override of one node.
func (e *Engine) ForcePowered(ctx context.Context, name string, on bool) (circuit.NodeState, error) {
	return mutateNode(ctx, e, "force_powered", name, func(g *circuit.Graph, id circuit.NodeID) error {
		return g.ForcePowered(id, on)
	})
}

// AddEdge connects two nodes by name.
func (e *Engine) AddEdge(ctx context.Context, a, b string) (bool, error) {
	return call(ctx, e, "add_neighbor", func(g *circuit.Graph) (bool, error) {
		ia, ib, err := lookupPair(g, a, b)
		if err != nil {
			return false, err
		}
		return g.AddNeighbor(ia, ib)
	})
}

// RemoveEdge disconnects two nodes by name.
func (e *Engine) RemoveEdge(ctx context.Context, a, b string) (bool, error) {
	return call(ctx, e, "remove_neighbor", func(g *circuit.Graph) (bool, error) {
		ia, ib, err := lookupPair(g, a, b)
		if err != nil {
			return false, err
		}
		return g.RemoveNeighbor(ia, ib)
	})
}

// Disconnect removes every outgoing edge of a node.
func (e *Engine) Disconnect(ctx context.Context, name string) (circuit.NodeState, error) {
	return mutateNode(ctx, e, "remove_all_neighbors", name, func(g *circuit.Graph, id circuit.NodeID) error {
		return g.RemoveAllNeighbors(id)
	})
}

// QueueUtilization returns queue used / capacity (0-1).
func (e *Engine) QueueUtilization() float64 {
	if e.cmdPool.QueueCap() == 0 {
		return 0
	}
	return float64(e.cmdPool.QueueLen()) / float64(e.cmdPool.QueueCap())
}

// Shutdown drains both pools gracefully; queued commands finish first so
// their changes still reach the sinks.
func (e *Engine) Shutdown() {
	e.cmdPool.Drain()
	e.sinkPool.Drain()
}

func lookup(g *circuit.Graph, name string) (circuit.NodeID, error) {
	id, ok := g.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", circuit.ErrUnknownNode, name)
	}
	return id, nil
}

func lookupPair(g *circuit.Graph, a, b string) (circuit.NodeID, circuit.NodeID, error) {
	ia, ok := g.Lookup(a)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", circuit.ErrNullEndpoint, a)
	}
	ib, ok := g.Lookup(b)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", circuit.ErrNullEndpoint, b)
	}
	return ia, ib, nil
}

func resolveBindings(cfg *config.CircuitConfig, reg *sink.Registry) ([]binding, error) {
	out := make([]binding, 0, len(cfg.Sinks))
	for i, sb := range cfg.Sinks {
		s, err := reg.Get(sb.Type)
		if err != nil {
			return nil, fmt.Errorf("sinks[%d]: %w", i, err)
		}
		b := binding{sink: s}
		if len(sb.Nodes) > 0 {
			b.nodes = make(map[string]struct{}, len(sb.Nodes))
			for _, n := range sb.Nodes {
				b.nodes[n] = struct{}{}
			}
		}
		out = append(out, b)
	}
	return out, nil
}
