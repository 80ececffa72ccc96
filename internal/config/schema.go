package config

// CircuitConfig is the top-level circuit file structure (YAML or TOML).
type CircuitConfig struct {
	Version string        `yaml:"version" toml:"version"`
	Engine  EngineConf    `yaml:"engine" toml:"engine"`
	Nodes   []NodeDef     `yaml:"nodes" toml:"nodes"`
	Edges   []EdgeDef     `yaml:"edges" toml:"edges"`
	Sinks   []SinkBinding `yaml:"sinks" toml:"sinks"`
}

// EngineConf holds tunable queueing settings.
type EngineConf struct {
	QueueDepth       int `yaml:"queue_depth" toml:"queue_depth"`
	CommandTimeoutMs int `yaml:"command_timeout_ms" toml:"command_timeout_ms"`
	SinkWorkers      int `yaml:"sink_workers" toml:"sink_workers"`
	SinkQueueDepth   int `yaml:"sink_queue_depth" toml:"sink_queue_depth"`
	HistorySize      int `yaml:"history_size" toml:"history_size"`
}

// NodeDef declares one node of the circuit.
type NodeDef struct {
	ID                 string `yaml:"id" toml:"id"`
	Kind               string `yaml:"kind" toml:"kind"` // io | input | output
	Description        string `yaml:"description" toml:"description"`
	InvertSignal       bool   `yaml:"invert_signal" toml:"invert_signal"`
	AffectedByBlackout *bool  `yaml:"affected_by_blackout" toml:"affected_by_blackout"` // nil = true
	BlackoutExempt     bool   `yaml:"blackout_exempt" toml:"blackout_exempt"`
	PowerOnStart       bool   `yaml:"power_on_start" toml:"power_on_start"`
}

// BlackoutAffected resolves the affected_by_blackout default.
func (n NodeDef) BlackoutAffected() bool {
	return n.AffectedByBlackout == nil || *n.AffectedByBlackout
}

// EdgeDef connects two nodes. Direction is implied by the node kinds.
type EdgeDef struct {
	From string `yaml:"from" toml:"from"`
	To   string `yaml:"to" toml:"to"`
}

// SinkBinding routes power changes of the listed nodes to a sink type.
// An empty node list binds every node.
type SinkBinding struct {
	Type  string   `yaml:"type" toml:"type"`
	Nodes []string `yaml:"nodes" toml:"nodes"`
}
