package sink

import (
	"fmt"
	"slices"
	"sync"
)

// Registry maps sink type strings to their implementations.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu    sync.RWMutex
	sinks map[string]Sink
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string]Sink)}
}

// Register adds a sink. Panics on duplicate type to surface misconfiguration early.
func (r *Registry) Register(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sinks[s.Type()]; exists {
		panic(fmt.Sprintf("sink registry: duplicate type %q", s.Type()))
	}
	r.sinks[s.Type()] = s
}

// Get returns the sink for the given type.
func (r *Registry) Get(sinkType string) (Sink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sinks[sinkType]
	if !ok {
		return nil, fmt.Errorf("no sink registered for type %q", sinkType)
	}
	return s, nil
}

// Types returns all registered sink type strings, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sinks))
	for k := range r.sinks {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
