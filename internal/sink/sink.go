package sink

import (
	"context"

	"github.com/gyaneshwarpardhi/powergrid/internal/event"
)

// Sink is the interface every consumer of power changes must satisfy.
// Sinks react to changes; they never write back into the graph.
type Sink interface {
	// Type returns the string key this sink is registered under.
	Type() string
	// Notify delivers one change.
	Notify(ctx context.Context, ch *event.Change) error
}
