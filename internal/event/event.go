package event

import "time"

// Change is the notification emitted each time a node's powered state flips.
type Change struct {
	ID       string    `json:"id"`
	Seq      uint64    `json:"seq"`   // monotonic per engine
	Cause    string    `json:"cause"` // operation that triggered the flip, e.g. "start_signal"
	NodeID   int       `json:"node_id"`
	NodeName string    `json:"node"`
	Powered  bool      `json:"powered"`
	FiredAt  time.Time `json:"fired_at"`
}
