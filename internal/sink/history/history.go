// Package history keeps the most recent power changes in memory.
package history

import (
	"context"
	"sync"

	"github.com/gyaneshwarpardhi/powergrid/internal/event"
)

// Recorder is a bounded ring of changes, oldest overwritten first.
type Recorder struct {
	mu    sync.RWMutex
	buf   []event.Change
	next  int
	count int
}

// New returns a Recorder holding at most size changes.
func New(size int) *Recorder {
	if size < 1 {
		size = 1
	}
	return &Recorder{buf: make([]event.Change, size)}
}

func (r *Recorder) Type() string { return "history" }

func (r *Recorder) Notify(_ context.Context, ch *event.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = *ch
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	return nil
}

// Recent returns up to limit changes, oldest first. limit <= 0 returns all.
func (r *Recorder) Recent(limit int) []event.Change {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := r.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]event.Change, 0, n)
	start := (r.next - n + len(r.buf)) % len(r.buf)
	for i := 0; i < n; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// Len returns how many changes are stored.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}
