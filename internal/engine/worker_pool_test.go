package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool_ProcessesInOrder(t *testing.T) {
	var (
		mu  sync.Mutex
		got []int
	)
	p := newWorkerPool(context.Background(), 1, 16, func(_ context.Context, n int) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
	})
	for i := 0; i < 10; i++ {
		assert.True(t, p.Submit(i))
	}
	p.Drain()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
	assert.False(t, p.Submit(10), "drained pool rejects work")
	p.Drain()
}

func TestWorkerPool_RejectsWhenFull(t *testing.T) {
	release := make(chan struct{})
	var done atomic.Int32
	p := newWorkerPool(context.Background(), 1, 1, func(_ context.Context, _ int) {
		<-release
		done.Add(1)
	})

	assert.True(t, p.Submit(1))
	// Wait until the worker has taken the first job off the queue.
	assert.Eventually(t, func() bool { return p.QueueLen() == 0 }, testTimeout, testTick)
	assert.True(t, p.Submit(2))
	assert.False(t, p.Submit(3))
	assert.Equal(t, 1, p.QueueCap())

	close(release)
	p.Drain()
	assert.Equal(t, int32(2), done.Load())
}

const (
	testTimeout = time.Second
	testTick    = 5 * time.Millisecond
)
