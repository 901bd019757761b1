// Package device is a pure-Go stand-in for the OpenCL-like
// command-queue API the accelerator backend is built on: a context
// scoping allocations, an out-of-order queue, buffers supporting
// non-blocking rectangle writes/reads, and retain/release-counted
// completion events. There is no real GPU underneath — kernels are
// plain Go closures run on a bounded worker pool — but the async
// enqueue/event/wait-list contract is the genuine OpenCL one, which is
// the part the accelerator backend (backend/accel) depends on.
package device

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Event is a completion handle returned by Enqueue. It is
// reference-counted like a real cl_event: Retain/Release must balance
// every push/clone/pop exactly once, and a leaked event would
// otherwise wedge the accelerator's event-list discipline.
type Event struct {
	id   uuid.UUID
	done chan struct{}
	refs int64
}

func newEvent() *Event {
	return &Event{id: uuid.New(), done: make(chan struct{}), refs: 1}
}

// ID is a stable debug/log identifier for the event.
func (e *Event) ID() string { return e.id.String() }

// Retain increments the reference count. Call once per copy of the
// handle kept alive (e.g. when an event list clones a slot).
func (e *Event) Retain() { atomic.AddInt64(&e.refs, 1) }

// Release decrements the reference count. The underlying completion
// channel is only ever closed once, by the enqueuing goroutine; Release
// just tracks ownership.
func (e *Event) Release() {
	if atomic.AddInt64(&e.refs, -1) < 0 {
		panic("device: event released more times than retained")
	}
}

// Wait blocks until the event's work has completed.
func (e *Event) Wait() { <-e.done }

func (e *Event) complete() { close(e.done) }

// Context scopes device allocations. It carries no state of its own in
// this simulation — buffers are independent of which context created
// them — but constructors still require one, matching the real API's
// shape.
type Context struct{}

// NewContext returns a context suitable for allocating buffers and
// building programs.
func NewContext() *Context { return &Context{} }

// Buffer is a fixed-size slot of float32 elements. All access happens
// through a Queue; Buffer itself only holds storage and a mutex
// protecting it from concurrent kernel writes.
type Buffer struct {
	mu   sync.Mutex
	data []float32
}

// NewBuffer allocates a zero-filled buffer of n float32 slots.
func (c *Context) NewBuffer(n int) *Buffer {
	return &Buffer{data: make([]float32, n)}
}

// Len returns the buffer's slot count.
func (b *Buffer) Len() int { return len(b.data) }

// withLock runs fn with the buffer's storage locked.
func (b *Buffer) withLock(fn func(data []float32)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.data)
}
