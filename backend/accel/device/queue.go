package device

import (
	"golang.org/x/sync/errgroup"
)

// Queue is an out-of-order command queue: Enqueue returns immediately
// with an event and the work runs once its wait list is satisfied, on
// a bounded worker pool. Two enqueued commands with disjoint wait
// lists may run concurrently; the host never blocks on a kernel
// directly, only on Finish, a buffer's blocking read/write, or a
// specific event's Wait.
type Queue struct {
	ctx *Context
	g   *errgroup.Group
}

// NewQueue returns a queue backed by maxInFlight concurrent worker
// goroutines (errgroup.Group bounds the in-flight kernel count the
// same way it bounds any other fan-out in this codebase).
func NewQueue(ctx *Context, maxInFlight int) *Queue {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(maxInFlight)
	return &Queue{ctx: ctx, g: g}
}

// Enqueue schedules fn to run once every event in wait has completed,
// and returns a fresh event that completes when fn returns. fn
// receives no arguments; it closes over whatever buffers it touches.
func (q *Queue) Enqueue(wait []*Event, fn func()) *Event {
	e := newEvent()
	q.g.Go(func() error {
		for _, w := range wait {
			w.Wait()
		}
		fn()
		e.complete()
		return nil
	})
	return e
}

// EnqueueBarrier enqueues a no-op that waits on everything in wait
// (used by Flush to drain the pipeline without touching any tensor's
// event list).
func (q *Queue) EnqueueBarrier(wait []*Event) *Event {
	return q.Enqueue(wait, func() {})
}

// Flush asks the queue to begin executing everything enqueued so far.
// In this simulation work already runs as soon as its dependencies are
// satisfied, so Flush is a no-op kept for contract parity with a real
// command queue.
func (q *Queue) Flush() error { return nil }

// Finish blocks until every command enqueued so far has completed.
func (q *Queue) Finish() error {
	return q.g.Wait()
}
