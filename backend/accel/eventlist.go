package accel

import (
	"sync"

	"github.com/ollama/nnrun/backend/accel/device"
)

// eventList is the per-tensor dependency list described in the spec:
// before a kernel reads a tensor, every event in its list must be in
// the kernel's wait set; after a kernel writes a tensor, the list is
// replaced by that kernel's single completion event; after a
// read-only kernel, the list is unchanged; a blocking host read/write
// drains the list (waiting on everything) and then clears it.
//
// The backing slice starts at a small capacity so that the common case
// of a handful of outstanding dependencies needs no further
// allocation, the same small-size-optimization spirit as the
// source's inline/spill event list, rendered with a plain Go slice
// rather than a hand-rolled inline array.
type eventList struct {
	mu     sync.Mutex
	events []*device.Event
}

func newEventList() *eventList {
	return &eventList{events: make([]*device.Event, 0, 4)}
}

// snapshot returns a copy of the current wait set. The returned events
// are not retained; callers that hold on to them (concatEventLists)
// retain them themselves.
func (l *eventList) snapshot() []*device.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*device.Event, len(l.events))
	copy(out, l.events)
	return out
}

// replaceWithWrite sets the list to [e], releasing whatever was there.
// e is not retained: it arrived fresh from Queue.Enqueue, which already
// counts as the one reference the list owns.
func (l *eventList) replaceWithWrite(e *device.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, old := range l.events {
		old.Release()
	}
	l.events = append(l.events[:0], e)
}

// drain waits on every event in the list, releases them, and clears
// it — the behavior a blocking host read/write requires.
func (l *eventList) drain() {
	l.mu.Lock()
	pending := append([]*device.Event(nil), l.events...)
	l.events = l.events[:0]
	l.mu.Unlock()

	for _, e := range pending {
		e.Wait()
		e.Release()
	}
}

// concatEventLists merges several tensors' event lists for a
// multi-input kernel, retaining each distinct event exactly once.
func concatEventLists(lists ...*eventList) []*device.Event {
	seen := make(map[*device.Event]bool)
	var out []*device.Event
	for _, l := range lists {
		for _, e := range l.snapshot() {
			if seen[e] {
				continue
			}
			seen[e] = true
			e.Retain()
			out = append(out, e)
		}
	}
	return out
}
