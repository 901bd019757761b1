package accel

import (
	"testing"

	"github.com/ollama/nnrun/backend/accel/device"
)

func TestReplaceWithWriteReleasesOldEvents(t *testing.T) {
	l := newEventList()
	ctx := device.NewContext()
	q := device.NewQueue(ctx, 2)

	e1 := q.Enqueue(nil, func() {})
	e1.Wait()
	l.replaceWithWrite(e1)

	if got := l.snapshot(); len(got) != 1 || got[0] != e1 {
		t.Fatalf("expected [e1], got %v", got)
	}

	e2 := q.Enqueue(nil, func() {})
	e2.Wait()
	l.replaceWithWrite(e2)

	if got := l.snapshot(); len(got) != 1 || got[0] != e2 {
		t.Fatalf("expected [e2], got %v", got)
	}
}

func TestDrainEmptiesList(t *testing.T) {
	l := newEventList()
	ctx := device.NewContext()
	q := device.NewQueue(ctx, 2)

	e := q.Enqueue(nil, func() {})
	l.replaceWithWrite(e)
	l.drain()

	if got := l.snapshot(); len(got) != 0 {
		t.Fatalf("expected empty list after drain, got %v", got)
	}
}

func TestConcatEventListsDedupsSharedEvent(t *testing.T) {
	ctx := device.NewContext()
	q := device.NewQueue(ctx, 2)
	e := q.Enqueue(nil, func() {})
	e.Wait()

	a := newEventList()
	a.replaceWithWrite(e)
	e.Retain()
	b := newEventList()
	b.replaceWithWrite(e)

	merged := concatEventLists(a, b)
	if len(merged) != 1 {
		t.Fatalf("expected one deduped event, got %d", len(merged))
	}
	for _, ev := range merged {
		ev.Release()
	}
}
