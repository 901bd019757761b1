package device

import "testing"

func TestQueueRunsDependentWorkInOrder(t *testing.T) {
	ctx := NewContext()
	q := NewQueue(ctx, 4)
	buf := ctx.NewBuffer(1)

	e1 := q.Enqueue(nil, func() {
		buf.withLock(func(data []float32) { data[0] = 1 })
	})
	e2 := q.Enqueue([]*Event{e1}, func() {
		buf.withLock(func(data []float32) { data[0] += 1 })
	})
	e2.Wait()

	var got float32
	buf.withLock(func(data []float32) { got = data[0] })
	if got != 2 {
		t.Fatalf("expected 2, got %v", got)
	}
}

func TestEventReleaseBelowZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on over-release")
		}
	}()
	e := newEvent()
	e.complete()
	e.Release()
	e.Release()
}

func TestQueueFinishWaitsForAllWork(t *testing.T) {
	ctx := NewContext()
	q := NewQueue(ctx, 2)
	buf := ctx.NewBuffer(1)

	for i := 0; i < 5; i++ {
		q.Enqueue(nil, func() {
			buf.withLock(func(data []float32) { data[0]++ })
		})
	}
	if err := q.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}

	var got float32
	buf.withLock(func(data []float32) { got = data[0] })
	if got != 5 {
		t.Fatalf("expected 5, got %v", got)
	}
}
