package tensor

import (
	"reflect"
	"testing"

	"github.com/ollama/nnrun/dims"
)

func TestOwnedLenMatchesDims(t *testing.T) {
	o := Zeros[float32](dims.D2{N0: 3, N1: 4})
	if o.Len() != o.Dims().Len() {
		t.Fatalf("len %d != dims.Len() %d", o.Len(), o.Dims().Len())
	}
}

func TestNewOwnedPanicsOnMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on shape mismatch")
		}
	}()
	NewOwned([]float32{1, 2, 3}, dims.D2{N0: 2, N1: 2})
}

func TestViewRoundTrip(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6}
	o := NewOwned(data, dims.D2{N0: 2, N1: 3})
	v := o.Borrow()
	back := v.ToOwned()
	if !reflect.DeepEqual(back.Slice(), o.Slice()) {
		t.Fatalf("round trip mismatch: %v != %v", back.Slice(), o.Slice())
	}
	if back.Dims() != o.Dims() {
		t.Fatalf("dims mismatch: %v != %v", back.Dims(), o.Dims())
	}
}

func TestFromVecRoundTrip(t *testing.T) {
	o := NewOwned([]float32{1, 2, 3, 4}, dims.D2{N0: 2, N1: 2})
	again := NewOwned(append([]float32(nil), o.Slice()...), o.Dims())
	if !reflect.DeepEqual(again, o) {
		t.Fatalf("from_vec round trip mismatch")
	}
}

func TestResizeWithinCapacity(t *testing.T) {
	o := ZerosCap[float32](dims.D2{N0: 2, N1: 3}, 12)
	o.ResizeWithinCapacity(dims.D2{N0: 4, N1: 3})
	if o.Len() != 12 {
		t.Fatalf("expected len 12, got %d", o.Len())
	}
}

func TestResizeWithinCapacityExceeded(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on capacity exceeded")
		}
	}()
	o := ZerosCap[float32](dims.D2{N0: 2, N1: 3}, 6)
	o.ResizeWithinCapacity(dims.D2{N0: 10, N1: 3})
}

func TestFill(t *testing.T) {
	o := Zeros[float32](dims.D1{N0: 4})
	o.Fill(9)
	for _, x := range o.Slice() {
		if x != 9 {
			t.Fatalf("expected all 9s, got %v", o.Slice())
		}
	}
}

func TestCowToOwnedClonesWhenBorrowed(t *testing.T) {
	data := []float32{1, 2, 3}
	c := Borrowed(data, dims.D1{N0: 3})
	owned := c.ToOwned()
	owned.MutSlice()[0] = 99
	if data[0] == 99 {
		t.Fatal("mutating owned copy affected original backing slice")
	}
}

func TestCowToOwnedReusesWhenOwned(t *testing.T) {
	o := NewOwned([]float32{1, 2, 3}, dims.D1{N0: 3})
	c := FromOwned(o)
	if !c.IsOwned() {
		t.Fatal("expected owned Cow")
	}
	back := c.ToOwned()
	if &back.Slice()[0] != &o.Slice()[0] {
		t.Fatal("expected owned Cow.ToOwned() to reuse storage")
	}
}

func TestAsRowColMatrix(t *testing.T) {
	o := NewOwned([]float32{1, 2, 3}, dims.D1{N0: 3})
	row := AsRowMatrix(o.Borrow())
	if row.Dims() != (dims.D2{N0: 1, N1: 3}) {
		t.Fatalf("unexpected row shape %v", row.Dims())
	}
	col := AsColMatrix(o.Borrow())
	if col.Dims() != (dims.D2{N0: 3, N1: 1}) {
		t.Fatalf("unexpected col shape %v", col.Dims())
	}
}
