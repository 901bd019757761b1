// Package tensor implements the host-resident tensor variants used
// uniformly by the CPU backend and by host-side code feeding the
// accelerator backend: Owned (heap-backed), View / ViewMut (borrowed
// slice), and Cow (either).
//
// Every variant carries data []T and a dims.Shape tag D; the invariant
// len(data) == dims.Len() holds for every constructor and is checked
// once, never lazily re-derived.
package tensor

import "github.com/ollama/nnrun/dims"

// Elem is the set of element types tensors may hold.
type Elem interface {
	~float32 | ~float64
}

// Owned is a heap-allocated tensor. It is the only variant that can
// grow; resizing within capacity never reallocates, resizing beyond it
// does.
type Owned[T Elem, D dims.Shape] struct {
	data []T
	dims D
}

// NewOwned wraps data as an owned tensor of shape d. Panics
// (ShapeMismatch) if len(data) != d.Len().
func NewOwned[T Elem, D dims.Shape](data []T, d D) Owned[T, D] {
	if len(data) != d.Len() {
		panic(shapeMismatch("NewOwned", d.Len(), len(data)))
	}
	return Owned[T, D]{data: data, dims: d}
}

// Zeros allocates a zero-filled owned tensor of shape d.
func Zeros[T Elem, D dims.Shape](d D) Owned[T, D] {
	return Owned[T, D]{data: make([]T, d.Len()), dims: d}
}

// Filled allocates an owned tensor of shape d with every slot set to v.
func Filled[T Elem, D dims.Shape](d D, v T) Owned[T, D] {
	o := Zeros[T](d)
	o.Fill(v)
	return o
}

// ZerosCap allocates an owned tensor of shape d but with storage sized
// for capLen elements, so that later ResizeWithinCapacity calls up to
// capLen don't reallocate. Padding past d.Len() is zeroed.
func ZerosCap[T Elem, D dims.Shape](d D, capLen int) Owned[T, D] {
	if capLen < d.Len() {
		panic(shapeMismatch("ZerosCap", d.Len(), capLen))
	}
	return Owned[T, D]{data: make([]T, d.Len(), capLen), dims: d}
}

// Dims returns the tensor's dimension tag.
func (o Owned[T, D]) Dims() D { return o.dims }

// Len returns the element count, equal to o.Dims().Len().
func (o Owned[T, D]) Len() int { return len(o.data) }

// Slice exposes the backing storage read-only (callers must not retain
// and mutate it across a resize).
func (o Owned[T, D]) Slice() []T { return o.data }

// MutSlice exposes the backing storage for in-place mutation.
func (o *Owned[T, D]) MutSlice() []T { return o.data }

// Fill overwrites every slot with v.
func (o *Owned[T, D]) Fill(v T) {
	for i := range o.data {
		o.data[i] = v
	}
}

// ResizeWithFill reallocates (if needed) to shape d and fills every
// slot with v. Always safe; may allocate.
func (o *Owned[T, D]) ResizeWithFill(d D, v T) {
	if cap(o.data) >= d.Len() {
		o.data = o.data[:d.Len()]
	} else {
		o.data = make([]T, d.Len())
	}
	o.dims = d
	o.Fill(v)
}

// ResizeWithinCapacity reshapes the tensor to d without reallocating.
// Panics (CapacityExceeded) if d.Len() exceeds the current capacity.
func (o *Owned[T, D]) ResizeWithinCapacity(d D) {
	if d.Len() > cap(o.data) {
		panic(capacityExceeded("ResizeWithinCapacity", d.Len(), cap(o.data)))
	}
	o.data = o.data[:d.Len()]
	o.dims = d
}

// Borrow returns a read-only view over the owned storage.
func (o Owned[T, D]) Borrow() View[T, D] {
	return View[T, D]{data: o.data, dims: o.dims}
}

// BorrowMut returns a mutable view over the owned storage.
func (o *Owned[T, D]) BorrowMut() ViewMut[T, D] {
	return ViewMut[T, D]{data: o.data, dims: o.dims}
}

// View is a borrowed, read-only tensor.
type View[T Elem, D dims.Shape] struct {
	data []T
	dims D
}

// NewView wraps data as a read-only view of shape d.
func NewView[T Elem, D dims.Shape](data []T, d D) View[T, D] {
	if len(data) != d.Len() {
		panic(shapeMismatch("NewView", d.Len(), len(data)))
	}
	return View[T, D]{data: data, dims: d}
}

func (v View[T, D]) Dims() D     { return v.dims }
func (v View[T, D]) Len() int    { return len(v.data) }
func (v View[T, D]) Slice() []T  { return v.data }

// ToOwned copies the view into freshly allocated storage.
func (v View[T, D]) ToOwned() Owned[T, D] {
	cp := make([]T, len(v.data))
	copy(cp, v.data)
	return Owned[T, D]{data: cp, dims: v.dims}
}

// ViewMut is a borrowed, mutable tensor.
type ViewMut[T Elem, D dims.Shape] struct {
	data []T
	dims D
}

// NewViewMut wraps data as a mutable view of shape d.
func NewViewMut[T Elem, D dims.Shape](data []T, d D) ViewMut[T, D] {
	if len(data) != d.Len() {
		panic(shapeMismatch("NewViewMut", d.Len(), len(data)))
	}
	return ViewMut[T, D]{data: data, dims: d}
}

func (v ViewMut[T, D]) Dims() D        { return v.dims }
func (v ViewMut[T, D]) Len() int       { return len(v.data) }
func (v ViewMut[T, D]) Slice() []T     { return v.data }
func (v ViewMut[T, D]) MutSlice() []T  { return v.data }

// Borrow returns a read-only view of the same storage.
func (v ViewMut[T, D]) Borrow() View[T, D] {
	return View[T, D]{data: v.data, dims: v.dims}
}

func (v ViewMut[T, D]) Fill(x T) {
	for i := range v.data {
		v.data[i] = x
	}
}

// Cow is either a borrowed view or owned storage. Code that may or may
// not need to materialize a result uses Cow to defer that decision to
// the caller of ToOwned.
type Cow[T Elem, D dims.Shape] struct {
	data  []T
	dims  D
	owned bool
}

// Borrowed wraps data as a borrowed Cow.
func Borrowed[T Elem, D dims.Shape](data []T, d D) Cow[T, D] {
	if len(data) != d.Len() {
		panic(shapeMismatch("Borrowed", d.Len(), len(data)))
	}
	return Cow[T, D]{data: data, dims: d, owned: false}
}

// FromOwned wraps an Owned tensor as an owned Cow.
func FromOwned[T Elem, D dims.Shape](o Owned[T, D]) Cow[T, D] {
	return Cow[T, D]{data: o.data, dims: o.dims, owned: true}
}

func (c Cow[T, D]) Dims() D    { return c.dims }
func (c Cow[T, D]) Len() int   { return len(c.data) }
func (c Cow[T, D]) Slice() []T { return c.data }
func (c Cow[T, D]) IsOwned() bool { return c.owned }

// ToOwned returns the owned storage, cloning it first if c is borrowed.
func (c Cow[T, D]) ToOwned() Owned[T, D] {
	if c.owned {
		return Owned[T, D]{data: c.data, dims: c.dims}
	}
	cp := make([]T, len(c.data))
	copy(cp, c.data)
	return Owned[T, D]{data: cp, dims: c.dims}
}

// Borrow returns a read-only view regardless of ownership.
func (c Cow[T, D]) Borrow() View[T, D] {
	return View[T, D]{data: c.data, dims: c.dims}
}

// AsRowMatrix reinterprets a rank-1 view as a 1xN row matrix.
func AsRowMatrix[T Elem](v View[T, dims.D1]) View[T, dims.D2] {
	return View[T, dims.D2]{data: v.data, dims: dims.D2{N0: 1, N1: v.dims.N0}}
}

// AsColMatrix reinterprets a rank-1 view as an Nx1 column matrix.
func AsColMatrix[T Elem](v View[T, dims.D1]) View[T, dims.D2] {
	return View[T, dims.D2]{data: v.data, dims: dims.D2{N0: v.dims.N0, N1: 1}}
}

// AsRowMatrixMut reinterprets a rank-1 mutable view as a 1xN row matrix.
func AsRowMatrixMut[T Elem](v ViewMut[T, dims.D1]) ViewMut[T, dims.D2] {
	return ViewMut[T, dims.D2]{data: v.data, dims: dims.D2{N0: 1, N1: v.dims.N0}}
}

// AsColMatrixMut reinterprets a rank-1 mutable view as an Nx1 column matrix.
func AsColMatrixMut[T Elem](v ViewMut[T, dims.D1]) ViewMut[T, dims.D2] {
	return ViewMut[T, dims.D2]{data: v.data, dims: dims.D2{N0: v.dims.N0, N1: 1}}
}
