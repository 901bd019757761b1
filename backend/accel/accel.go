// Package accel is the accelerator backend: every tensor lives in a
// device.Buffer, kernels run asynchronously on a device.Queue, and
// each tensor carries an eventList recording what must complete
// before the next kernel touching it may run. Buffers are padded to
// a multiple of the tile size T so every kernel can assume full
// tiles; logical dims stay exact and are what ResizeTensorN mutates.
package accel

import (
	"github.com/ollama/nnrun/backend"
	"github.com/ollama/nnrun/backend/accel/device"
	"github.com/ollama/nnrun/dims"
	"github.com/ollama/nnrun/tensor"
)

// Backend is the accelerator: a device context, a command queue, and
// the tile size every buffer is padded to.
type Backend struct {
	ctx          *device.Context
	queue        *device.Queue
	tileSize     int
	maxBatchSize int
	storageDType backend.DType
}

// New returns an accelerator backend with the given tile size (must
// be a power of two) and maximum batch size, running kernels on a
// queue with up to maxInFlight concurrent commands. Tensors are
// stored as DTypeF32 device-side; use WithStorageDType to model a
// narrower device-native width instead.
func New(tileSize, maxBatchSize, maxInFlight int) *Backend {
	if tileSize < 1 || tileSize&(tileSize-1) != 0 {
		panic("accel: tile size must be a power of two")
	}
	if maxBatchSize < 1 {
		panic("accel: max batch size must be >= 1")
	}
	ctx := device.NewContext()
	return &Backend{
		ctx:          ctx,
		queue:        device.NewQueue(ctx, maxInFlight),
		tileSize:     tileSize,
		maxBatchSize: maxBatchSize,
		storageDType: backend.DTypeF32,
	}
}

// WithStorageDType sets the width new tensors are modeled as being
// stored in device memory (DTypeF32, DTypeF16 or DTypeBF16). Host
// transfers round-trip through that width's real encoding, so values
// take on its precision loss the same way they would crossing into
// narrower hardware memory.
func (b *Backend) WithStorageDType(dtype backend.DType) *Backend {
	b.storageDType = dtype
	return b
}

func (b *Backend) TileSize() int     { return b.tileSize }
func (b *Backend) MaxBatchSize() int { return b.maxBatchSize }

func (b *Backend) newTensor2(d dims.D2) *tensor2 {
	padded := dims.PaddedD2(d, b.tileSize)
	return &tensor2{
		buf:    b.ctx.NewBuffer(padded.N0 * padded.N1),
		dtype:  b.storageDType,
		rows:   d.N0,
		cols:   d.N1,
		bufRow: padded.N0,
		bufCol: padded.N1,
		events: newEventList(),
	}
}

func (b *Backend) newTensor1(d dims.D1) *tensor1 {
	padded := dims.PaddedD1(d, b.tileSize)
	return &tensor1{
		buf:    b.ctx.NewBuffer(padded.N0),
		dtype:  b.storageDType,
		n:      d.N0,
		bufN:   padded.N0,
		events: newEventList(),
	}
}

func (b *Backend) newTensor3(d dims.D3) *tensor3 {
	padded1 := dims.TileCeil(d.N1, b.tileSize)
	padded2 := dims.TileCeil(d.N2, b.tileSize)
	return &tensor3{
		buf:    b.ctx.NewBuffer(d.N0 * padded1 * padded2),
		dtype:  b.storageDType,
		d0:     d.N0,
		d1:     d.N1,
		d2:     d.N2,
		bufD1:  padded1,
		bufD2:  padded2,
		events: newEventList(),
	}
}

func (b *Backend) NewTensor1Exact(d dims.D1) backend.Tensor1 { return b.newTensor1(d) }
func (b *Backend) NewTensor2Exact(d dims.D2) backend.Tensor2 { return b.newTensor2(d) }
func (b *Backend) NewTensor3Exact(d dims.D3) backend.Tensor3 { return b.newTensor3(d) }

func (b *Backend) NewTensor1BatchSized() backend.Tensor1 {
	return b.newTensor1(dims.D1{N0: b.maxBatchSize})
}

func (b *Backend) NewTensor2BatchSized(inner dims.D1) backend.Tensor2 {
	return b.newTensor2(dims.D2{N0: b.maxBatchSize, N1: inner.N0})
}

func (b *Backend) NewTensor3BatchSized(inner dims.D2) backend.Tensor3 {
	return b.newTensor3(dims.D3{N0: b.maxBatchSize, N1: inner.N0, N2: inner.N1})
}

// writeRows performs a blocking host->device copy of v into t, row by
// row, respecting t's padded stride. Blocking per the spec: the host
// must not be able to mutate the source slice before the transfer
// lands, and there is no real DMA engine here to make it async.
func writeRows(t *tensor2, v tensor.View[float32, dims.D2]) {
	t.events.drain()
	src := v.Slice()
	t.buf.withLock(func(data []float32) {
		for r := 0; r < t.rows; r++ {
			row := data[r*t.stride() : r*t.stride()+t.cols]
			copy(row, src[r*t.cols:(r+1)*t.cols])
			roundTripDType(t.dtype, row)
		}
	})
}

func (b *Backend) NewTensor1FromHost(v tensor.View[float32, dims.D1]) backend.Tensor1 {
	t := b.newTensor1(v.Dims())
	t.events.drain()
	t.buf.withLock(func(data []float32) {
		copy(data[:t.n], v.Slice())
		roundTripDType(t.dtype, data[:t.n])
	})
	return t
}

func (b *Backend) NewTensor2FromHost(v tensor.View[float32, dims.D2]) backend.Tensor2 {
	t := b.newTensor2(v.Dims())
	writeRows(t, v)
	return t
}

func (b *Backend) ResizeTensor1(tn backend.Tensor1, d dims.D1) {
	t := asTensor1(tn)
	if d.N0 > t.bufN {
		panic(&tensor.CapacityExceededError{Op: "accel.ResizeTensor1", Requested: d.N0, Capacity: t.bufN})
	}
	t.n = d.N0
}

func (b *Backend) ResizeTensor2(tn backend.Tensor2, d dims.D2) {
	t := asTensor2(tn)
	if d.N0 > t.bufRow || d.N1 > t.bufCol {
		panic(&tensor.CapacityExceededError{Op: "accel.ResizeTensor2", Requested: d.Len(), Capacity: t.bufRow * t.bufCol})
	}
	t.rows, t.cols = d.N0, d.N1
}

func (b *Backend) ResizeTensor3(tn backend.Tensor3, d dims.D3) {
	t := asTensor3(tn)
	if d.N1 > t.bufD1 || d.N2 > t.bufD2 {
		panic(&tensor.CapacityExceededError{Op: "accel.ResizeTensor3", Requested: d.Len(), Capacity: t.d0 * t.bufD1 * t.bufD2})
	}
	t.d0, t.d1, t.d2 = d.N0, d.N1, d.N2
}

func (b *Backend) WriteTensor1(tn backend.Tensor1, v tensor.View[float32, dims.D1]) {
	t := asTensor1(tn)
	t.events.drain()
	t.buf.withLock(func(data []float32) {
		copy(data[:t.n], v.Slice())
		roundTripDType(t.dtype, data[:t.n])
	})
}

func (b *Backend) WriteTensor2(tn backend.Tensor2, v tensor.View[float32, dims.D2]) {
	writeRows(asTensor2(tn), v)
}

func (b *Backend) ReadTensor1(tn backend.Tensor1) tensor.Owned[float32, dims.D1] {
	t := asTensor1(tn)
	t.events.drain()
	out := tensor.Zeros[float32](dims.D1{N0: t.n})
	t.buf.withLock(func(data []float32) {
		copy(out.MutSlice(), data[:t.n])
	})
	return out
}

func (b *Backend) ReadTensor2(tn backend.Tensor2) tensor.Owned[float32, dims.D2] {
	t := asTensor2(tn)
	t.events.drain()
	out := tensor.Zeros[float32](dims.D2{N0: t.rows, N1: t.cols})
	dst := out.MutSlice()
	t.buf.withLock(func(data []float32) {
		for r := 0; r < t.rows; r++ {
			copy(dst[r*t.cols:(r+1)*t.cols], data[r*t.stride():r*t.stride()+t.cols])
		}
	})
	return out
}

// NewInputAdaptionBuffer2 allocates the standing device tensor every
// AdaptInput2 call copies into, sized once at the backend's max batch.
func (b *Backend) NewInputAdaptionBuffer2(maxBatch int, inner dims.D1) backend.InputAdaptionBuffer2 {
	return &inputAdaptionBuffer2{dev: b.newTensor2(dims.D2{N0: maxBatch, N1: inner.N0})}
}

// AdaptInput2 copies the host view into the buffer's device tensor
// (resizing its logical rows if the batch is smaller than max) and
// returns it as a read-only ref. This is the one unavoidable
// host->device copy per batch; there is no way to "adapt" a host
// slice into device memory without transferring it.
func (b *Backend) AdaptInput2(buf backend.InputAdaptionBuffer2, v tensor.View[float32, dims.D2]) backend.TensorRef2 {
	ib := buf.(*inputAdaptionBuffer2)
	d := v.Dims()
	if d.N0 > ib.dev.bufRow || d.N1 > ib.dev.bufCol {
		panic(&tensor.CapacityExceededError{Op: "accel.AdaptInput2", Requested: d.Len(), Capacity: ib.dev.bufRow * ib.dev.bufCol})
	}
	ib.dev.rows, ib.dev.cols = d.N0, d.N1
	writeRows(ib.dev, v)
	return ib.dev
}

func (b *Backend) NewOutputAdaptionBuffer2(maxBatch int, inner dims.D1) backend.OutputAdaptionBuffer2 {
	return &outputAdaptionBuffer2{host: make([]float32, maxBatch*inner.N0), cols: inner.N0}
}

// AdaptOutput2 blocks on t's pending work, reads it back row by row
// into the buffer's standing host slice, and returns a view over it.
func (b *Backend) AdaptOutput2(buf backend.OutputAdaptionBuffer2, tn backend.Tensor2) tensor.View[float32, dims.D2] {
	ob := buf.(*outputAdaptionBuffer2)
	t := asTensor2(tn)
	t.events.drain()
	need := t.rows * t.cols
	if need > len(ob.host) {
		panic(&tensor.CapacityExceededError{Op: "accel.AdaptOutput2", Requested: need, Capacity: len(ob.host)})
	}
	dst := ob.host[:need]
	t.buf.withLock(func(data []float32) {
		for r := 0; r < t.rows; r++ {
			copy(dst[r*t.cols:(r+1)*t.cols], data[r*t.stride():r*t.stride()+t.cols])
		}
	})
	return tensor.NewView(dst, dims.D2{N0: t.rows, N1: t.cols})
}

func (b *Backend) NewOutputAdaptionBuffer1(maxBatch int) backend.OutputAdaptionBuffer1 {
	return &outputAdaptionBuffer1{host: make([]float32, maxBatch)}
}

func (b *Backend) AdaptOutput1(buf backend.OutputAdaptionBuffer1, tn backend.Tensor1) tensor.View[float32, dims.D1] {
	ob := buf.(*outputAdaptionBuffer1)
	t := asTensor1(tn)
	t.events.drain()
	if t.n > len(ob.host) {
		panic(&tensor.CapacityExceededError{Op: "accel.AdaptOutput1", Requested: t.n, Capacity: len(ob.host)})
	}
	dst := ob.host[:t.n]
	t.buf.withLock(func(data []float32) {
		copy(dst, data[:t.n])
	})
	return tensor.NewView(dst, dims.D1{N0: t.n})
}

// Flush enqueues a barrier waiting on nothing in particular and asks
// the queue to start draining; in this simulation kernels already run
// as soon as their dependencies are satisfied, so there is no real
// pipeline to kick.
func (b *Backend) Flush() error {
	b.queue.EnqueueBarrier(nil).Release()
	return b.queue.Flush()
}

// Sync blocks until every command enqueued so far has completed.
func (b *Backend) Sync() error {
	return b.queue.Finish()
}

var _ backend.Backend = (*Backend)(nil)
