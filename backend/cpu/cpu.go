package cpu

import (
	"github.com/ollama/nnrun/backend"
	"github.com/ollama/nnrun/dims"
	"github.com/ollama/nnrun/tensor"
)

// Backend is the CPU reference backend. It carries only the
// configuration needed to size batch-capacity allocations; it holds
// no device handle and every operation is synchronous.
type Backend struct {
	maxBatchSize int
}

// New constructs a CPU backend sized for maxBatchSize rows.
func New(maxBatchSize int) *Backend {
	if maxBatchSize < 1 {
		panic("cpu: maxBatchSize must be positive")
	}
	return &Backend{maxBatchSize: maxBatchSize}
}

func (b *Backend) TileSize() int     { return 1 }
func (b *Backend) MaxBatchSize() int { return b.maxBatchSize }

func (b *Backend) NewTensor1Exact(d dims.D1) backend.Tensor1 {
	return &tensor1{Owned: tensor.Zeros[float32](d)}
}

func (b *Backend) NewTensor2Exact(d dims.D2) backend.Tensor2 {
	return &tensor2{Owned: tensor.Zeros[float32](d)}
}

func (b *Backend) NewTensor3Exact(d dims.D3) backend.Tensor3 {
	return &tensor3{Owned: tensor.Zeros[float32](d)}
}

func (b *Backend) NewTensor1BatchSized() backend.Tensor1 {
	return &tensor1{Owned: tensor.ZerosCap[float32](dims.D1{N0: b.maxBatchSize}, b.maxBatchSize)}
}

func (b *Backend) NewTensor2BatchSized(inner dims.D1) backend.Tensor2 {
	full := dims.InsertMajor1(b.maxBatchSize, inner)
	return &tensor2{Owned: tensor.ZerosCap[float32](full, full.Len())}
}

func (b *Backend) NewTensor3BatchSized(inner dims.D2) backend.Tensor3 {
	full := dims.InsertMajor2(b.maxBatchSize, inner)
	return &tensor3{Owned: tensor.ZerosCap[float32](full, full.Len())}
}

func (b *Backend) NewTensor1FromHost(v tensor.View[float32, dims.D1]) backend.Tensor1 {
	return &tensor1{Owned: v.ToOwned()}
}

func (b *Backend) NewTensor2FromHost(v tensor.View[float32, dims.D2]) backend.Tensor2 {
	return &tensor2{Owned: v.ToOwned()}
}

func (b *Backend) ResizeTensor1(t backend.Tensor1, d dims.D1) {
	asTensor1(t).ResizeWithinCapacity(d)
}

func (b *Backend) ResizeTensor2(t backend.Tensor2, d dims.D2) {
	asTensor2(t).ResizeWithinCapacity(d)
}

func (b *Backend) ResizeTensor3(t backend.Tensor3, d dims.D3) {
	c, ok := t.(*tensor3)
	if !ok {
		panic("cpu: tensor was not created by this backend")
	}
	c.ResizeWithinCapacity(d)
}

func (b *Backend) WriteTensor1(t backend.Tensor1, v tensor.View[float32, dims.D1]) {
	c := asTensor1(t)
	copy(c.MutSlice(), v.Slice())
}

func (b *Backend) WriteTensor2(t backend.Tensor2, v tensor.View[float32, dims.D2]) {
	c := asTensor2(t)
	copy(c.MutSlice(), v.Slice())
}

func (b *Backend) ReadTensor1(t backend.Tensor1) tensor.Owned[float32, dims.D1] {
	return asTensor1(t).Borrow().ToOwned()
}

func (b *Backend) ReadTensor2(t backend.Tensor2) tensor.Owned[float32, dims.D2] {
	return asTensor2(t).Borrow().ToOwned()
}

// NewInputAdaptionBuffer2 is a no-op on the CPU backend: adaption
// never copies, so the buffer carries no state.
func (b *Backend) NewInputAdaptionBuffer2(maxBatch int, inner dims.D1) backend.InputAdaptionBuffer2 {
	return inputAdaptionBuffer2{}
}

// AdaptInput2 wraps the host view directly as a backend tensor with no
// copy: the CPU backend has no separate residency to transfer into.
func (b *Backend) AdaptInput2(buf backend.InputAdaptionBuffer2, v tensor.View[float32, dims.D2]) backend.TensorRef2 {
	return &tensor2{Owned: tensor.NewOwned(v.Slice(), v.Dims())}
}

func (b *Backend) NewOutputAdaptionBuffer2(maxBatch int, inner dims.D1) backend.OutputAdaptionBuffer2 {
	return outputAdaptionBuffer2{}
}

// AdaptOutput2 returns a view directly over the tensor's backing
// storage; no copy.
func (b *Backend) AdaptOutput2(buf backend.OutputAdaptionBuffer2, t backend.Tensor2) tensor.View[float32, dims.D2] {
	return asTensor2(t).Borrow()
}

func (b *Backend) NewOutputAdaptionBuffer1(maxBatch int) backend.OutputAdaptionBuffer1 {
	return outputAdaptionBuffer1{}
}

func (b *Backend) AdaptOutput1(buf backend.OutputAdaptionBuffer1, t backend.Tensor1) tensor.View[float32, dims.D1] {
	return asTensor1(t).Borrow()
}

// Flush and Sync are no-ops: every CPU op already ran synchronously.
func (b *Backend) Flush() error { return nil }
func (b *Backend) Sync() error  { return nil }

var _ backend.Backend = (*Backend)(nil)
