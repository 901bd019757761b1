// Package backend declares the operation set a compute backend must
// provide and the associated tensor/adaption-buffer types the network
// engine programs against, independent of whether the backend is the
// CPU reference implementation (backend/cpu) or the accelerator
// (backend/accel).
//
// Shape mismatches are contract violations: implementations panic
// rather than return an error (see tensor.ShapeMismatchError). Only
// resource failures — allocation, device call failures, program build
// failures — are returned as errors.
package backend

import (
	"github.com/ollama/nnrun/dims"
	"github.com/ollama/nnrun/tensor"
)

// DType identifies a tensor's storage representation. Host-side
// arithmetic is always float32; DType records what the backend stores
// it as (the accelerator may store F16 or BF16 device-side).
type DType int

const (
	DTypeF32 DType = iota
	DTypeF16
	DTypeBF16
)

func (d DType) String() string {
	switch d {
	case DTypeF32:
		return "f32"
	case DTypeF16:
		return "f16"
	case DTypeBF16:
		return "bf16"
	default:
		return "unknown"
	}
}

// Tensor1, Tensor2, Tensor3 are backend-resident tensors of the given
// rank. They expose only Dims and DType; mutation goes through
// Backend methods. TensorRefN is the same method set under a name
// documenting read-only usage — an intent marker, not a
// compiler-enforced guarantee (see DESIGN.md).
type Tensor1 interface {
	Dims() dims.D1
	DType() DType
}

type Tensor2 interface {
	Dims() dims.D2
	DType() DType
}

type Tensor3 interface {
	Dims() dims.D3
	DType() DType
}

type (
	TensorRef1 = Tensor1
	TensorRef2 = Tensor2
	TensorRef3 = Tensor3
)

// InputAdaptionBuffer1/2 and OutputAdaptionBuffer1/2 are opaque,
// backend-owned slots created once per entry point at the configured
// maximum batch size. On the CPU backend they carry no state; on the
// accelerator backend the input buffer is a device tensor and the
// output buffer a host tensor (see backend/accel).
type (
	InputAdaptionBuffer1  interface{ inputAdaptionBuffer1() }
	InputAdaptionBuffer2  interface{ inputAdaptionBuffer2() }
	OutputAdaptionBuffer1 interface{ outputAdaptionBuffer1() }
	OutputAdaptionBuffer2 interface{ outputAdaptionBuffer2() }
)

// Backend is the operation set the network engine is written against.
type Backend interface {
	// TileSize is 1 for backends with no padding requirement (the CPU
	// backend); the accelerator backend reports its tile size T.
	TileSize() int

	// MaxBatchSize is the capacity batch-sized tensors and adaption
	// buffers are allocated for.
	MaxBatchSize() int

	NewTensor1Exact(d dims.D1) Tensor1
	NewTensor2Exact(d dims.D2) Tensor2
	NewTensor3Exact(d dims.D3) Tensor3

	// NewTensor1BatchSized allocates capacity for MaxBatchSize()
	// scalar slots (one per batch row, e.g. a per-sample loss).
	NewTensor1BatchSized() Tensor1

	// NewTensor2BatchSized allocates capacity for MaxBatchSize() rows
	// of the given inner shape; the tensor starts at that major
	// extent and may be resized down within capacity.
	NewTensor2BatchSized(inner dims.D1) Tensor2
	NewTensor3BatchSized(inner dims.D2) Tensor3

	NewTensor1FromHost(v tensor.View[float32, dims.D1]) Tensor1
	NewTensor2FromHost(v tensor.View[float32, dims.D2]) Tensor2

	// ResizeTensorN mutates t's logical dims in place. Panics
	// (CapacityExceeded) if d exceeds t's allocated capacity.
	ResizeTensor1(t Tensor1, d dims.D1)
	ResizeTensor2(t Tensor2, d dims.D2)
	ResizeTensor3(t Tensor3, d dims.D3)

	WriteTensor1(t Tensor1, v tensor.View[float32, dims.D1])
	WriteTensor2(t Tensor2, v tensor.View[float32, dims.D2])
	ReadTensor1(t Tensor1) tensor.Owned[float32, dims.D1]
	ReadTensor2(t Tensor2) tensor.Owned[float32, dims.D2]

	NewInputAdaptionBuffer2(maxBatch int, inner dims.D1) InputAdaptionBuffer2
	AdaptInput2(buf InputAdaptionBuffer2, v tensor.View[float32, dims.D2]) TensorRef2

	NewOutputAdaptionBuffer2(maxBatch int, inner dims.D1) OutputAdaptionBuffer2
	AdaptOutput2(buf OutputAdaptionBuffer2, t Tensor2) tensor.View[float32, dims.D2]

	NewOutputAdaptionBuffer1(maxBatch int) OutputAdaptionBuffer1
	AdaptOutput1(buf OutputAdaptionBuffer1, t Tensor1) tensor.View[float32, dims.D1]

	// Matmul computes C <- alpha*op(A)*op(B) + beta*C, op(X) = X if
	// the corresponding transpose flag is false, else X^T.
	Matmul(alpha float64, a TensorRef2, ta bool, b TensorRef2, tb bool, beta float64, c Tensor2) error

	// AddAssign1 computes b <- alpha*a + beta*b.
	AddAssign1(alpha float64, a TensorRef1, beta float64, b Tensor1) error

	// AddAssign2 computes b <- alpha*a + beta*b.
	AddAssign2(alpha float64, a TensorRef2, beta float64, b Tensor2) error

	// ColumnSum reduces m's columns into v: v <- alpha*colsum(m) + beta*v.
	ColumnSum(alpha float64, m TensorRef2, beta float64, v Tensor1) error

	Sigmoid2(in TensorRef2, out Tensor2) error
	SigmoidError2(sigmoidOut TensorRef2, derr TensorRef2, out Tensor2) error

	LeakyReLU2(alpha float64, in TensorRef2, out Tensor2) error
	LeakyReLUError2(alpha float64, in TensorRef2, derr TensorRef2, out Tensor2) error

	Softmax2(in TensorRef2, out Tensor2) error
	SoftmaxError2(softmaxOut TensorRef2, derr TensorRef2, out Tensor2) error

	// MeanSquaredError2 computes, per row, the mean squared error
	// between out and expected into errOut, and the element-wise
	// derivative out-expected into derrOut.
	MeanSquaredError2(out TensorRef2, expected TensorRef2, errOut Tensor1, derrOut Tensor2) error

	// AccumConfusionMatrixMulticlass argmaxes each row of out and
	// expected and increments matrix[argmax(expected), argmax(out)].
	AccumConfusionMatrixMulticlass(out TensorRef2, expected TensorRef2, matrix Tensor2) error

	// Flush enqueues a barrier and flushes the command pipeline. No-op
	// on the CPU backend.
	Flush() error

	// Sync blocks until all pending backend work completes. No-op on
	// the CPU backend.
	Sync() error
}
