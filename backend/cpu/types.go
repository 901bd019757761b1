// Package cpu implements the reference backend: every op runs on host
// memory, GEMM is delegated to gonum's BLAS implementation, and
// element-wise math leans on gorgonia's vecf32 slice kernels
// and chewxy/math32's float32 transcendental functions.
package cpu

import (
	"github.com/ollama/nnrun/backend"
	"github.com/ollama/nnrun/dims"
	"github.com/ollama/nnrun/tensor"
)

type tensor1 struct {
	tensor.Owned[float32, dims.D1]
}

func (*tensor1) DType() backend.DType { return backend.DTypeF32 }

type tensor2 struct {
	tensor.Owned[float32, dims.D2]
}

func (*tensor2) DType() backend.DType { return backend.DTypeF32 }

type tensor3 struct {
	tensor.Owned[float32, dims.D3]
}

func (*tensor3) DType() backend.DType { return backend.DTypeF32 }

// asTensor1/2/3 type-assert a backend.TensorN into the CPU's concrete
// representation. Called only from within this package on values this
// backend itself produced — a type mismatch indicates the caller
// passed a tensor from a different backend, which is a programmer
// error and panics like any other shape contract violation.
func asTensor1(t backend.Tensor1) *tensor1 {
	c, ok := t.(*tensor1)
	if !ok {
		panic("cpu: tensor was not created by this backend")
	}
	return c
}

func asTensor2(t backend.Tensor2) *tensor2 {
	c, ok := t.(*tensor2)
	if !ok {
		panic("cpu: tensor was not created by this backend")
	}
	return c
}

type inputAdaptionBuffer2 struct{}

func (inputAdaptionBuffer2) inputAdaptionBuffer2() {}

type outputAdaptionBuffer1 struct{}

func (outputAdaptionBuffer1) outputAdaptionBuffer1() {}

type outputAdaptionBuffer2 struct{}

func (outputAdaptionBuffer2) outputAdaptionBuffer2() {}
