package accel

import (
	"github.com/ollama/nnrun/backend"
	"github.com/ollama/nnrun/backend/accel/device"
	"github.com/ollama/nnrun/dims"
)

// tensor2 is a device-resident matrix. buf is padded up to tileSize
// on both axes (bufRow/bufCol) so every kernel can assume
// full tiles; logical rows/cols are what the network engine sees.
// events is the dependency list every kernel enqueue consults and
// updates per the spec's event-list discipline.
type tensor2 struct {
	buf    *device.Buffer
	dtype  backend.DType
	rows   int
	cols   int
	bufRow int
	bufCol int
	events *eventList
}

func (t *tensor2) Dims() dims.D2        { return dims.D2{N0: t.rows, N1: t.cols} }
func (t *tensor2) DType() backend.DType { return t.dtype }

// stride is the buffer's row pitch: the distance in elements between
// the start of one padded row and the next.
func (t *tensor2) stride() int { return t.bufCol }

type tensor1 struct {
	buf    *device.Buffer
	dtype  backend.DType
	n      int
	bufN   int
	events *eventList
}

func (t *tensor1) Dims() dims.D1        { return dims.D1{N0: t.n} }
func (t *tensor1) DType() backend.DType { return t.dtype }

type tensor3 struct {
	buf          *device.Buffer
	dtype        backend.DType
	d0, d1, d2   int
	bufD1, bufD2 int
	events       *eventList
}

func (t *tensor3) Dims() dims.D3        { return dims.D3{N0: t.d0, N1: t.d1, N2: t.d2} }
func (t *tensor3) DType() backend.DType { return t.dtype }

func asTensor1(t backend.Tensor1) *tensor1 {
	c, ok := t.(*tensor1)
	if !ok {
		panic("accel: tensor was not created by this backend")
	}
	return c
}

func asTensor2(t backend.Tensor2) *tensor2 {
	c, ok := t.(*tensor2)
	if !ok {
		panic("accel: tensor was not created by this backend")
	}
	return c
}

func asTensor3(t backend.Tensor3) *tensor3 {
	c, ok := t.(*tensor3)
	if !ok {
		panic("accel: tensor was not created by this backend")
	}
	return c
}

// inputAdaptionBuffer2 is a standing device tensor the host's adapted
// view is copied into on every AdaptInput2 call; outputAdaptionBufferN
// are standing host tensors a device read lands in on every
// AdaptOutputN call. Both are allocated once at MaxBatchSize and
// reused, per the spec's "amortize the allocation, not the transfer"
// design.
type inputAdaptionBuffer2 struct {
	dev *tensor2
}

func (*inputAdaptionBuffer2) inputAdaptionBuffer2() {}

type outputAdaptionBuffer1 struct {
	host []float32
}

func (*outputAdaptionBuffer1) outputAdaptionBuffer1() {}

type outputAdaptionBuffer2 struct {
	host []float32
	cols int
}

func (*outputAdaptionBuffer2) outputAdaptionBuffer2() {}
