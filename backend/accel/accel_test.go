package accel

import (
	"math"
	"testing"

	"github.com/ollama/nnrun/backend"
	"github.com/ollama/nnrun/dims"
	"github.com/ollama/nnrun/tensor"
)

func newTensor2(t *testing.T, be *Backend, rows, cols int, data []float32) backend.Tensor2 {
	t.Helper()
	v := tensor.NewView(data, dims.D2{N0: rows, N1: cols})
	return be.NewTensor2FromHost(v)
}

func readAll(t *testing.T, be *Backend, tn backend.Tensor2) []float32 {
	t.Helper()
	return be.ReadTensor2(tn).Slice()
}

func closeEnough(t *testing.T, got, want []float32, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(want))
	}
	for i := range got {
		if math.Abs(float64(got[i]-want[i])) > tol {
			t.Fatalf("element %d: got %v want %v (tol %v)", i, got, want, tol)
		}
	}
}

// Shapes exercise an unaligned tile (tile=4, rows/cols not a multiple
// of it) as well as an exact multiple, so padding bugs show up either
// way.
func TestMatmulUnaligned(t *testing.T) {
	be := New(4, 8, 2)
	a := newTensor2(t, be, 2, 3, []float32{1, 2, 3, 4, 5, 6})
	b := newTensor2(t, be, 3, 2, []float32{7, 8, 9, 10, 11, 12})
	c := be.NewTensor2Exact(dims.D2{N0: 2, N1: 2})

	if err := be.Matmul(1, a, false, b, false, 0, c); err != nil {
		t.Fatalf("matmul: %v", err)
	}
	closeEnough(t, readAll(t, be, c), []float32{58, 64, 139, 154}, 1e-4)
}

func TestMatmulExactTile(t *testing.T) {
	be := New(2, 8, 2)
	a := newTensor2(t, be, 2, 2, []float32{1, 2, 3, 4})
	b := newTensor2(t, be, 2, 2, []float32{5, 6, 7, 8})
	c := be.NewTensor2Exact(dims.D2{N0: 2, N1: 2})

	if err := be.Matmul(1, a, false, b, false, 0, c); err != nil {
		t.Fatalf("matmul: %v", err)
	}
	closeEnough(t, readAll(t, be, c), []float32{19, 22, 43, 50}, 1e-4)
}

func TestSigmoidMatchesCPU(t *testing.T) {
	be := New(4, 8, 2)
	in := newTensor2(t, be, 2, 2, []float32{0, 1, -1, 2})
	out := be.NewTensor2Exact(dims.D2{N0: 2, N1: 2})
	if err := be.Sigmoid2(in, out); err != nil {
		t.Fatalf("sigmoid: %v", err)
	}
	closeEnough(t, readAll(t, be, out), []float32{0.5, 0.7311, 0.2689, 0.8808}, 1e-3)
}

func TestSoftmaxMatchesCPU(t *testing.T) {
	be := New(4, 8, 2)
	in := newTensor2(t, be, 1, 3, []float32{1, 2, 3})
	out := be.NewTensor2Exact(dims.D2{N0: 1, N1: 3})
	if err := be.Softmax2(in, out); err != nil {
		t.Fatalf("softmax: %v", err)
	}
	closeEnough(t, readAll(t, be, out), []float32{0.0900, 0.2447, 0.6652}, 1e-3)
}

func TestMeanSquaredErrorMatchesCPU(t *testing.T) {
	be := New(4, 8, 2)
	out := newTensor2(t, be, 2, 2, []float32{1, 2, 3, 4})
	expected := newTensor2(t, be, 2, 2, []float32{0, 2, 3, 5})
	errOut := be.NewTensor1Exact(dims.D1{N0: 2})
	derrOut := be.NewTensor2Exact(dims.D2{N0: 2, N1: 2})

	if err := be.MeanSquaredError2(out, expected, errOut, derrOut); err != nil {
		t.Fatalf("mse: %v", err)
	}
	closeEnough(t, be.ReadTensor1(errOut).Slice(), []float32{0.5, 0.5}, 1e-6)
	closeEnough(t, readAll(t, be, derrOut), []float32{1, 0, 0, -1}, 1e-6)
}

func TestAddAssignBetaZeroDoesNotReadPriorValue(t *testing.T) {
	be := New(4, 8, 2)
	a := newTensor2(t, be, 1, 2, []float32{3, 4})
	b := newTensor2(t, be, 1, 2, []float32{999, 999})
	if err := be.AddAssign2(1, a, 0, b); err != nil {
		t.Fatalf("add_assign: %v", err)
	}
	closeEnough(t, readAll(t, be, b), []float32{3, 4}, 1e-6)
}

func TestAccumConfusionMatrixDoublesOnRepeat(t *testing.T) {
	be := New(4, 8, 2)
	out := newTensor2(t, be, 2, 2, []float32{0.9, 0.1, 0.2, 0.8})
	expected := newTensor2(t, be, 2, 2, []float32{1, 0, 0, 1})
	matrix := be.NewTensor2Exact(dims.D2{N0: 2, N1: 2})

	if err := be.AccumConfusionMatrixMulticlass(out, expected, matrix); err != nil {
		t.Fatalf("accum: %v", err)
	}
	first := append([]float32(nil), readAll(t, be, matrix)...)

	if err := be.AccumConfusionMatrixMulticlass(out, expected, matrix); err != nil {
		t.Fatalf("accum: %v", err)
	}
	second := readAll(t, be, matrix)

	for i := range first {
		if second[i] != 2*first[i] {
			t.Fatalf("expected doubled matrix, got %v from %v", second, first)
		}
	}
}

// TestTransposeRoundTrip mirrors the spec's 200x300 round-trip
// scenario at a smaller scale: transposing a matrix through a
// matmul against the identity, then transposing the result back the
// same way, must recover the original values.
func TestTransposeRoundTrip(t *testing.T) {
	be := New(8, 8, 2)
	rows, cols := 5, 7
	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = float32(i) * 0.5
	}
	a := newTensor2(t, be, rows, cols, data)

	identity := make([]float32, cols*cols)
	for i := 0; i < cols; i++ {
		identity[i*cols+i] = 1
	}
	id := newTensor2(t, be, cols, cols, identity)

	aT := be.NewTensor2Exact(dims.D2{N0: cols, N1: rows})
	if err := be.Matmul(1, id, false, a, true, 0, aT); err != nil {
		t.Fatalf("matmul: %v", err)
	}
	out := be.NewTensor2Exact(dims.D2{N0: rows, N1: cols})
	if err := be.Matmul(1, aT, true, id, false, 0, out); err != nil {
		t.Fatalf("matmul: %v", err)
	}
	closeEnough(t, readAll(t, be, out), data, 1e-4)
}

// TestAdaptInputOutputRoundTrip checks the standing adaption buffers
// survive a batch smaller than MaxBatchSize.
func TestAdaptInputOutputRoundTrip(t *testing.T) {
	be := New(4, 8, 2)
	inBuf := be.NewInputAdaptionBuffer2(8, dims.D1{N0: 3})
	outBuf := be.NewOutputAdaptionBuffer2(8, dims.D1{N0: 3})

	host := tensor.NewView([]float32{1, 2, 3, 4, 5, 6}, dims.D2{N0: 2, N1: 3})
	ref := be.AdaptInput2(inBuf, host)

	out := be.NewTensor2Exact(dims.D2{N0: 2, N1: 3})
	if err := be.Sigmoid2(ref, out); err != nil {
		t.Fatalf("sigmoid: %v", err)
	}
	result := be.AdaptOutput2(outBuf, out)
	if result.Dims() != (dims.D2{N0: 2, N1: 3}) {
		t.Fatalf("unexpected dims: %v", result.Dims())
	}
}
