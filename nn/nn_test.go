package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ollama/nnrun/backend/cpu"
	"github.com/ollama/nnrun/dims"
	"github.com/ollama/nnrun/tensor"
)

func TestBuildRequiresAtLeastTwoLayers(t *testing.T) {
	be := cpu.New(4)
	_, err := NewBuilder(be, 3).AddLayer(4, ActivationSigmoid).Build()
	if err == nil {
		t.Fatal("expected error building a single-layer net")
	}
}

func TestForwardProducesCorrectShape(t *testing.T) {
	be := cpu.New(4)
	net, err := NewBuilder(be, 3).
		AddLayer(5, ActivationSigmoid).
		AddLayer(2, ActivationSoftmax).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	x := be.NewTensor2FromHost(tensor.NewView([]float32{1, 2, 3, 4, 5, 6}, dims.D2{N0: 2, N1: 3}))
	out, err := net.forward(2, x)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if out.Dims() != (dims.D2{N0: 2, N1: 2}) {
		t.Fatalf("unexpected output dims: %v", out.Dims())
	}

	// softmax rows must sum to 1
	got := be.ReadTensor2(out).Slice()
	for r := 0; r < 2; r++ {
		sum := got[r*2] + got[r*2+1]
		if math.Abs(float64(sum-1)) > 1e-4 {
			t.Fatalf("row %d does not sum to 1: %v", r, sum)
		}
	}
}

func TestTrainReducesLoss(t *testing.T) {
	be := cpu.New(8)
	net, err := NewBuilder(be, 2).
		WithRNG(rand.New(rand.NewSource(7))).
		AddLayer(6, ActivationSigmoid).
		AddLayer(2, ActivationSoftmax).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	x := tensor.NewView([]float32{1, 0, 0, 1, 1, 0, 0, 1}, dims.D2{N0: 4, N1: 2})
	y := tensor.NewView([]float32{1, 0, 0, 1, 1, 0, 0, 1}, dims.D2{N0: 4, N1: 2})

	xDev := be.NewTensor2FromHost(x)
	yDev := be.NewTensor2FromHost(y)
	_, _, err = net.TrainBatch(xDev, yDev, 0.1, 0, NoopScorer{})
	if err != nil {
		t.Fatalf("train_batch: %v", err)
	}

	errBefore, _, err := net.TrainBatch(xDev, yDev, 0.0, 0, NoopScorer{})
	if err != nil {
		t.Fatalf("train_batch: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	if err := net.Train(rng, x, y, 50, 0.5, 0, NoopScorer{}); err != nil {
		t.Fatalf("train: %v", err)
	}

	errAfter, _, err := net.TrainBatch(xDev, yDev, 0.0, 0, NoopScorer{})
	if err != nil {
		t.Fatalf("train_batch: %v", err)
	}

	meanBefore := mean(errBefore.Slice())
	meanAfter := mean(errAfter.Slice())
	if meanAfter >= meanBefore {
		t.Fatalf("expected loss to decrease: before=%v after=%v", meanBefore, meanAfter)
	}
}

func mean(xs []float32) float64 {
	var sum float64
	for _, x := range xs {
		sum += float64(x)
	}
	return sum / float64(len(xs))
}

func TestBatchesSplitsRaggedLastBatch(t *testing.T) {
	x := tensor.NewView([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, dims.D2{N0: 5, N1: 2})
	y := tensor.NewView([]float32{1, 2, 3, 4, 5}, dims.D2{N0: 5, N1: 1})

	b := NewBatches(x, y, 2)
	if b.Len() != 3 {
		t.Fatalf("expected 3 batches, got %d", b.Len())
	}
	lastX, lastY := b.At(2)
	if lastX.Dims().N0 != 1 || lastY.Dims().N0 != 1 {
		t.Fatalf("expected last batch of size 1, got x=%v y=%v", lastX.Dims(), lastY.Dims())
	}
}

func TestParamRangeSampleWithinBounds(t *testing.T) {
	p := ParamRange{Min: 0.01, Max: 0.1}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		v := p.Sample(rng)
		if v < p.Min || v >= p.Max {
			t.Fatalf("sample %v out of range [%v, %v)", v, p.Min, p.Max)
		}
	}
}
