package nn

import (
	"math/rand"

	"github.com/ollama/nnrun/dims"
	"github.com/ollama/nnrun/tensor"
)

// Batches splits a dataset's X/Y views into row-major batches of a
// fixed size (the last batch may be smaller). Recovered from the
// original implementation's example-harness batching helper, which
// the distilled spec only describes inline as part of Train's
// contract — useful enough as a standalone, testable type that Train
// builds on rather than reimplementing the slicing itself.
type Batches struct {
	x, y      tensor.View[float32, dims.D2]
	batchSize int
	count     int
}

// NewBatches splits x (rows × inCols) and y (rows × outCols) into
// ceil(rows/batchSize) batches. Panics if x and y don't have the same
// row count.
func NewBatches(x, y tensor.View[float32, dims.D2], batchSize int) *Batches {
	rows := x.Dims().N0
	if y.Dims().N0 != rows {
		panic("nn: NewBatches: x and y row counts differ")
	}
	if batchSize < 1 {
		panic("nn: NewBatches: batchSize must be >= 1")
	}
	count := (rows + batchSize - 1) / batchSize
	return &Batches{x: x, y: y, batchSize: batchSize, count: count}
}

// Len returns the number of batches.
func (b *Batches) Len() int { return b.count }

// At returns the i'th batch's X and Y slices as views over the
// original backing storage (no copy).
func (b *Batches) At(i int) (tensor.View[float32, dims.D2], tensor.View[float32, dims.D2]) {
	start := i * b.batchSize
	end := start + b.batchSize
	total := b.x.Dims().N0
	if end > total {
		end = total
	}
	n := end - start

	xCols := b.x.Dims().N1
	yCols := b.y.Dims().N1
	xSlice := b.x.Slice()[start*xCols : end*xCols]
	ySlice := b.y.Slice()[start*yCols : end*yCols]

	return tensor.NewView(xSlice, dims.D2{N0: n, N1: xCols}), tensor.NewView(ySlice, dims.D2{N0: n, N1: yCols})
}

// ParamRange is a small hyperparameter sweep range, recovered from the
// original implementation's hyperparameter-optimization module. nnrun
// has no HPO subsystem (out of scope); this is just enough to give a
// caller-driven grid/random search over e.g. learning rate a home.
type ParamRange struct {
	Min, Max float64
}

// Sample draws a uniform value in [Min, Max) using rng.
func (p ParamRange) Sample(rng *rand.Rand) float64 {
	return p.Min + rng.Float64()*(p.Max-p.Min)
}
