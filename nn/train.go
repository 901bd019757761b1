package nn

import (
	"math/rand"

	"github.com/ollama/nnrun/backend"
	"github.com/ollama/nnrun/dims"
	"github.com/ollama/nnrun/tensor"
)

// Scorer observes every trained batch's output against its expected
// values. NoopScorer discards everything; score.MulticlassScorer
// accumulates a confusion matrix.
type Scorer interface {
	ProcessBatch(be backend.Backend, output backend.TensorRef2, expected backend.TensorRef2) error
}

// NoopScorer implements Scorer by doing nothing, the default when the
// caller only cares about the loss trajectory.
type NoopScorer struct{}

func (NoopScorer) ProcessBatch(backend.Backend, backend.TensorRef2, backend.TensorRef2) error { return nil }

// TrainBatch runs one forward + one backward pass over a single batch
// already resident on the backend, and returns the batch's per-sample
// error and output as host-side views through the net's output
// adaption buffers.
func (n *Net) TrainBatch(x, y backend.TensorRef2, lr, momentum float64, scorer Scorer) (errOut tensor.View[float32, dims.D1], output tensor.View[float32, dims.D2], err error) {
	batch := x.Dims().N0

	out, err := n.forward(batch, x)
	if err != nil {
		return errOut, output, err
	}
	errTensor, err := n.backward(batch, x, out, y, lr, momentum)
	if err != nil {
		return errOut, output, err
	}
	if scorer != nil {
		if err := scorer.ProcessBatch(n.be, out, y); err != nil {
			return errOut, output, err
		}
	}

	errBuf := n.be.NewOutputAdaptionBuffer1(batch)
	outBuf := n.be.NewOutputAdaptionBuffer2(batch, dims.D1{N0: n.OutputSize()})
	return n.be.AdaptOutput1(errBuf, errTensor), n.be.AdaptOutput2(outBuf, out), nil
}

// Train splits x/y into batches of the backend's max batch size,
// uploads each batch through input adaption buffers, shuffles batch
// order every epoch using rng, and trains on every batch. It flushes
// after every batch and syncs after every epoch, per the backend
// synchronization contract.
func (n *Net) Train(rng *rand.Rand, x, y tensor.View[float32, dims.D2], numEpochs int, lr, momentum float64, scorer Scorer) error {
	maxBatch := n.be.MaxBatchSize()
	inputWidth := dims.D1{N0: x.Dims().N1}
	outputWidth := dims.D1{N0: y.Dims().N1}

	batches := NewBatches(x, y, maxBatch)

	inBufX := n.be.NewInputAdaptionBuffer2(maxBatch, inputWidth)
	inBufY := n.be.NewInputAdaptionBuffer2(maxBatch, outputWidth)

	order := make([]int, batches.Len())
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < numEpochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		for _, idx := range order {
			bx, by := batches.At(idx)

			xRef := n.be.AdaptInput2(inBufX, bx)
			yRef := n.be.AdaptInput2(inBufY, by)

			if _, _, err := n.TrainBatch(xRef, yRef, lr, momentum, scorer); err != nil {
				return err
			}
			if err := n.be.Flush(); err != nil {
				return err
			}
		}
		if err := n.be.Sync(); err != nil {
			return err
		}
	}
	return nil
}

// Predict runs a forward pass only (no loss, no weight update) and
// returns the output as a host view.
func (n *Net) Predict(x backend.TensorRef2) (tensor.View[float32, dims.D2], error) {
	batch := x.Dims().N0
	out, err := n.forward(batch, x)
	if err != nil {
		var zero tensor.View[float32, dims.D2]
		return zero, err
	}
	outBuf := n.be.NewOutputAdaptionBuffer2(batch, dims.D1{N0: n.OutputSize()})
	return n.be.AdaptOutput2(outBuf, out), nil
}
