package nn

import (
	"github.com/ollama/nnrun/backend"
	"github.com/ollama/nnrun/dims"
	"github.com/ollama/nnrun/tensor"
)

// layerTraining holds the buffers only needed once a layer has been
// backpropagated through at least once: activation error, weight
// error (with momentum carried across calls), and bias error.
type layerTraining struct {
	activationError backend.Tensor2
	weightError     backend.Tensor2
	biasError       backend.Tensor1
}

// Dense is a fully-connected layer: weights W(out×in), bias b(out), a
// scratch pre-activation/activation buffer sized for the net's
// maximum batch, and an activation function. Training buffers are
// allocated lazily on first Backprop, matching the spec's "allocated
// on first backprop" lifecycle.
type Dense struct {
	in, out    int
	activation Activation

	weights backend.Tensor2
	bias    backend.Tensor1
	preact  backend.Tensor2 // A = X.W^T, pre-activation
	output  backend.Tensor2 // activation(A)

	training *layerTraining
}

func newDense(be backend.Backend, in, out int, activation Activation, weights []float32, biases []float32) *Dense {
	d := &Dense{in: in, out: out, activation: activation}
	d.weights = be.NewTensor2FromHost(tensor.NewView(weights, dims.D2{N0: out, N1: in}))
	d.bias = be.NewTensor1FromHost(tensor.NewView(biases, dims.D1{N0: out}))
	d.preact = be.NewTensor2BatchSized(dims.D1{N0: out})
	d.output = be.NewTensor2BatchSized(dims.D1{N0: out})
	return d
}

// forward resizes the layer's scratch buffers to batch rows, computes
// A <- input . W^T (no bias added, see the network engine's design
// notes), and applies the activation into Dense.output.
func (d *Dense) forward(be backend.Backend, batch int, input backend.TensorRef2) (backend.Tensor2, error) {
	be.ResizeTensor2(d.preact, dims.D2{N0: batch, N1: d.out})
	be.ResizeTensor2(d.output, dims.D2{N0: batch, N1: d.out})

	if err := be.Matmul(1, input, false, d.weights, true, 0, d.preact); err != nil {
		return nil, err
	}
	if err := applyActivation(be, d.activation, d.preact, d.output); err != nil {
		return nil, err
	}
	return d.output, nil
}

func (d *Dense) ensureTraining(be backend.Backend, maxBatch int) *layerTraining {
	if d.training != nil {
		return d.training
	}
	d.training = &layerTraining{
		activationError: be.NewTensor2BatchSized(dims.D1{N0: d.out}),
		weightError:     be.NewTensor2Exact(dims.D2{N0: d.out, N1: d.in}),
		biasError:       be.NewTensor1Exact(dims.D1{N0: d.out}),
	}
	return d.training
}

// backprop computes this layer's weight/bias update from the upstream
// error derr, optionally writing the error to propagate to the
// previous layer into inputError (nil for the first layer).
func (d *Dense) backprop(be backend.Backend, batch int, input backend.TensorRef2, derr backend.TensorRef2, inputError backend.Tensor2, lr, momentum float64) error {
	tr := d.ensureTraining(be, batch)
	be.ResizeTensor2(tr.activationError, dims.D2{N0: batch, N1: d.out})

	if err := activationError(be, d.activation, d.output, d.preact, derr, tr.activationError); err != nil {
		return err
	}

	if inputError != nil {
		if err := be.Matmul(1, tr.activationError, false, d.weights, false, 0, inputError); err != nil {
			return err
		}
	}

	if err := be.Matmul(lr, tr.activationError, true, input, false, momentum, tr.weightError); err != nil {
		return err
	}
	if err := be.ColumnSum(lr, tr.activationError, momentum, tr.biasError); err != nil {
		return err
	}

	if err := be.AddAssign2(-1, tr.weightError, 1, d.weights); err != nil {
		return err
	}
	if err := be.AddAssign1(-1, tr.biasError, 1, d.bias); err != nil {
		return err
	}
	return nil
}
