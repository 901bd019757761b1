package nn

import (
	"fmt"
	"math/rand"

	"github.com/ollama/nnrun/backend"
	"github.com/ollama/nnrun/dims"
)

// LayerSpec describes one layer to be built: its output width and
// activation. The input width of layer i is the output width of
// layer i-1 (or the net's input size for layer 0).
type LayerSpec struct {
	Size       int
	Activation Activation
}

// Net is an ordered, non-empty list of Dense layers with matching
// inner sizes, built once and never reallocated during training —
// only logical batch extents change, always within the capacity the
// builder sized scratch buffers for.
type Net struct {
	be      backend.Backend
	layers  []*Dense
	inputSz int

	errOut        backend.Tensor1    // per-sample loss, batch-sized
	lossDerr      backend.Tensor2    // dE/dOutput, batch-sized at last layer's width
	interLayerErr []backend.Tensor2 // input-error scratch between layer i-1 and i, one per interior boundary
}

// Builder accumulates LayerSpecs before Build validates and
// constructs the net, mirroring the teacher's builder-returns-struct
// pattern rather than a fluent API that can panic mid-chain.
type Builder struct {
	be          backend.Backend
	inputSize   int
	initializer Initializer
	rng         *rand.Rand
	specs       []LayerSpec
}

// NewBuilder starts a net builder over be with the given input size.
// Use WithInitializer/WithRNG to override the defaults before adding
// layers and calling Build.
func NewBuilder(be backend.Backend, inputSize int) *Builder {
	return &Builder{
		be:          be,
		inputSize:   inputSize,
		initializer: DefaultInitializer{},
		rng:         rand.New(rand.NewSource(1)),
	}
}

func (b *Builder) WithInitializer(init Initializer) *Builder {
	b.initializer = init
	return b
}

func (b *Builder) WithRNG(rng *rand.Rand) *Builder {
	b.rng = rng
	return b
}

func (b *Builder) AddLayer(size int, activation Activation) *Builder {
	b.specs = append(b.specs, LayerSpec{Size: size, Activation: activation})
	return b
}

// Build validates the accumulated layer specs (at least two, all
// positive sizes) and constructs the net's layers and scratch
// buffers.
func (b *Builder) Build() (*Net, error) {
	if len(b.specs) < 2 {
		return nil, fmt.Errorf("nn: net requires at least 2 layers, got %d", len(b.specs))
	}

	layers := make([]*Dense, len(b.specs))
	fanIn := b.inputSize
	for i, spec := range b.specs {
		if spec.Size < 1 {
			return nil, fmt.Errorf("nn: layer %d has non-positive size %d", i, spec.Size)
		}
		weightCount := spec.Size * fanIn
		weights := b.initializer.Weights(spec.Activation, weightCount, i, fanIn, spec.Size, b.rng)
		biases := b.initializer.Biases(spec.Activation, spec.Size, i, fanIn, spec.Size, b.rng)
		layers[i] = newDense(b.be, fanIn, spec.Size, spec.Activation, weights, biases)
		fanIn = spec.Size
	}

	interLayerErr := make([]backend.Tensor2, len(layers)-1)
	for i := range interLayerErr {
		interLayerErr[i] = b.be.NewTensor2BatchSized(dims.D1{N0: layers[i].out})
	}

	return &Net{
		be:            b.be,
		layers:        layers,
		inputSz:       b.inputSize,
		errOut:        b.be.NewTensor1BatchSized(),
		lossDerr:      b.be.NewTensor2BatchSized(dims.D1{N0: layers[len(layers)-1].out}),
		interLayerErr: interLayerErr,
	}, nil
}

// OutputSize is the width of the net's last layer.
func (n *Net) OutputSize() int {
	return n.layers[len(n.layers)-1].out
}

// forward runs every layer in order, returning the final layer's
// output tensor (owned by the net; valid until the next forward
// call).
func (n *Net) forward(batch int, input backend.TensorRef2) (backend.Tensor2, error) {
	var out backend.Tensor2
	cur := input
	for _, layer := range n.layers {
		var err error
		out, err = layer.forward(n.be, batch, cur)
		if err != nil {
			return nil, err
		}
		cur = out
	}
	return out, nil
}

// backward computes the loss and propagates it through every layer in
// reverse, updating each layer's weights and biases in place.
func (n *Net) backward(batch int, input backend.TensorRef2, output backend.Tensor2, expected backend.TensorRef2, lr, momentum float64) (backend.Tensor1, error) {
	n.be.ResizeTensor1(n.errOut, dims.D1{N0: batch})
	n.be.ResizeTensor2(n.lossDerr, dims.D2{N0: batch, N1: n.OutputSize()})
	if err := n.be.MeanSquaredError2(output, expected, n.errOut, n.lossDerr); err != nil {
		return nil, err
	}

	curDerr := backend.TensorRef2(n.lossDerr)
	for i := len(n.layers) - 1; i >= 0; i-- {
		layer := n.layers[i]

		var layerInput backend.TensorRef2
		if i == 0 {
			layerInput = input
		} else {
			layerInput = n.layers[i-1].output
		}

		var inputError backend.Tensor2
		if i > 0 {
			inputError = n.interLayerErr[i-1]
			n.be.ResizeTensor2(inputError, dims.D2{N0: batch, N1: n.layers[i-1].out})
		}

		if err := layer.backprop(n.be, batch, layerInput, curDerr, inputError, lr, momentum); err != nil {
			return nil, err
		}
		if inputError != nil {
			curDerr = inputError
		}
	}

	return n.errOut, nil
}
