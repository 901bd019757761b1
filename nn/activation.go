package nn

import "github.com/ollama/nnrun/backend"

// Activation names the per-layer non-linearity. Each variant maps to a
// matching pair of backend kernels: one producing the activated
// output from the pre-activation, one propagating the upstream error
// back through it.
type Activation int

const (
	ActivationSigmoid Activation = iota
	ActivationSoftmax
	ActivationLeakyReLU
)

func (a Activation) String() string {
	switch a {
	case ActivationSigmoid:
		return "sigmoid"
	case ActivationSoftmax:
		return "softmax"
	case ActivationLeakyReLU:
		return "leaky_relu"
	default:
		return "unknown"
	}
}

// leakyReLUAlpha is the negative-slope coefficient used whenever a
// layer's activation is ActivationLeakyReLU.
const leakyReLUAlpha = 0.01

func applyActivation(be backend.Backend, a Activation, in backend.TensorRef2, out backend.Tensor2) error {
	switch a {
	case ActivationSigmoid:
		return be.Sigmoid2(in, out)
	case ActivationSoftmax:
		return be.Softmax2(in, out)
	case ActivationLeakyReLU:
		return be.LeakyReLU2(leakyReLUAlpha, in, out)
	default:
		panic("nn: unknown activation")
	}
}

// activationError propagates derr backward through the activation
// that produced activated from a pre-activation; activated is the
// forward output (sigmoid/softmax need it, leaky-ReLU needs the
// pre-activation instead, which callers pass as preact).
func activationError(be backend.Backend, a Activation, activated, preact, derr backend.TensorRef2, out backend.Tensor2) error {
	switch a {
	case ActivationSigmoid:
		return be.SigmoidError2(activated, derr, out)
	case ActivationSoftmax:
		return be.SoftmaxError2(activated, derr, out)
	case ActivationLeakyReLU:
		return be.LeakyReLUError2(leakyReLUAlpha, preact, derr, out)
	default:
		panic("nn: unknown activation")
	}
}
