package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// Initializer produces a layer's initial weights and biases. layerType
// names the activation (for initializers that want to specialize per
// non-linearity), layerIndex is the layer's position in the net,
// fanIn/fanOut are the layer's input/output widths.
type Initializer interface {
	Weights(layerType Activation, weightCount, layerIndex, fanIn, fanOut int, rng *rand.Rand) []float32
	Biases(layerType Activation, biasCount, layerIndex, fanIn, fanOut int, rng *rand.Rand) []float32
}

// DefaultInitializer draws weights from Normal(0, sqrt(2/(fanIn+fanOut)))
// (a Glorot/Xavier-style fan-in/fan-out normal) and sets every bias to
// zero, matching the network engine's default described in the
// construction spec.
type DefaultInitializer struct{}

func (DefaultInitializer) Weights(_ Activation, weightCount, _, fanIn, fanOut int, rng *rand.Rand) []float32 {
	std := math.Sqrt(2 / float64(fanIn+fanOut))
	dist := distuv.Normal{Mu: 0, Sigma: std, Src: rng}
	out := make([]float32, weightCount)
	for i := range out {
		out[i] = float32(dist.Rand())
	}
	return out
}

func (DefaultInitializer) Biases(_ Activation, biasCount, _, _, _ int, _ *rand.Rand) []float32 {
	return make([]float32, biasCount)
}
