package cpu

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/ollama/nnrun/backend"
	"gorgonia.org/vecf32"
)

func checkSameShape2(op string, a, b backend.Tensor2) {
	if asTensor2(a).Dims() != asTensor2(b).Dims() {
		panic(fmt.Sprintf("cpu: %s: shape mismatch %v vs %v", op, asTensor2(a).Dims(), asTensor2(b).Dims()))
	}
}

// AddAssign2 computes b <- alpha*a + beta*b using vecf32's in-place
// slice kernels: scale a fresh copy of a by alpha, scale b by beta,
// then accumulate.
func (be *Backend) AddAssign2(alpha float64, a backend.TensorRef2, beta float64, b backend.Tensor2) error {
	checkSameShape2("add_assign", a, b)
	ac := asTensor2(a)
	bc := asTensor2(b)

	scaledA := append([]float32(nil), ac.Slice()...)
	vecf32.Scale(float32(alpha), scaledA)

	if beta == 0 {
		copy(bc.MutSlice(), scaledA)
		return nil
	}

	vecf32.Scale(float32(beta), bc.MutSlice())
	vecf32.Add(bc.MutSlice(), scaledA)
	return nil
}

// AddAssign1 computes b <- alpha*a + beta*b, the rank-1 analogue of
// AddAssign2 (used to update bias vectors during backprop).
func (be *Backend) AddAssign1(alpha float64, a backend.TensorRef1, beta float64, b backend.Tensor1) error {
	ac := asTensor1(a)
	bc := asTensor1(b)
	if ac.Dims() != bc.Dims() {
		panic(fmt.Sprintf("cpu: add_assign: shape mismatch %v vs %v", ac.Dims(), bc.Dims()))
	}

	scaledA := append([]float32(nil), ac.Slice()...)
	vecf32.Scale(float32(alpha), scaledA)

	if beta == 0 {
		copy(bc.MutSlice(), scaledA)
		return nil
	}

	vecf32.Scale(float32(beta), bc.MutSlice())
	vecf32.Add(bc.MutSlice(), scaledA)
	return nil
}

// ColumnSum reduces m's columns into v: v <- alpha*colsum(m) + beta*v.
func (be *Backend) ColumnSum(alpha float64, m backend.TensorRef2, beta float64, v backend.Tensor1) error {
	mc := asTensor2(m)
	vc := asTensor1(v)
	if mc.Dims().N1 != vc.Dims().N0 {
		panic(fmt.Sprintf("cpu: column_sum: m has %d columns, v has %d elements", mc.Dims().N1, vc.Dims().N0))
	}

	cols := mc.Dims().N1
	sums := make([]float32, cols)
	data := mc.Slice()
	for r := 0; r < mc.Dims().N0; r++ {
		row := data[r*cols : (r+1)*cols]
		for c, x := range row {
			sums[c] += x
		}
	}

	out := vc.MutSlice()
	for c := range out {
		scaled := float32(alpha) * sums[c]
		if beta == 0 {
			out[c] = scaled
		} else {
			out[c] = scaled + float32(beta)*out[c]
		}
	}
	return nil
}

// Sigmoid2 applies the logistic function element-wise.
func (be *Backend) Sigmoid2(in backend.TensorRef2, out backend.Tensor2) error {
	checkSameShape2("sigmoid", in, out)
	src := asTensor2(in).Slice()
	dst := asTensor2(out).MutSlice()
	for i, x := range src {
		dst[i] = 1 / (1 + math32.Exp(-x))
	}
	return nil
}

// SigmoidError2 computes out <- sigmoidOut*(1-sigmoidOut)*derr, the
// elementwise derivative of the logistic function chained with the
// upstream error.
func (be *Backend) SigmoidError2(sigmoidOut backend.TensorRef2, derr backend.TensorRef2, out backend.Tensor2) error {
	checkSameShape2("sigmoid_error", sigmoidOut, out)
	checkSameShape2("sigmoid_error", derr, out)
	s := asTensor2(sigmoidOut).Slice()
	d := asTensor2(derr).Slice()
	dst := asTensor2(out).MutSlice()
	for i := range dst {
		dst[i] = s[i] * (1 - s[i]) * d[i]
	}
	return nil
}

// LeakyReLU2 applies x -> x if x>=0 else alpha*x, element-wise.
func (be *Backend) LeakyReLU2(alpha float64, in backend.TensorRef2, out backend.Tensor2) error {
	checkSameShape2("leaky_relu", in, out)
	src := asTensor2(in).Slice()
	dst := asTensor2(out).MutSlice()
	a := float32(alpha)
	for i, x := range src {
		if x >= 0 {
			dst[i] = x
		} else {
			dst[i] = a * x
		}
	}
	return nil
}

// LeakyReLUError2 computes out <- (in>=0 ? 1 : alpha) * derr.
func (be *Backend) LeakyReLUError2(alpha float64, in backend.TensorRef2, derr backend.TensorRef2, out backend.Tensor2) error {
	checkSameShape2("leaky_relu_error", in, out)
	checkSameShape2("leaky_relu_error", derr, out)
	src := asTensor2(in).Slice()
	d := asTensor2(derr).Slice()
	dst := asTensor2(out).MutSlice()
	a := float32(alpha)
	for i, x := range src {
		if x >= 0 {
			dst[i] = d[i]
		} else {
			dst[i] = a * d[i]
		}
	}
	return nil
}
