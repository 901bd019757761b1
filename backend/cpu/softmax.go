package cpu

import (
	"github.com/chewxy/math32"
	"github.com/ollama/nnrun/backend"
)

// Softmax2 applies row-wise softmax, subtracting the per-row maximum
// before exponentiating to avoid overflow.
func (be *Backend) Softmax2(in backend.TensorRef2, out backend.Tensor2) error {
	checkSameShape2("softmax", in, out)
	ic := asTensor2(in)
	oc := asTensor2(out)
	cols := ic.Dims().N1
	src := ic.Slice()
	dst := oc.MutSlice()

	for r := 0; r < ic.Dims().N0; r++ {
		row := src[r*cols : (r+1)*cols]
		orow := dst[r*cols : (r+1)*cols]

		max := row[0]
		for _, x := range row[1:] {
			if x > max {
				max = x
			}
		}
		var sum float32
		for i, x := range row {
			e := math32.Exp(x - max)
			orow[i] = e
			sum += e
		}
		for i := range orow {
			orow[i] /= sum
		}
	}
	return nil
}

// SoftmaxError2 forms, per row, the size×size softmax Jacobian
// J[i,j] = s_i*(delta_ij - s_j) and contracts it with the upstream
// error row: out_j = sum_i derr_i * J[i,j].
func (be *Backend) SoftmaxError2(softmaxOut backend.TensorRef2, derr backend.TensorRef2, out backend.Tensor2) error {
	checkSameShape2("softmax_error", softmaxOut, out)
	checkSameShape2("softmax_error", derr, out)
	sc := asTensor2(softmaxOut)
	dc := asTensor2(derr)
	oc := asTensor2(out)
	cols := sc.Dims().N1

	s := sc.Slice()
	d := dc.Slice()
	o := oc.MutSlice()

	jac := make([]float32, cols*cols)
	for r := 0; r < sc.Dims().N0; r++ {
		srow := s[r*cols : (r+1)*cols]
		drow := d[r*cols : (r+1)*cols]
		orow := o[r*cols : (r+1)*cols]

		for i := 0; i < cols; i++ {
			for j := 0; j < cols; j++ {
				delta := float32(0)
				if i == j {
					delta = 1
				}
				jac[i*cols+j] = srow[i] * (delta - srow[j])
			}
		}
		for j := 0; j < cols; j++ {
			var acc float32
			for i := 0; i < cols; i++ {
				acc += drow[i] * jac[i*cols+j]
			}
			orow[j] = acc
		}
	}
	return nil
}
