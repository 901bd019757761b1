package cpu

import (
	"fmt"

	"github.com/ollama/nnrun/backend"
)

// MeanSquaredError2 computes, per row, the mean squared error between
// out and expected into errOut and the element-wise derivative
// out-expected into derrOut.
func (be *Backend) MeanSquaredError2(out backend.TensorRef2, expected backend.TensorRef2, errOut backend.Tensor1, derrOut backend.Tensor2) error {
	checkSameShape2("mean_squared_error", out, expected)
	checkSameShape2("mean_squared_error", out, derrOut)

	oc := asTensor2(out)
	ec := asTensor2(expected)
	errC := asTensor1(errOut)
	derrC := asTensor2(derrOut)

	if errC.Dims().N0 != oc.Dims().N0 {
		panic(fmt.Sprintf("cpu: mean_squared_error: err has %d rows, expected %d", errC.Dims().N0, oc.Dims().N0))
	}

	cols := oc.Dims().N1
	o := oc.Slice()
	e := ec.Slice()
	derr := derrC.MutSlice()
	errs := errC.MutSlice()

	for r := 0; r < oc.Dims().N0; r++ {
		orow := o[r*cols : (r+1)*cols]
		erow := e[r*cols : (r+1)*cols]
		drow := derr[r*cols : (r+1)*cols]

		var sum float32
		for i := range orow {
			diff := orow[i] - erow[i]
			drow[i] = diff
			sum += diff * diff
		}
		errs[r] = sum / float32(cols)
	}
	return nil
}
