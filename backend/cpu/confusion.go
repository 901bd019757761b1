package cpu

import (
	"fmt"

	"github.com/ollama/nnrun/backend"
)

func argmaxRow(row []float32) int {
	best := 0
	for i, x := range row {
		if x > row[best] {
			best = i
		}
	}
	return best
}

// AccumConfusionMatrixMulticlass argmaxes each row of out and expected
// and increments matrix[argmax(expected), argmax(out)]. Calling it
// twice with the same inputs doubles the matrix.
func (be *Backend) AccumConfusionMatrixMulticlass(out backend.TensorRef2, expected backend.TensorRef2, matrix backend.Tensor2) error {
	checkSameShape2("accum_confusion_matrix", out, expected)
	oc := asTensor2(out)
	ec := asTensor2(expected)
	mc := asTensor2(matrix)

	classes := oc.Dims().N1
	if mc.Dims().N0 != classes || mc.Dims().N1 != classes {
		panic(fmt.Sprintf("cpu: accum_confusion_matrix: matrix shape %v does not match class count %d", mc.Dims(), classes))
	}

	o := oc.Slice()
	e := ec.Slice()
	m := mc.MutSlice()

	for r := 0; r < oc.Dims().N0; r++ {
		orow := o[r*classes : (r+1)*classes]
		erow := e[r*classes : (r+1)*classes]
		i := argmaxRow(erow)
		j := argmaxRow(orow)
		m[i*classes+j]++
	}
	return nil
}
