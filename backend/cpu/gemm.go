package cpu

import (
	"fmt"

	"github.com/ollama/nnrun/backend"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// Matmul computes c <- alpha*op(a)*op(b) + beta*c via gonum's BLAS32
// Sgemm, which accepts explicit row strides so transposed operands
// never need to be copied.
func (be *Backend) Matmul(alpha float64, a backend.TensorRef2, ta bool, b backend.TensorRef2, tb bool, beta float64, c backend.Tensor2) error {
	ac := asTensor2(a)
	bc := asTensor2(b)
	cc := asTensor2(c)

	ad, bd, cd := ac.Dims(), bc.Dims(), cc.Dims()

	inner := ad.N1
	aRows, aCols := ad.N0, ad.N1
	aTrans := blas.NoTrans
	if ta {
		inner = ad.N0
		aRows, aCols = ad.N1, ad.N0
		aTrans = blas.Trans
	}

	bInner := bd.N0
	bRows, bCols := bd.N0, bd.N1
	bTrans := blas.NoTrans
	if tb {
		bInner = bd.N1
		bRows, bCols = bd.N1, bd.N0
		bTrans = blas.Trans
	}

	if inner != bInner {
		panic(fmt.Sprintf("cpu: matmul: contracted dims disagree: op(a) has %d cols, op(b) has %d rows", inner, bInner))
	}
	if cd.N0 != aRows || cd.N1 != bCols {
		panic(fmt.Sprintf("cpu: matmul: output shape [%d, %d] does not match op(a)*op(b) shape [%d, %d]", cd.N0, cd.N1, aRows, bCols))
	}

	aGen := blas32.General{Rows: ad.N0, Cols: ad.N1, Stride: ad.N1, Data: ac.Slice()}
	bGen := blas32.General{Rows: bd.N0, Cols: bd.N1, Stride: bd.N1, Data: bc.Slice()}
	cGen := blas32.General{Rows: cd.N0, Cols: cd.N1, Stride: cd.N1, Data: cc.MutSlice()}

	blas32.Implementation().Sgemm(aTrans, bTrans, aRows, bCols, inner, float32(alpha), aGen.Data, aGen.Stride, bGen.Data, bGen.Stride, float32(beta), cGen.Data, cGen.Stride)
	return nil
}
