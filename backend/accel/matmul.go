package accel

import (
	"fmt"

	"github.com/ollama/nnrun/backend"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// gemmKernel is the concrete type cached for the "gemm" program: the
// same shape contract as gonum's Sgemm, specialized against one
// (tileSize) combination so the cache can hand back a validated,
// pre-checked closure instead of re-deriving trans flags every call.
type gemmKernel func(aTrans, bTrans blas.Transpose, m, n, k int, alpha float32, a []float32, lda int, b []float32, ldb int, beta float32, c []float32, ldc int)

func compileGemm(tileSize int) (*program, error) {
	return globalKernelCache.compile(compileParams{programName: "gemm", tileSize: tileSize}, func() (any, error) {
		var fn gemmKernel = func(aTrans, bTrans blas.Transpose, m, n, k int, alpha float32, a []float32, lda int, b []float32, ldb int, beta float32, c []float32, ldc int) {
			blas32.Implementation().Sgemm(aTrans, bTrans, m, n, k, alpha, a, lda, b, ldb, beta, c, ldc)
		}
		return fn, nil
	})
}

// Matmul computes c <- alpha*op(a)*op(b) + beta*c. Buffers are padded
// to the tile size, so the GEMM runs against each operand's real
// stride (bufCol) rather than its logical column count — the padding
// columns simply never get read past what op() needs.
func (b *Backend) Matmul(alpha float64, a backend.TensorRef2, ta bool, bb backend.TensorRef2, tb bool, beta float64, c backend.Tensor2) error {
	ac := asTensor2(a)
	bc := asTensor2(bb)
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
	_ = aCols

	bInner := bd.N0
	bRows, bCols := bd.N0, bd.N1
	bTrans := blas.NoTrans
	if tb {
		bInner = bd.N1
		bRows, bCols = bd.N1, bd.N0
		bTrans = blas.Trans
	}
	_ = bRows

	if inner != bInner {
		panic(fmt.Sprintf("accel: matmul: contracted dims disagree: op(a) has %d cols, op(b) has %d rows", inner, bInner))
	}
	if cd.N0 != aRows || cd.N1 != bCols {
		panic(fmt.Sprintf("accel: matmul: output shape [%d, %d] does not match op(a)*op(b) shape [%d, %d]", cd.N0, cd.N1, aRows, bCols))
	}

	prog, err := compileGemm(b.tileSize)
	if err != nil {
		return err
	}
	kernel := prog.fn.(gemmKernel)

	wait := concatEventLists(ac.events, bc.events, cc.events)
	e := b.queue.Enqueue(wait, func() {
		ac.buf.withLock(func(adata []float32) {
			bc.buf.withLock(func(bdata []float32) {
				cc.buf.withLock(func(cdata []float32) {
					kernel(aTrans, bTrans, aRows, bCols, inner, float32(alpha), adata, ac.stride(), bdata, bc.stride(), float32(beta), cdata, cc.stride())
				})
			})
		})
	})
	for _, ev := range wait {
		ev.Release()
	}
	cc.events.replaceWithWrite(e)
	return nil
}
