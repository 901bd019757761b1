package accel

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/ollama/nnrun/backend"
	"github.com/ollama/nnrun/backend/accel/device"
)

func checkSameShape2(op string, a, b backend.Tensor2) {
	if asTensor2(a).Dims() != asTensor2(b).Dims() {
		panic(fmt.Sprintf("accel: %s: shape mismatch %v vs %v", op, asTensor2(a).Dims(), asTensor2(b).Dims()))
	}
}

// enqueue runs fn on the queue once every event in wait has completed,
// releasing the caller's hold on wait (concatEventLists already
// retained each one) and updating out's event list to the new
// completion event.
func (b *Backend) enqueue(wait []*device.Event, out *eventList, fn func()) {
	e := b.queue.Enqueue(wait, fn)
	for _, ev := range wait {
		ev.Release()
	}
	out.replaceWithWrite(e)
}

// rowKernel is the cached closure type for every per-element or
// per-row program in this file: it walks src/dst row by row using
// each tensor's own stride, so one compiled kernel serves every
// logical shape that shares a tile size.
type rowKernel func(rows, cols int, strides []int, bufs [][]float32)

func compileRowKernel(name string, tileSize int, build func() rowKernel) (*program, error) {
	return globalKernelCache.compile(compileParams{programName: name, tileSize: tileSize}, func() (any, error) {
		return build(), nil
	})
}

func runRowKernel(k rowKernel, rows, cols int, ts ...*tensor2) {
	strides := make([]int, len(ts))
	bufs := make([][]float32, len(ts))
	var lockAll func(i int)
	lockAll = func(i int) {
		if i == len(ts) {
			k(rows, cols, strides, bufs)
			return
		}
		ts[i].buf.withLock(func(data []float32) {
			strides[i] = ts[i].stride()
			bufs[i] = data
			lockAll(i + 1)
		})
	}
	lockAll(0)
}

// AddAssign2 computes b <- alpha*a + beta*b, row by row against each
// buffer's own stride; beta==0 never reads b's prior contents.
func (be *Backend) AddAssign2(alpha float64, a backend.TensorRef2, beta float64, bb backend.Tensor2) error {
	checkSameShape2("add_assign", a, bb)
	ac := asTensor2(a)
	bc := asTensor2(bb)

	// alpha and beta are baked into the cached closure, so they are part
	// of the program name the cache keys on.
	prog, err := compileRowKernel(fmt.Sprintf("add_assign|alpha=%v|beta=%v", alpha, beta), be.tileSize, func() rowKernel {
		al, bt := float32(alpha), float32(beta)
		return func(rows, cols int, strides []int, bufs [][]float32) {
			as, bs := strides[0], strides[1]
			ad, bd := bufs[0], bufs[1]
			for r := 0; r < rows; r++ {
				arow := ad[r*as : r*as+cols]
				brow := bd[r*bs : r*bs+cols]
				for c := 0; c < cols; c++ {
					if bt == 0 {
						brow[c] = al * arow[c]
					} else {
						brow[c] = al*arow[c] + bt*brow[c]
					}
				}
			}
		}
	})
	if err != nil {
		return err
	}
	kernel := prog.fn.(rowKernel)

	wait := concatEventLists(ac.events, bc.events)
	be.enqueue(wait, bc.events, func() {
		runRowKernel(kernel, bc.rows, bc.cols, ac, bc)
	})
	return nil
}

// AddAssign1 computes b <- alpha*a + beta*b, the rank-1 analogue of
// AddAssign2 (used to update bias vectors during backprop).
func (be *Backend) AddAssign1(alpha float64, a backend.TensorRef1, beta float64, bb backend.Tensor1) error {
	ac := asTensor1(a)
	bc := asTensor1(bb)
	if ac.n != bc.n {
		panic(fmt.Sprintf("accel: add_assign: shape mismatch %v vs %v", ac.Dims(), bc.Dims()))
	}

	al, bt := float32(alpha), float32(beta)
	wait := concatEventLists(ac.events, bc.events)
	be.enqueue(wait, bc.events, func() {
		ac.buf.withLock(func(adata []float32) {
			bc.buf.withLock(func(bdata []float32) {
				for i := 0; i < bc.n; i++ {
					if bt == 0 {
						bdata[i] = al * adata[i]
					} else {
						bdata[i] = al*adata[i] + bt*bdata[i]
					}
				}
			})
		})
	})
	return nil
}

// ColumnSum reduces m's columns into v: v <- alpha*colsum(m) + beta*v.
func (be *Backend) ColumnSum(alpha float64, m backend.TensorRef2, beta float64, v backend.Tensor1) error {
	mc := asTensor2(m)
	vc := asTensor1(v)
	if mc.Dims().N1 != vc.Dims().N0 {
		panic(fmt.Sprintf("accel: column_sum: m has %d columns, v has %d elements", mc.Dims().N1, vc.Dims().N0))
	}

	wait := concatEventLists(mc.events, vc.events)
	e := be.queue.Enqueue(wait, func() {
		cols := mc.cols
		sums := make([]float32, cols)
		mc.buf.withLock(func(mdata []float32) {
			stride := mc.stride()
			for r := 0; r < mc.rows; r++ {
				row := mdata[r*stride : r*stride+cols]
				for c, x := range row {
					sums[c] += x
				}
			}
		})
		vc.buf.withLock(func(vdata []float32) {
			for c := 0; c < cols; c++ {
				scaled := float32(alpha) * sums[c]
				if beta == 0 {
					vdata[c] = scaled
				} else {
					vdata[c] = scaled + float32(beta)*vdata[c]
				}
			}
		})
	})
	for _, ev := range wait {
		ev.Release()
	}
	vc.events.replaceWithWrite(e)
	return nil
}

// Sigmoid2 applies the logistic function element-wise.
func (be *Backend) Sigmoid2(in backend.TensorRef2, out backend.Tensor2) error {
	checkSameShape2("sigmoid", in, out)
	ic := asTensor2(in)
	oc := asTensor2(out)

	prog, err := compileRowKernel("sigmoid", be.tileSize, func() rowKernel {
		return func(rows, cols int, strides []int, bufs [][]float32) {
			is, os := strides[0], strides[1]
			src, dst := bufs[0], bufs[1]
			for r := 0; r < rows; r++ {
				srow := src[r*is : r*is+cols]
				drow := dst[r*os : r*os+cols]
				for c, x := range srow {
					drow[c] = 1 / (1 + math32.Exp(-x))
				}
			}
		}
	})
	if err != nil {
		return err
	}
	kernel := prog.fn.(rowKernel)

	wait := concatEventLists(ic.events, oc.events)
	be.enqueue(wait, oc.events, func() {
		runRowKernel(kernel, oc.rows, oc.cols, ic, oc)
	})
	return nil
}

// SigmoidError2 computes out <- sigmoidOut*(1-sigmoidOut)*derr.
func (be *Backend) SigmoidError2(sigmoidOut backend.TensorRef2, derr backend.TensorRef2, out backend.Tensor2) error {
	checkSameShape2("sigmoid_error", sigmoidOut, out)
	checkSameShape2("sigmoid_error", derr, out)
	sc := asTensor2(sigmoidOut)
	dc := asTensor2(derr)
	oc := asTensor2(out)

	wait := concatEventLists(sc.events, dc.events, oc.events)
	be.enqueue(wait, oc.events, func() {
		cols, rows := oc.cols, oc.rows
		sc.buf.withLock(func(sdata []float32) {
			dc.buf.withLock(func(ddata []float32) {
				oc.buf.withLock(func(odata []float32) {
					ss, ds, os := sc.stride(), dc.stride(), oc.stride()
					for r := 0; r < rows; r++ {
						srow := sdata[r*ss : r*ss+cols]
						drow := ddata[r*ds : r*ds+cols]
						orow := odata[r*os : r*os+cols]
						for c := 0; c < cols; c++ {
							orow[c] = srow[c] * (1 - srow[c]) * drow[c]
						}
					}
				})
			})
		})
	})
	return nil
}

// LeakyReLU2 applies x -> x if x>=0 else alpha*x, element-wise.
func (be *Backend) LeakyReLU2(alpha float64, in backend.TensorRef2, out backend.Tensor2) error {
	checkSameShape2("leaky_relu", in, out)
	ic := asTensor2(in)
	oc := asTensor2(out)
	a := float32(alpha)

	wait := concatEventLists(ic.events, oc.events)
	be.enqueue(wait, oc.events, func() {
		cols, rows := oc.cols, oc.rows
		ic.buf.withLock(func(idata []float32) {
			oc.buf.withLock(func(odata []float32) {
				is, os := ic.stride(), oc.stride()
				for r := 0; r < rows; r++ {
					irow := idata[r*is : r*is+cols]
					orow := odata[r*os : r*os+cols]
					for c, x := range irow {
						if x >= 0 {
							orow[c] = x
						} else {
							orow[c] = a * x
						}
					}
				}
			})
		})
	})
	return nil
}

// LeakyReLUError2 computes out <- (in>=0 ? 1 : alpha) * derr.
func (be *Backend) LeakyReLUError2(alpha float64, in backend.TensorRef2, derr backend.TensorRef2, out backend.Tensor2) error {
	checkSameShape2("leaky_relu_error", in, out)
	checkSameShape2("leaky_relu_error", derr, out)
	ic := asTensor2(in)
	dc := asTensor2(derr)
	oc := asTensor2(out)
	a := float32(alpha)

	wait := concatEventLists(ic.events, dc.events, oc.events)
	be.enqueue(wait, oc.events, func() {
		cols, rows := oc.cols, oc.rows
		ic.buf.withLock(func(idata []float32) {
			dc.buf.withLock(func(ddata []float32) {
				oc.buf.withLock(func(odata []float32) {
					is, ds, os := ic.stride(), dc.stride(), oc.stride()
					for r := 0; r < rows; r++ {
						irow := idata[r*is : r*is+cols]
						drow := ddata[r*ds : r*ds+cols]
						orow := odata[r*os : r*os+cols]
						for c, x := range irow {
							if x >= 0 {
								orow[c] = drow[c]
							} else {
								orow[c] = a * drow[c]
							}
						}
					}
				})
			})
		})
	})
	return nil
}

// Softmax2 applies row-wise softmax, subtracting the per-row max
// before exponentiating.
func (be *Backend) Softmax2(in backend.TensorRef2, out backend.Tensor2) error {
	checkSameShape2("softmax", in, out)
	ic := asTensor2(in)
	oc := asTensor2(out)

	wait := concatEventLists(ic.events, oc.events)
	be.enqueue(wait, oc.events, func() {
		cols, rows := oc.cols, oc.rows
		ic.buf.withLock(func(idata []float32) {
			oc.buf.withLock(func(odata []float32) {
				is, os := ic.stride(), oc.stride()
				for r := 0; r < rows; r++ {
					irow := idata[r*is : r*is+cols]
					orow := odata[r*os : r*os+cols]

					max := irow[0]
					for _, x := range irow[1:] {
						if x > max {
							max = x
						}
					}
					var sum float32
					for c, x := range irow {
						e := math32.Exp(x - max)
						orow[c] = e
						sum += e
					}
					for c := range orow {
						orow[c] /= sum
					}
				}
			})
		})
	})
	return nil
}

// SoftmaxError2 forms, per row, the size×size softmax Jacobian
// J[i,j] = s_i*(delta_ij - s_j) and contracts it with the upstream
// error row.
func (be *Backend) SoftmaxError2(softmaxOut backend.TensorRef2, derr backend.TensorRef2, out backend.Tensor2) error {
	checkSameShape2("softmax_error", softmaxOut, out)
	checkSameShape2("softmax_error", derr, out)
	sc := asTensor2(softmaxOut)
	dc := asTensor2(derr)
	oc := asTensor2(out)

	wait := concatEventLists(sc.events, dc.events, oc.events)
	be.enqueue(wait, oc.events, func() {
		cols, rows := oc.cols, oc.rows
		jac := make([]float32, cols*cols)
		sc.buf.withLock(func(sdata []float32) {
			dc.buf.withLock(func(ddata []float32) {
				oc.buf.withLock(func(odata []float32) {
					ss, ds, os := sc.stride(), dc.stride(), oc.stride()
					for r := 0; r < rows; r++ {
						srow := sdata[r*ss : r*ss+cols]
						drow := ddata[r*ds : r*ds+cols]
						orow := odata[r*os : r*os+cols]

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
				})
			})
		})
	})
	return nil
}

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

	if errC.n != oc.rows {
		panic(fmt.Sprintf("accel: mean_squared_error: err has %d rows, expected %d", errC.n, oc.rows))
	}

	wait := concatEventLists(oc.events, ec.events, errC.events, derrC.events)
	e := be.queue.Enqueue(wait, func() {
		cols, rows := oc.cols, oc.rows
		oc.buf.withLock(func(odata []float32) {
			ec.buf.withLock(func(edata []float32) {
				derrC.buf.withLock(func(ddata []float32) {
					errC.buf.withLock(func(errdata []float32) {
						os, es, ds := oc.stride(), ec.stride(), derrC.stride()
						for r := 0; r < rows; r++ {
							orow := odata[r*os : r*os+cols]
							erow := edata[r*es : r*es+cols]
							drow := ddata[r*ds : r*ds+cols]

							var sum float32
							for c := range orow {
								diff := orow[c] - erow[c]
								drow[c] = diff
								sum += diff * diff
							}
							errdata[r] = sum / float32(cols)
						}
					})
				})
			})
		})
	})
	for _, ev := range wait {
		ev.Release()
	}
	e.Retain()
	errC.events.replaceWithWrite(e)
	derrC.events.replaceWithWrite(e)
	return nil
}

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
// and increments matrix[argmax(expected), argmax(out)].
func (be *Backend) AccumConfusionMatrixMulticlass(out backend.TensorRef2, expected backend.TensorRef2, matrix backend.Tensor2) error {
	checkSameShape2("accum_confusion_matrix", out, expected)
	oc := asTensor2(out)
	ec := asTensor2(expected)
	mc := asTensor2(matrix)

	classes := oc.cols
	if mc.rows != classes || mc.cols != classes {
		panic(fmt.Sprintf("accel: accum_confusion_matrix: matrix shape %v does not match class count %d", mc.Dims(), classes))
	}

	wait := concatEventLists(oc.events, ec.events, mc.events)
	be.enqueue(wait, mc.events, func() {
		oc.buf.withLock(func(odata []float32) {
			ec.buf.withLock(func(edata []float32) {
				mc.buf.withLock(func(mdata []float32) {
					os, es, ms := oc.stride(), ec.stride(), mc.stride()
					for r := 0; r < oc.rows; r++ {
						orow := odata[r*os : r*os+classes]
						erow := edata[r*es : r*es+classes]
						i := argmaxRow(erow)
						j := argmaxRow(orow)
						mdata[i*ms+j]++
					}
				})
			})
		})
	})
	return nil
}
