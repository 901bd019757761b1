package tensor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ollama/nnrun/dims"
)

// DumpOptions configures Dump's elision behavior.
type DumpOptions func(*dumpOptions)

// DumpWithPrecision sets the number of decimal places printed.
func DumpWithPrecision(n int) DumpOptions {
	return func(o *dumpOptions) { o.Precision = n }
}

// DumpWithThreshold sets the element count at or below which the whole
// tensor is printed, skipping elision entirely.
func DumpWithThreshold(n int) DumpOptions {
	return func(o *dumpOptions) { o.Threshold = n }
}

// DumpWithEdgeItems sets how many elements print at the start and end
// of each axis once elision kicks in.
func DumpWithEdgeItems(n int) DumpOptions {
	return func(o *dumpOptions) { o.EdgeItems = n }
}

type dumpOptions struct {
	Precision, Threshold, EdgeItems int
}

// Dump renders v as a nested-bracket string, eliding the middle of any
// axis once the element count exceeds the threshold, and reports the
// element type and dims in a footer. No tensor above the threshold is
// ever fully serialized.
func Dump[T Elem](v View[T, dims.D3], typeName string, optsFuncs ...DumpOptions) string {
	opts := dumpOptions{Precision: 4, Threshold: 1000, EdgeItems: 3}
	for _, f := range optsFuncs {
		f(&opts)
	}
	if v.Len() <= opts.Threshold {
		opts.EdgeItems = v.Len()
	}

	shape := []int{v.dims.N0, v.dims.N1, v.dims.N2}
	var sb strings.Builder
	dumpAxis(&sb, v.data, shape, stridesOf(shape), opts.EdgeItems, func(x T) string {
		return strconv.FormatFloat(float64(x), 'f', opts.Precision, 64)
	})
	fmt.Fprintf(&sb, " {%s %s}", typeName, dims.D3{N0: shape[0], N1: shape[1], N2: shape[2]})
	return sb.String()
}

// ToRank3View1 reinterprets a rank-1 view as rank-3 with leading ones,
// the canonical form Dump (and backend kernels) operate against.
func ToRank3View1[T Elem](v View[T, dims.D1]) View[T, dims.D3] {
	return View[T, dims.D3]{data: v.data, dims: dims.ToRank3D1(v.dims)}
}

// ToRank3View2 reinterprets a rank-2 view as rank-3.
func ToRank3View2[T Elem](v View[T, dims.D2]) View[T, dims.D3] {
	return View[T, dims.D3]{data: v.data, dims: dims.ToRank3D2(v.dims)}
}

// ToRank3View3 is the identity conversion, provided so callers can
// canonicalize any rank uniformly.
func ToRank3View3[T Elem](v View[T, dims.D3]) View[T, dims.D3] {
	return v
}

func stridesOf(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}

func dumpAxis[T any](sb *strings.Builder, data []T, shape, strides []int, items int, fmtFn func(T) string) {
	sb.WriteString("[")
	defer sb.WriteString("]")

	n := shape[0]
	for i := 0; i < n; i++ {
		if i >= items && i < n-items {
			sb.WriteString("..., ")
			i = n - items - 1
			continue
		}
		if len(shape) == 1 {
			sb.WriteString(fmtFn(data[i]))
		} else {
			off := i * strides[0]
			dumpAxis(sb, data[off:off+strides[0]], shape[1:], strides[1:], items, fmtFn)
		}
		if i < n-1 {
			sb.WriteString(", ")
		}
	}
}
