package tensor

import (
	"iter"

	"github.com/ollama/nnrun/dims"
)

// IterMajor2 yields, in order, the dims.D1 rows of v — a lazy,
// finite, non-restartable sequence whose concatenation reproduces
// v.Slice().
func IterMajor2[T Elem](v View[T, dims.D2]) iter.Seq[View[T, dims.D1]] {
	return func(yield func(View[T, dims.D1]) bool) {
		row := dims.RemoveMajor2(v.dims)
		stride := row.Len()
		for i := 0; i < v.dims.N0; i++ {
			sub := View[T, dims.D1]{data: v.data[i*stride : (i+1)*stride], dims: row}
			if !yield(sub) {
				return
			}
		}
	}
}

// IterMajor3 yields the dims.D2 major-axis slices of v.
func IterMajor3[T Elem](v View[T, dims.D3]) iter.Seq[View[T, dims.D2]] {
	return func(yield func(View[T, dims.D2]) bool) {
		sub := dims.RemoveMajor3(v.dims)
		stride := sub.Len()
		for i := 0; i < v.dims.N0; i++ {
			s := View[T, dims.D2]{data: v.data[i*stride : (i+1)*stride], dims: sub}
			if !yield(s) {
				return
			}
		}
	}
}

// IterMajorChunks2 yields rank-2 sub-views of v chunked by `chunk` rows
// along the major axis; the final chunk may be shorter.
func IterMajorChunks2[T Elem](v View[T, dims.D2], chunk int) iter.Seq[View[T, dims.D2]] {
	if chunk <= 0 {
		panic(shapeMismatch("IterMajorChunks2: chunk must be positive", chunk, 0))
	}
	return func(yield func(View[T, dims.D2]) bool) {
		rowLen := dims.RemoveMajor2(v.dims).Len()
		for i := 0; i < v.dims.N0; i += chunk {
			n := chunk
			if i+n > v.dims.N0 {
				n = v.dims.N0 - i
			}
			d := dims.WithMajor2(v.dims, n)
			s := View[T, dims.D2]{data: v.data[i*rowLen : (i+n)*rowLen], dims: d}
			if !yield(s) {
				return
			}
		}
	}
}

// IterMajorChunks3 yields rank-3 sub-views of v chunked by `chunk`
// along the major axis; the final chunk may be shorter.
func IterMajorChunks3[T Elem](v View[T, dims.D3], chunk int) iter.Seq[View[T, dims.D3]] {
	if chunk <= 0 {
		panic(shapeMismatch("IterMajorChunks3: chunk must be positive", chunk, 0))
	}
	return func(yield func(View[T, dims.D3]) bool) {
		sliceLen := dims.RemoveMajor3(v.dims).Len()
		for i := 0; i < v.dims.N0; i += chunk {
			n := chunk
			if i+n > v.dims.N0 {
				n = v.dims.N0 - i
			}
			d := dims.WithMajor3(v.dims, n)
			s := View[T, dims.D3]{data: v.data[i*sliceLen : (i+n)*sliceLen], dims: d}
			if !yield(s) {
				return
			}
		}
	}
}
