// Package dims defines the dimension tags used to encode a tensor's rank
// in its Go type. A tag is one of D0, D1, D2, D3 — there is no generic
// rank arithmetic; rank-changing helpers are named per source/destination
// arity instead, the same way ml/backend/ggml switches on len(shape).
package dims

import "fmt"

// Shape is implemented by every dimension tag. Len is the total element
// count the tag describes.
type Shape interface {
	Len() int
}

// D0 is the rank-0 tag: a single scalar slot.
type D0 struct{}

func (D0) Len() int { return 1 }

func (D0) String() string { return "[]" }

// D1 is the rank-1 tag.
type D1 struct {
	N0 int
}

func (d D1) Len() int { return d.N0 }

func (d D1) String() string { return fmt.Sprintf("[%d]", d.N0) }

// Major is the (only, outermost) extent.
func (d D1) Major() int { return d.N0 }

// Minor is the (only, innermost) extent.
func (d D1) Minor() int { return d.N0 }

// D2 is the rank-2 tag. N0 is the major (row) extent, N1 the minor
// (column) extent.
type D2 struct {
	N0, N1 int
}

func (d D2) Len() int { return d.N0 * d.N1 }

func (d D2) String() string { return fmt.Sprintf("[%d, %d]", d.N0, d.N1) }

func (d D2) Major() int { return d.N0 }

func (d D2) Minor() int { return d.N1 }

// D3 is the rank-3 tag.
type D3 struct {
	N0, N1, N2 int
}

func (d D3) Len() int { return d.N0 * d.N1 * d.N2 }

func (d D3) String() string { return fmt.Sprintf("[%d, %d, %d]", d.N0, d.N1, d.N2) }

func (d D3) Major() int { return d.N0 }

func (d D3) Minor() int { return d.N2 }

// RemoveMajor1 drops the only axis of a rank-1 tag, yielding rank-0.
func RemoveMajor1(d D1) D0 { return D0{} }

// RemoveMajor2 drops the major axis of a rank-2 tag, yielding the
// rank-1 tag of the remaining (minor) extent.
func RemoveMajor2(d D2) D1 { return D1{N0: d.N1} }

// RemoveMinor2 drops the minor axis of a rank-2 tag.
func RemoveMinor2(d D2) D1 { return D1{N0: d.N0} }

// RemoveMajor3 drops the major axis of a rank-3 tag.
func RemoveMajor3(d D3) D2 { return D2{N0: d.N1, N1: d.N2} }

// RemoveMinor3 drops the minor axis of a rank-3 tag.
func RemoveMinor3(d D3) D2 { return D2{N0: d.N0, N1: d.N1} }

// InsertMajor0 inserts a new major axis of size n in front of a
// rank-0 tag, yielding rank-1.
func InsertMajor0(n int, d D0) D1 { return D1{N0: n} }

// InsertMajor1 inserts a new major axis of size n in front of a
// rank-1 tag, yielding rank-2.
func InsertMajor1(n int, d D1) D2 { return D2{N0: n, N1: d.N0} }

// InsertMajor2 inserts a new major axis of size n in front of a
// rank-2 tag, yielding rank-3.
func InsertMajor2(n int, d D2) D3 { return D3{N0: n, N1: d.N0, N2: d.N1} }

// ToRank3 embeds each tag into rank-3 with leading ones, the canonical
// form backend kernels are specialized against.
func ToRank3D0(D0) D3           { return D3{N0: 1, N1: 1, N2: 1} }
func ToRank3D1(d D1) D3         { return D3{N0: 1, N1: 1, N2: d.N0} }
func ToRank3D2(d D2) D3         { return D3{N0: 1, N1: d.N0, N2: d.N1} }
func ToRank3D3(d D3) D3         { return d }

// WithMajor2 returns a copy of d with the major extent replaced. Used by
// tensor.IterMajorChunks2 to shape each chunk.
func WithMajor2(d D2, n int) D2 { return D2{N0: n, N1: d.N1} }

// WithMajor3 returns a copy of d with the major extent replaced.
func WithMajor3(d D3, n int) D3 { return D3{N0: n, N1: d.N1, N2: d.N2} }

// WithMajor1 returns a copy of d with its sole extent replaced.
func WithMajor1(d D1, n int) D1 { return D1{N0: n} }

// TileCeil rounds n up to the next multiple of tile (tile must be a
// power of two, per the accelerator's tiling contract).
func TileCeil(n, tile int) int {
	if tile <= 0 {
		panic(fmt.Sprintf("dims: invalid tile size %d", tile))
	}
	return (n + tile - 1) / tile * tile
}

// PaddedD2 rounds both extents of d up to a multiple of tile.
func PaddedD2(d D2, tile int) D2 {
	return D2{N0: TileCeil(d.N0, tile), N1: TileCeil(d.N1, tile)}
}

// PaddedD1 rounds the extent of d up to a multiple of tile.
func PaddedD1(d D1, tile int) D1 {
	return D1{N0: TileCeil(d.N0, tile)}
}
