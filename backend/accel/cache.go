package accel

import (
	"fmt"
	"sync"

	"github.com/ollama/nnrun/backend"
)

// compileParams is the tuple every cached program is keyed on: the
// vectorization width and tile size, plus per-call shape parameters
// (column count / row stride). The cached kernels in this package
// (gemm, add_assign, sigmoid) set only programName and tileSize and
// read shapes and strides at run time; softmax and MSE do not go
// through the cache, so no program is specialized per column count.
type compileParams struct {
	programName string
	vectorWidth int
	tileSize    int
	cols        int
	rowStride   int
}

func (p compileParams) key() string {
	return fmt.Sprintf("%s|vw=%d|ts=%d|cols=%d|stride=%d", p.programName, p.vectorWidth, p.tileSize, p.cols, p.rowStride)
}

func (p compileParams) validate() error {
	validWidth := map[int]bool{1: true, 2: true, 4: true, 8: true, 16: true}
	if p.vectorWidth != 0 && !validWidth[p.vectorWidth] {
		return backend.NewError(backend.ValidationError, fmt.Sprintf("vector width %d not in {1,2,4,8,16}", p.vectorWidth))
	}
	if p.tileSize != 0 && (p.tileSize <= 0 || p.tileSize&(p.tileSize-1) != 0) {
		return backend.NewError(backend.ValidationError, fmt.Sprintf("tile size %d is not a power of two", p.tileSize))
	}
	return nil
}

// program is the "compiled" artifact: in this simulation there is no
// device-side source to build, so the program is just the validated
// parameter tuple plus the kernel closure implementing it. fn's
// concrete function type varies per kernel (gemm, transpose,
// element-wise, ...); callers type-assert it back after compile,
// the same way a real OpenCL wrapper would downcast a generic
// cl_kernel handle to a typed Go wrapper.
type program struct {
	params compileParams
	fn     any
}

// kernelCache is a process-lifetime cache from (program name, param
// tuple) to compiled program, guarded by a mutex per the
// generalization note in the design doc (a custom lock would be
// reinventing exactly this).
type kernelCache struct {
	mu    sync.Mutex
	built map[string]*program
}

var globalKernelCache = &kernelCache{built: make(map[string]*program)}

// compile returns the cached program for params, building it via
// build if this is the first call with this exact tuple. Validation
// errors and build errors are distinguished per the spec's error
// surface. Callers type-assert the returned program's fn back to the
// concrete kernel signature they expect.
func (c *kernelCache) compile(params compileParams, build func() (any, error)) (*program, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	key := params.key()

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.built[key]; ok {
		return p, nil
	}

	fn, err := build()
	if err != nil {
		return nil, backend.NewError(backend.ProgramBuildError, err.Error())
	}
	p := &program{params: params, fn: fn}
	c.built[key] = p
	return p, nil
}
