package accel

import (
	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"

	"github.com/ollama/nnrun/backend"
)

// roundTripDType simulates the precision loss of the accelerator's
// native storage width: F32 is a no-op, F16 and BF16 each truncate
// every element through their real encoding and back, same as
// crossing into device memory narrower than the host's float32 would.
// Host-side arithmetic stays float32 throughout; only values that pass
// through a narrower dtype's buffer pay its precision cost.
func roundTripDType(dtype backend.DType, data []float32) {
	switch dtype {
	case backend.DTypeF32:
	case backend.DTypeF16:
		for i, f := range data {
			data[i] = float16.Fromfloat32(f).Float32()
		}
	case backend.DTypeBF16:
		copy(data, bfloat16.DecodeFloat32(bfloat16.EncodeFloat32(data)))
	}
}
