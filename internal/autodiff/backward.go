package autodiff

import (
	"errors"
	"fmt"

	"github.com/born-ml/sgat/internal/tensor"
)

// ErrNothingRecorded is returned when gradients are requested from an empty tape.
var ErrNothingRecorded = errors.New("backward: no operations recorded (did you forget to call Tape().StartRecording()?)")

// BackwardCapable is an interface for backends that support backward pass.
// AutodiffBackend implements this interface.
type BackwardCapable interface {
	tensor.Backend
	// GetTape returns the gradient tape for backward computation.
	GetTape() *GradientTape
}

// GetTape returns the gradient tape (implements BackwardCapable interface).
func (b *AutodiffBackend[B]) GetTape() *GradientTape {
	return b.tape
}

// onesLike returns a tensor of ones with t's shape, dtype and device.
func onesLike(t *tensor.RawTensor) (*tensor.RawTensor, error) {
	ones, err := tensor.NewRaw(t.Shape(), t.DType(), t.Device())
	if err != nil {
		return nil, err
	}
	switch t.DType() {
	case tensor.Float32:
		data := ones.AsFloat32()
		for i := range data {
			data[i] = 1
		}
	case tensor.Float64:
		data := ones.AsFloat64()
		for i := range data {
			data[i] = 1
		}
	default:
		return nil, fmt.Errorf("backward: %w: %s (only float32/float64 supported)", tensor.ErrDTypeMismatch, t.DType())
	}
	return ones, nil
}

// Backward computes gradients of t (seeded with ones) using the backend's tape.
//
// Returns a map from RawTensor to its gradient.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	x := tensor.Ones[float32](Shape{2}, backend)
//	y := x.Mul(x) // y = x²
//	gradients, _ := autodiff.Backward(y, backend)
//	grad := gradients[x.Raw()] // Get gradient for x
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) (map[*tensor.RawTensor]*tensor.RawTensor, error) {
	tape := backend.GetTape()
	if tape.NumOps() == 0 {
		return nil, ErrNothingRecorded
	}

	outputGrad, err := onesLike(t.Raw())
	if err != nil {
		return nil, err
	}
	return tape.Backward(t.Raw(), outputGrad, backend), nil
}

// Grad returns the gradients of output (seeded with ones) with respect to
// each of inputs, in order. Inputs that output does not depend on receive a
// zero gradient. The tape is retained, so Grad may be called again for a
// different output recorded on the same tape.
func Grad(backend BackwardCapable, output *tensor.RawTensor, inputs ...*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	tape := backend.GetTape()
	if tape.NumOps() == 0 {
		return nil, ErrNothingRecorded
	}
	if output.Device() != backend.Device() {
		return nil, fmt.Errorf("backward: %w: output on %s, backend on %s", tensor.ErrDeviceMismatch, output.Device(), backend.Device())
	}

	outputGrad, err := onesLike(output)
	if err != nil {
		return nil, err
	}
	grads := tape.Backward(output, outputGrad, backend)

	result := make([]*tensor.RawTensor, len(inputs))
	for i, in := range inputs {
		if g, ok := grads[in]; ok {
			result[i] = g
			continue
		}
		zero, err := tensor.NewRaw(in.Shape(), in.DType(), in.Device())
		if err != nil {
			return nil, err
		}
		result[i] = zero
	}
	return result, nil
}
