package optim

import (
	"github.com/born-ml/sgat/internal/tensor"
)

// SGD implements Stochastic Gradient Descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * grad
//
// With momentum:
//
//	v = momentum * v + grad
//	param = param - lr * v
type SGD struct {
	params     []*tensor.RawTensor
	lr         float64
	momentum   float64
	velocities map[*tensor.RawTensor]*tensor.RawTensor
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer over params.
func NewSGD(params []*tensor.RawTensor, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*tensor.RawTensor]*tensor.RawTensor),
	}
}

// Step applies one update to every parameter that has a gradient.
func (s *SGD) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, param := range s.params {
		grad := grads[param]
		if grad == nil {
			continue
		}
		checkParam(param, grad)

		var velocity *tensor.RawTensor
		if s.momentum != 0 {
			velocity = stateFor(s.velocities, param)
		}
		switch param.DType() {
		case tensor.Float32:
			sgdUpdate(param.AsFloat32(), grad.AsFloat32(), velocitySlice[float32](velocity), float32(s.lr), float32(s.momentum))
		case tensor.Float64:
			sgdUpdate(param.AsFloat64(), grad.AsFloat64(), velocitySlice[float64](velocity), s.lr, s.momentum)
		}
	}
}

func velocitySlice[T tensor.Float](v *tensor.RawTensor) []T {
	if v == nil {
		return nil
	}
	return tensor.Slice[T](v)
}

func sgdUpdate[T tensor.Float](param, grad, velocity []T, lr, momentum T) {
	if velocity == nil {
		for i, g := range grad {
			param[i] -= lr * g
		}
		return
	}
	for i, g := range grad {
		velocity[i] = momentum*velocity[i] + g
		param[i] -= lr * velocity[i]
	}
}

// GetLR returns the current learning rate.
func (s *SGD) GetLR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}
