package optim

import (
	"math"

	"github.com/born-ml/sgat/internal/tensor"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²
//	m_hat = m_t / (1 - beta1^t)
//	v_hat = v_t / (1 - beta2^t)
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	params []*tensor.RawTensor
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	t      int // Timestep for bias correction
	m      map[*tensor.RawTensor]*tensor.RawTensor
	v      map[*tensor.RawTensor]*tensor.RawTensor
}

// AdamConfig holds configuration for the Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Coefficients for the running averages (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer over params. Zero config fields take
// their defaults.
func NewAdam(params []*tensor.RawTensor, config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make(map[*tensor.RawTensor]*tensor.RawTensor),
		v:      make(map[*tensor.RawTensor]*tensor.RawTensor),
	}
}

// Step performs a single optimization step. The timestep advances even when
// no parameter has a gradient.
func (a *Adam) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.t++

	bc1 := 1 - math.Pow(a.beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.beta2, float64(a.t))

	for _, param := range a.params {
		grad := grads[param]
		if grad == nil {
			// Parameter didn't participate in forward pass, skip
			continue
		}
		checkParam(param, grad)

		m, v := stateFor(a.m, param), stateFor(a.v, param)
		switch param.DType() {
		case tensor.Float32:
			adamUpdate(param.AsFloat32(), grad.AsFloat32(), m.AsFloat32(), v.AsFloat32(), a, bc1, bc2)
		case tensor.Float64:
			adamUpdate(param.AsFloat64(), grad.AsFloat64(), m.AsFloat64(), v.AsFloat64(), a, bc1, bc2)
		}
	}
}

func adamUpdate[T tensor.Float](param, grad, m, v []T, a *Adam, bc1, bc2 float64) {
	for i, gt := range grad {
		g := float64(gt)
		mi := a.beta1*float64(m[i]) + (1-a.beta1)*g
		vi := a.beta2*float64(v[i]) + (1-a.beta2)*g*g
		m[i], v[i] = T(mi), T(vi)

		mHat := mi / bc1
		vHat := vi / bc2
		param[i] -= T(a.lr * mHat / (math.Sqrt(vHat) + a.eps))
	}
}

// GetLR returns the current learning rate.
func (a *Adam) GetLR() float64 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam) SetLR(lr float64) {
	a.lr = lr
}

// GetTimestep returns the number of steps taken.
func (a *Adam) GetTimestep() int {
	return a.t
}
