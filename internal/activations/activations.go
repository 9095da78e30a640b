// Package activations provides the elementwise activation functions applied
// by dense layers.
package activations

import "math"

// saturation is the magnitude beyond which Sigmoid and Tanh return their
// asymptotic values instead of evaluating exp.
const saturation = 100.0

// DefaultLeakyAlpha is the negative slope used by DefaultLeakyReLU.
const DefaultLeakyAlpha = 0.01

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x), evaluated at the pre-activation x
	Derivative(x float64) float64
}

// ReLU activation function.
type ReLU struct{}

// Activate computes max(0, x)
func (ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Derivative returns 1 if x > 0, else 0
func (ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

// Sigmoid activation function.
type Sigmoid struct{}

func sigmoid(x float64) float64 {
	if x >= saturation {
		return 1
	}
	if x <= -saturation {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}

// Activate computes 1/(1+e^-x), pinned to 1 for x >= 100 and 0 for x <= -100.
func (Sigmoid) Activate(x float64) float64 {
	return sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (Sigmoid) Derivative(x float64) float64 {
	s := sigmoid(x)
	return s * (1 - s)
}

// Tanh activation function.
type Tanh struct{}

// Activate computes tanh(x), pinned to ±1 beyond ±100.
func (Tanh) Activate(x float64) float64 {
	if x >= saturation {
		return 1
	}
	if x <= -saturation {
		return -1
	}
	return math.Tanh(x)
}

// Derivative computes 1 - tanh(x)^2, and 0 beyond ±100.
func (Tanh) Derivative(x float64) float64 {
	if x >= saturation || x <= -saturation {
		return 0
	}
	t := math.Tanh(x)
	return 1 - t*t
}

// LeakyReLU activation function to prevent dying neurons.
type LeakyReLU struct {
	Alpha float64 // Slope for x <= 0
}

// NewLeakyReLU creates a LeakyReLU with the given alpha value.
func NewLeakyReLU(alpha float64) *LeakyReLU {
	return &LeakyReLU{Alpha: alpha}
}

// DefaultLeakyReLU returns a LeakyReLU with alpha = 0.01.
func DefaultLeakyReLU() *LeakyReLU {
	return NewLeakyReLU(DefaultLeakyAlpha)
}

// Activate computes x if x > 0, else alpha*x
func (l *LeakyReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return l.Alpha * x
}

// Derivative returns 1 if x > 0, else alpha
func (l *LeakyReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return l.Alpha
}

// Name returns a short human-readable name for the known activations.
func Name(act Activation) string {
	switch act.(type) {
	case ReLU, *ReLU:
		return "ReLU"
	case Sigmoid, *Sigmoid:
		return "Sigmoid"
	case Tanh, *Tanh:
		return "Tanh"
	case *LeakyReLU:
		return "LeakyReLU"
	default:
		return "Custom"
	}
}
