// Package opt provides optimization algorithms.
package opt

import (
	"fmt"

	"github.com/FlavioCFOliveira/backprop/internal/matrix"
)

// Optimizer updates a layer's parameters from its gradients.
//
// An optimizer may keep state between calls (SGD keeps velocities), so each
// layer that needs an independent trajectory must own its own instance.
type Optimizer interface {
	// Update applies one step to weights and bias in place.
	Update(weights, bias, weightGrad, biasGrad *matrix.Matrix) error

	// LearningRate returns the current step size.
	LearningRate() float64

	// SetLearningRate changes the step size, e.g. from a scheduler.
	SetLearningRate(lr float64)
}

// SGD (Stochastic Gradient Descent) optimizer with optional momentum.
//
// Update rule, applied elementwise to weights and bias independently:
//
//	velocity = momentum*velocity - lr*gradient
//	param    = param + velocity
//
// With momentum 0 this is plain gradient descent. Velocities are shaped on
// the first Update; a later Update with differently shaped parameters fails
// with matrix.ErrShapeMismatch.
type SGD struct {
	lr       float64
	momentum float64

	weightVelocity *matrix.Matrix
	biasVelocity   *matrix.Matrix
}

// NewSGD creates an SGD optimizer.
func NewSGD(learningRate, momentum float64) *SGD {
	return &SGD{lr: learningRate, momentum: momentum}
}

// Update performs one SGD step. All shapes are validated before any value is
// written, so a failed Update leaves weights, bias and velocity untouched.
func (s *SGD) Update(weights, bias, weightGrad, biasGrad *matrix.Matrix) error {
	if !weights.SameShape(weightGrad) {
		return fmt.Errorf("sgd: weight gradient %dx%d for weights %dx%d: %w",
			weightGrad.Rows(), weightGrad.Cols(), weights.Rows(), weights.Cols(), matrix.ErrShapeMismatch)
	}
	if !bias.SameShape(biasGrad) {
		return fmt.Errorf("sgd: bias gradient %dx%d for bias %dx%d: %w",
			biasGrad.Rows(), biasGrad.Cols(), bias.Rows(), bias.Cols(), matrix.ErrShapeMismatch)
	}

	if s.weightVelocity == nil {
		s.weightVelocity = matrix.Zeros(weights.Shape())
		s.biasVelocity = matrix.Zeros(bias.Shape())
	}
	if !s.weightVelocity.SameShape(weights) || !s.biasVelocity.SameShape(bias) {
		return fmt.Errorf("sgd: velocity shaped for %dx%d weights, got %dx%d (optimizer shared across layers?): %w",
			s.weightVelocity.Rows(), s.weightVelocity.Cols(), weights.Rows(), weights.Cols(), matrix.ErrShapeMismatch)
	}

	step(weights, s.weightVelocity, weightGrad, s.momentum, s.lr)
	step(bias, s.biasVelocity, biasGrad, s.momentum, s.lr)
	return nil
}

// step applies v = m*v - lr*g; p += v. Shapes are checked by the caller.
func step(param, velocity, grad *matrix.Matrix, momentum, lr float64) {
	velocity.ScaleInPlace(momentum)
	_ = velocity.AddInPlace(grad.Scale(-lr))
	_ = param.AddInPlace(velocity)
}

// LearningRate returns the current learning rate.
func (s *SGD) LearningRate() float64 { return s.lr }

// SetLearningRate updates the learning rate.
func (s *SGD) SetLearningRate(lr float64) { s.lr = lr }

// Momentum returns the momentum coefficient.
func (s *SGD) Momentum() float64 { return s.momentum }

// Velocity returns copies of the weight and bias velocities, or nils before
// the first Update.
func (s *SGD) Velocity() (weights, bias *matrix.Matrix) {
	if s.weightVelocity == nil {
		return nil, nil
	}
	return s.weightVelocity.Clone(), s.biasVelocity.Clone()
}

// Reset discards the velocity state. The next Update reshapes it.
func (s *SGD) Reset() {
	s.weightVelocity = nil
	s.biasVelocity = nil
}
