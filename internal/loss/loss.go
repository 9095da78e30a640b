// Package loss provides the mean squared error loss and the argmax
// classification metric used by the training loop.
package loss

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/backprop/internal/matrix"
)

// MSE (Mean Squared Error) loss.
type MSE struct{}

// Forward computes mean squared error: (1/n) * sum((y_pred - y_true)^2)
func (MSE) Forward(yPred, yTrue *matrix.Matrix) (float64, error) {
	if !yPred.SameShape(yTrue) {
		return 0, mismatch("mse", yPred, yTrue)
	}
	n := yPred.Len()
	if n == 0 {
		return 0, nil
	}
	diff, err := yPred.Sub(yTrue)
	if err != nil {
		return 0, fmt.Errorf("mse: %w", err)
	}
	v := diff.Values()
	return floats.Dot(v, v) / float64(n), nil
}

// Backward computes the gradient seed y_pred - y_true. The 2/n factor of the
// true MSE derivative is left out and absorbed by the learning rate.
func (MSE) Backward(yPred, yTrue *matrix.Matrix) (*matrix.Matrix, error) {
	grad, err := yPred.Sub(yTrue)
	if err != nil {
		return nil, fmt.Errorf("mse: %w", err)
	}
	return grad, nil
}

// NormalizedBackward computes the exact MSE gradient (2/n) * (y_pred - y_true).
func (m MSE) NormalizedBackward(yPred, yTrue *matrix.Matrix) (*matrix.Matrix, error) {
	grad, err := m.Backward(yPred, yTrue)
	if err != nil {
		return nil, err
	}
	if n := grad.Len(); n > 0 {
		grad.ScaleInPlace(2 / float64(n))
	}
	return grad, nil
}

// ArgMax returns the index of the largest element in row-major order, the
// first one on ties, or -1 for an empty matrix.
func ArgMax(m *matrix.Matrix) int {
	if m.Len() == 0 {
		return -1
	}
	return floats.MaxIdx(m.Values())
}

// Correct reports whether the output and the (one-hot) target agree on the
// index of their largest element.
func Correct(output, target *matrix.Matrix) (bool, error) {
	if !output.SameShape(target) {
		return false, mismatch("correct", output, target)
	}
	return ArgMax(output) == ArgMax(target), nil
}

func mismatch(op string, a, b *matrix.Matrix) error {
	return fmt.Errorf("%s: output %dx%d vs target %dx%d: %w",
		op, a.Rows(), a.Cols(), b.Rows(), b.Cols(), matrix.ErrShapeMismatch)
}
