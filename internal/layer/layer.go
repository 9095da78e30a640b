// Package layer provides neural network layer implementations.
package layer

import (
	"fmt"

	"github.com/FlavioCFOliveira/backprop/internal/activations"
	"github.com/FlavioCFOliveira/backprop/internal/matrix"
	"github.com/FlavioCFOliveira/backprop/internal/opt"
)

// Layer is a neural network layer. Inputs and gradients are column vectors.
type Layer interface {
	// Forward computes the layer output and caches what Backward needs.
	Forward(x *matrix.Matrix) (*matrix.Matrix, error)

	// Backward takes dL/d(output) of the most recent Forward and returns
	// dL/d(input). Parameter updates happen here when an optimizer is attached.
	Backward(grad *matrix.Matrix) (*matrix.Matrix, error)
}

// Accumulator is implemented by layers that can sum gradients over several
// samples and apply one averaged update.
type Accumulator interface {
	Layer

	// Accumulate is Backward without the parameter update: gradients are
	// added to an internal sum.
	Accumulate(grad *matrix.Matrix) (*matrix.Matrix, error)

	// ApplyAccumulated averages the summed gradients, hands them to the
	// optimizer and clears the sum.
	ApplyAccumulated() error

	// ResetAccumulated discards the summed gradients without an update.
	ResetAccumulated()
}

// DefaultLearningRate is used when Config.LearningRate is zero.
const DefaultLearningRate = 0.01

// Dense is a fully connected layer: output = act(W·x + b).
//
// W is (out x in) and b is (out x 1). The input, pre-activation z and output
// of the most recent Forward are cached for Backward; each Forward overwrites
// them.
type Dense struct {
	weights *matrix.Matrix
	bias    *matrix.Matrix
	act     activations.Activation
	outSize int
	inSize  int

	// informational; the attached optimizer owns the effective rate
	learningRate float64
	optimizer    opt.Optimizer

	lastInput  *matrix.Matrix
	lastZ      *matrix.Matrix
	lastOutput *matrix.Matrix

	// gradients of the most recent Backward/Accumulate
	gradW *matrix.Matrix
	gradB *matrix.Matrix

	// running sums for Accumulate
	sumW    *matrix.Matrix
	sumB    *matrix.Matrix
	samples int
}

// NewDense creates a dense layer with weights drawn according to cfg.Init
// and a zero bias. It panics if in or out is not positive.
func NewDense(in, out int, act activations.Activation, cfg Config) *Dense {
	if in <= 0 || out <= 0 {
		panic(fmt.Sprintf("layer: invalid dense size %d -> %d", in, out))
	}
	lr := cfg.LearningRate
	if lr == 0 {
		lr = DefaultLearningRate
	}

	return &Dense{
		weights:      initWeights(cfg.Init, in, out, cfg.source()),
		bias:         matrix.Zeros(out, 1),
		act:          act,
		outSize:      out,
		inSize:       in,
		learningRate: lr,
		lastInput:    matrix.Zeros(in, 1),
		lastZ:        matrix.Zeros(out, 1),
		lastOutput:   matrix.Zeros(out, 1),
		gradW:        matrix.Zeros(out, in),
		gradB:        matrix.Zeros(out, 1),
	}
}

// Forward performs a forward pass. x must be (in x 1).
func (d *Dense) Forward(x *matrix.Matrix) (*matrix.Matrix, error) {
	if x.Rows() != d.inSize || x.Cols() != 1 {
		return nil, fmt.Errorf("dense forward: input %dx%d, want %dx1: %w",
			x.Rows(), x.Cols(), d.inSize, matrix.ErrShapeMismatch)
	}

	wx, err := d.weights.Mul(x)
	if err != nil {
		return nil, fmt.Errorf("dense forward: %w", err)
	}
	z, err := wx.Add(d.bias)
	if err != nil {
		return nil, fmt.Errorf("dense forward: %w", err)
	}
	output := z.Apply(d.act.Activate)

	d.lastInput = x.Clone()
	d.lastZ = z
	d.lastOutput = output.Clone()

	return output, nil
}

// Backward performs backpropagation through the layer and, if an optimizer
// is attached, updates weights and bias in place. The returned input
// gradient is computed with the weights as they were before the update.
func (d *Dense) Backward(grad *matrix.Matrix) (*matrix.Matrix, error) {
	gradIn, err := d.computeGradients(grad)
	if err != nil {
		return nil, err
	}

	if d.optimizer != nil {
		if err := d.optimizer.Update(d.weights, d.bias, d.gradW, d.gradB); err != nil {
			return nil, fmt.Errorf("dense backward: %w", err)
		}
	}
	return gradIn, nil
}

// computeGradients fills gradW and gradB from the cached forward pass and
// returns dL/dx.
func (d *Dense) computeGradients(grad *matrix.Matrix) (*matrix.Matrix, error) {
	// dL/dz = dL/dy ⊙ act'(z)
	deriv := d.lastZ.Apply(d.act.Derivative)
	delta, err := grad.Hadamard(deriv)
	if err != nil {
		return nil, fmt.Errorf("dense backward: %w", err)
	}

	// dL/dW = delta · xᵀ
	gradW, err := delta.Mul(d.lastInput.Transpose())
	if err != nil {
		return nil, fmt.Errorf("dense backward: %w", err)
	}

	// dL/dx = Wᵀ · delta
	gradIn, err := d.weights.Transpose().Mul(delta)
	if err != nil {
		return nil, fmt.Errorf("dense backward: %w", err)
	}

	d.gradW = gradW
	d.gradB = delta
	return gradIn, nil
}

// Accumulate computes the gradients like Backward but adds them to a running
// sum instead of updating the parameters.
func (d *Dense) Accumulate(grad *matrix.Matrix) (*matrix.Matrix, error) {
	gradIn, err := d.computeGradients(grad)
	if err != nil {
		return nil, err
	}
	if d.sumW == nil {
		d.sumW = matrix.Zeros(d.outSize, d.inSize)
		d.sumB = matrix.Zeros(d.outSize, 1)
	}
	if err := d.sumW.AddInPlace(d.gradW); err != nil {
		return nil, fmt.Errorf("dense accumulate: %w", err)
	}
	if err := d.sumB.AddInPlace(d.gradB); err != nil {
		return nil, fmt.Errorf("dense accumulate: %w", err)
	}
	d.samples++
	return gradIn, nil
}

// ApplyAccumulated applies the mean of the accumulated gradients through the
// attached optimizer and resets the sum. It is a no-op when nothing has been
// accumulated.
func (d *Dense) ApplyAccumulated() error {
	if d.samples == 0 {
		return nil
	}
	scale := 1 / float64(d.samples)
	meanW := d.sumW.Scale(scale)
	meanB := d.sumB.Scale(scale)

	d.ResetAccumulated()

	if d.optimizer == nil {
		return nil
	}
	if err := d.optimizer.Update(d.weights, d.bias, meanW, meanB); err != nil {
		return fmt.Errorf("dense apply: %w", err)
	}
	return nil
}

// ResetAccumulated drops any partially accumulated batch.
func (d *Dense) ResetAccumulated() {
	if d.sumW != nil {
		d.sumW.Fill(0)
		d.sumB.Fill(0)
	}
	d.samples = 0
}

// SetOptimizer attaches the optimizer that Backward uses. nil detaches.
func (d *Dense) SetOptimizer(o opt.Optimizer) {
	d.optimizer = o
}

// Optimizer returns the attached optimizer, if any.
func (d *Dense) Optimizer() opt.Optimizer {
	return d.optimizer
}

// SetWeights replaces the weights with a copy of w, which must be (out x in).
func (d *Dense) SetWeights(w *matrix.Matrix) error {
	if err := d.weights.CopyFrom(w); err != nil {
		return fmt.Errorf("dense: set weights: %w", err)
	}
	return nil
}

// SetBias replaces the bias with a copy of b, which must be (out x 1).
func (d *Dense) SetBias(b *matrix.Matrix) error {
	if err := d.bias.CopyFrom(b); err != nil {
		return fmt.Errorf("dense: set bias: %w", err)
	}
	return nil
}

// Weights returns a copy of the weights.
func (d *Dense) Weights() *matrix.Matrix { return d.weights.Clone() }

// Bias returns a copy of the bias.
func (d *Dense) Bias() *matrix.Matrix { return d.bias.Clone() }

// Gradients returns copies of the weight and bias gradients computed by the
// most recent Backward or Accumulate.
func (d *Dense) Gradients() (weights, bias *matrix.Matrix) {
	return d.gradW.Clone(), d.gradB.Clone()
}

// LastInput returns a copy of the cached input.
func (d *Dense) LastInput() *matrix.Matrix { return d.lastInput.Clone() }

// LastPreActivation returns a copy of the cached z = W·x + b.
func (d *Dense) LastPreActivation() *matrix.Matrix { return d.lastZ.Clone() }

// LastOutput returns a copy of the cached output.
func (d *Dense) LastOutput() *matrix.Matrix { return d.lastOutput.Clone() }

// InSize returns the input size of the layer.
func (d *Dense) InSize() int { return d.inSize }

// OutSize returns the output size of the layer.
func (d *Dense) OutSize() int { return d.outSize }

// ParamCount returns the number of trainable values.
func (d *Dense) ParamCount() int { return d.weights.Len() + d.bias.Len() }

// LearningRate returns the rate the layer was configured with.
func (d *Dense) LearningRate() float64 { return d.learningRate }

// Activation returns the activation function used by this layer.
func (d *Dense) Activation() activations.Activation { return d.act }
