// Package backprop re-exports the common types and constructors of the
// training engine.
package backprop

import (
	"github.com/FlavioCFOliveira/backprop/internal/activations"
	"github.com/FlavioCFOliveira/backprop/internal/dataset"
	"github.com/FlavioCFOliveira/backprop/internal/layer"
	"github.com/FlavioCFOliveira/backprop/internal/loss"
	"github.com/FlavioCFOliveira/backprop/internal/matrix"
	"github.com/FlavioCFOliveira/backprop/internal/net"
	"github.com/FlavioCFOliveira/backprop/internal/opt"
)

// Re-export common types and functions for easier access
type (
	Matrix      = matrix.Matrix
	Network     = net.Network
	Config      = net.Config
	EpochStats  = net.EpochStats
	Verbosity   = net.Verbosity
	BatchMode   = net.BatchMode
	Layer       = layer.Layer
	LayerConfig = layer.Config
	Optimizer   = opt.Optimizer
	Activation  = activations.Activation
	Callback    = net.Callback
	Dataset     = dataset.Dataset
)

// Sentinel errors.
var (
	ErrShapeMismatch   = matrix.ErrShapeMismatch
	ErrIndexOutOfRange = matrix.ErrIndexOutOfRange
	ErrConstruction    = matrix.ErrConstruction
	ErrEmptyNetwork    = net.ErrEmptyNetwork
	ErrInvalidArgument = net.ErrInvalidArgument
)

const (
	Silent   = net.Silent
	Minimal  = net.Minimal
	Detailed = net.Detailed

	PerSample = net.PerSample
	Averaged  = net.Averaged
)

// Weight initialization schemes.
const (
	XavierUniform = layer.XavierUniform
	XavierNormal  = layer.XavierNormal
	HeUniform     = layer.HeUniform
	HeNormal      = layer.HeNormal
	Zero          = layer.Zero
)

// Matrices
func Zeros(rows, cols int) *Matrix { return matrix.Zeros(rows, cols) }

func NewMatrix(rows, cols int, values []float64) (*Matrix, error) {
	return matrix.New(rows, cols, values)
}

func Column(values ...float64) *Matrix { return matrix.Column(values...) }

// Network creation
func New(layers ...Layer) *Network { return net.New(layers...) }

func NewWithConfig(cfg Config, layers ...Layer) *Network {
	return net.NewWithConfig(cfg, layers...)
}

// Activations
var (
	ReLU    = activations.ReLU{}
	Sigmoid = activations.Sigmoid{}
	Tanh    = activations.Tanh{}
)

func LeakyReLU(alpha float64) Activation {
	return activations.NewLeakyReLU(alpha)
}

// Dense creates a fully connected layer with SGD(lr, momentum) attached.
// cfg seeds and selects the weight initialization.
func Dense(in, out int, act Activation, lr, momentum float64, cfg LayerConfig) *layer.Dense {
	d := layer.NewDense(in, out, act, cfg)
	d.SetOptimizer(opt.NewSGD(lr, momentum))
	return d
}

// Optimizers
func SGD(lr, momentum float64) *opt.SGD { return opt.NewSGD(lr, momentum) }

func StepLR(stepSize int, gamma float64, optimizers ...Optimizer) *opt.StepLR {
	return opt.NewStepLR(stepSize, gamma, optimizers...)
}

func ReduceLROnPlateau(factor float64, patience int, threshold, minLR float64, optimizers ...Optimizer) *opt.ReduceLROnPlateau {
	return opt.NewReduceLROnPlateau(factor, patience, threshold, minLR, optimizers...)
}

// Callbacks
func EarlyStopping(patience int, minDelta float64) *net.EarlyStopping {
	return net.NewEarlyStopping(patience, minDelta)
}

func SchedulerCallback(scheduler opt.Scheduler) Callback {
	return net.NewSchedulerCallback(scheduler)
}

func CSVLogger(filename string, append bool) *net.CSVLogger {
	return net.NewCSVLogger(filename, append)
}

// Metrics
var MSE = loss.MSE{}

func ArgMax(m *Matrix) int { return loss.ArgMax(m) }

// Data loading
func LoadCSV(filename string, labelCols []int, hasHeader bool) (*Dataset, error) {
	return dataset.LoadCSV(filename, labelCols, hasHeader)
}
