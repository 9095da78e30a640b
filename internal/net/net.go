// Package net provides the network orchestrator: multi-layer forward and
// backward chaining and the epoch/batch training loop.
package net

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/FlavioCFOliveira/backprop/internal/layer"
	"github.com/FlavioCFOliveira/backprop/internal/loss"
	"github.com/FlavioCFOliveira/backprop/internal/matrix"
)

var (
	// ErrEmptyNetwork is returned when Forward, Backward or Train run on a
	// network without layers.
	ErrEmptyNetwork = errors.New("net: network has no layers")

	// ErrInvalidArgument is returned for malformed training arguments.
	ErrInvalidArgument = errors.New("net: invalid argument")
)

// Verbosity controls how much progress Train prints.
type Verbosity int

const (
	// Silent prints nothing.
	Silent Verbosity = iota
	// Minimal prints one summary line per epoch.
	Minimal
	// Detailed also prints the running loss every Config.LogEvery batches.
	Detailed
)

func (v Verbosity) String() string {
	switch v {
	case Silent:
		return "silent"
	case Minimal:
		return "minimal"
	case Detailed:
		return "detailed"
	default:
		return fmt.Sprintf("Verbosity(%d)", int(v))
	}
}

// ParseVerbosity maps "silent", "minimal" or "detailed" to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch s {
	case "silent":
		return Silent, nil
	case "minimal":
		return Minimal, nil
	case "detailed":
		return Detailed, nil
	}
	return Minimal, fmt.Errorf("unknown verbosity %q: %w", s, ErrInvalidArgument)
}

// BatchMode selects how a batch drives parameter updates.
type BatchMode int

const (
	// PerSample updates the parameters after every sample; the batch size
	// only groups progress output.
	PerSample BatchMode = iota
	// Averaged accumulates gradients over the batch and applies one mean
	// update per layer at the end of it.
	Averaged
)

func (m BatchMode) String() string {
	switch m {
	case PerSample:
		return "per-sample"
	case Averaged:
		return "averaged"
	default:
		return fmt.Sprintf("BatchMode(%d)", int(m))
	}
}

// ParseBatchMode maps "per-sample" or "averaged" to a BatchMode.
func ParseBatchMode(s string) (BatchMode, error) {
	switch s {
	case "per-sample":
		return PerSample, nil
	case "averaged":
		return Averaged, nil
	}
	return PerSample, fmt.Errorf("unknown batch mode %q: %w", s, ErrInvalidArgument)
}

// DefaultLogEvery is the batch interval of Detailed progress lines.
const DefaultLogEvery = 10

// Config holds the network options. The zero value trains silently with
// per-sample updates; New uses DefaultConfig.
type Config struct {
	Verbosity Verbosity
	// Output receives progress lines. nil means os.Stdout.
	Output    io.Writer
	BatchMode BatchMode

	// NormalizeLossGradient seeds Backward with (2/n)(output - target)
	// instead of output - target.
	NormalizeLossGradient bool

	// LogEvery is the batch interval of Detailed progress lines. Zero means
	// DefaultLogEvery.
	LogEvery int
}

// DefaultConfig returns the configuration New uses.
func DefaultConfig() Config {
	return Config{Verbosity: Minimal, LogEvery: DefaultLogEvery}
}

// EpochStats summarizes one training epoch.
type EpochStats struct {
	Epoch    int     // 1-based
	Loss     float64 // mean per-sample MSE
	Accuracy float64 // percentage of argmax-correct samples
}

// Network is an ordered sequence of layers.
//
// Layers are ordinary references shared with the caller: the caller may keep
// using them (e.g. to inspect weights) and the network keeps them alive. The
// layer list must not be changed while Forward, Backward or Train runs.
type Network struct {
	layers    []layer.Layer
	cfg       Config
	loss      loss.MSE
	callbacks []Callback
}

// New creates a network with the default configuration and the given layers.
func New(layers ...layer.Layer) *Network {
	return NewWithConfig(DefaultConfig(), layers...)
}

// NewWithConfig creates a network with the given configuration.
func NewWithConfig(cfg Config, layers ...layer.Layer) *Network {
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = DefaultLogEvery
	}
	n := &Network{cfg: cfg}
	n.layers = append(n.layers, layers...)
	return n
}

// Add appends a layer.
func (n *Network) Add(l layer.Layer) {
	n.layers = append(n.layers, l)
}

// Len returns the number of layers.
func (n *Network) Len() int { return len(n.layers) }

// Layers returns a copy of the layer list.
func (n *Network) Layers() []layer.Layer {
	return append([]layer.Layer(nil), n.layers...)
}

// Config returns the current configuration.
func (n *Network) Config() Config { return n.cfg }

// SetVerbosity sets the progress level of Train.
func (n *Network) SetVerbosity(v Verbosity) { n.cfg.Verbosity = v }

// SetOutput sets where progress lines go. nil restores os.Stdout.
func (n *Network) SetOutput(w io.Writer) { n.cfg.Output = w }

// SetBatchMode selects per-sample or averaged batch updates.
func (n *Network) SetBatchMode(m BatchMode) { n.cfg.BatchMode = m }

// AddCallback registers a training callback.
func (n *Network) AddCallback(c Callback) {
	n.callbacks = append(n.callbacks, c)
}

func (n *Network) out() io.Writer {
	if n.cfg.Output == nil {
		return os.Stdout
	}
	return n.cfg.Output
}

// Forward feeds input through every layer in order and returns the output of
// the last one.
func (n *Network) Forward(input *matrix.Matrix) (*matrix.Matrix, error) {
	if len(n.layers) == 0 {
		return nil, ErrEmptyNetwork
	}
	curr := input
	for i, l := range n.layers {
		next, err := l.Forward(curr)
		if err != nil {
			return nil, fmt.Errorf("forward layer %d: %w", i, err)
		}
		curr = next
	}
	return curr, nil
}

// Backward propagates the output-target discrepancy through the layers in
// reverse order. Layers with an attached optimizer update their parameters
// as the gradient passes.
func (n *Network) Backward(target, output *matrix.Matrix) error {
	if len(n.layers) == 0 {
		return ErrEmptyNetwork
	}
	grad, err := n.seed(output, target)
	if err != nil {
		return err
	}
	for i := len(n.layers) - 1; i >= 0; i-- {
		if grad, err = n.layers[i].Backward(grad); err != nil {
			return fmt.Errorf("backward layer %d: %w", i, err)
		}
	}
	return nil
}

// accumulate is Backward for averaged batches: gradients are summed in
// every layer without updating parameters.
func (n *Network) accumulate(target, output *matrix.Matrix, accs []layer.Accumulator) error {
	grad, err := n.seed(output, target)
	if err != nil {
		return err
	}
	for i := len(accs) - 1; i >= 0; i-- {
		if grad, err = accs[i].Accumulate(grad); err != nil {
			return fmt.Errorf("accumulate layer %d: %w", i, err)
		}
	}
	return nil
}

func (n *Network) seed(output, target *matrix.Matrix) (*matrix.Matrix, error) {
	if n.cfg.NormalizeLossGradient {
		return n.loss.NormalizedBackward(output, target)
	}
	return n.loss.Backward(output, target)
}

// TrainStep runs Forward then Backward and returns the forward output. The
// parameters have already been updated when it returns.
func (n *Network) TrainStep(input, target *matrix.Matrix) (*matrix.Matrix, error) {
	output, err := n.Forward(input)
	if err != nil {
		return nil, err
	}
	if err := n.Backward(target, output); err != nil {
		return nil, err
	}
	return output, nil
}

// Loss returns the mean squared error between output and target.
func (n *Network) Loss(output, target *matrix.Matrix) (float64, error) {
	return n.loss.Forward(output, target)
}

// Correct reports whether output and target share the same argmax.
func (n *Network) Correct(output, target *matrix.Matrix) (bool, error) {
	return loss.Correct(output, target)
}

// Train runs epochs passes over the dataset in chunks of batchSize samples
// and returns the statistics of every completed epoch. A callback that
// implements Stopper can end training early.
func (n *Network) Train(inputs, targets []*matrix.Matrix, epochs, batchSize int) ([]EpochStats, error) {
	switch {
	case len(inputs) != len(targets):
		return nil, fmt.Errorf("%d inputs vs %d targets: %w", len(inputs), len(targets), ErrInvalidArgument)
	case len(inputs) == 0:
		return nil, fmt.Errorf("empty dataset: %w", ErrInvalidArgument)
	case batchSize < 1:
		return nil, fmt.Errorf("batch size %d: %w", batchSize, ErrInvalidArgument)
	case epochs < 0:
		return nil, fmt.Errorf("epochs %d: %w", epochs, ErrInvalidArgument)
	case len(n.layers) == 0:
		return nil, ErrEmptyNetwork
	}

	var accs []layer.Accumulator
	if n.cfg.BatchMode == Averaged {
		accs = make([]layer.Accumulator, len(n.layers))
		for i, l := range n.layers {
			a, ok := l.(layer.Accumulator)
			if !ok {
				return nil, fmt.Errorf("layer %d (%T) cannot accumulate gradients: %w", i, l, ErrInvalidArgument)
			}
			accs[i] = a
		}
	}

	for _, a := range accs {
		a.ResetAccumulated()
	}
	for _, c := range n.callbacks {
		c.OnTrainBegin(n)
	}

	history := make([]EpochStats, 0, epochs)
	var trainErr error
	for epoch := 1; epoch <= epochs; epoch++ {
		for _, c := range n.callbacks {
			c.OnEpochBegin(epoch, n)
		}

		stats, err := n.runEpoch(epoch, batchSize, inputs, targets, accs)
		if err != nil {
			trainErr = fmt.Errorf("epoch %d: %w", epoch, err)
			break
		}
		history = append(history, stats)

		if n.cfg.Verbosity >= Minimal {
			fmt.Fprintf(n.out(), "Epoch %d/%d, Loss: %.6f, Accuracy: %.2f%%\n",
				epoch, epochs, stats.Loss, stats.Accuracy)
		}
		for _, c := range n.callbacks {
			c.OnEpochEnd(epoch, stats, n)
		}
		if n.stopRequested() {
			break
		}
	}

	for _, c := range n.callbacks {
		c.OnTrainEnd(n)
	}
	return history, trainErr
}

func (n *Network) runEpoch(epoch, batchSize int, inputs, targets []*matrix.Matrix, accs []layer.Accumulator) (_ EpochStats, err error) {
	defer func() {
		if err != nil {
			for _, a := range accs {
				a.ResetAccumulated()
			}
		}
	}()

	logEvery := n.cfg.LogEvery
	if logEvery <= 0 {
		logEvery = DefaultLogEvery
	}

	var totalLoss float64
	correct := 0
	for start := 0; start < len(inputs); start += batchSize {
		end := min(start+batchSize, len(inputs))
		batch := start / batchSize

		var batchLoss float64
		for j := start; j < end; j++ {
			output, err := n.Forward(inputs[j])
			if err != nil {
				return EpochStats{}, fmt.Errorf("sample %d: %w", j, err)
			}
			if accs != nil {
				err = n.accumulate(targets[j], output, accs)
			} else {
				err = n.Backward(targets[j], output)
			}
			if err != nil {
				return EpochStats{}, fmt.Errorf("sample %d: %w", j, err)
			}

			l, err := n.loss.Forward(output, targets[j])
			if err != nil {
				return EpochStats{}, fmt.Errorf("sample %d: %w", j, err)
			}
			batchLoss += l
			if ok, _ := loss.Correct(output, targets[j]); ok {
				correct++
			}
		}
		for i, a := range accs {
			if err := a.ApplyAccumulated(); err != nil {
				return EpochStats{}, fmt.Errorf("batch %d layer %d: %w", batch, i, err)
			}
		}
		totalLoss += batchLoss

		if n.cfg.Verbosity >= Detailed && batch%logEvery == 0 {
			fmt.Fprintf(n.out(), "Epoch %d, Batch %d, Loss: %.6f\n", epoch, batch, totalLoss/float64(end))
		}
		for _, c := range n.callbacks {
			c.OnBatchEnd(batch, batchLoss/float64(end-start), n)
		}
	}

	count := float64(len(inputs))
	return EpochStats{
		Epoch:    epoch,
		Loss:     totalLoss / count,
		Accuracy: float64(correct) / count * 100,
	}, nil
}

func (n *Network) stopRequested() bool {
	for _, c := range n.callbacks {
		if s, ok := c.(Stopper); ok && s.ShouldStop() {
			return true
		}
	}
	return false
}
