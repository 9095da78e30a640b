// Package net provides unit tests for the network orchestrator.
package net

import (
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/backprop/internal/activations"
	"github.com/FlavioCFOliveira/backprop/internal/layer"
	"github.com/FlavioCFOliveira/backprop/internal/matrix"
	"github.com/FlavioCFOliveira/backprop/internal/opt"
)

func mustRows(t *testing.T, rows ...[]float64) *matrix.Matrix {
	t.Helper()
	m, err := matrix.FromRows(rows)
	require.NoError(t, err)
	return m
}

func dense(t *testing.T, w, b *matrix.Matrix, act activations.Activation, lr float64) *layer.Dense {
	t.Helper()
	d := layer.NewDense(w.Cols(), w.Rows(), act, layer.Config{Init: layer.Zero})
	require.NoError(t, d.SetWeights(w))
	require.NoError(t, d.SetBias(b))
	if lr > 0 {
		d.SetOptimizer(opt.NewSGD(lr, 0))
	}
	return d
}

func xorData() (inputs, targets []*matrix.Matrix) {
	inputs = []*matrix.Matrix{
		matrix.Column(0, 0), matrix.Column(0, 1), matrix.Column(1, 0), matrix.Column(1, 1),
	}
	targets = []*matrix.Matrix{
		matrix.Column(0), matrix.Column(1), matrix.Column(1), matrix.Column(0),
	}
	return inputs, targets
}

// xorNetwork builds the 2-3(ReLU)-1(Sigmoid) network with fixed starting
// weights so training is reproducible.
func xorNetwork(t *testing.T, cfg Config) (*Network, *layer.Dense, *layer.Dense) {
	t.Helper()
	hidden := dense(t,
		mustRows(t, []float64{0.5, -0.6}, []float64{-0.7, 0.8}, []float64{0.9, 0.4}),
		matrix.Column(0.1, 0.1, -0.3), activations.ReLU{}, 0.1)
	out := dense(t,
		mustRows(t, []float64{0.8, 0.9, -0.7}),
		matrix.Column(0), activations.Sigmoid{}, 0.1)
	return NewWithConfig(cfg, hidden, out), hidden, out
}

// TestNetworkForward tests forward chaining through two fixed layers.
func TestNetworkForward(t *testing.T) {
	l1 := dense(t, mustRows(t, []float64{0.5, 0.8}, []float64{0.1, 0.2}), matrix.Column(0.1, 0.2), activations.ReLU{}, 0)
	l2 := dense(t, mustRows(t, []float64{0.3, 0.6}), matrix.Column(0.1), activations.Sigmoid{}, 0)
	n := New(l1, l2)

	out, err := n.Forward(matrix.Column(0.5, 1))
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())

	v, err := out.At(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.656, v, 0.02)
	// z1 = [1.15, 0.45], z2 = 0.345 + 0.27 + 0.1
	assert.InDelta(t, 1/(1+math.Exp(-0.715)), v, 1e-12)
}

// TestNetworkEmpty tests that an empty network refuses every pass.
func TestNetworkEmpty(t *testing.T) {
	n := New()
	assert.Equal(t, 0, n.Len())

	_, err := n.Forward(matrix.Column(1))
	assert.ErrorIs(t, err, ErrEmptyNetwork)

	err = n.Backward(matrix.Column(1), matrix.Column(1))
	assert.ErrorIs(t, err, ErrEmptyNetwork)

	_, err = n.TrainStep(matrix.Column(1), matrix.Column(1))
	assert.ErrorIs(t, err, ErrEmptyNetwork)

	inputs, targets := xorData()
	_, err = n.Train(inputs, targets, 1, 1)
	assert.ErrorIs(t, err, ErrEmptyNetwork)
}

// TestNetworkAdd tests building a network incrementally.
func TestNetworkAdd(t *testing.T) {
	n := New()
	l := layer.NewDense(2, 1, activations.Sigmoid{}, layer.Config{Seed: 3})
	n.Add(l)
	assert.Equal(t, 1, n.Len())

	layers := n.Layers()
	require.Len(t, layers, 1)
	assert.Same(t, l, layers[0])

	layers[0] = nil
	assert.NotNil(t, n.Layers()[0], "Layers must return a copy")
}

func TestNetworkForwardShapeError(t *testing.T) {
	n := New(layer.NewDense(2, 1, activations.Sigmoid{}, layer.Config{Seed: 3}))
	_, err := n.Forward(matrix.Column(1, 2, 3))
	assert.ErrorIs(t, err, matrix.ErrShapeMismatch)
}

// TestTrainStep tests that a train step returns the pre-update output and
// moves the prediction towards the target.
func TestTrainStep(t *testing.T) {
	n, _, _ := xorNetwork(t, Config{})
	input, target := matrix.Column(0, 1), matrix.Column(1)

	before, err := n.Forward(input)
	require.NoError(t, err)

	out, err := n.TrainStep(input, target)
	require.NoError(t, err)
	assert.True(t, before.Equal(out, 1e-15))

	after, err := n.Forward(input)
	require.NoError(t, err)
	lBefore, err := n.Loss(before, target)
	require.NoError(t, err)
	lAfter, err := n.Loss(after, target)
	require.NoError(t, err)
	assert.Less(t, lAfter, lBefore)
}

// TestTrainArguments tests argument validation.
func TestTrainArguments(t *testing.T) {
	n, _, _ := xorNetwork(t, Config{})
	inputs, targets := xorData()

	tests := []struct {
		name      string
		inputs    []*matrix.Matrix
		targets   []*matrix.Matrix
		epochs    int
		batchSize int
	}{
		{"count mismatch", inputs, targets[:3], 1, 1},
		{"empty dataset", nil, nil, 1, 1},
		{"zero batch", inputs, targets, 1, 0},
		{"negative epochs", inputs, targets, -1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Train(tt.inputs, tt.targets, tt.epochs, tt.batchSize)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	stats, err := n.Train(inputs, targets, 0, 1)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

// TestNetworkXOR tests end-to-end learning of XOR.
func TestNetworkXOR(t *testing.T) {
	n, _, _ := xorNetwork(t, Config{Verbosity: Silent})
	inputs, targets := xorData()

	stats, err := n.Train(inputs, targets, 1000, 1)
	require.NoError(t, err)
	require.Len(t, stats, 1000)
	assert.Equal(t, 1, stats[0].Epoch)
	assert.Equal(t, 1000, stats[999].Epoch)

	var total float64
	for i := range inputs {
		out, err := n.Forward(inputs[i])
		require.NoError(t, err)
		l, err := n.Loss(out, targets[i])
		require.NoError(t, err)
		total += l
	}
	assert.Less(t, total/4, 0.13)
	assert.Less(t, stats[999].Loss, stats[0].Loss)
}

// TestTrainVerbosity tests the progress line formats.
func TestTrainVerbosity(t *testing.T) {
	inputs, targets := xorData()

	t.Run("silent", func(t *testing.T) {
		var buf bytes.Buffer
		n, _, _ := xorNetwork(t, Config{Verbosity: Silent, Output: &buf})
		_, err := n.Train(inputs, targets, 2, 1)
		require.NoError(t, err)
		assert.Empty(t, buf.String())
	})

	t.Run("minimal", func(t *testing.T) {
		var buf bytes.Buffer
		n, _, _ := xorNetwork(t, Config{Verbosity: Minimal, Output: &buf})
		_, err := n.Train(inputs, targets, 2, 1)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "Epoch 1/2, Loss: "), lines[0])
		assert.True(t, strings.HasSuffix(lines[1], "Accuracy: 100.00%"), lines[1])
	})

	t.Run("detailed", func(t *testing.T) {
		var buf bytes.Buffer
		n, _, _ := xorNetwork(t, Config{Verbosity: Detailed, Output: &buf, LogEvery: 2})
		_, err := n.Train(inputs, targets, 1, 1)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "Epoch 1, Batch 0, Loss: "), lines[0])
		assert.True(t, strings.HasPrefix(lines[1], "Epoch 1, Batch 2, Loss: "), lines[1])
		assert.True(t, strings.HasPrefix(lines[2], "Epoch 1/1, Loss: "), lines[2])
	})
}

// TestTrainAveragedBatchOfOne tests that averaged mode with one sample per
// batch matches per-sample training.
func TestTrainAveragedBatchOfOne(t *testing.T) {
	inputs, targets := xorData()

	perSample, h1, o1 := xorNetwork(t, Config{})
	averaged, h2, o2 := xorNetwork(t, Config{BatchMode: Averaged})

	s1, err := perSample.Train(inputs, targets, 20, 1)
	require.NoError(t, err)
	s2, err := averaged.Train(inputs, targets, 20, 1)
	require.NoError(t, err)

	assert.InDelta(t, s1[19].Loss, s2[19].Loss, 1e-12)
	assert.True(t, h1.Weights().Equal(h2.Weights(), 1e-12))
	assert.True(t, o1.Weights().Equal(o2.Weights(), 1e-12))
	assert.True(t, o1.Bias().Equal(o2.Bias(), 1e-12))
}

// TestTrainAveragedBatch tests that a full batch applies exactly one update.
func TestTrainAveragedBatch(t *testing.T) {
	inputs, targets := xorData()
	n, _, out := xorNetwork(t, Config{BatchMode: Averaged})
	before := out.Weights()

	// Reference: the mean of the four per-sample gradients.
	ref, _, refOut := xorNetwork(t, Config{})
	for _, l := range ref.Layers() {
		l.(*layer.Dense).SetOptimizer(nil)
	}
	sum := matrix.Zeros(1, 3)
	for i := range inputs {
		_, err := ref.TrainStep(inputs[i], targets[i])
		require.NoError(t, err)
		gw, _ := refOut.Gradients()
		require.NoError(t, sum.AddInPlace(gw))
	}
	want, err := before.Sub(sum.Scale(0.1 / 4))
	require.NoError(t, err)

	_, err = n.Train(inputs, targets, 1, 4)
	require.NoError(t, err)
	assert.True(t, out.Weights().Equal(want, 1e-12), out.Weights().String())
}

// TestTrainAveragedDiscardsFailedBatch tests that gradients summed before a
// failing sample do not reach a later Train call.
func TestTrainAveragedDiscardsFailedBatch(t *testing.T) {
	build := func() (*Network, *layer.Dense) {
		d := dense(t, mustRows(t, []float64{0.5}), matrix.Column(0), activations.Sigmoid{}, 0.1)
		return NewWithConfig(Config{Verbosity: Silent, BatchMode: Averaged}, d), d
	}

	n, d := build()
	_, err := n.Train(
		[]*matrix.Matrix{matrix.Column(3), matrix.Column(1, 2)},
		[]*matrix.Matrix{matrix.Column(1), matrix.Column(1)},
		1, 2)
	require.ErrorIs(t, err, matrix.ErrShapeMismatch)
	assert.True(t, d.Weights().Equal(mustRows(t, []float64{0.5}), 0), "failed batch must not update")

	fresh, freshDense := build()
	inputs := []*matrix.Matrix{matrix.Column(1)}
	targets := []*matrix.Matrix{matrix.Column(0)}
	_, err = n.Train(inputs, targets, 1, 1)
	require.NoError(t, err)
	_, err = fresh.Train(inputs, targets, 1, 1)
	require.NoError(t, err)

	assert.True(t, d.Weights().Equal(freshDense.Weights(), 0), d.Weights().String())
	assert.True(t, d.Bias().Equal(freshDense.Bias(), 0), d.Bias().String())
}

type plainLayer struct{}

func (plainLayer) Forward(x *matrix.Matrix) (*matrix.Matrix, error)     { return x, nil }
func (plainLayer) Backward(grad *matrix.Matrix) (*matrix.Matrix, error) { return grad, nil }

func TestTrainAveragedNeedsAccumulator(t *testing.T) {
	inputs, targets := xorData()
	n := NewWithConfig(Config{BatchMode: Averaged}, plainLayer{})
	_, err := n.Train(inputs, targets, 1, 2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

// TestNormalizeLossGradient tests the (2/n) gradient seed.
func TestNormalizeLossGradient(t *testing.T) {
	w := mustRows(t, []float64{0.1, 0.2}, []float64{0.3, -0.1}, []float64{-0.2, 0.4}, []float64{0.5, 0.5})
	b := matrix.Column(0, 0.1, 0.2, -0.1)
	input, target := matrix.Column(1, 2), matrix.Column(0, 1, 0, 1)

	plain := dense(t, w, b, activations.Sigmoid{}, 0.1)
	normalized := dense(t, w, b, activations.Sigmoid{}, 0.1)

	_, err := New(plain).TrainStep(input, target)
	require.NoError(t, err)
	_, err = NewWithConfig(Config{NormalizeLossGradient: true}, normalized).TrainStep(input, target)
	require.NoError(t, err)

	dPlain, err := plain.Weights().Sub(w)
	require.NoError(t, err)
	dNorm, err := normalized.Weights().Sub(w)
	require.NoError(t, err)
	assert.True(t, dNorm.Equal(dPlain.Scale(0.5), 1e-12)) // 2/4
}

type recorder struct {
	BaseCallback
	events []string
	losses []float64
}

func (r *recorder) OnTrainBegin(n *Network)            { r.events = append(r.events, "begin") }
func (r *recorder) OnTrainEnd(n *Network)              { r.events = append(r.events, "end") }
func (r *recorder) OnEpochBegin(epoch int, n *Network) { r.events = append(r.events, "epoch") }
func (r *recorder) OnBatchEnd(batch int, loss float64, n *Network) {
	r.losses = append(r.losses, loss)
}

// TestCallbacks tests callback ordering and batch reporting.
func TestCallbacks(t *testing.T) {
	inputs, targets := xorData()
	n, _, _ := xorNetwork(t, Config{})
	r := &recorder{}
	n.AddCallback(r)

	_, err := n.Train(inputs, targets, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"begin", "epoch", "epoch", "end"}, r.events)
	assert.Len(t, r.losses, 4) // batches of 3 and 1, twice
}

// TestEarlyStopping tests that training ends once the loss stalls.
func TestEarlyStopping(t *testing.T) {
	inputs, targets := xorData()
	// No optimizer: the loss never changes.
	frozen := dense(t, mustRows(t, []float64{0.3, 0.3}), matrix.Column(0), activations.Sigmoid{}, 0)
	n := NewWithConfig(Config{Verbosity: Silent}, frozen)
	es := NewEarlyStopping(2, 1e-6)
	n.AddCallback(es)

	stats, err := n.Train(inputs, targets, 10, 2)
	require.NoError(t, err)
	assert.Len(t, stats, 3)
	assert.True(t, es.ShouldStop())
	assert.Equal(t, 3, es.StoppedEpoch())
	assert.InDelta(t, stats[0].Loss, es.BestLoss(), 1e-15)
}

// TestSchedulerCallback tests per-epoch learning rate decay.
func TestSchedulerCallback(t *testing.T) {
	inputs, targets := xorData()
	n, hidden, out := xorNetwork(t, Config{})
	sched := opt.NewStepLR(1, 0.5, hidden.Optimizer(), out.Optimizer())
	n.AddCallback(NewSchedulerCallback(sched))

	_, err := n.Train(inputs, targets, 2, 4)
	require.NoError(t, err)
	assert.InDelta(t, 0.025, sched.LearningRate(), 1e-15)
	assert.InDelta(t, 0.025, out.Optimizer().LearningRate(), 1e-15)
}

// TestCSVLogger tests the per-epoch training log.
func TestCSVLogger(t *testing.T) {
	inputs, targets := xorData()
	filename := filepath.Join(t.TempDir(), "train.csv")

	n, _, _ := xorNetwork(t, Config{})
	logger := NewCSVLogger(filename, false)
	n.AddCallback(logger)

	stats, err := n.Train(inputs, targets, 3, 2)
	require.NoError(t, err)
	require.NoError(t, logger.Err())

	file, err := os.Open(filename)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4) // header + 3 epochs
	assert.Equal(t, []string{"epoch", "loss", "accuracy", "time_seconds"}, records[0])
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "3", records[3][0])
	assert.Equal(t, "100.00", records[1][2])
	assert.Equal(t, strconv.FormatFloat(stats[2].Loss, 'f', 6, 64), records[3][1])
}

func TestCSVLoggerBadPath(t *testing.T) {
	inputs, targets := xorData()
	n, _, _ := xorNetwork(t, Config{})
	logger := NewCSVLogger(filepath.Join(t.TempDir(), "missing", "train.csv"), false)
	n.AddCallback(logger)

	_, err := n.Train(inputs, targets, 1, 4)
	require.NoError(t, err)
	assert.Error(t, logger.Err())
}

// TestSummary tests the architecture table.
func TestSummary(t *testing.T) {
	n, _, _ := xorNetwork(t, Config{})
	var buf bytes.Buffer
	n.Summary(&buf)

	s := buf.String()
	assert.Contains(t, s, "Dense/ReLU_0")
	assert.Contains(t, s, "Dense/Sigmoid_1")
	assert.Contains(t, s, "Total params: 13")
}

func TestParseVerbosity(t *testing.T) {
	for _, v := range []Verbosity{Silent, Minimal, Detailed} {
		got, err := ParseVerbosity(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	_, err := ParseVerbosity("loud")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	m, err := ParseBatchMode("averaged")
	require.NoError(t, err)
	assert.Equal(t, Averaged, m)
	_, err = ParseBatchMode("bulk")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
