package backprop_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/backprop/backprop"
)

func TestFacadeTrain(t *testing.T) {
	hidden := backprop.Dense(2, 4, backprop.Tanh, 0.1, 0.5, backprop.LayerConfig{Init: backprop.XavierUniform, Seed: 7})
	out := backprop.Dense(4, 1, backprop.Sigmoid, 0.1, 0.5, backprop.LayerConfig{Init: backprop.XavierUniform, Seed: 8})

	var buf bytes.Buffer
	n := backprop.NewWithConfig(backprop.Config{Verbosity: backprop.Minimal, Output: &buf}, hidden, out)

	inputs := []*backprop.Matrix{backprop.Column(0, 0), backprop.Column(1, 1)}
	targets := []*backprop.Matrix{backprop.Column(0), backprop.Column(1)}

	stats, err := n.Train(inputs, targets, 50, 2)
	require.NoError(t, err)
	require.Len(t, stats, 50)
	assert.Less(t, stats[49].Loss, stats[0].Loss)
	assert.Contains(t, buf.String(), "Epoch 50/50")
}

func TestFacadeErrors(t *testing.T) {
	_, err := backprop.New().Forward(backprop.Column(1))
	assert.ErrorIs(t, err, backprop.ErrEmptyNetwork)

	_, err = backprop.NewMatrix(2, 2, []float64{1})
	assert.ErrorIs(t, err, backprop.ErrConstruction)

	assert.Equal(t, 2, backprop.ArgMax(backprop.Column(0, 1, 3)))
}
