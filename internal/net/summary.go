package net

import (
	"fmt"
	"io"
	"strings"

	"github.com/FlavioCFOliveira/backprop/internal/activations"
	"github.com/FlavioCFOliveira/backprop/internal/layer"
)

const rule = "_________________________________________________________________"

// Summary prints a summary of the network architecture.
func (n *Network) Summary(w io.Writer) {
	fmt.Fprintln(w, "Model: Network")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-25s %-20s %-10s\n", "Layer (type)", "Output Shape", "Param #")
	fmt.Fprintln(w, strings.Repeat("=", len(rule)))

	total := 0
	for i, l := range n.layers {
		name := fmt.Sprintf("%T", l)
		if j := strings.LastIndexByte(name, '.'); j >= 0 {
			name = name[j+1:]
		}
		shape, params := "(?)", 0
		if d, ok := l.(*layer.Dense); ok {
			name += "/" + activations.Name(d.Activation())
			shape = fmt.Sprintf("(%d)", d.OutSize())
			params = d.ParamCount()
		}
		total += params

		fmt.Fprintf(w, "%-25s %-20s %-10d\n", fmt.Sprintf("%s_%d", name, i), shape, params)
	}
	fmt.Fprintln(w, strings.Repeat("=", len(rule)))
	fmt.Fprintf(w, "Total params: %d\n", total)
	fmt.Fprintln(w, rule)
}
