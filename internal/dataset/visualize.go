package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/FlavioCFOliveira/backprop/internal/loss"
	"github.com/FlavioCFOliveira/backprop/internal/matrix"
)

// MNISTWidth is the side length of an MNIST digit.
const MNISTWidth = 28

const separator = "-------------------------"

// Visualize prints the actual and predicted class, the per-class confidence
// and an ASCII rendering of image, width pixels per line.
func Visualize(w io.Writer, image, prediction, target *matrix.Matrix, width int) error {
	if width < 1 || image.Len()%width != 0 {
		return fmt.Errorf("visualize: %d pixels do not fit width %d: %w", image.Len(), width, matrix.ErrShapeMismatch)
	}

	var b strings.Builder
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "Actual: %d, Predicted: %d\n", loss.ArgMax(target), loss.ArgMax(prediction))
	b.WriteString("Confidence:\n")
	for i, p := range prediction.Values() {
		fmt.Fprintf(&b, "%d: %.4f%%\n", i, p*100)
	}
	b.WriteString("Image:\n")
	b.WriteString(Render(image, width))
	b.WriteString(separator + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// Render draws image as ASCII art, one line per row of width pixels. A
// non-positive width means MNISTWidth.
func Render(image *matrix.Matrix, width int) string {
	if width < 1 {
		width = MNISTWidth
	}
	var b strings.Builder
	for i, p := range image.Values() {
		b.WriteByte(shade(p))
		if (i+1)%width == 0 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func shade(p float64) byte {
	switch {
	case p < 0.1:
		return ' '
	case p < 0.3:
		return '.'
	case p < 0.5:
		return '-'
	case p < 0.7:
		return '+'
	case p < 0.9:
		return '*'
	default:
		return '#'
	}
}
