package dataset

import (
	"golang.org/x/exp/rand"

	"github.com/FlavioCFOliveira/backprop/internal/matrix"
)

// digitPatterns are 5x3 glyphs for the digits 0-9, row-major.
var digitPatterns = [10][15]float64{
	{1, 1, 1, 1, 0, 1, 1, 0, 1, 1, 0, 1, 1, 1, 1},
	{0, 1, 0, 1, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0},
	{1, 1, 1, 0, 0, 1, 1, 1, 1, 1, 0, 0, 1, 1, 1},
	{1, 1, 1, 0, 0, 1, 0, 1, 1, 0, 0, 1, 1, 1, 1},
	{1, 0, 1, 1, 0, 1, 1, 1, 1, 0, 0, 1, 0, 0, 1},
	{1, 1, 1, 1, 0, 0, 1, 1, 1, 0, 0, 1, 1, 1, 1},
	{1, 1, 1, 1, 0, 0, 1, 1, 1, 1, 0, 1, 1, 1, 1},
	{1, 1, 1, 0, 0, 1, 0, 1, 0, 0, 1, 0, 0, 1, 0},
	{1, 1, 1, 1, 0, 1, 1, 1, 1, 1, 0, 1, 1, 1, 1},
	{1, 1, 1, 1, 0, 1, 1, 1, 1, 0, 0, 1, 1, 1, 1},
}

const (
	glyphCols = 3
	glyphRows = 5
	cell      = 5 // pixels per glyph cell; 5x3 cells fill 25x15 of the 28x28 canvas
)

// SyntheticDigits generates n noisy 28x28 digit images (digit i%10) with
// one-hot labels. It stands in for MNIST when the IDX files are missing.
func SyntheticDigits(n int, seed uint64) (images, labels []*matrix.Matrix) {
	r := rand.New(rand.NewSource(seed))
	images = make([]*matrix.Matrix, n)
	labels = make([]*matrix.Matrix, n)

	pixels := make([]float64, MNISTWidth*MNISTWidth)
	for i := 0; i < n; i++ {
		digit := i % 10
		for p := range pixels {
			pixels[p] = 0
		}
		glyph := digitPatterns[digit]
		for gy := 0; gy < glyphRows; gy++ {
			for gx := 0; gx < glyphCols; gx++ {
				if glyph[gy*glyphCols+gx] == 0 {
					continue
				}
				for sy := 0; sy < cell; sy++ {
					for sx := 0; sx < cell; sx++ {
						pos := (1+gy*cell+sy)*MNISTWidth + 6 + gx*cell + sx
						pixels[pos] = 0.9 + r.Float64()*0.1
					}
				}
			}
		}
		images[i], _ = matrix.New(len(pixels), 1, pixels)
		labels[i], _ = OneHot(digit, 10)
	}
	return images, labels
}
