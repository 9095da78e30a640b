// Package dataset loads training data into column matrices: MNIST-style IDX
// files and CSV tables. It also renders predictions on a terminal.
package dataset

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/FlavioCFOliveira/backprop/internal/matrix"
)

// ErrFormat is returned for malformed or truncated input files.
var ErrFormat = errors.New("dataset: bad format")

const (
	imageMagic = 0x00000803 // 2051
	labelMagic = 0x00000801 // 2049

	// maxImageSize bounds rows*cols so a corrupt header cannot force a huge
	// allocation.
	maxImageSize = 1 << 24
	// prealloc caps slice capacity taken from an untrusted header count.
	prealloc = 1024
)

// imageHeader is the 16-byte IDX image header. All fields are big endian.
type imageHeader struct {
	Magic, Count, Rows, Cols uint32
}

// labelHeader is the 8-byte IDX label header.
type labelHeader struct {
	Magic, Count uint32
}

// LoadIDXImages reads an IDX image file. See ReadIDXImages.
func LoadIDXImages(path string, limit int) ([]*matrix.Matrix, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open images: %w", err)
	}
	defer file.Close()

	images, err := ReadIDXImages(file, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return images, nil
}

// ReadIDXImages decodes IDX images into (rows*cols x 1) columns with pixels
// scaled to [0, 1]. At most limit images are read; limit <= 0 reads all.
func ReadIDXImages(r io.Reader, limit int) ([]*matrix.Matrix, error) {
	br := bufio.NewReader(r)

	var h imageHeader
	if err := binary.Read(br, binary.BigEndian, &h); err != nil {
		return nil, fmt.Errorf("read image header: %v: %w", err, ErrFormat)
	}
	if h.Magic != imageMagic {
		return nil, fmt.Errorf("invalid image magic number: got %#x, want %#x: %w", h.Magic, imageMagic, ErrFormat)
	}

	if h.Rows == 0 || h.Cols == 0 || uint64(h.Rows)*uint64(h.Cols) > maxImageSize {
		return nil, fmt.Errorf("invalid image size %dx%d: %w", h.Rows, h.Cols, ErrFormat)
	}
	count := clamp(int(h.Count), limit)
	size := int(h.Rows) * int(h.Cols)
	pixels := make([]byte, size)
	values := make([]float64, size)

	images := make([]*matrix.Matrix, 0, min(count, prealloc))
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(br, pixels); err != nil {
			return nil, fmt.Errorf("read image %d: %v: %w", i, err, ErrFormat)
		}
		for j, p := range pixels {
			values[j] = float64(p) / 255
		}
		img, err := matrix.New(size, 1, values)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

// LoadIDXLabels reads an IDX label file. See ReadIDXLabels.
func LoadIDXLabels(path string, classes, limit int) ([]*matrix.Matrix, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer file.Close()

	labels, err := ReadIDXLabels(file, classes, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return labels, nil
}

// ReadIDXLabels decodes IDX labels into one-hot (classes x 1) columns. A
// label outside [0, classes) is an ErrFormat.
func ReadIDXLabels(r io.Reader, classes, limit int) ([]*matrix.Matrix, error) {
	if classes < 1 {
		return nil, fmt.Errorf("classes %d: %w", classes, ErrFormat)
	}
	br := bufio.NewReader(r)

	var h labelHeader
	if err := binary.Read(br, binary.BigEndian, &h); err != nil {
		return nil, fmt.Errorf("read label header: %v: %w", err, ErrFormat)
	}
	if h.Magic != labelMagic {
		return nil, fmt.Errorf("invalid label magic number: got %#x, want %#x: %w", h.Magic, labelMagic, ErrFormat)
	}

	count := clamp(int(h.Count), limit)
	chunk := make([]byte, min(count, prealloc))
	labels := make([]*matrix.Matrix, 0, min(count, prealloc))
	for len(labels) < count {
		raw := chunk[:min(count-len(labels), len(chunk))]
		if _, err := io.ReadFull(br, raw); err != nil {
			return nil, fmt.Errorf("read labels: %v: %w", err, ErrFormat)
		}
		for _, l := range raw {
			if int(l) >= classes {
				return nil, fmt.Errorf("label %d at %d exceeds %d classes: %w", l, len(labels), classes, ErrFormat)
			}
			m, _ := OneHot(int(l), classes)
			labels = append(labels, m)
		}
	}
	return labels, nil
}

// OneHot returns a (classes x 1) column with a 1 at index class.
func OneHot(class, classes int) (*matrix.Matrix, error) {
	if classes < 1 {
		return nil, fmt.Errorf("classes %d: %w", classes, ErrFormat)
	}
	m := matrix.Zeros(classes, 1)
	if err := m.Set(class, 0, 1); err != nil {
		return nil, err
	}
	return m, nil
}

func clamp(count, limit int) int {
	if limit > 0 && limit < count {
		return limit
	}
	return count
}
