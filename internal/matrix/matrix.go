// Package matrix provides the dense 2-D float64 container used by every
// other package: layer parameters, activations, gradients and samples.
//
// Storage is a flat row-major slice; the element at (i, j) lives at
// data[i*cols+j]. Matrices never share storage: constructors copy their
// input, operations allocate their result, and only the explicitly named
// InPlace methods mutate the receiver.
package matrix

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Matrix is a dense rows x cols matrix of float64.
type Matrix struct {
	rows int
	cols int
	data []float64
}

// Zeros returns a rows x cols matrix filled with zeros.
// It panics if either dimension is negative.
func Zeros(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("matrix: negative dimensions %dx%d", rows, cols))
	}
	return &Matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// New creates a rows x cols matrix from values given in row-major order.
// The slice is copied.
func New(rows, cols int, values []float64) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("New: negative dimensions %dx%d: %w", rows, cols, ErrConstruction)
	}
	if len(values) != rows*cols {
		return nil, fmt.Errorf("New: %d values for %dx%d: %w", len(values), rows, cols, ErrConstruction)
	}
	m := Zeros(rows, cols)
	copy(m.data, values)
	return m, nil
}

// Column creates a len(values) x 1 column vector.
func Column(values ...float64) *Matrix {
	m := Zeros(len(values), 1)
	copy(m.data, values)
	return m
}

// FromRows creates a matrix from a slice of equally long rows.
func FromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return Zeros(0, 0), nil
	}
	cols := len(rows[0])
	m := Zeros(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("FromRows: row %d has %d values, want %d: %w", i, len(r), cols, ErrConstruction)
		}
		copy(m.data[i*cols:], r)
	}
	return m, nil
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

// Shape returns (rows, cols).
func (m *Matrix) Shape() (int, int) { return m.rows, m.cols }

// Len returns rows*cols.
func (m *Matrix) Len() int { return len(m.data) }

// SameShape reports whether m and b have identical dimensions.
func (m *Matrix) SameShape(b *Matrix) bool {
	return m.rows == b.rows && m.cols == b.cols
}

// At returns the element at (i, j).
func (m *Matrix) At(i, j int) (float64, error) {
	if err := m.check("At", i, j); err != nil {
		return 0, err
	}
	return m.data[i*m.cols+j], nil
}

// Set writes v at (i, j).
func (m *Matrix) Set(i, j int, v float64) error {
	if err := m.check("Set", i, j); err != nil {
		return err
	}
	m.data[i*m.cols+j] = v
	return nil
}

func (m *Matrix) check(op string, i, j int) error {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		return fmt.Errorf("%s(%d,%d) on %dx%d: %w", op, i, j, m.rows, m.cols, ErrIndexOutOfRange)
	}
	return nil
}

// Values returns a row-major copy of the elements.
func (m *Matrix) Values() []float64 {
	out := make([]float64, len(m.data))
	copy(out, m.data)
	return out
}

// Clone returns an independent copy of m.
func (m *Matrix) Clone() *Matrix {
	return &Matrix{rows: m.rows, cols: m.cols, data: m.Values()}
}

// Equal reports whether m and b have the same shape and every pair of
// elements differs by at most tol.
func (m *Matrix) Equal(b *Matrix, tol float64) bool {
	if !m.SameShape(b) {
		return false
	}
	return floats.EqualApprox(m.data, b.data, tol)
}

// String renders the matrix one row per line.
func (m *Matrix) String() string {
	var sb strings.Builder
	for i := 0; i < m.rows; i++ {
		sb.WriteString("[")
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%g", m.data[i*m.cols+j])
		}
		sb.WriteString("]\n")
	}
	return sb.String()
}
