package matrix

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Add returns m + b.
func (m *Matrix) Add(b *Matrix) (*Matrix, error) {
	if !m.SameShape(b) {
		return nil, shapeErrorf("Add", m, b)
	}
	out := Zeros(m.rows, m.cols)
	floats.AddTo(out.data, m.data, b.data)
	return out, nil
}

// AddInPlace adds b into m.
func (m *Matrix) AddInPlace(b *Matrix) error {
	if !m.SameShape(b) {
		return shapeErrorf("AddInPlace", m, b)
	}
	floats.Add(m.data, b.data)
	return nil
}

// Sub returns m - b.
func (m *Matrix) Sub(b *Matrix) (*Matrix, error) {
	if !m.SameShape(b) {
		return nil, shapeErrorf("Sub", m, b)
	}
	out := Zeros(m.rows, m.cols)
	floats.SubTo(out.data, m.data, b.data)
	return out, nil
}

// Scale returns k*m.
func (m *Matrix) Scale(k float64) *Matrix {
	out := Zeros(m.rows, m.cols)
	floats.ScaleTo(out.data, k, m.data)
	return out
}

// ScaleInPlace multiplies every element of m by k.
func (m *Matrix) ScaleInPlace(k float64) {
	floats.Scale(k, m.data)
}

// Hadamard returns the elementwise product of m and b.
func (m *Matrix) Hadamard(b *Matrix) (*Matrix, error) {
	if !m.SameShape(b) {
		return nil, shapeErrorf("Hadamard", m, b)
	}
	out := Zeros(m.rows, m.cols)
	floats.MulTo(out.data, m.data, b.data)
	return out, nil
}

// Mul returns the matrix product m·b.
func (m *Matrix) Mul(b *Matrix) (*Matrix, error) {
	if m.cols != b.rows {
		return nil, shapeErrorf("Mul", m, b)
	}
	// gonum rejects zero-sized matrices; an empty inner dimension sums to zero.
	if m.rows == 0 || m.cols == 0 || b.cols == 0 {
		return Zeros(m.rows, b.cols), nil
	}
	var prod mat.Dense
	prod.Mul(m.dense(), b.dense())
	return fromDense(&prod), nil
}

// Transpose returns the cols x rows transpose of m.
func (m *Matrix) Transpose() *Matrix {
	if m.rows == 0 || m.cols == 0 {
		return Zeros(m.cols, m.rows)
	}
	return fromDense(mat.DenseCopyOf(m.dense().T()))
}

// Apply returns a new matrix with fn applied to every element.
func (m *Matrix) Apply(fn func(float64) float64) *Matrix {
	out := Zeros(m.rows, m.cols)
	for i, v := range m.data {
		out.data[i] = fn(v)
	}
	return out
}

// Fill sets every element to v.
func (m *Matrix) Fill(v float64) {
	for i := range m.data {
		m.data[i] = v
	}
}

// CopyFrom overwrites m with the contents of b.
func (m *Matrix) CopyFrom(b *Matrix) error {
	if !m.SameShape(b) {
		return shapeErrorf("CopyFrom", m, b)
	}
	copy(m.data, b.data)
	return nil
}

// dense wraps m's storage in a gonum view. The view aliases m and must not
// escape the calling operation.
func (m *Matrix) dense() *mat.Dense {
	return mat.NewDense(m.rows, m.cols, m.data)
}

func fromDense(d *mat.Dense) *Matrix {
	r, c := d.Dims()
	raw := d.RawMatrix()
	out := Zeros(r, c)
	for i := 0; i < r; i++ {
		copy(out.data[i*c:(i+1)*c], raw.Data[i*raw.Stride:i*raw.Stride+c])
	}
	return out
}
