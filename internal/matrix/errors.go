package matrix

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by matrix operations. Callers match them with
// errors.Is; the returned errors carry the operation and shapes involved.
var (
	// ErrShapeMismatch is returned when operand dimensions violate the
	// operation's shape contract (Add on different shapes, Mul where
	// a.Cols != b.Rows, ...).
	ErrShapeMismatch = errors.New("matrix: shape mismatch")

	// ErrIndexOutOfRange is returned by At/Set outside [0,rows)x[0,cols).
	ErrIndexOutOfRange = errors.New("matrix: index out of range")

	// ErrConstruction is returned when a flat value sequence does not hold
	// exactly rows*cols values.
	ErrConstruction = errors.New("matrix: construction error")
)

func shapeErrorf(op string, a, b *Matrix) error {
	return fmt.Errorf("%s: (%dx%d) vs (%dx%d): %w", op, a.rows, a.cols, b.rows, b.cols, ErrShapeMismatch)
}
