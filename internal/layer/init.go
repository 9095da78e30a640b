package layer

import (
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/FlavioCFOliveira/backprop/internal/matrix"
)

// Init selects the weight initialization scheme.
type Init int

const (
	// XavierUniform draws from U(-√(6/(in+out)), √(6/(in+out))). Suits tanh/sigmoid.
	XavierUniform Init = iota
	// XavierNormal draws from N(0, √(2/(in+out))).
	XavierNormal
	// HeUniform draws from U(-√(6/in), √(6/in)). Suits ReLU.
	HeUniform
	// HeNormal draws from N(0, √(2/in)).
	HeNormal
	// Zero sets every weight to 0.
	Zero
)

func (i Init) String() string {
	switch i {
	case XavierUniform:
		return "xavier_uniform"
	case XavierNormal:
		return "xavier_normal"
	case HeUniform:
		return "he_uniform"
	case HeNormal:
		return "he_normal"
	case Zero:
		return "zero"
	default:
		return "unknown"
	}
}

// Config configures a Dense layer. The zero value gives Xavier-uniform
// weights, learning rate 0.01 and a clock-seeded random source.
type Config struct {
	// LearningRate is informational; the attached optimizer's rate is used
	// for updates.
	LearningRate float64
	Init         Init

	// Seed seeds the initializer when Source is nil. Zero means "seed from
	// the clock"; set it (or Source) for reproducible weights.
	Seed   uint64
	Source rand.Source
}

func (c Config) source() rand.Source {
	switch {
	case c.Source != nil:
		return c.Source
	case c.Seed != 0:
		return rand.NewSource(c.Seed)
	default:
		return rand.NewSource(uint64(time.Now().UnixNano()))
	}
}

type sampler interface {
	Rand() float64
}

// initWeights returns an (out x in) weight matrix for the given scheme.
func initWeights(scheme Init, in, out int, src rand.Source) *matrix.Matrix {
	var dist sampler
	switch scheme {
	case XavierUniform:
		bound := math.Sqrt(6.0 / float64(in+out))
		dist = distuv.Uniform{Min: -bound, Max: bound, Src: src}
	case XavierNormal:
		dist = distuv.Normal{Mu: 0, Sigma: math.Sqrt(2.0 / float64(in+out)), Src: src}
	case HeUniform:
		bound := math.Sqrt(6.0 / float64(in))
		dist = distuv.Uniform{Min: -bound, Max: bound, Src: src}
	case HeNormal:
		dist = distuv.Normal{Mu: 0, Sigma: math.Sqrt(2.0 / float64(in)), Src: src}
	default:
		return matrix.Zeros(out, in)
	}

	values := make([]float64, out*in)
	for i := range values {
		values[i] = dist.Rand()
	}
	w, _ := matrix.New(out, in, values)
	return w
}
