package opt

import "math"

// Scheduler defines the interface for learning rate schedulers.
//
// A scheduler drives one or more optimizers; networks usually give every
// layer its own optimizer, so all of them are adjusted together.
type Scheduler interface {
	Step()
	StepWithLoss(loss float64)
	LearningRate() float64
}

type group []Optimizer

func (g group) scale(factor, floor float64) {
	for _, o := range g {
		lr := o.LearningRate() * factor
		if lr < floor {
			lr = floor
		}
		o.SetLearningRate(lr)
	}
}

func (g group) lr() float64 {
	if len(g) == 0 {
		return 0
	}
	return g[0].LearningRate()
}

// StepLR decays the learning rate by gamma every stepSize epochs.
type StepLR struct {
	optimizers group
	stepSize   int
	gamma      float64
	lastEpoch  int
}

// NewStepLR creates a StepLR over the given optimizers.
func NewStepLR(stepSize int, gamma float64, optimizers ...Optimizer) *StepLR {
	if stepSize < 1 {
		stepSize = 1
	}
	return &StepLR{optimizers: optimizers, stepSize: stepSize, gamma: gamma}
}

func (s *StepLR) Step() {
	s.lastEpoch++
	if s.lastEpoch%s.stepSize == 0 {
		s.optimizers.scale(s.gamma, 0)
	}
}

func (s *StepLR) StepWithLoss(float64) {}

func (s *StepLR) LearningRate() float64 { return s.optimizers.lr() }

// ExponentialLR decays the learning rate by gamma every epoch.
type ExponentialLR struct {
	optimizers group
	gamma      float64
}

// NewExponentialLR creates an ExponentialLR over the given optimizers.
func NewExponentialLR(gamma float64, optimizers ...Optimizer) *ExponentialLR {
	return &ExponentialLR{optimizers: optimizers, gamma: gamma}
}

func (s *ExponentialLR) Step() { s.optimizers.scale(s.gamma, 0) }

func (s *ExponentialLR) StepWithLoss(float64) {}

func (s *ExponentialLR) LearningRate() float64 { return s.optimizers.lr() }

// ReduceLROnPlateau reduces the learning rate when the loss has stopped improving.
type ReduceLROnPlateau struct {
	optimizers group
	factor     float64
	patience   int
	threshold  float64
	cooldown   int
	minLR      float64

	bestLoss        float64
	numBadEpochs    int
	cooldownCounter int
}

// NewReduceLROnPlateau multiplies the learning rate by factor after patience
// epochs without an improvement larger than threshold, never going below minLR.
func NewReduceLROnPlateau(factor float64, patience int, threshold, minLR float64, optimizers ...Optimizer) *ReduceLROnPlateau {
	return &ReduceLROnPlateau{
		optimizers: optimizers,
		factor:     factor,
		patience:   patience,
		threshold:  threshold,
		minLR:      minLR,
		bestLoss:   math.MaxFloat64,
	}
}

// SetCooldown sets the number of epochs to wait after a reduction.
func (s *ReduceLROnPlateau) SetCooldown(epochs int) { s.cooldown = epochs }

func (s *ReduceLROnPlateau) Step() {}

func (s *ReduceLROnPlateau) StepWithLoss(loss float64) {
	if s.cooldownCounter > 0 {
		s.cooldownCounter--
		return
	}

	if loss < s.bestLoss-s.threshold {
		s.bestLoss = loss
		s.numBadEpochs = 0
	} else {
		s.numBadEpochs++
	}

	if s.numBadEpochs >= s.patience {
		s.optimizers.scale(s.factor, s.minLR)
		s.numBadEpochs = 0
		s.cooldownCounter = s.cooldown
	}
}

func (s *ReduceLROnPlateau) LearningRate() float64 { return s.optimizers.lr() }
