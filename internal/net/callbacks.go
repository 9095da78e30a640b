package net

import (
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/backprop/internal/opt"
)

// Callback defines the interface for training callbacks.
type Callback interface {
	OnTrainBegin(n *Network)
	OnTrainEnd(n *Network)
	OnEpochBegin(epoch int, n *Network)
	OnEpochEnd(epoch int, stats EpochStats, n *Network)
	OnBatchEnd(batch int, loss float64, n *Network)
}

// Stopper is implemented by callbacks that can end training early. Train
// checks it after every epoch.
type Stopper interface {
	ShouldStop() bool
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (BaseCallback) OnTrainBegin(n *Network)                            {}
func (BaseCallback) OnTrainEnd(n *Network)                              {}
func (BaseCallback) OnEpochBegin(epoch int, n *Network)                 {}
func (BaseCallback) OnEpochEnd(epoch int, stats EpochStats, n *Network) {}
func (BaseCallback) OnBatchEnd(batch int, loss float64, n *Network)     {}

// SchedulerCallback steps a learning rate scheduler at the end of every
// epoch. Loss-driven schedulers receive the epoch loss.
type SchedulerCallback struct {
	BaseCallback
	scheduler opt.Scheduler
}

func NewSchedulerCallback(scheduler opt.Scheduler) *SchedulerCallback {
	return &SchedulerCallback{scheduler: scheduler}
}

func (c *SchedulerCallback) OnEpochEnd(epoch int, stats EpochStats, n *Network) {
	c.scheduler.Step()
	c.scheduler.StepWithLoss(stats.Loss)
}

// EarlyStopping stops training when the epoch loss has not improved by more
// than Threshold for Patience consecutive epochs.
type EarlyStopping struct {
	BaseCallback
	Patience  int
	Threshold float64

	bestLoss     float64
	numBadEpochs int
	stopped      bool
	stoppedAt    int
}

func NewEarlyStopping(patience int, threshold float64) *EarlyStopping {
	return &EarlyStopping{
		Patience:  patience,
		Threshold: threshold,
		bestLoss:  math.Inf(1),
	}
}

func (c *EarlyStopping) OnTrainBegin(n *Network) {
	c.bestLoss = math.Inf(1)
	c.numBadEpochs = 0
	c.stopped = false
	c.stoppedAt = 0
}

func (c *EarlyStopping) OnEpochEnd(epoch int, stats EpochStats, n *Network) {
	if stats.Loss < c.bestLoss-c.Threshold {
		c.bestLoss = stats.Loss
		c.numBadEpochs = 0
	} else {
		c.numBadEpochs++
	}

	if c.numBadEpochs >= c.Patience {
		if n.cfg.Verbosity >= Minimal {
			fmt.Fprintf(n.out(), "Early stopping at epoch %d: loss %.6f did not improve for %d epochs\n",
				epoch, stats.Loss, c.Patience)
		}
		c.stopped = true
		c.stoppedAt = epoch
	}
}

// ShouldStop implements Stopper.
func (c *EarlyStopping) ShouldStop() bool { return c.stopped }

// StoppedEpoch returns the epoch training stopped at, or 0.
func (c *EarlyStopping) StoppedEpoch() int { return c.stoppedAt }

// BestLoss returns the lowest epoch loss seen.
func (c *EarlyStopping) BestLoss() float64 { return c.bestLoss }
