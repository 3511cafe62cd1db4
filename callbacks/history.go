// Package callbacks provides stateful loss-observing callbacks for the
// training lifecycle: an append-only loss history recorder and a family of
// early-stopping heuristics (consecutive non-decreasing loss, plateau,
// monotonic increase, oscillation, NaN termination). Each callback resets its
// state when training begins and requests a stop through the host-observed
// Control when its threshold heuristic fires.
package callbacks

import (
	"github.com/tsawler/go-callbacks/training"
)

// History records every loss value the host reports: one entry per batch and
// one per epoch. The sequences are append-only and reset when training
// begins.
type History struct {
	training.BaseCallback

	batchLosses []float64
	epochLosses []float64
}

// NewHistory creates an empty loss history recorder.
func NewHistory() *History {
	return &History{
		batchLosses: make([]float64, 0),
		epochLosses: make([]float64, 0),
	}
}

// OnTrainBegin resets both sequences.
func (h *History) OnTrainBegin(ctrl *training.Control, logs training.Logs) error {
	h.batchLosses = h.batchLosses[:0]
	h.epochLosses = h.epochLosses[:0]
	return nil
}

// OnBatchEnd appends the batch loss, if present.
func (h *History) OnBatchEnd(ctrl *training.Control, batch int, logs training.Logs) error {
	if loss, ok := logs.Loss(); ok {
		h.batchLosses = append(h.batchLosses, loss)
	}
	return nil
}

// OnEpochEnd appends the epoch loss, if present.
func (h *History) OnEpochEnd(ctrl *training.Control, epoch int, logs training.Logs) error {
	if loss, ok := logs.Loss(); ok {
		h.epochLosses = append(h.epochLosses, loss)
	}
	return nil
}

// BatchLosses returns the per-batch loss sequence recorded so far.
func (h *History) BatchLosses() []float64 {
	return h.batchLosses
}

// EpochLosses returns the per-epoch loss sequence recorded so far.
func (h *History) EpochLosses() []float64 {
	return h.epochLosses
}

// LastEpochLoss returns the most recent epoch loss and whether one exists.
func (h *History) LastEpochLoss() (float64, bool) {
	if len(h.epochLosses) == 0 {
		return 0, false
	}
	return h.epochLosses[len(h.epochLosses)-1], true
}
