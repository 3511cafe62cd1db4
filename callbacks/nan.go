package callbacks

import (
	"fmt"
	"math"

	"github.com/tsawler/go-callbacks/training"
)

// TerminateOnNaN stops training the moment a reported loss is NaN or
// infinite, checked on every batch and every epoch.
type TerminateOnNaN struct {
	training.BaseCallback
}

// NewTerminateOnNaN creates the callback.
func NewTerminateOnNaN() *TerminateOnNaN {
	return &TerminateOnNaN{}
}

// OnBatchEnd checks the batch loss.
func (tn *TerminateOnNaN) OnBatchEnd(ctrl *training.Control, batch int, logs training.Logs) error {
	if loss, ok := logs.Loss(); ok && !isFinite(loss) {
		ctrl.RequestStop(fmt.Sprintf("non-finite loss %v at batch %d", loss, batch))
	}
	return nil
}

// OnEpochEnd checks the epoch loss.
func (tn *TerminateOnNaN) OnEpochEnd(ctrl *training.Control, epoch int, logs training.Logs) error {
	if loss, ok := logs.Loss(); ok && !isFinite(loss) {
		ctrl.RequestStop(fmt.Sprintf("non-finite loss %v at epoch %d", loss, epoch))
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
