package callbacks

import (
	"fmt"
	"math"

	"github.com/tsawler/go-callbacks/training"
)

// NoDecrease stops training after Patience consecutive epochs in which the
// loss is strictly greater than the previous epoch's loss. The first epoch
// only seeds the history; an epoch that holds steady or improves resets the
// consecutive-error counter.
type NoDecrease struct {
	training.BaseCallback

	patience int

	losses     []float64
	epochCount int
	errorCount int
}

// NewNoDecrease creates the callback with the given patience. Patience 3
// reproduces the classic "stop after 3 consecutive non-decreasing epochs"
// heuristic.
func NewNoDecrease(patience int) (*NoDecrease, error) {
	if patience < 1 {
		return nil, fmt.Errorf("no-decrease: patience must be at least 1, got %d", patience)
	}
	return &NoDecrease{patience: patience}, nil
}

// OnTrainBegin resets the loss history and counters.
func (nd *NoDecrease) OnTrainBegin(ctrl *training.Control, logs training.Logs) error {
	nd.losses = nd.losses[:0]
	nd.epochCount = 0
	nd.errorCount = 0
	return nil
}

// OnEpochEnd appends the epoch loss and compares it against the previous one.
func (nd *NoDecrease) OnEpochEnd(ctrl *training.Control, epoch int, logs training.Logs) error {
	loss, ok := logs.Loss()
	if !ok {
		return nil
	}

	nd.losses = append(nd.losses, loss)
	if nd.epochCount > 0 {
		if nd.losses[nd.epochCount-1] < nd.losses[nd.epochCount] {
			nd.errorCount++
			if nd.errorCount == nd.patience {
				ctrl.RequestStop(fmt.Sprintf("loss did not decrease for %d consecutive epochs", nd.patience))
			}
		} else {
			nd.errorCount = 0
		}
	}
	nd.epochCount++
	return nil
}

// ErrorCount returns the current consecutive non-decreasing epoch count.
func (nd *NoDecrease) ErrorCount() int {
	return nd.errorCount
}

// Plateau stops training once the best observed loss has not improved by at
// least MinDelta for Patience consecutive epochs.
type Plateau struct {
	training.BaseCallback

	patience int
	minDelta float64

	bestLoss        float64
	seen            bool
	patienceCounter int
}

// NewPlateau creates the callback. An epoch counts as an improvement when
// its loss is below bestLoss - minDelta.
func NewPlateau(patience int, minDelta float64) (*Plateau, error) {
	if patience < 1 {
		return nil, fmt.Errorf("plateau: patience must be at least 1, got %d", patience)
	}
	if minDelta < 0 {
		return nil, fmt.Errorf("plateau: minDelta must not be negative, got %g", minDelta)
	}
	return &Plateau{patience: patience, minDelta: minDelta}, nil
}

// OnTrainBegin resets the best-loss tracking.
func (p *Plateau) OnTrainBegin(ctrl *training.Control, logs training.Logs) error {
	p.bestLoss = 0
	p.seen = false
	p.patienceCounter = 0
	return nil
}

// OnEpochEnd updates the best loss or the patience counter.
func (p *Plateau) OnEpochEnd(ctrl *training.Control, epoch int, logs training.Logs) error {
	loss, ok := logs.Loss()
	if !ok {
		return nil
	}

	if !p.seen {
		p.bestLoss = loss
		p.seen = true
		return nil
	}

	if loss < p.bestLoss-p.minDelta {
		p.bestLoss = loss
		p.patienceCounter = 0
		return nil
	}

	p.patienceCounter++
	if p.patienceCounter >= p.patience {
		ctrl.RequestStop(fmt.Sprintf("loss plateaued: no improvement beyond %g for %d epochs (best %.6f)",
			p.minDelta, p.patience, p.bestLoss))
	}
	return nil
}

// BestLoss returns the best epoch loss seen so far and whether any epoch has
// been observed.
func (p *Plateau) BestLoss() (float64, bool) {
	return p.bestLoss, p.seen
}

// MonotonicIncrease stops training when the epoch loss rises strictly for
// Window consecutive steps, i.e. the last Window+1 losses form a strictly
// increasing run.
type MonotonicIncrease struct {
	training.BaseCallback

	window int

	prev     float64
	seen     bool
	runCount int
}

// NewMonotonicIncrease creates the callback with the given window.
func NewMonotonicIncrease(window int) (*MonotonicIncrease, error) {
	if window < 1 {
		return nil, fmt.Errorf("monotonic-increase: window must be at least 1, got %d", window)
	}
	return &MonotonicIncrease{window: window}, nil
}

// OnTrainBegin resets the increasing-run tracking.
func (mi *MonotonicIncrease) OnTrainBegin(ctrl *training.Control, logs training.Logs) error {
	mi.seen = false
	mi.prev = 0
	mi.runCount = 0
	return nil
}

// OnEpochEnd extends or resets the strictly-increasing run.
func (mi *MonotonicIncrease) OnEpochEnd(ctrl *training.Control, epoch int, logs training.Logs) error {
	loss, ok := logs.Loss()
	if !ok {
		return nil
	}

	if mi.seen {
		if loss > mi.prev {
			mi.runCount++
			if mi.runCount >= mi.window {
				ctrl.RequestStop(fmt.Sprintf("loss increased monotonically for %d consecutive epochs", mi.window))
			}
		} else {
			mi.runCount = 0
		}
	}
	mi.prev = loss
	mi.seen = true
	return nil
}

// Oscillation stops training when the epoch-loss delta alternates sign for
// Window consecutive steps with every swing at least MinAmplitude in
// magnitude. Swings smaller than MinAmplitude, or two moves in the same
// direction, reset the detector.
type Oscillation struct {
	training.BaseCallback

	window       int
	minAmplitude float64

	prev      float64
	seen      bool
	lastDelta float64
	haveDelta bool
	swings    int
}

// NewOscillation creates the callback.
func NewOscillation(window int, minAmplitude float64) (*Oscillation, error) {
	if window < 2 {
		return nil, fmt.Errorf("oscillation: window must be at least 2, got %d", window)
	}
	if minAmplitude < 0 {
		return nil, fmt.Errorf("oscillation: minAmplitude must not be negative, got %g", minAmplitude)
	}
	return &Oscillation{window: window, minAmplitude: minAmplitude}, nil
}

// OnTrainBegin resets the swing tracking.
func (o *Oscillation) OnTrainBegin(ctrl *training.Control, logs training.Logs) error {
	o.seen = false
	o.haveDelta = false
	o.prev = 0
	o.lastDelta = 0
	o.swings = 0
	return nil
}

// OnEpochEnd classifies the latest loss move and counts alternating swings.
func (o *Oscillation) OnEpochEnd(ctrl *training.Control, epoch int, logs training.Logs) error {
	loss, ok := logs.Loss()
	if !ok {
		return nil
	}

	if !o.seen {
		o.prev = loss
		o.seen = true
		return nil
	}

	delta := loss - o.prev
	o.prev = loss

	if math.Abs(delta) < o.minAmplitude || delta == 0 {
		o.haveDelta = false
		o.swings = 0
		return nil
	}

	if o.haveDelta && delta*o.lastDelta < 0 {
		o.swings++
	} else {
		o.swings = 1
	}
	o.lastDelta = delta
	o.haveDelta = true

	if o.swings >= o.window {
		ctrl.RequestStop(fmt.Sprintf("loss oscillated for %d consecutive epochs (amplitude >= %g)",
			o.window, o.minAmplitude))
	}
	return nil
}
