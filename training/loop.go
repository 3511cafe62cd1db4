package training

import (
	"fmt"
	"time"
)

// LoopConfig holds configuration for the reference training loop
type LoopConfig struct {
	Epochs        int
	StepsPerEpoch int
	PrintEvery    int  // Print running stats every N batches (0 = never)
	Quiet         bool // Suppress epoch summaries
}

// EpochMetrics holds metrics for a single epoch
type EpochMetrics struct {
	Epoch         int
	Loss          float64
	EpochDuration time.Duration
	BatchCount    int
}

// StepFunc computes one training step and returns the batch loss. The host
// owns the model and the optimizer step; the loop only observes the loss.
type StepFunc func(epoch, batch int) (float64, error)

// Loop is a reference host driver for the callback lifecycle. It runs a
// StepFunc for a fixed number of epochs and batches, feeds per-batch and
// per-epoch loss values to the registered callbacks, and honors the stop
// flag after every hook invocation.
type Loop struct {
	config    LoopConfig
	callbacks *CallbackList
	control   *Control
	metrics   []EpochMetrics
}

// NewLoop creates a new Loop with the given callbacks in dispatch order.
func NewLoop(config LoopConfig, callbacks ...Callback) (*Loop, error) {
	if config.Epochs < 1 {
		return nil, fmt.Errorf("loop config: Epochs must be at least 1, got %d", config.Epochs)
	}
	if config.StepsPerEpoch < 1 {
		return nil, fmt.Errorf("loop config: StepsPerEpoch must be at least 1, got %d", config.StepsPerEpoch)
	}
	if config.PrintEvery < 0 {
		return nil, fmt.Errorf("loop config: PrintEvery must not be negative, got %d", config.PrintEvery)
	}
	return &Loop{
		config:    config,
		callbacks: NewCallbackList(callbacks...),
		control:   &Control{},
		metrics:   make([]EpochMetrics, 0),
	}, nil
}

// Run executes the training loop until all epochs complete or a callback
// requests a stop. OnTrainEnd runs on both outcomes; it does not run when a
// step or a hook returns an error.
func (l *Loop) Run(step StepFunc) error {
	if step == nil {
		return fmt.Errorf("loop: step function is nil")
	}

	l.control.reset()
	l.metrics = l.metrics[:0]

	if err := l.callbacks.TrainBegin(l.control, Logs{}); err != nil {
		return err
	}

	var lastEpochLoss float64

	for epoch := 0; epoch < l.config.Epochs; epoch++ {
		epochStart := time.Now()
		var totalLoss float64
		var batchCount int

		for batch := 0; batch < l.config.StepsPerEpoch; batch++ {
			loss, err := step(epoch, batch)
			if err != nil {
				return fmt.Errorf("training step failed at epoch %d, batch %d: %w", epoch, batch, err)
			}

			totalLoss += loss
			batchCount++

			if err := l.callbacks.BatchEnd(l.control, batch, Logs{"loss": loss}); err != nil {
				return err
			}

			if l.config.PrintEvery > 0 && batchCount%l.config.PrintEvery == 0 && !l.config.Quiet {
				fmt.Printf("Epoch %d, Batch %d: Loss=%.4f\n", epoch, batchCount, totalLoss/float64(batchCount))
			}

			if l.control.StopRequested() {
				break
			}
		}

		avgLoss := totalLoss / float64(batchCount)
		lastEpochLoss = avgLoss

		metrics := EpochMetrics{
			Epoch:         epoch,
			Loss:          avgLoss,
			EpochDuration: time.Since(epochStart),
			BatchCount:    batchCount,
		}
		l.metrics = append(l.metrics, metrics)

		// A stop observed mid-epoch skips the epoch-end hooks entirely.
		if l.control.StopRequested() {
			break
		}

		if err := l.callbacks.EpochEnd(l.control, epoch, Logs{"loss": avgLoss}); err != nil {
			return err
		}

		if !l.config.Quiet {
			l.printEpochSummary(metrics)
		}

		if l.control.StopRequested() {
			break
		}
	}

	if l.control.StopRequested() && !l.config.Quiet {
		fmt.Printf("Early stopping triggered after %d epochs: %s\n", len(l.metrics), l.control.StopReason())
	}

	return l.callbacks.TrainEnd(l.control, Logs{"loss": lastEpochLoss})
}

// printEpochSummary prints a summary of the epoch results
func (l *Loop) printEpochSummary(metrics EpochMetrics) {
	fmt.Printf("Epoch %d/%d: Loss=%.4f, Time=%v, Batches=%d\n",
		metrics.Epoch+1, l.config.Epochs, metrics.Loss, metrics.EpochDuration, metrics.BatchCount)
}

// Metrics returns the per-epoch metrics recorded so far.
func (l *Loop) Metrics() []EpochMetrics {
	return l.metrics
}

// Stopped reports whether the last run ended because a callback requested a
// stop.
func (l *Loop) Stopped() bool {
	return l.control.StopRequested()
}

// StopReason returns the stop reason from the last run, if any.
func (l *Loop) StopReason() string {
	return l.control.StopReason()
}
