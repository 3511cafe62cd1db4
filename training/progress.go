package training

import (
	"fmt"
	"strings"
	"time"
)

// ProgressBar provides PyTorch-style training progress visualization
type ProgressBar struct {
	description string
	total       int
	current     int
	startTime   time.Time
	width       int
	metrics     map[string]float64
}

// NewProgressBar creates a new progress bar
func NewProgressBar(description string, total int) *ProgressBar {
	return &ProgressBar{
		description: description,
		total:       total,
		current:     0,
		startTime:   time.Now(),
		width:       70, // Character width of progress bar
		metrics:     make(map[string]float64),
	}
}

// Update advances the progress bar
func (pb *ProgressBar) Update(step int, metrics map[string]float64) {
	pb.current = step
	pb.metrics = metrics
	pb.render()
}

// Finish completes the progress bar
func (pb *ProgressBar) Finish() {
	pb.current = pb.total
	pb.render()
	fmt.Println() // New line after completion
}

// render draws the progress bar
func (pb *ProgressBar) render() {
	percentage := float64(pb.current) / float64(pb.total)
	if percentage > 1.0 {
		percentage = 1.0
	}

	filled := int(percentage * float64(pb.width))
	if filled > pb.width {
		filled = pb.width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat(" ", pb.width-filled)

	elapsed := time.Since(pb.startTime)
	var eta time.Duration
	var rate float64

	if pb.current > 0 {
		rate = float64(pb.current) / elapsed.Seconds()
		if percentage > 0 {
			totalTime := time.Duration(float64(elapsed) / percentage)
			eta = totalTime - elapsed
		}
	}

	line := fmt.Sprintf("\r%s: %3.0f%%|%s| %d/%d",
		pb.description,
		percentage*100,
		bar,
		pb.current,
		pb.total,
	)

	if eta > 0 {
		line += fmt.Sprintf(" [%s<%s", formatDuration(elapsed), formatDuration(eta))
	} else {
		line += fmt.Sprintf(" [%s<00:00", formatDuration(elapsed))
	}

	if rate > 0 {
		line += fmt.Sprintf(", %.2fbatch/s", rate)
	}

	for key, value := range pb.metrics {
		line += fmt.Sprintf(", %s=%.4f", key, value)
	}

	line += "]"

	// Carriage return overwrites the previous line
	fmt.Print(line)
}

// formatDuration formats duration as MM:SS
func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// ProgressSession is a Callback that renders a per-epoch progress bar as the
// host loop reports batch losses.
type ProgressSession struct {
	BaseCallback

	runName       string
	epochs        int
	stepsPerEpoch int

	currentEpoch int
	bar          *ProgressBar
}

// NewProgressSession creates a progress session for a run with the given
// shape. epochs and stepsPerEpoch should match the host loop configuration.
func NewProgressSession(runName string, epochs, stepsPerEpoch int) (*ProgressSession, error) {
	if epochs < 1 {
		return nil, fmt.Errorf("progress session: epochs must be at least 1, got %d", epochs)
	}
	if stepsPerEpoch < 1 {
		return nil, fmt.Errorf("progress session: stepsPerEpoch must be at least 1, got %d", stepsPerEpoch)
	}
	return &ProgressSession{
		runName:       runName,
		epochs:        epochs,
		stepsPerEpoch: stepsPerEpoch,
	}, nil
}

// OnTrainBegin announces the run and resets the session state.
func (ps *ProgressSession) OnTrainBegin(ctrl *Control, logs Logs) error {
	ps.currentEpoch = 0
	ps.bar = nil
	fmt.Printf("Starting training: %s (%d epochs, %d steps/epoch)\n", ps.runName, ps.epochs, ps.stepsPerEpoch)
	return nil
}

// OnBatchEnd advances the current epoch's progress bar.
func (ps *ProgressSession) OnBatchEnd(ctrl *Control, batch int, logs Logs) error {
	if ps.bar == nil || batch == 0 {
		description := fmt.Sprintf("Epoch %d/%d", ps.currentEpoch+1, ps.epochs)
		ps.bar = NewProgressBar(description, ps.stepsPerEpoch)
	}

	loss, ok := logs.Loss()
	if !ok {
		return nil
	}
	ps.bar.Update(batch+1, map[string]float64{"loss": loss})
	return nil
}

// OnEpochEnd completes the epoch's bar and advances the epoch counter.
func (ps *ProgressSession) OnEpochEnd(ctrl *Control, epoch int, logs Logs) error {
	if ps.bar != nil {
		if loss, ok := logs.Loss(); ok {
			ps.bar.metrics = map[string]float64{"loss": loss}
		}
		ps.bar.Finish()
		ps.bar = nil
	}
	ps.currentEpoch = epoch + 1
	return nil
}

// OnTrainEnd closes out a bar left open by a mid-epoch stop.
func (ps *ProgressSession) OnTrainEnd(ctrl *Control, logs Logs) error {
	if ps.bar != nil {
		fmt.Println()
		ps.bar = nil
	}
	if ctrl.StopRequested() {
		fmt.Printf("Training stopped: %s\n", ctrl.StopReason())
	}
	return nil
}
