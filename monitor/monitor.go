package monitor

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/tsawler/go-callbacks/training"
)

// Monitor is a Callback that accumulates the per-epoch loss curve and
// flushes it to the sidecar service. Each run gets a fresh run ID. Send
// failures are reported as warnings and never abort training.
type Monitor struct {
	training.BaseCallback

	service    *Service
	runName    string
	flushEvery int // Flush the curve every N epochs (0 = only at train end)

	runID  string
	points []CurvePoint
}

// NewMonitor creates a monitor callback backed by the given service.
func NewMonitor(service *Service, runName string, flushEvery int) (*Monitor, error) {
	if service == nil {
		return nil, fmt.Errorf("monitor: service is nil")
	}
	if flushEvery < 0 {
		return nil, fmt.Errorf("monitor: flushEvery must not be negative, got %d", flushEvery)
	}
	return &Monitor{
		service:    service,
		runName:    runName,
		flushEvery: flushEvery,
		points:     make([]CurvePoint, 0),
	}, nil
}

// RunID returns the identifier assigned to the current run. Empty until
// OnTrainBegin has run.
func (m *Monitor) RunID() string {
	return m.runID
}

// OnTrainBegin assigns a new run ID and clears the curve.
func (m *Monitor) OnTrainBegin(ctrl *training.Control, logs training.Logs) error {
	m.runID = uuid.New().String()
	m.points = m.points[:0]
	return nil
}

// OnEpochEnd appends the epoch loss and flushes when due.
func (m *Monitor) OnEpochEnd(ctrl *training.Control, epoch int, logs training.Logs) error {
	loss, ok := logs.Loss()
	if !ok {
		return nil
	}

	m.points = append(m.points, CurvePoint{Epoch: epoch, Loss: loss})

	if m.flushEvery > 0 && len(m.points)%m.flushEvery == 0 {
		m.flush(ctrl)
	}
	return nil
}

// OnTrainEnd flushes the final curve.
func (m *Monitor) OnTrainEnd(ctrl *training.Control, logs training.Logs) error {
	m.flush(ctrl)
	return nil
}

// flush sends the accumulated curve; failures are warnings only.
func (m *Monitor) flush(ctrl *training.Control) {
	if !m.service.IsEnabled() || len(m.points) == 0 {
		return
	}

	payload := m.buildPayload(ctrl)
	if _, err := m.service.SendCurve(payload); err != nil {
		fmt.Printf("Warning: failed to send loss curve for run %s: %v\n", m.runID, err)
	}
}

func (m *Monitor) buildPayload(ctrl *training.Control) CurvePayload {
	best := math.Inf(1)
	for _, p := range m.points {
		if p.Loss < best {
			best = p.Loss
		}
	}

	return CurvePayload{
		RunID:     m.runID,
		RunName:   m.runName,
		Timestamp: time.Now(),
		Points:    m.points,
		FinalLoss: m.points[len(m.points)-1].Loss,
		BestLoss:  best,
		Epochs:    len(m.points),
		Stopped:   ctrl.StopRequested(),
		Reason:    ctrl.StopReason(),
	}
}
