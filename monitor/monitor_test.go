package monitor

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/go-callbacks/training"
)

func curveSink(t *testing.T, payloads *[]CurvePayload) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload CurvePayload
		require.NoError(t, sonic.Unmarshal(body, &payload))
		*payloads = append(*payloads, payload)

		io.WriteString(w, `{"success": true, "message": "stored"}`)
	}))
}

func TestNewMonitorValidation(t *testing.T) {
	_, err := NewMonitor(nil, "run", 0)
	assert.Error(t, err)

	_, err = NewMonitor(NewService(DefaultConfig()), "run", -1)
	assert.Error(t, err)

	_, err = NewMonitor(NewService(DefaultConfig()), "run", 0)
	assert.NoError(t, err)
}

func TestMonitorFlushesAtTrainEnd(t *testing.T) {
	var payloads []CurvePayload
	server := curveSink(t, &payloads)
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	service := NewService(config)
	service.Enable()

	mon, err := NewMonitor(service, "decay", 0)
	require.NoError(t, err)

	loop, err := training.NewLoop(training.LoopConfig{Epochs: 3, StepsPerEpoch: 2, Quiet: true}, mon)
	require.NoError(t, err)

	step := func(epoch, batch int) (float64, error) {
		return 1.0 - 0.2*float64(epoch), nil
	}

	require.NoError(t, loop.Run(step))

	require.Len(t, payloads, 1)
	curve := payloads[0]

	_, err = uuid.Parse(curve.RunID)
	assert.NoError(t, err, "run ID should be a valid uuid")
	assert.Equal(t, "decay", curve.RunName)
	assert.Equal(t, 3, curve.Epochs)
	require.Len(t, curve.Points, 3)
	assert.InDelta(t, 0.6, curve.FinalLoss, 1e-9)
	assert.InDelta(t, 0.6, curve.BestLoss, 1e-9)
	assert.False(t, curve.Stopped)
}

func TestMonitorPeriodicFlush(t *testing.T) {
	var payloads []CurvePayload
	server := curveSink(t, &payloads)
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	service := NewService(config)
	service.Enable()

	mon, err := NewMonitor(service, "periodic", 2)
	require.NoError(t, err)

	loop, err := training.NewLoop(training.LoopConfig{Epochs: 5, StepsPerEpoch: 1, Quiet: true}, mon)
	require.NoError(t, err)

	require.NoError(t, loop.Run(func(epoch, batch int) (float64, error) { return 0.5, nil }))

	// Flushes after epochs 2 and 4, plus the final flush.
	require.Len(t, payloads, 3)
	assert.Len(t, payloads[0].Points, 2)
	assert.Len(t, payloads[1].Points, 4)
	assert.Len(t, payloads[2].Points, 5)
}

func TestMonitorNewRunIDPerRun(t *testing.T) {
	var payloads []CurvePayload
	server := curveSink(t, &payloads)
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	service := NewService(config)
	service.Enable()

	mon, err := NewMonitor(service, "rerun", 0)
	require.NoError(t, err)

	loop, err := training.NewLoop(training.LoopConfig{Epochs: 1, StepsPerEpoch: 1, Quiet: true}, mon)
	require.NoError(t, err)

	step := func(epoch, batch int) (float64, error) { return 0.5, nil }
	require.NoError(t, loop.Run(step))
	require.NoError(t, loop.Run(step))

	require.Len(t, payloads, 2)
	assert.NotEqual(t, payloads[0].RunID, payloads[1].RunID)
	assert.Len(t, payloads[1].Points, 1, "second run should start a fresh curve")
}

func TestMonitorRecordsStopReason(t *testing.T) {
	var payloads []CurvePayload
	server := curveSink(t, &payloads)
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	service := NewService(config)
	service.Enable()

	mon, err := NewMonitor(service, "stopping", 0)
	require.NoError(t, err)

	stopper := &epochStopper{epoch: 1, reason: "plateau detected"}

	loop, err := training.NewLoop(training.LoopConfig{Epochs: 10, StepsPerEpoch: 1, Quiet: true}, mon, stopper)
	require.NoError(t, err)

	require.NoError(t, loop.Run(func(epoch, batch int) (float64, error) { return 0.5, nil }))

	require.Len(t, payloads, 1)
	assert.True(t, payloads[0].Stopped)
	assert.Equal(t, "plateau detected", payloads[0].Reason)
	assert.Len(t, payloads[0].Points, 2)
}

// epochStopper requests a stop when the given epoch completes.
type epochStopper struct {
	training.BaseCallback
	epoch  int
	reason string
}

func (e *epochStopper) OnEpochEnd(ctrl *training.Control, epoch int, logs training.Logs) error {
	if epoch == e.epoch {
		ctrl.RequestStop(e.reason)
	}
	return nil
}

func TestMonitorDisabledServiceSendsNothing(t *testing.T) {
	var payloads []CurvePayload
	server := curveSink(t, &payloads)
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	service := NewService(config) // never enabled

	mon, err := NewMonitor(service, "silent", 0)
	require.NoError(t, err)

	loop, err := training.NewLoop(training.LoopConfig{Epochs: 2, StepsPerEpoch: 1, Quiet: true}, mon)
	require.NoError(t, err)

	require.NoError(t, loop.Run(func(epoch, batch int) (float64, error) { return 0.5, nil }))
	assert.Empty(t, payloads)
}
