package training

import (
	"fmt"
)

// Logs carries the metric values the host passes to each lifecycle hook.
// The canonical key is "loss"; hosts may attach additional metrics.
type Logs map[string]float64

// Loss returns the "loss" entry and whether it was present.
func (l Logs) Loss() (float64, bool) {
	v, ok := l["loss"]
	return v, ok
}

// Callback is the training lifecycle observer contract. Hooks are invoked
// synchronously by the host loop, in registration order, on a single
// goroutine. A callback requests early termination through the Control it
// receives; returning an error aborts the run instead.
type Callback interface {
	OnTrainBegin(ctrl *Control, logs Logs) error
	OnBatchEnd(ctrl *Control, batch int, logs Logs) error
	OnEpochEnd(ctrl *Control, epoch int, logs Logs) error
	OnTrainEnd(ctrl *Control, logs Logs) error
}

// BaseCallback provides no-op implementations of every hook so concrete
// callbacks can embed it and override only the hooks they care about.
type BaseCallback struct{}

func (BaseCallback) OnTrainBegin(ctrl *Control, logs Logs) error          { return nil }
func (BaseCallback) OnBatchEnd(ctrl *Control, batch int, logs Logs) error { return nil }
func (BaseCallback) OnEpochEnd(ctrl *Control, epoch int, logs Logs) error { return nil }
func (BaseCallback) OnTrainEnd(ctrl *Control, logs Logs) error            { return nil }

// Control is the host-observed stop flag. The first RequestStop wins; the
// reason is preserved until the next run begins.
type Control struct {
	stopRequested bool
	reason        string
}

// RequestStop asks the host loop to halt training at the next opportunity.
func (c *Control) RequestStop(reason string) {
	if c.stopRequested {
		return
	}
	c.stopRequested = true
	c.reason = reason
}

// StopRequested reports whether any callback has requested a stop.
func (c *Control) StopRequested() bool {
	return c.stopRequested
}

// StopReason returns the reason given by the first RequestStop call.
func (c *Control) StopReason() string {
	return c.reason
}

func (c *Control) reset() {
	c.stopRequested = false
	c.reason = ""
}

// CallbackList dispatches lifecycle hooks to an ordered set of callbacks.
type CallbackList struct {
	callbacks []Callback
}

// NewCallbackList creates a callback list in dispatch order.
func NewCallbackList(callbacks ...Callback) *CallbackList {
	return &CallbackList{callbacks: callbacks}
}

// Append adds a callback to the end of the dispatch order.
func (cl *CallbackList) Append(cb Callback) {
	cl.callbacks = append(cl.callbacks, cb)
}

// Len returns the number of registered callbacks.
func (cl *CallbackList) Len() int {
	return len(cl.callbacks)
}

// TrainBegin dispatches OnTrainBegin to every callback.
func (cl *CallbackList) TrainBegin(ctrl *Control, logs Logs) error {
	for _, cb := range cl.callbacks {
		if err := cb.OnTrainBegin(ctrl, logs); err != nil {
			return fmt.Errorf("callback %T OnTrainBegin: %w", cb, err)
		}
	}
	return nil
}

// BatchEnd dispatches OnBatchEnd to every callback.
func (cl *CallbackList) BatchEnd(ctrl *Control, batch int, logs Logs) error {
	for _, cb := range cl.callbacks {
		if err := cb.OnBatchEnd(ctrl, batch, logs); err != nil {
			return fmt.Errorf("callback %T OnBatchEnd: %w", cb, err)
		}
	}
	return nil
}

// EpochEnd dispatches OnEpochEnd to every callback.
func (cl *CallbackList) EpochEnd(ctrl *Control, epoch int, logs Logs) error {
	for _, cb := range cl.callbacks {
		if err := cb.OnEpochEnd(ctrl, epoch, logs); err != nil {
			return fmt.Errorf("callback %T OnEpochEnd: %w", cb, err)
		}
	}
	return nil
}

// TrainEnd dispatches OnTrainEnd to every callback.
func (cl *CallbackList) TrainEnd(ctrl *Control, logs Logs) error {
	for _, cb := range cl.callbacks {
		if err := cb.OnTrainEnd(ctrl, logs); err != nil {
			return fmt.Errorf("callback %T OnTrainEnd: %w", cb, err)
		}
	}
	return nil
}
