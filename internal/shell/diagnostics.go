package shell

import (
	"context"
)

// Caller runs fn on the UI loop and waits for it
type Caller interface {
	Call(ctx context.Context, fn func()) error
}

// Diagnostics exposes the controller to request goroutines by hopping onto
// the UI loop for anything that touches controller state.
type Diagnostics struct {
	ctrl *Controller
	loop Caller
}

// NewDiagnostics adapts c for the diagnostics server
func NewDiagnostics(c *Controller, loop Caller) *Diagnostics {
	return &Diagnostics{ctrl: c, loop: loop}
}

// Snapshot returns the controller snapshot
func (d *Diagnostics) Snapshot(ctx context.Context) (any, error) {
	var snap Snapshot
	if err := d.loop.Call(ctx, func() { snap = d.ctrl.Snapshot() }); err != nil {
		return nil, err
	}
	return snap, nil
}

// Classify runs the routing table; the classifier is safe off the loop
func (d *Diagnostics) Classify(rawURL string, mainFrame bool) any {
	return d.ctrl.classifier.ClassifyRaw(rawURL, mainFrame)
}

// ToggleUIVersion schedules the UI version toggle
func (d *Diagnostics) ToggleUIVersion(ctx context.Context) error {
	return d.loop.Call(ctx, d.ctrl.ToggleUIVersion)
}
