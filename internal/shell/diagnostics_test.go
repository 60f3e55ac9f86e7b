package shell

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/tweetduck/internal/infrastructure/server"
	"github.com/GriffinCanCode/tweetduck/internal/policy"
)

var _ server.Shell = (*Diagnostics)(nil)

// inlineCaller runs calls on the test goroutine
type inlineCaller struct {
	calls int
	err   error
}

func (c *inlineCaller) Call(ctx context.Context, fn func()) error {
	c.calls++
	if c.err != nil {
		return c.err
	}
	fn()
	return nil
}

func TestDiagnostics(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	h.sched.Advance(0)

	caller := &inlineCaller{}
	diag := NewDiagnostics(h.ctrl, caller)

	snap, err := diag.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ready", snap.(Snapshot).LoadState)

	d, ok := diag.Classify("https://twitter.com/login", true).(policy.Decision)
	require.True(t, ok)
	assert.Equal(t, policy.RuleAuthSession, d.Rule)
	assert.Equal(t, 1, caller.calls, "classification does not need the loop")

	require.NoError(t, diag.ToggleUIVersion(context.Background()))
	h.sched.Advance(0)
	assert.Equal(t, "legacy", h.page.Cookies()["tweetdeck_version"])
}

func TestDiagnosticsLoopClosed(t *testing.T) {
	h := newHarness(t)
	diag := NewDiagnostics(h.ctrl, &inlineCaller{err: errors.New("loop closed")})

	_, err := diag.Snapshot(context.Background())
	assert.Error(t, err)
	assert.Error(t, diag.ToggleUIVersion(context.Background()))
}
