package asterisk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowGate_StartsReady(t *testing.T) {
	g := newFlowGate()
	assert.True(t, g.isReady())
	assert.NoError(t, g.wait(context.Background(), time.Millisecond))
}

func TestFlowGate_PauseResumeIdempotent(t *testing.T) {
	g := newFlowGate()

	g.pause()
	g.pause()
	assert.False(t, g.isReady())

	g.resume()
	g.resume()
	assert.True(t, g.isReady())
}

func TestFlowGate_WaitTimesOut(t *testing.T) {
	g := newFlowGate()
	g.pause()

	start := time.Now()
	err := g.wait(context.Background(), 30*time.Millisecond)
	assert.ErrorIs(t, err, errFlowTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestFlowGate_WaitReleasedByResume(t *testing.T) {
	g := newFlowGate()
	g.pause()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.resume()
	}()

	require.NoError(t, g.wait(context.Background(), 5*time.Second))
}

func TestFlowGate_WaitCancelled(t *testing.T) {
	g := newFlowGate()
	g.pause()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, g.wait(ctx, 5*time.Second), context.Canceled)
}
