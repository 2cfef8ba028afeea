package asterisk

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errFlowTimeout = errors.New("flow control wait timed out")

// flowGate is the XOFF/XON latch. ready is closed while sending is allowed
// and replaced with an open channel on pause, so waiters select on it.
type flowGate struct {
	mu    sync.Mutex
	ready chan struct{}
}

func newFlowGate() *flowGate {
	ch := make(chan struct{})
	close(ch)
	return &flowGate{ready: ch}
}

func (g *flowGate) pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ready:
		g.ready = make(chan struct{})
	default:
	}
}

func (g *flowGate) resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ready:
	default:
		close(g.ready)
	}
}

func (g *flowGate) isReady() bool {
	g.mu.Lock()
	ch := g.ready
	g.mu.Unlock()
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// wait blocks until the gate opens, timeout elapses or ctx is done.
func (g *flowGate) wait(ctx context.Context, timeout time.Duration) error {
	g.mu.Lock()
	ch := g.ready
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return nil
	case <-timer.C:
		return errFlowTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
