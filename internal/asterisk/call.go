package asterisk

import (
	"context"
	"errors"

	"github.com/Raikerian/go-asterisk-bridge/internal/frames"
)

// ErrCallClosed is returned when sending on a call whose connection is gone.
var ErrCallClosed = errors.New("call closed")

// Handler is the pipeline collaborator served one Call per connection. Serve
// should return once Frames is closed or ctx is done.
type Handler interface {
	Serve(ctx context.Context, call *Call) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, call *Call) error

func (f HandlerFunc) Serve(ctx context.Context, call *Call) error {
	return f(ctx, call)
}

type outboundItem struct {
	frame frames.Frame
	gen   uint64
}

// Call is the pipeline's view of one connection. Frames yields CallStart,
// Audio and DTMF frames, then Hangup and End, and is closed afterwards.
type Call struct {
	connID     string
	remoteAddr string

	frames <-chan frames.Frame
	out    chan<- outboundItem
	pacer  *OutboundPacer
	done   <-chan struct{}
}

func (c *Call) ConnectionID() string { return c.connID }
func (c *Call) RemoteAddr() string   { return c.remoteAddr }

// Frames returns the inbound frame stream.
func (c *Call) Frames() <-chan frames.Frame { return c.frames }

// Done is closed when the connection is torn down.
func (c *Call) Done() <-chan struct{} { return c.done }

// Send queues a frame for the switch. Audio and End are played in order.
// StartInterruption and Cancel take effect immediately: an interruption drops
// all audio queued before it.
func (c *Call) Send(ctx context.Context, f frames.Frame) error {
	switch f.(type) {
	case frames.StartInterruption:
		c.pacer.Flush()
		return nil
	case frames.Cancel:
		c.pacer.End()
		return nil
	}

	item := outboundItem{frame: f, gen: c.pacer.Generation()}
	select {
	case c.out <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrCallClosed
	}
}
