package asterisk

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Raikerian/go-asterisk-bridge/internal/frames"
)

// connection owns one switch socket: the receive loop runs on the caller's
// goroutine, the pacer delivery loop and the handler on their own.
type connection struct {
	id       string
	logger   *zap.Logger
	settings Settings
	ws       *websocket.Conn
	hooks    *Hooks
	handler  Handler

	inbound  *InboundSession
	pacer    *OutboundPacer
	upstream chan frames.Frame
	out      chan outboundItem

	info CallInfo
}

func newConnection(id string, logger *zap.Logger, settings Settings, ws *websocket.Conn,
	hooks *Hooks, handler Handler, cancel context.CancelFunc) *connection {
	c := &connection{
		id:       id,
		logger:   logger.With(zap.String("conn_id", id), zap.String("remote_addr", ws.RemoteAddr().String())),
		settings: settings,
		ws:       ws,
		hooks:    hooks,
		handler:  handler,
		upstream: make(chan frames.Frame, settings.UpstreamBuffer),
		out:      make(chan outboundItem, settings.UpstreamBuffer),
	}

	c.pacer = NewOutboundPacer(c.logger.Named("outbound"), settings, ws, func(error) { cancel() })
	c.inbound = NewInboundSession(c.logger.Named("inbound"), settings.pipelineRate(), c.emit)
	c.info = CallInfo{ConnectionID: id, RemoteAddr: ws.RemoteAddr().String()}

	return c
}

func (c *connection) emit(ctx context.Context, f frames.Frame) error {
	select {
	case c.upstream <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run serves the connection until the socket closes or ctx is cancelled.
func (c *connection) run(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()

	c.logger.Info("Connection accepted")

	call := &Call{
		connID:     c.id,
		remoteAddr: c.info.RemoteAddr,
		frames:     c.upstream,
		out:        c.out,
		pacer:      c.pacer,
		done:       ctx.Done(),
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop(ctx)
	}()

	handlerDone := make(chan struct{})
	go func() {
		defer close(handlerDone)
		c.serveHandler(ctx, call)
	}()

	// Unblocks ReadMessage when the call is cancelled from elsewhere.
	watchDone := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(watchDone)
		c.pacer.End()
		_ = c.ws.Close()
	})

	c.readLoop(ctx)
	if !stop() {
		<-watchDone
	}
	c.teardown(handlerDone)

	cancel()
	<-writerDone
	c.pacer.End()
	_ = c.ws.Close()

	c.logger.Info("Connection closed",
		zap.String("call_id", c.info.CallID),
		zap.Any("inbound", c.inbound.Stats()),
		zap.Any("outbound", c.pacer.Stats()))
}

func (c *connection) readLoop(ctx context.Context) {
	if c.settings.ReadLimit > 0 {
		c.ws.SetReadLimit(c.settings.ReadLimit)
	}

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				c.logger.Debug("Connection closed locally", zap.Error(err))
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				c.logger.Info("Connection closed by peer")
			default:
				c.logger.Warn("Connection read failed", zap.Error(err))
			}
			return
		}

		var ev Event
		if messageType == websocket.BinaryMessage {
			ev = Media{Payload: data, Raw: true}
		} else {
			ev = ParseEvent(data)
		}

		if err := c.dispatch(ctx, ev); err != nil {
			c.logger.Debug("Pipeline stopped accepting frames", zap.Error(err))
			return
		}
	}
}

func (c *connection) dispatch(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case MediaStart:
		if c.inbound.State() == StateIdle {
			params, _ := NegotiateMedia(e)
			c.pacer.Configure(params)
			c.info.CallID = params.CallID
			c.info.Codec = params.Codec
			c.info.SampleRate = params.SampleRate
			c.info.StartedAt = time.Now()
			c.hooks.Fire(ctx, HookCallStart, c.info)
		}
		return c.inbound.HandleInbound(ctx, e)
	case XOFF:
		c.pacer.SetFlowControl(true)
		return nil
	case XON:
		c.pacer.SetFlowControl(false)
		return nil
	default:
		return c.inbound.HandleInbound(ctx, ev)
	}
}

func (c *connection) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-c.out:
			if err := c.pacer.deliver(ctx, item.frame, item.gen); err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Warn("Outbound frame failed",
					zap.String("frame", frames.Name(item.frame)),
					zap.Error(err))
			}
		}
	}
}

func (c *connection) serveHandler(ctx context.Context, call *Call) {
	if c.handler != nil {
		if err := c.handler.Serve(ctx, call); err != nil && ctx.Err() == nil {
			c.logger.Error("Call handler failed, ending call", zap.Error(err))
			c.pacer.End()
		}
	}
	// Keep the stream moving so the receive loop never blocks on a gone handler.
	for range c.upstream {
	}
}

// teardown fires on_call_end, forces the inbound session to Ended and gives
// the handler a bounded time to finish.
func (c *connection) teardown(handlerDone <-chan struct{}) {
	drainCtx, cancel := context.WithTimeout(context.Background(), c.settings.DrainTimeout)
	defer cancel()

	if c.info.CallID != "" {
		info := c.info
		info.Inbound = c.inbound.Stats()
		info.Outbound = c.pacer.Stats()
		c.hooks.Fire(drainCtx, HookCallEnd, info)
	}

	if err := c.inbound.Cancel(drainCtx); err != nil {
		c.logger.Warn("Pipeline did not take the end of call", zap.Error(err))
	}
	close(c.upstream)

	select {
	case <-handlerDone:
	case <-drainCtx.Done():
		c.logger.Warn("Call handler still running after drain timeout",
			zap.Duration("timeout", c.settings.DrainTimeout))
	}
}
