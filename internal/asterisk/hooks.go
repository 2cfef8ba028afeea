package asterisk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Raikerian/go-asterisk-bridge/pkg/audio"
)

// HookEvent names a call lifecycle notification.
type HookEvent string

const (
	HookCallStart HookEvent = "on_call_start"
	HookCallEnd   HookEvent = "on_call_end"
)

// CallInfo describes the call a hook fires for. Stats are only filled for
// HookCallEnd.
type CallInfo struct {
	CallID       string
	ConnectionID string
	RemoteAddr   string
	Codec        audio.Codec
	SampleRate   int
	StartedAt    time.Time
	Inbound      InboundStats
	Outbound     OutboundStats
}

// HookFunc handles a lifecycle notification.
type HookFunc func(ctx context.Context, info CallInfo) error

// HookRegistration pairs a hook with its event. Provide values of this type
// into the "call_hooks" fx group to subscribe at startup.
type HookRegistration struct {
	Event HookEvent
	Func  HookFunc
}

// Hooks is the callback table fired by the connection manager.
type Hooks struct {
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[HookEvent][]HookFunc
}

// NewHooks builds the table from the given registrations.
func NewHooks(logger *zap.Logger, registrations []HookRegistration) *Hooks {
	h := &Hooks{
		logger:   logger.Named("hooks"),
		handlers: make(map[HookEvent][]HookFunc),
	}
	for _, r := range registrations {
		h.Subscribe(r.Event, r.Func)
	}
	return h
}

// Subscribe appends fn to the handlers of event.
func (h *Hooks) Subscribe(event HookEvent, fn HookFunc) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[event] = append(h.handlers[event], fn)
}

// Fire runs every handler of event in subscription order. A failing or
// panicking handler is logged and does not stop the others.
func (h *Hooks) Fire(ctx context.Context, event HookEvent, info CallInfo) {
	if h == nil {
		return
	}
	h.mu.RLock()
	handlers := append([]HookFunc(nil), h.handlers[event]...)
	h.mu.RUnlock()

	for _, fn := range handlers {
		if err := h.call(ctx, fn, info); err != nil {
			h.logger.Error("Event handler error",
				zap.String("event", string(event)),
				zap.String("call_id", info.CallID),
				zap.Error(err))
		}
	}
}

func (h *Hooks) call(ctx context.Context, fn HookFunc, info CallInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return fn(ctx, info)
}
