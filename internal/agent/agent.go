// Package agent contains the conversational collaborators attached to calls.
// They consume caller frames and produce audio for the switch; the transport
// does not care which one is running.
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Raikerian/go-asterisk-bridge/internal/asterisk"
	"github.com/Raikerian/go-asterisk-bridge/internal/config"
	"github.com/Raikerian/go-asterisk-bridge/internal/frames"
)

// Call is the part of a transport call an agent uses.
type Call interface {
	Frames() <-chan frames.Frame
	Send(ctx context.Context, f frames.Frame) error
}

var _ Call = (*asterisk.Call)(nil)

// Agent serves one call until its frame stream is closed.
type Agent interface {
	Serve(ctx context.Context, call Call) error
}

// NewAgent builds the agent selected by cfg.Agent.Mode.
func NewAgent(logger *zap.Logger, cfg *config.Config) (Agent, error) {
	switch cfg.Agent.Mode {
	case config.AgentModeEcho:
		return NewEcho(logger, cfg), nil
	case config.AgentModeRealtime:
		return NewRealtime(logger, cfg), nil
	default:
		return nil, fmt.Errorf("unknown agent mode %q", cfg.Agent.Mode)
	}
}

// AsHandler exposes an agent as the transport's call handler.
func AsHandler(a Agent) asterisk.Handler {
	return asterisk.HandlerFunc(func(ctx context.Context, call *asterisk.Call) error {
		return a.Serve(ctx, call)
	})
}
