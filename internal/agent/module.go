package agent

import (
	"go.uber.org/fx"
)

// Module provides the configured agent as the transport's call handler.
var Module = fx.Module("agent",
	fx.Provide(
		NewAgent,
		AsHandler,
	),
)
