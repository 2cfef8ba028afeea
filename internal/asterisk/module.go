// Package asterisk implements the chan_websocket media transport: the wire
// event codec, per-call inbound and outbound audio paths and the WebSocket
// server that ties them to the conversational pipeline.
package asterisk

import (
	"go.uber.org/fx"
)

// Module provides the transport. It expects a Handler to be provided and
// collects hook registrations from the "call_hooks" group.
var Module = fx.Module("asterisk",
	fx.Provide(
		SettingsFromConfig,
		fx.Annotate(
			NewHooks,
			fx.ParamTags(``, `group:"call_hooks"`),
		),
		NewServer,
	),
)
