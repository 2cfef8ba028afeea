package calls

import (
	"go.uber.org/fx"
)

var Module = fx.Module("calls",
	fx.Provide(
		NewRegistry,
		fx.Annotate(
			NewHookRegistrations,
			fx.ResultTags(`group:"call_hooks,flatten"`),
		),
	),
)
