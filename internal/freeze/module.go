package freeze

import "go.uber.org/fx"

// NewModule returns the freeze clock module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(NewClock),
	)
}
