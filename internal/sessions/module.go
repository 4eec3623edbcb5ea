package sessions

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/eklabs/vaultgate/internal/config"
)

// NewModule returns the session registry module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			func(config *config.AppConfig, log *zap.Logger) *Registry {
				return NewRegistry(&config.Session, log)
			},
		),
	)
}
