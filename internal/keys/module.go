package keys

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/eklabs/vaultgate/internal/config"
)

// NewModule returns the key manager module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			func(config *config.AppConfig, log *zap.Logger) *Manager {
				return NewManager(&config.Storage, log)
			},
		),
	)
}
