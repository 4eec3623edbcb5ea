package store

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/eklabs/vaultgate/internal/config"
	"github.com/eklabs/vaultgate/internal/keys"
)

// NewModule returns the credential store module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			func(config *config.AppConfig, km *keys.Manager, log *zap.Logger) *Store {
				return New(&config.Storage, km, log)
			},
		),
	)
}
