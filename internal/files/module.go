package files

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/eklabs/vaultgate/internal/auth"
	"github.com/eklabs/vaultgate/internal/config"
)

// NewModule returns the protected file accessor module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			func(config *config.AppConfig, svc *auth.Service, log *zap.Logger) (*Accessor, error) {
				return NewAccessor(&config.Storage, svc, log)
			},
		),
	)
}
