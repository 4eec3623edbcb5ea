package lockout

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/eklabs/vaultgate/internal/config"
	"github.com/eklabs/vaultgate/internal/events"
	"github.com/eklabs/vaultgate/internal/freeze"
	"github.com/eklabs/vaultgate/internal/store"
)

// NewModule returns the lockout engine module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			func(config *config.AppConfig, st *store.Store, clock *freeze.Clock, ev *events.Logger, log *zap.Logger) *Engine {
				return NewEngine(&config.Auth, st, clock, ev, log)
			},
		),
	)
}
