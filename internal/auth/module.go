package auth

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/eklabs/vaultgate/internal/config"
	"github.com/eklabs/vaultgate/internal/events"
	"github.com/eklabs/vaultgate/internal/freeze"
	"github.com/eklabs/vaultgate/internal/lockout"
	"github.com/eklabs/vaultgate/internal/sessions"
	"github.com/eklabs/vaultgate/internal/store"
)

// NewModule returns the auth service module options
func NewModule() fx.Option {
	return fx.Options(
		fx.Provide(
			func(config *config.AppConfig, log *zap.Logger, st *store.Store,
				engine *lockout.Engine, reg *sessions.Registry, clock *freeze.Clock, ev *events.Logger) *Service {
				return NewService(&config.Auth, log, st, engine, reg, clock, ev)
			},
		),
	)
}
