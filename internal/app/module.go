package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/eklabs/vaultgate/internal/auth"
	"github.com/eklabs/vaultgate/internal/config"
	"github.com/eklabs/vaultgate/internal/events"
	"github.com/eklabs/vaultgate/internal/files"
	"github.com/eklabs/vaultgate/internal/freeze"
	"github.com/eklabs/vaultgate/internal/keys"
	"github.com/eklabs/vaultgate/internal/lockout"
	"github.com/eklabs/vaultgate/internal/sessions"
	"github.com/eklabs/vaultgate/internal/store"
)

// Module combines all application modules
func Module() fx.Option {
	return fx.Options(
		// Logger
		fx.Provide(newLogger),

		// Configuration
		fx.Provide(config.LoadConfig),

		// Event sink
		fx.Provide(newEventLogger),

		// Core modules
		keys.NewModule(),
		store.NewModule(),
		freeze.NewModule(),
		lockout.NewModule(),
		sessions.NewModule(),
		auth.NewModule(),
		files.NewModule(),

		// Lifecycle
		fx.Invoke(registerHooks),
	)
}

func newLogger() (*zap.Logger, error) {
	return NewLogger(config.Env())
}

func newEventLogger(config *config.AppConfig) (*events.Logger, error) {
	return events.NewLogger(&config.Audit)
}

// registerHooks takes the file accessor so its protected directory exists
// before the application reports ready.
func registerHooks(
	lifecycle fx.Lifecycle,
	config *config.AppConfig,
	svc *auth.Service,
	_ *files.Accessor,
	reg *sessions.Registry,
	ev *events.Logger,
	log *zap.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := svc.BootstrapAdmin(config.Auth.DefaultAdminPassword); err != nil {
				return err
			}
			log.Info("auth engine ready",
				zap.String("store", config.Storage.StoreFile),
				zap.String("sessions", config.Session.File),
				zap.String("protected", config.Storage.ProtectedDir))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := reg.ReleaseOwned(); err != nil {
				log.Warn("failed to release sessions on shutdown", zap.Error(err))
			}
			_ = ev.Sync()
			return nil
		},
	})
}
