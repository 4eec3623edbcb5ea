package main

import (
	"fmt"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/eklabs/vaultgate/internal/app"
	"github.com/eklabs/vaultgate/internal/config"
)

func main() {
	logger, err := app.NewLogger(config.Env())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	engine := fx.New(
		app.Module(),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)
	if err := engine.Err(); err != nil {
		logger.Error("failed to assemble application", zap.Error(err))
		os.Exit(1)
	}

	engine.Run()
}
